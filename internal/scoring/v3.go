package scoring

// ScoreV3 is the momentum-weighted model: buy pressure, volume
// acceleration and smart money dominate; liquidity and holders carry
// less weight than in V2. Adds the rugcheck hard reject.
func ScoreV3(c *Context) int {
	if disqualified(c) {
		return 0
	}
	if c.RugcheckScore != nil && *c.RugcheckScore >= v3RugcheckRejectScore {
		return 0
	}

	score := 0

	// Buy pressure, up to 15.
	score += band(c.BuySellRatio1h(),
		[]float64{4.0, 2.5, 1.8, 1.2},
		[]int{15, 12, 8, 4})

	// Volume relative to liquidity, up to 12. High turnover on thin
	// liquidity is momentum, not depth.
	score += band(c.VolToLiquidity(),
		[]float64{5, 3, 1.5, 0.5},
		[]int{12, 9, 6, 3})

	// Volume acceleration vs previous snapshot, up to 10.
	score += band(c.VolumeSpikeRatio(),
		[]float64{5, 3, 2},
		[]int{10, 7, 4})

	// Smart money, up to 15.
	if c.SmartWallets != nil {
		score += band(float64(*c.SmartWallets),
			[]float64{5, 3, 2, 1},
			[]int{15, 12, 8, 4})
	}

	// Early smart-money entry, up to 6.
	if c.SmartMoneyEarly != nil {
		score += band(float64(*c.SmartMoneyEarly),
			[]float64{3, 2},
			[]int{6, 3})
	}

	// Holder velocity, up to 10.
	if c.HolderVelocityPerMin != nil {
		score += band(*c.HolderVelocityPerMin,
			[]float64{50, 25, 10},
			[]int{10, 7, 3})
	}

	// Liquidity base, up to 10.
	score += band(*c.LiquidityUSD,
		[]float64{100000, 50000, 25000, 10000, 5000},
		[]int{10, 8, 6, 4, 2})

	// Holder base, up to 8.
	if c.HolderCount != nil {
		score += band(float64(*c.HolderCount),
			[]float64{1000, 500, 250, 100, 50},
			[]int{8, 6, 5, 3, 2})
	}

	// Price momentum vs previous snapshot, up to 8.
	score += band(c.PriceChangePct(),
		[]float64{50, 20, 10},
		[]int{8, 5, 2})

	score += securityScore(c)
	score += concentrationScore(c)
	score += sharedPenalties(c)

	return finalize(c, score)
}
