package scoring

// ScoreV2 is the balanced model: liquidity and holder base first,
// momentum second. Pure function of the context; 0 only for hard
// disqualifiers.
func ScoreV2(c *Context) int {
	if disqualified(c) {
		return 0
	}

	score := 0

	// Liquidity base, up to 20.
	score += band(*c.LiquidityUSD,
		[]float64{100000, 50000, 25000, 10000, 5000},
		[]int{20, 16, 12, 8, 4})

	// Holder base, up to 15.
	if c.HolderCount != nil {
		score += band(float64(*c.HolderCount),
			[]float64{1000, 500, 250, 100, 50},
			[]int{15, 12, 9, 6, 3})
	}

	// Volume, up to 12.
	if c.Volume1hUSD != nil {
		score += band(*c.Volume1hUSD,
			[]float64{250000, 100000, 50000, 10000},
			[]int{12, 9, 6, 3})
	}

	// Buy pressure, up to 10.
	score += band(c.BuySellRatio1h(),
		[]float64{4.0, 2.5, 1.8, 1.2},
		[]int{10, 8, 5, 2})

	// Smart money, up to 8.
	if c.SmartWallets != nil {
		score += band(float64(*c.SmartWallets),
			[]float64{5, 3, 2, 1},
			[]int{8, 6, 4, 2})
	}

	// Holder velocity, up to 6.
	if c.HolderVelocityPerMin != nil {
		score += band(*c.HolderVelocityPerMin,
			[]float64{50, 25, 10},
			[]int{6, 4, 2})
	}

	score += securityScore(c)
	score += concentrationScore(c)
	score += sharedPenalties(c)

	return finalize(c, score)
}
