package trading

// Config parameterises the paper and real traders.
type Config struct {
	SOLPerTrade        float64 // nominal SOL invested per signal entry
	StrongBuyFactor    float64 // size multiplier for strong_buy signals
	MicroSnipeSOL      float64 // micro-snipe entry size; 0 disables
	MaxPositions       int     // cap on concurrent signal positions
	MaxMicroPositions  int     // separate cap on concurrent micro entries
	MaxEntryMultiple   float64 // sanity reject: current/entry above this is API corruption
	MaxPriceUSD        float64 // sanity reject: memecoins rarely trade above this
	LPRemovedRejectPct float64 // refuse entries when this much LP was pulled
	SOLPriceUSD        float64 // SOL/USD for P&L conversion outside a market view
	Close              CloseOptions
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		SOLPerTrade:        0.5,
		StrongBuyFactor:    1.5,
		MicroSnipeSOL:      0.07,
		MaxPositions:       10,
		MaxMicroPositions:  3,
		MaxEntryMultiple:   1000,
		MaxPriceUSD:        1.0,
		LPRemovedRejectPct: 30,
		SOLPriceUSD:        150,
		Close:              DefaultCloseOptions(),
	}
}

// MarketView is the market state handed to a trader alongside a signal
// or a position update. Built by the enrichment worker from the freshly
// persisted snapshot.
type MarketView struct {
	Mint         string   // token mint address
	PriceUSD     float64  // current price; <= 0 means unknown
	LiquidityUSD *float64 // pool liquidity, nil when unknown
	LPRemovedPct *float64 // percent of LP pulled, nil when unknown
	IsRug        bool     // outcome flagged the token as rugged
	DeadPrice    bool     // price feed considers the pool dead
	SOLPriceUSD  float64  // SOL/USD for P&L conversion
}

// slippagePct returns the penalty percent applied when a trade exceeds
// 2% of pool liquidity. Linear in the traded fraction, capped at 50.
func slippagePct(tradeUSD float64, liquidityUSD *float64) float64 {
	if liquidityUSD == nil || *liquidityUSD <= 0 {
		return 0
	}
	frac := tradeUSD / *liquidityUSD
	if frac <= 0.02 {
		return 0
	}
	pct := frac * 100
	if pct > 50 {
		pct = 50
	}
	return pct
}

// quadraticExitFraction models an illiquid exit: the recoverable value
// fraction collapses quadratically as the position size approaches the
// remaining pool.
func quadraticExitFraction(positionUSD float64, liquidityUSD *float64) float64 {
	liq := 0.0
	if liquidityUSD != nil {
		liq = *liquidityUSD
	}
	if liq <= 0 {
		return 0
	}
	frac := positionUSD / liq
	if frac >= 1 {
		return 0
	}
	f := 1 - frac
	return f * f
}

func sizeFactor(cfg Config, strongBuy bool) float64 {
	if strongBuy {
		return cfg.StrongBuyFactor
	}
	return 1.0
}
