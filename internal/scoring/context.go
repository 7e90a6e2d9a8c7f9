// Package scoring computes composite quality scores for enriched token
// snapshots. Scoring functions are pure: plain-data view in, integer out,
// no I/O and no clock.
package scoring

// Context is the explicit signals context for one enrichment step.
// It replaces ad-hoc keyword passing: the worker builds it once from the
// snapshot, the security report and the carry-through PRE_SCAN results,
// then hands the same value to both score variants and the signal
// evaluator. Nil pointer fields mean the data point is unavailable.
type Context struct {
	// Market observation
	PriceUSD     *float64
	MarketCapUSD *float64
	LiquidityUSD *float64
	Volume5mUSD  *float64
	Volume1hUSD  *float64
	Volume24hUSD *float64
	Buys5m       *int
	Sells5m      *int
	Buys1h       *int
	Sells1h      *int
	HolderCount  *int
	Top10Pct     *float64
	SmartWallets *int
	LPRemovedPct *float64
	AgeMs        int64 // ms since discovery

	// Previous snapshot, for momentum and velocity rules
	PrevPriceUSD    *float64
	PrevHolderCount *int
	PrevVolume5mUSD *float64
	PrevSnapshotMs  *int64

	// Security report (HasSecurity=false means no report fetched)
	HasSecurity       bool
	Mintable          *bool
	LPBurned          *bool
	LPLocked          *bool
	IsHoneypot        *bool
	ContractRenounced *bool
	BuyTaxPct         *float64
	SellTaxPct        *float64
	DevBalancePct     *float64
	RugcheckScore     *float64
	SolSnifferScore   *float64
	RugcheckRisks     []string

	// Cross-source views
	AltDEXPriceUSD     *float64
	AggregatorPriceUSD *float64
	AggregatorHoneypot bool

	// Carry-through PRE_SCAN results
	MintRiskBoost       int  // 0..100 accumulated from soft mint flags
	SellSimFailed       bool // sell simulation reported unsellable
	DangerousExtensions bool // token-2022 dangerous extension present

	// Derived and external signals
	HolderVelocityPerMin *float64 // holders gained per minute
	HolderAccelPerMin    *float64 // holder velocity change per minute
	WhaleScoreImpact     *int     // signed whale-activity contribution
	CreatorRiskScore     *int     // creator profile risk 0..100
	SmartMoneyEarly      *int     // smart wallets entered within 10 min
	LLMRiskScore         *float64 // LLM-assessed risk 0..100

	// Scam fingerprints
	BundledBuy            bool // launch bought in a bundled transaction
	SerialDeployer        bool // creator deploys continuously
	FeePayerSybil         bool // many wallets share one fee payer
	JitoBundleSnipe       bool // sniped via a Jito bundle at launch
	MutableMetadata       bool
	NameHomoglyph         bool // symbol/name uses homoglyph spoofing
	InsiderNetwork        bool // holder graph links back to creator
	SuspiciousFunding     bool // creator funded through a risky chain
	CrossTokenCoordinated bool // buyers shared across sibling launches
	TokenConvergence      bool // holder overlap converging with a rug
	WashTrading           bool
	NoSocials             bool
	MetadataBanned        bool // provider metadata says "banned"
	KnownBanned           bool // token on the local ban list
	SymbolRugCount        int  // prior rugs recorded for this symbol
}

// BuySellRatio1h returns the 1h buy/sell ratio, or 0 when unknown.
// A zero sell count with positive buys reports the buy count itself.
func (c *Context) BuySellRatio1h() float64 {
	if c.Buys1h == nil || c.Sells1h == nil {
		return 0
	}
	if *c.Sells1h == 0 {
		return float64(*c.Buys1h)
	}
	return float64(*c.Buys1h) / float64(*c.Sells1h)
}

// VolToLiquidity returns volume_1h / liquidity, or 0 when unknown.
func (c *Context) VolToLiquidity() float64 {
	if c.Volume1hUSD == nil || c.LiquidityUSD == nil || *c.LiquidityUSD <= 0 {
		return 0
	}
	return *c.Volume1hUSD / *c.LiquidityUSD
}

// McapToLiquidity returns market_cap / liquidity, or 0 when unknown.
func (c *Context) McapToLiquidity() float64 {
	if c.MarketCapUSD == nil || c.LiquidityUSD == nil || *c.LiquidityUSD <= 0 {
		return 0
	}
	return *c.MarketCapUSD / *c.LiquidityUSD
}

// PriceChangePct returns percent change vs the previous snapshot,
// or 0 when either price is unknown.
func (c *Context) PriceChangePct() float64 {
	if c.PriceUSD == nil || c.PrevPriceUSD == nil || *c.PrevPriceUSD <= 0 {
		return 0
	}
	return (*c.PriceUSD - *c.PrevPriceUSD) / *c.PrevPriceUSD * 100
}

// VolumeSpikeRatio returns volume_5m vs the previous snapshot's 5m
// volume, or 0 when unknown.
func (c *Context) VolumeSpikeRatio() float64 {
	if c.Volume5mUSD == nil || c.PrevVolume5mUSD == nil || *c.PrevVolume5mUSD <= 0 {
		return 0
	}
	return *c.Volume5mUSD / *c.PrevVolume5mUSD
}

// DataPoints counts the available core data categories. Used for the
// completeness cap: sparse inputs must not produce confident scores.
func (c *Context) DataPoints() int {
	n := 0
	if c.LiquidityUSD != nil {
		n++
	}
	if c.HolderCount != nil {
		n++
	}
	if c.Volume1hUSD != nil || c.Volume5mUSD != nil {
		n++
	}
	if c.HasSecurity {
		n++
	}
	if c.SmartWallets != nil {
		n++
	}
	if c.Top10Pct != nil {
		n++
	}
	return n
}

// boolTrue reports whether a nullable flag is known true.
func boolTrue(b *bool) bool {
	return b != nil && *b
}

// boolFalse reports whether a nullable flag is known false.
func boolFalse(b *bool) bool {
	return b != nil && !*b
}
