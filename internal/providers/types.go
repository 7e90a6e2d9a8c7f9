package providers

// MintInfo is the parsed state of a token mint account. Carried through
// the enrichment queue, hence the JSON tags.
type MintInfo struct {
	Supply          float64  `json:"supply"`           // UI supply (raw / 10^decimals)
	Decimals        int      `json:"decimals"`         // mint decimals
	MintAuthority   *string  `json:"mint_authority"`   // nil when revoked
	FreezeAuthority *string  `json:"freeze_authority"` // nil when revoked
	IsToken2022     bool     `json:"is_token_2022"`    // owned by the Token-2022 program
	Extensions      []string `json:"extensions"`       // all extension names present
	Dangerous       []string `json:"dangerous"`        // extensions that hard-reject a token
	Risky           []string `json:"risky"`            // extensions that add soft risk
	ParseError      bool     `json:"parse_error"`      // RPC/parse failure; flags are unreliable
}

// SellSimResult is the outcome of a simulated sell via the swap
// aggregator. Carried through the enrichment queue.
type SellSimResult struct {
	Sellable       bool    `json:"sellable"`         // a route back to SOL exists
	NoRoute        bool    `json:"no_route"`         // aggregator explicitly reported no route
	PriceImpactPct float64 `json:"price_impact_pct"` // quoted price impact
	APIError       bool    `json:"api_error"`        // aggregator unreachable; not a token signal
}

// Quote is a swap-aggregator quote.
type Quote struct {
	InputAmount    float64 // input amount, UI units
	OutputAmount   float64 // output amount, UI units
	PriceImpactPct float64 // quoted price impact percent
}

// SwapResult is the structured outcome of a real swap execution.
type SwapResult struct {
	Success        bool    // swap landed
	TxHash         string  // transaction id when Success
	InputAmount    float64 // actual input, UI units
	OutputAmount   float64 // actual output, UI units
	PriceImpactPct float64 // realised price impact
	FeeSOL         float64 // network + priority fee paid
	Error          string  // failure description
	Retryable      bool    // failure classified as transient
}

// TokenInfo is the market view of a token from a data provider.
// Nil pointer fields mean the provider did not report the value.
type TokenInfo struct {
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
	Buys24h      *int
	Sells24h     *int
	HolderCount  *int
	LPRemovedPct *float64
	IsBanned     bool // provider metadata marks the token banned
}

// SecurityReport is a token security provider result.
type SecurityReport struct {
	Mintable          *bool
	LPBurned          *bool
	LPLocked          *bool
	IsHoneypot        *bool
	ContractRenounced *bool
	BuyTaxPct         *float64
	SellTaxPct        *float64
	LPLockDays        *float64
	Top10Pct          *float64
	DevBalancePct     *float64
	RugcheckScore     *float64
	SolSnifferScore   *float64
	Risks             []string
}

// HolderRow is one ranked holder from the holders provider.
type HolderRow struct {
	Rank      int
	Wallet    string
	Balance   float64
	SupplyPct float64
	PnLUSD    *float64
}

// HolderReport is the holders provider result.
type HolderReport struct {
	TotalHolders int
	Top10Pct     float64
	SmartWallets int // smart wallets among the top holders
	Top          []HolderRow
}

// AltDEXQuote is a cross-source price check from an alternate DEX.
type AltDEXQuote struct {
	PriceUSD     *float64
	LiquidityUSD *float64
}

// AggregatorReport is the aggregator's view used for cross-source
// price coherence and honeypot confirmation.
type AggregatorReport struct {
	PriceUSD   *float64
	IsHoneypot bool
}

// Candle is one OHLCV candle.
type Candle struct {
	OpenTimeMs int64
	Open       float64
	High       float64
	Low        float64
	Close      float64
	VolumeUSD  float64
}
