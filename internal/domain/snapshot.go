package domain

// Snapshot is a point-in-time observation of a token's market state.
// Corresponds to token_snapshots table in PostgreSQL. Immutable once
// persisted; many per token; readers pick the latest by MAX(id).
type Snapshot struct {
	ID          int64 // BIGSERIAL primary key
	TokenID     int64 // FK to tokens
	Stage       Stage // enrichment stage that produced this snapshot
	TimestampMs int64 // observation time (ms)

	PriceUSD     *float64 // token price in USD (nullable)
	MarketCapUSD *float64 // market cap in USD (nullable)
	LiquidityUSD *float64 // pool liquidity in USD (nullable)

	Volume5mUSD  *float64 // 5-minute volume (nullable)
	Volume1hUSD  *float64 // 1-hour volume (nullable)
	Volume24hUSD *float64 // 24-hour volume (nullable)

	HolderCount   *int     // holder count (nullable)
	Top10Pct      *float64 // top-10 holder concentration percent (nullable)
	SmartWallets  *int     // smart wallets among top holders (nullable)
	VolatilityPct *float64 // short-window volatility percent (nullable)
	LPRemovedPct  *float64 // percent of LP removed since entry (nullable)

	Buys5m   *int // buy trade count, 5 minutes (nullable)
	Sells5m  *int // sell trade count, 5 minutes (nullable)
	Buys1h   *int // buy trade count, 1 hour (nullable)
	Sells1h  *int // sell trade count, 1 hour (nullable)
	Buys24h  *int // buy trade count, 24 hours (nullable)
	Sells24h *int // sell trade count, 24 hours (nullable)

	AltDEXPriceUSD     *float64 // price from alternate DEX source (nullable)
	AggregatorPriceUSD *float64 // price from swap aggregator (nullable)

	SocialMentions *int     // social counter (nullable)
	LLMRiskScore   *float64 // LLM-assessed risk 0..100 (nullable)

	ScoreV2 int // balanced score 0..100
	ScoreV3 int // momentum-weighted score 0..100
}

// TopHolder is one ranked holder row attached to a snapshot. Immutable.
type TopHolder struct {
	ID         int64    // BIGSERIAL primary key
	SnapshotID int64    // FK to token_snapshots
	TokenID    int64    // FK to tokens
	Rank       int      // 1-based rank by balance
	Wallet     string   // holder wallet address
	Balance    float64  // token balance
	SupplyPct  float64  // percent of total supply
	PnLUSD     *float64 // realised+unrealised PnL (nullable)
}
