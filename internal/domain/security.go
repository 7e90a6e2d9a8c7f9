package domain

// TokenSecurity holds security flags for a token.
// Corresponds to token_security table in PostgreSQL. One row per token
// (unique by token_id), upserted as providers re-report.
type TokenSecurity struct {
	ID      int64 // BIGSERIAL primary key
	TokenID int64 // FK to tokens, unique

	Mintable          *bool // mint authority still active (nullable = unknown)
	LPBurned          *bool // LP tokens burned (nullable)
	LPLocked          *bool // LP tokens locked (nullable)
	IsHoneypot        *bool // sell blocked (nullable)
	ContractRenounced *bool // update authority renounced (nullable)

	BuyTaxPct       *float64 // buy tax percent (nullable)
	SellTaxPct      *float64 // sell tax percent (nullable)
	LPLockDays      *float64 // LP lock duration in days (nullable)
	Top10Pct        *float64 // top-10 concentration percent (nullable)
	DevBalancePct   *float64 // dev wallet percent of supply (nullable)
	RugcheckScore   *float64 // external aggregate risk score (nullable)
	SolSnifferScore *float64 // external aggregate risk score (nullable)

	Risks     []string // free-text risk list from external checkers
	UpdatedAt int64    // last upsert timestamp (ms)
}

// TokenOutcome tracks a token's peak and final performance.
// One row per token, upserted; peak fields only move upward.
type TokenOutcome struct {
	ID      int64 // BIGSERIAL primary key
	TokenID int64 // FK to tokens, unique

	InitialMcapUSD *float64 // first observed market cap (nullable)
	PeakMcapUSD    *float64 // highest observed market cap (monotonic)
	PeakPriceUSD   *float64 // highest observed price (monotonic)
	PeakMultiplier *float64 // peak mcap / initial mcap (monotonic)
	TimeToPeakMs   *int64   // ms from discovery to peak (nullable)

	FinalMcapUSD    *float64 // market cap at HOUR_24 (nullable)
	FinalMultiplier *float64 // final mcap / initial mcap (nullable)
	IsRug           bool     // final at least 90% below peak

	UpdatedAt int64 // last upsert timestamp (ms)
}

// CreatorProfile aggregates launch history for a creator wallet.
// One row per creator address, upserted.
type CreatorProfile struct {
	ID      int64  // BIGSERIAL primary key
	Creator string // creator wallet address, unique

	TotalLaunches int      // tokens launched by this wallet
	RugCount      int      // launches flagged as rugs
	SuccessCount  int      // launches with peak multiplier >= 2
	AvgPeakMult   *float64 // average peak multiplier (nullable)
	RiskScore     int      // computed 0..100, higher = riskier
	FundingRisk   *float64 // funding-trace risk 0..100 (nullable)
	UpdatedAt     int64    // last upsert timestamp (ms)
}
