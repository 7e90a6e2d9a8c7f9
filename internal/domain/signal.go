package domain

// SignalStatus is the lifecycle status of a trading signal.
type SignalStatus string

const (
	SignalStrongBuy SignalStatus = "strong_buy"
	SignalBuy       SignalStatus = "buy"
	SignalWatch     SignalStatus = "watch"
	SignalAvoid     SignalStatus = "avoid"
	SignalExpired   SignalStatus = "expired"
)

// String returns the string representation of SignalStatus.
func (s SignalStatus) String() string {
	return string(s)
}

// IsActive reports whether the status counts against the partial unique
// index (at most one active signal per (token, status)).
func (s SignalStatus) IsActive() bool {
	return s == SignalStrongBuy || s == SignalBuy || s == SignalWatch
}

// Signal is an actionable evaluation of a token at a point in time.
// Corresponds to signals table in PostgreSQL.
type Signal struct {
	ID      int64        // BIGSERIAL primary key
	TokenID int64        // FK to tokens
	Status  SignalStatus // strong_buy | buy | watch | avoid | expired

	Score      int      // composite score at evaluation time
	NetScore   int      // bullish - bearish rule sum
	RulesFired []string // names of rules that fired

	PriceUSD     *float64 // token price at evaluation (nullable)
	MarketCapUSD *float64 // market cap at evaluation (nullable)
	LiquidityUSD *float64 // liquidity at evaluation (nullable)

	// Outcome columns, filled as the token's outcome evolves.
	PeakMultiplierAfter *float64 // peak multiplier after signal (nullable)
	PeakROIPct          *float64 // peak ROI percent after signal (nullable)
	IsRugAfter          *bool    // token rugged after signal (nullable)

	CreatedAt int64 // signal creation timestamp (ms)
	UpdatedAt int64 // last transition timestamp (ms)
}
