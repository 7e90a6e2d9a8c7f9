package domain

// Position status constants
const (
	PositionOpen   = "open"
	PositionClosed = "closed"
)

// Close reason codes, in decision precedence order.
const (
	CloseReasonRug              = "rug"
	CloseReasonTakeProfit       = "take_profit"
	CloseReasonTrailingStop     = "trailing_stop"
	CloseReasonStopLoss         = "stop_loss"
	CloseReasonEarlyStop        = "early_stop"
	CloseReasonTimeout          = "timeout"
	CloseReasonLiquidityRemoved = "liquidity_removed"
	CloseReasonMirrorSell       = "mirror_sell"
	CloseReasonForceClose       = "force_close"
)

// Position is an open or closed holding in a token.
// Corresponds to positions table in PostgreSQL. At most one open
// position per (token_id, is_paper, source), enforced by a partial
// unique index. Mutated only by the owning trader until closed.
type Position struct {
	ID      int64 // BIGSERIAL primary key
	TokenID int64 // FK to tokens

	Status          string  // "open" | "closed"
	EntryPriceUSD   float64 // weighted-average entry price
	CurrentPriceUSD float64 // last observed price
	MaxPriceUSD     float64 // highest observed price, >= CurrentPriceUSD
	AmountToken     float64 // token amount held
	AmountSOL       float64 // SOL invested

	PnLPct float64 // signed percent, never null
	PnLUSD float64 // signed USD

	CloseReason      *string // set iff closed
	IsPaper          bool    // simulated position
	Source           string  // "signal" | "copy_trade"
	SignalID         *int64  // signal that opened it; nil for micro entries
	IsMicroEntry     bool    // opened by the PRE_SCAN micro-snipe
	CopiedFromWallet *string // tracked wallet mirrored, if copy trade

	OpenedAt int64  // open timestamp (ms)
	ClosedAt *int64 // set iff closed (ms)
}

// IsOpen reports whether the position is still open.
func (p *Position) IsOpen() bool {
	return p.Status == PositionOpen
}

// AgeMs returns the position age at nowMs.
func (p *Position) AgeMs(nowMs int64) int64 {
	return nowMs - p.OpenedAt
}
