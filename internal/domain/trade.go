package domain

// Trade side constants
const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)

// Trade status constants
const (
	TradeStatusFilled = "filled"
	TradeStatusFailed = "failed"
)

// Trade source constants
const (
	TradeSourceSignal    = "signal"
	TradeSourceCopyTrade = "copy_trade"
)

// Trade is an executed (or simulated) swap. Append-only.
// Corresponds to trades table in PostgreSQL.
type Trade struct {
	ID      int64 // BIGSERIAL primary key
	TokenID int64 // FK to tokens

	Side        string  // "buy" | "sell"
	AmountSOL   float64 // SOL side of the swap
	AmountToken float64 // token side of the swap
	PriceUSD    float64 // execution price
	SlippagePct float64 // applied slippage percent
	FeeSOL      float64 // network + priority fee
	TxHash      *string // transaction id, nil for paper trades

	IsPaper          bool    // simulated trade
	Source           string  // "signal" | "copy_trade"
	CopiedFromWallet *string // tracked wallet mirrored, if copy trade
	Status           string  // "filled" | "failed"
	ExecutedAt       int64   // execution timestamp (ms)
}
