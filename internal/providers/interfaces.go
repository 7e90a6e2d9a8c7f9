// Package providers defines the contracts for external data and
// execution services the pipeline depends on. Implementations are
// interchangeable; the core consumes typed results and treats provider
// failures as missing data.
package providers

import "context"

// MintRPC parses token mint accounts from the chain.
type MintRPC interface {
	// ParseMint fetches and decodes the mint account. Infrastructure
	// failures set MintInfo.ParseError rather than returning an error
	// so PRE_SCAN never hard-rejects on an RPC outage.
	ParseMint(ctx context.Context, mint string) (*MintInfo, error)
}

// SwapQuote quotes swaps through the aggregator.
type SwapQuote interface {
	// Quote returns a quote for swapping amount of input into output.
	Quote(ctx context.Context, input, output string, amount float64, slippageBps int) (*Quote, error)

	// SimulateSell checks whether a position in mint could be sold.
	// An explicit "no route" is reported in the result, not as an error.
	SimulateSell(ctx context.Context, mint string, amount float64) (*SellSimResult, error)
}

// SwapExecutor executes real swaps. Out-of-scope internals (instruction
// building, signing, confirmation) live behind this contract.
type SwapExecutor interface {
	BuyToken(ctx context.Context, mint string, solLamports int64, slippageBps int) (*SwapResult, error)
	SellToken(ctx context.Context, mint string, rawAmount int64, slippageBps int) (*SwapResult, error)
}

// TokenData serves market, security, holder and cross-source lookups.
type TokenData interface {
	// Info returns the market view; quick=true requests the cheap
	// price-only variant used by MIN_2.
	Info(ctx context.Context, mint string, quick bool) (*TokenInfo, error)

	// Security returns the token security report.
	Security(ctx context.Context, mint string) (*SecurityReport, error)

	// Holders returns the ranked holder report.
	Holders(ctx context.Context, mint string) (*HolderReport, error)

	// AltDEX returns the alternate-DEX price view.
	AltDEX(ctx context.Context, mint string) (*AltDEXQuote, error)

	// Aggregator returns the aggregator cross-source view.
	Aggregator(ctx context.Context, mint string) (*AggregatorReport, error)

	// Candles returns recent OHLCV candles.
	Candles(ctx context.Context, mint string, limit int) ([]Candle, error)
}

// WalletBalance reads the trading wallet.
type WalletBalance interface {
	GetSOLBalance(ctx context.Context) (float64, error)
	GetTokenBalance(ctx context.Context, mint string) (rawAmount int64, decimals int, err error)
}

// TxParser resolves a transaction signature into a parsed swap, used by
// the copy trader. The parse endpoint requires deeper commitment than
// the event detector, so callers retry.
type TxParser interface {
	ParseTransaction(ctx context.Context, signature string) (*ParsedTransaction, error)
}

// ParsedTransaction is a decoded transaction relevant to copy trading.
type ParsedTransaction struct {
	Type     string           // "SWAP" for swaps
	Err      bool             // transaction failed on-chain
	FeePayer string           // fee payer address
	FeeSOL   float64          // fee paid in SOL
	Native   []NativeTransfer // native SOL movements
	Tokens   []TokenTransfer  // SPL token movements
}

// NativeTransfer is a native SOL movement within a transaction.
type NativeTransfer struct {
	From      string
	To        string
	AmountSOL float64
}

// TokenTransfer is an SPL token movement within a transaction.
type TokenTransfer struct {
	From   string
	To     string
	Mint   string
	Amount float64 // UI amount
}

// Transaction type constants
const (
	TxTypeSwap = "SWAP"
)
