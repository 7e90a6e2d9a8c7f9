// Package solana provides the chain access layer: a JSON-RPC HTTP
// client with retry and backoff, a websocket log subscriber, and
// pubkey helpers. Consumers depend on the small interfaces here, not
// on the concrete clients.
package solana

import "context"

// RPCClient defines the Solana JSON-RPC surface the pipeline uses.
type RPCClient interface {
	// GetTransaction retrieves a confirmed transaction by signature.
	// Returns (nil, nil) when the transaction is not found yet; the
	// parse endpoint lags the event feed by a few seconds.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetAccountInfo retrieves raw account state by pubkey. Returns
	// (nil, nil) when the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetBalance retrieves the lamport balance of a pubkey.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)
}

// Transaction is a confirmed transaction with the balance movements the
// swap parser needs.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Fee       uint64
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains execution metadata and balance deltas.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	PreBalances       []uint64       // lamports per account key, before
	PostBalances      []uint64       // lamports per account key, after
	PreTokenBalances  []TokenBalance // SPL balances before
	PostTokenBalances []TokenBalance // SPL balances after
}

// TransactionMessage contains the resolved account keys.
type TransactionMessage struct {
	AccountKeys []string
}

// TokenBalance is one SPL token account balance inside a transaction.
type TokenBalance struct {
	AccountIndex int     // index into Message.AccountKeys
	Mint         string  // token mint
	Owner        string  // token account owner
	UIAmount     float64 // balance in UI units
	Decimals     int
}

// AccountInfo is raw Solana account state.
type AccountInfo struct {
	Lamports   uint64
	Owner      string // owning program, base58
	Data       []byte // decoded account data
	Executable bool
}
