package domain

// TrackedWallet is a wallet mirrored by the copy trader.
// Corresponds to tracked_wallets table in PostgreSQL; mutated by the
// admin surface, read by the copy trader through an immutable snapshot.
type TrackedWallet struct {
	ID      int64  // BIGSERIAL primary key
	Address string // wallet address, unique

	Label       *string // operator-facing label (nullable)
	Enabled     bool    // disabled wallets are skipped
	Multiplier  float64 // scale factor applied to observed buy size
	MaxSOL      float64 // cap on mirrored investment per buy
	MirrorSells bool    // mirror the wallet's sells
	CreatedAt   int64   // record creation timestamp (ms)
}

// WalletEvent is one observed transaction involving a tracked wallet,
// as delivered by the wallet-event feed. Deduplicated by Signature.
type WalletEvent struct {
	Signature string // transaction signature
	Wallet    string // tracked wallet address
	Slot      int64  // Solana slot number
	SeenAt    int64  // feed delivery timestamp (ms)
}

// DiscoveryEvent is one token-launch event from the discovery feed.
type DiscoveryEvent struct {
	Mint           string   // token mint address
	Chain          string   // always "sol"
	Name           *string  // token name (nullable)
	Symbol         *string  // token symbol (nullable)
	Source         string   // feed tag
	Creator        *string  // creator wallet (nullable)
	InitialBuySOL  *float64 // creator initial buy (nullable)
	InitialMcapSOL *float64 // initial market cap in SOL (nullable)
	CurveProgress  *float64 // bonding-curve progress (nullable)
	DiscoveredAt   int64    // Unix timestamp in milliseconds
}
