package domain

// Token represents a discovered on-chain token.
// Corresponds to tokens table in PostgreSQL. Unique by (address, chain).
// Created on first sighting; mutated only by additive upsert; never deleted.
type Token struct {
	ID             int64    // BIGSERIAL primary key
	Address        string   // token mint address
	Chain          string   // always "sol" today
	Name           *string  // token name (nullable)
	Symbol         *string  // token symbol (nullable)
	Source         string   // discovery source tag
	Creator        *string  // creator wallet address (nullable)
	InitialBuySOL  *float64 // creator initial buy in SOL (nullable)
	InitialMcapSOL *float64 // initial market cap in SOL (nullable)
	CurveProgress  *float64 // bonding-curve progress 0..1 (nullable)
	Twitter        *string  // social link (nullable)
	Telegram       *string  // social link (nullable)
	Website        *string  // social link (nullable)
	DiscoveredAt   int64    // Unix timestamp in milliseconds
	CreatedAt      int64    // record creation timestamp (ms)
}

// Chain constants
const (
	ChainSolana = "sol"
)
