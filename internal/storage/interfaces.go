// Package storage defines store contracts for the pipeline's persisted
// state. PostgreSQL backs the relational entities, ClickHouse the
// append-only snapshot timeseries, and memory implementations back
// tests and local runs.
package storage

import (
	"context"

	"memescope/internal/domain"
)

// TokenStore provides access to tokens storage.
type TokenStore interface {
	// Upsert inserts the token or additively updates the existing row
	// for (address, chain). Returns the surrogate id either way.
	// Existing non-null attributes are never overwritten with nulls.
	Upsert(ctx context.Context, t *domain.Token) (int64, error)

	// GetByID retrieves a token by id. Returns ErrNotFound if missing.
	GetByID(ctx context.Context, id int64) (*domain.Token, error)

	// GetByAddress retrieves a token by (address, chain).
	GetByAddress(ctx context.Context, address, chain string) (*domain.Token, error)

	// CountRugsBySymbol counts tokens sharing symbol whose outcome is
	// flagged as a rug. Feeds the copycat rules.
	CountRugsBySymbol(ctx context.Context, symbol string) (int, error)
}

// SnapshotStore provides access to token_snapshots and top_holders.
type SnapshotStore interface {
	// Insert persists a snapshot and returns its id. Append-only.
	Insert(ctx context.Context, s *domain.Snapshot) (int64, error)

	// InsertHolders persists the top-holder rows for a snapshot.
	InsertHolders(ctx context.Context, holders []*domain.TopHolder) error

	// GetLatest retrieves the newest snapshot for a token (MAX(id)).
	// Returns ErrNotFound if the token has no snapshots.
	GetLatest(ctx context.Context, tokenID int64) (*domain.Snapshot, error)

	// GetByToken retrieves all snapshots for a token, oldest first.
	GetByToken(ctx context.Context, tokenID int64) ([]*domain.Snapshot, error)
}

// SecurityStore provides access to token_security storage.
type SecurityStore interface {
	// Upsert inserts or overwrites the security row for s.TokenID.
	Upsert(ctx context.Context, s *domain.TokenSecurity) error

	// GetByToken retrieves the security row. Returns ErrNotFound if missing.
	GetByToken(ctx context.Context, tokenID int64) (*domain.TokenSecurity, error)
}

// OutcomeStore provides access to token_outcomes storage.
type OutcomeStore interface {
	// Upsert inserts or updates the outcome row for o.TokenID. Peak
	// fields must never move downward; implementations enforce this.
	Upsert(ctx context.Context, o *domain.TokenOutcome) error

	// GetByToken retrieves the outcome row. Returns ErrNotFound if missing.
	GetByToken(ctx context.Context, tokenID int64) (*domain.TokenOutcome, error)
}

// CreatorStore provides access to creator_profiles storage.
type CreatorStore interface {
	// Upsert inserts or overwrites the profile for p.Creator.
	Upsert(ctx context.Context, p *domain.CreatorProfile) error

	// GetByCreator retrieves a profile. Returns ErrNotFound if missing.
	GetByCreator(ctx context.Context, creator string) (*domain.CreatorProfile, error)
}

// SignalStore provides access to signals storage. The partial unique
// index allows at most one active signal per (token, status).
type SignalStore interface {
	// Transition records a signal for the token, expiring any active
	// signal of the same status first. Both steps happen in one
	// transaction so the partial unique index is never violated.
	Transition(ctx context.Context, s *domain.Signal) error

	// GetActive retrieves the active signal of a status for a token.
	// Returns ErrNotFound if none.
	GetActive(ctx context.Context, tokenID int64, status domain.SignalStatus) (*domain.Signal, error)

	// ExpireOlderThan expires all active signals last updated before
	// cutoffMs. Returns the number expired. Used by the decay sweep.
	ExpireOlderThan(ctx context.Context, cutoffMs int64) (int, error)

	// UpdateOutcome mirrors the token's outcome into the outcome
	// columns of all its signals.
	UpdateOutcome(ctx context.Context, tokenID int64, peakMult, peakROIPct *float64, isRug *bool) error
}

// TradeStore provides access to trades storage. Append-only.
type TradeStore interface {
	// Insert records a trade and returns its id.
	Insert(ctx context.Context, t *domain.Trade) (int64, error)

	// GetByToken retrieves all trades for a token, oldest first.
	GetByToken(ctx context.Context, tokenID int64) ([]*domain.Trade, error)
}

// PositionStore provides access to positions storage.
type PositionStore interface {
	// Open inserts a new open position and returns its id. Returns
	// ErrDuplicateKey when an open position already exists for
	// (token_id, is_paper, source).
	Open(ctx context.Context, p *domain.Position) (int64, error)

	// Update persists mutated fields of an open position in place.
	Update(ctx context.Context, p *domain.Position) error

	// GetOpen retrieves the open position for (token_id, is_paper,
	// source). Returns ErrNotFound if none.
	GetOpen(ctx context.Context, tokenID int64, isPaper bool, source string) (*domain.Position, error)

	// ListOpen retrieves all open positions for (is_paper, source).
	ListOpen(ctx context.Context, isPaper bool, source string) ([]*domain.Position, error)

	// ListOpenByWallet retrieves open copy-trade positions mirrored
	// from a wallet for a token.
	ListOpenByWallet(ctx context.Context, tokenID int64, wallet string) ([]*domain.Position, error)

	// CountOpen counts open positions for (is_paper, source). An empty
	// source counts across all sources.
	CountOpen(ctx context.Context, isPaper bool, source string) (int, error)

	// CountOpenMicro counts open micro-entry positions for is_paper.
	CountOpenMicro(ctx context.Context, isPaper bool) (int, error)

	// SumOpenExposure sums AmountSOL over open positions for is_paper.
	SumOpenExposure(ctx context.Context, isPaper bool) (float64, error)
}

// WalletStore provides access to tracked_wallets storage.
type WalletStore interface {
	// Upsert inserts or overwrites the wallet row by address.
	Upsert(ctx context.Context, w *domain.TrackedWallet) error

	// List retrieves all tracked wallets.
	List(ctx context.Context) ([]*domain.TrackedWallet, error)
}

// SnapshotTimeseriesStore mirrors snapshots into the analytic store.
// Best-effort: write failures are logged, never propagated.
type SnapshotTimeseriesStore interface {
	// InsertPoint appends one observation point.
	InsertPoint(ctx context.Context, p *SnapshotPoint) error
}

// SnapshotPoint is the analytic projection of one snapshot.
type SnapshotPoint struct {
	TokenID      int64
	Address      string
	Stage        string
	TimestampMs  int64
	PriceUSD     float64
	MarketCapUSD float64
	LiquidityUSD float64
	Volume1hUSD  float64
	HolderCount  int32
	ScoreV2      int32
	ScoreV3      int32
}
