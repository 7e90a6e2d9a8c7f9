package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"memescope/internal/domain"
	"memescope/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

// Transition records a signal for the token, expiring any active signal
// of the same status first. Both statements run in one transaction so
// the partial unique index on active signals is never violated.
func (s *SignalStore) Transition(ctx context.Context, sig *domain.Signal) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin signal transition: %w", err)
	}
	defer tx.Rollback(ctx)

	if sig.Status.IsActive() {
		expire := `
			UPDATE signals
			SET status = $1, updated_at = $2
			WHERE token_id = $3 AND status = $4
		`
		if _, err := tx.Exec(ctx, expire,
			string(domain.SignalExpired), sig.CreatedAt, sig.TokenID, string(sig.Status),
		); err != nil {
			return fmt.Errorf("expire previous signal: %w", err)
		}
	}

	insert := `
		INSERT INTO signals (
			token_id, status, score, net_score, rules_fired,
			price_usd, market_cap_usd, liquidity_usd,
			peak_multiplier_after, peak_roi_pct, is_rug_after,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	rules := sig.RulesFired
	if rules == nil {
		rules = []string{}
	}

	var id int64
	err = tx.QueryRow(ctx, insert,
		sig.TokenID,
		string(sig.Status),
		sig.Score,
		sig.NetScore,
		rules,
		sig.PriceUSD,
		sig.MarketCapUSD,
		sig.LiquidityUSD,
		sig.PeakMultiplierAfter,
		sig.PeakROIPct,
		sig.IsRugAfter,
		sig.CreatedAt,
		sig.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit signal transition: %w", err)
	}

	sig.ID = id
	return nil
}

// GetActive retrieves the active signal of a status for a token.
func (s *SignalStore) GetActive(ctx context.Context, tokenID int64, status domain.SignalStatus) (*domain.Signal, error) {
	if !status.IsActive() {
		return nil, storage.ErrNotFound
	}

	query := signalSelect + ` WHERE token_id = $1 AND status = $2`

	sig, err := scanSignal(s.pool.QueryRow(ctx, query, tokenID, string(status)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get active signal: %w", err)
	}
	return sig, nil
}

// ExpireOlderThan expires all active signals last updated before
// cutoffMs. Returns the number expired.
func (s *SignalStore) ExpireOlderThan(ctx context.Context, cutoffMs int64) (int, error) {
	query := `
		UPDATE signals
		SET status = $1, updated_at = $2
		WHERE status IN ('strong_buy', 'buy', 'watch') AND updated_at < $2
	`

	tag, err := s.pool.Exec(ctx, query, string(domain.SignalExpired), cutoffMs)
	if err != nil {
		return 0, fmt.Errorf("expire stale signals: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// UpdateOutcome mirrors the token's outcome into the outcome columns of
// all its signals. Null inputs keep the existing column value.
func (s *SignalStore) UpdateOutcome(ctx context.Context, tokenID int64, peakMult, peakROIPct *float64, isRug *bool) error {
	query := `
		UPDATE signals
		SET peak_multiplier_after = COALESCE($2, peak_multiplier_after),
		    peak_roi_pct          = COALESCE($3, peak_roi_pct),
		    is_rug_after          = COALESCE($4, is_rug_after)
		WHERE token_id = $1
	`

	if _, err := s.pool.Exec(ctx, query, tokenID, peakMult, peakROIPct, isRug); err != nil {
		return fmt.Errorf("update signal outcomes: %w", err)
	}
	return nil
}

const signalSelect = `
	SELECT id, token_id, status, score, net_score, rules_fired,
	       price_usd, market_cap_usd, liquidity_usd,
	       peak_multiplier_after, peak_roi_pct, is_rug_after,
	       created_at, updated_at
	FROM signals
`

// scanSignal scans a single row into a Signal.
func scanSignal(row pgx.Row) (*domain.Signal, error) {
	var sig domain.Signal
	var statusStr string

	err := row.Scan(
		&sig.ID,
		&sig.TokenID,
		&statusStr,
		&sig.Score,
		&sig.NetScore,
		&sig.RulesFired,
		&sig.PriceUSD,
		&sig.MarketCapUSD,
		&sig.LiquidityUSD,
		&sig.PeakMultiplierAfter,
		&sig.PeakROIPct,
		&sig.IsRugAfter,
		&sig.CreatedAt,
		&sig.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sig.Status = domain.SignalStatus(statusStr)
	return &sig, nil
}
