package postgres

import (
	"context"
	"fmt"

	"memescope/internal/domain"
	"memescope/internal/storage"
)

// OutcomeStore implements storage.OutcomeStore using PostgreSQL.
type OutcomeStore struct {
	pool *Pool
}

// NewOutcomeStore creates a new OutcomeStore.
func NewOutcomeStore(pool *Pool) *OutcomeStore {
	return &OutcomeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OutcomeStore = (*OutcomeStore)(nil)

// Upsert inserts or updates the outcome row for o.TokenID. The conflict
// clause enforces the row invariants even under concurrent writers:
// initial mcap keeps its first value, peak fields never move downward
// (GREATEST skips nulls), time-to-peak follows the peak mcap, and a rug
// flag never clears.
func (s *OutcomeStore) Upsert(ctx context.Context, o *domain.TokenOutcome) error {
	query := `
		INSERT INTO token_outcomes (
			token_id, initial_mcap_usd, peak_mcap_usd, peak_price_usd,
			peak_multiplier, time_to_peak_ms, final_mcap_usd, final_multiplier,
			is_rug, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (token_id) DO UPDATE SET
			initial_mcap_usd = COALESCE(token_outcomes.initial_mcap_usd, EXCLUDED.initial_mcap_usd),
			peak_mcap_usd    = GREATEST(token_outcomes.peak_mcap_usd, EXCLUDED.peak_mcap_usd),
			peak_price_usd   = GREATEST(token_outcomes.peak_price_usd, EXCLUDED.peak_price_usd),
			peak_multiplier  = GREATEST(token_outcomes.peak_multiplier, EXCLUDED.peak_multiplier),
			time_to_peak_ms  = CASE
				WHEN EXCLUDED.peak_mcap_usd > COALESCE(token_outcomes.peak_mcap_usd, 0)
					THEN EXCLUDED.time_to_peak_ms
				ELSE token_outcomes.time_to_peak_ms
			END,
			final_mcap_usd   = COALESCE(EXCLUDED.final_mcap_usd, token_outcomes.final_mcap_usd),
			final_multiplier = COALESCE(EXCLUDED.final_multiplier, token_outcomes.final_multiplier),
			is_rug           = token_outcomes.is_rug OR EXCLUDED.is_rug,
			updated_at       = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		o.TokenID,
		o.InitialMcapUSD,
		o.PeakMcapUSD,
		o.PeakPriceUSD,
		o.PeakMultiplier,
		o.TimeToPeakMs,
		o.FinalMcapUSD,
		o.FinalMultiplier,
		o.IsRug,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert token outcome: %w", err)
	}
	return nil
}

// GetByToken retrieves the outcome row. Returns ErrNotFound if missing.
func (s *OutcomeStore) GetByToken(ctx context.Context, tokenID int64) (*domain.TokenOutcome, error) {
	query := `
		SELECT id, token_id, initial_mcap_usd, peak_mcap_usd, peak_price_usd,
		       peak_multiplier, time_to_peak_ms, final_mcap_usd, final_multiplier,
		       is_rug, updated_at
		FROM token_outcomes
		WHERE token_id = $1
	`

	var o domain.TokenOutcome
	err := s.pool.QueryRow(ctx, query, tokenID).Scan(
		&o.ID,
		&o.TokenID,
		&o.InitialMcapUSD,
		&o.PeakMcapUSD,
		&o.PeakPriceUSD,
		&o.PeakMultiplier,
		&o.TimeToPeakMs,
		&o.FinalMcapUSD,
		&o.FinalMultiplier,
		&o.IsRug,
		&o.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token outcome: %w", err)
	}
	return &o, nil
}
