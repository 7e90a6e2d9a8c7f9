package postgres

import (
	"context"
	"fmt"

	"memescope/internal/domain"
	"memescope/internal/storage"
)

// CreatorStore implements storage.CreatorStore using PostgreSQL.
type CreatorStore struct {
	pool *Pool
}

// NewCreatorStore creates a new CreatorStore.
func NewCreatorStore(pool *Pool) *CreatorStore {
	return &CreatorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CreatorStore = (*CreatorStore)(nil)

// Upsert inserts or overwrites the profile for p.Creator.
func (s *CreatorStore) Upsert(ctx context.Context, p *domain.CreatorProfile) error {
	query := `
		INSERT INTO creator_profiles (
			creator, total_launches, rug_count, success_count,
			avg_peak_mult, risk_score, funding_risk, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (creator) DO UPDATE SET
			total_launches = EXCLUDED.total_launches,
			rug_count      = EXCLUDED.rug_count,
			success_count  = EXCLUDED.success_count,
			avg_peak_mult  = EXCLUDED.avg_peak_mult,
			risk_score     = EXCLUDED.risk_score,
			funding_risk   = COALESCE(EXCLUDED.funding_risk, creator_profiles.funding_risk),
			updated_at     = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		p.Creator,
		p.TotalLaunches,
		p.RugCount,
		p.SuccessCount,
		p.AvgPeakMult,
		p.RiskScore,
		p.FundingRisk,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert creator profile: %w", err)
	}
	return nil
}

// GetByCreator retrieves a profile. Returns ErrNotFound if missing.
func (s *CreatorStore) GetByCreator(ctx context.Context, creator string) (*domain.CreatorProfile, error) {
	query := `
		SELECT id, creator, total_launches, rug_count, success_count,
		       avg_peak_mult, risk_score, funding_risk, updated_at
		FROM creator_profiles
		WHERE creator = $1
	`

	var p domain.CreatorProfile
	err := s.pool.QueryRow(ctx, query, creator).Scan(
		&p.ID,
		&p.Creator,
		&p.TotalLaunches,
		&p.RugCount,
		&p.SuccessCount,
		&p.AvgPeakMult,
		&p.RiskScore,
		&p.FundingRisk,
		&p.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get creator profile: %w", err)
	}
	return &p, nil
}
