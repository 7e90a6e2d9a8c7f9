package postgres

import (
	"context"
	"fmt"

	"memescope/internal/domain"
	"memescope/internal/storage"
)

// SecurityStore implements storage.SecurityStore using PostgreSQL.
type SecurityStore struct {
	pool *Pool
}

// NewSecurityStore creates a new SecurityStore.
func NewSecurityStore(pool *Pool) *SecurityStore {
	return &SecurityStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SecurityStore = (*SecurityStore)(nil)

// Upsert inserts or overwrites the security row for sec.TokenID.
func (s *SecurityStore) Upsert(ctx context.Context, sec *domain.TokenSecurity) error {
	query := `
		INSERT INTO token_security (
			token_id, mintable, lp_burned, lp_locked, is_honeypot, contract_renounced,
			buy_tax_pct, sell_tax_pct, lp_lock_days, top10_pct, dev_balance_pct,
			rugcheck_score, solsniffer_score, risks, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (token_id) DO UPDATE SET
			mintable           = EXCLUDED.mintable,
			lp_burned          = EXCLUDED.lp_burned,
			lp_locked          = EXCLUDED.lp_locked,
			is_honeypot        = EXCLUDED.is_honeypot,
			contract_renounced = EXCLUDED.contract_renounced,
			buy_tax_pct        = EXCLUDED.buy_tax_pct,
			sell_tax_pct       = EXCLUDED.sell_tax_pct,
			lp_lock_days       = EXCLUDED.lp_lock_days,
			top10_pct          = EXCLUDED.top10_pct,
			dev_balance_pct    = EXCLUDED.dev_balance_pct,
			rugcheck_score     = EXCLUDED.rugcheck_score,
			solsniffer_score   = EXCLUDED.solsniffer_score,
			risks              = EXCLUDED.risks,
			updated_at         = EXCLUDED.updated_at
	`

	risks := sec.Risks
	if risks == nil {
		risks = []string{}
	}

	_, err := s.pool.Exec(ctx, query,
		sec.TokenID,
		sec.Mintable,
		sec.LPBurned,
		sec.LPLocked,
		sec.IsHoneypot,
		sec.ContractRenounced,
		sec.BuyTaxPct,
		sec.SellTaxPct,
		sec.LPLockDays,
		sec.Top10Pct,
		sec.DevBalancePct,
		sec.RugcheckScore,
		sec.SolSnifferScore,
		risks,
		sec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert token security: %w", err)
	}
	return nil
}

// GetByToken retrieves the security row. Returns ErrNotFound if missing.
func (s *SecurityStore) GetByToken(ctx context.Context, tokenID int64) (*domain.TokenSecurity, error) {
	query := `
		SELECT id, token_id, mintable, lp_burned, lp_locked, is_honeypot, contract_renounced,
		       buy_tax_pct, sell_tax_pct, lp_lock_days, top10_pct, dev_balance_pct,
		       rugcheck_score, solsniffer_score, risks, updated_at
		FROM token_security
		WHERE token_id = $1
	`

	var sec domain.TokenSecurity
	err := s.pool.QueryRow(ctx, query, tokenID).Scan(
		&sec.ID,
		&sec.TokenID,
		&sec.Mintable,
		&sec.LPBurned,
		&sec.LPLocked,
		&sec.IsHoneypot,
		&sec.ContractRenounced,
		&sec.BuyTaxPct,
		&sec.SellTaxPct,
		&sec.LPLockDays,
		&sec.Top10Pct,
		&sec.DevBalancePct,
		&sec.RugcheckScore,
		&sec.SolSnifferScore,
		&sec.Risks,
		&sec.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token security: %w", err)
	}
	return &sec, nil
}
