package postgres

import (
	"context"
	"fmt"

	"memescope/internal/domain"
	"memescope/internal/storage"
)

// WalletStore implements storage.WalletStore using PostgreSQL.
type WalletStore struct {
	pool *Pool
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(pool *Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// Upsert inserts or overwrites the wallet row by address.
func (s *WalletStore) Upsert(ctx context.Context, w *domain.TrackedWallet) error {
	query := `
		INSERT INTO tracked_wallets (
			address, label, enabled, multiplier, max_sol, mirror_sells, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (address) DO UPDATE SET
			label        = EXCLUDED.label,
			enabled      = EXCLUDED.enabled,
			multiplier   = EXCLUDED.multiplier,
			max_sol      = EXCLUDED.max_sol,
			mirror_sells = EXCLUDED.mirror_sells
	`

	_, err := s.pool.Exec(ctx, query,
		w.Address,
		w.Label,
		w.Enabled,
		w.Multiplier,
		w.MaxSOL,
		w.MirrorSells,
		w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert tracked wallet: %w", err)
	}
	return nil
}

// List retrieves all tracked wallets.
func (s *WalletStore) List(ctx context.Context) ([]*domain.TrackedWallet, error) {
	query := `
		SELECT id, address, label, enabled, multiplier, max_sol, mirror_sells, created_at
		FROM tracked_wallets
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tracked wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*domain.TrackedWallet
	for rows.Next() {
		var w domain.TrackedWallet
		err := rows.Scan(
			&w.ID,
			&w.Address,
			&w.Label,
			&w.Enabled,
			&w.Multiplier,
			&w.MaxSOL,
			&w.MirrorSells,
			&w.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tracked wallet row: %w", err)
		}
		wallets = append(wallets, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracked wallet rows: %w", err)
	}
	return wallets, nil
}
