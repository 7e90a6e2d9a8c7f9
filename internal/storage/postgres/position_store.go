package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"memescope/internal/domain"
	"memescope/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL. The
// partial unique index on open rows makes Open the race arbiter: of two
// concurrent opens for the same (token, mode, source), one gets
// ErrDuplicateKey.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Open inserts a new open position and returns its id.
func (s *PositionStore) Open(ctx context.Context, p *domain.Position) (int64, error) {
	query := `
		INSERT INTO positions (
			token_id, status, entry_price_usd, current_price_usd, max_price_usd,
			amount_token, amount_sol, pnl_pct, pnl_usd, close_reason,
			is_paper, source, signal_id, is_micro_entry, copied_from_wallet,
			opened_at, closed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`

	var id int64
	err := s.pool.QueryRow(ctx, query,
		p.TokenID,
		p.Status,
		p.EntryPriceUSD,
		p.CurrentPriceUSD,
		p.MaxPriceUSD,
		p.AmountToken,
		p.AmountSOL,
		p.PnLPct,
		p.PnLUSD,
		p.CloseReason,
		p.IsPaper,
		p.Source,
		p.SignalID,
		p.IsMicroEntry,
		p.CopiedFromWallet,
		p.OpenedAt,
		p.ClosedAt,
	).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, storage.ErrDuplicateKey
		}
		return 0, fmt.Errorf("open position: %w", err)
	}

	p.ID = id
	return id, nil
}

// Update persists the mutable fields of a position in place. The
// micro-snipe top-up rewrites entry_price_usd, signal_id and
// is_micro_entry on the same row, so those travel with every update.
func (s *PositionStore) Update(ctx context.Context, p *domain.Position) error {
	query := `
		UPDATE positions
		SET status = $2, entry_price_usd = $3, current_price_usd = $4,
		    max_price_usd = $5, amount_token = $6, amount_sol = $7,
		    pnl_pct = $8, pnl_usd = $9, close_reason = $10,
		    signal_id = $11, is_micro_entry = $12, closed_at = $13
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		p.ID,
		p.Status,
		p.EntryPriceUSD,
		p.CurrentPriceUSD,
		p.MaxPriceUSD,
		p.AmountToken,
		p.AmountSOL,
		p.PnLPct,
		p.PnLUSD,
		p.CloseReason,
		p.SignalID,
		p.IsMicroEntry,
		p.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetOpen retrieves the open position for (token_id, is_paper, source).
func (s *PositionStore) GetOpen(ctx context.Context, tokenID int64, isPaper bool, source string) (*domain.Position, error) {
	query := positionSelect + ` WHERE token_id = $1 AND is_paper = $2 AND source = $3 AND status = 'open'`

	p, err := scanPosition(s.pool.QueryRow(ctx, query, tokenID, isPaper, source))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get open position: %w", err)
	}
	return p, nil
}

// ListOpen retrieves all open positions for (is_paper, source).
func (s *PositionStore) ListOpen(ctx context.Context, isPaper bool, source string) ([]*domain.Position, error) {
	query := positionSelect + ` WHERE is_paper = $1 AND source = $2 AND status = 'open' ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query, isPaper, source)
	if err != nil {
		return nil, fmt.Errorf("list open positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// ListOpenByWallet retrieves open copy-trade positions mirrored from a
// wallet for a token.
func (s *PositionStore) ListOpenByWallet(ctx context.Context, tokenID int64, wallet string) ([]*domain.Position, error) {
	query := positionSelect + ` WHERE token_id = $1 AND copied_from_wallet = $2 AND status = 'open' ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query, tokenID, wallet)
	if err != nil {
		return nil, fmt.Errorf("list open positions by wallet: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// CountOpen counts open positions for (is_paper, source). An empty
// source counts across all sources.
func (s *PositionStore) CountOpen(ctx context.Context, isPaper bool, source string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM positions
		WHERE is_paper = $1 AND status = 'open' AND ($2 = '' OR source = $2)
	`

	var count int
	if err := s.pool.QueryRow(ctx, query, isPaper, source).Scan(&count); err != nil {
		return 0, fmt.Errorf("count open positions: %w", err)
	}
	return count, nil
}

// CountOpenMicro counts open micro-entry positions for is_paper.
func (s *PositionStore) CountOpenMicro(ctx context.Context, isPaper bool) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM positions
		WHERE is_paper = $1 AND status = 'open' AND is_micro_entry
	`

	var count int
	if err := s.pool.QueryRow(ctx, query, isPaper).Scan(&count); err != nil {
		return 0, fmt.Errorf("count open micro positions: %w", err)
	}
	return count, nil
}

// SumOpenExposure sums AmountSOL over open positions for is_paper.
func (s *PositionStore) SumOpenExposure(ctx context.Context, isPaper bool) (float64, error) {
	query := `
		SELECT COALESCE(SUM(amount_sol), 0)
		FROM positions
		WHERE is_paper = $1 AND status = 'open'
	`

	var sum float64
	if err := s.pool.QueryRow(ctx, query, isPaper).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum open exposure: %w", err)
	}
	return sum, nil
}

const positionSelect = `
	SELECT id, token_id, status, entry_price_usd, current_price_usd, max_price_usd,
	       amount_token, amount_sol, pnl_pct, pnl_usd, close_reason,
	       is_paper, source, signal_id, is_micro_entry, copied_from_wallet,
	       opened_at, closed_at
	FROM positions
`

// scanPosition scans a single row into a Position.
func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position
	err := row.Scan(
		&p.ID,
		&p.TokenID,
		&p.Status,
		&p.EntryPriceUSD,
		&p.CurrentPriceUSD,
		&p.MaxPriceUSD,
		&p.AmountToken,
		&p.AmountSOL,
		&p.PnLPct,
		&p.PnLUSD,
		&p.CloseReason,
		&p.IsPaper,
		&p.Source,
		&p.SignalID,
		&p.IsMicroEntry,
		&p.CopiedFromWallet,
		&p.OpenedAt,
		&p.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// scanPositions scans multiple rows into a slice of Position.
func scanPositions(rows pgx.Rows) ([]*domain.Position, error) {
	var positions []*domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}
	return positions, nil
}
