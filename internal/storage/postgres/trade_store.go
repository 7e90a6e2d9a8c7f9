package postgres

import (
	"context"
	"fmt"

	"memescope/internal/domain"
	"memescope/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert records a trade and returns its id.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) (int64, error) {
	query := `
		INSERT INTO trades (
			token_id, side, amount_sol, amount_token, price_usd,
			slippage_pct, fee_sol, tx_hash, is_paper, source,
			copied_from_wallet, status, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	var id int64
	err := s.pool.QueryRow(ctx, query,
		t.TokenID,
		t.Side,
		t.AmountSOL,
		t.AmountToken,
		t.PriceUSD,
		t.SlippagePct,
		t.FeeSOL,
		t.TxHash,
		t.IsPaper,
		t.Source,
		t.CopiedFromWallet,
		t.Status,
		t.ExecutedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert trade: %w", err)
	}

	t.ID = id
	return id, nil
}

// GetByToken retrieves all trades for a token, oldest first.
func (s *TradeStore) GetByToken(ctx context.Context, tokenID int64) ([]*domain.Trade, error) {
	query := `
		SELECT id, token_id, side, amount_sol, amount_token, price_usd,
		       slippage_pct, fee_sol, tx_hash, is_paper, source,
		       copied_from_wallet, status, executed_at
		FROM trades
		WHERE token_id = $1
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("get trades by token: %w", err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		err := rows.Scan(
			&t.ID,
			&t.TokenID,
			&t.Side,
			&t.AmountSOL,
			&t.AmountToken,
			&t.PriceUSD,
			&t.SlippagePct,
			&t.FeeSOL,
			&t.TxHash,
			&t.IsPaper,
			&t.Source,
			&t.CopiedFromWallet,
			&t.Status,
			&t.ExecutedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}
