package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"memescope/internal/domain"
	"memescope/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Upsert inserts the token or additively updates the row for
// (address, chain). COALESCE keeps existing attributes when the
// incoming value is null.
func (s *TokenStore) Upsert(ctx context.Context, t *domain.Token) (int64, error) {
	query := `
		INSERT INTO tokens (
			address, chain, name, symbol, source, creator,
			initial_buy_sol, initial_mcap_sol, curve_progress,
			twitter, telegram, website, discovered_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (address, chain) DO UPDATE SET
			name             = COALESCE(EXCLUDED.name, tokens.name),
			symbol           = COALESCE(EXCLUDED.symbol, tokens.symbol),
			creator          = COALESCE(EXCLUDED.creator, tokens.creator),
			initial_buy_sol  = COALESCE(EXCLUDED.initial_buy_sol, tokens.initial_buy_sol),
			initial_mcap_sol = COALESCE(EXCLUDED.initial_mcap_sol, tokens.initial_mcap_sol),
			curve_progress   = COALESCE(EXCLUDED.curve_progress, tokens.curve_progress),
			twitter          = COALESCE(EXCLUDED.twitter, tokens.twitter),
			telegram         = COALESCE(EXCLUDED.telegram, tokens.telegram),
			website          = COALESCE(EXCLUDED.website, tokens.website)
		RETURNING id
	`

	var id int64
	err := s.pool.QueryRow(ctx, query,
		t.Address,
		t.Chain,
		t.Name,
		t.Symbol,
		t.Source,
		t.Creator,
		t.InitialBuySOL,
		t.InitialMcapSOL,
		t.CurveProgress,
		t.Twitter,
		t.Telegram,
		t.Website,
		t.DiscoveredAt,
		t.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert token: %w", err)
	}

	t.ID = id
	return id, nil
}

// GetByID retrieves a token by id. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByID(ctx context.Context, id int64) (*domain.Token, error) {
	query := tokenSelect + ` WHERE id = $1`

	t, err := scanToken(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by id: %w", err)
	}
	return t, nil
}

// GetByAddress retrieves a token by (address, chain).
func (s *TokenStore) GetByAddress(ctx context.Context, address, chain string) (*domain.Token, error) {
	query := tokenSelect + ` WHERE address = $1 AND chain = $2`

	t, err := scanToken(s.pool.QueryRow(ctx, query, address, chain))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by address: %w", err)
	}
	return t, nil
}

// CountRugsBySymbol counts tokens sharing the symbol whose outcome is
// flagged as a rug. Symbols compare case-insensitively.
func (s *TokenStore) CountRugsBySymbol(ctx context.Context, symbol string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tokens t
		JOIN token_outcomes o ON o.token_id = t.id
		WHERE UPPER(t.symbol) = UPPER($1) AND o.is_rug
	`

	var count int
	if err := s.pool.QueryRow(ctx, query, symbol).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rugs by symbol: %w", err)
	}
	return count, nil
}

const tokenSelect = `
	SELECT id, address, chain, name, symbol, source, creator,
	       initial_buy_sol, initial_mcap_sol, curve_progress,
	       twitter, telegram, website, discovered_at, created_at
	FROM tokens
`

// scanToken scans a single row into a Token.
func scanToken(row pgx.Row) (*domain.Token, error) {
	var t domain.Token
	err := row.Scan(
		&t.ID,
		&t.Address,
		&t.Chain,
		&t.Name,
		&t.Symbol,
		&t.Source,
		&t.Creator,
		&t.InitialBuySOL,
		&t.InitialMcapSOL,
		&t.CurveProgress,
		&t.Twitter,
		&t.Telegram,
		&t.Website,
		&t.DiscoveredAt,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
