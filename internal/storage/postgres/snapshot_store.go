package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"memescope/internal/domain"
	"memescope/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert persists a snapshot and returns its id.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.Snapshot) (int64, error) {
	query := `
		INSERT INTO token_snapshots (
			token_id, stage, timestamp_ms,
			price_usd, market_cap_usd, liquidity_usd,
			volume_5m_usd, volume_1h_usd, volume_24h_usd,
			holder_count, top10_pct, smart_wallets, volatility_pct, lp_removed_pct,
			buys_5m, sells_5m, buys_1h, sells_1h, buys_24h, sells_24h,
			alt_dex_price_usd, aggregator_price_usd,
			social_mentions, llm_risk_score,
			score_v2, score_v3
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26
		)
		RETURNING id
	`

	var id int64
	err := s.pool.QueryRow(ctx, query,
		snap.TokenID,
		string(snap.Stage),
		snap.TimestampMs,
		snap.PriceUSD,
		snap.MarketCapUSD,
		snap.LiquidityUSD,
		snap.Volume5mUSD,
		snap.Volume1hUSD,
		snap.Volume24hUSD,
		snap.HolderCount,
		snap.Top10Pct,
		snap.SmartWallets,
		snap.VolatilityPct,
		snap.LPRemovedPct,
		snap.Buys5m,
		snap.Sells5m,
		snap.Buys1h,
		snap.Sells1h,
		snap.Buys24h,
		snap.Sells24h,
		snap.AltDEXPriceUSD,
		snap.AggregatorPriceUSD,
		snap.SocialMentions,
		snap.LLMRiskScore,
		snap.ScoreV2,
		snap.ScoreV3,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}

	snap.ID = id
	return id, nil
}

// InsertHolders persists the top-holder rows in one batch.
func (s *SnapshotStore) InsertHolders(ctx context.Context, holders []*domain.TopHolder) error {
	if len(holders) == 0 {
		return nil
	}

	query := `
		INSERT INTO top_holders (snapshot_id, token_id, rank, wallet, balance, supply_pct, pnl_usd)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	batch := &pgx.Batch{}
	for _, h := range holders {
		batch.Queue(query, h.SnapshotID, h.TokenID, h.Rank, h.Wallet, h.Balance, h.SupplyPct, h.PnLUSD)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range holders {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert top holders: %w", err)
		}
	}
	return nil
}

// GetLatest retrieves the newest snapshot for a token.
func (s *SnapshotStore) GetLatest(ctx context.Context, tokenID int64) (*domain.Snapshot, error) {
	query := snapshotSelect + ` WHERE token_id = $1 ORDER BY id DESC LIMIT 1`

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query, tokenID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return snap, nil
}

// GetByToken retrieves all snapshots for a token, oldest first.
func (s *SnapshotStore) GetByToken(ctx context.Context, tokenID int64) ([]*domain.Snapshot, error) {
	query := snapshotSelect + ` WHERE token_id = $1 ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("get snapshots by token: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snaps, nil
}

const snapshotSelect = `
	SELECT id, token_id, stage, timestamp_ms,
	       price_usd, market_cap_usd, liquidity_usd,
	       volume_5m_usd, volume_1h_usd, volume_24h_usd,
	       holder_count, top10_pct, smart_wallets, volatility_pct, lp_removed_pct,
	       buys_5m, sells_5m, buys_1h, sells_1h, buys_24h, sells_24h,
	       alt_dex_price_usd, aggregator_price_usd,
	       social_mentions, llm_risk_score,
	       score_v2, score_v3
	FROM token_snapshots
`

// scanSnapshot scans a single row into a Snapshot.
func scanSnapshot(row pgx.Row) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	var stageStr string

	err := row.Scan(
		&snap.ID,
		&snap.TokenID,
		&stageStr,
		&snap.TimestampMs,
		&snap.PriceUSD,
		&snap.MarketCapUSD,
		&snap.LiquidityUSD,
		&snap.Volume5mUSD,
		&snap.Volume1hUSD,
		&snap.Volume24hUSD,
		&snap.HolderCount,
		&snap.Top10Pct,
		&snap.SmartWallets,
		&snap.VolatilityPct,
		&snap.LPRemovedPct,
		&snap.Buys5m,
		&snap.Sells5m,
		&snap.Buys1h,
		&snap.Sells1h,
		&snap.Buys24h,
		&snap.Sells24h,
		&snap.AltDEXPriceUSD,
		&snap.AggregatorPriceUSD,
		&snap.SocialMentions,
		&snap.LLMRiskScore,
		&snap.ScoreV2,
		&snap.ScoreV3,
	)
	if err != nil {
		return nil, err
	}

	snap.Stage = domain.Stage(stageStr)
	return &snap, nil
}
