package clickhouse

import (
	"context"
	"fmt"

	"memescope/internal/storage"
)

// SnapshotTimeseriesStore implements storage.SnapshotTimeseriesStore
// using ClickHouse. The table is append-only MergeTree; the pipeline
// mirrors every snapshot here for analytic queries.
type SnapshotTimeseriesStore struct {
	conn *Conn
}

// NewSnapshotTimeseriesStore creates a new SnapshotTimeseriesStore.
func NewSnapshotTimeseriesStore(conn *Conn) *SnapshotTimeseriesStore {
	return &SnapshotTimeseriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotTimeseriesStore = (*SnapshotTimeseriesStore)(nil)

// InsertPoint appends one observation point.
func (s *SnapshotTimeseriesStore) InsertPoint(ctx context.Context, p *storage.SnapshotPoint) error {
	query := `
		INSERT INTO snapshot_timeseries (
			token_id, address, stage, timestamp_ms,
			price_usd, market_cap_usd, liquidity_usd, volume_1h_usd,
			holder_count, score_v2, score_v3
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		p.TokenID, p.Address, p.Stage, p.TimestampMs,
		p.PriceUSD, p.MarketCapUSD, p.LiquidityUSD, p.Volume1hUSD,
		p.HolderCount, p.ScoreV2, p.ScoreV3,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot point: %w", err)
	}
	return nil
}

// GetByToken retrieves all points for a token, ordered by timestamp ASC.
func (s *SnapshotTimeseriesStore) GetByToken(ctx context.Context, tokenID int64) ([]*storage.SnapshotPoint, error) {
	query := `
		SELECT token_id, address, stage, timestamp_ms,
		       price_usd, market_cap_usd, liquidity_usd, volume_1h_usd,
		       holder_count, score_v2, score_v3
		FROM snapshot_timeseries
		WHERE token_id = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("query snapshot points: %w", err)
	}
	defer rows.Close()

	var points []*storage.SnapshotPoint
	for rows.Next() {
		var p storage.SnapshotPoint
		err := rows.Scan(
			&p.TokenID, &p.Address, &p.Stage, &p.TimestampMs,
			&p.PriceUSD, &p.MarketCapUSD, &p.LiquidityUSD, &p.Volume1hUSD,
			&p.HolderCount, &p.ScoreV2, &p.ScoreV3,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot point row: %w", err)
		}
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot point rows: %w", err)
	}
	return points, nil
}
