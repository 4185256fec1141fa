package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/observability"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/storage"
)

// StatsSnapshotStore implements storage.StatsSnapshotStore using ClickHouse.
type StatsSnapshotStore struct {
	conn *Conn
}

// NewStatsSnapshotStore creates a new StatsSnapshotStore.
func NewStatsSnapshotStore(conn *Conn) *StatsSnapshotStore {
	return &StatsSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.StatsSnapshotStore = (*StatsSnapshotStore)(nil)

// InsertBulk appends snapshots in one batch.
func (s *StatsSnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.StatsSnapshot) (err error) {
	if len(snapshots) == 0 {
		return nil
	}
	for _, snap := range snapshots {
		if snap == nil || snap.CA == "" {
			return storage.ErrInvalidInput
		}
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "insert_stats_snapshots", time.Since(start).Seconds(), err)
	}()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO stats_snapshots (
			ca, timestamp_ms, price_usd, market_cap, volume_24h, liquidity_usd, venue_id
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		err = batch.Append(
			snap.CA, uint64(snap.TimestampMs),
			snap.PriceUSD, snap.MarketCap, snap.Volume24h, snap.LiquidityUSD,
			snap.VenueID,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByCA retrieves the history for a token, ordered by timestamp ASC.
func (s *StatsSnapshotStore) GetByCA(ctx context.Context, ca string) ([]*domain.StatsSnapshot, error) {
	query := `
		SELECT ca, timestamp_ms, price_usd, market_cap, volume_24h, liquidity_usd, venue_id
		FROM stats_snapshots
		WHERE ca = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, ca)
	if err != nil {
		return nil, fmt.Errorf("query by ca: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// GetByTimeRange retrieves snapshots for a token within [start, end] (inclusive).
func (s *StatsSnapshotStore) GetByTimeRange(ctx context.Context, ca string, start, end int64) ([]*domain.StatsSnapshot, error) {
	query := `
		SELECT ca, timestamp_ms, price_usd, market_cap, volume_24h, liquidity_usd, venue_id
		FROM stats_snapshots
		WHERE ca = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, ca, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// scanSnapshots scans multiple rows.
func scanSnapshots(rows chRows) ([]*domain.StatsSnapshot, error) {
	var snapshots []*domain.StatsSnapshot

	for rows.Next() {
		var snap domain.StatsSnapshot
		var timestampMs uint64

		err := rows.Scan(
			&snap.CA, &timestampMs,
			&snap.PriceUSD, &snap.MarketCap, &snap.Volume24h, &snap.LiquidityUSD,
			&snap.VenueID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan stats snapshot row: %w", err)
		}

		snap.TimestampMs = int64(timestampMs)
		snapshots = append(snapshots, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats snapshot rows: %w", err)
	}

	return snapshots, nil
}
