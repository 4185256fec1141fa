package enrichment

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/governor"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/observability"
)

// StatsBatchSize is the number of addresses per market-stats request.
const StatsBatchSize = 30

// StatsSource provides market stats for a batch of addresses.
type StatsSource interface {
	FetchStats(ctx context.Context, chainID string, addresses []string) (map[string]domain.MarketStats, error)
}

// BatchFailure records a stats batch that could not be fetched.
type BatchFailure struct {
	Index     int      // zero-based batch number
	Addresses []string // addresses in the failed batch
	Err       error
}

// FetchStats fetches stats for addresses in sequential batches of StatsBatchSize,
// sleeping pace between batches. A failed batch is logged, recorded and skipped;
// its addresses are simply absent from the result. Only ctx cancellation is returned as an error.
func (e *Enricher) FetchStats(ctx context.Context, addresses []string, pace time.Duration) (map[string]domain.MarketStats, []BatchFailure, error) {
	stats := make(map[string]domain.MarketStats, len(addresses))
	var failures []BatchFailure

	for i, batch := range governor.Chunk(addresses, StatsBatchSize) {
		if i > 0 {
			if err := governor.Pace(ctx, pace); err != nil {
				return stats, failures, err
			}
		}
		if err := ctx.Err(); err != nil {
			return stats, failures, err
		}

		got, err := e.stats.FetchStats(ctx, e.chainID, batch)
		if err != nil {
			if ctx.Err() != nil {
				return stats, failures, ctx.Err()
			}
			e.log.WithFields(logrus.Fields{
				"batch": i,
				"size":  len(batch),
			}).WithError(err).Warn("stats batch failed")
			observability.RecordStatsBatchFailure()
			failures = append(failures, BatchFailure{Index: i, Addresses: batch, Err: err})
			continue
		}
		for addr, s := range got {
			if _, seen := stats[addr]; !seen {
				stats[addr] = s
			}
		}
	}

	return stats, failures, nil
}

// RecordSnapshots appends one history point per address to the snapshot store, if configured.
// Failures are logged and otherwise ignored.
func (e *Enricher) RecordSnapshots(ctx context.Context, stats map[string]domain.MarketStats) {
	if e.snapshots == nil || len(stats) == 0 {
		return
	}
	ts := e.now().UnixMilli()
	snaps := make([]*domain.StatsSnapshot, 0, len(stats))
	for ca, s := range stats {
		snaps = append(snaps, &domain.StatsSnapshot{
			CA:           ca,
			TimestampMs:  ts,
			PriceUSD:     s.PriceUSD,
			MarketCap:    s.MarketCap,
			Volume24h:    s.Volume24h,
			LiquidityUSD: s.LiquidityUSD,
			VenueID:      s.VenueID,
		})
	}
	if err := e.snapshots.InsertBulk(ctx, snaps); err != nil {
		e.log.WithError(err).WithField("count", len(snaps)).Warn("stats snapshot insert failed")
	}
}
