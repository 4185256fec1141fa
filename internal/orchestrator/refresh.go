package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/observability"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/storage"
)

// RefreshRequest selects the tokens whose market stats are refreshed.
type RefreshRequest struct {
	CAs    []string       // explicit addresses; when set, Status and Limit are ignored
	Status *domain.Status // nil refreshes every status
	Limit  int            // defaults to DefaultRefreshLimit
}

// RefreshSummary reports one stats refresh.
type RefreshSummary struct {
	Requested     int                  `json:"requested"`
	Updated       int                  `json:"updated"`
	NoData        int                  `json:"noData"`
	BatchFailures int                  `json:"batchFailures"`
	Errors        []domain.RecordError `json:"errors,omitempty"`
}

// RefreshStats re-fetches market stats for stored tokens and rewrites stats,
// venue and pair creation time. It has its own cooldown, separate from Run.
// Batches are spaced to stay under the upstream quota; a failed batch is skipped.
func (s *Service) RefreshStats(ctx context.Context, req RefreshRequest) (*RefreshSummary, error) {
	if err := s.statsCooldown.Acquire(); err != nil {
		observability.RecordCooldownRejection()
		return nil, err
	}

	start := time.Now()
	cas, err := s.refreshTargets(ctx, req)
	if err != nil {
		observability.RecordRun("refresh_stats", runStatusFailed, time.Since(start).Seconds())
		return nil, err
	}

	summary := &RefreshSummary{Requested: len(cas)}
	if len(cas) == 0 {
		return summary, nil
	}

	stats, failures, err := s.enricher.FetchStats(ctx, cas, s.statsPace)
	summary.BatchFailures = len(failures)
	if err != nil {
		observability.RecordRun("refresh_stats", runStatusFailed, time.Since(start).Seconds())
		return summary, err
	}
	s.enricher.RecordSnapshots(ctx, stats)

	for _, ca := range cas {
		st, ok := stats[ca]
		if !ok {
			summary.NoData++
			continue
		}
		rows, err := s.store.UpdateMarketData(ctx, ca, storage.MarketDataUpdate{
			Stats:         st.TokenStats(),
			VenueID:       st.VenueID,
			PairCreatedAt: st.PairCreatedAt,
		})
		if err != nil {
			summary.Errors = append(summary.Errors, domain.RecordError{CA: ca, Message: err.Error()})
			continue
		}
		if rows > 0 {
			summary.Updated++
		}
	}

	observability.RecordRun("refresh_stats", runStatusSuccess, time.Since(start).Seconds())
	s.log.WithFields(logrus.Fields{
		"requested":      summary.Requested,
		"updated":        summary.Updated,
		"no_data":        summary.NoData,
		"batch_failures": summary.BatchFailures,
		"errors":         len(summary.Errors),
	}).Info("stats refresh finished")
	return summary, nil
}

// refreshTargets resolves the addresses a refresh should cover.
func (s *Service) refreshTargets(ctx context.Context, req RefreshRequest) ([]string, error) {
	if len(req.CAs) > 0 {
		return req.CAs, nil
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultRefreshLimit
	}

	if req.Status != nil {
		tokens, err := s.store.ListByStatus(ctx, *req.Status, limit)
		if err != nil {
			return nil, fmt.Errorf("list tokens: %w", err)
		}
		return tokenCAs(tokens), nil
	}

	// List pages are capped, so walk them until limit is reached.
	var cas []string
	for offset := 0; len(cas) < limit; {
		filter := storage.ListFilter{Limit: storage.MaxListLimit, Offset: offset}
		if remaining := limit - len(cas); remaining < filter.Limit {
			filter.Limit = remaining
		}
		page, total, err := s.store.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list tokens: %w", err)
		}
		cas = append(cas, tokenCAs(page)...)
		offset += len(page)
		if len(page) == 0 || offset >= total {
			break
		}
	}
	return cas, nil
}

func tokenCAs(tokens []*domain.Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.CA
	}
	return out
}
