package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/discovery"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/observability"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/venue"
)

// Entry points, used for logging and metrics.
const (
	EntryManual    = "manual"
	EntryScheduled = "scheduled"
	EntryCron      = "cron"
)

// Run statuses, as reported to metrics.
const (
	runStatusSuccess  = "success"
	runStatusFailed   = "failed"
	runStatusRejected = "rejected"
)

// RunSummary reports one full pipeline run.
type RunSummary struct {
	RunID              string    `json:"runId"`
	Entry              string    `json:"entry"`
	StartedAt          time.Time `json:"startedAt"`
	FinishedAt         time.Time `json:"finishedAt"`
	Discovered         int       `json:"discovered"`
	AlreadyKnown       int       `json:"alreadyKnown"`
	Inserted           int       `json:"inserted"`
	AutoDeleted        int       `json:"autoDeleted"`
	StatsBatchFailures int       `json:"statsBatchFailures"`
	Error              string    `json:"error,omitempty"`

	domain.DispositionSummary
}

// Run executes discovery through disposition once.
//
// The cooldown is claimed before any network call; a rejection is a
// *governor.CooldownError. A feed failure, a dedup lookup failure or a failed
// insert aborts the run. Per-token failures are recorded in the summary.
func (s *Service) Run(ctx context.Context, entry string) (*RunSummary, error) {
	run, err := s.Claim(entry)
	if err != nil {
		return nil, err
	}
	return run(ctx)
}

// RunFunc executes a run whose cooldown slot is already held.
type RunFunc func(ctx context.Context) (*RunSummary, error)

// Claim acquires the cooldown now and returns the run to execute later,
// so callers that hand the work to a queue can still reject synchronously.
// The returned function may be called more than once, for retries.
func (s *Service) Claim(entry string) (RunFunc, error) {
	if err := s.cooldown.Acquire(); err != nil {
		observability.RecordCooldownRejection()
		observability.RecordRun(entry, runStatusRejected, 0)
		return nil, err
	}
	return func(ctx context.Context) (*RunSummary, error) {
		return s.runClaimed(ctx, entry)
	}, nil
}

func (s *Service) runClaimed(ctx context.Context, entry string) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:     uuid.New().String(),
		Entry:     entry,
		StartedAt: s.now(),
	}
	log := s.log.WithFields(logrus.Fields{"run_id": summary.RunID, "entry": entry})
	log.Info("pipeline run started")

	err := s.run(ctx, log, summary)

	summary.FinishedAt = s.now()
	duration := summary.FinishedAt.Sub(summary.StartedAt).Seconds()
	if err != nil {
		summary.Error = err.Error()
		observability.RecordRun(entry, runStatusFailed, duration)
		log.WithError(err).Error("pipeline run failed")
	} else {
		observability.RecordRun(entry, runStatusSuccess, duration)
		log.WithFields(logrus.Fields{
			"discovered":    summary.Discovered,
			"already_known": summary.AlreadyKnown,
			"inserted":      summary.Inserted,
			"auto_deleted":  summary.AutoDeleted,
			"kept":          summary.Kept,
			"deleted":       summary.Deleted,
			"skipped":       summary.Skipped,
			"errors":        len(summary.Errors),
		}).Info("pipeline run finished")
	}
	s.setLastRun(summary)
	return summary, err
}

func (s *Service) run(ctx context.Context, log logrus.FieldLogger, summary *RunSummary) error {
	// Phase 1: discovery
	candidates, err := s.source.FetchLatestCandidates(ctx)
	if err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	summary.Discovered = len(candidates)
	if len(candidates) == 0 {
		observability.RecordDiscovery(0, 0)
		return nil
	}

	// Phase 2: deduplication
	known, err := s.store.ExistingAddresses(ctx, discovery.Addresses(candidates))
	if err != nil {
		return fmt.Errorf("dedup lookup: %w", err)
	}
	fresh, alreadyKnown := discovery.PartitionByExistence(candidates, known)
	summary.AlreadyKnown = alreadyKnown
	observability.RecordDiscovery(len(candidates), alreadyKnown)
	if len(fresh) == 0 {
		log.Debug("no fresh candidates")
		return nil
	}

	// Phase 3: enrichment
	enriched, err := s.enricher.Enrich(ctx, fresh)
	if err != nil {
		return fmt.Errorf("enrichment: %w", err)
	}
	summary.StatsBatchFailures = len(enriched.BatchFailures)

	// Phase 4: venue routing
	toClassify := route(enriched.Tokens)
	summary.AutoDeleted = len(enriched.Tokens) - len(toClassify)

	// Phase 5: persistence
	inserted, err := s.store.InsertBatch(ctx, enriched.Tokens)
	if err != nil {
		return fmt.Errorf("insert tokens: %w", err)
	}
	summary.Inserted = inserted
	observability.RecordInserted(inserted, summary.AutoDeleted)

	// Phase 6: classification and disposition
	if s.oracle == nil {
		log.WithField("pending", len(toClassify)).Warn("no oracle configured, tokens left in status new")
		return nil
	}
	disp, err := s.classifyAndDispose(ctx, toClassify)
	summary.DispositionSummary = disp
	if err != nil {
		return fmt.Errorf("classification: %w", err)
	}
	return nil
}

// route sets the initial status of every token and returns the ones to classify.
// Tokens off the venue allow-list go straight to deleted.
func route(tokens []*domain.Token) []*domain.Token {
	toClassify := make([]*domain.Token, 0, len(tokens))
	for _, t := range tokens {
		if venue.IsAllowed(t) {
			t.Status = domain.StatusNew
			toClassify = append(toClassify, t)
			continue
		}
		t.Status = domain.StatusDeleted
	}
	return toClassify
}
