package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/classifier"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/disposition"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/governor"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/observability"
)

// ErrNoOracle is returned by entry points that need a classifier when none is configured.
var ErrNoOracle = errors.New("classification oracle not configured")

// AnalyzePending classifies up to limit tokens still in status new.
// Concurrent mode uses the classification groups of Run; sequential mode
// handles one token at a time with a short pause between them.
func (s *Service) AnalyzePending(ctx context.Context, limit int, sequential bool) (domain.DispositionSummary, error) {
	if s.oracle == nil {
		return domain.DispositionSummary{}, ErrNoOracle
	}
	if limit <= 0 {
		limit = DefaultPendingLimit
	}

	start := time.Now()
	tokens, err := s.store.ListByStatus(ctx, domain.StatusNew, limit)
	if err != nil {
		return domain.DispositionSummary{}, fmt.Errorf("list pending tokens: %w", err)
	}

	log := s.log.WithFields(logrus.Fields{"pending": len(tokens), "sequential": sequential})
	if len(tokens) == 0 {
		log.Debug("no pending tokens")
		return domain.DispositionSummary{}, nil
	}

	var summary domain.DispositionSummary
	if sequential {
		summary, err = s.sweepSequential(ctx, tokens)
	} else {
		summary, err = s.classifyAndDispose(ctx, tokens)
	}

	status := runStatusSuccess
	if err != nil {
		status = runStatusFailed
	}
	observability.RecordRun("sweep", status, time.Since(start).Seconds())
	log.WithFields(logrus.Fields{
		"kept":    summary.Kept,
		"deleted": summary.Deleted,
		"skipped": summary.Skipped,
		"errors":  len(summary.Errors),
	}).Info("pending sweep finished")
	return summary, err
}

func (s *Service) sweepSequential(ctx context.Context, tokens []*domain.Token) (domain.DispositionSummary, error) {
	var summary domain.DispositionSummary
	for i, t := range tokens {
		if i > 0 {
			if err := governor.Pace(ctx, s.sweepPace); err != nil {
				return summary, err
			}
		}
		result := classifier.Classify(ctx, s.oracle, t)
		outcome, err := s.writer.Apply(ctx, t.CA, result)
		disposition.Record(&summary, t.CA, outcome, err)
	}
	return summary, nil
}

// ClassifyResult is the answer to a single-token classification.
type ClassifyResult struct {
	CA         string                      `json:"ca"`
	Analysis   domain.ClassificationResult `json:"analysis"`
	AnalyzedAt time.Time                   `json:"analyzedAt"`
	Outcome    disposition.Outcome         `json:"outcome"`
}

// ClassifyOne classifies a stored token and applies the disposition.
// Unlike the batch paths, oracle failures are returned to the caller so that
// authentication and rate-limit errors can be told apart. An unparseable answer
// is not an error: it yields the unknown classification.
func (s *Service) ClassifyOne(ctx context.Context, ca string) (*ClassifyResult, error) {
	if s.oracle == nil && s.detailed == nil {
		return nil, ErrNoOracle
	}

	t, err := s.store.Get(ctx, ca)
	if err != nil {
		return nil, err
	}

	var result domain.ClassificationResult
	if s.detailed != nil {
		result, err = s.detailed.AnalyzeDetailed(ctx, t)
	} else {
		result, err = s.oracle.Analyze(ctx, t)
	}
	if err != nil {
		if !errors.Is(err, classifier.ErrMalformedResponse) {
			return nil, err
		}
		result = classifier.Degrade(result, err)
	}

	outcome, err := s.writer.Apply(ctx, ca, result)
	if err != nil {
		return nil, fmt.Errorf("apply disposition: %w", err)
	}
	return &ClassifyResult{
		CA:         ca,
		Analysis:   result,
		AnalyzedAt: s.now(),
		Outcome:    outcome,
	}, nil
}
