// Package orchestrator runs the discovery pipeline:
// discover, dedup, enrich, venue filter, classify and dispose.
// All entry points share one Service and one cooldown.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/classifier"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/disposition"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/enrichment"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/governor"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/observability"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/storage"
)

// Defaults for batch sizes and pacing.
const (
	DefaultClassifyGroupSize  = 20
	DefaultPendingLimit       = 20
	DefaultRefreshLimit       = 500
	DefaultSweepPace          = 100 * time.Millisecond
	DefaultStatsRefreshPace   = 200 * time.Millisecond
	DefaultStatsRefreshWindow = 30 * time.Second
)

// CandidateSource yields freshly discovered candidates.
type CandidateSource interface {
	FetchLatestCandidates(ctx context.Context) ([]domain.Candidate, error)
}

// Service wires the pipeline stages together.
type Service struct {
	source   CandidateSource
	enricher *enrichment.Enricher
	oracle   classifier.Oracle
	detailed classifier.DetailedOracle
	writer   *disposition.Writer
	store    storage.TokenStore

	cooldown      *governor.Cooldown
	statsCooldown *governor.Cooldown

	classifyGroupSize int
	sweepPace         time.Duration
	statsPace         time.Duration

	log logrus.FieldLogger
	now func() time.Time

	mu      sync.Mutex
	lastRun *RunSummary
}

// Options for creating Service.
type Options struct {
	Source   CandidateSource           // required
	Enricher *enrichment.Enricher      // required
	Oracle   classifier.Oracle         // nil leaves inserted tokens in status new
	Detailed classifier.DetailedOracle // optional, used by ClassifyOne
	Store    storage.TokenStore        // required

	Cooldown      *governor.Cooldown // gates Run; defaults to governor.DefaultCooldown
	StatsCooldown *governor.Cooldown // gates RefreshStats; defaults to DefaultStatsRefreshWindow

	ClassifyGroupSize int           // oracle calls per concurrent group
	SweepPace         time.Duration // delay between records in sequential sweeps
	StatsPace         time.Duration // delay between stats refresh batches

	Logger logrus.FieldLogger
}

// New creates a new Service.
func New(opts Options) *Service {
	s := &Service{
		source:            opts.Source,
		enricher:          opts.Enricher,
		oracle:            opts.Oracle,
		detailed:          opts.Detailed,
		store:             opts.Store,
		cooldown:          opts.Cooldown,
		statsCooldown:     opts.StatsCooldown,
		classifyGroupSize: opts.ClassifyGroupSize,
		sweepPace:         opts.SweepPace,
		statsPace:         opts.StatsPace,
		log:               observability.OrNop(opts.Logger),
		now:               time.Now,
	}
	s.writer = disposition.New(disposition.Options{Store: opts.Store, Logger: s.log})
	if s.cooldown == nil {
		s.cooldown = governor.NewCooldown(governor.DefaultCooldown)
	}
	if s.statsCooldown == nil {
		s.statsCooldown = governor.NewCooldown(DefaultStatsRefreshWindow)
	}
	if s.classifyGroupSize <= 0 {
		s.classifyGroupSize = DefaultClassifyGroupSize
	}
	if s.sweepPace <= 0 {
		s.sweepPace = DefaultSweepPace
	}
	if s.statsPace <= 0 {
		s.statsPace = DefaultStatsRefreshPace
	}
	return s
}

// Cooldown exposes the run gate, for status reporting.
func (s *Service) Cooldown() *governor.Cooldown {
	return s.cooldown
}

// CheckCooldown reports whether Run would currently be rejected, without claiming the slot.
func (s *Service) CheckCooldown() error {
	return s.cooldown.Check()
}

// LastRun returns a copy of the most recent run summary, or nil.
func (s *Service) LastRun() *RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return nil
	}
	c := *s.lastRun
	return &c
}

func (s *Service) setLastRun(r *RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *r
	s.lastRun = &c
}

// classifyAndDispose classifies tokens in concurrent groups and applies each result.
// Counters are folded after every member has finished.
func (s *Service) classifyAndDispose(ctx context.Context, tokens []*domain.Token) (domain.DispositionSummary, error) {
	type outcome struct {
		result disposition.Outcome
		err    error
	}
	outcomes := make([]outcome, len(tokens))

	err := governor.ForEachGroup(ctx, tokens, s.classifyGroupSize, func(ctx context.Context, i int, t *domain.Token) {
		result := classifier.Classify(ctx, s.oracle, t)
		o, err := s.writer.Apply(ctx, t.CA, result)
		outcomes[i] = outcome{result: o, err: err}
	})

	var summary domain.DispositionSummary
	for i, o := range outcomes {
		if o.result == "" {
			// never started: ctx was cancelled before its group
			continue
		}
		disposition.Record(&summary, tokens[i].CA, o.result, o.err)
	}
	return summary, err
}
