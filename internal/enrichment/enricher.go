// Package enrichment fills in token metadata from market stats and a secondary
// metadata source before the venue filter runs.
package enrichment

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/discovery"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/observability"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/solana"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/storage"
)

// Metadata lookup outcomes, as reported to metrics.
const (
	lookupFilled = "filled"
	lookupEmpty  = "empty"
	lookupError  = "error"
)

// Enricher turns fresh candidates into tokens ready for routing.
type Enricher struct {
	stats     StatsSource
	metadata  solana.AssetSource
	snapshots storage.StatsSnapshotStore
	chainID   string
	log       logrus.FieldLogger
	now       func() time.Time
}

// Options for creating Enricher.
type Options struct {
	Stats     StatsSource                // required
	Metadata  solana.AssetSource         // optional, nil skips the fallback lookup
	Snapshots storage.StatsSnapshotStore // optional stats history sink
	ChainID   string                     // defaults to discovery.DefaultChainID
	Logger    logrus.FieldLogger
}

// New creates a new Enricher.
func New(opts Options) *Enricher {
	chain := opts.ChainID
	if chain == "" {
		chain = discovery.DefaultChainID
	}
	return &Enricher{
		stats:     opts.Stats,
		metadata:  opts.Metadata,
		snapshots: opts.Snapshots,
		chainID:   chain,
		log:       observability.OrNop(opts.Logger),
		now:       time.Now,
	}
}

// Result is the output of Enrich.
type Result struct {
	Tokens        []*domain.Token // one per input candidate, same order, Status unset
	BatchFailures []BatchFailure
}

// Enrich resolves stats, display name, ticker and venue for every candidate,
// then asks the metadata source about tokens still carrying a sentinel name or ticker.
// Upstream failures degrade the result; only ctx cancellation is returned as an error.
func (e *Enricher) Enrich(ctx context.Context, candidates []domain.Candidate) (*Result, error) {
	result := &Result{Tokens: make([]*domain.Token, 0, len(candidates))}
	if len(candidates) == 0 {
		return result, nil
	}

	stats, failures, err := e.FetchStats(ctx, discovery.Addresses(candidates), 0)
	result.BatchFailures = failures
	if err != nil {
		return nil, err
	}
	e.RecordSnapshots(ctx, stats)

	for _, c := range candidates {
		var s *domain.MarketStats
		if v, ok := stats[c.ContractAddress]; ok {
			s = &v
		}
		result.Tokens = append(result.Tokens, BuildToken(c, s))
	}

	if err := e.fillFromMetadata(ctx, result.Tokens); err != nil {
		return nil, err
	}
	return result, nil
}

// BuildToken merges a candidate with its stats (nil when none were returned).
func BuildToken(c domain.Candidate, s *domain.MarketStats) *domain.Token {
	t := &domain.Token{
		CA:          c.ContractAddress,
		Name:        discovery.ExtractName(c.Description),
		Ticker:      domain.UnknownTicker,
		Description: c.Description,
		ImageURL:    c.Icon,
		Links:       append([]domain.Link(nil), c.Links...),
		VenueID:     discovery.ExtractVenueID(c.URL),
	}
	if c.Symbol != "" {
		t.Ticker = c.Symbol
	}
	if s == nil {
		return t
	}

	if s.DisplayName != "" {
		t.Name = s.DisplayName
	}
	if s.DisplaySymbol != "" {
		t.Ticker = s.DisplaySymbol
	}
	if s.VenueID != "" {
		t.VenueID = s.VenueID
	}
	t.PairCreatedAt = s.PairCreatedAt
	t.Stats = s.TokenStats()
	return t
}

// fillFromMetadata runs the fallback lookup for every token still missing a name or ticker.
// Lookups run in parallel; each one mutates only its own token.
func (e *Enricher) fillFromMetadata(ctx context.Context, tokens []*domain.Token) error {
	if e.metadata == nil {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range tokens {
		if !t.HasUnknownName() && !t.HasUnknownTicker() {
			continue
		}
		t := t
		g.Go(func() error {
			meta, err := e.metadata.GetAsset(gctx, t.CA)
			if err != nil {
				// The fallback is best effort.
				e.log.WithField("ca", t.CA).WithError(err).Debug("metadata lookup failed")
				observability.RecordMetadataLookup(lookupError)
				return nil
			}
			if meta.IsEmpty() {
				observability.RecordMetadataLookup(lookupEmpty)
				return nil
			}
			ApplyMetadata(t, meta)
			observability.RecordMetadataLookup(lookupFilled)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

// ApplyMetadata fills only the fields of t that are still empty or sentinel.
// A website link is added only when t has none.
func ApplyMetadata(t *domain.Token, meta *domain.AssetMetadata) {
	if meta == nil {
		return
	}
	if t.HasUnknownName() && meta.Name != "" {
		t.Name = meta.Name
	}
	if t.HasUnknownTicker() && meta.Symbol != "" {
		t.Ticker = meta.Symbol
	}
	if t.Description == "" && meta.Description != "" {
		t.Description = meta.Description
	}
	if t.ImageURL == "" && meta.ImageURL != "" {
		t.ImageURL = meta.ImageURL
	}
	if meta.ExternalURL != "" && !t.HasLinkType(domain.LinkTypeWebsite) {
		t.Links = append(t.Links, domain.Link{Type: domain.LinkTypeWebsite, URL: meta.ExternalURL})
	}
}
