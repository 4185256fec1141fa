// Package discovery turns the upstream profiles feed into candidates and
// separates them from addresses already in the store.
package discovery

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/dexscreener"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/observability"
)

// DefaultChainID is the network candidates are kept for.
const DefaultChainID = "solana"

// ProfileSource provides the raw discovery feed.
type ProfileSource interface {
	LatestProfiles(ctx context.Context) ([]dexscreener.Profile, error)
}

// Adapter maps feed profiles to candidates for one chain.
type Adapter struct {
	source  ProfileSource
	chainID string
	log     logrus.FieldLogger
}

// Options for creating Adapter.
type Options struct {
	Source  ProfileSource
	ChainID string // defaults to DefaultChainID
	Logger  logrus.FieldLogger
}

// NewAdapter creates a new Adapter.
func NewAdapter(opts Options) *Adapter {
	chain := opts.ChainID
	if chain == "" {
		chain = DefaultChainID
	}
	return &Adapter{
		source:  opts.Source,
		chainID: chain,
		log:     observability.OrNop(opts.Logger),
	}
}

// ChainID returns the chain this adapter keeps.
func (a *Adapter) ChainID() string {
	return a.chainID
}

// FetchLatestCandidates reads the feed and returns candidates for the target chain,
// in feed order. Profiles for other chains or without an address are dropped;
// a repeated address keeps its first occurrence. A feed failure is returned as is.
func (a *Adapter) FetchLatestCandidates(ctx context.Context) ([]domain.Candidate, error) {
	profiles, err := a.source.LatestProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch latest profiles: %w", err)
	}

	seen := make(map[string]struct{}, len(profiles))
	candidates := make([]domain.Candidate, 0, len(profiles))
	var otherChain int
	for _, p := range profiles {
		if p.ChainID != a.chainID {
			otherChain++
			continue
		}
		if p.TokenAddress == "" {
			continue
		}
		if _, dup := seen[p.TokenAddress]; dup {
			continue
		}
		seen[p.TokenAddress] = struct{}{}
		candidates = append(candidates, domain.Candidate{
			ChainID:         p.ChainID,
			ContractAddress: p.TokenAddress,
			Description:     p.Description,
			Icon:            p.Icon,
			Links:           NormalizeLinks(p),
			Symbol:          p.Symbol,
			URL:             p.URL,
		})
	}

	a.log.WithFields(logrus.Fields{
		"profiles":    len(profiles),
		"candidates":  len(candidates),
		"other_chain": otherChain,
	}).Debug("discovery feed read")

	return candidates, nil
}
