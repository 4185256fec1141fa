// Package stub provides an in-memory solana.AssetSource for tests.
package stub

import (
	"context"
	"sync"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/solana"
)

// AssetSource implements solana.AssetSource from a fixed map.
type AssetSource struct {
	mu     sync.Mutex
	Assets map[string]*domain.AssetMetadata
	Errors map[string]error
	calls  []string
}

var _ solana.AssetSource = (*AssetSource)(nil)

// NewAssetSource creates an empty stub.
func NewAssetSource() *AssetSource {
	return &AssetSource{
		Assets: make(map[string]*domain.AssetMetadata),
		Errors: make(map[string]error),
	}
}

// GetAsset returns the configured metadata or error for address.
func (s *AssetSource) GetAsset(_ context.Context, address string) (*domain.AssetMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, address)
	if err, ok := s.Errors[address]; ok {
		return nil, err
	}
	meta, ok := s.Assets[address]
	if !ok {
		return nil, nil
	}
	c := *meta
	return &c, nil
}

// Calls returns the addresses looked up so far.
func (s *AssetSource) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}
