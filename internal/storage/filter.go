package storage

import (
	"fmt"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
)

// Sort columns accepted by List.
const (
	SortCreatedAt     = "created_at"
	SortPairCreatedAt = "pair_created_at"
	SortName          = "name"
	SortTicker        = "ticker"
)

// Listing limits.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ListFilter selects one page of tokens.
type ListFilter struct {
	Status    *domain.Status // nil selects every status
	Limit     int
	Offset    int
	SortBy    string
	Ascending bool
}

// Normalize applies defaults and validates the filter.
func (f *ListFilter) Normalize() error {
	if f.Status != nil && !f.Status.IsValid() {
		return fmt.Errorf("%w: status %q", ErrInvalidInput, *f.Status)
	}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	switch f.SortBy {
	case "":
		f.SortBy = SortCreatedAt
	case SortCreatedAt, SortPairCreatedAt, SortName, SortTicker:
	default:
		return fmt.Errorf("%w: sort column %q", ErrInvalidInput, f.SortBy)
	}
	return nil
}
