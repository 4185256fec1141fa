package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Token // keyed by ca
	seq  map[string]int           // insertion order, breaks created_at ties
	next int
	now  func() time.Time
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.Token),
		seq:  make(map[string]int),
		now:  time.Now,
	}
}

// InsertBatch adds new tokens. Existing cas are left untouched.
func (s *TokenStore) InsertBatch(_ context.Context, tokens []*domain.Token) (int, error) {
	for _, t := range tokens {
		if t == nil || t.CA == "" || !t.Status.IsValid() {
			return 0, storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nowMs := s.now().UnixMilli()
	inserted := 0
	for _, t := range tokens {
		if _, exists := s.data[t.CA]; exists {
			continue
		}
		c := t.Clone()
		if c.CreatedAt == 0 {
			c.CreatedAt = nowMs
		}
		c.UpdatedAt = nowMs
		s.data[c.CA] = c
		s.seq[c.CA] = s.next
		s.next++
		inserted++
	}
	return inserted, nil
}

// ExistingAddresses returns the subset of cas already stored.
func (s *TokenStore) ExistingAddresses(_ context.Context, cas []string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	known := make(map[string]struct{})
	for _, ca := range cas {
		if _, exists := s.data[ca]; exists {
			known[ca] = struct{}{}
		}
	}
	return known, nil
}

// Get retrieves a token by ca. Returns ErrNotFound if not exists.
func (s *TokenStore) Get(_ context.Context, ca string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[ca]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return t.Clone(), nil
}

// List returns one page of tokens matching the filter and the total match count.
func (s *TokenStore) List(_ context.Context, filter storage.ListFilter) ([]*domain.Token, int, error) {
	if err := filter.Normalize(); err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.Token
	for _, t := range s.data {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		matched = append(matched, t)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return s.less(matched[i], matched[j], filter.SortBy, filter.Ascending)
	})

	total := len(matched)
	if filter.Offset >= total {
		return []*domain.Token{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}

	page := make([]*domain.Token, 0, end-filter.Offset)
	for _, t := range matched[filter.Offset:end] {
		page = append(page, t.Clone())
	}
	return page, total, nil
}

// less orders two tokens by the given column. Nulls sort last in both directions.
func (s *TokenStore) less(a, b *domain.Token, sortBy string, asc bool) bool {
	var cmp int
	switch sortBy {
	case storage.SortName:
		cmp = strings.Compare(a.Name, b.Name)
	case storage.SortTicker:
		cmp = strings.Compare(a.Ticker, b.Ticker)
	case storage.SortPairCreatedAt:
		switch {
		case a.PairCreatedAt == nil && b.PairCreatedAt == nil:
			cmp = 0
		case a.PairCreatedAt == nil:
			return false
		case b.PairCreatedAt == nil:
			return true
		default:
			cmp = compareInt64(*a.PairCreatedAt, *b.PairCreatedAt)
		}
	default:
		cmp = compareInt64(a.CreatedAt, b.CreatedAt)
		if cmp == 0 {
			cmp = s.seq[a.CA] - s.seq[b.CA]
		}
	}
	if cmp == 0 {
		cmp = strings.Compare(a.CA, b.CA)
	}
	if asc {
		return cmp < 0
	}
	return cmp > 0
}

// ListByStatus returns up to limit tokens with the given status, oldest first.
func (s *TokenStore) ListByStatus(_ context.Context, status domain.Status, limit int) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Token
	for _, t := range s.data {
		if t.Status == status {
			result = append(result, t)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return s.less(result[i], result[j], storage.SortCreatedAt, true)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	out := make([]*domain.Token, len(result))
	for i, t := range result {
		out[i] = t.Clone()
	}
	return out, nil
}

// UpdateDisposition moves a token out of status new and stores the analysis.
func (s *TokenStore) UpdateDisposition(_ context.Context, ca string, status domain.Status, analysis domain.ClassificationResult, analyzedAt int64) (int64, error) {
	if !status.IsTerminal() {
		return 0, storage.ErrInvalidTransition
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[ca]
	if !exists || t.Status != domain.StatusNew {
		return 0, nil
	}

	a := analysis.Clone()
	t.Status = status
	t.Analysis = &a
	t.AnalyzedAt = &analyzedAt
	t.UpdatedAt = s.now().UnixMilli()
	return 1, nil
}

// UpdateStatus sets the status from an operator command.
func (s *TokenStore) UpdateStatus(_ context.Context, ca string, status domain.Status) error {
	if !status.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[ca]
	if !exists {
		return storage.ErrNotFound
	}
	if status == domain.StatusNew && t.Status != domain.StatusNew {
		return storage.ErrInvalidTransition
	}

	t.Status = status
	t.UpdatedAt = s.now().UnixMilli()
	return nil
}

// UpdateMarketData refreshes stats, venue and pair creation time for a token.
func (s *TokenStore) UpdateMarketData(_ context.Context, ca string, update storage.MarketDataUpdate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[ca]
	if !exists {
		return 0, nil
	}

	t.Stats = update.Stats
	if update.VenueID != "" {
		t.VenueID = update.VenueID
	}
	if update.PairCreatedAt != nil {
		v := *update.PairCreatedAt
		t.PairCreatedAt = &v
	}
	t.UpdatedAt = s.now().UnixMilli()
	return 1, nil
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Verify interface compliance at compile time.
var _ storage.TokenStore = (*TokenStore)(nil)
