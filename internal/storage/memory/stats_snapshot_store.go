package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/storage"
)

// StatsSnapshotStore is an in-memory implementation of storage.StatsSnapshotStore.
type StatsSnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.StatsSnapshot // keyed by ca
}

// NewStatsSnapshotStore creates a new in-memory stats snapshot store.
func NewStatsSnapshotStore() *StatsSnapshotStore {
	return &StatsSnapshotStore{
		data: make(map[string][]*domain.StatsSnapshot),
	}
}

// InsertBulk appends snapshots.
func (s *StatsSnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.StatsSnapshot) error {
	for _, snap := range snapshots {
		if snap == nil || snap.CA == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snapshots {
		c := *snap
		s.data[snap.CA] = append(s.data[snap.CA], &c)
	}
	return nil
}

// GetByCA retrieves the history for a token, ordered by timestamp ASC.
func (s *StatsSnapshotStore) GetByCA(ctx context.Context, ca string) ([]*domain.StatsSnapshot, error) {
	return s.GetByTimeRange(ctx, ca, 0, int64(^uint64(0)>>1))
}

// GetByTimeRange retrieves snapshots for a token within [start, end] (inclusive).
func (s *StatsSnapshotStore) GetByTimeRange(_ context.Context, ca string, start, end int64) ([]*domain.StatsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StatsSnapshot
	for _, snap := range s.data[ca] {
		if snap.TimestampMs >= start && snap.TimestampMs <= end {
			c := *snap
			result = append(result, &c)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.StatsSnapshotStore = (*StatsSnapshotStore)(nil)
