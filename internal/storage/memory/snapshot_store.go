package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

type snapshotKey struct {
	wallet string
	date   string // YYYY-MM-DD
}

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[snapshotKey]*domain.Snapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[snapshotKey]*domain.Snapshot),
	}
}

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Upsert inserts or replaces the snapshot row for (wallet, snapshot date).
func (s *SnapshotStore) Upsert(_ context.Context, snap *domain.Snapshot) error {
	if snap == nil || snap.WalletAddress == "" || snap.SnapshotDate.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapCopy := *snap
	s.data[snapshotKey{snap.WalletAddress, dateKey(snap.SnapshotDate)}] = &snapCopy
	return nil
}

// GetByWalletAndDate retrieves one snapshot. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByWalletAndDate(_ context.Context, wallet string, date time.Time) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.data[snapshotKey{wallet, dateKey(date)}]
	if !exists {
		return nil, storage.ErrNotFound
	}

	snapCopy := *snap
	return &snapCopy, nil
}

// GetByDate retrieves all snapshots for a date, ordered by wallet ASC.
func (s *SnapshotStore) GetByDate(_ context.Context, date time.Time) ([]*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := dateKey(date)
	var result []*domain.Snapshot
	for k, snap := range s.data {
		if k.date == key {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].WalletAddress < result[j].WalletAddress
	})

	return result, nil
}

// DeleteOlderThan removes snapshots with snapshot_date before cutoff.
func (s *SnapshotStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoffKey := dateKey(cutoff)
	var removed int64
	for k := range s.data {
		if k.date < cutoffKey {
			delete(s.data, k)
			removed++
		}
	}
	return removed, nil
}

// Verify interface compliance at compile time.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)
