package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// SnapshotArchiveStore is an in-memory implementation of
// storage.SnapshotArchiveStore. Later archives of the same (wallet, date)
// replace earlier ones, mirroring the ReplacingMergeTree behavior.
type SnapshotArchiveStore struct {
	mu   sync.RWMutex
	data map[snapshotKey]*domain.ArchivedSnapshot
}

// NewSnapshotArchiveStore creates a new in-memory snapshot archive store.
func NewSnapshotArchiveStore() *SnapshotArchiveStore {
	return &SnapshotArchiveStore{
		data: make(map[snapshotKey]*domain.ArchivedSnapshot),
	}
}

// ArchiveBulk appends snapshot rows to the archive.
func (s *SnapshotArchiveStore) ArchiveBulk(_ context.Context, snaps []*domain.ArchivedSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snaps {
		if snap == nil || snap.WalletAddress == "" || snap.SnapshotDate.IsZero() {
			return storage.ErrInvalidInput
		}
		snapCopy := *snap
		s.data[snapshotKey{snap.WalletAddress, dateKey(snap.SnapshotDate)}] = &snapCopy
	}
	return nil
}

// GetByDateRange retrieves archived rows within [start, end] inclusive,
// ordered by (snapshot_date, wallet) ASC.
func (s *SnapshotArchiveStore) GetByDateRange(_ context.Context, start, end time.Time) ([]*domain.ArchivedSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	startKey, endKey := dateKey(start), dateKey(end)
	var result []*domain.ArchivedSnapshot
	for k, snap := range s.data {
		if k.date >= startKey && k.date <= endKey {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		di, dj := dateKey(result[i].SnapshotDate), dateKey(result[j].SnapshotDate)
		if di != dj {
			return di < dj
		}
		return result[i].WalletAddress < result[j].WalletAddress
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.SnapshotArchiveStore = (*SnapshotArchiveStore)(nil)
