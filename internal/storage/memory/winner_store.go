package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

type periodKey struct {
	month int
	year  int
}

// WinnerStore is an in-memory implementation of storage.WinnerStore.
type WinnerStore struct {
	mu   sync.RWMutex
	data map[periodKey]*domain.Winner
}

// NewWinnerStore creates a new in-memory winner store.
func NewWinnerStore() *WinnerStore {
	return &WinnerStore{
		data: make(map[periodKey]*domain.Winner),
	}
}

// Insert adds a winner. Returns ErrDuplicateKey if (month, year) exists.
func (s *WinnerStore) Insert(_ context.Context, w *domain.Winner) error {
	if w == nil || w.WalletAddress == "" || w.Month < 1 || w.Month > 12 || w.Year == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := periodKey{w.Month, w.Year}
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	winnerCopy := *w
	s.data[key] = &winnerCopy
	return nil
}

// GetByPeriod retrieves the winner for a period. Returns ErrNotFound if not exists.
func (s *WinnerStore) GetByPeriod(_ context.Context, month, year int) (*domain.Winner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, exists := s.data[periodKey{month, year}]
	if !exists {
		return nil, storage.ErrNotFound
	}

	winnerCopy := *w
	return &winnerCopy, nil
}

// List retrieves all winners, ordered by (year, month) DESC.
func (s *WinnerStore) List(_ context.Context) ([]*domain.Winner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Winner, 0, len(s.data))
	for _, w := range s.data {
		winnerCopy := *w
		result = append(result, &winnerCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Year != result[j].Year {
			return result[i].Year > result[j].Year
		}
		return result[i].Month > result[j].Month
	})

	return result, nil
}

// MarkRewardSent records that the period's reward was paid out.
func (s *WinnerStore) MarkRewardSent(_ context.Context, month, year int, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, exists := s.data[periodKey{month, year}]
	if !exists {
		return storage.ErrNotFound
	}
	w.RewardSent = true
	w.RewardSentAt = &sentAt
	return nil
}

// Verify interface compliance at compile time.
var _ storage.WinnerStore = (*WinnerStore)(nil)
