package memory

import (
	"context"
	"sort"
	"sync"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// HolderStore is an in-memory implementation of storage.HolderStore.
type HolderStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Holder // keyed by wallet address
}

// NewHolderStore creates a new in-memory holder store.
func NewHolderStore() *HolderStore {
	return &HolderStore{
		data: make(map[string]*domain.Holder),
	}
}

// Upsert inserts a holder or updates the existing row for the wallet.
func (s *HolderStore) Upsert(_ context.Context, h *domain.Holder) error {
	if h == nil || h.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to prevent external mutation
	holderCopy := *h
	s.data[h.WalletAddress] = &holderCopy
	return nil
}

// GetByWallet retrieves a holder by wallet address. Returns ErrNotFound if not exists.
func (s *HolderStore) GetByWallet(_ context.Context, wallet string) (*domain.Holder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.data[wallet]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy
	holderCopy := *h
	return &holderCopy, nil
}

// List retrieves all holders, ordered by wallet address ASC.
func (s *HolderStore) List(_ context.Context) ([]*domain.Holder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Holder, 0, len(s.data))
	for _, h := range s.data {
		holderCopy := *h
		result = append(result, &holderCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].WalletAddress < result[j].WalletAddress
	})

	return result, nil
}

// ListEligible retrieves eligible holders with a positive balance, ordered by wallet ASC.
func (s *HolderStore) ListEligible(_ context.Context) ([]*domain.Holder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Holder
	for _, h := range s.data {
		if h.IsEligible && h.CurrentBalance.IsPositive() {
			holderCopy := *h
			result = append(result, &holderCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].WalletAddress < result[j].WalletAddress
	})

	return result, nil
}

// SetEligibility flips the eligibility flag for a wallet.
func (s *HolderStore) SetEligibility(_ context.Context, wallet string, eligible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, exists := s.data[wallet]
	if !exists {
		return storage.ErrNotFound
	}
	h.IsEligible = eligible
	return nil
}

// Verify interface compliance at compile time.
var _ storage.HolderStore = (*HolderStore)(nil)
