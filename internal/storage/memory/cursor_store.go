package memory

import (
	"context"
	"sync"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// CursorStore is an in-memory implementation of storage.CursorStore.
type CursorStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SyncCursor // keyed by provider
}

// NewCursorStore creates a new in-memory cursor store.
func NewCursorStore() *CursorStore {
	return &CursorStore{
		data: make(map[string]*domain.SyncCursor),
	}
}

// Get returns the cursor for a provider. Returns ErrNotFound if unset.
func (s *CursorStore) Get(_ context.Context, provider string) (*domain.SyncCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[provider]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cursorCopy := *c
	return &cursorCopy, nil
}

// Set saves the cursor for a provider.
func (s *CursorStore) Set(_ context.Context, c *domain.SyncCursor) error {
	if c == nil || c.Provider == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cursorCopy := *c
	s.data[c.Provider] = &cursorCopy
	return nil
}

// Verify interface compliance at compile time.
var _ storage.CursorStore = (*CursorStore)(nil)
