package memory

import (
	"context"
	"sync"

	"holder-rewards/internal/storage"
)

// SettingStore is an in-memory implementation of storage.SettingStore.
type SettingStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewSettingStore creates a new in-memory setting store.
func NewSettingStore() *SettingStore {
	return &SettingStore{
		data: make(map[string]string),
	}
}

// Get returns the value for a key. Returns ErrNotFound if unset.
func (s *SettingStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.data[key]
	if !exists {
		return "", storage.ErrNotFound
	}
	return v, nil
}

// Set saves a value for a key, overwriting any existing value.
func (s *SettingStore) Set(_ context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return nil
}

// Verify interface compliance at compile time.
var _ storage.SettingStore = (*SettingStore)(nil)
