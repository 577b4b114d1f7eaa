package postgres

import (
	"context"
	"fmt"

	"holder-rewards/internal/storage"
)

// SettingStore implements storage.SettingStore using PostgreSQL.
type SettingStore struct {
	pool *Pool
}

// NewSettingStore creates a new SettingStore.
func NewSettingStore(pool *Pool) *SettingStore {
	return &SettingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SettingStore = (*SettingStore)(nil)

// Get returns the value for a key. Returns ErrNotFound if unset.
func (s *SettingStore) Get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM settings WHERE key = $1`

	var value string
	err := s.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if isNotFoundError(err) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

// Set saves a value for a key, overwriting any existing value.
func (s *SettingStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`

	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}
