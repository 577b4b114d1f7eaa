package postgres

import (
	"context"
	"fmt"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// CursorStore implements storage.CursorStore using PostgreSQL.
type CursorStore struct {
	pool *Pool
}

// NewCursorStore creates a new CursorStore.
func NewCursorStore(pool *Pool) *CursorStore {
	return &CursorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CursorStore = (*CursorStore)(nil)

// Get returns the cursor for a provider. Returns ErrNotFound if unset.
func (s *CursorStore) Get(ctx context.Context, provider string) (*domain.SyncCursor, error) {
	query := `SELECT provider, slot, updated_at FROM sync_cursors WHERE provider = $1`

	var c domain.SyncCursor
	err := s.pool.QueryRow(ctx, query, provider).Scan(&c.Provider, &c.Slot, &c.UpdatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get sync cursor: %w", err)
	}
	return &c, nil
}

// Set saves the cursor for a provider.
func (s *CursorStore) Set(ctx context.Context, c *domain.SyncCursor) error {
	if c == nil || c.Provider == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO sync_cursors (provider, slot)
		VALUES ($1, $2)
		ON CONFLICT (provider) DO UPDATE SET
			slot = EXCLUDED.slot,
			updated_at = NOW()
	`

	if _, err := s.pool.Exec(ctx, query, c.Provider, c.Slot); err != nil {
		return fmt.Errorf("set sync cursor: %w", err)
	}
	return nil
}
