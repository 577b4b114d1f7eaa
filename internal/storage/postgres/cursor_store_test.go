package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

func TestCursorStore_SetAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCursorStore(pool)

	require.NoError(t, store.Set(ctx, &domain.SyncCursor{Provider: "helius", Slot: 12345}))

	got, err := store.Get(ctx, "helius")
	require.NoError(t, err)
	assert.Equal(t, "helius", got.Provider)
	assert.Equal(t, int64(12345), got.Slot)
	assert.NotZero(t, got.UpdatedAt)
}

func TestCursorStore_Advance(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCursorStore(pool)

	require.NoError(t, store.Set(ctx, &domain.SyncCursor{Provider: "helius", Slot: 100}))
	require.NoError(t, store.Set(ctx, &domain.SyncCursor{Provider: "helius", Slot: 200}))

	got, err := store.Get(ctx, "helius")
	require.NoError(t, err)
	assert.Equal(t, int64(200), got.Slot)
}

func TestCursorStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCursorStore(pool)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
