package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holder-rewards/internal/storage"
)

func TestSettingStore_SeededDefaults(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSettingStore(pool)

	// Migrations seed the eligibility defaults
	holdDays, err := store.Get(ctx, storage.SettingMinimumHoldDays)
	require.NoError(t, err)
	assert.Equal(t, "30", holdDays)

	threshold, err := store.Get(ctx, storage.SettingMinimumUSDThreshold)
	require.NoError(t, err)
	assert.Equal(t, "0", threshold)
}

func TestSettingStore_SetAndOverwrite(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSettingStore(pool)

	require.NoError(t, store.Set(ctx, storage.SettingMinimumUSDThreshold, "25"))

	got, err := store.Get(ctx, storage.SettingMinimumUSDThreshold)
	require.NoError(t, err)
	assert.Equal(t, "25", got)
}

func TestSettingStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSettingStore(pool)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
