package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

func testHolder(wallet string) *domain.Holder {
	return &domain.Holder{
		WalletAddress:    wallet,
		CurrentBalance:   decimal.NewFromInt(1000),
		TotalBought:      decimal.NewFromInt(1500),
		TotalSold:        decimal.NewFromInt(500),
		USDValue:         decimal.NewFromFloat(42.5),
		FirstSeenDate:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		LastActivityDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		IsEligible:       true,
	}
}

func TestHolderStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewHolderStore(pool)

	h := testHolder("HolderWallet1")
	require.NoError(t, store.Upsert(ctx, h))

	got, err := store.GetByWallet(ctx, "HolderWallet1")
	require.NoError(t, err)

	assert.Equal(t, h.WalletAddress, got.WalletAddress)
	assert.True(t, got.CurrentBalance.Equal(h.CurrentBalance), "balance: got %s", got.CurrentBalance)
	assert.True(t, got.TotalBought.Equal(h.TotalBought))
	assert.True(t, got.TotalSold.Equal(h.TotalSold))
	assert.True(t, got.USDValue.Equal(h.USDValue))
	assert.True(t, got.FirstSeenDate.Equal(h.FirstSeenDate))
	assert.True(t, got.IsEligible)
	assert.NotZero(t, got.ID)
	assert.NotZero(t, got.CreatedAt)
}

func TestHolderStore_UpsertUpdatesExisting(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewHolderStore(pool)

	h := testHolder("HolderWallet2")
	require.NoError(t, store.Upsert(ctx, h))

	h.CurrentBalance = decimal.NewFromInt(250)
	h.IsEligible = false
	require.NoError(t, store.Upsert(ctx, h))

	got, err := store.GetByWallet(ctx, "HolderWallet2")
	require.NoError(t, err)
	assert.True(t, got.CurrentBalance.Equal(decimal.NewFromInt(250)))
	assert.False(t, got.IsEligible)

	// Still a single row
	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestHolderStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewHolderStore(pool)

	_, err := store.GetByWallet(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestHolderStore_ListEligible(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewHolderStore(pool)

	eligible := testHolder("AWallet")
	require.NoError(t, store.Upsert(ctx, eligible))

	revoked := testHolder("BWallet")
	revoked.IsEligible = false
	require.NoError(t, store.Upsert(ctx, revoked))

	soldOut := testHolder("CWallet")
	soldOut.CurrentBalance = decimal.Zero
	require.NoError(t, store.Upsert(ctx, soldOut))

	result, err := store.ListEligible(ctx)
	require.NoError(t, err)

	require.Len(t, result, 1)
	assert.Equal(t, "AWallet", result[0].WalletAddress)
}

func TestHolderStore_SetEligibility(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewHolderStore(pool)

	require.NoError(t, store.Upsert(ctx, testHolder("HolderWallet3")))

	require.NoError(t, store.SetEligibility(ctx, "HolderWallet3", false))

	got, err := store.GetByWallet(ctx, "HolderWallet3")
	require.NoError(t, err)
	assert.False(t, got.IsEligible)

	err = store.SetEligibility(ctx, "missing", true)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
