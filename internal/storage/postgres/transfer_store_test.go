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

func testTransfer(txHash, wallet, transferType string, slot int64) *domain.TokenTransfer {
	return &domain.TokenTransfer{
		TxHash:        txHash,
		WalletAddress: wallet,
		Type:          transferType,
		Amount:        decimal.NewFromInt(100),
		Slot:          slot,
		Timestamp:     time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestTransferStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransferStore(pool)

	tr := testTransfer("TxHash1", "Wallet1", domain.TransferTypeBuy, 100)
	require.NoError(t, store.Insert(ctx, tr))

	got, err := store.GetByTxHash(ctx, "TxHash1")
	require.NoError(t, err)

	assert.Equal(t, tr.TxHash, got.TxHash)
	assert.Equal(t, tr.WalletAddress, got.WalletAddress)
	assert.Equal(t, domain.TransferTypeBuy, got.Type)
	assert.True(t, got.Amount.Equal(tr.Amount))
	assert.Equal(t, tr.Slot, got.Slot)
	assert.NotZero(t, got.ID)
	assert.NotZero(t, got.CreatedAt)
}

func TestTransferStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransferStore(pool)

	tr := testTransfer("DupTxHash", "Wallet1", domain.TransferTypeBuy, 100)
	require.NoError(t, store.Insert(ctx, tr))

	// Same tx_hash from any wallet is rejected
	dup := testTransfer("DupTxHash", "Wallet2", domain.TransferTypeSell, 101)
	err := store.Insert(ctx, dup)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTransferStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransferStore(pool)

	_, err := store.GetByTxHash(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTransferStore_GetByWalletOrdering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransferStore(pool)

	require.NoError(t, store.Insert(ctx, testTransfer("TxC", "Wallet1", domain.TransferTypeBuy, 300)))
	require.NoError(t, store.Insert(ctx, testTransfer("TxA", "Wallet1", domain.TransferTypeBuy, 100)))
	require.NoError(t, store.Insert(ctx, testTransfer("TxB", "Wallet1", domain.TransferTypeSell, 100)))
	require.NoError(t, store.Insert(ctx, testTransfer("TxOther", "Wallet2", domain.TransferTypeBuy, 50)))

	result, err := store.GetByWallet(ctx, "Wallet1")
	require.NoError(t, err)

	require.Len(t, result, 3)
	assert.Equal(t, "TxA", result[0].TxHash)
	assert.Equal(t, "TxB", result[1].TxHash)
	assert.Equal(t, "TxC", result[2].TxHash)
}
