package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

func TestTransferStore_InsertAndGet(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	tr := &domain.TokenTransfer{
		TxHash:        "hash1",
		WalletAddress: "wallet1",
		Type:          domain.TransferTypeBuy,
		Amount:        decimal.NewFromInt(500),
		Slot:          100,
		Timestamp:     time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	if err := store.Insert(ctx, tr); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByTxHash(ctx, "hash1")
	if err != nil {
		t.Fatalf("GetByTxHash failed: %v", err)
	}
	if got.Type != domain.TransferTypeBuy {
		t.Errorf("Type mismatch: got %s, want buy", got.Type)
	}
	if !got.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Amount mismatch: got %s, want 500", got.Amount)
	}
}

func TestTransferStore_DuplicateKey(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	tr := &domain.TokenTransfer{TxHash: "hash1", WalletAddress: "wallet1", Type: domain.TransferTypeBuy, Amount: decimal.NewFromInt(1)}
	if err := store.Insert(ctx, tr); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, tr)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTransferStore_NotFound(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	_, err := store.GetByTxHash(ctx, "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTransferStore_GetByWalletOrdering(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	transfers := []*domain.TokenTransfer{
		{TxHash: "h3", WalletAddress: "w1", Type: domain.TransferTypeBuy, Amount: decimal.NewFromInt(1), Slot: 200},
		{TxHash: "h1", WalletAddress: "w1", Type: domain.TransferTypeBuy, Amount: decimal.NewFromInt(1), Slot: 100},
		{TxHash: "h2", WalletAddress: "w1", Type: domain.TransferTypeSell, Amount: decimal.NewFromInt(1), Slot: 100},
		{TxHash: "h4", WalletAddress: "w2", Type: domain.TransferTypeBuy, Amount: decimal.NewFromInt(1), Slot: 50},
	}
	for _, tr := range transfers {
		if err := store.Insert(ctx, tr); err != nil {
			t.Fatalf("Insert %s failed: %v", tr.TxHash, err)
		}
	}

	result, err := store.GetByWallet(ctx, "w1")
	if err != nil {
		t.Fatalf("GetByWallet failed: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("Expected 3 transfers, got %d", len(result))
	}
	for i, want := range []string{"h1", "h2", "h3"} {
		if result[i].TxHash != want {
			t.Errorf("Position %d: got %s, want %s", i, result[i].TxHash, want)
		}
	}
}

func TestTransferStore_InvalidInput(t *testing.T) {
	store := NewTransferStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.TokenTransfer{WalletAddress: "w1"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for missing tx_hash, got %v", err)
	}
}
