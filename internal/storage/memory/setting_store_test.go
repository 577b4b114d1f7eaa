package memory

import (
	"context"
	"errors"
	"testing"

	"holder-rewards/internal/storage"
)

func TestSettingStore_SetAndGet(t *testing.T) {
	store := NewSettingStore()
	ctx := context.Background()

	if err := store.Set(ctx, storage.SettingMinimumHoldDays, "30"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(ctx, storage.SettingMinimumHoldDays)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "30" {
		t.Errorf("Value mismatch: got %s, want 30", got)
	}
}

func TestSettingStore_Overwrite(t *testing.T) {
	store := NewSettingStore()
	ctx := context.Background()

	if err := store.Set(ctx, storage.SettingMinimumUSDThreshold, "10"); err != nil {
		t.Fatalf("First set failed: %v", err)
	}
	if err := store.Set(ctx, storage.SettingMinimumUSDThreshold, "25"); err != nil {
		t.Fatalf("Second set failed: %v", err)
	}

	got, _ := store.Get(ctx, storage.SettingMinimumUSDThreshold)
	if got != "25" {
		t.Errorf("Value mismatch after overwrite: got %s, want 25", got)
	}
}

func TestSettingStore_NotFound(t *testing.T) {
	store := NewSettingStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSettingStore_EmptyKey(t *testing.T) {
	store := NewSettingStore()
	ctx := context.Background()

	if err := store.Set(ctx, "", "v"); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty key, got %v", err)
	}
}
