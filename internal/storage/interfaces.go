package storage

import (
	"context"
	"time"

	"holder-rewards/internal/domain"
)

// HolderStore provides access to holders storage. Wallet address is the
// logical key; rows are mutated in place as transfers and snapshots arrive.
type HolderStore interface {
	// Upsert inserts a holder or updates the existing row for the wallet.
	Upsert(ctx context.Context, h *domain.Holder) error

	// GetByWallet retrieves a holder by wallet address. Returns ErrNotFound if not exists.
	GetByWallet(ctx context.Context, wallet string) (*domain.Holder, error)

	// List retrieves all holders, ordered by wallet address ASC.
	List(ctx context.Context) ([]*domain.Holder, error)

	// ListEligible retrieves holders with IsEligible=true and a positive
	// balance, ordered by wallet address ASC.
	ListEligible(ctx context.Context) ([]*domain.Holder, error)

	// SetEligibility flips the eligibility flag for a wallet.
	// Returns ErrNotFound if the wallet is not tracked.
	SetEligibility(ctx context.Context, wallet string, eligible bool) error
}

// TransferStore provides access to transfers storage. Rows are insert-only;
// tx_hash is globally unique and carries the ingestion idempotency guarantee.
type TransferStore interface {
	// Insert adds a new transfer. Returns ErrDuplicateKey if tx_hash exists.
	Insert(ctx context.Context, t *domain.TokenTransfer) error

	// GetByTxHash retrieves a transfer by hash. Returns ErrNotFound if not exists.
	GetByTxHash(ctx context.Context, txHash string) (*domain.TokenTransfer, error)

	// GetByWallet retrieves all transfers for a wallet, ordered by (slot, tx_hash) ASC.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.TokenTransfer, error)
}

// SnapshotStore provides access to snapshots storage. Unique on
// (wallet, snapshot_date); re-running a day's snapshot overwrites.
type SnapshotStore interface {
	// Upsert inserts or replaces the snapshot row for (wallet, snapshot date).
	Upsert(ctx context.Context, s *domain.Snapshot) error

	// GetByWalletAndDate retrieves one snapshot. Returns ErrNotFound if not exists.
	GetByWalletAndDate(ctx context.Context, wallet string, date time.Time) (*domain.Snapshot, error)

	// GetByDate retrieves all snapshots for a date, ordered by wallet ASC.
	GetByDate(ctx context.Context, date time.Time) ([]*domain.Snapshot, error)

	// DeleteOlderThan removes snapshots with snapshot_date before cutoff.
	// Returns the number of rows removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// WinnerStore provides access to winners storage. Unique on (month, year):
// at most one winner per period, enforced at the storage layer.
type WinnerStore interface {
	// Insert adds a winner. Returns ErrDuplicateKey if (month, year) exists.
	Insert(ctx context.Context, w *domain.Winner) error

	// GetByPeriod retrieves the winner for a period. Returns ErrNotFound if not exists.
	GetByPeriod(ctx context.Context, month, year int) (*domain.Winner, error)

	// List retrieves all winners, ordered by (year, month) DESC.
	List(ctx context.Context) ([]*domain.Winner, error)

	// MarkRewardSent records that the period's reward was paid out.
	// Returns ErrNotFound if no winner exists for the period.
	MarkRewardSent(ctx context.Context, month, year int, sentAt time.Time) error
}

// SnapshotArchiveStore provides long-term archive storage for snapshots.
// Writes are best-effort from the caller's point of view: archive failures
// must not block the primary snapshot path.
type SnapshotArchiveStore interface {
	// ArchiveBulk appends snapshot rows to the archive.
	ArchiveBulk(ctx context.Context, snaps []*domain.ArchivedSnapshot) error

	// GetByDateRange retrieves archived rows with snapshot_date within
	// [start, end] (inclusive), ordered by (snapshot_date, wallet) ASC.
	GetByDateRange(ctx context.Context, start, end time.Time) ([]*domain.ArchivedSnapshot, error)
}

// CursorStore provides persistence for transfer ingestion progress.
// This enables resumption after restarts without reprocessing transfers.
type CursorStore interface {
	// Get returns the cursor for a provider. Returns ErrNotFound if no
	// progress has been saved yet.
	Get(ctx context.Context, provider string) (*domain.SyncCursor, error)

	// Set saves the cursor for a provider.
	Set(ctx context.Context, c *domain.SyncCursor) error
}
