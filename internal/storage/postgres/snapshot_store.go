package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

const snapshotColumns = `
	id, wallet_address, snapshot_date, balance, usd_value, days_held, created_at
`

// Upsert inserts or replaces the snapshot row for (wallet, snapshot date).
func (s *SnapshotStore) Upsert(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil || snap.WalletAddress == "" || snap.SnapshotDate.IsZero() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO snapshots (wallet_address, snapshot_date, balance, usd_value, days_held)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (wallet_address, snapshot_date) DO UPDATE SET
			balance = EXCLUDED.balance,
			usd_value = EXCLUDED.usd_value,
			days_held = EXCLUDED.days_held
	`

	_, err := s.pool.Exec(ctx, query,
		snap.WalletAddress,
		snap.SnapshotDate,
		snap.Balance,
		snap.USDValue,
		snap.DaysHeld,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// GetByWalletAndDate retrieves one snapshot. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByWalletAndDate(ctx context.Context, wallet string, date time.Time) (*domain.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE wallet_address = $1 AND snapshot_date = $2`

	var snap domain.Snapshot
	err := s.pool.QueryRow(ctx, query, wallet, date).Scan(
		&snap.ID,
		&snap.WalletAddress,
		&snap.SnapshotDate,
		&snap.Balance,
		&snap.USDValue,
		&snap.DaysHeld,
		&snap.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return &snap, nil
}

// GetByDate retrieves all snapshots for a date, ordered by wallet ASC.
func (s *SnapshotStore) GetByDate(ctx context.Context, date time.Time) ([]*domain.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM snapshots
		WHERE snapshot_date = $1
		ORDER BY wallet_address ASC
	`

	rows, err := s.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("get snapshots by date: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// DeleteOlderThan removes snapshots with snapshot_date before cutoff.
func (s *SnapshotStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM snapshots WHERE snapshot_date < $1`

	tag, err := s.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanSnapshots scans multiple rows into a slice of Snapshot.
func scanSnapshots(rows pgx.Rows) ([]*domain.Snapshot, error) {
	var snaps []*domain.Snapshot

	for rows.Next() {
		var snap domain.Snapshot

		err := rows.Scan(
			&snap.ID,
			&snap.WalletAddress,
			&snap.SnapshotDate,
			&snap.Balance,
			&snap.USDValue,
			&snap.DaysHeld,
			&snap.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		snaps = append(snaps, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snaps, nil
}
