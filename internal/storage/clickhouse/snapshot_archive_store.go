package clickhouse

import (
	"context"
	"fmt"
	"time"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// SnapshotArchiveStore implements storage.SnapshotArchiveStore using
// ClickHouse. The ReplacingMergeTree collapses re-archived (date, wallet)
// rows on merge, so replays are harmless.
type SnapshotArchiveStore struct {
	conn *Conn
}

// NewSnapshotArchiveStore creates a new SnapshotArchiveStore.
func NewSnapshotArchiveStore(conn *Conn) *SnapshotArchiveStore {
	return &SnapshotArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotArchiveStore = (*SnapshotArchiveStore)(nil)

// ArchiveBulk appends snapshot rows to the archive.
func (s *SnapshotArchiveStore) ArchiveBulk(ctx context.Context, snaps []*domain.ArchivedSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO snapshot_archive (
			wallet_address, snapshot_date, balance, usd_value, days_held, is_eligible
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snaps {
		eligible := uint8(0)
		if snap.IsEligible {
			eligible = 1
		}
		err = batch.Append(
			snap.WalletAddress, snap.SnapshotDate, snap.Balance,
			snap.USDValue, uint32(snap.DaysHeld), eligible,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByDateRange retrieves archived rows with snapshot_date within
// [start, end] (inclusive), ordered by (snapshot_date, wallet) ASC.
func (s *SnapshotArchiveStore) GetByDateRange(ctx context.Context, start, end time.Time) ([]*domain.ArchivedSnapshot, error) {
	query := `
		SELECT wallet_address, snapshot_date, balance, usd_value, days_held, is_eligible
		FROM snapshot_archive FINAL
		WHERE snapshot_date >= ? AND snapshot_date <= ?
		ORDER BY snapshot_date ASC, wallet_address ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query archive by date range: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.ArchivedSnapshot
	for rows.Next() {
		var snap domain.ArchivedSnapshot
		var daysHeld uint32
		var eligible uint8

		err := rows.Scan(
			&snap.WalletAddress, &snap.SnapshotDate, &snap.Balance,
			&snap.USDValue, &daysHeld, &eligible,
		)
		if err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}

		snap.DaysHeld = int(daysHeld)
		snap.IsEligible = eligible != 0
		snaps = append(snaps, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive rows: %w", err)
	}

	return snaps, nil
}
