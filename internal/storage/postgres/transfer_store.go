package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// TransferStore implements storage.TransferStore using PostgreSQL.
type TransferStore struct {
	pool *Pool
}

// NewTransferStore creates a new TransferStore.
func NewTransferStore(pool *Pool) *TransferStore {
	return &TransferStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

const transferColumns = `
	id, tx_hash, wallet_address, type, amount, slot, timestamp, created_at
`

// Insert adds a new transfer. Returns ErrDuplicateKey if tx_hash exists.
func (s *TransferStore) Insert(ctx context.Context, t *domain.TokenTransfer) error {
	if t == nil || t.TxHash == "" || t.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO transfers (tx_hash, wallet_address, type, amount, slot, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TxHash,
		t.WalletAddress,
		t.Type,
		t.Amount,
		t.Slot,
		t.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// GetByTxHash retrieves a transfer by hash. Returns ErrNotFound if not exists.
func (s *TransferStore) GetByTxHash(ctx context.Context, txHash string) (*domain.TokenTransfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE tx_hash = $1`

	var t domain.TokenTransfer
	err := s.pool.QueryRow(ctx, query, txHash).Scan(
		&t.ID,
		&t.TxHash,
		&t.WalletAddress,
		&t.Type,
		&t.Amount,
		&t.Slot,
		&t.Timestamp,
		&t.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transfer by tx hash: %w", err)
	}
	return &t, nil
}

// GetByWallet retrieves all transfers for a wallet, ordered by (slot, tx_hash) ASC.
func (s *TransferStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.TokenTransfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE wallet_address = $1
		ORDER BY slot ASC, tx_hash ASC
	`

	rows, err := s.pool.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("get transfers by wallet: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// scanTransfers scans multiple rows into a slice of TokenTransfer.
func scanTransfers(rows pgx.Rows) ([]*domain.TokenTransfer, error) {
	var transfers []*domain.TokenTransfer

	for rows.Next() {
		var t domain.TokenTransfer

		err := rows.Scan(
			&t.ID,
			&t.TxHash,
			&t.WalletAddress,
			&t.Type,
			&t.Amount,
			&t.Slot,
			&t.Timestamp,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transfer row: %w", err)
		}

		transfers = append(transfers, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer rows: %w", err)
	}

	return transfers, nil
}
