package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// HolderStore implements storage.HolderStore using PostgreSQL.
type HolderStore struct {
	pool *Pool
}

// NewHolderStore creates a new HolderStore.
func NewHolderStore(pool *Pool) *HolderStore {
	return &HolderStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HolderStore = (*HolderStore)(nil)

const holderColumns = `
	id, wallet_address, current_balance, total_bought, total_sold, usd_value,
	first_seen_date, last_activity_date, is_eligible, created_at, updated_at
`

// Upsert inserts a holder or updates the existing row for the wallet.
func (s *HolderStore) Upsert(ctx context.Context, h *domain.Holder) error {
	if h == nil || h.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO holders (
			wallet_address, current_balance, total_bought, total_sold, usd_value,
			first_seen_date, last_activity_date, is_eligible
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (wallet_address) DO UPDATE SET
			current_balance = EXCLUDED.current_balance,
			total_bought = EXCLUDED.total_bought,
			total_sold = EXCLUDED.total_sold,
			usd_value = EXCLUDED.usd_value,
			first_seen_date = EXCLUDED.first_seen_date,
			last_activity_date = EXCLUDED.last_activity_date,
			is_eligible = EXCLUDED.is_eligible,
			updated_at = NOW()
	`

	_, err := s.pool.Exec(ctx, query,
		h.WalletAddress,
		h.CurrentBalance,
		h.TotalBought,
		h.TotalSold,
		h.USDValue,
		h.FirstSeenDate,
		h.LastActivityDate,
		h.IsEligible,
	)
	if err != nil {
		return fmt.Errorf("upsert holder: %w", err)
	}
	return nil
}

// GetByWallet retrieves a holder by wallet address. Returns ErrNotFound if not exists.
func (s *HolderStore) GetByWallet(ctx context.Context, wallet string) (*domain.Holder, error) {
	query := `SELECT ` + holderColumns + ` FROM holders WHERE wallet_address = $1`

	var h domain.Holder
	err := s.pool.QueryRow(ctx, query, wallet).Scan(
		&h.ID,
		&h.WalletAddress,
		&h.CurrentBalance,
		&h.TotalBought,
		&h.TotalSold,
		&h.USDValue,
		&h.FirstSeenDate,
		&h.LastActivityDate,
		&h.IsEligible,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get holder by wallet: %w", err)
	}
	return &h, nil
}

// List retrieves all holders, ordered by wallet address ASC.
func (s *HolderStore) List(ctx context.Context) ([]*domain.Holder, error) {
	query := `SELECT ` + holderColumns + ` FROM holders ORDER BY wallet_address ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list holders: %w", err)
	}
	defer rows.Close()

	return scanHolders(rows)
}

// ListEligible retrieves eligible holders with a positive balance, ordered by wallet ASC.
func (s *HolderStore) ListEligible(ctx context.Context) ([]*domain.Holder, error) {
	query := `
		SELECT ` + holderColumns + `
		FROM holders
		WHERE is_eligible = TRUE AND current_balance > 0
		ORDER BY wallet_address ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list eligible holders: %w", err)
	}
	defer rows.Close()

	return scanHolders(rows)
}

// SetEligibility flips the eligibility flag for a wallet.
func (s *HolderStore) SetEligibility(ctx context.Context, wallet string, eligible bool) error {
	query := `UPDATE holders SET is_eligible = $2, updated_at = NOW() WHERE wallet_address = $1`

	tag, err := s.pool.Exec(ctx, query, wallet, eligible)
	if err != nil {
		return fmt.Errorf("set eligibility: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanHolders scans multiple rows into a slice of Holder.
func scanHolders(rows pgx.Rows) ([]*domain.Holder, error) {
	var holders []*domain.Holder

	for rows.Next() {
		var h domain.Holder

		err := rows.Scan(
			&h.ID,
			&h.WalletAddress,
			&h.CurrentBalance,
			&h.TotalBought,
			&h.TotalSold,
			&h.USDValue,
			&h.FirstSeenDate,
			&h.LastActivityDate,
			&h.IsEligible,
			&h.CreatedAt,
			&h.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan holder row: %w", err)
		}

		holders = append(holders, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holder rows: %w", err)
	}

	return holders, nil
}
