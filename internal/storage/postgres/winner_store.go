package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// WinnerStore implements storage.WinnerStore using PostgreSQL. The unique
// index on (month, year) is the final arbiter of one winner per period.
type WinnerStore struct {
	pool *Pool
}

// NewWinnerStore creates a new WinnerStore.
func NewWinnerStore(pool *Pool) *WinnerStore {
	return &WinnerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WinnerStore = (*WinnerStore)(nil)

const winnerColumns = `
	id, wallet_address, month, year, holding_days_at_selection, balance_at_selection,
	reward_amount, reward_sent, notes, selected_at, reward_sent_at
`

// Insert adds a winner. Returns ErrDuplicateKey if (month, year) exists.
func (s *WinnerStore) Insert(ctx context.Context, w *domain.Winner) error {
	if w == nil || w.WalletAddress == "" || w.Month < 1 || w.Month > 12 || w.Year == 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO winners (
			wallet_address, month, year, holding_days_at_selection, balance_at_selection,
			reward_amount, reward_sent, notes, selected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		w.WalletAddress,
		w.Month,
		w.Year,
		w.HoldingDaysAtSelection,
		w.BalanceAtSelection,
		w.RewardAmount,
		w.RewardSent,
		w.Notes,
		w.SelectedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert winner: %w", err)
	}
	return nil
}

// GetByPeriod retrieves the winner for a period. Returns ErrNotFound if not exists.
func (s *WinnerStore) GetByPeriod(ctx context.Context, month, year int) (*domain.Winner, error) {
	query := `SELECT ` + winnerColumns + ` FROM winners WHERE month = $1 AND year = $2`

	var w domain.Winner
	err := s.pool.QueryRow(ctx, query, month, year).Scan(
		&w.ID,
		&w.WalletAddress,
		&w.Month,
		&w.Year,
		&w.HoldingDaysAtSelection,
		&w.BalanceAtSelection,
		&w.RewardAmount,
		&w.RewardSent,
		&w.Notes,
		&w.SelectedAt,
		&w.RewardSentAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get winner by period: %w", err)
	}
	return &w, nil
}

// List retrieves all winners, ordered by (year, month) DESC.
func (s *WinnerStore) List(ctx context.Context) ([]*domain.Winner, error) {
	query := `SELECT ` + winnerColumns + ` FROM winners ORDER BY year DESC, month DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list winners: %w", err)
	}
	defer rows.Close()

	return scanWinners(rows)
}

// MarkRewardSent records that the period's reward was paid out.
func (s *WinnerStore) MarkRewardSent(ctx context.Context, month, year int, sentAt time.Time) error {
	query := `
		UPDATE winners
		SET reward_sent = TRUE, reward_sent_at = $3
		WHERE month = $1 AND year = $2
	`

	tag, err := s.pool.Exec(ctx, query, month, year, sentAt)
	if err != nil {
		return fmt.Errorf("mark reward sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanWinners scans multiple rows into a slice of Winner.
func scanWinners(rows pgx.Rows) ([]*domain.Winner, error) {
	var winners []*domain.Winner

	for rows.Next() {
		var w domain.Winner

		err := rows.Scan(
			&w.ID,
			&w.WalletAddress,
			&w.Month,
			&w.Year,
			&w.HoldingDaysAtSelection,
			&w.BalanceAtSelection,
			&w.RewardAmount,
			&w.RewardSent,
			&w.Notes,
			&w.SelectedAt,
			&w.RewardSentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan winner row: %w", err)
		}

		winners = append(winners, &w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate winner rows: %w", err)
	}

	return winners, nil
}
