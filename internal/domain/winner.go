package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Winner records the reward winner for one (month, year) period. The holding
// days and balance are copied at selection time so later holder mutation
// cannot rewrite past selections. Unique on (month, year).
// Corresponds to winners table in PostgreSQL.
type Winner struct {
	ID                     int64
	WalletAddress          string
	Month                  int // 1-12
	Year                   int
	HoldingDaysAtSelection int
	BalanceAtSelection     decimal.Decimal
	RewardAmount           *string // payout is manual; free-form note
	RewardSent             bool
	Notes                  *string
	SelectedAt             time.Time
	RewardSentAt           *time.Time
}

// PeriodDisplay returns a human-readable label for the winning period.
func (w *Winner) PeriodDisplay() string {
	return time.Month(w.Month).String() + " " + strconv.Itoa(w.Year)
}
