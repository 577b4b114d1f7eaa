package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holder represents the tracked state of one wallet holding the token.
// Corresponds to holders table in PostgreSQL.
type Holder struct {
	ID               int64           // BIGSERIAL primary key
	WalletAddress    string          // chain-native address, immutable identity
	CurrentBalance   decimal.Decimal // token units
	TotalBought      decimal.Decimal // cumulative buys (transaction-driven mode)
	TotalSold        decimal.Decimal // cumulative sells (transaction-driven mode)
	USDValue         decimal.Decimal // last known USD value of the balance
	FirstSeenDate    time.Time       // date of first observed positive balance; set once
	LastActivityDate time.Time       // advances with every applied transfer or snapshot
	IsEligible       bool            // starts true; any confirmed sell flips it false
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HoldingDays returns the whole days between FirstSeenDate and asOf.
// Never negative.
func (h *Holder) HoldingDays(asOf time.Time) int {
	if h.FirstSeenDate.IsZero() {
		return 0
	}
	days := int(asOf.Sub(h.FirstSeenDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
