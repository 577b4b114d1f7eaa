package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot records a wallet's balance as seen by a full-population snapshot
// cycle. Unique on (wallet, snapshot date); re-running the same day's
// snapshot overwrites the row.
// Corresponds to snapshots table in PostgreSQL.
type Snapshot struct {
	ID            int64
	WalletAddress string
	SnapshotDate  time.Time       // date (midnight UTC)
	Balance       decimal.Decimal // token units at snapshot time
	USDValue      decimal.Decimal // balance * token price, 0 when price unknown
	DaysHeld      int             // max(1, snapshot date - first seen date)
	CreatedAt     time.Time
}

// ArchivedSnapshot is a snapshot row enriched with the holder's eligibility
// at archive time. PostgreSQL keeps a rolling window of snapshots; archived
// rows live in ClickHouse indefinitely.
type ArchivedSnapshot struct {
	Snapshot
	IsEligible bool
}
