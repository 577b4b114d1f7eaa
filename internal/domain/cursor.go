package domain

import "time"

// SyncCursor tracks how far transfer ingestion has progressed for a
// provider. Slot is the last fully-applied block/slot; ingestion resumes
// strictly after it.
// Corresponds to sync_cursors table in PostgreSQL.
type SyncCursor struct {
	Provider  string // provider key, e.g. "helius", "tatum"
	Slot      int64
	UpdatedAt time.Time
}
