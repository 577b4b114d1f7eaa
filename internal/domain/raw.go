package domain

import "time"

// RawTransfer is a provider-shaped transfer before unit normalization.
// RawAmount stays a string until the token's decimals are known.
type RawTransfer struct {
	TxHash    string
	Wallet    string
	Direction string // "in" | "out" relative to Wallet
	RawAmount string // integer base units as reported by the provider
	Slot      int64
	Timestamp time.Time
}

// Raw transfer directions
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// RawHolder is one entry from a provider's full holder enumeration.
type RawHolder struct {
	Wallet    string
	RawAmount string // integer base units
}

// RawHolderHistory is a provider's aggregated per-wallet transfer history,
// used to backfill FirstSeenDate for wallets discovered via snapshots and to
// apply eligibility retroactively.
type RawHolderHistory struct {
	Wallet    string
	RawAmount string // current balance, integer base units
	FirstDate time.Time
	LastDate  time.Time
	InAmount  string // cumulative inbound, integer base units
	OutAmount string // cumulative outbound, integer base units
	TxCount   int
}
