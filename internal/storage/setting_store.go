package storage

import "context"

// Well-known setting keys.
const (
	// SettingMinimumHoldDays is the eligibility threshold in whole days.
	SettingMinimumHoldDays = "minimum_hold_days"

	// SettingMinimumUSDThreshold filters dust wallets out of the leaderboard.
	SettingMinimumUSDThreshold = "minimum_usd_threshold"
)

// SettingStore provides persistence for operator-tunable settings.
// Values are stored as strings; callers own parsing and defaults.
type SettingStore interface {
	// Get returns the value for a key. Returns ErrNotFound if unset.
	Get(ctx context.Context, key string) (string, error)

	// Set saves a value for a key, overwriting any existing value.
	Set(ctx context.Context, key, value string) error
}
