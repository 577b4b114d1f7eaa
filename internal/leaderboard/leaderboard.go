// Package leaderboard ranks holders deterministically. The same stored
// state always yields the same ordering, so repeated reads are
// byte-identical and safe to cache upstream.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"holder-rewards/internal/storage"
)

// Entry is one leaderboard row.
type Entry struct {
	Rank          int
	WalletAddress string
	Balance       decimal.Decimal
	USDValue      decimal.Decimal
	HoldingDays   int
	Eligible      bool
}

// Ranker produces the holder leaderboard.
type Ranker struct {
	holders  storage.HolderStore
	settings storage.SettingStore
	log      *logrus.Logger
	now      func() time.Time
}

// NewRanker creates a Ranker. The settings store is consulted on every
// call so operator threshold changes apply without a restart.
func NewRanker(holders storage.HolderStore, settings storage.SettingStore, log *logrus.Logger) *Ranker {
	if log == nil {
		log = logrus.New()
	}
	return &Ranker{holders: holders, settings: settings, now: time.Now, log: log}
}

// Rank returns up to limit holders ordered by holding days descending,
// then balance descending, then wallet ascending. limit <= 0 means no
// limit. Revoked holders keep their rank with Eligible false, so the
// board shows everyone still holding. Holders below the USD threshold
// are filtered out; a zero threshold admits everyone.
func (r *Ranker) Rank(ctx context.Context, limit int) ([]Entry, error) {
	holders, err := r.holders.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list holders: %w", err)
	}

	threshold, err := r.usdThreshold(ctx)
	if err != nil {
		return nil, err
	}

	asOf := r.now().UTC()
	kept := holders[:0]
	for _, h := range holders {
		if threshold.IsPositive() && h.USDValue.LessThan(threshold) {
			continue
		}
		kept = append(kept, h)
	}

	sort.Slice(kept, func(i, j int) bool {
		di, dj := kept[i].HoldingDays(asOf), kept[j].HoldingDays(asOf)
		if di != dj {
			return di > dj
		}
		if !kept[i].CurrentBalance.Equal(kept[j].CurrentBalance) {
			return kept[i].CurrentBalance.GreaterThan(kept[j].CurrentBalance)
		}
		return kept[i].WalletAddress < kept[j].WalletAddress
	})

	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}

	entries := make([]Entry, len(kept))
	for i, h := range kept {
		entries[i] = Entry{
			Rank:          i + 1,
			WalletAddress: h.WalletAddress,
			Balance:       h.CurrentBalance,
			USDValue:      h.USDValue,
			HoldingDays:   h.HoldingDays(asOf),
			Eligible:      h.IsEligible,
		}
	}
	return entries, nil
}

// usdThreshold reads the dust filter from settings. A missing or
// malformed value disables the filter rather than failing the read path.
func (r *Ranker) usdThreshold(ctx context.Context) (decimal.Decimal, error) {
	raw, err := r.settings.Get(ctx, storage.SettingMinimumUSDThreshold)
	if errors.Is(err, storage.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get usd threshold: %w", err)
	}

	threshold, err := decimal.NewFromString(raw)
	if err != nil {
		r.log.WithField("value", raw).Warn("malformed usd threshold setting, ignoring")
		return decimal.Zero, nil
	}
	return threshold, nil
}
