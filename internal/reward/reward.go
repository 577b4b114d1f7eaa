// Package reward draws one winner per calendar month from the eligible
// holder pool. Selection is final: a period with a recorded winner can
// never produce a second one, even under concurrent draws.
package reward

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/ledger"
	"holder-rewards/internal/storage"
)

// ErrNoEligibleHolders is returned when the draw pool is empty.
var ErrNoEligibleHolders = errors.New("no eligible holders for selection")

// AlreadySelectedError reports that the period already has a winner.
type AlreadySelectedError struct {
	Existing *domain.Winner
}

func (e *AlreadySelectedError) Error() string {
	return fmt.Sprintf("winner already selected for %s: %s",
		e.Existing.PeriodDisplay(), e.Existing.WalletAddress)
}

// Selector draws monthly winners.
type Selector struct {
	ledger      *ledger.Ledger
	winners     storage.WinnerStore
	settings    storage.SettingStore
	log         *logrus.Logger
	now         func() time.Time
	minHoldDays int
	intn        func(n int) int
}

// Options configures a Selector.
type Options struct {
	Ledger   *ledger.Ledger
	Winners  storage.WinnerStore
	Settings storage.SettingStore
	Logger   *logrus.Logger

	// MinHoldDays is the fallback when the setting is unset or malformed.
	MinHoldDays int
}

// DefaultMinHoldDays is used when neither settings nor options provide one.
const DefaultMinHoldDays = 30

// NewSelector creates a Selector.
func NewSelector(opts Options) *Selector {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.MinHoldDays <= 0 {
		opts.MinHoldDays = DefaultMinHoldDays
	}
	return &Selector{
		ledger:      opts.Ledger,
		winners:     opts.Winners,
		settings:    opts.Settings,
		log:         opts.Logger,
		now:         time.Now,
		minHoldDays: opts.MinHoldDays,
		intn:        rand.Intn,
	}
}

// SelectWinner draws a uniformly random winner for (month, year). A second
// call for the same period returns AlreadySelectedError wrapping the
// recorded winner; the storage-level unique constraint backstops races.
func (s *Selector) SelectWinner(ctx context.Context, month, year int) (*domain.Winner, error) {
	if month < 1 || month > 12 || year < 2000 {
		return nil, fmt.Errorf("select winner: bad period %d/%d: %w", month, year, storage.ErrInvalidInput)
	}

	if existing, err := s.winners.GetByPeriod(ctx, month, year); err == nil {
		return nil, &AlreadySelectedError{Existing: existing}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("check period %d/%d: %w", month, year, err)
	}

	asOf := s.now().UTC()
	pool, err := s.ledger.EligibleHolders(ctx, s.resolveMinHoldDays(ctx), asOf)
	if err != nil {
		return nil, fmt.Errorf("build draw pool: %w", err)
	}
	if len(pool) == 0 {
		return nil, ErrNoEligibleHolders
	}

	picked := pool[s.intn(len(pool))]
	winner := &domain.Winner{
		WalletAddress:          picked.WalletAddress,
		Month:                  month,
		Year:                   year,
		HoldingDaysAtSelection: picked.HoldingDays(asOf),
		BalanceAtSelection:     picked.CurrentBalance,
		SelectedAt:             asOf,
	}

	if err := s.winners.Insert(ctx, winner); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Lost the race to a concurrent draw; surface its winner
			existing, getErr := s.winners.GetByPeriod(ctx, month, year)
			if getErr != nil {
				return nil, fmt.Errorf("refetch winner for %d/%d: %w", month, year, getErr)
			}
			return nil, &AlreadySelectedError{Existing: existing}
		}
		return nil, fmt.Errorf("insert winner: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"wallet":    winner.WalletAddress,
		"month":     month,
		"year":      year,
		"pool_size": len(pool),
	}).Info("winner selected")

	return winner, nil
}

// MarkRewardSent records that the period's reward was paid out manually.
func (s *Selector) MarkRewardSent(ctx context.Context, month, year int) error {
	if err := s.winners.MarkRewardSent(ctx, month, year, s.now().UTC()); err != nil {
		return fmt.Errorf("mark reward sent %d/%d: %w", month, year, err)
	}
	return nil
}

// RecentWinners returns the most recent winners, newest period first.
func (s *Selector) RecentWinners(ctx context.Context, limit int) ([]*domain.Winner, error) {
	winners, err := s.winners.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list winners: %w", err)
	}
	if limit > 0 && len(winners) > limit {
		winners = winners[:limit]
	}
	return winners, nil
}

// resolveMinHoldDays reads the threshold from settings, falling back to
// the configured default on missing or malformed values.
func (s *Selector) resolveMinHoldDays(ctx context.Context) int {
	raw, err := s.settings.Get(ctx, storage.SettingMinimumHoldDays)
	if err != nil {
		return s.minHoldDays
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		s.log.WithField("value", raw).Warn("malformed minimum hold days setting, using default")
		return s.minHoldDays
	}
	return days
}
