// Package ledger holds the tracked token's holder state machine: transfer
// application, snapshot reconciliation, eligibility, and ranking.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// ApplyResult describes the outcome of applying one transfer.
type ApplyResult string

const (
	// ResultApplied means the transfer mutated holder state.
	ResultApplied ApplyResult = "applied"

	// ResultAlreadyApplied means the transfer hash was seen before.
	// Replays and batch retries land here with zero mutation.
	ResultAlreadyApplied ApplyResult = "already_applied"

	// ResultSkipped means the transfer was rejected as inconsistent
	// (a sell exceeding the known balance) and not recorded.
	ResultSkipped ApplyResult = "skipped"
)

// Ledger applies chain events to holder state.
type Ledger struct {
	holders   storage.HolderStore
	transfers storage.TransferStore
	snapshots storage.SnapshotStore
	archive   storage.SnapshotArchiveStore // optional
	log       *logrus.Logger
}

// Options configures a Ledger.
type Options struct {
	Holders   storage.HolderStore
	Transfers storage.TransferStore
	Snapshots storage.SnapshotStore
	Archive   storage.SnapshotArchiveStore // nil disables archiving
	Logger    *logrus.Logger
}

// New creates a Ledger.
func New(opts Options) *Ledger {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Ledger{
		holders:   opts.Holders,
		transfers: opts.Transfers,
		snapshots: opts.Snapshots,
		archive:   opts.Archive,
		log:       opts.Logger,
	}
}

// ApplyTransfer applies one transfer. The tx hash is the idempotency
// boundary: a hash seen before returns ResultAlreadyApplied and mutates
// nothing. The transfer row is recorded before the holder row is updated;
// if the holder update fails the daily snapshot reconciles the balance.
func (l *Ledger) ApplyTransfer(ctx context.Context, t *domain.TokenTransfer) (ApplyResult, error) {
	if t == nil || t.TxHash == "" || t.WalletAddress == "" {
		return "", fmt.Errorf("apply transfer: %w", storage.ErrInvalidInput)
	}
	if t.Type != domain.TransferTypeBuy && t.Type != domain.TransferTypeSell {
		return "", fmt.Errorf("apply transfer: bad type %q: %w", t.Type, storage.ErrInvalidInput)
	}
	if !t.Amount.IsPositive() {
		return "", fmt.Errorf("apply transfer: non-positive amount %s: %w", t.Amount, storage.ErrInvalidInput)
	}

	if _, err := l.transfers.GetByTxHash(ctx, t.TxHash); err == nil {
		return ResultAlreadyApplied, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("check transfer %s: %w", t.TxHash, err)
	}

	holder, err := l.holders.GetByWallet(ctx, t.WalletAddress)
	if errors.Is(err, storage.ErrNotFound) {
		holder = nil
	} else if err != nil {
		return "", fmt.Errorf("get holder %s: %w", t.WalletAddress, err)
	}

	if t.Type == domain.TransferTypeSell {
		known := decimal.Zero
		if holder != nil {
			known = holder.CurrentBalance
		}
		if known.LessThan(t.Amount) {
			l.log.WithFields(logrus.Fields{
				"tx_hash": t.TxHash,
				"wallet":  t.WalletAddress,
				"amount":  t.Amount,
				"balance": known,
			}).Warn("sell exceeds known balance, skipping transfer")
			return ResultSkipped, nil
		}
	}

	if err := l.transfers.Insert(ctx, t); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return ResultAlreadyApplied, nil
		}
		return "", fmt.Errorf("insert transfer %s: %w", t.TxHash, err)
	}

	if holder == nil {
		holder = &domain.Holder{
			WalletAddress: t.WalletAddress,
			FirstSeenDate: t.Timestamp,
			IsEligible:    true,
		}
	}

	switch t.Type {
	case domain.TransferTypeBuy:
		holder.TotalBought = holder.TotalBought.Add(t.Amount)
		holder.CurrentBalance = holder.CurrentBalance.Add(t.Amount)
	case domain.TransferTypeSell:
		holder.TotalSold = holder.TotalSold.Add(t.Amount)
		holder.CurrentBalance = holder.CurrentBalance.Sub(t.Amount)
		// Any confirmed sell revokes eligibility, regardless of amount
		holder.IsEligible = false
	}
	if t.Timestamp.After(holder.LastActivityDate) {
		holder.LastActivityDate = t.Timestamp
	}

	if err := l.holders.Upsert(ctx, holder); err != nil {
		return "", fmt.Errorf("upsert holder %s: %w", t.WalletAddress, err)
	}

	return ResultApplied, nil
}

// ApplySnapshot reconciles one wallet against a full-population balance
// snapshot. Snapshots never flip eligibility in either direction: a wallet
// first seen via snapshot starts eligible, a revoked wallet stays revoked.
func (l *Ledger) ApplySnapshot(ctx context.Context, walletAddr string, balance, usd decimal.Decimal, asOf time.Time) (*domain.Snapshot, error) {
	if walletAddr == "" {
		return nil, fmt.Errorf("apply snapshot: %w", storage.ErrInvalidInput)
	}

	holder, err := l.holders.GetByWallet(ctx, walletAddr)
	if errors.Is(err, storage.ErrNotFound) {
		holder = &domain.Holder{
			WalletAddress: walletAddr,
			FirstSeenDate: asOf,
			IsEligible:    true,
		}
	} else if err != nil {
		return nil, fmt.Errorf("get holder %s: %w", walletAddr, err)
	}

	holder.CurrentBalance = balance
	holder.USDValue = usd
	if asOf.After(holder.LastActivityDate) {
		holder.LastActivityDate = asOf
	}
	if err := l.holders.Upsert(ctx, holder); err != nil {
		return nil, fmt.Errorf("upsert holder %s: %w", walletAddr, err)
	}

	daysHeld := holder.HoldingDays(asOf)
	if daysHeld < 1 {
		daysHeld = 1
	}

	snap := &domain.Snapshot{
		WalletAddress: walletAddr,
		SnapshotDate:  midnightUTC(asOf),
		Balance:       balance,
		USDValue:      usd,
		DaysHeld:      daysHeld,
	}
	if err := l.snapshots.Upsert(ctx, snap); err != nil {
		return nil, fmt.Errorf("upsert snapshot %s: %w", walletAddr, err)
	}

	if l.archive != nil {
		archived := &domain.ArchivedSnapshot{Snapshot: *snap, IsEligible: holder.IsEligible}
		if err := l.archive.ArchiveBulk(ctx, []*domain.ArchivedSnapshot{archived}); err != nil {
			// Archive is best-effort; the primary snapshot already landed
			l.log.WithError(err).WithField("wallet", walletAddr).Warn("snapshot archive failed")
		}
	}

	return snap, nil
}

// HolderHistory is a normalized per-wallet transfer history aggregate.
type HolderHistory struct {
	Wallet    string
	Balance   decimal.Decimal
	FirstDate time.Time
	LastDate  time.Time
	OutAmount decimal.Decimal
}

// ApplyHolderHistory backfills holder state from aggregated provider
// history. The provider knows the true first acquisition date, so
// FirstSeenDate may move earlier, never later. Outbound history revokes
// eligibility under the strict sell policy.
func (l *Ledger) ApplyHolderHistory(ctx context.Context, hh HolderHistory) error {
	if hh.Wallet == "" {
		return fmt.Errorf("apply holder history: %w", storage.ErrInvalidInput)
	}

	holder, err := l.holders.GetByWallet(ctx, hh.Wallet)
	if errors.Is(err, storage.ErrNotFound) {
		holder = &domain.Holder{
			WalletAddress: hh.Wallet,
			FirstSeenDate: hh.FirstDate,
			IsEligible:    true,
		}
	} else if err != nil {
		return fmt.Errorf("get holder %s: %w", hh.Wallet, err)
	}

	if !hh.FirstDate.IsZero() && (holder.FirstSeenDate.IsZero() || hh.FirstDate.Before(holder.FirstSeenDate)) {
		holder.FirstSeenDate = hh.FirstDate
	}
	holder.CurrentBalance = hh.Balance
	if hh.LastDate.After(holder.LastActivityDate) {
		holder.LastActivityDate = hh.LastDate
	}
	if hh.OutAmount.IsPositive() {
		holder.IsEligible = false
	}

	if err := l.holders.Upsert(ctx, holder); err != nil {
		return fmt.Errorf("upsert holder %s: %w", hh.Wallet, err)
	}
	return nil
}

// EligibleHolders returns holders that are eligible, hold a positive
// balance, and have held for at least minDays as of asOf.
func (l *Ledger) EligibleHolders(ctx context.Context, minDays int, asOf time.Time) ([]*domain.Holder, error) {
	holders, err := l.holders.ListEligible(ctx)
	if err != nil {
		return nil, fmt.Errorf("list eligible holders: %w", err)
	}

	result := holders[:0]
	for _, h := range holders {
		if h.HoldingDays(asOf) >= minDays {
			result = append(result, h)
		}
	}
	return result, nil
}

// HolderRank returns the wallet's 1-based rank by balance descending.
// Ties break toward the earlier FirstSeenDate, then wallet ascending.
func (l *Ledger) HolderRank(ctx context.Context, walletAddr string) (int, error) {
	holders, err := l.holders.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list holders: %w", err)
	}

	sort.Slice(holders, func(i, j int) bool {
		if !holders[i].CurrentBalance.Equal(holders[j].CurrentBalance) {
			return holders[i].CurrentBalance.GreaterThan(holders[j].CurrentBalance)
		}
		if !holders[i].FirstSeenDate.Equal(holders[j].FirstSeenDate) {
			return holders[i].FirstSeenDate.Before(holders[j].FirstSeenDate)
		}
		return holders[i].WalletAddress < holders[j].WalletAddress
	})

	for i, h := range holders {
		if h.WalletAddress == walletAddr {
			return i + 1, nil
		}
	}
	return 0, storage.ErrNotFound
}

// Status describes one wallet's standing toward reward eligibility.
type Status struct {
	WalletAddress string
	Balance       decimal.Decimal
	HoldingDays   int
	DaysRemaining int
	IsEligible    bool
	Qualifies     bool
	Reason        string
}

// HolderStatus explains whether a wallet currently qualifies for the
// reward draw and, when it does not, why.
func (l *Ledger) HolderStatus(ctx context.Context, walletAddr string, minDays int, asOf time.Time) (*Status, error) {
	holder, err := l.holders.GetByWallet(ctx, walletAddr)
	if errors.Is(err, storage.ErrNotFound) {
		return &Status{WalletAddress: walletAddr, Reason: "wallet not found"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get holder %s: %w", walletAddr, err)
	}

	s := &Status{
		WalletAddress: holder.WalletAddress,
		Balance:       holder.CurrentBalance,
		HoldingDays:   holder.HoldingDays(asOf),
		IsEligible:    holder.IsEligible,
	}
	switch {
	case !holder.CurrentBalance.IsPositive():
		s.Reason = "no tokens held"
	case !holder.IsEligible:
		s.Reason = "previously sold tokens"
	case s.HoldingDays < minDays:
		s.DaysRemaining = minDays - s.HoldingDays
		s.Reason = fmt.Sprintf("need %d more days", s.DaysRemaining)
	default:
		s.Qualifies = true
		s.Reason = "eligible"
	}
	return s, nil
}

// TransferHistory returns a wallet's recorded transfers, oldest first.
func (l *Ledger) TransferHistory(ctx context.Context, walletAddr string) ([]*domain.TokenTransfer, error) {
	transfers, err := l.transfers.GetByWallet(ctx, walletAddr)
	if err != nil {
		return nil, fmt.Errorf("get transfers for %s: %w", walletAddr, err)
	}
	return transfers, nil
}

// Reinstate restores eligibility for a wallet. Operator action only; no
// automatic path ever sets eligibility back to true.
func (l *Ledger) Reinstate(ctx context.Context, walletAddr string) error {
	if err := l.holders.SetEligibility(ctx, walletAddr, true); err != nil {
		return fmt.Errorf("reinstate %s: %w", walletAddr, err)
	}
	return nil
}

// midnightUTC truncates t to its UTC date.
func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
