package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
	"holder-rewards/internal/storage/memory"
)

type fixtures struct {
	ledger    *Ledger
	holders   *memory.HolderStore
	transfers *memory.TransferStore
	snapshots *memory.SnapshotStore
	archive   *memory.SnapshotArchiveStore
}

func newFixtures() *fixtures {
	f := &fixtures{
		holders:   memory.NewHolderStore(),
		transfers: memory.NewTransferStore(),
		snapshots: memory.NewSnapshotStore(),
		archive:   memory.NewSnapshotArchiveStore(),
	}
	f.ledger = New(Options{
		Holders:   f.holders,
		Transfers: f.transfers,
		Snapshots: f.snapshots,
		Archive:   f.archive,
	})
	return f
}

func buy(hash, wallet string, amount int64, ts time.Time) *domain.TokenTransfer {
	return &domain.TokenTransfer{
		TxHash:        hash,
		WalletAddress: wallet,
		Type:          domain.TransferTypeBuy,
		Amount:        decimal.NewFromInt(amount),
		Timestamp:     ts,
	}
}

func sell(hash, wallet string, amount int64, ts time.Time) *domain.TokenTransfer {
	return &domain.TokenTransfer{
		TxHash:        hash,
		WalletAddress: wallet,
		Type:          domain.TransferTypeSell,
		Amount:        decimal.NewFromInt(amount),
		Timestamp:     ts,
	}
}

var day0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func TestApplyTransfer_BuysAccumulate(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	res, err := f.ledger.ApplyTransfer(ctx, buy("tx1", "W1", 100, day0))
	require.NoError(t, err)
	assert.Equal(t, ResultApplied, res)

	res, err = f.ledger.ApplyTransfer(ctx, buy("tx2", "W1", 50, day0.AddDate(0, 0, 10)))
	require.NoError(t, err)
	assert.Equal(t, ResultApplied, res)

	h, err := f.holders.GetByWallet(ctx, "W1")
	require.NoError(t, err)
	assert.True(t, h.CurrentBalance.Equal(decimal.NewFromInt(150)))
	assert.True(t, h.TotalBought.Equal(decimal.NewFromInt(150)))
	assert.True(t, h.IsEligible)
	assert.Equal(t, day0, h.FirstSeenDate, "first seen date must not advance on later buys")

	// 31 days after the first buy the wallet clears a 30-day minimum
	asOf := day0.AddDate(0, 0, 31)
	assert.Equal(t, 31, h.HoldingDays(asOf))

	eligible, err := f.ledger.EligibleHolders(ctx, 30, asOf)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, "W1", eligible[0].WalletAddress)
}

func TestApplyTransfer_SellRevokesEligibility(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	_, err := f.ledger.ApplyTransfer(ctx, buy("tx1", "W1", 150, day0))
	require.NoError(t, err)

	res, err := f.ledger.ApplyTransfer(ctx, sell("tx2", "W1", 10, day0.AddDate(0, 0, 31)))
	require.NoError(t, err)
	assert.Equal(t, ResultApplied, res)

	h, err := f.holders.GetByWallet(ctx, "W1")
	require.NoError(t, err)
	assert.False(t, h.IsEligible)
	assert.True(t, h.CurrentBalance.Equal(decimal.NewFromInt(140)))
	assert.True(t, h.TotalSold.Equal(decimal.NewFromInt(10)))

	// Excluded despite a large remaining balance and long holding period
	eligible, err := f.ledger.EligibleHolders(ctx, 30, day0.AddDate(0, 0, 40))
	require.NoError(t, err)
	assert.Empty(t, eligible)
}

func TestApplyTransfer_BuyNeverRestoresEligibility(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	_, err := f.ledger.ApplyTransfer(ctx, buy("tx1", "W1", 100, day0))
	require.NoError(t, err)
	_, err = f.ledger.ApplyTransfer(ctx, sell("tx2", "W1", 10, day0.AddDate(0, 0, 1)))
	require.NoError(t, err)

	res, err := f.ledger.ApplyTransfer(ctx, buy("tx3", "W1", 500, day0.AddDate(0, 0, 2)))
	require.NoError(t, err)
	assert.Equal(t, ResultApplied, res)

	h, err := f.holders.GetByWallet(ctx, "W1")
	require.NoError(t, err)
	assert.False(t, h.IsEligible, "rebuying must not reinstate")
	assert.True(t, h.CurrentBalance.Equal(decimal.NewFromInt(590)))
}

func TestApplyTransfer_DuplicateHashIsNoOp(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	_, err := f.ledger.ApplyTransfer(ctx, buy("tx1", "W1", 100, day0))
	require.NoError(t, err)

	res, err := f.ledger.ApplyTransfer(ctx, buy("tx1", "W1", 100, day0))
	require.NoError(t, err)
	assert.Equal(t, ResultAlreadyApplied, res)

	h, err := f.holders.GetByWallet(ctx, "W1")
	require.NoError(t, err)
	assert.True(t, h.CurrentBalance.Equal(decimal.NewFromInt(100)), "replay must not double-count")
}

func TestApplyTransfer_SellExceedingBalanceSkipped(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	_, err := f.ledger.ApplyTransfer(ctx, buy("tx1", "W1", 100, day0))
	require.NoError(t, err)

	res, err := f.ledger.ApplyTransfer(ctx, sell("tx2", "W1", 500, day0.AddDate(0, 0, 1)))
	require.NoError(t, err)
	assert.Equal(t, ResultSkipped, res)

	// The skipped transfer must not be recorded; retrying after a backfill
	// corrects the balance has to be possible
	_, err = f.transfers.GetByTxHash(ctx, "tx2")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	h, err := f.holders.GetByWallet(ctx, "W1")
	require.NoError(t, err)
	assert.True(t, h.CurrentBalance.Equal(decimal.NewFromInt(100)))
	assert.True(t, h.IsEligible, "skipped sells must not revoke eligibility")
}

func TestApplyTransfer_SellFromUnknownWalletSkipped(t *testing.T) {
	f := newFixtures()

	res, err := f.ledger.ApplyTransfer(context.Background(), sell("tx1", "W9", 5, day0))
	require.NoError(t, err)
	assert.Equal(t, ResultSkipped, res)
}

func TestApplyTransfer_ValidatesInput(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	_, err := f.ledger.ApplyTransfer(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = f.ledger.ApplyTransfer(ctx, &domain.TokenTransfer{
		TxHash:        "tx1",
		WalletAddress: "W1",
		Type:          "swap",
		Amount:        decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	bad := buy("tx2", "W1", 5, day0)
	bad.Amount = decimal.Zero
	_, err = f.ledger.ApplyTransfer(ctx, bad)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestApplySnapshot_NewWalletStartsEligible(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()
	asOf := time.Date(2025, 3, 15, 0, 5, 0, 0, time.UTC)

	snap, err := f.ledger.ApplySnapshot(ctx, "W1", decimal.NewFromInt(200), decimal.NewFromInt(40), asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.DaysHeld, "first day counts as one")
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), snap.SnapshotDate)

	h, err := f.holders.GetByWallet(ctx, "W1")
	require.NoError(t, err)
	assert.True(t, h.IsEligible)
	assert.Equal(t, asOf, h.FirstSeenDate)
	assert.True(t, h.USDValue.Equal(decimal.NewFromInt(40)))
}

func TestApplySnapshot_NeverReinstates(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	_, err := f.ledger.ApplyTransfer(ctx, buy("tx1", "W1", 100, day0))
	require.NoError(t, err)
	_, err = f.ledger.ApplyTransfer(ctx, sell("tx2", "W1", 10, day0.AddDate(0, 0, 1)))
	require.NoError(t, err)

	_, err = f.ledger.ApplySnapshot(ctx, "W1", decimal.NewFromInt(90), decimal.Zero, day0.AddDate(0, 0, 5))
	require.NoError(t, err)

	h, err := f.holders.GetByWallet(ctx, "W1")
	require.NoError(t, err)
	assert.False(t, h.IsEligible, "snapshot must not flip eligibility back")
}

func TestApplySnapshot_DaysHeldGrows(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	_, err := f.ledger.ApplyTransfer(ctx, buy("tx1", "W1", 100, day0))
	require.NoError(t, err)

	snap, err := f.ledger.ApplySnapshot(ctx, "W1", decimal.NewFromInt(100), decimal.Zero, day0.AddDate(0, 0, 31))
	require.NoError(t, err)
	assert.Equal(t, 31, snap.DaysHeld)
}

func TestApplySnapshot_Archives(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()
	asOf := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	_, err := f.ledger.ApplySnapshot(ctx, "W1", decimal.NewFromInt(10), decimal.Zero, asOf)
	require.NoError(t, err)

	rows, err := f.archive.GetByDateRange(ctx, asOf, asOf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "W1", rows[0].WalletAddress)
	assert.True(t, rows[0].IsEligible)
}

func TestApplySnapshot_ArchiveFailureIsNonFatal(t *testing.T) {
	f := newFixtures()
	f.ledger = New(Options{
		Holders:   f.holders,
		Transfers: f.transfers,
		Snapshots: f.snapshots,
		Archive:   failingArchive{},
	})

	_, err := f.ledger.ApplySnapshot(context.Background(), "W1", decimal.NewFromInt(10), decimal.Zero, day0)
	require.NoError(t, err)

	_, err = f.snapshots.GetByWalletAndDate(context.Background(), "W1", day0)
	assert.NoError(t, err, "primary snapshot must land even when archiving fails")
}

type failingArchive struct{}

func (failingArchive) ArchiveBulk(context.Context, []*domain.ArchivedSnapshot) error {
	return errors.New("clickhouse down")
}

func (failingArchive) GetByDateRange(context.Context, time.Time, time.Time) ([]*domain.ArchivedSnapshot, error) {
	return nil, errors.New("clickhouse down")
}

func TestApplyHolderHistory_FirstDateMovesEarlierOnly(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	_, err := f.ledger.ApplyTransfer(ctx, buy("tx1", "W1", 100, day0))
	require.NoError(t, err)

	earlier := day0.AddDate(0, 0, -20)
	err = f.ledger.ApplyHolderHistory(ctx, HolderHistory{
		Wallet:    "W1",
		Balance:   decimal.NewFromInt(100),
		FirstDate: earlier,
		LastDate:  day0,
	})
	require.NoError(t, err)

	h, err := f.holders.GetByWallet(ctx, "W1")
	require.NoError(t, err)
	assert.Equal(t, earlier, h.FirstSeenDate)

	// A later first date from a lossier provider must not shrink the window
	err = f.ledger.ApplyHolderHistory(ctx, HolderHistory{
		Wallet:    "W1",
		Balance:   decimal.NewFromInt(100),
		FirstDate: day0.AddDate(0, 0, 5),
		LastDate:  day0.AddDate(0, 0, 5),
	})
	require.NoError(t, err)

	h, err = f.holders.GetByWallet(ctx, "W1")
	require.NoError(t, err)
	assert.Equal(t, earlier, h.FirstSeenDate)
}

func TestApplyHolderHistory_OutboundRevokes(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	err := f.ledger.ApplyHolderHistory(ctx, HolderHistory{
		Wallet:    "W1",
		Balance:   decimal.NewFromInt(50),
		FirstDate: day0,
		LastDate:  day0,
		OutAmount: decimal.NewFromInt(25),
	})
	require.NoError(t, err)

	h, err := f.holders.GetByWallet(ctx, "W1")
	require.NoError(t, err)
	assert.False(t, h.IsEligible)
}

func TestEligibleHolders_FiltersByHoldingDays(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	_, err := f.ledger.ApplyTransfer(ctx, buy("tx1", "W1", 100, day0))
	require.NoError(t, err)
	_, err = f.ledger.ApplyTransfer(ctx, buy("tx2", "W2", 100, day0.AddDate(0, 0, 20)))
	require.NoError(t, err)

	eligible, err := f.ledger.EligibleHolders(ctx, 30, day0.AddDate(0, 0, 31))
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, "W1", eligible[0].WalletAddress)
}

func TestHolderRank(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	_, err := f.ledger.ApplyTransfer(ctx, buy("tx1", "W1", 100, day0))
	require.NoError(t, err)
	_, err = f.ledger.ApplyTransfer(ctx, buy("tx2", "W2", 300, day0))
	require.NoError(t, err)
	_, err = f.ledger.ApplyTransfer(ctx, buy("tx3", "W3", 200, day0))
	require.NoError(t, err)

	rank, err := f.ledger.HolderRank(ctx, "W2")
	require.NoError(t, err)
	assert.Equal(t, 1, rank)

	rank, err = f.ledger.HolderRank(ctx, "W3")
	require.NoError(t, err)
	assert.Equal(t, 2, rank)

	rank, err = f.ledger.HolderRank(ctx, "W1")
	require.NoError(t, err)
	assert.Equal(t, 3, rank)

	_, err = f.ledger.HolderRank(ctx, "W9")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestHolderRank_TieBreaksOnFirstSeenThenWallet(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	_, err := f.ledger.ApplyTransfer(ctx, buy("tx1", "WB", 100, day0.AddDate(0, 0, 1)))
	require.NoError(t, err)
	_, err = f.ledger.ApplyTransfer(ctx, buy("tx2", "WA", 100, day0))
	require.NoError(t, err)
	_, err = f.ledger.ApplyTransfer(ctx, buy("tx3", "WC", 100, day0.AddDate(0, 0, 1)))
	require.NoError(t, err)

	rank, err := f.ledger.HolderRank(ctx, "WA")
	require.NoError(t, err)
	assert.Equal(t, 1, rank, "earlier first seen wins the tie")

	rank, err = f.ledger.HolderRank(ctx, "WB")
	require.NoError(t, err)
	assert.Equal(t, 2, rank, "equal dates fall back to wallet order")

	rank, err = f.ledger.HolderRank(ctx, "WC")
	require.NoError(t, err)
	assert.Equal(t, 3, rank)
}

func TestHolderStatus(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()
	asOf := day0.AddDate(0, 0, 31)

	s, err := f.ledger.HolderStatus(ctx, "W9", 30, asOf)
	require.NoError(t, err)
	assert.False(t, s.Qualifies)
	assert.Equal(t, "wallet not found", s.Reason)

	_, err = f.ledger.ApplyTransfer(ctx, buy("tx1", "W1", 100, day0))
	require.NoError(t, err)
	s, err = f.ledger.HolderStatus(ctx, "W1", 30, asOf)
	require.NoError(t, err)
	assert.True(t, s.Qualifies)
	assert.Equal(t, "eligible", s.Reason)
	assert.Equal(t, 31, s.HoldingDays)

	s, err = f.ledger.HolderStatus(ctx, "W1", 40, asOf)
	require.NoError(t, err)
	assert.False(t, s.Qualifies)
	assert.Equal(t, "need 9 more days", s.Reason)
	assert.Equal(t, 9, s.DaysRemaining)

	_, err = f.ledger.ApplyTransfer(ctx, sell("tx2", "W1", 1, asOf))
	require.NoError(t, err)
	s, err = f.ledger.HolderStatus(ctx, "W1", 30, asOf)
	require.NoError(t, err)
	assert.False(t, s.Qualifies)
	assert.Equal(t, "previously sold tokens", s.Reason)

	_, err = f.ledger.ApplyTransfer(ctx, sell("tx3", "W1", 99, asOf))
	require.NoError(t, err)
	s, err = f.ledger.HolderStatus(ctx, "W1", 30, asOf)
	require.NoError(t, err)
	assert.Equal(t, "no tokens held", s.Reason)
}

func TestTransferHistory(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	tx1 := buy("tx1", "W1", 100, day0)
	tx1.Slot = 10
	tx2 := sell("tx2", "W1", 20, day0.AddDate(0, 0, 1))
	tx2.Slot = 20
	for _, tx := range []*domain.TokenTransfer{tx2, tx1} {
		_, err := f.ledger.ApplyTransfer(ctx, tx)
		require.NoError(t, err)
	}

	history, err := f.ledger.TransferHistory(ctx, "W1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "tx1", history[0].TxHash, "oldest slot first")
	assert.Equal(t, "tx2", history[1].TxHash)
}

func TestReinstate(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()

	_, err := f.ledger.ApplyTransfer(ctx, buy("tx1", "W1", 100, day0))
	require.NoError(t, err)
	_, err = f.ledger.ApplyTransfer(ctx, sell("tx2", "W1", 1, day0.AddDate(0, 0, 1)))
	require.NoError(t, err)

	require.NoError(t, f.ledger.Reinstate(ctx, "W1"))

	h, err := f.holders.GetByWallet(ctx, "W1")
	require.NoError(t, err)
	assert.True(t, h.IsEligible)

	err = f.ledger.Reinstate(ctx, "W9")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
