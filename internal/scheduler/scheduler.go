// Package scheduler drives periodic ingestion: delta transfer sync, daily
// full-population snapshots, weekly snapshot cleanup, and optional holder
// history backfill. Each task runs its own state machine; overlapping
// ticks are skipped, never queued.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/ledger"
	"holder-rewards/internal/observability"
	"holder-rewards/internal/price"
	"holder-rewards/internal/provider"
	"holder-rewards/internal/storage"
	"holder-rewards/internal/units"
)

// ErrSyncInProgress is returned when a manual trigger finds the task busy.
var ErrSyncInProgress = errors.New("sync already in progress")

// Task names, used in logs and metrics labels.
const (
	TaskDelta    = "delta"
	TaskSnapshot = "snapshot"
	TaskCleanup  = "cleanup"
	TaskHistory  = "history"
)

// Config holds scheduler tuning. Zero values fall back to defaults.
type Config struct {
	// Token is the tracked token mint/contract, used for price lookups.
	Token string

	// DeltaInterval is the transfer sync ticker period. Default 5m.
	DeltaInterval time.Duration

	// HistoryInterval is the holder history ticker period. Default 30m.
	HistoryInterval time.Duration

	// SnapshotSpec is a 6-field cron spec for the daily snapshot.
	// Default "0 0 0 * * *" (midnight UTC).
	SnapshotSpec string

	// CleanupSpec is a 6-field cron spec for snapshot cleanup.
	// Default "0 0 2 * * 0" (Sunday 02:00 UTC).
	CleanupSpec string

	// SnapshotRetention is how long snapshot rows are kept. Default 90 days.
	SnapshotRetention time.Duration

	// HolderPageSize is the page size for full holder enumeration. Default 100.
	HolderPageSize int

	// HistoryLimit caps one holder history fetch. Default 1000.
	HistoryLimit int
}

func (c *Config) applyDefaults() {
	if c.DeltaInterval <= 0 {
		c.DeltaInterval = 5 * time.Minute
	}
	if c.HistoryInterval <= 0 {
		c.HistoryInterval = 30 * time.Minute
	}
	if c.SnapshotSpec == "" {
		c.SnapshotSpec = "0 0 0 * * *"
	}
	if c.CleanupSpec == "" {
		c.CleanupSpec = "0 0 2 * * 0"
	}
	if c.SnapshotRetention <= 0 {
		c.SnapshotRetention = 90 * 24 * time.Hour
	}
	if c.HolderPageSize <= 0 {
		c.HolderPageSize = 100
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 1000
	}
}

// Scheduler owns the ingestion tasks for one provider adapter.
type Scheduler struct {
	cfg        Config
	adapter    provider.Adapter
	history    provider.HolderHistoryProvider // nil when unsupported
	ledger     *ledger.Ledger
	cursors    storage.CursorStore
	snapshots  storage.SnapshotStore
	normalizer *units.Normalizer
	price      price.Source // nil disables USD valuation
	pokes      <-chan struct{}
	log        *logrus.Logger

	deltaTask    *task
	snapshotTask *task
	cleanupTask  *task
	historyTask  *task

	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options wires a Scheduler.
type Options struct {
	Config     Config
	Adapter    provider.Adapter
	Ledger     *ledger.Ledger
	Cursors    storage.CursorStore
	Snapshots  storage.SnapshotStore
	Normalizer *units.Normalizer
	Price      price.Source

	// Pokes delivers wake-up signals between delta ticks, typically from
	// a WebSocket log subscription. Optional.
	Pokes <-chan struct{}

	Logger *logrus.Logger
}

// New creates a Scheduler.
func New(opts Options) *Scheduler {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	opts.Config.applyDefaults()

	s := &Scheduler{
		cfg:        opts.Config,
		adapter:    opts.Adapter,
		ledger:     opts.Ledger,
		cursors:    opts.Cursors,
		snapshots:  opts.Snapshots,
		normalizer: opts.Normalizer,
		price:      opts.Price,
		pokes:      opts.Pokes,
		log:        opts.Logger,

		deltaTask:    newTask(TaskDelta, opts.Logger),
		snapshotTask: newTask(TaskSnapshot, opts.Logger),
		cleanupTask:  newTask(TaskCleanup, opts.Logger),
		historyTask:  newTask(TaskHistory, opts.Logger),
	}
	if hp, ok := opts.Adapter.(provider.HolderHistoryProvider); ok {
		s.history = hp
	}
	return s
}

// Start launches the tickers and cron jobs. Call Stop to shut down.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.cron = cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))
	if _, err := s.cron.AddFunc(s.cfg.SnapshotSpec, func() {
		s.runTask(ctx, s.snapshotTask, s.snapshotCycle)
	}); err != nil {
		return fmt.Errorf("bad snapshot cron spec %q: %w", s.cfg.SnapshotSpec, err)
	}
	if _, err := s.cron.AddFunc(s.cfg.CleanupSpec, func() {
		s.runTask(ctx, s.cleanupTask, s.cleanupCycle)
	}); err != nil {
		return fmt.Errorf("bad cleanup cron spec %q: %w", s.cfg.CleanupSpec, err)
	}
	s.cron.Start()

	s.wg.Add(1)
	go s.deltaLoop(ctx)

	if s.history != nil {
		s.wg.Add(1)
		go s.historyLoop(ctx)
	}

	s.log.WithFields(logrus.Fields{
		"provider":       s.adapter.Name(),
		"delta_interval": s.cfg.DeltaInterval,
		"snapshot_spec":  s.cfg.SnapshotSpec,
		"history":        s.history != nil,
	}).Info("scheduler started")
	return nil
}

// Stop halts the cron jobs and waits for in-flight cycles to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// TriggerSnapshot runs a snapshot cycle outside the cron schedule.
// Returns ErrSyncInProgress when the snapshot task is not idle.
func (s *Scheduler) TriggerSnapshot(ctx context.Context) error {
	if s.snapshotTask.State() != StateIdle {
		return ErrSyncInProgress
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.snapshotTask.run(ctx, s.snapshotCycle)
	}()
	return nil
}

// RunSnapshotOnce executes one snapshot cycle synchronously and returns
// its error. Used by one-shot tooling; the service path goes through cron
// or TriggerSnapshot.
func (s *Scheduler) RunSnapshotOnce(ctx context.Context) error {
	if !s.snapshotTask.state.CompareAndSwap(StateIdle, StateFetching) {
		return ErrSyncInProgress
	}
	defer s.snapshotTask.state.Store(StateIdle)
	return s.snapshotCycle(ctx)
}

// TaskStates reports each task's current state, for health endpoints.
func (s *Scheduler) TaskStates() map[string]string {
	return map[string]string{
		TaskDelta:    StateName(s.deltaTask.State()),
		TaskSnapshot: StateName(s.snapshotTask.State()),
		TaskCleanup:  StateName(s.cleanupTask.State()),
		TaskHistory:  StateName(s.historyTask.State()),
	}
}

func (s *Scheduler) deltaLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.DeltaInterval)
	defer ticker.Stop()

	// Catch up immediately on start instead of waiting out a full period.
	s.runTask(ctx, s.deltaTask, s.deltaCycle)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runTask(ctx, s.deltaTask, s.deltaCycle)
		case <-s.pokes:
			observability.RecordWSPoke()
			s.runTask(ctx, s.deltaTask, s.deltaCycle)
		}
	}
}

func (s *Scheduler) historyLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.HistoryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runTask(ctx, s.historyTask, s.historyCycle)
		}
	}
}

// runTask executes one task cycle and records cycle metrics.
func (s *Scheduler) runTask(ctx context.Context, t *task, fn func(ctx context.Context) error) {
	start := time.Now()
	ran := t.run(ctx, func(ctx context.Context) error {
		return fn(ctx)
	})
	if !ran {
		s.log.WithField("task", t.name).Debug("tick skipped, task busy")
		return
	}

	status := "ok"
	if t.State() == StateBackoff {
		status = "error"
	} else {
		observability.DefaultMetrics.LastSuccessfulSync.
			WithLabelValues(t.name).SetToCurrentTime()
	}
	observability.RecordSyncCycle(t.name, status, time.Since(start).Seconds())
}

// deltaCycle pulls transfers past the stored cursor and applies them. The
// cursor only advances after the whole batch applied, so a mid-batch
// failure replays from the same point and the tx hash check deduplicates.
func (s *Scheduler) deltaCycle(ctx context.Context) error {
	name := s.adapter.Name()

	cur, err := s.cursors.Get(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		// First run: anchor at the chain head rather than backfilling
		// the token's entire history.
		head, err := s.adapter.FetchLatestCursor(ctx)
		if err != nil {
			observability.RecordProviderError(name)
			return fmt.Errorf("fetch latest cursor: %w", err)
		}
		if err := s.cursors.Set(ctx, &domain.SyncCursor{Provider: name, Slot: head}); err != nil {
			return fmt.Errorf("init cursor: %w", err)
		}
		s.log.WithField("slot", head).Info("initialized sync cursor at chain head")
		return nil
	}
	if err != nil {
		return fmt.Errorf("get cursor: %w", err)
	}

	// Providers page newest-first, so the whole window is drained before
	// anything applies. Applying page by page could run a sell ahead of
	// the older buy that funded it; the sell would be skipped as
	// overdrawn and then lost once the cursor advances.
	pager := s.adapter.FetchTransfersSince(ctx, cur.Slot)
	var raws []domain.RawTransfer
	for {
		batch, done, err := pager.Next(ctx)
		if err != nil {
			observability.RecordProviderError(name)
			return fmt.Errorf("fetch transfers: %w", err)
		}
		raws = append(raws, batch...)
		if done {
			break
		}
	}
	s.deltaTask.applying()

	transfers, err := s.normalizeTransfers(ctx, raws)
	if err != nil {
		return err
	}
	sort.Slice(transfers, func(i, j int) bool {
		if transfers[i].Slot != transfers[j].Slot {
			return transfers[i].Slot < transfers[j].Slot
		}
		if transfers[i].Type != transfers[j].Type {
			return transfers[i].Type == domain.TransferTypeBuy
		}
		return transfers[i].TxHash < transfers[j].TxHash
	})

	maxSlot := cur.Slot
	applied := 0
	for _, t := range transfers {
		res, err := s.ledger.ApplyTransfer(ctx, t)
		if err != nil {
			return fmt.Errorf("apply transfer %s: %w", t.TxHash, err)
		}
		observability.RecordTransferApplied(string(res))
		if res == ledger.ResultApplied {
			applied++
		}
		if t.Slot > maxSlot {
			maxSlot = t.Slot
		}
	}

	if maxSlot > cur.Slot {
		if err := s.cursors.Set(ctx, &domain.SyncCursor{Provider: name, Slot: maxSlot}); err != nil {
			return fmt.Errorf("advance cursor: %w", err)
		}
		observability.UpdateCursor(name, maxSlot)
	}
	if applied > 0 {
		s.log.WithFields(logrus.Fields{
			"applied": applied,
			"cursor":  maxSlot,
		}).Info("delta sync applied transfers")
	}
	return nil
}

// normalizeTransfers converts raw provider entries into ledger transfers.
// A transaction that touches several tracked wallets yields one row per
// wallet; those rows get a wallet-suffixed hash key so each stays
// individually idempotent under the unique tx hash constraint.
func (s *Scheduler) normalizeTransfers(ctx context.Context, raws []domain.RawTransfer) ([]*domain.TokenTransfer, error) {
	perTx := make(map[string]int, len(raws))
	for _, r := range raws {
		perTx[r.TxHash]++
	}

	out := make([]*domain.TokenTransfer, 0, len(raws))
	for _, r := range raws {
		amount, err := s.normalizer.Normalize(ctx, r.RawAmount)
		if err != nil {
			return nil, fmt.Errorf("normalize transfer %s: %w", r.TxHash, err)
		}
		if !amount.IsPositive() {
			continue
		}

		key := r.TxHash
		if perTx[r.TxHash] > 1 {
			key = r.TxHash + ":" + r.Wallet
		}

		typ := domain.TransferTypeBuy
		if r.Direction == domain.DirectionOut {
			typ = domain.TransferTypeSell
		}

		out = append(out, &domain.TokenTransfer{
			TxHash:        key,
			WalletAddress: r.Wallet,
			Type:          typ,
			Amount:        amount,
			Slot:          r.Slot,
			Timestamp:     r.Timestamp,
		})
	}
	return out, nil
}

// snapshotCycle enumerates the full holder population and reconciles the
// ledger against it. Price failures degrade USD values to zero but never
// abort the cycle.
func (s *Scheduler) snapshotCycle(ctx context.Context) error {
	asOf := time.Now().UTC()

	tokenPrice := decimal.Zero
	if s.price != nil {
		p, err := s.price.TokenPriceUSD(ctx, s.cfg.Token)
		if err != nil {
			s.log.WithError(err).Warn("price resolution failed, snapshot proceeds without USD values")
		} else {
			tokenPrice = p
		}
	}
	observability.DefaultMetrics.TokenPriceUSD.Set(tokenPrice.InexactFloat64())

	pager := s.adapter.FetchAllHolders(ctx, s.cfg.HolderPageSize)
	count := 0
	for {
		batch, done, err := pager.Next(ctx)
		if err != nil {
			observability.RecordProviderError(s.adapter.Name())
			return fmt.Errorf("fetch holders: %w", err)
		}
		s.snapshotTask.applying()

		for _, rh := range batch {
			balance, err := s.normalizer.Normalize(ctx, rh.RawAmount)
			if err != nil {
				return fmt.Errorf("normalize holder %s: %w", rh.Wallet, err)
			}
			usd := balance.Mul(tokenPrice)
			if _, err := s.ledger.ApplySnapshot(ctx, rh.Wallet, balance, usd, asOf); err != nil {
				return fmt.Errorf("apply snapshot %s: %w", rh.Wallet, err)
			}
			count++
			observability.DefaultMetrics.SnapshotsWritten.Inc()
		}

		if done {
			break
		}
	}

	observability.DefaultMetrics.SnapshotHolderCount.Set(float64(count))
	observability.DefaultMetrics.LastSuccessfulSnapshot.SetToCurrentTime()
	s.log.WithFields(logrus.Fields{
		"holders": count,
		"price":   tokenPrice,
	}).Info("snapshot cycle complete")
	return nil
}

// cleanupCycle deletes snapshot rows past the retention window. Archived
// copies in ClickHouse are unaffected.
func (s *Scheduler) cleanupCycle(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.cfg.SnapshotRetention)
	deleted, err := s.snapshots.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete old snapshots: %w", err)
	}
	if deleted > 0 {
		observability.DefaultMetrics.SnapshotsCleaned.Add(float64(deleted))
		s.log.WithFields(logrus.Fields{
			"deleted": deleted,
			"cutoff":  cutoff.Format("2006-01-02"),
		}).Info("snapshot cleanup complete")
	}
	return nil
}

// historyCycle backfills first-seen dates and retroactive eligibility from
// aggregated provider history.
func (s *Scheduler) historyCycle(ctx context.Context) error {
	raws, err := s.history.FetchHoldersWithHistory(ctx, s.cfg.HistoryLimit)
	if err != nil {
		observability.RecordProviderError(s.adapter.Name())
		return fmt.Errorf("fetch holder history: %w", err)
	}
	s.historyTask.applying()

	for _, rh := range raws {
		balance, err := s.normalizer.Normalize(ctx, rh.RawAmount)
		if err != nil {
			return fmt.Errorf("normalize history %s: %w", rh.Wallet, err)
		}
		out := decimal.Zero
		if rh.OutAmount != "" {
			out, err = s.normalizer.Normalize(ctx, rh.OutAmount)
			if err != nil {
				return fmt.Errorf("normalize history %s: %w", rh.Wallet, err)
			}
		}
		err = s.ledger.ApplyHolderHistory(ctx, ledger.HolderHistory{
			Wallet:    rh.Wallet,
			Balance:   balance,
			FirstDate: rh.FirstDate,
			LastDate:  rh.LastDate,
			OutAmount: out,
		})
		if err != nil {
			return fmt.Errorf("apply history %s: %w", rh.Wallet, err)
		}
	}

	s.log.WithField("holders", len(raws)).Info("holder history cycle complete")
	return nil
}
