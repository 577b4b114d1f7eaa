// Package main runs the holder tracking service: delta transfer sync,
// daily snapshots, snapshot cleanup, and the metrics/health endpoint.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"holder-rewards/internal/config"
	"holder-rewards/internal/ledger"
	"holder-rewards/internal/observability"
	"holder-rewards/internal/price"
	"holder-rewards/internal/provider"
	"holder-rewards/internal/scheduler"
	"holder-rewards/internal/storage"
	chstore "holder-rewards/internal/storage/clickhouse"
	"holder-rewards/internal/storage/migrations"
	pgstore "holder-rewards/internal/storage/postgres"
	"holder-rewards/internal/units"
)

func main() {
	configFile := flag.String("config", "", "Path to config.yaml (default: search . and config/)")
	envPath := flag.String("env-path", "", "Directory holding .env files (default: config/)")
	flag.Parse()

	cfg, err := config.Load(*configFile, *envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.Database.DSN())
	if err != nil {
		log.WithError(err).Fatal("connect to postgres")
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		log.WithError(err).Fatal("run postgres migrations")
	}

	// ClickHouse archive is optional
	var archive storage.SnapshotArchiveStore
	if cfg.ClickHouse.Enabled {
		chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			log.WithError(err).Fatal("run clickhouse migrations")
		}
		defer chConn.Close()
		archive = chstore.NewSnapshotArchiveStore(chConn)
	}

	adapter, err := buildAdapter(cfg)
	if err != nil {
		log.WithError(err).Fatal("build provider adapter")
	}

	led := ledger.New(ledger.Options{
		Holders:   pgstore.NewHolderStore(pool),
		Transfers: pgstore.NewTransferStore(pool),
		Snapshots: pgstore.NewSnapshotStore(pool),
		Archive:   archive,
		Logger:    log,
	})

	priceChain := price.NewChain(log,
		price.NewDexScreener(""),
		price.NewBirdeye("", cfg.Price.BirdeyeAPIKey),
		price.NewRaydium(""),
	)

	var pokes <-chan struct{}
	if cfg.Provider.WSURL != "" && cfg.Provider.Name == provider.KeyHelius {
		wake := provider.NewWSWakeSource(cfg.Provider.WSURL, cfg.Provider.Token, nil, log)
		go wake.Run(ctx)
		defer wake.Close()
		pokes = wake.Pokes()
	}

	sched := scheduler.New(scheduler.Options{
		Config: scheduler.Config{
			Token:             cfg.Provider.Token,
			DeltaInterval:     cfg.Sync.DeltaInterval,
			HistoryInterval:   cfg.Sync.HistoryInterval,
			SnapshotSpec:      cfg.Sync.SnapshotSpec,
			CleanupSpec:       cfg.Sync.CleanupSpec,
			SnapshotRetention: cfg.Sync.SnapshotRetention,
			HolderPageSize:    cfg.Sync.HolderPageSize,
		},
		Adapter:    adapter,
		Ledger:     led,
		Cursors:    pgstore.NewCursorStore(pool),
		Snapshots:  pgstore.NewSnapshotStore(pool),
		Normalizer: units.NewNormalizer(adapter, log),
		Price:      priceChain,
		Pokes:      pokes,
		Logger:     log,
	})

	if err := sched.Start(ctx); err != nil {
		log.WithError(err).Fatal("start scheduler")
	}

	go serveHTTP(ctx, cfg, sched, log)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.WithField("signal", sig.String()).Info("shutting down")

	cancel()
	stopped := make(chan struct{})
	go func() {
		sched.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timed out")
	}
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func buildAdapter(cfg *config.Config) (provider.Adapter, error) {
	switch cfg.Provider.Name {
	case provider.KeyHelius:
		return provider.NewHelius(cfg.Provider.RPCURL, cfg.Provider.Token), nil
	case provider.KeyTatum:
		return provider.NewTatum(provider.TatumOptions{
			APIKey: cfg.Provider.APIKey,
			Chain:  cfg.Provider.Chain,
			Token:  cfg.Provider.Token,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
	}
}

func serveHTTP(ctx context.Context, cfg *config.Config, sched *scheduler.Scheduler, log *logrus.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "running",
			"tasks":  sched.TaskStates(),
		})
	})

	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		// The cycle outlives the request; tie it to the service context
		if err := sched.TriggerSnapshot(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("snapshot triggered"))
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.WithField("addr", addr).Info("http server listening")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("http server failed")
	}
}
