// Package main runs one full-population snapshot cycle and exits. Useful
// for seeding a fresh deployment and for external cron setups that prefer
// a one-shot binary over the built-in scheduler.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"holder-rewards/internal/config"
	"holder-rewards/internal/ledger"
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
	timeout := flag.Duration("timeout", 30*time.Minute, "Overall run timeout")
	flag.Parse()

	cfg, err := config.Load(*configFile, *envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logrus.New()
	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.Database.DSN())
	if err != nil {
		log.WithError(err).Fatal("connect to postgres")
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		log.WithError(err).Fatal("run postgres migrations")
	}

	var archive storage.SnapshotArchiveStore
	if cfg.ClickHouse.Enabled {
		chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			log.WithError(err).Fatal("run clickhouse migrations")
		}
		defer chConn.Close()
		archive = chstore.NewSnapshotArchiveStore(chConn)
	}

	var adapter provider.Adapter
	switch cfg.Provider.Name {
	case provider.KeyHelius:
		adapter = provider.NewHelius(cfg.Provider.RPCURL, cfg.Provider.Token)
	case provider.KeyTatum:
		adapter = provider.NewTatum(provider.TatumOptions{
			APIKey: cfg.Provider.APIKey,
			Chain:  cfg.Provider.Chain,
			Token:  cfg.Provider.Token,
		})
	default:
		log.Fatalf("unknown provider %q", cfg.Provider.Name)
	}

	led := ledger.New(ledger.Options{
		Holders:   pgstore.NewHolderStore(pool),
		Transfers: pgstore.NewTransferStore(pool),
		Snapshots: pgstore.NewSnapshotStore(pool),
		Archive:   archive,
		Logger:    log,
	})

	sched := scheduler.New(scheduler.Options{
		Config: scheduler.Config{
			Token:          cfg.Provider.Token,
			HolderPageSize: cfg.Sync.HolderPageSize,
		},
		Adapter:    adapter,
		Ledger:     led,
		Cursors:    pgstore.NewCursorStore(pool),
		Snapshots:  pgstore.NewSnapshotStore(pool),
		Normalizer: units.NewNormalizer(adapter, log),
		Price: price.NewChain(log,
			price.NewDexScreener(""),
			price.NewBirdeye("", cfg.Price.BirdeyeAPIKey),
			price.NewRaydium(""),
		),
		Logger: log,
	})

	start := time.Now()
	if err := sched.RunSnapshotOnce(ctx); err != nil {
		log.WithError(err).Fatal("snapshot failed")
	}
	log.WithField("took", time.Since(start).Round(time.Second)).Info("snapshot complete")
}
