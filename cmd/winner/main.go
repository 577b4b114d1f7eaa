// Package main provides the operator CLI for reward selection and holder
// queries: select a monthly winner, list past winners, mark a reward as
// sent, print the leaderboard, or explain one wallet's standing.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"

	"holder-rewards/internal/config"
	"holder-rewards/internal/leaderboard"
	"holder-rewards/internal/ledger"
	"holder-rewards/internal/reward"
	pgstore "holder-rewards/internal/storage/postgres"
	"holder-rewards/internal/wallet"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	command := os.Args[1]

	fs := flag.NewFlagSet(command, flag.ExitOnError)
	configFile := fs.String("config", "", "Path to config.yaml")
	envPath := fs.String("env-path", "", "Directory holding .env files")
	now := time.Now().UTC()
	month := fs.Int("month", int(now.Month()), "Period month (1-12)")
	year := fs.Int("year", now.Year(), "Period year")
	walletAddr := fs.String("wallet", "", "Wallet address")
	limit := fs.Int("limit", 20, "Maximum rows to print")
	fs.Parse(os.Args[2:])

	cfg, err := config.Load(*configFile, *envPath)
	if err != nil {
		fatal("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgstore.NewPool(ctx, cfg.Database.DSN())
	if err != nil {
		fatal("connect to postgres: %v", err)
	}
	defer pool.Close()

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	led := ledger.New(ledger.Options{
		Holders:   pgstore.NewHolderStore(pool),
		Transfers: pgstore.NewTransferStore(pool),
		Snapshots: pgstore.NewSnapshotStore(pool),
		Logger:    log,
	})
	settings := pgstore.NewSettingStore(pool)
	selector := reward.NewSelector(reward.Options{
		Ledger:      led,
		Winners:     pgstore.NewWinnerStore(pool),
		Settings:    settings,
		Logger:      log,
		MinHoldDays: cfg.Reward.MinHoldDays,
	})

	switch command {
	case "select":
		runSelect(ctx, selector, *month, *year)
	case "list":
		runList(ctx, selector, *limit)
	case "mark-sent":
		runMarkSent(ctx, selector, *month, *year)
	case "leaderboard":
		runLeaderboard(ctx, leaderboard.NewRanker(pgstore.NewHolderStore(pool), settings, log), *limit)
	case "status":
		runStatus(ctx, led, cfg.Reward.MinHoldDays, *walletAddr)
	case "history":
		runHistory(ctx, led, *walletAddr)
	default:
		usage()
		os.Exit(2)
	}
}

func runSelect(ctx context.Context, selector *reward.Selector, month, year int) {
	w, err := selector.SelectWinner(ctx, month, year)
	if err != nil {
		var already *reward.AlreadySelectedError
		if errors.As(err, &already) {
			fmt.Printf("Winner for %s was already selected: %s (on %s)\n",
				already.Existing.PeriodDisplay(),
				already.Existing.WalletAddress,
				already.Existing.SelectedAt.Format("2006-01-02"))
			return
		}
		if errors.Is(err, reward.ErrNoEligibleHolders) {
			fatal("no eligible holders for %d/%d", month, year)
		}
		fatal("select winner: %v", err)
	}

	fmt.Printf("Winner for %s: %s\n", w.PeriodDisplay(), w.WalletAddress)
	fmt.Printf("  holding days: %d\n", w.HoldingDaysAtSelection)
	fmt.Printf("  balance:      %s\n", w.BalanceAtSelection)
}

func runList(ctx context.Context, selector *reward.Selector, limit int) {
	winners, err := selector.RecentWinners(ctx, limit)
	if err != nil {
		fatal("list winners: %v", err)
	}
	if len(winners) == 0 {
		fmt.Println("No winners recorded yet.")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PERIOD\tWALLET\tDAYS\tBALANCE\tREWARD SENT")
	for _, w := range winners {
		sent := "no"
		if w.RewardSent {
			sent = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			w.PeriodDisplay(), w.WalletAddress, w.HoldingDaysAtSelection, w.BalanceAtSelection, sent)
	}
	tw.Flush()
}

func runMarkSent(ctx context.Context, selector *reward.Selector, month, year int) {
	if err := selector.MarkRewardSent(ctx, month, year); err != nil {
		fatal("mark reward sent: %v", err)
	}
	fmt.Printf("Reward for %d/%d marked as sent.\n", month, year)
}

func runLeaderboard(ctx context.Context, ranker *leaderboard.Ranker, limit int) {
	entries, err := ranker.Rank(ctx, limit)
	if err != nil {
		fatal("leaderboard: %v", err)
	}
	if len(entries) == 0 {
		fmt.Println("No holders to rank.")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tWALLET\tDAYS\tBALANCE\tUSD\tELIGIBLE")
	for _, e := range entries {
		eligible := "yes"
		if !e.Eligible {
			eligible = "no"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n",
			e.Rank, e.WalletAddress, e.HoldingDays, e.Balance, e.USDValue.StringFixed(2), eligible)
	}
	tw.Flush()
}

func runStatus(ctx context.Context, led *ledger.Ledger, minDays int, addr string) {
	requireWallet(addr)

	s, err := led.HolderStatus(ctx, addr, minDays, time.Now().UTC())
	if err != nil {
		fatal("holder status: %v", err)
	}

	fmt.Printf("Wallet:       %s\n", s.WalletAddress)
	fmt.Printf("Balance:      %s\n", s.Balance)
	fmt.Printf("Holding days: %d\n", s.HoldingDays)
	fmt.Printf("Status:       %s\n", s.Reason)

	if s.Qualifies {
		if rank, err := led.HolderRank(ctx, addr); err == nil {
			fmt.Printf("Rank:         #%d\n", rank)
		}
	}
}

func runHistory(ctx context.Context, led *ledger.Ledger, addr string) {
	requireWallet(addr)

	transfers, err := led.TransferHistory(ctx, addr)
	if err != nil {
		fatal("transfer history: %v", err)
	}
	if len(transfers) == 0 {
		fmt.Println("No transfers recorded for this wallet.")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTYPE\tAMOUNT\tSLOT\tTX")
	for _, tr := range transfers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			tr.Timestamp.UTC().Format("2006-01-02 15:04:05"), tr.Type, tr.Amount, tr.Slot, tr.TxHash)
	}
	tw.Flush()
}

func requireWallet(addr string) {
	if addr == "" {
		fatal("-wallet is required")
	}
	if !wallet.IsValid(addr) {
		fatal("invalid wallet address %q", addr)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: winner <command> [flags]

Commands:
  select       Draw the winner for a period (-month, -year)
  list         List recent winners (-limit)
  mark-sent    Mark a period's reward as paid (-month, -year)
  leaderboard  Print the holder leaderboard (-limit)
  status       Explain one wallet's standing (-wallet)
  history      Print a wallet's recorded transfers (-wallet)`)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
