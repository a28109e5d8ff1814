package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"whirlpools/internal/aggregate"
	"whirlpools/internal/config"
	"whirlpools/internal/storage"
	"whirlpools/internal/storage/sqlite"
)

func runStats(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadStats(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	fromStore := cfg.Source == "store"
	switch {
	case cfg.Source != "journal" && !fromStore:
		return fmt.Errorf("unsupported source %q", cfg.Source)
	case fromStore && cfg.Store.Backend != config.BackendSQLite:
		return fmt.Errorf("source store requires the sqlite backend")
	case !fromStore && cfg.Journal == "":
		return fmt.Errorf("journal path is required")
	}
	windowSeconds, err := config.ParseWindow(cfg.Window)
	if err != nil {
		return fmt.Errorf("invalid window: %w", err)
	}
	from, err := config.ParseTimestamp(cfg.From)
	if err != nil {
		return fmt.Errorf("parse from: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggCfg := aggregate.Config{WindowSeconds: windowSeconds, From: from}
	if fromStore {
		db, err := sqlite.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		records, err := db.SwapRecords(ctx)
		if err != nil {
			return err
		}
		var store storage.Store
		if cfg.WithTVL {
			store = db
		}
		summaries, err := aggregate.NewAggregator(aggCfg, store, logger).RunRecords(ctx, records)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), summaries)
	}

	var store storage.Store
	if cfg.WithTVL {
		s, _, err := openStore(ctx, cfg.Store, logger)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	agg := aggregate.NewAggregator(aggCfg, store, logger)
	summaries, err := agg.Run(ctx, cfg.Journal)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), summaries)
}
