package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"whirlpools/internal/config"
	"whirlpools/internal/storage"
)

func runSeed(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSeed(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	fixture, err := storage.ReadFixture(cfg.In)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, _, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	cs, err := fixture.Changeset(ctx, store)
	if err != nil {
		return err
	}
	if err := store.Commit(ctx, cs); err != nil {
		return fmt.Errorf("commit fixture: %w", err)
	}

	logger.Info("seed complete",
		zap.String("in", cfg.In),
		zap.String("backend", cfg.Store.Backend),
		zap.Int("whirlpools", len(cs.Whirlpools)),
		zap.Int("tick_arrays", len(cs.TickArrays)),
		zap.Int("token_accounts", len(cs.TokenAccounts)),
	)
	return nil
}
