package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"whirlpools/internal/config"
	"whirlpools/internal/model"
	"whirlpools/internal/storage"
	"whirlpools/internal/storage/postgres"
	"whirlpools/internal/storage/sqlite"
)

// openStore opens the configured backend. Database backends also journal
// into their own swap table next to the JSONL journal.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (storage.Store, storage.Journal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	var journals teeJournal
	if cfg.Journal != "" {
		journals = append(journals, storage.NewJsonlJournal(cfg.Journal))
	}

	switch cfg.Backend {
	case config.BackendPostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		store.SetRetry(cfg.MaxRetries, cfg.RetryBackoff)
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		logger.Debug("store open", zap.String("backend", cfg.Backend))
		return store, append(journals, store), nil
	case config.BackendSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Debug("store open", zap.String("backend", cfg.Backend), zap.String("path", cfg.SQLitePath))
		return store, append(journals, store), nil
	default:
		store, err := storage.OpenFileStore(cfg.Snapshot)
		if err != nil {
			return nil, nil, fmt.Errorf("open snapshot: %w", err)
		}
		logger.Debug("store open", zap.String("backend", cfg.Backend), zap.String("path", cfg.Snapshot))
		return store, journals, nil
	}
}

// teeJournal writes every batch to each journal and joins the failures.
type teeJournal []storage.Journal

func (t teeJournal) PutSwapBatch(records []model.SwapRecord) error {
	var errs []error
	for _, j := range t {
		if err := j.PutSwapBatch(records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
