package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"whirlpools/internal/config"
	"whirlpools/internal/executor"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	return runSingle(cmd, true)
}

func runSwap(cmd *cobra.Command, _ []string) error {
	return runSingle(cmd, false)
}

func runSingle(cmd *cobra.Command, quote bool) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	params, err := swapParams(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, journal, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	exec := executor.New(store, journal, logger)
	exec.SetRetry(cfg.Store.MaxRetries, cfg.Store.RetryBackoff)
	var res executor.SwapResult
	if quote {
		res, err = exec.Quote(ctx, params)
	} else {
		res, err = exec.Swap(ctx, params)
	}
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), res)
}

func swapParams(cfg config.SwapConfig) (executor.SwapParams, error) {
	pool, err := parseHash("pool", cfg.Pool)
	if err != nil {
		return executor.SwapParams{}, err
	}
	ownerA, err := parseHash("owner-a", cfg.OwnerA)
	if err != nil {
		return executor.SwapParams{}, err
	}
	ownerB, err := parseHash("owner-b", cfg.OwnerB)
	if err != nil {
		return executor.SwapParams{}, err
	}
	tickArrays, err := parseHashes("tick-arrays", cfg.TickArrays)
	if err != nil {
		return executor.SwapParams{}, err
	}
	limit, err := parseLimit(cfg.Limit, cfg.AToB)
	if err != nil {
		return executor.SwapParams{}, err
	}

	return executor.SwapParams{
		Whirlpool:              pool,
		TokenOwnerAccountA:     ownerA,
		TokenOwnerAccountB:     ownerB,
		TickArrays:             tickArrays,
		Amount:                 cfg.Amount,
		OtherAmountThreshold:   cfg.Threshold,
		SqrtPriceLimit:         limit,
		AmountSpecifiedIsInput: cfg.ExactIn,
		AToB:                   cfg.AToB,
		Timestamp:              cfg.Timestamp,
	}, nil
}

func runTwoHopSwap(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadTwoHop(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	params, err := twoHopParams(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, journal, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	logger.Debug("two hop swap start",
		zap.String("pool_one", params.WhirlpoolOne.Hex()),
		zap.String("pool_two", params.WhirlpoolTwo.Hex()),
		zap.Uint64("amount", params.Amount),
	)
	exec := executor.New(store, journal, logger)
	exec.SetRetry(cfg.Store.MaxRetries, cfg.Store.RetryBackoff)
	res, err := exec.TwoHopSwap(ctx, params)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), res)
}

func twoHopParams(cfg config.TwoHopConfig) (executor.TwoHopSwapParams, error) {
	var p executor.TwoHopSwapParams
	hashes := []struct {
		name  string
		value string
		dst   *common.Hash
	}{
		{"pool-one", cfg.PoolOne, &p.WhirlpoolOne},
		{"pool-two", cfg.PoolTwo, &p.WhirlpoolTwo},
		{"owner-one-a", cfg.OwnerOneA, &p.TokenOwnerAccountOneA},
		{"owner-one-b", cfg.OwnerOneB, &p.TokenOwnerAccountOneB},
		{"owner-two-a", cfg.OwnerTwoA, &p.TokenOwnerAccountTwoA},
		{"owner-two-b", cfg.OwnerTwoB, &p.TokenOwnerAccountTwoB},
	}
	for _, h := range hashes {
		parsed, err := parseHash(h.name, h.value)
		if err != nil {
			return p, err
		}
		*h.dst = parsed
	}

	var err error
	if p.TickArraysOne, err = parseHashes("tick-arrays-one", cfg.TickArraysOne); err != nil {
		return p, err
	}
	if p.TickArraysTwo, err = parseHashes("tick-arrays-two", cfg.TickArraysTwo); err != nil {
		return p, err
	}
	if p.SqrtPriceLimitOne, err = parseLimit(cfg.LimitOne, cfg.AToBOne); err != nil {
		return p, fmt.Errorf("limit-one: %w", err)
	}
	if p.SqrtPriceLimitTwo, err = parseLimit(cfg.LimitTwo, cfg.AToBTwo); err != nil {
		return p, fmt.Errorf("limit-two: %w", err)
	}

	p.Amount = cfg.Amount
	p.OtherAmountThreshold = cfg.Threshold
	p.AmountSpecifiedIsInput = cfg.ExactIn
	p.AToBOne = cfg.AToBOne
	p.AToBTwo = cfg.AToBTwo
	p.Timestamp = cfg.Timestamp
	return p, nil
}
