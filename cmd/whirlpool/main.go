package main

import (
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/sugawarayuuta/sonnet"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "whirlpool",
		Short:        "Concentrated liquidity swap executor",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load pools, token accounts and tick arrays from a fixture",
		RunE:  runSeed,
	}
	addStoreFlags(seedCmd)
	seedCmd.Flags().String("in", "", "fixture JSON path")
	root.AddCommand(seedCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Simulate a swap without settling it",
		RunE:  runQuote,
	}
	addStoreFlags(quoteCmd)
	addSwapFlags(quoteCmd)
	root.AddCommand(quoteCmd)

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Execute a swap against one pool",
		RunE:  runSwap,
	}
	addStoreFlags(swapCmd)
	addSwapFlags(swapCmd)
	root.AddCommand(swapCmd)

	twoHopCmd := &cobra.Command{
		Use:   "two-hop-swap",
		Short: "Execute a swap routed through two pools",
		RunE:  runTwoHopSwap,
	}
	addStoreFlags(twoHopCmd)
	twoHopCmd.Flags().String("pool-one", "", "first pool address")
	twoHopCmd.Flags().String("pool-two", "", "second pool address")
	twoHopCmd.Flags().String("owner-one-a", "", "token A account of the first pool's trader")
	twoHopCmd.Flags().String("owner-one-b", "", "token B account of the first pool's trader")
	twoHopCmd.Flags().String("owner-two-a", "", "token A account of the second pool's trader")
	twoHopCmd.Flags().String("owner-two-b", "", "token B account of the second pool's trader")
	twoHopCmd.Flags().StringSlice("tick-arrays-one", nil, "tick array addresses of the first pool (derived when empty)")
	twoHopCmd.Flags().StringSlice("tick-arrays-two", nil, "tick array addresses of the second pool (derived when empty)")
	twoHopCmd.Flags().Uint64("amount", 0, "amount in (exact in) or out (exact out)")
	twoHopCmd.Flags().Uint64("threshold", 0, "minimum out (exact in) or maximum in (exact out)")
	twoHopCmd.Flags().String("limit-one", "", "sqrt price limit of the first hop (decimal, min or max)")
	twoHopCmd.Flags().String("limit-two", "", "sqrt price limit of the second hop (decimal, min or max)")
	twoHopCmd.Flags().Bool("a-to-b-one", false, "first hop trades token A for token B")
	twoHopCmd.Flags().Bool("a-to-b-two", false, "second hop trades token A for token B")
	twoHopCmd.Flags().Bool("exact-in", true, "amount is the input amount")
	twoHopCmd.Flags().Uint64("timestamp", 0, "swap timestamp in unix seconds, 0 means now")
	root.AddCommand(twoHopCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the swap journal per pool",
		RunE:  runStats,
	}
	addStoreFlags(statsCmd)
	statsCmd.Flags().String("source", "journal", "record source: journal (JSONL file) or store (sqlite swap table)")
	statsCmd.Flags().String("window", "0s", "aggregation window (e.g. 1m, 5m, 1h), 0 for one summary per pool")
	statsCmd.Flags().String("from", "", "skip records before this timestamp (unix seconds or RFC3339)")
	statsCmd.Flags().Bool("with-tvl", false, "attach current vault balances from the store")
	root.AddCommand(statsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", "file", "store backend (file, postgres, sqlite)")
	cmd.Flags().String("snapshot", "./data/state.json", "file backend snapshot path")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("sqlite-path", "./data/whirlpools.db", "SQLite database path")
	cmd.Flags().String("journal", "./data/swaps.jsonl", "swap journal JSONL path")
	cmd.Flags().Int("max-retries", 5, "maximum commit retry attempts")
	cmd.Flags().Duration("retry-backoff", 100*time.Millisecond, "initial commit retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func addSwapFlags(cmd *cobra.Command) {
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().String("owner-a", "", "trader token A account")
	cmd.Flags().String("owner-b", "", "trader token B account")
	cmd.Flags().StringSlice("tick-arrays", nil, "tick array addresses (derived when empty)")
	cmd.Flags().Uint64("amount", 0, "amount in (exact in) or out (exact out)")
	cmd.Flags().Uint64("threshold", 0, "minimum out (exact in) or maximum in (exact out)")
	cmd.Flags().String("limit", "", "sqrt price limit (decimal, min or max); defaults to the bound in the swap direction")
	cmd.Flags().Bool("a-to-b", false, "trade token A for token B")
	cmd.Flags().Bool("exact-in", true, "amount is the input amount")
	cmd.Flags().Uint64("timestamp", 0, "swap timestamp in unix seconds, 0 means now")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func writeJSON(w io.Writer, v any) error {
	data, err := sonnet.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
