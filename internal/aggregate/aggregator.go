package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sugawarayuuta/sonnet"
	"go.uber.org/zap"

	"whirlpools/internal/model"
	"whirlpools/internal/storage"
)

// Config controls aggregation behavior.
type Config struct {
	// WindowSeconds splits each pool's records into fixed windows. Zero
	// keeps one summary per pool.
	WindowSeconds uint64
	// From skips records with an earlier timestamp.
	From uint64
}

// PoolSummary is the aggregate of one pool window.
type PoolSummary struct {
	Whirlpool     common.Hash `json:"whirlpool"`
	WindowStart   uint64      `json:"window_start,omitempty"`
	WindowEnd     uint64      `json:"window_end,omitempty"`
	SwapCount     uint64      `json:"swap_count"`
	FailedCount   uint64      `json:"failed_count"`
	VolumeA       string      `json:"volume_a"`
	VolumeB       string      `json:"volume_b"`
	FirstTS       uint64      `json:"first_ts"`
	LastTS        uint64      `json:"last_ts"`
	LastSqrtPrice string      `json:"last_sqrt_price"`
	LastPrice     string      `json:"last_price,omitempty"`
	LastTick      int32       `json:"last_tick"`
	LastLiquidity string      `json:"last_liquidity"`
	TVLA          *uint64     `json:"tvl_a,omitempty"`
	TVLB          *uint64     `json:"tvl_b,omitempty"`
	TVLMethod     string      `json:"tvl_method,omitempty"`
}

type accKey struct {
	whirlpool   common.Hash
	windowStart uint64
}

// grouper assigns records to per pool window accumulators.
type grouper struct {
	windowSeconds uint64
	accumulators  map[accKey]*Accumulator
}

func newGrouper(windowSeconds uint64) *grouper {
	return &grouper{
		windowSeconds: windowSeconds,
		accumulators:  make(map[accKey]*Accumulator),
	}
}

func (g *grouper) add(record model.SwapRecord) error {
	start := windowStart(record.Timestamp, g.windowSeconds)
	key := accKey{whirlpool: record.Whirlpool, windowStart: start}
	acc := g.accumulators[key]
	if acc == nil {
		acc = NewAccumulator(record, start, windowEnd(start, g.windowSeconds))
		g.accumulators[key] = acc
	}
	return acc.AddRecord(record)
}

// sorted returns the accumulators ordered by pool then window.
func (g *grouper) sorted() []*Accumulator {
	out := make([]*Accumulator, 0, len(g.accumulators))
	for _, acc := range g.accumulators {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].Whirlpool[:], out[j].Whirlpool[:]); c != 0 {
			return c < 0
		}
		return out[i].WindowStart < out[j].WindowStart
	})
	return out
}

// Summarize groups journal records per pool.
func Summarize(records []model.SwapRecord) ([]PoolSummary, error) {
	g := newGrouper(0)
	for i, record := range records {
		if err := g.add(record); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	accs := g.sorted()
	out := make([]PoolSummary, 0, len(accs))
	for _, acc := range accs {
		out = append(out, summary(acc))
	}
	return out, nil
}

func summary(acc *Accumulator) PoolSummary {
	return PoolSummary{
		Whirlpool:     acc.Whirlpool,
		WindowStart:   acc.WindowStart,
		WindowEnd:     acc.WindowEnd,
		SwapCount:     acc.SwapCount,
		FailedCount:   acc.FailedCount,
		VolumeA:       acc.VolumeA.String(),
		VolumeB:       acc.VolumeB.String(),
		FirstTS:       acc.FirstTS,
		LastTS:        acc.LastTS,
		LastSqrtPrice: acc.LastSqrtPrice,
		LastPrice:     priceFromSqrt(acc.LastSqrtPrice),
		LastTick:      acc.LastTick,
		LastLiquidity: acc.LastLiquidity,
	}
}

// Aggregator summarizes a swap journal file, optionally attaching the
// current vault balances of every pool.
type Aggregator struct {
	cfg    Config
	store  storage.Store
	logger *zap.Logger
}

// NewAggregator builds an Aggregator. store may be nil.
func NewAggregator(cfg Config, store storage.Store, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{cfg: cfg, store: store, logger: logger}
}

// Run aggregates a JSONL swap journal. Lines that fail to decode are logged
// and skipped.
func (a *Aggregator) Run(ctx context.Context, inputPath string) ([]PoolSummary, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	g := newGrouper(a.cfg.WindowSeconds)
	var total, used, skipped, failed int

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.SwapRecord
		if err := sonnet.Unmarshal(line, &record); err != nil {
			failed++
			a.logger.Warn("decode swap record", zap.Int("line", total), zap.Error(err))
			continue
		}
		if record.Timestamp < a.cfg.From {
			skipped++
			continue
		}
		if err := g.add(record); err != nil {
			failed++
			a.logger.Warn("aggregate swap record", zap.String("tx_id", record.TxID), zap.Error(err))
			continue
		}
		used++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}

	out, err := a.summaries(ctx, g)
	if err != nil {
		return nil, err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("used", used),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Int("summaries", len(out)),
	)
	return out, nil
}

// RunRecords aggregates records already loaded from a store. Unlike Run it
// fails on the first record it cannot aggregate.
func (a *Aggregator) RunRecords(ctx context.Context, records []model.SwapRecord) ([]PoolSummary, error) {
	g := newGrouper(a.cfg.WindowSeconds)
	var used int
	for i, record := range records {
		if record.Timestamp < a.cfg.From {
			continue
		}
		if err := g.add(record); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		used++
	}
	out, err := a.summaries(ctx, g)
	if err != nil {
		return nil, err
	}
	a.logger.Info("aggregate complete",
		zap.Int("total", len(records)),
		zap.Int("used", used),
		zap.Int("summaries", len(out)),
	)
	return out, nil
}

func (a *Aggregator) summaries(ctx context.Context, g *grouper) ([]PoolSummary, error) {
	accs := g.sorted()
	out := make([]PoolSummary, 0, len(accs))
	tvl := make(map[common.Hash]PoolSummary)
	for _, acc := range accs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := summary(acc)
		if a.store != nil {
			cached, ok := tvl[acc.Whirlpool]
			if !ok {
				cached = a.attachTVL(ctx, acc.Whirlpool)
				tvl[acc.Whirlpool] = cached
			}
			s.TVLA, s.TVLB, s.TVLMethod = cached.TVLA, cached.TVLB, cached.TVLMethod
		}
		out = append(out, s)
	}
	return out, nil
}

func (a *Aggregator) attachTVL(ctx context.Context, whirlpool common.Hash) PoolSummary {
	balanceA, balanceB, method, err := a.fetchTVL(ctx, whirlpool)
	if err != nil {
		a.logger.Warn("tvl fetch failed", zap.String("whirlpool", whirlpool.Hex()), zap.Error(err))
		return PoolSummary{TVLMethod: method}
	}
	return PoolSummary{TVLA: &balanceA, TVLB: &balanceB, TVLMethod: method}
}
