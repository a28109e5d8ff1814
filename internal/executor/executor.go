package executor

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
	"lukechampine.com/uint128"

	"whirlpools/internal/errcode"
	"whirlpools/internal/model"
	"whirlpools/internal/storage"
	"whirlpools/internal/swap"
)

// SwapParams describes a single-pool swap.
type SwapParams struct {
	Whirlpool          common.Hash
	TokenOwnerAccountA common.Hash
	TokenOwnerAccountB common.Hash
	// TokenVaultA and TokenVaultB default to the pool's vaults.
	TokenVaultA common.Hash
	TokenVaultB common.Hash
	// TickArrays defaults to the arrays following the current tick.
	TickArrays []common.Hash

	Amount                 uint64
	OtherAmountThreshold   uint64
	SqrtPriceLimit         uint128.Uint128
	AmountSpecifiedIsInput bool
	AToB                   bool
	Timestamp              uint64
}

func (p SwapParams) hop() hop {
	return hop{
		whirlpool:      p.Whirlpool,
		ownerA:         p.TokenOwnerAccountA,
		ownerB:         p.TokenOwnerAccountB,
		vaultA:         p.TokenVaultA,
		vaultB:         p.TokenVaultB,
		tickArrays:     p.TickArrays,
		sqrtPriceLimit: p.SqrtPriceLimit,
		aToB:           p.AToB,
	}
}

// SwapResult is the outcome of one pool swap. Pool is the state after the swap.
type SwapResult struct {
	TxID      string          `json:"tx_id,omitempty"`
	Whirlpool common.Hash     `json:"whirlpool"`
	AToB      bool            `json:"a_to_b"`
	AmountA   uint64          `json:"amount_a"`
	AmountB   uint64          `json:"amount_b"`
	AmountIn  uint64          `json:"amount_in"`
	AmountOut uint64          `json:"amount_out"`
	Pool      model.Whirlpool `json:"pool"`
}

// TwoHopSwapParams describes a swap routed through two pools sharing an
// intermediary mint.
type TwoHopSwapParams struct {
	WhirlpoolOne          common.Hash
	WhirlpoolTwo          common.Hash
	TokenOwnerAccountOneA common.Hash
	TokenOwnerAccountOneB common.Hash
	TokenOwnerAccountTwoA common.Hash
	TokenOwnerAccountTwoB common.Hash
	TickArraysOne         []common.Hash
	TickArraysTwo         []common.Hash

	Amount                 uint64
	OtherAmountThreshold   uint64
	AmountSpecifiedIsInput bool
	AToBOne                bool
	AToBTwo                bool
	SqrtPriceLimitOne      uint128.Uint128
	SqrtPriceLimitTwo      uint128.Uint128
	Timestamp              uint64
}

type TwoHopSwapResult struct {
	TxID      string     `json:"tx_id"`
	AmountIn  uint64     `json:"amount_in"`
	AmountOut uint64     `json:"amount_out"`
	One       SwapResult `json:"one"`
	Two       SwapResult `json:"two"`
}

// Executor runs swaps against a store. Operations touching the same pool or
// token account run one at a time; every effect of an operation is committed
// at once, and an operation whose loaded state changed underneath it is
// rerun from scratch.
type Executor struct {
	store      storage.Store
	journal    storage.Journal
	logger     *zap.Logger
	locks      *addressLocks
	now        func() time.Time
	seq        atomic.Uint64
	maxRetries int
	retryDelay time.Duration
}

// New builds an Executor. journal may be nil.
func New(store storage.Store, journal storage.Journal, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		store:   store,
		journal: journal,
		logger:  logger,
		locks:      newAddressLocks(),
		now:        time.Now,
		maxRetries: 3,
		retryDelay: 10 * time.Millisecond,
	}
}

// SetRetry configures how often an operation is rerun after a commit conflict.
func (e *Executor) SetRetry(maxRetries int, delay time.Duration) {
	e.maxRetries = maxRetries
	e.retryDelay = delay
}

// run executes op on a fresh working set and commits its changes, rerunning
// both while the commit reports a conflict.
func (e *Executor) run(ctx context.Context, op func(*workingSet) error) error {
	return storage.WithRetry(ctx, e.maxRetries, e.retryDelay, storage.IsConflict, func(ctx context.Context) error {
		ws := newWorkingSet(e.store)
		if err := op(ws); err != nil {
			return err
		}
		if err := e.store.Commit(ctx, ws.changeset()); err != nil {
			if storage.IsConflict(err) {
				e.logger.Debug("commit conflict", zap.Error(err))
			}
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
}

// Quote simulates a swap without settling or committing it.
func (e *Executor) Quote(ctx context.Context, p SwapParams) (SwapResult, error) {
	unlock := e.locks.lock(p.Whirlpool, p.TokenOwnerAccountA, p.TokenOwnerAccountB)
	defer unlock()

	ph, err := prepare(ctx, newWorkingSet(e.store), p.hop())
	if err != nil {
		return SwapResult{}, err
	}
	update, err := ph.execute(p.Amount, p.AmountSpecifiedIsInput, e.timestamp(p.Timestamp))
	if err != nil {
		return SwapResult{}, err
	}
	in, out := ph.inOut(update)
	if err := checkThreshold(p.AmountSpecifiedIsInput, in, out, p.OtherAmountThreshold); err != nil {
		return SwapResult{}, err
	}

	quoted := *ph.pool
	quoted.UpdateAfterSwap(update.NextLiquidity, update.NextTickIndex, update.NextSqrtPrice)
	return result(ph, update, quoted), nil
}

// Swap executes a single-pool swap.
func (e *Executor) Swap(ctx context.Context, p SwapParams) (SwapResult, error) {
	unlock := e.locks.lock(p.Whirlpool, p.TokenOwnerAccountA, p.TokenOwnerAccountB, p.TokenVaultA, p.TokenVaultB)
	defer unlock()

	now := e.now()
	txID := e.newTxID(now)
	timestamp := e.timestamp(p.Timestamp)
	record := model.SwapRecord{
		TxID:                   txID,
		Kind:                   model.SwapKindSingle,
		Whirlpool:              p.Whirlpool,
		AToB:                   p.AToB,
		AmountSpecifiedIsInput: p.AmountSpecifiedIsInput,
		Amount:                 p.Amount,
		OtherAmountThreshold:   p.OtherAmountThreshold,
		SqrtPriceLimit:         p.SqrtPriceLimit.String(),
		Timestamp:              timestamp,
		RecordedAt:             now.UTC().Format(time.RFC3339Nano),
	}

	pending := record
	var res SwapResult
	err := e.run(ctx, func(ws *workingSet) error {
		record = pending
		var err error
		res, err = e.swap(ctx, ws, p, timestamp, &record)
		return err
	})
	if err != nil {
		markFailed(&record, err)
		e.writeJournal(record)
		e.logger.Warn("swap failed",
			zap.String("tx_id", txID),
			zap.String("whirlpool", p.Whirlpool.Hex()),
			zap.String("error_code", record.ErrorCode),
			zap.Error(err),
		)
		return SwapResult{}, err
	}

	record.Status = model.SwapStatusOK
	e.writeJournal(record)
	e.logger.Info("swap",
		zap.String("tx_id", txID),
		zap.String("whirlpool", p.Whirlpool.Hex()),
		zap.Bool("a_to_b", p.AToB),
		zap.Uint64("amount_in", res.AmountIn),
		zap.Uint64("amount_out", res.AmountOut),
		zap.Int32("tick", res.Pool.TickCurrentIndex),
	)
	res.TxID = txID
	return res, nil
}

func (e *Executor) swap(ctx context.Context, ws *workingSet, p SwapParams, timestamp uint64, record *model.SwapRecord) (SwapResult, error) {
	ph, err := prepare(ctx, ws, p.hop())
	if err != nil {
		return SwapResult{}, err
	}
	fillBefore(record, ph)

	update, err := ph.execute(p.Amount, p.AmountSpecifiedIsInput, timestamp)
	if err != nil {
		return SwapResult{}, err
	}
	fillAfter(record, update)

	in, out := ph.inOut(update)
	if err := checkThreshold(p.AmountSpecifiedIsInput, in, out, p.OtherAmountThreshold); err != nil {
		return SwapResult{}, err
	}
	if err := ph.apply(update); err != nil {
		return SwapResult{}, err
	}
	ws.addPool(ph.pool)
	return result(ph, update, *ph.pool), nil
}

// TwoHopSwap swaps through two pools. With an exact input, hop one runs
// first and its output feeds hop two; with an exact output, hop two runs
// first and its input becomes hop one's requested output.
func (e *Executor) TwoHopSwap(ctx context.Context, p TwoHopSwapParams) (TwoHopSwapResult, error) {
	if p.WhirlpoolOne == p.WhirlpoolTwo {
		return TwoHopSwapResult{}, errcode.DuplicateTwoHopPool
	}

	unlock := e.locks.lock(
		p.WhirlpoolOne, p.WhirlpoolTwo,
		p.TokenOwnerAccountOneA, p.TokenOwnerAccountOneB,
		p.TokenOwnerAccountTwoA, p.TokenOwnerAccountTwoB,
	)
	defer unlock()

	now := e.now()
	txID := e.newTxID(now)
	timestamp := e.timestamp(p.Timestamp)
	hops := [2]hop{
		{
			whirlpool:      p.WhirlpoolOne,
			ownerA:         p.TokenOwnerAccountOneA,
			ownerB:         p.TokenOwnerAccountOneB,
			tickArrays:     p.TickArraysOne,
			sqrtPriceLimit: p.SqrtPriceLimitOne,
			aToB:           p.AToBOne,
		},
		{
			whirlpool:      p.WhirlpoolTwo,
			ownerA:         p.TokenOwnerAccountTwoA,
			ownerB:         p.TokenOwnerAccountTwoB,
			tickArrays:     p.TickArraysTwo,
			sqrtPriceLimit: p.SqrtPriceLimitTwo,
			aToB:           p.AToBTwo,
		},
	}
	var records [2]model.SwapRecord
	for i, h := range hops {
		records[i] = model.SwapRecord{
			TxID:                   txID,
			Kind:                   model.SwapKindTwoHop,
			Hop:                    i + 1,
			Whirlpool:              h.whirlpool,
			AToB:                   h.aToB,
			AmountSpecifiedIsInput: p.AmountSpecifiedIsInput,
			Amount:                 p.Amount,
			OtherAmountThreshold:   p.OtherAmountThreshold,
			SqrtPriceLimit:         h.sqrtPriceLimit.String(),
			Timestamp:              timestamp,
			RecordedAt:             now.UTC().Format(time.RFC3339Nano),
		}
	}

	pending := records
	var res TwoHopSwapResult
	err := e.run(ctx, func(ws *workingSet) error {
		records = pending
		var err error
		res, err = e.twoHopSwap(ctx, ws, hops, p, timestamp, &records)
		return err
	})
	if err != nil {
		markFailed(&records[0], err)
		markFailed(&records[1], err)
		e.writeJournal(records[:]...)
		e.logger.Warn("two hop swap failed",
			zap.String("tx_id", txID),
			zap.String("whirlpool_one", p.WhirlpoolOne.Hex()),
			zap.String("whirlpool_two", p.WhirlpoolTwo.Hex()),
			zap.String("error_code", records[0].ErrorCode),
			zap.Error(err),
		)
		return TwoHopSwapResult{}, err
	}

	records[0].Status = model.SwapStatusOK
	records[1].Status = model.SwapStatusOK
	e.writeJournal(records[:]...)
	e.logger.Info("two hop swap",
		zap.String("tx_id", txID),
		zap.String("whirlpool_one", p.WhirlpoolOne.Hex()),
		zap.String("whirlpool_two", p.WhirlpoolTwo.Hex()),
		zap.Uint64("amount_in", res.AmountIn),
		zap.Uint64("amount_out", res.AmountOut),
	)
	res.TxID = txID
	res.One.TxID = txID
	res.Two.TxID = txID
	return res, nil
}

func (e *Executor) twoHopSwap(ctx context.Context, ws *workingSet, hops [2]hop, p TwoHopSwapParams, timestamp uint64, records *[2]model.SwapRecord) (TwoHopSwapResult, error) {
	// hop one's output account may be hop two's input account; the working
	// set makes both hops share it.
	one, err := prepare(ctx, ws, hops[0])
	if err != nil {
		return TwoHopSwapResult{}, fmt.Errorf("hop one: %w", err)
	}
	two, err := prepare(ctx, ws, hops[1])
	if err != nil {
		return TwoHopSwapResult{}, fmt.Errorf("hop two: %w", err)
	}
	fillBefore(&records[0], one)
	fillBefore(&records[1], two)

	if one.pool.OutputMint(one.aToB) != two.pool.InputMint(two.aToB) {
		return TwoHopSwapResult{}, errcode.InvalidIntermediaryMint
	}

	var updateOne, updateTwo swap.PostSwapUpdate
	if p.AmountSpecifiedIsInput {
		if updateOne, err = one.execute(p.Amount, true, timestamp); err != nil {
			return TwoHopSwapResult{}, fmt.Errorf("hop one: %w", err)
		}
		_, outOne := one.inOut(updateOne)
		if updateTwo, err = two.execute(outOne, true, timestamp); err != nil {
			return TwoHopSwapResult{}, fmt.Errorf("hop two: %w", err)
		}
	} else {
		if updateTwo, err = two.execute(p.Amount, false, timestamp); err != nil {
			return TwoHopSwapResult{}, fmt.Errorf("hop two: %w", err)
		}
		inTwo, _ := two.inOut(updateTwo)
		if updateOne, err = one.execute(inTwo, false, timestamp); err != nil {
			return TwoHopSwapResult{}, fmt.Errorf("hop one: %w", err)
		}
	}
	fillAfter(&records[0], updateOne)
	fillAfter(&records[1], updateTwo)

	in, _ := one.inOut(updateOne)
	_, out := two.inOut(updateTwo)
	if err := checkThreshold(p.AmountSpecifiedIsInput, in, out, p.OtherAmountThreshold); err != nil {
		return TwoHopSwapResult{}, err
	}

	if err := one.apply(updateOne); err != nil {
		return TwoHopSwapResult{}, fmt.Errorf("hop one: %w", err)
	}
	if err := two.apply(updateTwo); err != nil {
		return TwoHopSwapResult{}, fmt.Errorf("hop two: %w", err)
	}
	ws.addPool(one.pool)
	ws.addPool(two.pool)

	return TwoHopSwapResult{
		AmountIn:  in,
		AmountOut: out,
		One:       result(one, updateOne, *one.pool),
		Two:       result(two, updateTwo, *two.pool),
	}, nil
}

func (e *Executor) timestamp(ts uint64) uint64 {
	if ts != 0 {
		return ts
	}
	return uint64(e.now().Unix())
}

func (e *Executor) newTxID(now time.Time) string {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(now.UnixNano()))
	binary.BigEndian.PutUint64(buf[8:], e.seq.Add(1))
	sum := blake3.Sum256(buf[:])
	return hexutil.Encode(sum[:12])
}

func (e *Executor) writeJournal(records ...model.SwapRecord) {
	if e.journal == nil {
		return
	}
	if err := e.journal.PutSwapBatch(records); err != nil {
		e.logger.Error("write journal", zap.String("tx_id", records[0].TxID), zap.Error(err))
	}
}

func result(ph *preparedHop, update swap.PostSwapUpdate, pool model.Whirlpool) SwapResult {
	in, out := ph.inOut(update)
	return SwapResult{
		Whirlpool: ph.whirlpool,
		AToB:      ph.aToB,
		AmountA:   update.AmountA,
		AmountB:   update.AmountB,
		AmountIn:  in,
		AmountOut: out,
		Pool:      pool,
	}
}

func fillBefore(record *model.SwapRecord, ph *preparedHop) {
	record.SqrtPriceBefore = ph.before.SqrtPrice.String()
	record.TickBefore = ph.before.TickCurrentIndex
	record.LiquidityBefore = ph.before.Liquidity.String()
}

func fillAfter(record *model.SwapRecord, update swap.PostSwapUpdate) {
	record.AmountA = update.AmountA
	record.AmountB = update.AmountB
	record.SqrtPriceAfter = update.NextSqrtPrice.String()
	record.TickAfter = update.NextTickIndex
	record.LiquidityAfter = update.NextLiquidity.String()
}

func markFailed(record *model.SwapRecord, err error) {
	record.Status = model.SwapStatusFailed
	record.Error = err.Error()
	if code, ok := errcode.Of(err); ok {
		record.ErrorCode = string(code)
	}
}
