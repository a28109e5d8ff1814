package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/uint128"

	"whirlpools/internal/errcode"
	"whirlpools/internal/model"
	"whirlpools/internal/storage"
	"whirlpools/internal/swap"
)

// hop names the accounts one pool swap touches.
type hop struct {
	whirlpool      common.Hash
	ownerA         common.Hash
	ownerB         common.Hash
	vaultA         common.Hash
	vaultB         common.Hash
	tickArrays     []common.Hash
	sqrtPriceLimit uint128.Uint128
	aToB           bool
}

// preparedHop is a hop with its accounts loaded and validated.
type preparedHop struct {
	hop
	pool   *model.Whirlpool
	before model.Whirlpool
	seq    *swap.TickSequence

	ownerA *model.TokenAccount
	ownerB *model.TokenAccount
	vaultA *model.TokenAccount
	vaultB *model.TokenAccount
}

// prepare loads the pool, its tick arrays and token accounts and checks that
// they belong together.
func prepare(ctx context.Context, ws *workingSet, h hop) (*preparedHop, error) {
	if len(h.tickArrays) > swap.MaxSequenceArrays {
		return nil, fmt.Errorf("%d tick arrays given: %w", len(h.tickArrays), errcode.InvalidTickArraySequence)
	}

	pool, err := ws.whirlpool(ctx, h.whirlpool)
	if err != nil {
		return nil, fmt.Errorf("load whirlpool: %w", err)
	}
	if pool.TickSpacing == 0 {
		return nil, errcode.InvalidTickSpacing
	}

	if h.vaultA == (common.Hash{}) {
		h.vaultA = pool.TokenVaultA
	}
	if h.vaultB == (common.Hash{}) {
		h.vaultB = pool.TokenVaultB
	}
	if h.vaultA != pool.TokenVaultA || h.vaultB != pool.TokenVaultB {
		return nil, errcode.InvalidVault
	}
	if h.ownerA == h.vaultA || h.ownerA == h.vaultB || h.ownerB == h.vaultA || h.ownerB == h.vaultB {
		return nil, fmt.Errorf("owner account is a pool vault: %w", errcode.InvalidVault)
	}

	addresses := h.tickArrays
	if len(addresses) == 0 {
		starts, err := model.SwapTickArrayStarts(pool.TickCurrentIndex, pool.TickSpacing, h.aToB)
		if err != nil {
			return nil, err
		}
		for _, start := range starts {
			addresses = append(addresses, model.TickArrayAddress(pool.Address, start))
		}
	}
	if len(addresses) == 0 {
		return nil, errcode.InvalidTickArraySequence
	}

	ph := &preparedHop{hop: h, pool: pool, before: *pool}
	arrays := make([]*model.TickArray, len(addresses))

	g, gctx := errgroup.WithContext(ctx)
	for i, address := range addresses {
		i, address := i, address
		g.Go(func() error {
			ta, err := ws.store.LoadTickArray(gctx, address)
			if err != nil {
				// trailing arrays are optional, the sequence just ends earlier
				if i > 0 && errors.Is(err, storage.ErrNotFound) {
					return nil
				}
				return fmt.Errorf("load tick array %d: %w", i, err)
			}
			arrays[i] = ta
			return nil
		})
	}
	accounts := []struct {
		address common.Hash
		dst     **model.TokenAccount
	}{
		{h.ownerA, &ph.ownerA},
		{h.ownerB, &ph.ownerB},
		{h.vaultA, &ph.vaultA},
		{h.vaultB, &ph.vaultB},
	}
	for _, acc := range accounts {
		acc := acc
		g.Go(func() error {
			account, err := ws.account(gctx, acc.address)
			if err != nil {
				return fmt.Errorf("load token account %s: %w", acc.address, err)
			}
			*acc.dst = account
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if ph.ownerA.Mint != pool.TokenMintA || ph.ownerB.Mint != pool.TokenMintB {
		return nil, errcode.InvalidTokenAccountMint
	}
	if ph.vaultA.Mint != pool.TokenMintA || ph.vaultB.Mint != pool.TokenMintB {
		return nil, errcode.InvalidVault
	}
	for _, ta := range arrays {
		if ta != nil && ta.Whirlpool != pool.Address {
			return nil, errcode.TickArrayOwnerMismatch
		}
	}

	ph.seq, err = swap.NewTickSequence(arrays...)
	if err != nil {
		return nil, err
	}
	return ph, nil
}

// execute runs the swap engine against the hop's current pool state.
func (ph *preparedHop) execute(amount uint64, amountSpecifiedIsInput bool, timestamp uint64) (swap.PostSwapUpdate, error) {
	return swap.Swap(ph.pool, ph.seq, amount, ph.sqrtPriceLimit, amountSpecifiedIsInput, ph.aToB, timestamp)
}

// apply writes update into the pool and moves both token legs.
func (ph *preparedHop) apply(update swap.PostSwapUpdate) error {
	if ph.aToB {
		if err := transfer(ph.ownerA, ph.vaultA, update.AmountA); err != nil {
			return err
		}
		if err := transfer(ph.vaultB, ph.ownerB, update.AmountB); err != nil {
			return err
		}
	} else {
		if err := transfer(ph.ownerB, ph.vaultB, update.AmountB); err != nil {
			return err
		}
		if err := transfer(ph.vaultA, ph.ownerA, update.AmountA); err != nil {
			return err
		}
	}
	ph.pool.UpdateAfterSwap(update.NextLiquidity, update.NextTickIndex, update.NextSqrtPrice)
	return nil
}

// inOut splits the update into input and output amounts.
func (ph *preparedHop) inOut(update swap.PostSwapUpdate) (in, out uint64) {
	if ph.aToB {
		return update.AmountA, update.AmountB
	}
	return update.AmountB, update.AmountA
}

func transfer(from, to *model.TokenAccount, amount uint64) error {
	debited, underflow := math.SafeSub(from.Amount, amount)
	if underflow {
		return fmt.Errorf("debit %s: %w", from.Address, errcode.InsufficientFunds)
	}
	credited, overflow := math.SafeAdd(to.Amount, amount)
	if overflow {
		return fmt.Errorf("credit %s: %w", to.Address, errcode.TokenMaxExceeded)
	}
	from.Amount = debited
	to.Amount = credited
	return nil
}

func checkThreshold(amountSpecifiedIsInput bool, in, out, threshold uint64) error {
	if amountSpecifiedIsInput {
		if out < threshold {
			return errcode.AmountOutBelowMinimum
		}
		return nil
	}
	if in > threshold {
		return errcode.AmountInAboveMaximum
	}
	return nil
}
