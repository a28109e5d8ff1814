package swap

import (
	"github.com/ethereum/go-ethereum/common/math"
	"lukechampine.com/uint128"

	"whirlpools/internal/clmath"
	"whirlpools/internal/errcode"
	"whirlpools/internal/model"
)

// PostSwapUpdate is the pool state and token amounts produced by one swap.
type PostSwapUpdate struct {
	AmountA       uint64
	AmountB       uint64
	NextLiquidity uint128.Uint128
	NextTickIndex int32
	NextSqrtPrice uint128.Uint128
}

// Swap walks the price curve of pool through ticks until amount is filled or
// sqrtPriceLimit is reached. The pool is not modified; callers apply the
// returned update. timestamp is reserved.
func Swap(
	pool *model.Whirlpool,
	ticks TickArrays,
	amount uint64,
	sqrtPriceLimit uint128.Uint128,
	amountSpecifiedIsInput bool,
	aToB bool,
	timestamp uint64,
) (PostSwapUpdate, error) {
	_ = timestamp

	if sqrtPriceLimit.Cmp(clmath.MinSqrtPriceX64) < 0 || sqrtPriceLimit.Cmp(clmath.MaxSqrtPriceX64) > 0 {
		return PostSwapUpdate{}, errcode.SqrtPriceOutOfBounds
	}
	if (aToB && sqrtPriceLimit.Cmp(pool.SqrtPrice) > 0) || (!aToB && sqrtPriceLimit.Cmp(pool.SqrtPrice) < 0) {
		return PostSwapUpdate{}, errcode.InvalidSqrtPriceLimitDirection
	}
	if amount == 0 {
		return PostSwapUpdate{}, errcode.ZeroTradableAmount
	}

	var (
		tickSpacing = pool.TickSpacing
		feeRate     = pool.FeeRate

		amountRemaining  = amount
		amountCalculated uint64
		currSqrtPrice    = pool.SqrtPrice
		currTickIndex    = pool.TickCurrentIndex
		currLiquidity    = pool.Liquidity
		currArrayIndex   int
	)

	for amountRemaining > 0 && !sqrtPriceLimit.Equals(currSqrtPrice) {
		nextArrayIndex, nextTickIndex, err := ticks.GetNextInitializedTickIndex(currTickIndex, tickSpacing, aToB, currArrayIndex)
		if err != nil {
			return PostSwapUpdate{}, err
		}

		nextTickSqrtPrice, sqrtPriceTarget := nextSqrtPrices(nextTickIndex, sqrtPriceLimit, aToB)

		step, err := clmath.ComputeSwap(amountRemaining, feeRate, currLiquidity, currSqrtPrice, sqrtPriceTarget, amountSpecifiedIsInput, aToB)
		if err != nil {
			return PostSwapUpdate{}, err
		}

		var overflow bool
		if amountSpecifiedIsInput {
			if amountRemaining, overflow = subChecked(amountRemaining, step.AmountIn, step.FeeAmount); overflow {
				return PostSwapUpdate{}, errcode.AmountRemainingOverflow
			}
			if amountCalculated, overflow = math.SafeAdd(amountCalculated, step.AmountOut); overflow {
				return PostSwapUpdate{}, errcode.AmountCalcOverflow
			}
		} else {
			if amountRemaining, overflow = math.SafeSub(amountRemaining, step.AmountOut); overflow {
				return PostSwapUpdate{}, errcode.AmountRemainingOverflow
			}
			if amountCalculated, overflow = addChecked(amountCalculated, step.AmountIn, step.FeeAmount); overflow {
				return PostSwapUpdate{}, errcode.AmountCalcOverflow
			}
		}

		if step.NextPrice.Equals(nextTickSqrtPrice) {
			// A failed lookup (e.g. the global bound) counts as uninitialized.
			tick, err := ticks.GetTick(nextArrayIndex, nextTickIndex, tickSpacing)
			if err == nil && tick.Initialized {
				if currLiquidity, err = crossTick(tick, aToB, currLiquidity); err != nil {
					return PostSwapUpdate{}, err
				}
			}

			offset, err := ticks.GetTickOffset(nextArrayIndex, nextTickIndex, tickSpacing)
			if err != nil {
				return PostSwapUpdate{}, err
			}
			currArrayIndex = nextArrayIndex
			if (aToB && offset == 0) || (!aToB && offset == model.TickArraySize-1) {
				currArrayIndex++
			}

			// Leftward searches include the start tick, so step past the crossed one.
			currTickIndex = nextTickIndex
			if aToB {
				currTickIndex--
			}
		} else if !step.NextPrice.Equals(currSqrtPrice) {
			currTickIndex = clmath.TickIndexFromSqrtPrice(step.NextPrice)
		}

		currSqrtPrice = step.NextPrice
	}

	update := PostSwapUpdate{
		NextLiquidity: currLiquidity,
		NextTickIndex: currTickIndex,
		NextSqrtPrice: currSqrtPrice,
	}
	if aToB == amountSpecifiedIsInput {
		update.AmountA, update.AmountB = amount-amountRemaining, amountCalculated
	} else {
		update.AmountA, update.AmountB = amountCalculated, amount-amountRemaining
	}
	return update, nil
}

// crossTick applies the tick's net liquidity, negated when moving left.
func crossTick(tick *model.Tick, aToB bool, liquidity uint128.Uint128) (uint128.Uint128, error) {
	delta := tick.LiquidityNet
	if aToB {
		if delta.IsMin() {
			return uint128.Zero, errcode.LiquidityOverflow
		}
		delta = delta.Neg()
	}
	return clmath.AddLiquidityDelta(liquidity, delta)
}

func nextSqrtPrices(nextTickIndex int32, sqrtPriceLimit uint128.Uint128, aToB bool) (uint128.Uint128, uint128.Uint128) {
	nextTickPrice := clmath.SqrtPriceFromTickIndex(nextTickIndex)
	if aToB {
		if sqrtPriceLimit.Cmp(nextTickPrice) > 0 {
			return nextTickPrice, sqrtPriceLimit
		}
		return nextTickPrice, nextTickPrice
	}
	if sqrtPriceLimit.Cmp(nextTickPrice) < 0 {
		return nextTickPrice, sqrtPriceLimit
	}
	return nextTickPrice, nextTickPrice
}

func subChecked(x uint64, ys ...uint64) (uint64, bool) {
	for _, y := range ys {
		var overflow bool
		if x, overflow = math.SafeSub(x, y); overflow {
			return 0, true
		}
	}
	return x, false
}

func addChecked(x uint64, ys ...uint64) (uint64, bool) {
	for _, y := range ys {
		var overflow bool
		if x, overflow = math.SafeAdd(x, y); overflow {
			return 0, true
		}
	}
	return x, false
}
