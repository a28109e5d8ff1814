package clmath

import (
	"github.com/holiman/uint256"
	"lukechampine.com/uint128"

	"whirlpools/internal/errcode"
)

// SwapStepComputation is the outcome of swapping within one liquidity regime.
type SwapStepComputation struct {
	AmountIn  uint64
	AmountOut uint64
	NextPrice uint128.Uint128
	FeeAmount uint64
}

// ComputeSwap swaps amountRemaining between the current and target prices at
// constant liquidity. The "fixed" side is the token named by amountRemaining,
// the "unfixed" side is derived from the resulting price.
func ComputeSwap(
	amountRemaining uint64,
	feeRate uint16,
	liquidity uint128.Uint128,
	sqrtPriceCurrent uint128.Uint128,
	sqrtPriceTarget uint128.Uint128,
	amountSpecifiedIsInput bool,
	aToB bool,
) (SwapStepComputation, error) {
	initialFixedDelta, err := amountFixedDelta(sqrtPriceCurrent, sqrtPriceTarget, liquidity, amountSpecifiedIsInput, aToB)
	if err != nil {
		return SwapStepComputation{}, err
	}

	amountCalc := amountRemaining
	if amountSpecifiedIsInput {
		amountCalc = uint128.From64(amountRemaining).
			Mul64(FeeRateMulValue - uint64(feeRate)).
			Div64(FeeRateMulValue).Lo
	}

	nextSqrtPrice := sqrtPriceTarget
	if initialFixedDelta.Gt(uint256.NewInt(amountCalc)) {
		nextSqrtPrice, err = GetNextSqrtPrice(sqrtPriceCurrent, liquidity, amountCalc, amountSpecifiedIsInput, aToB)
		if err != nil {
			return SwapStepComputation{}, err
		}
	}
	isMaxSwap := nextSqrtPrice.Equals(sqrtPriceTarget)

	unfixed, err := amountUnfixedDelta(sqrtPriceCurrent, nextSqrtPrice, liquidity, amountSpecifiedIsInput, aToB)
	if err != nil {
		return SwapStepComputation{}, err
	}
	if !unfixed.IsUint64() {
		return SwapStepComputation{}, errcode.TokenMaxExceeded
	}

	fixed := initialFixedDelta
	if !isMaxSwap || !initialFixedDelta.IsUint64() {
		fixed, err = amountFixedDelta(sqrtPriceCurrent, nextSqrtPrice, liquidity, amountSpecifiedIsInput, aToB)
		if err != nil {
			return SwapStepComputation{}, err
		}
		if !fixed.IsUint64() {
			return SwapStepComputation{}, errcode.TokenMaxExceeded
		}
	}

	var amountIn, amountOut uint64
	if amountSpecifiedIsInput {
		amountIn, amountOut = fixed.Uint64(), unfixed.Uint64()
	} else {
		amountIn, amountOut = unfixed.Uint64(), fixed.Uint64()
	}

	if !amountSpecifiedIsInput && amountOut > amountRemaining {
		amountOut = amountRemaining
	}

	var feeAmount uint64
	if amountSpecifiedIsInput && !isMaxSwap {
		feeAmount = amountRemaining - amountIn
	} else {
		feeAmount, err = mulDivRoundUp(amountIn, uint64(feeRate), FeeRateMulValue-uint64(feeRate))
		if err != nil {
			return SwapStepComputation{}, err
		}
	}

	return SwapStepComputation{
		AmountIn:  amountIn,
		AmountOut: amountOut,
		NextPrice: nextSqrtPrice,
		FeeAmount: feeAmount,
	}, nil
}

// The fixed delta may exceed u64; callers compare it before narrowing.
func amountFixedDelta(current, target, liquidity uint128.Uint128, isInput, aToB bool) (*uint256.Int, error) {
	if aToB == isInput {
		return amountDeltaA(current, target, liquidity, isInput)
	}
	return amountDeltaB(current, target, liquidity, isInput), nil
}

func amountUnfixedDelta(current, target, liquidity uint128.Uint128, isInput, aToB bool) (*uint256.Int, error) {
	if aToB == isInput {
		return amountDeltaB(current, target, liquidity, !isInput), nil
	}
	return amountDeltaA(current, target, liquidity, !isInput)
}

func mulDivRoundUp(a, b, denominator uint64) (uint64, error) {
	if denominator == 0 {
		return 0, errcode.DivideByZero
	}
	q, r := uint128.From64(a).Mul64(b).QuoRem64(denominator)
	if r != 0 {
		q = q.Add64(1)
	}
	if q.Hi != 0 {
		return 0, errcode.TokenMaxExceeded
	}
	return q.Lo, nil
}
