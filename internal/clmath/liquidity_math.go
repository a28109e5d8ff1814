package clmath

import (
	"lukechampine.com/uint128"

	"whirlpools/internal/errcode"
)

// AddLiquidityDelta applies a signed delta to liquidity, failing on either overflow or underflow.
func AddLiquidityDelta(liquidity uint128.Uint128, delta Int128) (uint128.Uint128, error) {
	if delta.IsZero() {
		return liquidity, nil
	}
	abs := delta.Abs()
	if delta.IsNeg() {
		if liquidity.Cmp(abs) < 0 {
			return uint128.Zero, errcode.LiquidityOverflow
		}
		return liquidity.Sub(abs), nil
	}
	sum := liquidity.AddWrap(abs)
	if sum.Cmp(liquidity) < 0 {
		return uint128.Zero, errcode.LiquidityOverflow
	}
	return sum, nil
}
