package clmath

import (
	"github.com/holiman/uint256"
	"lukechampine.com/uint128"

	"whirlpools/internal/errcode"
)

// GetAmountDeltaA returns the amount of token A between two prices for liquidity:
// liquidity * (upper - lower) / (upper * lower).
func GetAmountDeltaA(p0, p1, liquidity uint128.Uint128, roundUp bool) (uint64, error) {
	v, err := amountDeltaA(p0, p1, liquidity, roundUp)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, errcode.TokenMaxExceeded
	}
	return v.Uint64(), nil
}

// GetAmountDeltaB returns the amount of token B between two prices for liquidity:
// liquidity * (upper - lower).
func GetAmountDeltaB(p0, p1, liquidity uint128.Uint128, roundUp bool) (uint64, error) {
	v := amountDeltaB(p0, p1, liquidity, roundUp)
	if !v.IsUint64() {
		return 0, errcode.TokenMaxExceeded
	}
	return v.Uint64(), nil
}

func amountDeltaA(p0, p1, liquidity uint128.Uint128, roundUp bool) (*uint256.Int, error) {
	lower, upper := increasingPriceOrder(p0, p1)
	diff := upper.Sub(lower)

	numerator, overflow := new(uint256.Int).MulOverflow(toU256(liquidity), toU256(diff))
	if overflow || numerator.BitLen() > 256-q64Resolution {
		return nil, errcode.MultiplicationOverflow
	}
	numerator.Lsh(numerator, q64Resolution)

	denominator := new(uint256.Int).Mul(toU256(upper), toU256(lower))
	if denominator.IsZero() {
		return nil, errcode.DivideByZero
	}

	if roundUp {
		return divRoundUp(numerator, denominator), nil
	}
	return new(uint256.Int).Div(numerator, denominator), nil
}

func amountDeltaB(p0, p1, liquidity uint128.Uint128, roundUp bool) *uint256.Int {
	lower, upper := increasingPriceOrder(p0, p1)
	diff := upper.Sub(lower)
	if liquidity.IsZero() || diff.IsZero() {
		return new(uint256.Int)
	}

	product := new(uint256.Int).Mul(toU256(liquidity), toU256(diff))
	result := new(uint256.Int).Rsh(product, q64Resolution)
	if roundUp && product[0] != 0 {
		result.AddUint64(result, 1)
	}
	return result
}

// GetNextSqrtPrice moves sqrtPrice by amount of the token named by the trade:
// token A when isInput == aToB, token B otherwise.
func GetNextSqrtPrice(sqrtPrice, liquidity uint128.Uint128, amount uint64, isInput, aToB bool) (uint128.Uint128, error) {
	if isInput == aToB {
		return nextSqrtPriceFromARoundUp(sqrtPrice, liquidity, amount, isInput)
	}
	return nextSqrtPriceFromBRoundDown(sqrtPrice, liquidity, amount, isInput)
}

// liquidity * sqrtPrice / (liquidity +- amount * sqrtPrice), rounded up.
func nextSqrtPriceFromARoundUp(sqrtPrice, liquidity uint128.Uint128, amount uint64, isInput bool) (uint128.Uint128, error) {
	if amount == 0 {
		return sqrtPrice, nil
	}

	product := new(uint256.Int).Mul(toU256(sqrtPrice), uint256.NewInt(amount))

	numerator, overflow := new(uint256.Int).MulOverflow(toU256(liquidity), toU256(sqrtPrice))
	if overflow || numerator.BitLen() > 256-q64Resolution {
		return uint128.Zero, errcode.MultiplicationOverflow
	}
	numerator.Lsh(numerator, q64Resolution)

	liquidityShifted := new(uint256.Int).Lsh(toU256(liquidity), q64Resolution)
	var denominator *uint256.Int
	if isInput {
		denominator = new(uint256.Int).Add(liquidityShifted, product)
	} else {
		if !liquidityShifted.Gt(product) {
			return uint128.Zero, errcode.DivideByZero
		}
		denominator = new(uint256.Int).Sub(liquidityShifted, product)
	}
	if denominator.IsZero() {
		return uint128.Zero, errcode.DivideByZero
	}

	price := divRoundUp(numerator, denominator)
	if !fitsU128(price) {
		return uint128.Zero, errcode.TokenMaxExceeded
	}
	next := fromU256(price)
	if next.Cmp(MinSqrtPriceX64) < 0 {
		return uint128.Zero, errcode.TokenMinSubceeded
	}
	if next.Cmp(MaxSqrtPriceX64) > 0 {
		return uint128.Zero, errcode.TokenMaxExceeded
	}
	return next, nil
}

// sqrtPrice +- amount / liquidity, the quotient rounded up for outputs.
func nextSqrtPriceFromBRoundDown(sqrtPrice, liquidity uint128.Uint128, amount uint64, isInput bool) (uint128.Uint128, error) {
	if liquidity.IsZero() {
		return uint128.Zero, errcode.DivideByZero
	}

	amountX64 := uint128.New(0, amount)
	quotient, remainder := amountX64.QuoRem(liquidity)
	if !isInput && !remainder.IsZero() {
		quotient = quotient.Add64(1)
	}

	if isInput {
		next := sqrtPrice.AddWrap(quotient)
		if next.Cmp(sqrtPrice) < 0 {
			return uint128.Zero, errcode.SqrtPriceOutOfBounds
		}
		return next, nil
	}
	if sqrtPrice.Cmp(quotient) < 0 {
		return uint128.Zero, errcode.SqrtPriceOutOfBounds
	}
	return sqrtPrice.Sub(quotient), nil
}
