package clmath

import "lukechampine.com/uint128"

const (
	// MinTickIndex and MaxTickIndex bound the price range 2^-64..2^64 at 1.0001 per tick.
	MinTickIndex int32 = -443636
	MaxTickIndex int32 = 443636

	// FeeRateMulValue is the fee rate denominator (hundredths of a basis point).
	FeeRateMulValue uint64 = 1_000_000

	q64Resolution = 64
)

var (
	// MinSqrtPriceX64 is the Q64.64 square-root price at MinTickIndex.
	MinSqrtPriceX64 = uint128.From64(4295048016)
	// MaxSqrtPriceX64 is the Q64.64 square-root price at MaxTickIndex (79226673515401279992447579055).
	MaxSqrtPriceX64 = uint128.New(0x35bb7f32a81b33af, 0xfffec4b1)
)
