package aggregate

import (
	"math/big"
)

const ratioScale = 18

// q64 is 2^64, the denominator of a Q64.64 value.
var q64 = new(big.Int).Lsh(big.NewInt(1), 64)

// priceFromSqrt renders the token B per token A price of a Q64.64 square-root
// price as a decimal string.
func priceFromSqrt(sqrtPrice string) string {
	sqrt, err := parseBigInt(sqrtPrice)
	if err != nil || sqrt.Sign() == 0 {
		return ""
	}
	rat := new(big.Rat).SetFrac(sqrt, q64)
	rat.Mul(rat, rat)
	return rat.FloatString(ratioScale)
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	if windowSec == 0 {
		return 0
	}
	return ts - (ts % windowSec)
}

func windowEnd(start uint64, windowSec uint64) uint64 {
	if windowSec == 0 {
		return 0
	}
	return start + windowSec
}
