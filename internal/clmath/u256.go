package clmath

import (
	"github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

func toU256(v uint128.Uint128) *uint256.Int {
	return &uint256.Int{v.Lo, v.Hi, 0, 0}
}

func fitsU128(v *uint256.Int) bool {
	return v[2] == 0 && v[3] == 0
}

func fromU256(v *uint256.Int) uint128.Uint128 {
	return uint128.New(v[0], v[1])
}

// divRoundUp returns ceil(n / d). d must be nonzero.
func divRoundUp(n, d *uint256.Int) *uint256.Int {
	q := new(uint256.Int).Div(n, d)
	if !new(uint256.Int).Mod(n, d).IsZero() {
		q.AddUint64(q, 1)
	}
	return q
}

func increasingPriceOrder(p0, p1 uint128.Uint128) (uint128.Uint128, uint128.Uint128) {
	if p0.Cmp(p1) > 0 {
		return p1, p0
	}
	return p0, p1
}
