package clmath

import (
	"fmt"
	"math/big"

	"lukechampine.com/uint128"
)

// Int128 is a two's complement signed 128-bit integer.
type Int128 struct {
	bits uint128.Uint128
}

var (
	minInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	maxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	two128    = new(big.Int).Lsh(big.NewInt(1), 128)
)

// NewInt128 sign-extends v.
func NewInt128(v int64) Int128 {
	hi := uint64(0)
	if v < 0 {
		hi = ^uint64(0)
	}
	return Int128{bits: uint128.New(uint64(v), hi)}
}

// Int128FromBits reinterprets raw two's complement bits.
func Int128FromBits(bits uint128.Uint128) Int128 {
	return Int128{bits: bits}
}

// MinInt128 returns -2^127.
func MinInt128() Int128 {
	return Int128{bits: uint128.New(0, 1<<63)}
}

// MaxInt128 returns 2^127-1.
func MaxInt128() Int128 {
	return Int128{bits: uint128.New(^uint64(0), ^uint64(0)>>1)}
}

// Int128FromBig converts v, failing when it does not fit 128 signed bits.
func Int128FromBig(v *big.Int) (Int128, error) {
	if v.Cmp(minInt128) < 0 || v.Cmp(maxInt128) > 0 {
		return Int128{}, fmt.Errorf("int128 out of range: %s", v)
	}
	if v.Sign() >= 0 {
		return Int128{bits: uint128.FromBig(v)}, nil
	}
	return Int128{bits: uint128.FromBig(new(big.Int).Add(v, two128))}, nil
}

// ParseInt128 parses a base-10 signed integer.
func ParseInt128(s string) (Int128, error) {
	if s == "" {
		return Int128{}, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Int128{}, fmt.Errorf("invalid int128: %s", s)
	}
	return Int128FromBig(v)
}

func (i Int128) Bits() uint128.Uint128 {
	return i.bits
}

func (i Int128) IsZero() bool {
	return i.bits.IsZero()
}

func (i Int128) IsNeg() bool {
	return i.bits.Hi>>63 == 1
}

func (i Int128) Sign() int {
	switch {
	case i.bits.IsZero():
		return 0
	case i.IsNeg():
		return -1
	default:
		return 1
	}
}

// Neg returns -i. Negating MinInt128 wraps to itself; use IsMin to guard.
func (i Int128) Neg() Int128 {
	inv := uint128.New(^i.bits.Lo, ^i.bits.Hi)
	return Int128{bits: inv.AddWrap(uint128.From64(1))}
}

func (i Int128) IsMin() bool {
	return i.bits.Lo == 0 && i.bits.Hi == 1<<63
}

// Abs returns |i| as an unsigned value, so Abs(MinInt128) is 2^127.
func (i Int128) Abs() uint128.Uint128 {
	if i.IsNeg() {
		return i.Neg().bits
	}
	return i.bits
}

func (i Int128) Big() *big.Int {
	v := i.bits.Big()
	if i.IsNeg() {
		v.Sub(v, two128)
	}
	return v
}

func (i Int128) String() string {
	return i.Big().String()
}

func (i Int128) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Int128) UnmarshalText(text []byte) error {
	v, err := ParseInt128(string(text))
	if err != nil {
		return err
	}
	*i = v
	return nil
}
