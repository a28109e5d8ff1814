package clmath

import (
	"math/big"
	"math/bits"

	"github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

// Q64.64 ratios sqrt(1.0001)^-(2^i), floored, for i = 0..18.
var negativeTickRatios = [...]uint64{
	18445821805675392311,
	18444899583751176498,
	18443055278223354162,
	18439367220385604838,
	18431993317065449817,
	18417254355718160513,
	18387811781193591352,
	18329067761203520168,
	18212142134806087854,
	17980523815641551639,
	17526086738831147013,
	16651378430235024244,
	15030750278693429944,
	12247334978882834399,
	8131365268884726200,
	3584323654723342297,
	696457651847595233,
	26294789957452057,
	37481735321082,
}

// Q96 ratios sqrt(1.0001)^(2^i), floored, for i = 0..18, as decimal strings
// since the larger ones exceed 128 bits.
var positiveTickRatios = func() [19]*uint256.Int {
	values := [...]string{
		"79232123823359799118286999567",
		"79236085330515764027303304731",
		"79244008939048815603706035061",
		"79259858533276714757314932305",
		"79291567232598584799939703904",
		"79355022692464371645785046466",
		"79482085999252804386437311141",
		"79736823300114093921829183326",
		"80248749790819932309965073892",
		"81282483887344747381513967011",
		"83390072131320151908154831281",
		"87770609709833776024991924138",
		"97234110755111693312479820773",
		"119332217159966728226237229890",
		"179736315981702064433883588727",
		"407748233172238350107850275304",
		"2098478828474011932436660412517",
		"55581415166113811149459800483533",
		"38992368544603139932233054999993551",
	}
	var out [19]*uint256.Int
	for i, v := range values {
		n, _ := new(big.Int).SetString(v, 10)
		out[i], _ = uint256.FromBig(n)
	}
	return out
}()

const (
	bitPrecision = 14
	logB2X32     = 59543866431248
)

var (
	logBPErrMarginLowerX64 = big.NewInt(184467440737095516)
	logBPErrMarginUpperX64 = new(big.Int).SetUint64(15793534762490258745)
	bigLogB2X32            = big.NewInt(logB2X32)
)

// SqrtPriceFromTickIndex returns the Q64.64 square-root price at tick.
// The tick must lie within [MinTickIndex, MaxTickIndex].
func SqrtPriceFromTickIndex(tick int32) uint128.Uint128 {
	if tick >= 0 {
		return sqrtPricePositiveTick(uint32(tick))
	}
	return sqrtPriceNegativeTick(uint32(-tick))
}

// Positive ticks multiply Q96 ratios in 256 bits and drop 32 bits at the end.
func sqrtPricePositiveTick(abs uint32) uint128.Uint128 {
	ratio := new(uint256.Int).Lsh(uint256.NewInt(1), 96)
	if abs&1 != 0 {
		ratio.Set(positiveTickRatios[0])
	}
	for i := 1; i < len(positiveTickRatios); i++ {
		if abs&(1<<i) != 0 {
			ratio.Mul(ratio, positiveTickRatios[i])
			ratio.Rsh(ratio, 96)
		}
	}
	ratio.Rsh(ratio, 32)
	return fromU256(ratio)
}

func sqrtPriceNegativeTick(abs uint32) uint128.Uint128 {
	ratio := uint128.New(0, 1)
	if abs&1 != 0 {
		ratio = uint128.From64(negativeTickRatios[0])
	}
	for i := 1; i < len(negativeTickRatios); i++ {
		if abs&(1<<i) != 0 {
			ratio = ratio.Mul64(negativeTickRatios[i]).Rsh(q64Resolution)
		}
	}
	return ratio
}

// TickIndexFromSqrtPrice returns the greatest tick whose price is <= sqrtPrice.
// The price must lie within [MinSqrtPriceX64, MaxSqrtPriceX64].
func TickIndexFromSqrtPrice(sqrtPrice uint128.Uint128) int32 {
	msb := 127 - sqrtPrice.LeadingZeros()
	log2pIntegerX32 := big.NewInt(int64(msb-64) << 32)

	var r uint64
	if msb >= 63 {
		r = sqrtPrice.Rsh(uint(msb - 63)).Lo
	} else {
		r = sqrtPrice.Lsh(uint(63 - msb)).Lo
	}

	bit := uint64(0x8000000000000000)
	var log2pFractionX64 uint64
	for precision := 0; bit > 0 && precision < bitPrecision; precision++ {
		hi, lo := bits.Mul64(r, r)
		isMoreThanTwo := hi >> 63
		r = uint128.New(lo, hi).Rsh(uint(63 + isMoreThanTwo)).Lo
		log2pFractionX64 += bit * isMoreThanTwo
		bit >>= 1
	}

	log2pX32 := new(big.Int).Add(log2pIntegerX32, new(big.Int).SetUint64(log2pFractionX64>>32))
	logbpX64 := new(big.Int).Mul(log2pX32, bigLogB2X32)

	tickLow := new(big.Int).Sub(logbpX64, logBPErrMarginLowerX64)
	tickLow.Rsh(tickLow, q64Resolution)
	tickHigh := new(big.Int).Add(logbpX64, logBPErrMarginUpperX64)
	tickHigh.Rsh(tickHigh, q64Resolution)

	low := int32(tickLow.Int64())
	high := int32(tickHigh.Int64())
	if low == high {
		return low
	}
	if SqrtPriceFromTickIndex(high).Cmp(sqrtPrice) <= 0 {
		return high
	}
	return low
}
