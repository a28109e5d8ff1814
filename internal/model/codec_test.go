package model

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sugawarayuuta/sonnet"
	"lukechampine.com/uint128"

	"whirlpools/internal/clmath"
	"whirlpools/internal/errcode"
)

func TestTickArrayBinaryRoundTrip(t *testing.T) {
	ta := &TickArray{StartTickIndex: -704, Whirlpool: common.HexToHash("0xabcdef")}
	ta.Ticks[0] = Tick{
		Initialized:          true,
		LiquidityNet:         clmath.NewInt128(-1),
		LiquidityGross:       uint128.From64(1),
		FeeGrowthOutsideA:    uint128.New(7, 9),
		FeeGrowthOutsideB:    uint128.Max,
		RewardGrowthsOutside: [NumRewards]uint128.Uint128{uint128.From64(1), uint128.From64(2), uint128.From64(3)},
	}
	ta.Ticks[87] = Tick{Initialized: true, LiquidityNet: clmath.MaxInt128()}

	data, err := ta.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(data) != TickArrayDataSize || TickArrayDataSize != 9980 {
		t.Fatalf("unexpected encoded size %d", len(data))
	}
	// start index, then the first tick's flag and net liquidity
	if !bytes.Equal(data[:4], []byte{0x40, 0xfd, 0xff, 0xff}) {
		t.Fatalf("unexpected start bytes %x", data[:4])
	}
	if data[4] != 1 || !bytes.Equal(data[5:21], bytes.Repeat([]byte{0xff}, 16)) {
		t.Fatalf("unexpected first tick bytes %x", data[4:21])
	}
	if !bytes.Equal(data[len(data)-32:], ta.Whirlpool[:]) {
		t.Fatalf("whirlpool id must close the layout")
	}

	var decoded TickArray
	if err := decoded.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(*ta, decoded) {
		t.Fatalf("round-trip mismatch")
	}
}

func TestTickArrayUnmarshalRejectsShortData(t *testing.T) {
	var ta TickArray
	if err := ta.UnmarshalBinary(make([]byte, TickArrayDataSize-1)); err == nil {
		t.Fatalf("expected size error")
	}
}

func TestWhirlpoolJSONDecimalStrings(t *testing.T) {
	pool := Whirlpool{
		Address:          common.HexToHash("0x01"),
		TickSpacing:      8,
		FeeRate:          3000,
		Liquidity:        uint128.From64(1_000_000),
		SqrtPrice:        uint128.New(0, 1),
		TickCurrentIndex: -3,
		TokenMintA:       common.HexToHash("0xaa"),
		TokenMintB:       common.HexToHash("0xbb"),
	}
	pool.RewardInfos[1].GrowthGlobalX64 = uint128.From64(42)

	data, err := sonnet.Marshal(pool)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Contains(data, []byte(`"sqrt_price":"18446744073709551616"`)) {
		t.Fatalf("sqrt price must be a decimal string: %s", data)
	}

	var decoded Whirlpool
	if err := sonnet.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(pool, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", pool, decoded)
	}
}

func TestTickEntryJSON(t *testing.T) {
	raw := []byte(`{"tick_index":8,"initialized":true,"liquidity_net":"-500","liquidity_gross":"500"}`)
	var entry TickEntry
	if err := sonnet.Unmarshal(raw, &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry.TickIndex != 8 || !entry.Tick.Initialized || entry.Tick.LiquidityNet.String() != "-500" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.Tick.LiquidityGross != uint128.From64(500) || !entry.Tick.FeeGrowthOutsideA.IsZero() {
		t.Fatalf("unexpected 128-bit fields: %+v", entry.Tick)
	}
}

func TestTickArrayAddress(t *testing.T) {
	pool := common.HexToHash("0x01")
	a := TickArrayAddress(pool, 0)
	if a != TickArrayAddress(pool, 0) {
		t.Fatalf("address must be deterministic")
	}
	if a == TickArrayAddress(pool, 704) || a == TickArrayAddress(common.HexToHash("0x02"), 0) {
		t.Fatalf("address must depend on pool and start")
	}
}

func TestSwapTickArrayStarts(t *testing.T) {
	cases := []struct {
		tick int32
		aToB bool
		want []int32
	}{
		{0, true, []int32{0, -704, -1408}},
		{0, false, []int32{0, 704, 1408}},
		{696, false, []int32{704, 1408, 2112}},
		{-443600, true, []int32{-444224}},
		{443600, false, []int32{443520}},
	}
	for _, tc := range cases {
		got, err := SwapTickArrayStarts(tc.tick, 8, tc.aToB)
		if err != nil {
			t.Fatalf("tick %d: %v", tc.tick, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("tick %d aToB %v: got %v want %v", tc.tick, tc.aToB, got, tc.want)
		}
	}

	if _, err := SwapTickArrayStarts(0, 0, true); !errors.Is(err, errcode.InvalidTickSpacing) {
		t.Fatalf("expected InvalidTickSpacing for zero spacing, got %v", err)
	}
}

func TestWhirlpoolValidate(t *testing.T) {
	pool := Whirlpool{TickSpacing: 8, SqrtPrice: clmath.SqrtPriceFromTickIndex(0)}
	if err := pool.Validate(); err != nil {
		t.Fatalf("valid pool: %v", err)
	}

	zero := pool
	zero.TickSpacing = 0
	if err := zero.Validate(); !errors.Is(err, errcode.InvalidTickSpacing) {
		t.Fatalf("expected InvalidTickSpacing, got %v", err)
	}

	unpriced := pool
	unpriced.SqrtPrice = uint128.Zero
	if err := unpriced.Validate(); !errors.Is(err, errcode.SqrtPriceOutOfBounds) {
		t.Fatalf("expected SqrtPriceOutOfBounds, got %v", err)
	}

	outside := pool
	outside.TickCurrentIndex = clmath.MaxTickIndex + 1
	if err := outside.Validate(); !errors.Is(err, errcode.TickNotFound) {
		t.Fatalf("expected TickNotFound, got %v", err)
	}
}
