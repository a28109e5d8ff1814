package model

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"lukechampine.com/uint128"

	"whirlpools/internal/clmath"
	"whirlpools/internal/errcode"
)

func testPool(spacing uint16) *Whirlpool {
	return &Whirlpool{
		Address:     common.HexToHash("0x01"),
		TickSpacing: spacing,
	}
}

func initializedAt(t *testing.T, ta *TickArray, spacing uint16, ticks ...int32) {
	t.Helper()
	for _, tick := range ticks {
		update := TickUpdate{
			Initialized:    true,
			LiquidityNet:   clmath.NewInt128(100),
			LiquidityGross: uint128.From64(100),
		}
		if err := ta.UpdateTick(tick, spacing, update); err != nil {
			t.Fatalf("update tick %d: %v", tick, err)
		}
	}
}

func TestTickOffsetFloors(t *testing.T) {
	ta := &TickArray{StartTickIndex: 0}
	cases := []struct {
		tick int32
		want int
	}{
		{-1, -1},
		{-3, -2},
		{0, 0},
		{1, 0},
		{5, 2},
	}
	for _, tc := range cases {
		got, err := ta.TickOffset(tc.tick, 2)
		if err != nil {
			t.Fatalf("tick %d: %v", tc.tick, err)
		}
		if got != tc.want {
			t.Fatalf("tick %d: got offset %d want %d", tc.tick, got, tc.want)
		}
	}

	if _, err := ta.TickOffset(4, 0); !errors.Is(err, errcode.InvalidTickSpacing) {
		t.Fatalf("expected InvalidTickSpacing, got %v", err)
	}
}

func TestValidStartTick(t *testing.T) {
	const spacing = 8
	cases := []struct {
		tick int32
		want bool
	}{
		{0, true},
		{88 * spacing, true},
		{-88 * spacing, true},
		{1, false},
		{-444224, true},
		{clmath.MinTickIndex, false},
		{-443520, true},
		{-444224 - 88*spacing, false},
		{clmath.MaxTickIndex + 1, false},
	}
	for _, tc := range cases {
		if got := IsValidStartTick(tc.tick, spacing); got != tc.want {
			t.Fatalf("start %d: got %v want %v", tc.tick, got, tc.want)
		}
	}
	if IsValidStartTick(0, 0) {
		t.Fatalf("zero spacing must not accept any start")
	}
}

func TestInitialize(t *testing.T) {
	pool := testPool(8)
	var ta TickArray
	if err := ta.Initialize(pool, 1); !errors.Is(err, errcode.InvalidStartTick) {
		t.Fatalf("expected InvalidStartTick, got %v", err)
	}
	if err := ta.Initialize(pool, 704); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if ta.StartTickIndex != 704 || ta.Whirlpool != pool.Address {
		t.Fatalf("unexpected array header: %d %s", ta.StartTickIndex, ta.Whirlpool)
	}
}

func TestTickPredicates(t *testing.T) {
	if !IsOutOfBounds(clmath.MaxTickIndex+1) || !IsOutOfBounds(clmath.MinTickIndex-1) {
		t.Fatalf("expected out of bounds")
	}
	if IsOutOfBounds(0) {
		t.Fatalf("0 is in bounds")
	}
	if !IsUsableTick(-16, 8) || IsUsableTick(-12, 8) || IsUsableTick(8, 0) {
		t.Fatalf("unexpected usable tick result")
	}
	if BoundTickIndex(500000) != clmath.MaxTickIndex || BoundTickIndex(-500000) != clmath.MinTickIndex || BoundTickIndex(7) != 7 {
		t.Fatalf("unexpected bound tick result")
	}
}

func TestGetTick(t *testing.T) {
	ta := &TickArray{StartTickIndex: 0}
	initializedAt(t, ta, 8, 8)

	tick, err := ta.GetTick(8, 8)
	if err != nil {
		t.Fatalf("get tick: %v", err)
	}
	if !tick.Initialized || tick != &ta.Ticks[1] {
		t.Fatalf("get tick returned wrong slot")
	}

	for _, idx := range []int32{7, -8, 704} {
		if _, err := ta.GetTick(idx, 8); !errors.Is(err, errcode.TickNotFound) {
			t.Fatalf("tick %d: expected TickNotFound, got %v", idx, err)
		}
	}
}

func TestTickUpdateReplacesAllFields(t *testing.T) {
	var tick Tick
	tick.Update(TickUpdate{
		Initialized:          true,
		LiquidityNet:         clmath.NewInt128(-5),
		LiquidityGross:       uint128.From64(5),
		FeeGrowthOutsideA:    uint128.From64(1),
		FeeGrowthOutsideB:    uint128.From64(2),
		RewardGrowthsOutside: [NumRewards]uint128.Uint128{uint128.From64(3), uint128.From64(4), uint128.From64(5)},
	})
	update := TickUpdateFrom(tick)
	update.Initialized = false
	update.LiquidityNet = clmath.NewInt128(0)
	tick.Update(update)

	if tick.Initialized || !tick.LiquidityNet.IsZero() {
		t.Fatalf("update did not replace flag and net: %+v", tick)
	}
	if tick.FeeGrowthOutsideB != uint128.From64(2) || tick.RewardGrowthsOutside[2] != uint128.From64(5) {
		t.Fatalf("staged update dropped fields: %+v", tick)
	}
}

func TestGetNextInitTickIndexInclusiveExclusive(t *testing.T) {
	const spacing = 8
	ta := &TickArray{StartTickIndex: 0}
	initializedAt(t, ta, spacing, 10*spacing, 40*spacing)

	cases := []struct {
		name   string
		tick   int32
		aToB   bool
		want   int32
		wantOK bool
	}{
		{"left inclusive", 40 * spacing, true, 40 * spacing, true},
		{"right exclusive", 40 * spacing, false, 0, false},
		{"left skips to lower", 40*spacing - 1, true, 10 * spacing, true},
		{"right from lower", 10 * spacing, false, 40 * spacing, true},
		{"left exhausted", 10*spacing - 1, true, 0, false},
		{"right from shifted lower edge", -spacing, false, 10 * spacing, true},
	}
	for _, tc := range cases {
		got, ok, err := ta.GetNextInitTickIndex(tc.tick, spacing, tc.aToB)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if ok != tc.wantOK || got != tc.want {
			t.Fatalf("%s: got (%d, %v) want (%d, %v)", tc.name, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestGetNextInitTickIndexOutOfRange(t *testing.T) {
	const spacing = 8
	ta := &TickArray{StartTickIndex: 0}
	if _, _, err := ta.GetNextInitTickIndex(88*spacing, spacing, true); !errors.Is(err, errcode.InvalidTickArraySequence) {
		t.Fatalf("expected InvalidTickArraySequence, got %v", err)
	}
	if _, _, err := ta.GetNextInitTickIndex(87*spacing, spacing, false); !errors.Is(err, errcode.InvalidTickArraySequence) {
		t.Fatalf("expected InvalidTickArraySequence, got %v", err)
	}
	if _, _, err := ta.GetNextInitTickIndex(-1, spacing, true); !errors.Is(err, errcode.InvalidTickArraySequence) {
		t.Fatalf("expected InvalidTickArraySequence, got %v", err)
	}
}

func TestMinMaxTickArray(t *testing.T) {
	if !(&TickArray{StartTickIndex: -444224}).IsMinTickArray() {
		t.Fatalf("left-edge array must be the min array")
	}
	if (&TickArray{StartTickIndex: -443520}).IsMinTickArray() {
		t.Fatalf("-443520 does not cover the min tick")
	}
	if !(&TickArray{StartTickIndex: 443520}).IsMaxTickArray(8) {
		t.Fatalf("443520 with spacing 8 covers the max tick")
	}
	if (&TickArray{StartTickIndex: 0}).IsMaxTickArray(8) {
		t.Fatalf("array at 0 is not the max array")
	}
}

func TestInitializedTicks(t *testing.T) {
	ta := &TickArray{StartTickIndex: -704}
	initializedAt(t, ta, 8, -8, -696)
	got := ta.InitializedTicks(8)
	if len(got) != 2 || got[0] != -696 || got[1] != -8 {
		t.Fatalf("unexpected initialized ticks: %v", got)
	}
}
