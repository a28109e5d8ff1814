package clmath

import (
	"testing"

	"lukechampine.com/uint128"
)

func mustU128(t *testing.T, s string) uint128.Uint128 {
	t.Helper()
	v, err := uint128.FromString(s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return v
}

func TestSqrtPriceFromTickIndex(t *testing.T) {
	cases := []struct {
		tick int32
		want string
	}{
		{0, "18446744073709551616"},
		{1, "18447666387855959850"},
		{-1, "18445821805675392311"},
		{8, "18454123878217468680"},
		{-8, "18439367220385604838"},
		{100, "18539204128674405812"},
		{-100, "18354745142194483561"},
		{MaxTickIndex, "79226673515401279992447579055"},
		{MinTickIndex, "4295048016"},
	}

	for _, tc := range cases {
		got := SqrtPriceFromTickIndex(tc.tick)
		if got.String() != tc.want {
			t.Fatalf("tick %d: got %s want %s", tc.tick, got, tc.want)
		}
	}

	if !SqrtPriceFromTickIndex(MaxTickIndex).Equals(MaxSqrtPriceX64) {
		t.Fatalf("max tick price does not match MaxSqrtPriceX64")
	}
	if !SqrtPriceFromTickIndex(MinTickIndex).Equals(MinSqrtPriceX64) {
		t.Fatalf("min tick price does not match MinSqrtPriceX64")
	}
}

func TestTickIndexFromSqrtPriceRoundTrip(t *testing.T) {
	ticks := []int32{0, 1, -1, 8, -8, 100, -100, 12345, -12345, 443635, MaxTickIndex, MinTickIndex}
	for _, tick := range ticks {
		got := TickIndexFromSqrtPrice(SqrtPriceFromTickIndex(tick))
		if got != tick {
			t.Fatalf("round trip %d: got %d", tick, got)
		}
	}
}

func TestTickIndexFromSqrtPriceBetweenTicks(t *testing.T) {
	one := uint128.New(0, 1)
	if got := TickIndexFromSqrtPrice(one.Sub64(1)); got != -1 {
		t.Fatalf("just below 1.0: got %d want -1", got)
	}
	if got := TickIndexFromSqrtPrice(one.Add64(1)); got != 0 {
		t.Fatalf("just above 1.0: got %d want 0", got)
	}
	if got := TickIndexFromSqrtPrice(MaxSqrtPriceX64.Sub64(1)); got != MaxTickIndex-1 {
		t.Fatalf("below max: got %d want %d", got, MaxTickIndex-1)
	}

	p9 := SqrtPriceFromTickIndex(9)
	if got := TickIndexFromSqrtPrice(p9.Sub64(1)); got != 8 {
		t.Fatalf("below tick 9: got %d want 8", got)
	}
	if got := TickIndexFromSqrtPrice(mustU128(t, "18448570301372848861")); got != 1 {
		t.Fatalf("partial fill price: got %d want 1", got)
	}
}
