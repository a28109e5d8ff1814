package swap

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"whirlpools/internal/clmath"
	"whirlpools/internal/errcode"
	"whirlpools/internal/model"
)

const testSpacing = 8

func testPool(tick int32, liquidity uint64) *model.Whirlpool {
	return &model.Whirlpool{
		Address:          common.HexToHash("0x01"),
		TickSpacing:      testSpacing,
		FeeRate:          3000,
		Liquidity:        uint128.From64(liquidity),
		SqrtPrice:        clmath.SqrtPriceFromTickIndex(tick),
		TickCurrentIndex: tick,
	}
}

// tickArray builds an array at start with the given tick index -> net liquidity.
func tickArray(t *testing.T, start int32, nets map[int32]int64) *model.TickArray {
	t.Helper()
	ta := &model.TickArray{StartTickIndex: start, Whirlpool: common.HexToHash("0x01")}
	for idx, net := range nets {
		gross := net
		if gross < 0 {
			gross = -gross
		}
		err := ta.UpdateTick(idx, testSpacing, model.TickUpdate{
			Initialized:    true,
			LiquidityNet:   clmath.NewInt128(net),
			LiquidityGross: uint128.From64(uint64(gross)),
		})
		require.NoError(t, err)
	}
	return ta
}

func sequence(t *testing.T, arrays ...*model.TickArray) *TickSequence {
	t.Helper()
	seq, err := NewTickSequence(arrays...)
	require.NoError(t, err)
	return seq
}

func u128(t *testing.T, s string) uint128.Uint128 {
	t.Helper()
	v, err := uint128.FromString(s)
	require.NoError(t, err)
	return v
}

func TestSwapEndToEnd(t *testing.T) {
	cases := []struct {
		name      string
		amount    uint64
		amountA   uint64
		amountB   uint64
		liquidity uint64
		tick      int32
		sqrtPrice string
	}{
		{"filled before tick 8", 100, 98, 100, 1_000_000, 1, "18448570301372848861"},
		{"filled just short of tick 8", 400, 397, 400, 1_000_000, 7, "18454085877850888017"},
		{"crosses tick 8", 500, 494, 500, 1_000_500, 9, "18455893880647329866"},
		{"crosses tick 8 and continues", 1000, 993, 1000, 1_000_500, 19, "18465094205777545824"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pool := testPool(0, 1_000_000)
			seq := sequence(t, tickArray(t, 0, map[int32]int64{8: 500}))

			update, err := Swap(pool, seq, tc.amount, clmath.MaxSqrtPriceX64, true, false, 0)
			require.NoError(t, err)
			require.Equal(t, tc.amountA, update.AmountA)
			require.Equal(t, tc.amountB, update.AmountB)
			require.Equal(t, uint128.From64(tc.liquidity), update.NextLiquidity)
			require.Equal(t, tc.tick, update.NextTickIndex)
			require.Equal(t, u128(t, tc.sqrtPrice), update.NextSqrtPrice)
		})
	}
}

func TestSwapDoesNotModifyPool(t *testing.T) {
	pool := testPool(0, 1_000_000)
	before := *pool
	seq := sequence(t, tickArray(t, 0, map[int32]int64{8: 500}))

	_, err := Swap(pool, seq, 1000, clmath.MaxSqrtPriceX64, true, false, 0)
	require.NoError(t, err)
	require.Equal(t, before, *pool)
}

func TestSwapGuardRails(t *testing.T) {
	pool := testPool(0, 1_000_000)
	seq := sequence(t, tickArray(t, 0, nil))
	belowMin := clmath.MinSqrtPriceX64.Sub64(1)
	aboveMax := clmath.MaxSqrtPriceX64.Add64(1)

	cases := []struct {
		name   string
		amount uint64
		limit  uint128.Uint128
		aToB   bool
		want   errcode.Code
	}{
		{"limit below min", 10, belowMin, true, errcode.SqrtPriceOutOfBounds},
		{"limit above max", 10, aboveMax, false, errcode.SqrtPriceOutOfBounds},
		{"bounds checked before amount", 0, aboveMax, false, errcode.SqrtPriceOutOfBounds},
		{"a to b limit above price", 10, clmath.SqrtPriceFromTickIndex(8), true, errcode.InvalidSqrtPriceLimitDirection},
		{"b to a limit below price", 10, clmath.SqrtPriceFromTickIndex(-8), false, errcode.InvalidSqrtPriceLimitDirection},
		{"direction checked before amount", 0, clmath.SqrtPriceFromTickIndex(-8), false, errcode.InvalidSqrtPriceLimitDirection},
		{"zero amount", 0, clmath.MaxSqrtPriceX64, false, errcode.ZeroTradableAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Swap(pool, seq, tc.amount, tc.limit, true, tc.aToB, 0)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSwapLimitAtCurrentPriceIsNoop(t *testing.T) {
	pool := testPool(0, 1_000_000)
	seq := sequence(t, tickArray(t, 0, nil))

	update, err := Swap(pool, seq, 1000, pool.SqrtPrice, true, true, 0)
	require.NoError(t, err)
	require.Zero(t, update.AmountA)
	require.Zero(t, update.AmountB)
	require.Equal(t, pool.SqrtPrice, update.NextSqrtPrice)
	require.Equal(t, pool.TickCurrentIndex, update.NextTickIndex)
}

func TestSwapCrossingAppliesNetLiquidity(t *testing.T) {
	t.Run("b to a adds net", func(t *testing.T) {
		pool := testPool(0, 1_000_000)
		seq := sequence(t, tickArray(t, 0, map[int32]int64{8: 500}))

		update, err := Swap(pool, seq, 1_000_000, clmath.SqrtPriceFromTickIndex(8), true, false, 0)
		require.NoError(t, err)
		require.Equal(t, uint128.From64(1_000_500), update.NextLiquidity)
		require.Equal(t, int32(8), update.NextTickIndex)
		require.Equal(t, clmath.SqrtPriceFromTickIndex(8), update.NextSqrtPrice)
		require.Equal(t, uint64(399), update.AmountA)
		require.Equal(t, uint64(403), update.AmountB)
	})

	t.Run("a to b subtracts net", func(t *testing.T) {
		pool := testPool(0, 1_000_000)
		seq := sequence(t, tickArray(t, 0, nil), tickArray(t, -704, map[int32]int64{-8: 500}))

		update, err := Swap(pool, seq, 1_000_000, clmath.SqrtPriceFromTickIndex(-8), true, true, 0)
		require.NoError(t, err)
		require.Equal(t, uint128.From64(999_500), update.NextLiquidity)
		require.Equal(t, int32(-9), update.NextTickIndex)
		require.Equal(t, clmath.SqrtPriceFromTickIndex(-8), update.NextSqrtPrice)
		require.Equal(t, uint64(403), update.AmountA)
		require.Equal(t, uint64(399), update.AmountB)
	})

	t.Run("a to b continues past crossed tick", func(t *testing.T) {
		pool := testPool(0, 1_000_000)
		seq := sequence(t, tickArray(t, 0, nil), tickArray(t, -704, map[int32]int64{-8: 500}))

		update, err := Swap(pool, seq, 1000, clmath.MinSqrtPriceX64, true, true, 0)
		require.NoError(t, err)
		require.Equal(t, uint64(1000), update.AmountA)
		require.Equal(t, uint64(993), update.AmountB)
		require.Equal(t, uint128.From64(999_500), update.NextLiquidity)
		require.Equal(t, int32(-20), update.NextTickIndex)
		require.Equal(t, u128(t, "18428401223522397993"), update.NextSqrtPrice)
	})
}

func TestSwapExactOutput(t *testing.T) {
	t.Run("b to a", func(t *testing.T) {
		pool := testPool(0, 1_000_000)
		seq := sequence(t, tickArray(t, 0, map[int32]int64{8: 500}))

		update, err := Swap(pool, seq, 500, clmath.MaxSqrtPriceX64, false, false, 0)
		require.NoError(t, err)
		require.Equal(t, uint64(500), update.AmountA)
		require.Equal(t, uint64(506), update.AmountB)
		require.Equal(t, uint128.From64(1_000_500), update.NextLiquidity)
		require.Equal(t, int32(10), update.NextTickIndex)
		require.Equal(t, u128(t, "18455987746779368159"), update.NextSqrtPrice)
	})

	t.Run("a to b", func(t *testing.T) {
		pool := testPool(0, 1_000_000)
		seq := sequence(t, tickArray(t, 0, nil), tickArray(t, -704, map[int32]int64{-8: 500}))

		update, err := Swap(pool, seq, 500, clmath.MinSqrtPriceX64, false, true, 0)
		require.NoError(t, err)
		require.Equal(t, uint64(506), update.AmountA)
		require.Equal(t, uint64(500), update.AmountB)
		require.Equal(t, uint128.From64(999_500), update.NextLiquidity)
		require.Equal(t, int32(-11), update.NextTickIndex)
		require.Equal(t, u128(t, "18437503167207571156"), update.NextSqrtPrice)
	})
}

func TestSwapAcrossThreeArrays(t *testing.T) {
	pool := testPool(0, 1_000_000)
	seq := sequence(t,
		tickArray(t, 0, map[int32]int64{8: 500}),
		tickArray(t, 704, map[int32]int64{704: -200}),
		tickArray(t, 1408, nil),
	)

	update, err := Swap(pool, seq, 50_000, clmath.MaxSqrtPriceX64, true, false, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(47_480), update.AmountA)
	require.Equal(t, uint64(50_000), update.AmountB)
	require.Equal(t, uint128.From64(1_000_300), update.NextLiquidity)
	require.Equal(t, int32(972), update.NextTickIndex)
	require.Equal(t, u128(t, "19365849971990276656"), update.NextSqrtPrice)
}

// countingTicks records how the swap loop walks a TickSequence.
type countingTicks struct {
	*TickSequence
	nexts   []int32
	arrays  map[int]bool
	crossed int
}

func (c *countingTicks) GetNextInitializedTickIndex(tickIndex int32, tickSpacing uint16, aToB bool, arrayIndex int) (int, int32, error) {
	c.arrays[arrayIndex] = true
	next, tick, err := c.TickSequence.GetNextInitializedTickIndex(tickIndex, tickSpacing, aToB, arrayIndex)
	if err == nil {
		c.arrays[next] = true
		c.nexts = append(c.nexts, tick)
	}
	return next, tick, err
}

func (c *countingTicks) GetTick(arrayIndex int, tickIndex int32, tickSpacing uint16) (*model.Tick, error) {
	tick, err := c.TickSequence.GetTick(arrayIndex, tickIndex, tickSpacing)
	if err == nil && tick.Initialized {
		c.crossed++
	}
	return tick, err
}

func TestSwapLoopMakesProgress(t *testing.T) {
	upward := func() *TickSequence {
		return sequence(t,
			tickArray(t, 0, map[int32]int64{8: 500}),
			tickArray(t, 704, map[int32]int64{704: -200}),
			tickArray(t, 1408, nil),
		)
	}
	downward := func() *TickSequence {
		return sequence(t,
			tickArray(t, 0, map[int32]int64{8: 300, 400: -100}),
			tickArray(t, -704, map[int32]int64{-16: -200}),
			tickArray(t, -1408, nil),
		)
	}

	cases := []struct {
		name      string
		tick      int32
		seq       *TickSequence
		amount    uint64
		exactIn   bool
		aToB      bool
		wantSteps int
		wantPrice string
	}{
		{"b to a exact in", 0, upward(), 50_000, true, false, 3, "19365849971990276656"},
		{"b to a exact out", 0, upward(), 40_000, false, false, 3, "19215005486239619986"},
		{"a to b exact in", 700, downward(), 60_000, true, true, 4, "17989412198749980931"},
		{"a to b exact out", 700, downward(), 50_000, false, true, 4, "18181449639056326686"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pool := testPool(tc.tick, 1_000_000)
			limit := clmath.MaxSqrtPriceX64
			if tc.aToB {
				limit = clmath.MinSqrtPriceX64
			}
			ticks := &countingTicks{TickSequence: tc.seq, arrays: map[int]bool{}}

			update, err := Swap(pool, ticks, tc.amount, limit, tc.exactIn, tc.aToB, 0)
			require.NoError(t, err)
			require.Equal(t, u128(t, tc.wantPrice), update.NextSqrtPrice)
			require.Len(t, ticks.nexts, tc.wantSteps)

			// every step but the last ends on the boundary it was aimed at
			prices := make([]uint128.Uint128, 0, len(ticks.nexts))
			for _, next := range ticks.nexts[:len(ticks.nexts)-1] {
				prices = append(prices, clmath.SqrtPriceFromTickIndex(next))
			}
			prices = append(prices, update.NextSqrtPrice)

			prev := pool.SqrtPrice
			for i, price := range prices {
				if tc.aToB {
					require.Negative(t, price.Cmp(prev), "step %d", i)
					require.GreaterOrEqual(t, price.Cmp(limit), 0, "step %d", i)
				} else {
					require.Positive(t, price.Cmp(prev), "step %d", i)
					require.LessOrEqual(t, price.Cmp(limit), 0, "step %d", i)
				}
				prev = price
			}

			require.LessOrEqual(t, len(ticks.arrays), tc.seq.Len())
			require.LessOrEqual(t, len(ticks.nexts), ticks.crossed+len(ticks.arrays))
		})
	}
}

func TestSwapAdvancesArrayAtLeadingEdge(t *testing.T) {
	pool := testPool(8, 1_000_000)
	seq := sequence(t,
		tickArray(t, 0, map[int32]int64{0: 300}),
		tickArray(t, -704, nil),
		tickArray(t, -1408, nil),
	)

	update, err := Swap(pool, seq, 3000, clmath.MinSqrtPriceX64, true, true, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(3000), update.AmountA)
	require.Equal(t, uint64(2983), update.AmountB)
	require.Equal(t, uint128.From64(999_700), update.NextLiquidity)
	require.Equal(t, int32(-52), update.NextTickIndex)
	require.Equal(t, u128(t, "18399076166067144989"), update.NextSqrtPrice)
}

func TestSwapRunsOutOfTickArrays(t *testing.T) {
	pool := testPool(0, 1_000_000)

	seq := sequence(t, tickArray(t, 0, map[int32]int64{8: 500}))
	_, err := Swap(pool, seq, 1_000_000_000_000, clmath.MaxSqrtPriceX64, true, false, 0)
	require.ErrorIs(t, err, errcode.TickArraySequenceInvalidIndex)

	seq = sequence(t,
		tickArray(t, 0, map[int32]int64{8: 500}),
		tickArray(t, 704, map[int32]int64{704: -200}),
		tickArray(t, 1408, nil),
	)
	_, err = Swap(pool, seq, 200_000, clmath.MaxSqrtPriceX64, true, false, 0)
	require.ErrorIs(t, err, errcode.TickArraySequenceInvalidIndex)
}

func TestSwapLiquidityUnderflow(t *testing.T) {
	pool := testPool(16, 100)
	before := *pool
	seq := sequence(t, tickArray(t, 0, map[int32]int64{8: 500}))

	_, err := Swap(pool, seq, 1_000_000, clmath.MinSqrtPriceX64, true, true, 0)
	require.ErrorIs(t, err, errcode.LiquidityOverflow)
	require.Equal(t, before, *pool)
}

func TestSwapMinNetLiquidityCannotBeNegated(t *testing.T) {
	pool := testPool(16, 100)
	ta := &model.TickArray{StartTickIndex: 0}
	require.NoError(t, ta.UpdateTick(8, testSpacing, model.TickUpdate{
		Initialized:  true,
		LiquidityNet: clmath.MinInt128(),
	}))

	_, err := Swap(pool, sequence(t, ta), 1_000_000, clmath.MinSqrtPriceX64, true, true, 0)
	require.ErrorIs(t, err, errcode.LiquidityOverflow)
}

func TestSwapWrongStartingArray(t *testing.T) {
	pool := testPool(0, 1_000_000)
	seq := sequence(t, tickArray(t, 704, nil))

	_, err := Swap(pool, seq, 100, clmath.MinSqrtPriceX64, true, true, 0)
	require.ErrorIs(t, err, errcode.InvalidTickArraySequence)
}
