package swap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"whirlpools/internal/clmath"
	"whirlpools/internal/errcode"
	"whirlpools/internal/model"
)

func TestNewTickSequence(t *testing.T) {
	_, err := NewTickSequence()
	require.ErrorIs(t, err, errcode.InvalidTickArraySequence)

	_, err = NewTickSequence(nil, tickArray(t, 0, nil))
	require.ErrorIs(t, err, errcode.InvalidTickArraySequence)

	four := []*model.TickArray{tickArray(t, 0, nil), tickArray(t, 704, nil), tickArray(t, 1408, nil), tickArray(t, 2112, nil)}
	_, err = NewTickSequence(four...)
	require.ErrorIs(t, err, errcode.InvalidTickArraySequence)

	seq, err := NewTickSequence(tickArray(t, 0, nil), nil, tickArray(t, 1408, nil))
	require.NoError(t, err)
	require.Equal(t, 1, seq.Len())
}

func TestTickSequenceIndexBounds(t *testing.T) {
	seq := sequence(t, tickArray(t, 0, map[int32]int64{8: 1}))

	tick, err := seq.GetTick(0, 8, testSpacing)
	require.NoError(t, err)
	require.True(t, tick.Initialized)

	_, err = seq.GetTick(1, 8, testSpacing)
	require.ErrorIs(t, err, errcode.TickArrayIndexOutofBounds)
	_, err = seq.GetTickOffset(-1, 8, testSpacing)
	require.ErrorIs(t, err, errcode.TickArrayIndexOutofBounds)
	_, err = seq.GetTickOffset(1, 8, testSpacing)
	require.ErrorIs(t, err, errcode.TickArrayIndexOutofBounds)

	tick, err = seq.GetTick(0, 16, testSpacing)
	require.NoError(t, err)
	require.False(t, tick.Initialized)

	offset, err := seq.GetTickOffset(0, 16, testSpacing)
	require.NoError(t, err)
	require.Equal(t, 2, offset)
}

func TestTickSequenceNextInitializedTick(t *testing.T) {
	cases := []struct {
		name       string
		arrays     []*model.TickArray
		tick       int32
		aToB       bool
		arrayIndex int
		wantArray  int
		wantTick   int32
	}{
		{
			name:      "hit in first array",
			arrays:    []*model.TickArray{tickArray(t, 0, map[int32]int64{80: 1})},
			tick:      8,
			wantArray: 0,
			wantTick:  80,
		},
		{
			name:      "advance right into second array",
			arrays:    []*model.TickArray{tickArray(t, 0, nil), tickArray(t, 704, map[int32]int64{800: 1})},
			tick:      100,
			wantArray: 1,
			wantTick:  800,
		},
		{
			name:      "advance left into second array",
			arrays:    []*model.TickArray{tickArray(t, 0, nil), tickArray(t, -704, map[int32]int64{-8: 1})},
			tick:      100,
			aToB:      true,
			wantArray: 1,
			wantTick:  -8,
		},
		{
			name:      "last array exhausted left",
			arrays:    []*model.TickArray{tickArray(t, 0, nil)},
			tick:      100,
			aToB:      true,
			wantArray: 0,
			wantTick:  0,
		},
		{
			name:      "last array exhausted right",
			arrays:    []*model.TickArray{tickArray(t, 0, nil)},
			tick:      100,
			wantArray: 0,
			wantTick:  87 * testSpacing,
		},
		{
			name:      "min array",
			arrays:    []*model.TickArray{tickArray(t, -444224, nil), tickArray(t, -444928, nil)},
			tick:      -443600,
			aToB:      true,
			wantArray: 0,
			wantTick:  clmath.MinTickIndex,
		},
		{
			name:      "max array",
			arrays:    []*model.TickArray{tickArray(t, 443520, nil)},
			tick:      443520,
			wantArray: 0,
			wantTick:  clmath.MaxTickIndex,
		},
		{
			name:       "start from later array",
			arrays:     []*model.TickArray{tickArray(t, 0, nil), tickArray(t, 704, map[int32]int64{704: 1})},
			tick:       703,
			arrayIndex: 1,
			wantArray:  1,
			wantTick:   704,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seq := sequence(t, tc.arrays...)
			arrayIndex, tick, err := seq.GetNextInitializedTickIndex(tc.tick, testSpacing, tc.aToB, tc.arrayIndex)
			require.NoError(t, err)
			require.Equal(t, tc.wantArray, arrayIndex)
			require.Equal(t, tc.wantTick, tick)
		})
	}
}

func TestTickSequenceInvalidIndex(t *testing.T) {
	seq := sequence(t, tickArray(t, 0, nil))
	_, _, err := seq.GetNextInitializedTickIndex(8, testSpacing, true, 1)
	require.ErrorIs(t, err, errcode.TickArraySequenceInvalidIndex)
}
