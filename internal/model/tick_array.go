package model

import (
	"github.com/ethereum/go-ethereum/common"

	"whirlpools/internal/clmath"
	"whirlpools/internal/errcode"
)

// TickArray holds TickArraySize contiguous ticks of one pool starting at StartTickIndex.
type TickArray struct {
	StartTickIndex int32
	Ticks          [TickArraySize]Tick
	Whirlpool      common.Hash
}

// Initialize binds the array to whirlpool at startTickIndex.
func (ta *TickArray) Initialize(whirlpool *Whirlpool, startTickIndex int32) error {
	if !IsValidStartTick(startTickIndex, whirlpool.TickSpacing) {
		return errcode.InvalidStartTick
	}
	ta.Whirlpool = whirlpool.Address
	ta.StartTickIndex = startTickIndex
	return nil
}

// TickOffset returns the slot of tickIndex, flooring toward negative infinity.
// The result may fall outside [0, TickArraySize).
func (ta *TickArray) TickOffset(tickIndex int32, tickSpacing uint16) (int, error) {
	if tickSpacing == 0 {
		return 0, errcode.InvalidTickSpacing
	}
	return floorDiv(tickIndex-ta.StartTickIndex, int32(tickSpacing)), nil
}

// GetTick returns the tick stored at tickIndex.
func (ta *TickArray) GetTick(tickIndex int32, tickSpacing uint16) (*Tick, error) {
	if !ta.CheckInArrayBounds(tickIndex, tickSpacing) || !IsUsableTick(tickIndex, tickSpacing) {
		return nil, errcode.TickNotFound
	}
	offset, err := ta.TickOffset(tickIndex, tickSpacing)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, errcode.TickNotFound
	}
	return &ta.Ticks[offset], nil
}

// UpdateTick applies update to the tick stored at tickIndex.
func (ta *TickArray) UpdateTick(tickIndex int32, tickSpacing uint16, update TickUpdate) error {
	tick, err := ta.GetTick(tickIndex, tickSpacing)
	if err != nil {
		return err
	}
	tick.Update(update)
	return nil
}

// InSearchRange checks tickIndex against [start, start + 88*spacing), moved
// left by one spacing when shifted. Rightward searches use the shifted range:
// the array's own upper boundary tick belongs to the next array's search.
func (ta *TickArray) InSearchRange(tickIndex int32, tickSpacing uint16, shifted bool) bool {
	lower := ta.StartTickIndex
	upper := ta.StartTickIndex + TickArraySize*int32(tickSpacing)
	if shifted {
		lower -= int32(tickSpacing)
		upper -= int32(tickSpacing)
	}
	return tickIndex >= lower && tickIndex < upper
}

func (ta *TickArray) CheckInArrayBounds(tickIndex int32, tickSpacing uint16) bool {
	return ta.InSearchRange(tickIndex, tickSpacing, false)
}

func (ta *TickArray) IsMinTickArray() bool {
	return ta.StartTickIndex <= clmath.MinTickIndex
}

func (ta *TickArray) IsMaxTickArray(tickSpacing uint16) bool {
	return ta.StartTickIndex+TickArraySize*int32(tickSpacing) > clmath.MaxTickIndex
}

// GetNextInitTickIndex searches this array for the next initialized tick.
// Leftward (aToB) searches include tickIndex itself; rightward searches start
// one slot past it. ok is false when the array holds no further initialized tick.
func (ta *TickArray) GetNextInitTickIndex(tickIndex int32, tickSpacing uint16, aToB bool) (next int32, ok bool, err error) {
	if !ta.InSearchRange(tickIndex, tickSpacing, !aToB) {
		return 0, false, errcode.InvalidTickArraySequence
	}

	offset, err := ta.TickOffset(tickIndex, tickSpacing)
	if err != nil {
		return 0, false, err
	}
	if !aToB {
		offset++
	}

	for offset >= 0 && offset < TickArraySize {
		if ta.Ticks[offset].Initialized {
			return int32(offset)*int32(tickSpacing) + ta.StartTickIndex, true, nil
		}
		if aToB {
			offset--
		} else {
			offset++
		}
	}
	return 0, false, nil
}

// InitializedTicks returns the indexes of initialized ticks in ascending order.
func (ta *TickArray) InitializedTicks(tickSpacing uint16) []int32 {
	out := make([]int32, 0)
	for i := range ta.Ticks {
		if ta.Ticks[i].Initialized {
			out = append(out, ta.StartTickIndex+int32(i)*int32(tickSpacing))
		}
	}
	return out
}

func floorDiv(lhs, rhs int32) int {
	d := lhs / rhs
	r := lhs % rhs
	if (r > 0 && rhs < 0) || (r < 0 && rhs > 0) {
		d--
	}
	return int(d)
}
