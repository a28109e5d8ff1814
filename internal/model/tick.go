package model

import (
	"lukechampine.com/uint128"

	"whirlpools/internal/clmath"
)

const (
	// TickArraySize is the number of tick slots held by one tick array.
	TickArraySize = 88
	// NumRewards is the number of reward growth accumulators per tick.
	NumRewards = 3
)

// Tick is one initializable price point. The zero value is an uninitialized tick.
type Tick struct {
	Initialized          bool
	LiquidityNet         clmath.Int128
	LiquidityGross       uint128.Uint128
	FeeGrowthOutsideA    uint128.Uint128 // Q64.64
	FeeGrowthOutsideB    uint128.Uint128 // Q64.64
	RewardGrowthsOutside [NumRewards]uint128.Uint128
}

// TickUpdate is a staged replacement for every mutable field of a Tick.
type TickUpdate struct {
	Initialized          bool
	LiquidityNet         clmath.Int128
	LiquidityGross       uint128.Uint128
	FeeGrowthOutsideA    uint128.Uint128
	FeeGrowthOutsideB    uint128.Uint128
	RewardGrowthsOutside [NumRewards]uint128.Uint128
}

// TickUpdateFrom stages the current values of tick.
func TickUpdateFrom(tick Tick) TickUpdate {
	return TickUpdate(tick)
}

// Update replaces the tick contents with update.
func (t *Tick) Update(update TickUpdate) {
	*t = Tick(update)
}

// IsOutOfBounds reports whether tick is outside [MinTickIndex, MaxTickIndex].
func IsOutOfBounds(tick int32) bool {
	return tick > clmath.MaxTickIndex || tick < clmath.MinTickIndex
}

// IsValidStartTick reports whether tick can start a tick array for tickSpacing.
// Starts are multiples of 88*tickSpacing; the left-edge array may start below
// MinTickIndex so that it still covers it.
func IsValidStartTick(tick int32, tickSpacing uint16) bool {
	ticksInArray := TickArraySize * int32(tickSpacing)
	if ticksInArray == 0 {
		return false
	}

	if IsOutOfBounds(tick) {
		if tick > clmath.MinTickIndex {
			return false
		}
		minArrayStart := clmath.MinTickIndex - (clmath.MinTickIndex%ticksInArray + ticksInArray)
		return tick == minArrayStart
	}
	return tick%ticksInArray == 0
}

// IsUsableTick reports whether tick is in bounds and a multiple of tickSpacing.
func IsUsableTick(tick int32, tickSpacing uint16) bool {
	if IsOutOfBounds(tick) || tickSpacing == 0 {
		return false
	}
	return tick%int32(tickSpacing) == 0
}

// BoundTickIndex clamps tick to [MinTickIndex, MaxTickIndex].
func BoundTickIndex(tick int32) int32 {
	return max(clmath.MinTickIndex, min(tick, clmath.MaxTickIndex))
}
