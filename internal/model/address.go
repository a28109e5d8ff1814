package model

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeebo/blake3"

	"whirlpools/internal/clmath"
	"whirlpools/internal/errcode"
)

var tickArraySeed = []byte("tick_array")

// TickArrayAddress derives the deterministic id of a pool's tick array.
func TickArrayAddress(whirlpool common.Hash, startTickIndex int32) common.Hash {
	var start [4]byte
	binary.LittleEndian.PutUint32(start[:], uint32(startTickIndex))

	h := blake3.New()
	h.Write(tickArraySeed)
	h.Write(whirlpool[:])
	h.Write(start[:])
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

// TickArrayStartIndex returns the start of the array holding tickIndex, moved
// by offset arrays.
func TickArrayStartIndex(tickIndex int32, tickSpacing uint16, offset int32) (int32, error) {
	if tickSpacing == 0 {
		return 0, errcode.InvalidTickSpacing
	}
	ticksInArray := TickArraySize * int32(tickSpacing)
	realIndex := int32(floorDiv(tickIndex, ticksInArray))
	return (realIndex + offset) * ticksInArray, nil
}

// SwapTickArrayStarts lists the starts of up to three arrays a swap from
// tickIndex traverses. Rightward swaps look up from tickIndex + spacing since
// the current array's upper boundary belongs to the next array.
func SwapTickArrayStarts(tickIndex int32, tickSpacing uint16, aToB bool) ([]int32, error) {
	minStart, err := TickArrayStartIndex(clmath.MinTickIndex, tickSpacing, 0)
	if err != nil {
		return nil, err
	}

	shift := int32(0)
	step := int32(1)
	if aToB {
		step = -1
	} else {
		shift = int32(tickSpacing)
	}

	starts := make([]int32, 0, 3)
	for i := int32(0); i < 3; i++ {
		start, err := TickArrayStartIndex(tickIndex+shift, tickSpacing, i*step)
		if err != nil {
			return nil, err
		}
		if start < minStart || start > clmath.MaxTickIndex {
			break
		}
		starts = append(starts, start)
	}
	return starts, nil
}
