package swap

import (
	"whirlpools/internal/clmath"
	"whirlpools/internal/errcode"
	"whirlpools/internal/model"
)

// TickArrays is the view over adjacent tick arrays the swap loop walks.
// arrayIndex is opaque to the caller; it only moves forward.
type TickArrays interface {
	GetNextInitializedTickIndex(tickIndex int32, tickSpacing uint16, aToB bool, arrayIndex int) (int, int32, error)
	GetTick(arrayIndex int, tickIndex int32, tickSpacing uint16) (*model.Tick, error)
	GetTickOffset(arrayIndex int, tickIndex int32, tickSpacing uint16) (int, error)
}

// MaxSequenceArrays is the number of tick arrays one swap may visit.
const MaxSequenceArrays = 3

// TickSequence orders up to three tick arrays in the direction of travel.
type TickSequence struct {
	arrays []*model.TickArray
}

// NewTickSequence builds a sequence from the given arrays. A nil entry ends
// the sequence; the first array is required.
func NewTickSequence(arrays ...*model.TickArray) (*TickSequence, error) {
	if len(arrays) == 0 || len(arrays) > MaxSequenceArrays || arrays[0] == nil {
		return nil, errcode.InvalidTickArraySequence
	}
	seq := &TickSequence{arrays: make([]*model.TickArray, 0, len(arrays))}
	for _, ta := range arrays {
		if ta == nil {
			break
		}
		seq.arrays = append(seq.arrays, ta)
	}
	return seq, nil
}

// Len is the number of arrays in the sequence.
func (s *TickSequence) Len() int {
	return len(s.arrays)
}

func (s *TickSequence) array(arrayIndex int) (*model.TickArray, bool) {
	if arrayIndex < 0 || arrayIndex >= len(s.arrays) {
		return nil, false
	}
	return s.arrays[arrayIndex], true
}

// GetTick returns the tick at tickIndex in the array at arrayIndex.
func (s *TickSequence) GetTick(arrayIndex int, tickIndex int32, tickSpacing uint16) (*model.Tick, error) {
	ta, ok := s.array(arrayIndex)
	if !ok {
		return nil, errcode.TickArrayIndexOutofBounds
	}
	return ta.GetTick(tickIndex, tickSpacing)
}

func (s *TickSequence) GetTickOffset(arrayIndex int, tickIndex int32, tickSpacing uint16) (int, error) {
	ta, ok := s.array(arrayIndex)
	if !ok {
		return 0, errcode.TickArrayIndexOutofBounds
	}
	return ta.TickOffset(tickIndex, tickSpacing)
}

// GetNextInitializedTickIndex finds the next initialized tick from tickIndex,
// starting in the array at arrayIndex and moving on to later arrays as each
// one is exhausted. When no initialized tick is left it returns the global
// bound if the array covers it, else the far edge of the last array.
func (s *TickSequence) GetNextInitializedTickIndex(tickIndex int32, tickSpacing uint16, aToB bool, arrayIndex int) (int, int32, error) {
	searchIndex := tickIndex
	for {
		ta, ok := s.array(arrayIndex)
		if !ok {
			return 0, 0, errcode.TickArraySequenceInvalidIndex
		}

		next, found, err := ta.GetNextInitTickIndex(searchIndex, tickSpacing, aToB)
		if err != nil {
			return 0, 0, err
		}
		if found {
			return arrayIndex, next, nil
		}

		if aToB && ta.IsMinTickArray() {
			return arrayIndex, clmath.MinTickIndex, nil
		}
		if !aToB && ta.IsMaxTickArray(tickSpacing) {
			return arrayIndex, clmath.MaxTickIndex, nil
		}

		if arrayIndex+1 == len(s.arrays) {
			if aToB {
				return arrayIndex, ta.StartTickIndex, nil
			}
			return arrayIndex, ta.StartTickIndex + (model.TickArraySize-1)*int32(tickSpacing), nil
		}

		if aToB {
			searchIndex = ta.StartTickIndex - 1
		} else {
			searchIndex = ta.StartTickIndex + model.TickArraySize*int32(tickSpacing) - 1
		}
		arrayIndex++
	}
}
