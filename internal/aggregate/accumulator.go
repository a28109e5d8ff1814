package aggregate

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"whirlpools/internal/model"
)

// Accumulator holds aggregate values for a pool window.
type Accumulator struct {
	Whirlpool     common.Hash
	WindowStart   uint64
	WindowEnd     uint64
	SwapCount     uint64
	FailedCount   uint64
	VolumeA       *big.Int
	VolumeB       *big.Int
	FirstTS       uint64
	LastTS        uint64
	LastSqrtPrice string
	LastTick      int32
	LastLiquidity string
}

func NewAccumulator(record model.SwapRecord, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		Whirlpool:     record.Whirlpool,
		WindowStart:   windowStart,
		WindowEnd:     windowEnd,
		VolumeA:       big.NewInt(0),
		VolumeB:       big.NewInt(0),
		FirstTS:       record.Timestamp,
		LastTS:        record.Timestamp,
		LastSqrtPrice: record.SqrtPriceBefore,
		LastTick:      record.TickBefore,
		LastLiquidity: record.LiquidityBefore,
	}
}

// AddRecord folds one journal record into the window. Failed swaps are
// counted but move neither volume nor price.
func (a *Accumulator) AddRecord(record model.SwapRecord) error {
	if record.Timestamp < a.FirstTS {
		a.FirstTS = record.Timestamp
	}
	if record.Failed() {
		a.FailedCount++
		return nil
	}

	if _, err := parseBigInt(record.SqrtPriceAfter); err != nil {
		return fmt.Errorf("sqrt price after: %w", err)
	}
	if _, err := parseBigInt(record.LiquidityAfter); err != nil {
		return fmt.Errorf("liquidity after: %w", err)
	}

	a.VolumeA.Add(a.VolumeA, new(big.Int).SetUint64(record.AmountA))
	a.VolumeB.Add(a.VolumeB, new(big.Int).SetUint64(record.AmountB))

	// records sharing a timestamp keep journal order
	if record.Timestamp >= a.LastTS {
		a.LastTS = record.Timestamp
		a.LastSqrtPrice = record.SqrtPriceAfter
		a.LastTick = record.TickAfter
		a.LastLiquidity = record.LiquidityAfter
	}

	a.SwapCount++
	return nil
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}
