package model

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	bin "github.com/gagliardetto/binary"
	"lukechampine.com/uint128"

	"whirlpools/internal/clmath"
)

const (
	// TickSize is the encoded size of one tick.
	TickSize = 1 + 16*4 + 16*NumRewards
	// TickArrayDataSize is the encoded size of a tick array: start, ticks, whirlpool.
	TickArrayDataSize = 4 + TickArraySize*TickSize + common.HashLength
)

// MarshalBinary encodes the array in its fixed little-endian layout.
func (ta *TickArray) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(TickArrayDataSize)
	enc := bin.NewBinEncoder(buf)

	if err := enc.WriteInt32(ta.StartTickIndex, binary.LittleEndian); err != nil {
		return nil, err
	}
	for i := range ta.Ticks {
		if err := encodeTick(enc, &ta.Ticks[i]); err != nil {
			return nil, fmt.Errorf("encode tick %d: %w", i, err)
		}
	}
	if err := enc.WriteBytes(ta.Whirlpool[:], false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes data written by MarshalBinary.
func (ta *TickArray) UnmarshalBinary(data []byte) error {
	if len(data) != TickArrayDataSize {
		return fmt.Errorf("tick array data: want %d bytes, got %d", TickArrayDataSize, len(data))
	}
	dec := bin.NewBinDecoder(data)

	var out TickArray
	start, err := dec.ReadInt32(binary.LittleEndian)
	if err != nil {
		return fmt.Errorf("decode start tick index: %w", err)
	}
	out.StartTickIndex = start
	for i := range out.Ticks {
		if err := decodeTick(dec, &out.Ticks[i]); err != nil {
			return fmt.Errorf("decode tick %d: %w", i, err)
		}
	}
	pool, err := dec.ReadNBytes(common.HashLength)
	if err != nil {
		return fmt.Errorf("decode whirlpool: %w", err)
	}
	out.Whirlpool = common.BytesToHash(pool)

	*ta = out
	return nil
}

func encodeTick(enc *bin.Encoder, tick *Tick) error {
	if err := enc.WriteBool(tick.Initialized); err != nil {
		return err
	}
	fields := []uint128.Uint128{
		tick.LiquidityNet.Bits(),
		tick.LiquidityGross,
		tick.FeeGrowthOutsideA,
		tick.FeeGrowthOutsideB,
	}
	fields = append(fields, tick.RewardGrowthsOutside[:]...)

	var word [16]byte
	for _, v := range fields {
		v.PutBytes(word[:])
		if err := enc.WriteBytes(word[:], false); err != nil {
			return err
		}
	}
	return nil
}

func decodeTick(dec *bin.Decoder, tick *Tick) error {
	initialized, err := dec.ReadBool()
	if err != nil {
		return err
	}
	tick.Initialized = initialized

	read := func() (uint128.Uint128, error) {
		b, err := dec.ReadNBytes(16)
		if err != nil {
			return uint128.Zero, err
		}
		return uint128.FromBytes(b), nil
	}

	net, err := read()
	if err != nil {
		return err
	}
	tick.LiquidityNet = clmath.Int128FromBits(net)
	if tick.LiquidityGross, err = read(); err != nil {
		return err
	}
	if tick.FeeGrowthOutsideA, err = read(); err != nil {
		return err
	}
	if tick.FeeGrowthOutsideB, err = read(); err != nil {
		return err
	}
	for i := range tick.RewardGrowthsOutside {
		if tick.RewardGrowthsOutside[i], err = read(); err != nil {
			return err
		}
	}
	return nil
}
