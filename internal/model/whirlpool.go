package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"lukechampine.com/uint128"

	"whirlpools/internal/clmath"
	"whirlpools/internal/errcode"
)

// Whirlpool is the persisted state of one pool.
type Whirlpool struct {
	Address          common.Hash
	WhirlpoolsConfig common.Hash
	TickSpacing      uint16
	FeeRate          uint16
	ProtocolFeeRate  uint16

	Liquidity        uint128.Uint128
	SqrtPrice        uint128.Uint128 // Q64.64
	TickCurrentIndex int32

	ProtocolFeeOwedA uint64
	ProtocolFeeOwedB uint64

	TokenMintA       common.Hash
	TokenVaultA      common.Hash
	FeeGrowthGlobalA uint128.Uint128

	TokenMintB       common.Hash
	TokenVaultB      common.Hash
	FeeGrowthGlobalB uint128.Uint128

	RewardLastUpdatedTimestamp uint64
	RewardInfos                [NumRewards]RewardInfo
}

// RewardInfo describes one reward emission stream.
type RewardInfo struct {
	Mint                  common.Hash
	Vault                 common.Hash
	Authority             common.Hash
	EmissionsPerSecondX64 uint128.Uint128
	GrowthGlobalX64       uint128.Uint128
}

// Validate checks the pool fields the swap engine divides by or bounds on.
func (w *Whirlpool) Validate() error {
	if w.TickSpacing == 0 {
		return fmt.Errorf("whirlpool %s: %w", w.Address, errcode.InvalidTickSpacing)
	}
	if w.SqrtPrice.Cmp(clmath.MinSqrtPriceX64) < 0 || w.SqrtPrice.Cmp(clmath.MaxSqrtPriceX64) > 0 {
		return fmt.Errorf("whirlpool %s: %w", w.Address, errcode.SqrtPriceOutOfBounds)
	}
	if IsOutOfBounds(w.TickCurrentIndex) {
		return fmt.Errorf("whirlpool %s: tick %d: %w", w.Address, w.TickCurrentIndex, errcode.TickNotFound)
	}
	return nil
}

// UpdateAfterSwap sets the price state produced by a swap.
func (w *Whirlpool) UpdateAfterSwap(liquidity uint128.Uint128, tickIndex int32, sqrtPrice uint128.Uint128) {
	w.Liquidity = liquidity
	w.TickCurrentIndex = tickIndex
	w.SqrtPrice = sqrtPrice
}

// InputMint is the mint paid into the pool for a trade in the given direction.
func (w *Whirlpool) InputMint(aToB bool) common.Hash {
	if aToB {
		return w.TokenMintA
	}
	return w.TokenMintB
}

// OutputMint is the mint paid out of the pool for a trade in the given direction.
func (w *Whirlpool) OutputMint(aToB bool) common.Hash {
	if aToB {
		return w.TokenMintB
	}
	return w.TokenMintA
}

// TokenAccount is a balance of one mint held by an owner. Pool vaults are token accounts too.
type TokenAccount struct {
	Address common.Hash `json:"address"`
	Mint    common.Hash `json:"mint"`
	Owner   common.Hash `json:"owner"`
	Amount  uint64      `json:"amount"`
}
