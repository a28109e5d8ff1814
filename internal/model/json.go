package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sugawarayuuta/sonnet"
	"lukechampine.com/uint128"

	"whirlpools/internal/clmath"
)

// 128-bit values are encoded as decimal strings.

type whirlpoolJSON struct {
	Address                    common.Hash      `json:"address"`
	WhirlpoolsConfig           common.Hash      `json:"whirlpools_config"`
	TickSpacing                uint16           `json:"tick_spacing"`
	FeeRate                    uint16           `json:"fee_rate"`
	ProtocolFeeRate            uint16           `json:"protocol_fee_rate"`
	Liquidity                  string           `json:"liquidity"`
	SqrtPrice                  string           `json:"sqrt_price"`
	TickCurrentIndex           int32            `json:"tick_current_index"`
	ProtocolFeeOwedA           uint64           `json:"protocol_fee_owed_a"`
	ProtocolFeeOwedB           uint64           `json:"protocol_fee_owed_b"`
	TokenMintA                 common.Hash      `json:"token_mint_a"`
	TokenVaultA                common.Hash      `json:"token_vault_a"`
	FeeGrowthGlobalA           string           `json:"fee_growth_global_a"`
	TokenMintB                 common.Hash      `json:"token_mint_b"`
	TokenVaultB                common.Hash      `json:"token_vault_b"`
	FeeGrowthGlobalB           string           `json:"fee_growth_global_b"`
	RewardLastUpdatedTimestamp uint64           `json:"reward_last_updated_timestamp"`
	RewardInfos                []rewardInfoJSON `json:"reward_infos,omitempty"`
}

type rewardInfoJSON struct {
	Mint                  common.Hash `json:"mint"`
	Vault                 common.Hash `json:"vault"`
	Authority             common.Hash `json:"authority"`
	EmissionsPerSecondX64 string      `json:"emissions_per_second_x64"`
	GrowthGlobalX64       string      `json:"growth_global_x64"`
}

// MarshalJSON encodes the pool with decimal 128-bit fields.
func (w Whirlpool) MarshalJSON() ([]byte, error) {
	out := whirlpoolJSON{
		Address:                    w.Address,
		WhirlpoolsConfig:           w.WhirlpoolsConfig,
		TickSpacing:                w.TickSpacing,
		FeeRate:                    w.FeeRate,
		ProtocolFeeRate:            w.ProtocolFeeRate,
		Liquidity:                  w.Liquidity.String(),
		SqrtPrice:                  w.SqrtPrice.String(),
		TickCurrentIndex:           w.TickCurrentIndex,
		ProtocolFeeOwedA:           w.ProtocolFeeOwedA,
		ProtocolFeeOwedB:           w.ProtocolFeeOwedB,
		TokenMintA:                 w.TokenMintA,
		TokenVaultA:                w.TokenVaultA,
		FeeGrowthGlobalA:           w.FeeGrowthGlobalA.String(),
		TokenMintB:                 w.TokenMintB,
		TokenVaultB:                w.TokenVaultB,
		FeeGrowthGlobalB:           w.FeeGrowthGlobalB.String(),
		RewardLastUpdatedTimestamp: w.RewardLastUpdatedTimestamp,
	}
	for _, info := range w.RewardInfos {
		out.RewardInfos = append(out.RewardInfos, rewardInfoJSON{
			Mint:                  info.Mint,
			Vault:                 info.Vault,
			Authority:             info.Authority,
			EmissionsPerSecondX64: info.EmissionsPerSecondX64.String(),
			GrowthGlobalX64:       info.GrowthGlobalX64.String(),
		})
	}
	return sonnet.Marshal(out)
}

// UnmarshalJSON decodes a pool written by MarshalJSON.
func (w *Whirlpool) UnmarshalJSON(data []byte) error {
	var in whirlpoolJSON
	if err := sonnet.Unmarshal(data, &in); err != nil {
		return err
	}
	if len(in.RewardInfos) > NumRewards {
		return fmt.Errorf("too many reward infos: %d", len(in.RewardInfos))
	}

	out := Whirlpool{
		Address:                    in.Address,
		WhirlpoolsConfig:           in.WhirlpoolsConfig,
		TickSpacing:                in.TickSpacing,
		FeeRate:                    in.FeeRate,
		ProtocolFeeRate:            in.ProtocolFeeRate,
		TickCurrentIndex:           in.TickCurrentIndex,
		ProtocolFeeOwedA:           in.ProtocolFeeOwedA,
		ProtocolFeeOwedB:           in.ProtocolFeeOwedB,
		TokenMintA:                 in.TokenMintA,
		TokenVaultA:                in.TokenVaultA,
		TokenMintB:                 in.TokenMintB,
		TokenVaultB:                in.TokenVaultB,
		RewardLastUpdatedTimestamp: in.RewardLastUpdatedTimestamp,
	}
	var err error
	if out.Liquidity, err = ParseU128(in.Liquidity); err != nil {
		return fmt.Errorf("liquidity: %w", err)
	}
	if out.SqrtPrice, err = ParseU128(in.SqrtPrice); err != nil {
		return fmt.Errorf("sqrt_price: %w", err)
	}
	if out.FeeGrowthGlobalA, err = ParseU128(in.FeeGrowthGlobalA); err != nil {
		return fmt.Errorf("fee_growth_global_a: %w", err)
	}
	if out.FeeGrowthGlobalB, err = ParseU128(in.FeeGrowthGlobalB); err != nil {
		return fmt.Errorf("fee_growth_global_b: %w", err)
	}
	for i, info := range in.RewardInfos {
		reward := RewardInfo{Mint: info.Mint, Vault: info.Vault, Authority: info.Authority}
		if reward.EmissionsPerSecondX64, err = ParseU128(info.EmissionsPerSecondX64); err != nil {
			return fmt.Errorf("reward %d emissions: %w", i, err)
		}
		if reward.GrowthGlobalX64, err = ParseU128(info.GrowthGlobalX64); err != nil {
			return fmt.Errorf("reward %d growth: %w", i, err)
		}
		out.RewardInfos[i] = reward
	}

	*w = out
	return nil
}

// TickEntry is a tick with its absolute index, the sparse form used by fixtures and reports.
type TickEntry struct {
	TickIndex int32
	Tick      Tick
}

type tickEntryJSON struct {
	TickIndex            int32         `json:"tick_index"`
	Initialized          bool          `json:"initialized"`
	LiquidityNet         clmath.Int128 `json:"liquidity_net"`
	LiquidityGross       string        `json:"liquidity_gross"`
	FeeGrowthOutsideA    string        `json:"fee_growth_outside_a,omitempty"`
	FeeGrowthOutsideB    string        `json:"fee_growth_outside_b,omitempty"`
	RewardGrowthsOutside []string      `json:"reward_growths_outside,omitempty"`
}

func (e TickEntry) MarshalJSON() ([]byte, error) {
	out := tickEntryJSON{
		TickIndex:         e.TickIndex,
		Initialized:       e.Tick.Initialized,
		LiquidityNet:      e.Tick.LiquidityNet,
		LiquidityGross:    e.Tick.LiquidityGross.String(),
		FeeGrowthOutsideA: e.Tick.FeeGrowthOutsideA.String(),
		FeeGrowthOutsideB: e.Tick.FeeGrowthOutsideB.String(),
	}
	for _, growth := range e.Tick.RewardGrowthsOutside {
		out.RewardGrowthsOutside = append(out.RewardGrowthsOutside, growth.String())
	}
	return sonnet.Marshal(out)
}

func (e *TickEntry) UnmarshalJSON(data []byte) error {
	var in tickEntryJSON
	if err := sonnet.Unmarshal(data, &in); err != nil {
		return err
	}
	if len(in.RewardGrowthsOutside) > NumRewards {
		return fmt.Errorf("too many reward growths: %d", len(in.RewardGrowthsOutside))
	}

	tick := Tick{Initialized: in.Initialized, LiquidityNet: in.LiquidityNet}
	var err error
	if tick.LiquidityGross, err = ParseU128(in.LiquidityGross); err != nil {
		return fmt.Errorf("liquidity_gross: %w", err)
	}
	if tick.FeeGrowthOutsideA, err = ParseU128(in.FeeGrowthOutsideA); err != nil {
		return fmt.Errorf("fee_growth_outside_a: %w", err)
	}
	if tick.FeeGrowthOutsideB, err = ParseU128(in.FeeGrowthOutsideB); err != nil {
		return fmt.Errorf("fee_growth_outside_b: %w", err)
	}
	for i, growth := range in.RewardGrowthsOutside {
		if tick.RewardGrowthsOutside[i], err = ParseU128(growth); err != nil {
			return fmt.Errorf("reward_growths_outside %d: %w", i, err)
		}
	}

	e.TickIndex = in.TickIndex
	e.Tick = tick
	return nil
}

// ParseU128 parses a decimal string; the empty string is zero.
func ParseU128(s string) (uint128.Uint128, error) {
	if s == "" {
		return uint128.Zero, nil
	}
	return uint128.FromString(s)
}
