package config

import (
	"github.com/spf13/pflag"
)

// TwoHopConfig holds configuration for the two-hop-swap command.
type TwoHopConfig struct {
	Store         StoreConfig
	PoolOne       string
	PoolTwo       string
	OwnerOneA     string
	OwnerOneB     string
	OwnerTwoA     string
	OwnerTwoB     string
	TickArraysOne []string
	TickArraysTwo []string
	Amount        uint64
	Threshold     uint64
	LimitOne      string
	LimitTwo      string
	AToBOne       bool
	AToBTwo       bool
	ExactIn       bool
	Timestamp     uint64
	LogLevel      string
}

// LoadTwoHop merges config file, environment variables, and flags into TwoHopConfig.
func LoadTwoHop(cfgFile string, flags *pflag.FlagSet) (TwoHopConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return TwoHopConfig{}, err
	}

	cfg := TwoHopConfig{
		Store:         storeConfig(v),
		PoolOne:       v.GetString("pool-one"),
		PoolTwo:       v.GetString("pool-two"),
		OwnerOneA:     v.GetString("owner-one-a"),
		OwnerOneB:     v.GetString("owner-one-b"),
		OwnerTwoA:     v.GetString("owner-two-a"),
		OwnerTwoB:     v.GetString("owner-two-b"),
		TickArraysOne: getStringSlice(v, "tick-arrays-one"),
		TickArraysTwo: getStringSlice(v, "tick-arrays-two"),
		Amount:        v.GetUint64("amount"),
		Threshold:     v.GetUint64("threshold"),
		LimitOne:      v.GetString("limit-one"),
		LimitTwo:      v.GetString("limit-two"),
		AToBOne:       v.GetBool("a-to-b-one"),
		AToBTwo:       v.GetBool("a-to-b-two"),
		ExactIn:       v.GetBool("exact-in"),
		Timestamp:     v.GetUint64("timestamp"),
		LogLevel:      v.GetString("log-level"),
	}

	return cfg, nil
}
