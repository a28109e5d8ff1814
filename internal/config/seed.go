package config

import (
	"github.com/spf13/pflag"
)

// SeedConfig holds configuration for the seed command.
type SeedConfig struct {
	Store    StoreConfig
	In       string
	LogLevel string
}

// LoadSeed merges config file, environment variables, and flags into SeedConfig.
func LoadSeed(cfgFile string, flags *pflag.FlagSet) (SeedConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return SeedConfig{}, err
	}

	cfg := SeedConfig{
		Store:    storeConfig(v),
		In:       v.GetString("in"),
		LogLevel: v.GetString("log-level"),
	}

	return cfg, nil
}
