package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// StatsConfig holds configuration for the stats command.
type StatsConfig struct {
	Store    StoreConfig
	Journal  string
	Source   string
	Window   string
	From     string
	WithTVL  bool
	LogLevel string
}

// LoadStats merges config file, environment variables, and flags into StatsConfig.
func LoadStats(cfgFile string, flags *pflag.FlagSet) (StatsConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return StatsConfig{}, err
	}
	v.SetDefault("window", "0s")
	v.SetDefault("source", "journal")

	store := storeConfig(v)
	cfg := StatsConfig{
		Store:    store,
		Journal:  store.Journal,
		Source:   strings.ToLower(v.GetString("source")),
		Window:   v.GetString("window"),
		From:     v.GetString("from"),
		WithTVL:  v.GetBool("with-tvl"),
		LogLevel: v.GetString("log-level"),
	}

	return cfg, nil
}

// ParseWindow parses a window duration into whole seconds. An empty value
// or zero disables windowing.
func ParseWindow(input string) (uint64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(input)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, strconv.ErrRange
	}
	return uint64(d / time.Second), nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return 0, err
		}
		return val, nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
