package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// StoreConfig selects the persistence backend shared by every command.
type StoreConfig struct {
	Backend      string
	Snapshot     string
	PGDSN        string
	SQLitePath   string
	Journal      string
	MaxRetries   int
	RetryBackoff time.Duration
}

// SwapConfig holds configuration for the quote and swap commands.
type SwapConfig struct {
	Store      StoreConfig
	Pool       string
	OwnerA     string
	OwnerB     string
	TickArrays []string
	Amount     uint64
	Threshold  uint64
	Limit      string
	AToB       bool
	ExactIn    bool
	Timestamp  uint64
	LogLevel   string
}

// Load merges config file, environment variables, and flags into SwapConfig.
func Load(cfgFile string, flags *pflag.FlagSet) (SwapConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return SwapConfig{}, err
	}

	cfg := SwapConfig{
		Store:      storeConfig(v),
		Pool:       v.GetString("pool"),
		OwnerA:     v.GetString("owner-a"),
		OwnerB:     v.GetString("owner-b"),
		TickArrays: getStringSlice(v, "tick-arrays"),
		Amount:     v.GetUint64("amount"),
		Threshold:  v.GetUint64("threshold"),
		Limit:      v.GetString("limit"),
		AToB:       v.GetBool("a-to-b"),
		ExactIn:    v.GetBool("exact-in"),
		Timestamp:  v.GetUint64("timestamp"),
		LogLevel:   v.GetString("log-level"),
	}

	return cfg, nil
}

// newViper builds a viper instance with the shared defaults, the WHIRLPOOL_
// env prefix, the bound flags and the optional config file.
func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("WHIRLPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("backend", BackendFile)
	v.SetDefault("snapshot", "./data/state.json")
	v.SetDefault("sqlite-path", "./data/whirlpools.db")
	v.SetDefault("journal", "./data/swaps.jsonl")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 100*time.Millisecond)
	v.SetDefault("limit", "")
	v.SetDefault("exact-in", true)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func storeConfig(v *viper.Viper) StoreConfig {
	return StoreConfig{
		Backend:      strings.ToLower(v.GetString("backend")),
		Snapshot:     v.GetString("snapshot"),
		PGDSN:        v.GetString("pg-dsn"),
		SQLitePath:   v.GetString("sqlite-path"),
		Journal:      v.GetString("journal"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
	}
}

// Validate reports a backend that cannot be opened with the given settings.
func (c StoreConfig) Validate() error {
	switch c.Backend {
	case BackendFile:
		return nil
	case BackendPostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg-dsn is required for the postgres backend")
		}
		return nil
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite-path is required for the sqlite backend")
		}
		return nil
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
