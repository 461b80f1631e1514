// Package config loads engine-wide settings (resource limits, worker
// count, store backend selection, logging verbosity) from environment
// variables and an optional config file, layered through viper the way
// the retrieval pack's CLI tools do.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"cspx/internal/limits"
)

// StoreKind selects a store.Store implementation at run time.
type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreDisk   StoreKind = "disk"
	StoreHybrid StoreKind = "hybrid"
)

// Config is the engine's resolved run configuration.
type Config struct {
	Limits limits.Limits

	Store          StoreKind
	StorePath      string
	MemoryCapacity int

	Workers int
	Seed    int64

	Verbose bool
}

// Load builds a viper instance seeded with defaults, then layers in
// CSPX_-prefixed environment variables and an optional config file at
// path (ignored if empty or not found), and unmarshals the result.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CSPX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("timeout_ms", int64(0))
	v.SetDefault("memory_mb", int64(0))
	v.SetDefault("store", string(StoreMemory))
	v.SetDefault("store_path", "")
	v.SetDefault("memory_capacity", 0)
	v.SetDefault("workers", 1)
	v.SetDefault("seed", int64(0))
	v.SetDefault("verbose", false)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
			}
		}
	}

	cfg := Config{
		Limits: limits.Limits{
			TimeoutMS: v.GetInt64("timeout_ms"),
			MemoryMB:  v.GetInt64("memory_mb"),
		},
		Store:          StoreKind(v.GetString("store")),
		StorePath:      v.GetString("store_path"),
		MemoryCapacity: v.GetInt("memory_capacity"),
		Workers:        v.GetInt("workers"),
		Seed:           v.GetInt64("seed"),
		Verbose:        v.GetBool("verbose"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store {
	case StoreMemory, StoreDisk, StoreHybrid:
	default:
		return fmt.Errorf("config: unknown store kind %q", c.Store)
	}
	if (c.Store == StoreDisk || c.Store == StoreHybrid) && c.StorePath == "" {
		return fmt.Errorf("config: store %q requires store_path", c.Store)
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be >= 1, got %d", c.Workers)
	}
	return nil
}
