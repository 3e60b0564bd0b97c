// Package config holds the blockmapper tool settings. Values come from
// built-in defaults, an optional TOML file and command line flags, with
// later sources winning.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Node y range covered when no limits are given: every block y that
// survives a position key round trip.
const (
	DefaultMinY = -2048 * 16
	DefaultMaxY = 2047*16 + 15
)

// Config is the full tool configuration.
type Config struct {
	World    string `toml:"world"`    // world directory
	Backend  string `toml:"backend"`  // overrides the backend named in world.mt
	Geometry string `toml:"geometry"` // "x:z+w+h" in nodes, empty for the whole map
	MinY     int    `toml:"min_y"`
	MaxY     int    `toml:"max_y"`

	Log   LogConfig   `toml:"log"`
	Retry RetryConfig `toml:"retry"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbose    bool   `toml:"verbose"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// RetryConfig configures retries of a busy sqlite3 store.
type RetryConfig struct {
	Backoff     time.Duration `toml:"backoff"`
	MaxAttempts int           `toml:"max_attempts"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MinY: DefaultMinY,
		MaxY: DefaultMaxY,
		Log: LogConfig{
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
		Retry: RetryConfig{
			Backoff: 10 * time.Millisecond,
		},
	}
}

// Load returns Default overlaid with the TOML file at path. Unknown keys
// are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := decodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func decodeFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// Validate checks values that cannot be checked by type alone.
func (c Config) Validate() error {
	if c.MinY > c.MaxY {
		return fmt.Errorf("min_y %d is above max_y %d", c.MinY, c.MaxY)
	}
	if c.Retry.Backoff < 0 || c.Retry.MaxAttempts < 0 {
		return errors.New("retry backoff and max_attempts must not be negative")
	}
	return nil
}

// bind registers one flag per setting on fs, writing into c.
func (c *Config) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.World, "i", c.World, "world directory")
	fs.StringVar(&c.Backend, "backend", c.Backend, "override the backend named in world.mt")
	fs.StringVar(&c.Geometry, "geometry", c.Geometry, "limit to nodes x:z+w+h")
	fs.IntVar(&c.MinY, "min-y", c.MinY, "lowest node y to consider")
	fs.IntVar(&c.MaxY, "max-y", c.MaxY, "highest node y to consider")
	fs.BoolVar(&c.Log.Verbose, "v", c.Log.Verbose, "verbose logging")
	fs.StringVar(&c.Log.File, "log-file", c.Log.File, "also write JSON logs to this file")
	fs.DurationVar(&c.Retry.Backoff, "busy-backoff", c.Retry.Backoff, "wait between retries of a busy database")
	fs.IntVar(&c.Retry.MaxAttempts, "busy-attempts", c.Retry.MaxAttempts, "give up after this many busy answers (0 = never)")
}

// Parse registers the config flags and -config on fs and parses args.
// When -config names a file, settings the command line did not set are
// taken from it.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Default()
	cfg.bind(fs)
	path := fs.String("config", "", "TOML configuration file")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if *path == "" {
		return cfg, cfg.Validate()
	}

	fileCfg, err := Load(*path)
	if err != nil {
		return Config{}, err
	}
	overrides := flag.NewFlagSet(fs.Name(), flag.ContinueOnError)
	fileCfg.bind(overrides)
	var setErr error
	fs.Visit(func(f *flag.Flag) {
		if overrides.Lookup(f.Name) == nil || setErr != nil {
			return
		}
		setErr = overrides.Set(f.Name, f.Value.String())
	})
	if setErr != nil {
		return Config{}, setErr
	}
	return fileCfg, fileCfg.Validate()
}
