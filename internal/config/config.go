package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures all runtime configuration derived from environment variables.
// The AWS region is not part of it; it is the command's positional argument.
type Config struct {
	Table         string        `env:"MOVIES_TABLE"                   envDefault:"Movies"`
	DataFile      string        `env:"MOVIES_DATA_FILE"               envDefault:"moviedata.json"`
	Endpoint      string        `env:"MOVIES_DYNAMODB_ENDPOINT"`
	ReadCapacity  int64         `env:"MOVIES_READ_CAPACITY"           envDefault:"10"`
	WriteCapacity int64         `env:"MOVIES_WRITE_CAPACITY"          envDefault:"10"`
	TableWait     time.Duration `env:"MOVIES_TABLE_WAIT"              envDefault:"100s"`
	TableWaitPoll time.Duration `env:"MOVIES_TABLE_WAIT_POLL"         envDefault:"10s"`
	CaseSensitive bool          `env:"MOVIES_CASE_SENSITIVE_SEARCH"`
	IgnoreUnknown bool          `env:"MOVIES_IGNORE_UNKNOWN_COMMANDS"`
	Verbose       bool          `env:"MOVIES_VERBOSE"`
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Table == "" {
		return Config{}, fmt.Errorf("MOVIES_TABLE must not be empty")
	}
	if cfg.ReadCapacity < 0 || cfg.WriteCapacity < 0 {
		return Config{}, fmt.Errorf("MOVIES_READ_CAPACITY and MOVIES_WRITE_CAPACITY must be non-negative")
	}
	if (cfg.ReadCapacity == 0) != (cfg.WriteCapacity == 0) {
		return Config{}, fmt.Errorf("MOVIES_READ_CAPACITY and MOVIES_WRITE_CAPACITY must both be zero (on-demand) or both positive")
	}
	if cfg.TableWait < 0 {
		return Config{}, fmt.Errorf("MOVIES_TABLE_WAIT must be non-negative")
	}
	if cfg.TableWaitPoll <= 0 {
		return Config{}, fmt.Errorf("MOVIES_TABLE_WAIT_POLL must be positive")
	}
	return cfg, nil
}
