package server

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the HTTP API configuration, read from the environment.
type Config struct {
	Addr     string `env:"STABSIM_ADDR" envDefault:":8080"`
	MaxRuns  int    `env:"STABSIM_MAX_RUNS" envDefault:"32"`
	Workers  int    `env:"STABSIM_WORKERS" envDefault:"4"`
	LogLevel string `env:"STABSIM_LOG_LEVEL" envDefault:"info"`

	// MaxCells caps n_coders x n_cases for one run. Each cell holds one
	// float32 discrepancy, so the default bounds a run near 200 MB.
	MaxCells int64 `env:"STABSIM_MAX_CELLS" envDefault:"50000000"`

	// RunRate limits POST /v1/runs per second across all clients; 0 disables.
	RunRate  float64 `env:"STABSIM_RUN_RATE" envDefault:"10"`
	RunBurst int     `env:"STABSIM_RUN_BURST" envDefault:"20"`
}

// DefaultMaxCells is used when a Config built in code leaves MaxCells unset.
const DefaultMaxCells = 50_000_000

// LoadConfig parses Config from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the bounds env.Parse cannot express.
func (c Config) Validate() error {
	if c.MaxRuns < 1 {
		return fmt.Errorf("STABSIM_MAX_RUNS must be at least 1, got %d", c.MaxRuns)
	}
	if c.Workers < 1 {
		return fmt.Errorf("STABSIM_WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.MaxCells < 1 {
		return fmt.Errorf("STABSIM_MAX_CELLS must be at least 1, got %d", c.MaxCells)
	}
	if c.RunRate < 0 {
		return fmt.Errorf("STABSIM_RUN_RATE must be non-negative, got %g", c.RunRate)
	}
	if c.RunRate > 0 && c.RunBurst < 1 {
		return fmt.Errorf("STABSIM_RUN_BURST must be at least 1 when rate limiting, got %d", c.RunBurst)
	}
	return nil
}
