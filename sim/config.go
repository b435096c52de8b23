package sim

import (
	"github.com/inference-sim/stabsim/sim/accuracy"
)

// StreamMode selects how shuffle randomness is partitioned across coders.
type StreamMode string

const (
	// StreamShared drives every coder's shuffle from one sequence stream,
	// consumed in coder order. This is the reproducible default.
	StreamShared StreamMode = "shared"

	// StreamPerCoder gives each coder its own shuffle stream so trials can be
	// computed concurrently. Output does not depend on the worker count, but
	// differs from StreamShared for the same seed.
	StreamPerCoder StreamMode = "per-coder"
)

// validStreamModes maps accepted stream mode strings.
var validStreamModes = map[StreamMode]bool{
	StreamShared:   true,
	StreamPerCoder: true,
	"":             true, // empty defaults to shared
}

// IsValidStreamMode returns true if the given string is a recognized stream mode.
func IsValidStreamMode(mode string) bool {
	return validStreamModes[StreamMode(mode)]
}

// Population bounds enforced by callers through ClampConfig.
const (
	MinCoders = 1
	MaxCoders = 10000
	MinCases  = 10
	MaxCases  = 100000

	DefaultCoders = 500
	DefaultCases  = 200
	DefaultSeed   = 910
)

// ResolveSeed maps the unset seed 0 to DefaultSeed.
func ResolveSeed(seed int64) int64 {
	if seed == 0 {
		return DefaultSeed
	}
	return seed
}

// Config groups the inputs of one fixed-totals simulation run.
type Config struct {
	NCases  int                   // cases per coder (> 0)
	NCoders int                   // coders in the population (> 0)
	Dist    accuracy.Distribution // nil means uniform(0,1)
	Seed    SimulationKey

	StreamMode StreamMode // "" means StreamShared
	Workers    int        // goroutines for StreamPerCoder; <= 0 means 1

	// ResampleCustom draws accuracies from a custom density instead of the
	// uniform(0,1) stand-in the dashboard uses for custom selections.
	ResampleCustom bool
}

// ClampConfig coerces population sizes into the supported bounds.
// Zero sizes take the defaults.
func ClampConfig(cfg Config) Config {
	if cfg.NCoders == 0 {
		cfg.NCoders = DefaultCoders
	}
	if cfg.NCases == 0 {
		cfg.NCases = DefaultCases
	}
	cfg.NCoders = min(MaxCoders, max(MinCoders, cfg.NCoders))
	cfg.NCases = min(MaxCases, max(MinCases, cfg.NCases))
	if cfg.StreamMode == "" {
		cfg.StreamMode = StreamShared
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return cfg
}
