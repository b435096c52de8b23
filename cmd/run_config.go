package cmd

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/stabsim/sim"
	"github.com/inference-sim/stabsim/sim/accuracy"
	"github.com/inference-sim/stabsim/sim/stabilization"
)

// RunConfig is one simulation + stabilization setup as written in YAML.
// Keys missing from a file keep the value they had before decoding, so
// files layer on top of DefaultRunConfig or a scenario preset.
type RunConfig struct {
	Version        string            `yaml:"version,omitempty" json:"version,omitempty"`
	Seed           int64             `yaml:"seed" json:"seed"`
	NCases         int               `yaml:"n_cases" json:"n_cases"`
	NCoders        int               `yaml:"n_coders" json:"n_coders"`
	Distribution   accuracy.DistSpec `yaml:"distribution" json:"distribution"`
	Window         int               `yaml:"window" json:"window"`
	Epsilons       []float64         `yaml:"epsilons" json:"epsilons"`
	StreamMode     string            `yaml:"stream_mode,omitempty" json:"stream_mode,omitempty"`
	Workers        int               `yaml:"workers,omitempty" json:"workers,omitempty"`
	ResampleCustom bool              `yaml:"resample_custom,omitempty" json:"resample_custom,omitempty"`
}

// ScenarioFile is the scenarios.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type ScenarioFile struct {
	Version   string               `yaml:"version"`
	Scenarios map[string]yaml.Node `yaml:"scenarios"`
}

// DefaultRunConfig mirrors the dashboard's initial inputs.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Version:      "1",
		Seed:         sim.DefaultSeed,
		NCases:       sim.DefaultCases,
		NCoders:      sim.DefaultCoders,
		Distribution: accuracy.DistSpec{Type: string(accuracy.KindUniform)},
		Window:       stabilization.DefaultWindow,
		Epsilons:     append([]float64(nil), stabilization.DefaultEpsilons...),
		StreamMode:   string(sim.StreamShared),
		Workers:      1,
	}
}

// decodeStrict decodes YAML onto out, rejecting unknown keys.
func decodeStrict(data []byte, out any) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	return decoder.Decode(out)
}

// LoadRunConfig reads a YAML run config from path and layers it onto base.
func LoadRunConfig(path string, base RunConfig) (RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, fmt.Errorf("reading run config: %w", err)
	}
	cfg := base
	// a list in the file replaces the base list rather than merging into it
	cfg.Epsilons = nil
	if err := decodeStrict(data, &cfg); err != nil {
		return RunConfig{}, fmt.Errorf("parsing run config %s: %w", path, err)
	}
	if cfg.Epsilons == nil {
		cfg.Epsilons = base.Epsilons
	}
	return cfg, nil
}

// LoadScenarios parses a scenarios file. Each preset is layered onto
// DefaultRunConfig and validated.
func LoadScenarios(path string) (map[string]RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenarios file: %w", err)
	}
	var file ScenarioFile
	if err := decodeStrict(data, &file); err != nil {
		return nil, fmt.Errorf("parsing scenarios file %s: %w", path, err)
	}

	out := make(map[string]RunConfig, len(file.Scenarios))
	for name, node := range file.Scenarios {
		raw, err := yaml.Marshal(&node)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", name, err)
		}
		cfg := DefaultRunConfig()
		cfg.Epsilons = nil
		if err := decodeStrict(raw, &cfg); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", name, err)
		}
		if cfg.Epsilons == nil {
			cfg.Epsilons = DefaultRunConfig().Epsilons
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", name, err)
		}
		out[name] = cfg
	}
	return out, nil
}

// ScenarioNames lists preset names in sorted order.
func ScenarioNames(scenarios map[string]RunConfig) []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate rejects values that clamping cannot give a sensible meaning to.
// Sizes above the supported maximum are clamped later, not rejected.
func (c *RunConfig) Validate() error {
	if c.NCases < 0 {
		return fmt.Errorf("n_cases must be non-negative, got %d", c.NCases)
	}
	if c.NCoders < 0 {
		return fmt.Errorf("n_coders must be non-negative, got %d", c.NCoders)
	}
	if c.Window < 0 {
		return fmt.Errorf("window must be non-negative, got %d", c.Window)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	if !sim.IsValidStreamMode(c.StreamMode) {
		return fmt.Errorf("unknown stream_mode %q; valid: shared, per-coder", c.StreamMode)
	}
	if err := c.Distribution.Validate(); err != nil {
		return err
	}
	for i, eps := range c.Epsilons {
		if !(eps > 0 && eps <= 1) {
			return fmt.Errorf("epsilons[%d] must be in (0, 1], got %f", i, eps)
		}
	}
	return nil
}

// SimConfig converts the run config into clamped simulator inputs.
func (c *RunConfig) SimConfig() sim.Config {
	raw := sim.Config{
		NCases:         c.NCases,
		NCoders:        c.NCoders,
		Dist:           accuracy.NewDistribution(c.Distribution),
		Seed:           sim.NewSimulationKey(sim.ResolveSeed(c.Seed)),
		StreamMode:     sim.StreamMode(c.StreamMode),
		Workers:        c.Workers,
		ResampleCustom: c.ResampleCustom,
	}
	cfg := sim.ClampConfig(raw)
	if raw.NCases != 0 && cfg.NCases != raw.NCases {
		logrus.Warnf("n_cases %d outside [%d, %d]; using %d", raw.NCases, sim.MinCases, sim.MaxCases, cfg.NCases)
	}
	if raw.NCoders != 0 && cfg.NCoders != raw.NCoders {
		logrus.Warnf("n_coders %d outside [%d, %d]; using %d", raw.NCoders, sim.MinCoders, sim.MaxCoders, cfg.NCoders)
	}
	return cfg
}

// EpsilonList returns the configured tolerances, or the defaults when empty.
func (c *RunConfig) EpsilonList() []float64 {
	if len(c.Epsilons) == 0 {
		return stabilization.DefaultEpsilons
	}
	return c.Epsilons
}
