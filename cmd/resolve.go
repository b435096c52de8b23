package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/inference-sim/stabsim/sim/accuracy"
)

// resolveRunConfig layers, lowest precedence first: defaults, the --scenario
// preset, the --config file, then every flag the user explicitly set.
func resolveRunConfig(cmd *cobra.Command) (RunConfig, error) {
	cfg := DefaultRunConfig()

	if scenario != "" {
		presets, err := LoadScenarios(scenariosFilePath)
		if err != nil {
			return RunConfig{}, err
		}
		preset, ok := presets[scenario]
		if !ok {
			return RunConfig{}, fmt.Errorf("unknown scenario %q; available: %v", scenario, ScenarioNames(presets))
		}
		logrus.Infof("Using scenario %q from %s", scenario, scenariosFilePath)
		cfg = preset
	}

	if configPath != "" {
		loaded, err := LoadRunConfig(configPath, cfg)
		if err != nil {
			return RunConfig{}, err
		}
		cfg = loaded
	}

	applyFlagOverrides(cmd.Flags(), &cfg)

	if err := cfg.Validate(); err != nil {
		return RunConfig{}, fmt.Errorf("invalid run config: %w", err)
	}
	return cfg, nil
}

// applyFlagOverrides copies explicitly set flags onto cfg. Flags left at
// their defaults never overwrite values from a preset or config file.
func applyFlagOverrides(flags *pflag.FlagSet, cfg *RunConfig) {
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("cases") {
		cfg.NCases = nCases
	}
	if flags.Changed("coders") {
		cfg.NCoders = nCoders
	}
	if flags.Changed("stream-mode") {
		cfg.StreamMode = streamMode
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("resample-custom") {
		cfg.ResampleCustom = resampleCustom
	}
	if flags.Changed("window") {
		cfg.Window = window
	}
	if flags.Changed("eps") {
		cfg.Epsilons = append([]float64(nil), epsilons...)
	}
	applyDistFlags(flags, &cfg.Distribution)
}

// applyDistFlags overrides the distribution from explicitly set flags.
// Changing --dist starts from that kind's defaults.
func applyDistFlags(flags *pflag.FlagSet, spec *accuracy.DistSpec) {
	if flags.Changed("dist") && distType != spec.Type {
		*spec = accuracy.DistSpec{Type: distType}
	}
	set := func(flag, key string, val float64) {
		if !flags.Changed(flag) {
			return
		}
		if spec.Params == nil {
			spec.Params = map[string]float64{}
		}
		spec.Params[key] = val
	}
	set("min", "min", uniformMin)
	set("max", "max", uniformMax)
	set("alpha", "alpha", betaAlpha)
	set("beta", "beta", betaBeta)
	set("mu", "mu", mu)
	set("sigma", "sigma", sigma)
	if flags.Changed("custom-weights") {
		spec.Weights = append([]float64(nil), customWeights...)
	}
	if flags.Changed("custom-smooth") {
		spec.Smooth = customSmooth
	}
}
