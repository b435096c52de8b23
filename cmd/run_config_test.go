package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/stabsim/sim"
	"github.com/inference-sim/stabsim/sim/accuracy"
	"github.com/inference-sim/stabsim/sim/stabilization"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRunConfig_LayersOntoBase(t *testing.T) {
	// GIVEN a file that sets only the distribution and the window
	path := writeYAML(t, `
distribution:
  type: beta
  params:
    alpha: 5
    beta: 2
window: 25
`)

	// WHEN loaded onto the defaults
	cfg, err := LoadRunConfig(path, DefaultRunConfig())
	require.NoError(t, err)

	// THEN the file wins where it speaks and the defaults survive elsewhere
	assert.Equal(t, "beta", cfg.Distribution.Type)
	assert.Equal(t, 5.0, cfg.Distribution.Params["alpha"])
	assert.Equal(t, 25, cfg.Window)
	assert.Equal(t, int64(sim.DefaultSeed), cfg.Seed)
	assert.Equal(t, sim.DefaultCoders, cfg.NCoders)
	assert.Equal(t, stabilization.DefaultEpsilons, cfg.Epsilons)
}

func TestLoadRunConfig_EpsilonListReplacesBase(t *testing.T) {
	path := writeYAML(t, "epsilons: [0.1, 0.04]\n")

	cfg, err := LoadRunConfig(path, DefaultRunConfig())
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.04}, cfg.Epsilons)
}

func TestLoadRunConfig_RejectsUnknownFields(t *testing.T) {
	path := writeYAML(t, "n_cases: 100\nwindow_size: 12\n")

	_, err := LoadRunConfig(path, DefaultRunConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "window_size")
}

func TestLoadRunConfig_MissingFile(t *testing.T) {
	_, err := LoadRunConfig(filepath.Join(t.TempDir(), "absent.yaml"), DefaultRunConfig())
	assert.Error(t, err)
}

func TestLoadScenarios_ShippedPresets(t *testing.T) {
	// GIVEN the scenarios file at the repository root
	scenarios, err := LoadScenarios(filepath.Join("..", "scenarios.yaml"))
	require.NoError(t, err)

	// THEN every preset is valid and layered onto the defaults
	assert.Equal(t, []string{"bimodal", "dashboard", "large", "mixed-panel", "skilled-panel"}, ScenarioNames(scenarios))

	dash := scenarios["dashboard"]
	assert.Equal(t, DefaultRunConfig(), dash)

	skilled := scenarios["skilled-panel"]
	assert.Equal(t, []float64{0.03, 0.05, 0.1}, skilled.Epsilons)
	assert.Equal(t, int64(sim.DefaultSeed), skilled.Seed)

	bimodal := scenarios["bimodal"]
	assert.True(t, bimodal.ResampleCustom)
	assert.Len(t, bimodal.Distribution.Weights, 10)

	large := scenarios["large"]
	assert.Equal(t, "per-coder", large.StreamMode)
	assert.Equal(t, 8, large.Workers)
	assert.Equal(t, stabilization.DefaultEpsilons, large.Epsilons)
}

func TestLoadScenarios_InvalidPreset(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key in preset", "scenarios:\n  a:\n    n_case: 10\n"},
		{"unknown top-level key", "presets:\n  a:\n    n_cases: 10\n"},
		{"bad stream mode", "scenarios:\n  a:\n    stream_mode: fast\n"},
		{"epsilon out of range", "scenarios:\n  a:\n    epsilons: [0.05, 2]\n"},
		{"negative smoothing", "scenarios:\n  a:\n    distribution:\n      type: custom\n      smooth: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenarios(writeYAML(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestRunConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RunConfig)
		wantErr bool
	}{
		{"defaults", func(*RunConfig) {}, false},
		{"zero sizes take defaults later", func(c *RunConfig) { c.NCases, c.NCoders = 0, 0 }, false},
		{"oversized population is clamped later", func(c *RunConfig) { c.NCoders = 1_000_000 }, false},
		{"negative cases", func(c *RunConfig) { c.NCases = -1 }, true},
		{"negative coders", func(c *RunConfig) { c.NCoders = -5 }, true},
		{"negative window", func(c *RunConfig) { c.Window = -1 }, true},
		{"negative workers", func(c *RunConfig) { c.Workers = -2 }, true},
		{"per-coder mode", func(c *RunConfig) { c.StreamMode = "per-coder" }, false},
		{"unknown mode", func(c *RunConfig) { c.StreamMode = "fast" }, true},
		{"unknown distribution", func(c *RunConfig) { c.Distribution.Type = "gamma" }, true},
		{"zero epsilon", func(c *RunConfig) { c.Epsilons = []float64{0} }, true},
		{"epsilon of one", func(c *RunConfig) { c.Epsilons = []float64{1} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRunConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunConfig_SimConfigClamps(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.NCases = 5
	cfg.NCoders = 20_000
	cfg.Workers = 0

	simCfg := cfg.SimConfig()
	assert.Equal(t, sim.MinCases, simCfg.NCases)
	assert.Equal(t, sim.MaxCoders, simCfg.NCoders)
	assert.Equal(t, 1, simCfg.Workers)
	assert.Equal(t, sim.StreamShared, simCfg.StreamMode)
	assert.Equal(t, sim.NewSimulationKey(sim.DefaultSeed), simCfg.Seed)
}

func TestRunConfig_ZeroSeedMeansDefault(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.Seed = 0
	assert.Equal(t, sim.NewSimulationKey(sim.DefaultSeed), cfg.SimConfig().Seed)
}

func TestRunConfig_EpsilonList(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.Epsilons = nil
	assert.Equal(t, stabilization.DefaultEpsilons, cfg.EpsilonList())

	cfg.Epsilons = []float64{0.07}
	assert.Equal(t, []float64{0.07}, cfg.EpsilonList())
}

// newFlagCommand binds the simulation flags to a throwaway command so each
// test starts from the flag defaults.
func newFlagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	registerSimFlags(c)
	require.NoError(t, c.Flags().Parse(args))
	return c
}

func TestResolveRunConfig_FlagsOverrideConfigFile(t *testing.T) {
	// GIVEN a config file with a seed and a beta distribution
	path := writeYAML(t, `
seed: 42
n_cases: 150
distribution:
  type: beta
  params:
    alpha: 3
    beta: 3
`)

	// WHEN only --seed and --alpha are set on the command line
	c := newFlagCommand(t, "--config", path, "--seed", "7", "--alpha", "9")
	cfg, err := resolveRunConfig(c)
	require.NoError(t, err)

	// THEN explicit flags win and everything else comes from the file
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 150, cfg.NCases)
	assert.Equal(t, "beta", cfg.Distribution.Type)
	assert.Equal(t, 9.0, cfg.Distribution.Params["alpha"])
	assert.Equal(t, 3.0, cfg.Distribution.Params["beta"])
}

func TestResolveRunConfig_UnsetFlagsKeepScenario(t *testing.T) {
	c := newFlagCommand(t, "--scenario", "mixed-panel", "--scenarios-filepath", filepath.Join("..", "scenarios.yaml"), "--eps", "0.05,0.1")
	cfg, err := resolveRunConfig(c)
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.NCoders)
	assert.Equal(t, 20, cfg.Window)
	assert.Equal(t, "logitnormal", cfg.Distribution.Type)
	assert.Equal(t, []float64{0.05, 0.1}, cfg.Epsilons)
}

func TestResolveRunConfig_UnknownScenario(t *testing.T) {
	c := newFlagCommand(t, "--scenario", "nope", "--scenarios-filepath", filepath.Join("..", "scenarios.yaml"))
	_, err := resolveRunConfig(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dashboard")
}

func TestResolveRunConfig_InvalidFlag(t *testing.T) {
	c := newFlagCommand(t, "--stream-mode", "sideways")
	_, err := resolveRunConfig(c)
	assert.Error(t, err)
}

func TestApplyDistFlags(t *testing.T) {
	tests := []struct {
		name string
		base accuracy.DistSpec
		args []string
		want accuracy.DistSpec
	}{
		{
			name: "no flags keep the spec",
			base: accuracy.DistSpec{Type: "beta", Params: map[string]float64{"alpha": 4}},
			want: accuracy.DistSpec{Type: "beta", Params: map[string]float64{"alpha": 4}},
		},
		{
			name: "switching kind drops old params",
			base: accuracy.DistSpec{Type: "beta", Params: map[string]float64{"alpha": 4}},
			args: []string{"--dist", "normal", "--sigma", "0.1"},
			want: accuracy.DistSpec{Type: "normal", Params: map[string]float64{"sigma": 0.1}},
		},
		{
			name: "same kind keeps params",
			base: accuracy.DistSpec{Type: "uniform", Params: map[string]float64{"min": 0.2}},
			args: []string{"--dist", "uniform", "--max", "0.9"},
			want: accuracy.DistSpec{Type: "uniform", Params: map[string]float64{"min": 0.2, "max": 0.9}},
		},
		{
			name: "custom weights",
			base: accuracy.DistSpec{Type: "uniform"},
			args: []string{"--dist", "custom", "--custom-weights", "1,2,3"},
			want: accuracy.DistSpec{Type: "custom", Weights: []float64{1, 2, 3}},
		},
		{
			name: "custom smoothing passes",
			base: accuracy.DistSpec{Type: "custom", Weights: []float64{0, 4, 0}},
			args: []string{"--custom-smooth", "2"},
			want: accuracy.DistSpec{Type: "custom", Weights: []float64{0, 4, 0}, Smooth: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &cobra.Command{Use: "test"}
			registerDistFlags(c)
			require.NoError(t, c.Flags().Parse(tt.args))

			spec := tt.base
			applyDistFlags(c.Flags(), &spec)
			assert.Equal(t, tt.want, spec)
		})
	}
}
