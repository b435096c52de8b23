package cmd

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/stabsim/sim/accuracy"
	"github.com/inference-sim/stabsim/sim/dashboard"
)

var (
	// CLI flags for the simulation
	seed           int64     // Seed for accuracy sampling and shuffles
	nCases         int       // Cases per coder
	nCoders        int       // Coders in the population
	distType       string    // Accuracy distribution kind
	uniformMin     float64   // uniform lower bound
	uniformMax     float64   // uniform upper bound
	betaAlpha      float64   // beta shape alpha
	betaBeta       float64   // beta shape beta
	mu             float64   // normal / logitnormal location
	sigma          float64   // normal / logitnormal scale
	customWeights  []float64 // custom density bin weights
	customSmooth   int       // custom density smoothing passes
	streamMode     string    // Shuffle stream partitioning
	workers        int       // Goroutines for per-coder shuffles and stabilization
	resampleCustom bool      // Sample accuracies from the custom density

	// CLI flags for stabilization
	window   int       // Sliding window length
	epsilons []float64 // Tolerances to evaluate

	// CLI flags for config sources and output
	logLevel          string // Log verbosity level
	configPath        string // Run config YAML
	scenario          string // Named preset from the scenarios file
	scenariosFilePath string // Path to scenarios.yaml
	resultsPath       string // File to write the JSON results to
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "stabsim",
	Short: "Monte Carlo simulator of coder accuracy stabilization",
}

// runCmd executes the simulation using parameters from flags, a run config
// and/or a scenario preset
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the stabilization simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		cfg, err := resolveRunConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		simCfg := cfg.SimConfig()

		logrus.Infof("Starting simulation: %d coders x %d cases, %s, seed=%d, W=%d",
			simCfg.NCoders, simCfg.NCases, accuracy.Describe(simCfg.Dist), cfg.Seed, cfg.Window)
		startTime := time.Now()

		session := dashboard.NewSession(simCfg.Workers)
		ctx := context.Background()
		if err := session.SetWindow(ctx, cfg.Window); err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := session.SelectEpsilons(ctx, cfg.EpsilonList()); err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := session.Run(ctx, simCfg); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}

		printReport(os.Stdout, session)
		if resultsPath != "" {
			if err := saveResults(resultsPath, cfg, session); err != nil {
				logrus.Fatalf("Failed to save results: %v", err)
			}
			logrus.Infof("Results written to %s", resultsPath)
		}

		logrus.Infof("Simulation complete in %v.", time.Since(startTime))
	},
}

// setLogLevel applies the --log flag.
func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerSimFlags adds the simulation flags shared by run and coder.
func registerSimFlags(cmd *cobra.Command) {
	defaults := DefaultRunConfig()

	cmd.Flags().Int64Var(&seed, "seed", defaults.Seed, "Seed for accuracy sampling and shuffles")
	cmd.Flags().IntVar(&nCases, "cases", defaults.NCases, "Cases per coder")
	cmd.Flags().IntVar(&nCoders, "coders", defaults.NCoders, "Number of coders")
	registerDistFlags(cmd)
	cmd.Flags().StringVar(&streamMode, "stream-mode", defaults.StreamMode, "Shuffle stream partitioning (shared, per-coder)")
	cmd.Flags().IntVar(&workers, "workers", defaults.Workers, "Goroutines for per-coder shuffles and stabilization")
	cmd.Flags().BoolVar(&resampleCustom, "resample-custom", false, "Sample accuracies from the custom density instead of uniform(0,1)")

	cmd.Flags().IntVar(&window, "window", defaults.Window, "Sliding window length W")
	cmd.Flags().Float64SliceVar(&epsilons, "eps", defaults.Epsilons, "Comma-separated tolerances to evaluate")

	cmd.Flags().StringVar(&configPath, "config", "", "Run config YAML; explicitly set flags override it")
	cmd.Flags().StringVar(&scenario, "scenario", "", "Named preset from the scenarios file")
	cmd.Flags().StringVar(&scenariosFilePath, "scenarios-filepath", "scenarios.yaml", "Path to the scenarios file")
}

// registerDistFlags adds the accuracy distribution flags.
func registerDistFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&distType, "dist", string(accuracy.KindUniform), "Accuracy distribution (uniform, beta, normal, logitnormal, custom)")
	cmd.Flags().Float64Var(&uniformMin, "min", 0, "uniform: lower bound")
	cmd.Flags().Float64Var(&uniformMax, "max", 1, "uniform: upper bound")
	cmd.Flags().Float64Var(&betaAlpha, "alpha", accuracy.DefaultBetaShape, "beta: shape alpha")
	cmd.Flags().Float64Var(&betaBeta, "beta", accuracy.DefaultBetaShape, "beta: shape beta")
	cmd.Flags().Float64Var(&mu, "mu", accuracy.DefaultNormalMu, "normal/logitnormal: location")
	cmd.Flags().Float64Var(&sigma, "sigma", accuracy.DefaultNormalSigma, "normal/logitnormal: scale")
	cmd.Flags().Float64SliceVar(&customWeights, "custom-weights", nil, "custom: comma-separated bin weights over [0,1)")
	cmd.Flags().IntVar(&customSmooth, "custom-smooth", 0, "custom: (1,2,1)/4 smoothing passes applied to the weights")
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	registerSimFlags(runCmd)
	runCmd.Flags().StringVar(&resultsPath, "results-path", "", "Write the full results as JSON to this file")

	// Attach subcommands to `root`
	rootCmd.AddCommand(runCmd)
}
