package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/stabsim/sim"
	"github.com/inference-sim/stabsim/sim/accuracy"
)

var (
	previewSamples int // Samples drawn for the preview
	previewBins    int // Histogram bins
)

// previewCmd prints a text histogram of the configured accuracy distribution
var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview the accuracy distribution as a histogram",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		spec := accuracy.DistSpec{Type: distType}
		applyDistFlags(cmd.Flags(), &spec)
		cfg := RunConfig{Distribution: spec}
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("invalid distribution: %v", err)
		}

		dist := accuracy.NewDistribution(spec)
		rng := sim.NewPartitionedRNG(sim.NewSimulationKey(sim.ResolveSeed(seed))).ForStream(sim.StreamAccuracy)
		printPreview(os.Stdout, dist, accuracy.Preview(dist, rng, previewSamples, previewBins))
	},
}

// printPreview renders bins as horizontal bars scaled to the tallest bin.
func printPreview(w io.Writer, dist accuracy.Distribution, bins []accuracy.HistogramBin) {
	fmt.Fprintf(w, "=== Distribution Preview: %s ===\n", accuracy.Describe(dist))
	printBars(w, bins)
}

func printBars(w io.Writer, bins []accuracy.HistogramBin) {
	const barWidth = 50
	for _, b := range bins {
		bar := strings.Repeat("#", int(b.Height*barWidth+0.5))
		fmt.Fprintf(w, "[%.3f, %.3f) %6d %s\n", b.X0, b.X1, b.Count, bar)
	}
}

func init() {
	previewCmd.Flags().Int64Var(&seed, "seed", sim.DefaultSeed, "Seed for the preview samples")
	registerDistFlags(previewCmd)
	previewCmd.Flags().IntVar(&previewSamples, "samples", accuracy.PreviewSamples, "Number of samples to draw")
	previewCmd.Flags().IntVar(&previewBins, "bins", accuracy.PreviewBins, "Number of histogram bins over [0,1]")

	rootCmd.AddCommand(previewCmd)
}
