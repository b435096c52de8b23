package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/stabsim/sim/dashboard"
)

var coderIndex int // 0-based coder to inspect

// coderCmd runs a simulation and prints one coder's stabilization profile
var coderCmd = &cobra.Command{
	Use:   "coder",
	Short: "Show one coder's stabilization index for every tolerance",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		cfg, err := resolveRunConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		session := dashboard.NewSession(cfg.Workers)
		ctx := context.Background()
		if err := session.SetWindow(ctx, cfg.Window); err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := session.Run(ctx, cfg.SimConfig()); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}

		view, err := session.Coder(coderIndex)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		printCoder(os.Stdout, view)
	},
}

// printCoder writes the per-coder table; "—" marks tolerances the coder
// never stabilizes within the horizon.
func printCoder(w io.Writer, v dashboard.CoderView) {
	fmt.Fprintf(w, "=== Coder #%d · true=%.1f%% ===\n", v.Index+1, v.TrueAccuracy*100)
	fmt.Fprintf(w, "Earliest t with clean window W=%d\n", v.Window)
	for _, row := range v.Rows {
		val := "—"
		if row.Index.Stabilized() {
			val = fmt.Sprintf("%d", row.Index.Value)
		}
		fmt.Fprintf(w, "%-4s %6s\n", dashboard.EpsilonLabel(row.Epsilon), val)
	}
}

func init() {
	registerSimFlags(coderCmd)
	coderCmd.Flags().IntVar(&coderIndex, "index", 0, "0-based index of the coder to inspect")

	rootCmd.AddCommand(coderCmd)
}
