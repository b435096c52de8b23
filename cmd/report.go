package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/inference-sim/stabsim/sim/accuracy"
	"github.com/inference-sim/stabsim/sim/dashboard"
	"github.com/inference-sim/stabsim/sim/stabilization"
)

// Results is the JSON document written by --results-path.
type Results struct {
	Config         RunConfig             `json:"config"`
	Distribution   string                `json:"distribution"`
	NCases         int                   `json:"n_cases"`
	NCoders        int                   `json:"n_coders"`
	TrueAccuracies []float64             `json:"true_accuracies"`
	Report         *stabilization.Report `json:"report"`
	View           dashboard.View        `json:"view"`
}

// printReport writes the human-readable summary of the session's last run,
// one table row per selected tolerance.
func printReport(w io.Writer, session *dashboard.Session) {
	res := session.Result()
	report := session.Report()
	if res == nil || report == nil {
		fmt.Fprintln(w, "No simulation results.")
		return
	}

	fmt.Fprintln(w, "=== Simulation ===")
	fmt.Fprintf(w, "Coders               : %d\n", res.NCoders())
	fmt.Fprintf(w, "Cases per coder      : %d\n", res.NCases)
	fmt.Fprintf(w, "Distribution         : %s\n", accuracy.Describe(res.Dist))
	fmt.Fprintf(w, "Seed                 : %d\n", res.Key)
	fmt.Fprintf(w, "Stream mode          : %s\n", res.StreamMode)
	fmt.Fprintf(w, "Window (W)           : %d\n", session.Window())

	fmt.Fprintln(w, "=== True Accuracy ===")
	printBars(w, session.AccuracyHistogram(accuracy.AccuracyBins))

	fmt.Fprintln(w, "=== Stabilization Report ===")
	fmt.Fprintf(w, "%-6s %-11s %-9s %6s %6s %6s %6s\n", "eps", "stabilized", "mean", "p50", "p75", "p90", "p95")
	for _, eps := range session.Selected() {
		r, ok := report.ForEpsilon(eps)
		if !ok {
			continue
		}
		mean := "—"
		if r.MeanIndex != nil {
			mean = fmt.Sprintf("%.2f", *r.MeanIndex)
		}
		fmt.Fprintf(w, "%-6s %-11s %-9s %6s %6s %6s %6s\n",
			dashboard.EpsilonLabel(eps), fmt.Sprintf("%.1f%%", r.StabilizedPct), mean,
			quantileString(r.Quantiles.P50), quantileString(r.Quantiles.P75),
			quantileString(r.Quantiles.P90), quantileString(r.Quantiles.P95))
	}
}

// quantileString renders an undefined quantile as an em dash.
func quantileString(q *int) string {
	if q == nil {
		return "—"
	}
	return fmt.Sprintf("%d", *q)
}

// saveResults writes the session's last run as indented JSON.
func saveResults(path string, cfg RunConfig, session *dashboard.Session) error {
	res := session.Result()
	if res == nil {
		return fmt.Errorf("no simulation results to save")
	}
	view, _ := session.View()
	out := Results{
		Config:         cfg,
		Distribution:   accuracy.Describe(res.Dist),
		NCases:         res.NCases,
		NCoders:        res.NCoders(),
		TrueAccuracies: res.TrueAccuracies(),
		Report:         session.Report(),
		View:           view,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
