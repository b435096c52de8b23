package dashboard

import (
	"fmt"
	"math"
	"strings"

	"github.com/inference-sim/stabsim/sim/stabilization"
)

const (
	// DefaultAccent colours the HUD when the primary tolerance has no colour.
	DefaultAccent = "#ff7f0e"
	// FallbackColor is used for tolerances outside the fixed palette.
	FallbackColor = "#999"
)

// epsilonColors is the fixed palette for the offered tolerances.
var epsilonColors = map[int]string{
	3:  "#d62728",
	4:  "#8c564b",
	5:  "#ff7f0e",
	6:  "#2ca02c",
	7:  "#9467bd",
	8:  "#1f77b4",
	9:  "#e377c2",
	10: "#17becf",
}

// EpsilonColor returns the palette colour for eps, or FallbackColor.
func EpsilonColor(eps float64) string {
	pct := eps * 100
	key := int(math.Round(pct))
	if math.Abs(pct-float64(key)) > 1e-6 {
		return FallbackColor
	}
	if c, ok := epsilonColors[key]; ok {
		return c
	}
	return FallbackColor
}

// EpsilonLabel formats eps as a whole percentage, e.g. "5%".
func EpsilonLabel(eps float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(eps*100)))
}

// HUD summarises the primary (smallest selected) tolerance.
type HUD struct {
	Epsilon       float64                 `json:"epsilon"`
	EpsilonLabel  string                  `json:"epsilon_label"`
	Window        int                     `json:"window"`
	StabilizedPct float64                 `json:"stabilized_pct"`
	Quantiles     stabilization.Quantiles `json:"quantiles"`
	Accent        string                  `json:"accent"`
}

// Marker is a vertical quantile line on the trajectory chart.
type Marker struct {
	T     int    `json:"t"`
	Label string `json:"label"`
}

// Guide is a horizontal tolerance line on the trajectory chart.
type Guide struct {
	Epsilon float64 `json:"epsilon"`
	Color   string  `json:"color"`
}

// ECDFDataset is one selected tolerance's ECDF curve.
type ECDFDataset struct {
	Key    string                    `json:"key"`
	Color  string                    `json:"color"`
	Points []stabilization.ECDFPoint `json:"points"`
}

// View is everything a renderer needs to draw the current state.
type View struct {
	HUD     HUD           `json:"hud"`
	Markers []Marker      `json:"markers"`
	Guides  []Guide       `json:"guides"`
	ECDF    []ECDFDataset `json:"ecdf"`
	Label   string        `json:"label"` // selected tolerances, e.g. "3%, 5%"
}

// View builds the view model from the cached report. ok is false before
// the first Run.
func (s *Session) View() (View, bool) {
	s.mu.RLock()
	report := s.report
	selected := append([]float64(nil), s.selected...)
	s.mu.RUnlock()

	if report == nil {
		return View{}, false
	}
	return buildView(report, selected), true
}

func buildView(report *stabilization.Report, selected []float64) View {
	primary := selected[0]
	v := View{
		Markers: []Marker{},
		Guides:  []Guide{},
		ECDF:    []ECDFDataset{},
	}

	accent := EpsilonColor(primary)
	if accent == FallbackColor {
		accent = DefaultAccent
	}
	v.HUD = HUD{
		Epsilon:      primary,
		EpsilonLabel: EpsilonLabel(primary),
		Window:       report.Window,
		Accent:       accent,
	}
	if r, ok := report.ForEpsilon(primary); ok {
		v.HUD.StabilizedPct = r.StabilizedPct
		v.HUD.Quantiles = r.Quantiles
		v.Markers = markers(r.Quantiles)
	}

	labels := make([]string, 0, len(selected))
	for _, eps := range selected {
		labels = append(labels, EpsilonLabel(eps))
		if eps > 0 && eps <= 1 {
			v.Guides = append(v.Guides, Guide{Epsilon: eps, Color: EpsilonColor(eps)})
		}
		if r, ok := report.ForEpsilon(eps); ok {
			v.ECDF = append(v.ECDF, ECDFDataset{
				Key:    fmt.Sprint(eps),
				Color:  EpsilonColor(eps),
				Points: r.ECDF,
			})
		}
	}
	v.Label = strings.Join(labels, ", ")
	return v
}

// markers skips undefined quantiles.
func markers(q stabilization.Quantiles) []Marker {
	out := []Marker{}
	for _, m := range []struct {
		v     *int
		label string
	}{
		{q.P50, "median"},
		{q.P75, "p75"},
		{q.P90, "p90"},
		{q.P95, "p95"},
	} {
		if m.v != nil {
			out = append(out, Marker{T: *m.v, Label: m.label})
		}
	}
	return out
}
