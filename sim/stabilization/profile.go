package stabilization

// ProfileRow is one coder's outcome for a single tolerance.
type ProfileRow struct {
	Epsilon float64 `json:"epsilon"`
	Index   Index   `json:"index"`
}

// CoderProfile evaluates one trajectory against every tolerance, in order.
// This is the per-coder table shown when hovering a line.
func CoderProfile(d []float32, epsList []float64, w, horizon int) []ProfileRow {
	rows := make([]ProfileRow, 0, len(epsList))
	for _, eps := range uniqueEpsilons(epsList) {
		rows = append(rows, ProfileRow{Epsilon: eps, Index: Classify(d, eps, w, horizon)})
	}
	return rows
}

// ClampWindow bounds a window length to [1, nCases]. Zero means DefaultWindow.
func ClampWindow(w, nCases int) int {
	if w == 0 {
		w = DefaultWindow
	}
	return min(max(1, w), max(1, nCases))
}
