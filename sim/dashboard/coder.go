package dashboard

import (
	"fmt"

	"github.com/inference-sim/stabsim/sim/stabilization"
)

// CoderView is the hover table for a single coder.
type CoderView struct {
	Index         int                        `json:"index"`
	TrueAccuracy  float64                    `json:"true_accuracy"`
	Window        int                        `json:"window"`
	Rows          []stabilization.ProfileRow `json:"rows"`
	Discrepancies []float32                  `json:"discrepancies,omitempty"`
}

// Coder evaluates coder i of the cached run against every offered tolerance
// using the current window.
func (s *Session) Coder(i int) (CoderView, error) {
	s.mu.RLock()
	res := s.result
	window := s.window
	s.mu.RUnlock()

	if res == nil {
		return CoderView{}, fmt.Errorf("no simulation has been run")
	}
	if i < 0 || i >= res.NCoders() {
		return CoderView{}, fmt.Errorf("coder index %d out of range [0, %d)", i, res.NCoders())
	}
	return BuildCoderView(res.Coders[i].Index, res.Coders[i].TrueAccuracy, res.Coders[i].Discrepancies,
		stabilization.ClampWindow(window, res.NCases), res.NCases), nil
}

// BuildCoderView evaluates one trajectory against stabilization.DefaultEpsilons.
func BuildCoderView(index int, trueAccuracy float64, d []float32, window, horizon int) CoderView {
	return CoderView{
		Index:         index,
		TrueAccuracy:  trueAccuracy,
		Window:        window,
		Rows:          stabilization.CoderProfile(d, stabilization.DefaultEpsilons, window, horizon),
		Discrepancies: d,
	}
}
