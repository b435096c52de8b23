// Package dashboard holds the state behind an interactive stabilization view:
// the last simulation run, the stabilization report for the current window
// and the selected tolerances. A renderer reads immutable snapshots from it.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/stabsim/sim"
	"github.com/inference-sim/stabsim/sim/accuracy"
	"github.com/inference-sim/stabsim/sim/stabilization"
)

// DefaultEpsilon is selected when the selection would otherwise be empty.
const DefaultEpsilon = 0.05

// Session caches one simulation and its stabilization report.
// Changing the window or the selected tolerances never re-simulates;
// only Run does. Safe for concurrent use.
//
// Updates are serialized by update; mu guards the fields readers see.
// The window and selection are stored together with the report computed
// for them, so a reader never sees a selection the report does not cover.
type Session struct {
	update sync.Mutex
	mu     sync.RWMutex

	result   *sim.SimulationResult
	report   *stabilization.Report
	window   int
	selected []float64
	workers  int
	runs     int
}

// NewSession returns an empty session with the default window and selection.
// workers bounds the goroutines used to recompute stabilization.
func NewSession(workers int) *Session {
	return &Session{
		window:   stabilization.DefaultWindow,
		selected: []float64{DefaultEpsilon},
		workers:  max(1, workers),
	}
}

// Run simulates cfg and recomputes stabilization for the current window.
// The previous result stays visible to readers until the swap.
func (s *Session) Run(ctx context.Context, cfg sim.Config) error {
	s.update.Lock()
	defer s.update.Unlock()

	res, err := sim.SimulateContext(ctx, cfg)
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}

	s.mu.RLock()
	window, eps := s.window, withDefaults(s.selected)
	s.mu.RUnlock()

	report, err := s.compute(ctx, res, window, eps)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.result = res
	s.report = report
	s.runs++
	s.mu.Unlock()
	return nil
}

// SetWindow changes the sliding window and recomputes stabilization from the
// cached result. The window is clamped to [1, NCases]; zero means the default.
// On error the previous window and report are kept.
func (s *Session) SetWindow(ctx context.Context, w int) error {
	s.update.Lock()
	defer s.update.Unlock()

	s.mu.RLock()
	res, eps := s.result, withDefaults(s.selected)
	s.mu.RUnlock()

	if res == nil {
		s.mu.Lock()
		s.window = w
		s.mu.Unlock()
		return nil
	}

	w = stabilization.ClampWindow(w, res.NCases)
	report, err := s.compute(ctx, res, w, eps)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.window = w
	s.report = report
	s.mu.Unlock()
	return nil
}

// SelectEpsilons replaces the selected tolerances, sorted ascending.
// An empty selection falls back to DefaultEpsilon. Tolerances that are not
// yet in the report are computed from the cached result; on error the
// previous selection and report are kept.
func (s *Session) SelectEpsilons(ctx context.Context, eps []float64) error {
	sel := append([]float64(nil), eps...)
	sort.Float64s(sel)
	sel = dedupe(sel)
	if len(sel) == 0 {
		sel = []float64{DefaultEpsilon}
	}

	s.update.Lock()
	defer s.update.Unlock()

	s.mu.RLock()
	res, report, window := s.result, s.report, s.window
	s.mu.RUnlock()

	if res != nil && !covers(report, sel) {
		var err error
		report, err = s.compute(ctx, res, window, withDefaults(sel))
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.selected = sel
	s.report = report
	s.mu.Unlock()
	return nil
}

// Selected returns the selected tolerances in ascending order.
func (s *Session) Selected() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]float64(nil), s.selected...)
}

// Window returns the effective sliding window.
func (s *Session) Window() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return s.window
	}
	return stabilization.ClampWindow(s.window, s.result.NCases)
}

// Result returns the cached simulation, or nil before the first Run.
func (s *Session) Result() *sim.SimulationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Report returns the stabilization report for the current window.
func (s *Session) Report() *stabilization.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// Runs counts completed simulations.
func (s *Session) Runs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runs
}

// AccuracyHistogram bins the cached true accuracies for the accuracy panel.
func (s *Session) AccuracyHistogram(nBins int) []accuracy.HistogramBin {
	res := s.Result()
	if res == nil {
		return nil
	}
	if nBins <= 0 {
		nBins = accuracy.AccuracyBins
	}
	return accuracy.Histogram(res.TrueAccuracies(), nBins)
}

// withDefaults is the union of the default tolerances and sel, sorted.
func withDefaults(sel []float64) []float64 {
	all := append(append([]float64(nil), stabilization.DefaultEpsilons...), sel...)
	sort.Float64s(all)
	return dedupe(all)
}

func (s *Session) compute(ctx context.Context, res *sim.SimulationResult, w int, eps []float64) (*stabilization.Report, error) {
	startTime := time.Now()
	w = stabilization.ClampWindow(w, res.NCases)
	report, err := stabilization.ComputeAllParallel(ctx, res.Trajectories(), eps, w, res.NCases, s.workers)
	if err != nil {
		return nil, fmt.Errorf("stabilization: %w", err)
	}
	logrus.Debugf("Stabilization for %d tolerances (W=%d) computed in %v", len(eps), w, time.Since(startTime))
	return report, nil
}

func covers(report *stabilization.Report, eps []float64) bool {
	if report == nil {
		return false
	}
	for _, e := range eps {
		if _, ok := report.ForEpsilon(e); !ok {
			return false
		}
	}
	return true
}

// dedupe drops adjacent near-equal values from a sorted slice.
func dedupe(sorted []float64) []float64 {
	out := sorted[:0]
	for i, v := range sorted {
		if i > 0 && v-out[len(out)-1] < 1e-9 {
			continue
		}
		out = append(out, v)
	}
	return out
}
