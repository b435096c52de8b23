package dashboard

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/stabsim/sim"
	"github.com/inference-sim/stabsim/sim/accuracy"
	"github.com/inference-sim/stabsim/sim/stabilization"
)

func referenceConfig() sim.Config {
	return sim.Config{
		NCases:  100,
		NCoders: 50,
		Dist:    accuracy.StandardUniform,
		Seed:    sim.NewSimulationKey(910),
	}
}

func newRunSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(4)
	require.NoError(t, s.Run(context.Background(), referenceConfig()))
	return s
}

func TestSession_ViewBeforeRun(t *testing.T) {
	s := NewSession(1)
	_, ok := s.View()
	assert.False(t, ok)
	assert.Nil(t, s.Result())
	assert.Nil(t, s.AccuracyHistogram(10))

	_, err := s.Coder(0)
	assert.Error(t, err)
}

func TestSession_DefaultView(t *testing.T) {
	s := newRunSession(t)

	v, ok := s.View()
	require.True(t, ok)

	// THEN the HUD shows the default 5% tolerance with W=10
	assert.Equal(t, 0.05, v.HUD.Epsilon)
	assert.Equal(t, "5%", v.HUD.EpsilonLabel)
	assert.Equal(t, 10, v.HUD.Window)
	assert.Equal(t, 100.0, v.HUD.StabilizedPct)
	assert.Equal(t, "#ff7f0e", v.HUD.Accent)
	assert.Equal(t, []Marker{
		{T: 27, Label: "median"},
		{T: 48, Label: "p75"},
		{T: 57, Label: "p90"},
		{T: 69, Label: "p95"},
	}, v.Markers)
	assert.Equal(t, []Guide{{Epsilon: 0.05, Color: "#ff7f0e"}}, v.Guides)
	require.Len(t, v.ECDF, 1)
	assert.Equal(t, "0.05", v.ECDF[0].Key)
	assert.Equal(t, "5%", v.Label)
}

func TestSession_SelectEpsilonsSortsAndPicksPrimary(t *testing.T) {
	s := newRunSession(t)

	// WHEN selecting tolerances out of order
	require.NoError(t, s.SelectEpsilons(context.Background(), []float64{0.1, 0.03, 0.1}))

	// THEN the smallest drives the HUD
	assert.Equal(t, []float64{0.03, 0.1}, s.Selected())
	v, _ := s.View()
	assert.Equal(t, 0.03, v.HUD.Epsilon)
	assert.Equal(t, 94.0, v.HUD.StabilizedPct)
	assert.Equal(t, "#d62728", v.HUD.Accent)
	assert.Equal(t, 39, *v.HUD.Quantiles.P50)
	assert.Equal(t, "3%, 10%", v.Label)
	require.Len(t, v.ECDF, 2)
	assert.Equal(t, "#17becf", v.ECDF[1].Color)
}

func TestSession_EmptySelectionFallsBackToDefault(t *testing.T) {
	s := newRunSession(t)
	require.NoError(t, s.SelectEpsilons(context.Background(), nil))
	assert.Equal(t, []float64{DefaultEpsilon}, s.Selected())
}

func TestSession_UnofferedToleranceIsComputed(t *testing.T) {
	s := newRunSession(t)

	require.NoError(t, s.SelectEpsilons(context.Background(), []float64{0.2, 1.5}))

	v, _ := s.View()
	// 1.5 has an ECDF but no guide; neither has a palette colour
	assert.Equal(t, []Guide{{Epsilon: 0.2, Color: FallbackColor}}, v.Guides)
	require.Len(t, v.ECDF, 2)
	assert.Equal(t, DefaultAccent, v.HUD.Accent)
	_, ok := s.Report().ForEpsilon(1.5)
	assert.True(t, ok)
	assert.Equal(t, 1, s.Runs())
}

func TestSession_SetWindowDoesNotResimulate(t *testing.T) {
	s := newRunSession(t)
	before := s.Result()

	// WHEN the window changes
	require.NoError(t, s.SetWindow(context.Background(), 25))

	// THEN the cached result is reused and the report follows the new window
	assert.Same(t, before, s.Result())
	assert.Equal(t, 1, s.Runs())
	assert.Equal(t, 25, s.Report().Window)
	assert.Equal(t, 25, s.Window())

	want := stabilization.ComputeAll(before.Trajectories(), []float64{0.05}, 25, before.NCases)
	got, _ := s.Report().ForEpsilon(0.05)
	wantRes, _ := want.ForEpsilon(0.05)
	assert.Equal(t, wantRes, got)
}

func TestSession_SetWindowClamps(t *testing.T) {
	s := newRunSession(t)

	require.NoError(t, s.SetWindow(context.Background(), 500))
	assert.Equal(t, 100, s.Window())

	require.NoError(t, s.SetWindow(context.Background(), -2))
	assert.Equal(t, 1, s.Window())
}

func TestSession_WindowBeforeRunAppliesOnRun(t *testing.T) {
	s := NewSession(1)
	require.NoError(t, s.SetWindow(context.Background(), 5))
	require.NoError(t, s.Run(context.Background(), referenceConfig()))
	assert.Equal(t, 5, s.Report().Window)
}

func TestSession_RunReplacesResult(t *testing.T) {
	s := newRunSession(t)
	first := s.Result()

	cfg := referenceConfig()
	cfg.Seed = sim.NewSimulationKey(911)
	require.NoError(t, s.Run(context.Background(), cfg))

	assert.NotSame(t, first, s.Result())
	assert.Equal(t, 2, s.Runs())
	// the earlier result is untouched
	assert.Equal(t, sim.NewSimulationKey(910), first.Key)
}

func TestSession_RunCancelled(t *testing.T) {
	s := NewSession(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Run(ctx, referenceConfig())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, s.Result())
}

func TestSession_FailedSelectionKeepsPrevious(t *testing.T) {
	// GIVEN a run with the default selection
	s := newRunSession(t)
	before := s.Report()

	// WHEN an uncovered tolerance is selected with a cancelled context
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.SelectEpsilons(ctx, []float64{0.2})

	// THEN the selection and report are unchanged
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []float64{DefaultEpsilon}, s.Selected())
	assert.Same(t, before, s.Report())
	v, ok := s.View()
	require.True(t, ok)
	assert.Equal(t, DefaultEpsilon, v.HUD.Epsilon)
}

func TestSession_FailedSetWindowKeepsPrevious(t *testing.T) {
	s := newRunSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.SetWindow(ctx, 30), context.Canceled)
	assert.Equal(t, 10, s.Window())
	assert.Equal(t, 10, s.Report().Window)
}

func TestSession_ConcurrentUpdatesStayConsistent(t *testing.T) {
	// GIVEN a session updated from several goroutines at once
	s := newRunSession(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(3)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.SetWindow(ctx, 5+i))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, s.SelectEpsilons(ctx, []float64{0.01 * float64(i+1), 0.5}))
		}()
		go func() {
			defer wg.Done()
			cfg := referenceConfig()
			cfg.Seed = sim.NewSimulationKey(int64(900 + i))
			assert.NoError(t, s.Run(ctx, cfg))
		}()
	}
	wg.Wait()

	// THEN the report matches the final window and covers the final selection
	report := s.Report()
	assert.Equal(t, s.Window(), report.Window)
	for _, eps := range s.Selected() {
		_, ok := report.ForEpsilon(eps)
		assert.True(t, ok, "eps %g", eps)
	}
	assert.Equal(t, 9, s.Runs())
}

func TestSession_Coder(t *testing.T) {
	s := newRunSession(t)

	cv, err := s.Coder(0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cv.TrueAccuracy)
	assert.Equal(t, 10, cv.Window)
	require.Len(t, cv.Rows, len(stabilization.DefaultEpsilons))
	for _, row := range cv.Rows {
		// a coder with no correct cases is exact from the first case
		assert.Equal(t, stabilization.Index{Value: 1, Status: stabilization.Stabilized}, row.Index)
	}

	_, err = s.Coder(50)
	assert.Error(t, err)
	_, err = s.Coder(-1)
	assert.Error(t, err)
}

func TestSession_AccuracyHistogram(t *testing.T) {
	s := newRunSession(t)

	bins := s.AccuracyHistogram(0)
	require.Len(t, bins, accuracy.AccuracyBins)
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 50, total)
}

func TestBuildView_SkipsUndefinedQuantiles(t *testing.T) {
	report := stabilization.ComputeAll([][]float32{{0.5, 0.5}}, []float64{0.05}, 2, 2)
	v := buildView(report, []float64{0.05})

	assert.Empty(t, v.Markers)
	assert.Equal(t, 0.0, v.HUD.StabilizedPct)
	require.Len(t, v.ECDF, 1)
	assert.Empty(t, v.ECDF[0].Points)
}

func TestEpsilonColor(t *testing.T) {
	tests := []struct {
		eps  float64
		want string
	}{
		{0.03, "#d62728"},
		{0.04, "#8c564b"},
		{0.05, "#ff7f0e"},
		{0.06, "#2ca02c"},
		{0.07, "#9467bd"},
		{0.08, "#1f77b4"},
		{0.09, "#e377c2"},
		{0.10, "#17becf"},
		{0.11, FallbackColor},
		{0.035, FallbackColor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EpsilonColor(tt.eps), "eps %v", tt.eps)
	}
}
