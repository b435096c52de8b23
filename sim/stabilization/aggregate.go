package stabilization

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
)

// DefaultEpsilons are the tolerances the dashboard offers, ascending.
var DefaultEpsilons = []float64{0.03, 0.04, 0.05, 0.06, 0.07, 0.08, 0.09, 0.10}

// DefaultWindow is the sliding window length used when none is given.
const DefaultWindow = 10

// Quantiles of the stabilized indices. A nil field means no coder stabilized.
type Quantiles struct {
	P50 *int `json:"p50"`
	P75 *int `json:"p75"`
	P90 *int `json:"p90"`
	P95 *int `json:"p95"`
}

// Result aggregates one ε across the whole population.
type Result struct {
	Epsilon         float64     `json:"epsilon"`
	Indices         []Index     `json:"indices"`
	StabilizedCount int         `json:"stabilized_count"`
	StabilizedPct   float64     `json:"stabilized_pct"`
	MeanIndex       *float64    `json:"mean_index"` // nil when no coder stabilized
	Quantiles       Quantiles   `json:"quantiles"`
	ECDF            []ECDFPoint `json:"ecdf"`
}

// Report holds one Result per requested ε, in request order.
type Report struct {
	Window  int      `json:"window"`
	Horizon int      `json:"horizon"`
	Results []Result `json:"results"`
}

// ForEpsilon returns the result computed for eps.
func (r *Report) ForEpsilon(eps float64) (*Result, bool) {
	for i := range r.Results {
		if sameEpsilon(r.Results[i].Epsilon, eps) {
			return &r.Results[i], true
		}
	}
	return nil, false
}

// Epsilons lists the tolerances in the report.
func (r *Report) Epsilons() []float64 {
	out := make([]float64, len(r.Results))
	for i := range r.Results {
		out[i] = r.Results[i].Epsilon
	}
	return out
}

// ComputeAll evaluates every ε independently over all trajectories.
// Duplicate tolerances are computed once. Tolerances outside (0,1] are still
// computed; filtering them is up to the caller.
func ComputeAll(trajectories [][]float32, epsList []float64, w, horizon int) *Report {
	eps := uniqueEpsilons(epsList)
	report := &Report{Window: w, Horizon: horizon, Results: make([]Result, len(eps))}
	for i, e := range eps {
		report.Results[i] = computeEpsilon(context.Background(), trajectories, e, w, horizon)
	}
	return report
}

// ComputeAllParallel is ComputeAll with tolerances fanned out across at most
// workers goroutines. The report is identical to ComputeAll's. The only error
// returned is ctx.Err().
func ComputeAllParallel(ctx context.Context, trajectories [][]float32, epsList []float64, w, horizon, workers int) (*Report, error) {
	eps := uniqueEpsilons(epsList)
	report := &Report{Window: w, Horizon: horizon, Results: make([]Result, len(eps))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))
	for i, e := range eps {
		g.Go(func() error {
			report.Results[i] = computeEpsilon(gctx, trajectories, e, w, horizon)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

// computeEpsilon builds the Result for one ε. It stops early, leaving a
// partial result, once ctx is done.
func computeEpsilon(ctx context.Context, trajectories [][]float32, eps float64, w, horizon int) Result {
	n := len(trajectories)
	res := Result{Epsilon: eps, Indices: make([]Index, n)}

	stable := make([]int, 0, n)
	sum := 0
	for i, d := range trajectories {
		if i%256 == 0 && ctx.Err() != nil {
			return res
		}
		idx := Classify(d, eps, w, horizon)
		res.Indices[i] = idx
		if idx.Stabilized() {
			stable = append(stable, idx.Value)
			sum += idx.Value
		}
	}
	sort.Ints(stable)

	res.StabilizedCount = len(stable)
	if n > 0 {
		res.StabilizedPct = float64(len(stable)) / float64(n) * 100
	}
	if len(stable) > 0 {
		mean := float64(sum) / float64(len(stable))
		res.MeanIndex = &mean
	}
	res.Quantiles = Quantiles{
		P50: quantile(stable, 0.5),
		P75: quantile(stable, 0.75),
		P90: quantile(stable, 0.9),
		P95: quantile(stable, 0.95),
	}
	res.ECDF = ECDF(res.Indices)
	return res
}

// quantile interpolates linearly between order statistics of sorted and
// rounds to the nearest integer. Returns nil for empty input.
func quantile(sorted []int, q float64) *int {
	if len(sorted) == 0 {
		return nil
	}
	rank := float64(len(sorted)-1) * q
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	v := sorted[lower]
	if lower != upper {
		frac := rank - float64(lower)
		v = int(math.Round(float64(sorted[lower]) + frac*float64(sorted[upper]-sorted[lower])))
	}
	return &v
}

// uniqueEpsilons drops repeated tolerances, keeping first occurrences.
func uniqueEpsilons(epsList []float64) []float64 {
	out := make([]float64, 0, len(epsList))
	for _, e := range epsList {
		dup := false
		for _, seen := range out {
			if sameEpsilon(seen, e) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, e)
		}
	}
	return out
}

// sameEpsilon treats tolerances parsed from text ("0.1" vs 0.10) as equal.
func sameEpsilon(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
