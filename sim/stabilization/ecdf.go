package stabilization

import "sort"

// ECDFPoint is one step of the empirical CDF of stabilization indices.
// F is the fraction of ALL coders stabilized at or before T, so the curve
// tops out at StabilizedPct/100 rather than 1.
type ECDFPoint struct {
	T int     `json:"t"`
	F float64 `json:"f"`
}

// ECDF builds the step function over the stabilized entries of indices.
// Repeated index values coalesce into one step.
func ECDF(indices []Index) []ECDFPoint {
	times := make([]int, 0, len(indices))
	for _, idx := range indices {
		if idx.Stabilized() {
			times = append(times, idx.Value)
		}
	}
	sort.Ints(times)
	return ecdfSorted(times, len(indices))
}

func ecdfSorted(times []int, total int) []ECDFPoint {
	pts := []ECDFPoint{}
	if total == 0 {
		return pts
	}
	for i, t := range times {
		f := float64(i+1) / float64(total)
		if n := len(pts); n > 0 && pts[n-1].T == t {
			pts[n-1].F = f
			continue
		}
		pts = append(pts, ECDFPoint{T: t, F: f})
	}
	return pts
}
