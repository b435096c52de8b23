package accuracy

// Preview sizes used by the distribution panel.
const (
	PreviewSamples   = 5000
	PreviewBins      = 60
	AccuracyBins     = 30
	ReferenceSamples = 10000
)

// HistogramBin is one equal-width bin over [0,1].
type HistogramBin struct {
	X0     float64 `json:"x0"`
	X1     float64 `json:"x1"`
	Count  int     `json:"count"`
	Height float64 `json:"height"` // Count / max Count, in [0,1]
}

// Histogram bins samples over [0,1] into nBins equal-width bins.
// A value of exactly 1 lands in the last bin; values outside [0,1] are clamped.
func Histogram(samples []float64, nBins int) []HistogramBin {
	if nBins < 1 {
		nBins = 1
	}
	bins := make([]HistogramBin, nBins)
	width := 1.0 / float64(nBins)
	for i := range bins {
		bins[i].X0 = float64(i) * width
		bins[i].X1 = float64(i+1) * width
	}
	for _, v := range samples {
		idx := int(clamp01(v) * float64(nBins))
		if idx >= nBins {
			idx = nBins - 1
		}
		bins[idx].Count++
	}
	maxCount := 0
	for _, b := range bins {
		maxCount = max(maxCount, b.Count)
	}
	if maxCount == 0 {
		maxCount = 1
	}
	for i := range bins {
		bins[i].Height = float64(bins[i].Count) / float64(maxCount)
	}
	return bins
}

// HistogramPoints maps bins to (midpoint, height) pairs for an area chart.
func HistogramPoints(bins []HistogramBin) []Point {
	pts := make([]Point, len(bins))
	for i, b := range bins {
		pts[i] = Point{X: (b.X0 + b.X1) / 2, Y: b.Height}
	}
	return pts
}

// Preview draws n samples from dist and returns the normalized histogram.
func Preview(dist Distribution, rng Source, n, nBins int) []HistogramBin {
	return Histogram(Sample(dist, rng, n), nBins)
}

// Curve is a named reference curve.
type Curve struct {
	Kind   Kind    `json:"kind"`
	Points []Point `json:"points"`
}

// ReferenceCurves samples each distribution in turn from the same rng and
// returns one max-normalized curve per distribution, in input order.
func ReferenceCurves(rng Source, dists []Distribution, nBins, n int) []Curve {
	curves := make([]Curve, 0, len(dists))
	for _, d := range dists {
		curves = append(curves, Curve{
			Kind:   d.Kind(),
			Points: HistogramPoints(Preview(d, rng, n, nBins)),
		})
	}
	return curves
}

// ParametricFamily builds the four parametric distributions from one
// parameter map, as shown behind a custom drawing for comparison.
func ParametricFamily(params map[string]float64) []Distribution {
	dists := make([]Distribution, 0, 4)
	for _, k := range []Kind{KindUniform, KindBeta, KindNormal, KindLogitNormal} {
		dists = append(dists, NewDistribution(DistSpec{Type: string(k), Params: params}))
	}
	return dists
}
