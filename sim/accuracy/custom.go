package accuracy

import "sort"

// DefaultCustomBins is the resolution of a freshly drawn density.
const DefaultCustomBins = 80

// Custom is a user-drawn density over [0,1) made of equal-width bins.
// A Custom value is immutable; Smooth returns a new one.
type Custom struct {
	weights []float64
	cdf     []float64 // cumulative normalized weights, last entry 1.0
}

// Point is one (x, y) sample of a curve over [0,1].
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewCustom returns a flat density with nBins bins of weight 1.
func NewCustom(nBins int) *Custom {
	if nBins < 1 {
		nBins = DefaultCustomBins
	}
	w := make([]float64, nBins)
	for i := range w {
		w[i] = 1
	}
	return NewCustomFromWeights(w)
}

// NewCustomFromWeights copies weights; negative weights count as zero.
func NewCustomFromWeights(weights []float64) *Custom {
	w := make([]float64, len(weights))
	copy(w, weights)
	c := &Custom{weights: w}
	c.buildCDF()
	return c
}

func (c *Custom) buildCDF() {
	total := 0.0
	for _, w := range c.weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		c.cdf = nil
		return
	}
	c.cdf = make([]float64, len(c.weights))
	cumulative := 0.0
	for i, w := range c.weights {
		if w > 0 {
			cumulative += w / total
		}
		c.cdf[i] = cumulative
	}
	c.cdf[len(c.cdf)-1] = 1.0
}

func (*Custom) Kind() Kind      { return KindCustom }
func (*Custom) isDistribution() {}

// Weights returns a copy of the bin weights.
func (c *Custom) Weights() []float64 {
	out := make([]float64, len(c.weights))
	copy(out, c.weights)
	return out
}

// Bins returns the number of bins.
func (c *Custom) Bins() int { return len(c.weights) }

// Sample picks a bin by inverse CDF, then a uniform position inside it.
// An all-zero density samples uniform(0,1).
func (c *Custom) Sample(rng Source) float64 {
	if c.cdf == nil {
		return StandardUniform.Sample(rng)
	}
	u := rng.Float64()
	idx := sort.SearchFloat64s(c.cdf, u)
	// SearchFloat64s returns the first cdf >= u; an exact hit belongs to the next bin.
	for idx < len(c.cdf)-1 && (c.cdf[idx] == u || c.weights[idx] <= 0) {
		idx++
	}
	if idx >= len(c.weights) {
		idx = len(c.weights) - 1
	}
	return clamp01((float64(idx) + rng.Float64()) / float64(len(c.weights)))
}

// MaxSmoothPasses bounds DistSpec.Smooth.
const MaxSmoothPasses = 100

// Smooth applies the (1,2,1)/4 kernel, repeating the edge bins.
func (c *Custom) Smooth() *Custom {
	m := len(c.weights)
	out := make([]float64, m)
	for i := 0; i < m; i++ {
		a := c.weights[max(0, i-1)]
		b := c.weights[i]
		d := c.weights[min(m-1, i+1)]
		out[i] = (a + 2*b + d) / 4
	}
	return NewCustomFromWeights(out)
}

// Points returns bin midpoints with non-negative heights.
func (c *Custom) Points() []Point {
	m := len(c.weights)
	pts := make([]Point, m)
	for i, w := range c.weights {
		pts[i] = Point{X: (float64(i) + 0.5) / float64(m), Y: max(0, w)}
	}
	return pts
}
