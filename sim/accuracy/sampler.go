package accuracy

import (
	"math"
)

// minUniform replaces zero draws before taking a logarithm.
const minUniform = 1e-12

// Sample draws n accuracies from dist, consuming rng in order.
func Sample(dist Distribution, rng Source, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = dist.Sample(rng)
	}
	return out
}

func (u Uniform) Sample(rng Source) float64 {
	return clamp01(u.Min + (u.Max-u.Min)*rng.Float64())
}

func (b Beta) Sample(rng Source) float64 {
	g1 := gammaRand(rng, b.Alpha)
	g2 := gammaRand(rng, b.Beta)
	return g1 / (g1 + g2)
}

func (n Normal) Sample(rng Source) float64 {
	return clamp01(n.Mu + n.Sigma*boxMuller(rng))
}

func (l LogitNormal) Sample(rng Source) float64 {
	y := l.Mu + l.Sigma*boxMuller(rng)
	return 1 / (1 + math.Exp(-y))
}

// boxMuller returns one standard normal deviate from two uniform draws.
// Only the cosine branch is used, so every call consumes exactly two draws.
func boxMuller(rng Source) float64 {
	u1 := nonZero(rng.Float64())
	u2 := nonZero(rng.Float64())
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// gammaRand samples from Gamma(shape, 1) using Marsaglia-Tsang's method.
// For shape >= 1: direct method.
// For shape < 1: Gamma(shape) = Gamma(shape+1) * U^(1/shape).
// The rejection loop has no iteration cap; its acceptance probability is
// bounded away from zero for every shape >= 1.
func gammaRand(rng Source, shape float64) float64 {
	if shape < 1.0 {
		// Ahrens-Dieter: Gamma(a) = Gamma(a+1) * U^(1/a)
		u := nonZero(rng.Float64())
		return gammaRand(rng, shape+1.0) * math.Pow(u, 1.0/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)

	for {
		var x, v float64
		for {
			x = boxMuller(rng)
			v = 1.0 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()

		// Squeeze test
		if u < 1.0-0.0331*(x*x)*(x*x) {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v
		}
	}
}

func nonZero(u float64) float64 {
	if u == 0 {
		return minUniform
	}
	return u
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
