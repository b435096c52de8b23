// Package accuracy draws per-coder true accuracies from parametric and
// user-drawn distributions over [0,1].
//
// Parameters are never rejected: out-of-range values are coerced to the
// nearest usable value so that a half-edited form still produces samples.
package accuracy

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Kind names a distribution family.
type Kind string

const (
	KindUniform     Kind = "uniform"
	KindBeta        Kind = "beta"
	KindNormal      Kind = "normal"
	KindLogitNormal Kind = "logitnormal"
	KindCustom      Kind = "custom"
)

// Kinds lists every supported family in display order.
var Kinds = []Kind{KindUniform, KindBeta, KindNormal, KindLogitNormal, KindCustom}

// IsValidKind returns true if the given string names a supported family.
func IsValidKind(s string) bool {
	for _, k := range Kinds {
		if string(k) == s {
			return true
		}
	}
	return false
}

// Source is the uniform generator the samplers consume.
// *sim.Mulberry32 and *rand.Rand both satisfy it.
type Source interface {
	// Float64 returns a uniform draw in [0,1).
	Float64() float64
}

// Distribution is a closed set of accuracy distributions.
// Only the types in this package implement it.
type Distribution interface {
	Kind() Kind
	// Sample returns one accuracy in [0,1], advancing rng.
	Sample(rng Source) float64
	isDistribution()
}

// DistSpec parameterizes an accuracy distribution as it appears in YAML
// run configs and JSON requests.
type DistSpec struct {
	Type    string             `yaml:"type" json:"type"`
	Params  map[string]float64 `yaml:"params,omitempty" json:"params,omitempty"`
	Weights []float64          `yaml:"weights,omitempty" json:"weights,omitempty"`
	Smooth  int                `yaml:"smooth,omitempty" json:"smooth,omitempty"` // custom: kernel passes
}

// Parameter defaults and floors.
const (
	DefaultBetaShape        = 2.0
	MinBetaShape            = 0.1
	DefaultNormalMu         = 0.5
	DefaultNormalSigma      = 0.2
	DefaultLogitNormalMu    = 0.0
	DefaultLogitNormalSigma = 1.0
	MinSigma                = 0.01
)

// Uniform draws from [Min, Max] clamped to [0,1]. Min <= Max after coercion.
type Uniform struct {
	Min, Max float64
}

// Beta draws g1/(g1+g2) with g1 ~ Gamma(Alpha), g2 ~ Gamma(Beta).
type Beta struct {
	Alpha, Beta float64
}

// Normal draws mu + sigma*z and clamps to [0,1]; mass outside the unit
// interval piles up on the boundaries.
type Normal struct {
	Mu, Sigma float64
}

// LogitNormal draws sigmoid(mu + sigma*z).
type LogitNormal struct {
	Mu, Sigma float64
}

func (Uniform) Kind() Kind     { return KindUniform }
func (Beta) Kind() Kind        { return KindBeta }
func (Normal) Kind() Kind      { return KindNormal }
func (LogitNormal) Kind() Kind { return KindLogitNormal }

func (Uniform) isDistribution()     {}
func (Beta) isDistribution()        {}
func (Normal) isDistribution()      {}
func (LogitNormal) isDistribution() {}

// StandardUniform is uniform over [0,1], the fallback for unknown kinds.
var StandardUniform = Uniform{Min: 0, Max: 1}

// NewUniform sorts the bounds so that Min <= Max.
func NewUniform(lo, hi float64) Uniform {
	return Uniform{Min: math.Min(lo, hi), Max: math.Max(lo, hi)}
}

// NewBeta substitutes the default shape for zero or NaN values and floors
// the rest at MinBetaShape.
func NewBeta(alpha, beta float64) Beta {
	return Beta{Alpha: coerce(alpha, DefaultBetaShape, MinBetaShape), Beta: coerce(beta, DefaultBetaShape, MinBetaShape)}
}

// NewNormal coerces sigma the same way NewBeta coerces shapes.
func NewNormal(mu, sigma float64) Normal {
	if math.IsNaN(mu) {
		mu = DefaultNormalMu
	}
	return Normal{Mu: mu, Sigma: coerce(sigma, DefaultNormalSigma, MinSigma)}
}

// NewLogitNormal coerces sigma the same way NewBeta coerces shapes.
func NewLogitNormal(mu, sigma float64) LogitNormal {
	if math.IsNaN(mu) {
		mu = DefaultLogitNormalMu
	}
	return LogitNormal{Mu: mu, Sigma: coerce(sigma, DefaultLogitNormalSigma, MinSigma)}
}

// coerce maps zero/NaN to def and floors everything else at floor.
func coerce(v, def, floor float64) float64 {
	if v == 0 || math.IsNaN(v) {
		v = def
	}
	return math.Max(floor, v)
}

// param returns params[key] or def when absent.
func param(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}

// NewDistribution builds a Distribution from a DistSpec.
//
// Every known kind is handled explicitly. An empty type means uniform(0,1);
// an unrecognized type also falls back to uniform(0,1) with a warning.
func NewDistribution(spec DistSpec) Distribution {
	switch Kind(spec.Type) {
	case KindUniform:
		return NewUniform(param(spec.Params, "min", 0), param(spec.Params, "max", 1))

	case KindBeta:
		return NewBeta(param(spec.Params, "alpha", DefaultBetaShape), param(spec.Params, "beta", DefaultBetaShape))

	case KindNormal:
		return NewNormal(param(spec.Params, "mu", DefaultNormalMu), param(spec.Params, "sigma", DefaultNormalSigma))

	case KindLogitNormal:
		return NewLogitNormal(param(spec.Params, "mu", DefaultLogitNormalMu), param(spec.Params, "sigma", DefaultLogitNormalSigma))

	case KindCustom:
		c := NewCustom(DefaultCustomBins)
		if len(spec.Weights) > 0 {
			c = NewCustomFromWeights(spec.Weights)
		}
		for range min(spec.Smooth, MaxSmoothPasses) {
			c = c.Smooth()
		}
		return c

	case "":
		return StandardUniform

	default:
		logrus.Warnf("unknown distribution type %q; falling back to uniform(0,1)", spec.Type)
		return StandardUniform
	}
}

// Validate rejects kinds and parameters that coercion cannot repair.
// An empty type is valid and means uniform(0,1).
func (s DistSpec) Validate() error {
	if s.Type != "" && !IsValidKind(s.Type) {
		return fmt.Errorf("unknown distribution type %q; valid: uniform, beta, normal, logitnormal, custom", s.Type)
	}
	for name, val := range s.Params {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("distribution.params.%s must be a finite number, got %f", name, val)
		}
	}
	if s.Smooth < 0 || s.Smooth > MaxSmoothPasses {
		return fmt.Errorf("distribution.smooth must be in [0, %d], got %d", MaxSmoothPasses, s.Smooth)
	}
	for i, w := range s.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("distribution.weights[%d] must be a finite non-negative number, got %f", i, w)
		}
	}
	return nil
}

// Describe renders a distribution as "kind · k=v · k=v" for legends and logs.
func Describe(d Distribution) string {
	switch v := d.(type) {
	case Uniform:
		return fmt.Sprintf("uniform · min=%g · max=%g", v.Min, v.Max)
	case Beta:
		return fmt.Sprintf("beta · alpha=%g · beta=%g", v.Alpha, v.Beta)
	case Normal:
		return fmt.Sprintf("normal · mu=%g · sigma=%g", v.Mu, v.Sigma)
	case LogitNormal:
		return fmt.Sprintf("logitnormal · mu=%g · sigma=%g", v.Mu, v.Sigma)
	case *Custom:
		return fmt.Sprintf("custom · bins=%d", len(v.weights))
	default:
		return string(d.Kind())
	}
}
