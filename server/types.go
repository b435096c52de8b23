package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/stabsim/sim"
	"github.com/inference-sim/stabsim/sim/accuracy"
	"github.com/inference-sim/stabsim/sim/stabilization"
)

// MaxEpsilons bounds the tolerances evaluated per request.
const MaxEpsilons = 32

// RunRequest is the body of POST /v1/runs. Zero sizes take the defaults;
// sizes beyond the supported range are clamped.
type RunRequest struct {
	Seed           *int64            `json:"seed"`
	NCases         int               `json:"n_cases" binding:"gte=0"`
	NCoders        int               `json:"n_coders" binding:"gte=0"`
	Distribution   accuracy.DistSpec `json:"distribution"`
	Window         int               `json:"window" binding:"gte=0"`
	Epsilons       []float64         `json:"epsilons" binding:"omitempty,max=32,dive,epsilon"`
	StreamMode     string            `json:"stream_mode" binding:"omitempty,stream_mode"`
	ResampleCustom bool              `json:"resample_custom"`
}

// PreviewRequest is the body of POST /v1/preview.
type PreviewRequest struct {
	Distribution accuracy.DistSpec `json:"distribution"`
	Seed         *int64            `json:"seed"`
	Samples      int               `json:"samples" binding:"gte=0,lte=100000"`
	Bins         int               `json:"bins" binding:"gte=0,lte=1000"`
	Reference    bool              `json:"reference"` // add the four parametric curves
}

// RunSummary describes a stored run without its trajectories.
type RunSummary struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	Seed             uint32    `json:"seed"`
	NCases           int       `json:"n_cases"`
	NCoders          int       `json:"n_coders"`
	Distribution     string    `json:"distribution"`
	StreamMode       string    `json:"stream_mode"`
	MeanTrueAccuracy float64   `json:"mean_true_accuracy"`
}

// RunResponse is returned when a run is created.
type RunResponse struct {
	Run    RunSummary            `json:"run"`
	Report *stabilization.Report `json:"report"`
}

// PreviewResponse carries the preview histogram and optional extras.
type PreviewResponse struct {
	Distribution string                  `json:"distribution"`
	Bins         []accuracy.HistogramBin `json:"bins"`
	Points       []accuracy.Point        `json:"points"`
	Density      []accuracy.Point        `json:"density,omitempty"` // custom only
	Reference    []accuracy.Curve        `json:"reference,omitempty"`
}

// ErrorResponse is the body of every 4xx/5xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func summarize(run *Run) RunSummary {
	res := run.Result
	mean := 0.0
	for _, c := range res.Coders {
		mean += c.TrueAccuracy
	}
	if n := res.NCoders(); n > 0 {
		mean /= float64(n)
	}
	return RunSummary{
		ID:               run.ID,
		CreatedAt:        run.CreatedAt,
		Seed:             uint32(res.Key),
		NCases:           res.NCases,
		NCoders:          res.NCoders(),
		Distribution:     accuracy.Describe(res.Dist),
		StreamMode:       string(res.StreamMode),
		MeanTrueAccuracy: mean,
	}
}

var registerValidatorsOnce sync.Once

// registerValidators adds the custom binding tags to gin's validator.
func registerValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := registerValidations(v); err != nil {
			logrus.Fatalf("register validators: %v", err)
		}
	})
}

// registerValidations adds the epsilon and stream_mode tags to v.
func registerValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("epsilon", validateEpsilon); err != nil {
		return fmt.Errorf("epsilon: %w", err)
	}
	if err := v.RegisterValidation("stream_mode", validateStreamMode); err != nil {
		return fmt.Errorf("stream_mode: %w", err)
	}
	return nil
}

// validateEpsilon accepts tolerances in (0, 1].
func validateEpsilon(fl validator.FieldLevel) bool {
	eps := fl.Field().Float()
	return eps > 0 && eps <= 1
}

func validateStreamMode(fl validator.FieldLevel) bool {
	return sim.IsValidStreamMode(fl.Field().String())
}
