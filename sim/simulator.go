// sim/simulator.go
package sim

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/inference-sim/stabsim/sim/accuracy"
)

// CoderTrial is one coder's simulated case stream.
// Discrepancies[t] = |running accuracy after t+1 cases - TrueAccuracy|.
type CoderTrial struct {
	Index           int       `json:"index"`
	SampledAccuracy float64   `json:"sampled_accuracy"` // raw draw before rounding to Correct/NCases
	Correct         int       `json:"correct"`
	TrueAccuracy    float64   `json:"true_accuracy"` // exactly Correct/NCases
	Discrepancies   []float32 `json:"discrepancies"`
}

// SimulationResult is the immutable output of one run.
// A new run produces a new result; nothing mutates an existing one.
type SimulationResult struct {
	Key        SimulationKey         `json:"seed"`
	NCases     int                   `json:"n_cases"`
	Dist       accuracy.Distribution `json:"-"`
	StreamMode StreamMode            `json:"stream_mode"`
	Coders     []CoderTrial          `json:"coders"`
}

// NCoders returns the population size.
func (r *SimulationResult) NCoders() int { return len(r.Coders) }

// Trajectories returns every coder's discrepancy sequence in coder order.
// The slices are shared with the result and must not be modified.
func (r *SimulationResult) Trajectories() [][]float32 {
	out := make([][]float32, len(r.Coders))
	for i := range r.Coders {
		out[i] = r.Coders[i].Discrepancies
	}
	return out
}

// TrueAccuracies returns every coder's Correct/NCases in coder order.
func (r *SimulationResult) TrueAccuracies() []float64 {
	out := make([]float64, len(r.Coders))
	for i := range r.Coders {
		out[i] = r.Coders[i].TrueAccuracy
	}
	return out
}

// Simulate runs the fixed-totals simulation. Identical configs produce
// bit-identical results. cfg is used as given; callers that accept user
// input should pass it through ClampConfig first.
func Simulate(cfg Config) *SimulationResult {
	res, _ := SimulateContext(context.Background(), cfg)
	return res
}

// SimulateContext is Simulate with cancellation between coders.
// The only error it returns is ctx.Err().
func SimulateContext(ctx context.Context, cfg Config) (*SimulationResult, error) {
	startTime := time.Now()
	if cfg.NCases < 1 {
		cfg.NCases = 1
	}
	if cfg.NCoders < 0 {
		cfg.NCoders = 0
	}
	dist := simulationDist(cfg)
	mode := cfg.StreamMode
	if mode == "" {
		mode = StreamShared
	}

	rng := NewPartitionedRNG(cfg.Seed)
	accs := accuracy.Sample(dist, rng.ForStream(StreamAccuracy), cfg.NCoders)

	res := &SimulationResult{
		Key:        cfg.Seed,
		NCases:     cfg.NCases,
		Dist:       dist,
		StreamMode: mode,
		Coders:     make([]CoderTrial, cfg.NCoders),
	}

	var err error
	switch mode {
	case StreamPerCoder:
		err = simulatePerCoder(ctx, res, accs, rng, cfg.Workers)
	default:
		err = simulateShared(ctx, res, accs, rng.ForStream(StreamSequence))
	}
	if err != nil {
		return nil, err
	}

	logrus.Debugf("Simulated %d coders x %d cases (%s, seed=%d, mode=%s) in %v",
		cfg.NCoders, cfg.NCases, accuracy.Describe(dist), cfg.Seed, mode, time.Since(startTime))
	return res, nil
}

// simulationDist resolves the distribution the accuracy stream samples.
// A custom density stands in as uniform(0,1) unless ResampleCustom is set.
func simulationDist(cfg Config) accuracy.Distribution {
	if cfg.Dist == nil {
		return accuracy.StandardUniform
	}
	if cfg.Dist.Kind() == accuracy.KindCustom {
		if !cfg.ResampleCustom {
			logrus.Debugf("custom density is preview-only; simulating uniform(0,1)")
			return accuracy.StandardUniform
		}
		logrus.Infof("resampling accuracies from the custom density")
	}
	return cfg.Dist
}

// simulateShared shuffles every coder from one stream, in coder order.
func simulateShared(ctx context.Context, res *SimulationResult, accs []float64, seqRNG *Mulberry32) error {
	seq := make([]uint8, res.NCases)
	for i := range res.Coders {
		if err := ctx.Err(); err != nil {
			return err
		}
		res.Coders[i] = runTrial(i, accs[i], res.NCases, seqRNG, seq)
	}
	return nil
}

// simulatePerCoder splits coders into contiguous chunks, one per worker.
// Each coder's stream is derived from (seed, coder index), so the result
// is independent of how coders are distributed. Generators are handed out
// before the workers start since PartitionedRNG is single-goroutine.
func simulatePerCoder(ctx context.Context, res *SimulationResult, accs []float64, rng *PartitionedRNG, workers int) error {
	n := len(res.Coders)
	if n == 0 {
		return nil
	}
	coderRNGs := make([]*Mulberry32, n)
	for i := range coderRNGs {
		coderRNGs[i] = rng.ForCoder(i)
	}
	workers = min(max(1, workers), n)
	chunk := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < n; lo += chunk {
		hi := min(n, lo+chunk)
		g.Go(func() error {
			seq := make([]uint8, res.NCases)
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				res.Coders[i] = runTrial(i, accs[i], res.NCases, coderRNGs[i], seq)
			}
			return nil
		})
	}
	return g.Wait()
}

// runTrial converts a sampled accuracy into an exact correct count, shuffles
// the outcomes and derives the running discrepancy. seq is scratch space of
// length nCases.
func runTrial(index int, pStar float64, nCases int, rng *Mulberry32, seq []uint8) CoderTrial {
	k := correctCount(pStar, nCases)
	pTrue := float64(k) / float64(nCases)

	shuffleOutcomes(seq[:nCases], k, rng)

	disc := make([]float32, nCases)
	correct := 0
	for t := 0; t < nCases; t++ {
		correct += int(seq[t])
		running := float64(correct) / float64(t+1)
		disc[t] = float32(math.Abs(running - pTrue))
	}

	return CoderTrial{
		Index:           index,
		SampledAccuracy: pStar,
		Correct:         k,
		TrueAccuracy:    pTrue,
		Discrepancies:   disc,
	}
}

// correctCount rounds p*nCases to the nearest integer in [0, nCases].
func correctCount(p float64, nCases int) int {
	k := int(math.Round(p * float64(nCases)))
	return min(nCases, max(0, k))
}

// shuffleOutcomes writes k ones followed by zeros into seq, then applies a
// Fisher-Yates shuffle from the last index down to 1.
func shuffleOutcomes(seq []uint8, k int, rng *Mulberry32) {
	for j := range seq {
		if j < k {
			seq[j] = 1
		} else {
			seq[j] = 0
		}
	}
	for j := len(seq) - 1; j > 0; j-- {
		r := int(rng.Float64() * float64(j+1))
		seq[j], seq[r] = seq[r], seq[j]
	}
}
