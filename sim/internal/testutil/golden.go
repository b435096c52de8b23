// Package testutil provides shared test infrastructure for the stabilization
// simulator: the golden dataset types and assertion helpers used across the
// sim/ test packages.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/inference-sim/stabsim/sim/accuracy"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one recorded dashboard run and its stabilization report.
type GoldenTestCase struct {
	Name         string            `json:"name"`
	Seed         int64             `json:"seed"`
	NCases       int               `json:"n_cases"`
	NCoders      int               `json:"n_coders"`
	Distribution accuracy.DistSpec `json:"distribution"`
	StreamMode   string            `json:"stream_mode"`
	Window       int               `json:"window"`
	Results      []GoldenResult    `json:"results"`
}

// Epsilons lists the tolerances recorded for the case, in file order.
func (tc GoldenTestCase) Epsilons() []float64 {
	out := make([]float64, len(tc.Results))
	for i, r := range tc.Results {
		out[i] = r.Epsilon
	}
	return out
}

// GoldenResult holds the expected aggregates for one tolerance.
type GoldenResult struct {
	Epsilon       float64 `json:"epsilon"`
	StabilizedPct float64 `json:"stabilized_pct"`
	MeanIndex     float64 `json:"mean_index"`

	// Exact match (integer indices)
	P50 int `json:"p50"`
	P75 int `json:"p75"`
	P90 int `json:"p90"`
	P95 int `json:"p95"`

	// Per-coder indices for the first coders, when recorded
	LeadingIndices []int `json:"leading_indices,omitempty"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}
	if len(dataset.Tests) == 0 {
		t.Fatal("Golden dataset has no test cases")
	}
	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
