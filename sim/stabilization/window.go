// Package stabilization measures how quickly each coder's running accuracy
// settles inside a tolerance band around its true accuracy.
//
// A coder stabilizes at case t when every discrepancy in the window
// [t, t+W-1] (1-based) is at most ε. Results are plain values; nothing here
// mutates a simulation result.
package stabilization

import "fmt"

// Status classifies a coder's stabilization outcome for one ε.
type Status string

const (
	// Stabilized means a qualifying window exists and fits inside the horizon.
	Stabilized Status = "stabilized"
	// BeyondHorizon means a qualifying window exists in the coder's sequence
	// but ends after the observed horizon.
	BeyondHorizon Status = "beyond_horizon"
	// Never means no qualifying window exists in the sequence.
	Never Status = "never"
)

// Index is a coder's stabilization index together with its outcome.
// Value is the 1-based case index for Stabilized and BeyondHorizon and 0 for Never.
type Index struct {
	Value  int    `json:"value"`
	Status Status `json:"status"`
}

// Stabilized reports whether the coder counts as stabilized.
func (i Index) Stabilized() bool { return i.Status == Stabilized }

func (i Index) String() string {
	switch i.Status {
	case Stabilized:
		return fmt.Sprintf("%d", i.Value)
	case BeyondHorizon:
		return fmt.Sprintf("%d (beyond horizon)", i.Value)
	default:
		return "never"
	}
}

// StableIndexWindow returns the smallest 1-based t such that every element
// of d[t-1 : t-1+w] is <= eps. ok is false when no such window exists,
// including when w > len(d). A non-positive w trivially returns (1, true).
//
// Runs in O(len(d)) by sliding a violation count across the sequence.
func StableIndexWindow(d []float32, eps float64, w int) (t int, ok bool) {
	n := len(d)
	if w <= 0 {
		return 1, true
	}
	if w > n {
		return 0, false
	}

	violations := 0
	for i := 0; i < w; i++ {
		if float64(d[i]) > eps {
			violations++
		}
	}
	if violations == 0 {
		return 1, true
	}

	for start := 1; start+w-1 < n; start++ {
		if float64(d[start-1]) > eps {
			violations--
		}
		if float64(d[start+w-1]) > eps {
			violations++
		}
		if violations == 0 {
			return start + 1, true
		}
	}
	return 0, false
}

// Classify computes the stabilization index of one trajectory and decides
// whether its qualifying window fits within horizon.
func Classify(d []float32, eps float64, w, horizon int) Index {
	t, ok := StableIndexWindow(d, eps, w)
	switch {
	case !ok:
		return Index{Status: Never}
	case t+w-1 <= horizon:
		return Index{Value: t, Status: Stabilized}
	default:
		return Index{Value: t, Status: BeyondHorizon}
	}
}
