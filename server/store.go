package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inference-sim/stabsim/sim"
)

// Run is one stored simulation. Result is immutable once stored.
type Run struct {
	ID        string
	CreatedAt time.Time
	Request   RunRequest
	Result    *sim.SimulationResult
}

// Store keeps the most recent runs in memory, evicting the oldest first.
type Store struct {
	mu    sync.RWMutex
	runs  map[string]*Run
	order []string // insertion order, oldest first
	max   int
}

// NewStore returns a store holding at most maxRuns runs.
func NewStore(maxRuns int) *Store {
	return &Store{
		runs: make(map[string]*Run),
		max:  max(1, maxRuns),
	}
}

// Add assigns an ID to run and stores it. It returns the IDs evicted to
// make room.
func (s *Store) Add(run *Run) (evicted []string) {
	run.ID = uuid.NewString()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.order) >= s.max {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.runs, oldest)
		evicted = append(evicted, oldest)
	}
	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)
	return evicted
}

// Get returns the run with the given ID.
func (s *Store) Get(id string) (*Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	return run, ok
}

// Delete removes a run. It reports whether the run existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; !ok {
		return false
	}
	delete(s.runs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns stored runs, newest first.
func (s *Store) List() []*Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Run, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.runs[s.order[i]])
	}
	return out
}

// Len returns the number of stored runs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
