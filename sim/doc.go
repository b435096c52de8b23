// Package sim provides the fixed-totals Monte Carlo engine for coder
// accuracy stabilization.
//
// # Reading Guide
//
// Start with these files:
//   - rng.go: Mulberry32 and the partitioned streams derived from one seed
//   - config.go: Config, stream modes and population bounds
//   - simulator.go: accuracy draws, per-coder shuffles and discrepancy trajectories
//
// # Architecture
//
// The sim package produces immutable SimulationResult values; everything that
// reads them lives in sub-packages:
//   - sim/accuracy/: accuracy distributions, samplers and preview histograms
//   - sim/stabilization/: sliding-window stabilization indices and their aggregates
//   - sim/dashboard/: a cached session that recomputes reports without re-simulating
//
// # Determinism
//
// A run is a pure function of its Config. Accuracies come from the
// StreamAccuracy stream and shuffles from StreamSequence (shared mode) or
// one stream per coder (per-coder mode), so identical configs produce
// bit-identical trajectories regardless of the worker count.
package sim
