package sim

import (
	"fmt"
	"hash/fnv"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two simulations with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical results.
type SimulationKey uint32

// NewSimulationKey creates a SimulationKey from a seed value.
// Seeds outside the uint32 range keep their low 32 bits, matching how the
// dashboard coerces its seed input.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(uint32(seed))
}

// === Mulberry32 ===

// Mulberry32 is a small, fast 32-bit generator with a single word of state.
// Output is reproducible across platforms: all arithmetic wraps at 32 bits.
type Mulberry32 struct {
	state uint32
}

// NewMulberry32 returns a generator seeded with seed.
func NewMulberry32(seed uint32) *Mulberry32 {
	return &Mulberry32{state: seed}
}

// Uint32 advances the state and returns the next 32-bit output.
func (m *Mulberry32) Uint32() uint32 {
	m.state += 0x6D2B79F5
	t := m.state
	t = (t ^ t>>15) * (t | 1)
	t ^= t + (t^t>>7)*(t|61)
	return t ^ t>>14
}

// Float64 returns a uniform draw in [0,1) with resolution 1/2^32.
func (m *Mulberry32) Float64() float64 {
	return float64(m.Uint32()) / 4294967296.0
}

// === Subsystem Constants ===

const (
	// StreamAccuracy is the stream that draws one true accuracy per coder.
	// Uses the master seed directly.
	StreamAccuracy = "accuracy"

	// StreamSequence is the stream that drives every correct/incorrect shuffle.
	StreamSequence = "sequence"

	// sequenceSalt decorrelates the sequence stream from the accuracy stream.
	// It is a fixed derivation kept for reproducibility with the dashboard,
	// not a guarantee of statistical independence.
	sequenceSalt uint32 = 0x9e3779b9
)

// StreamCoder returns the stream name for coder i in per-coder mode.
func StreamCoder(i int) string {
	return fmt.Sprintf("coder_%d", i)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated generators per stream.
//
// Derivation formula:
//   - StreamAccuracy: masterSeed
//   - StreamSequence: masterSeed XOR 0x9e3779b9
//   - any other name: masterSeed XOR 0x9e3779b9 XOR fnv1a32(name)
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
// Generators it hands out may be moved to another goroutine as long as each
// one has a single owner.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*Mulberry32
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:     key,
		streams: make(map[string]*Mulberry32),
	}
}

// ForStream returns the generator for the named stream.
// The same name always returns the same *Mulberry32 instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForStream(name string) *Mulberry32 {
	if rng, ok := p.streams[name]; ok {
		return rng
	}
	rng := NewMulberry32(DeriveSeed(p.key, name))
	p.streams[name] = rng
	return rng
}

// ForCoder returns the shuffle generator for coder i in per-coder mode.
func (p *PartitionedRNG) ForCoder(i int) *Mulberry32 {
	return p.ForStream(StreamCoder(i))
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// DeriveSeed computes the seed of a named stream without caching it.
func DeriveSeed(key SimulationKey, name string) uint32 {
	switch name {
	case StreamAccuracy:
		return uint32(key)
	case StreamSequence:
		return uint32(key) ^ sequenceSalt
	default:
		return uint32(key) ^ sequenceSalt ^ fnv1a32(name)
	}
}

// fnv1a32 computes a 32-bit FNV-1a hash of the input string.
func fnv1a32(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}
