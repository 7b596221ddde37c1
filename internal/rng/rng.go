// Package rng provides the random streams used by the simulator. Every trial owns
// its own stream seeded from the run seed and the trial index.
package rng

import (
	"fmt"
	"math/rand"
)

// Source is a stream of uniform values in [0, 1).
type Source interface {
	Float64() float64
}

const (
	Xorshift = "xorshift32"
	Math     = "math"
)

// Factory builds a fresh stream for a seed.
type Factory func(seed int64) Source

// NewFactory returns the factory for a PRNG name ("xorshift32" or "math").
func NewFactory(name string) (Factory, error) {
	switch name {
	case "", Xorshift:
		return func(seed int64) Source { return NewXorshift32(seed) }, nil
	case Math:
		return func(seed int64) Source { return &mathRand{rand.New(rand.NewSource(seed))} }, nil
	default:
		return nil, fmt.Errorf("unknown prng %q (want %q or %q)", name, Xorshift, Math)
	}
}

// Xorshift32 is Marsaglia's 32-bit xorshift generator.
type Xorshift32 struct {
	state uint32
}

// NewXorshift32 seeds the generator with the upper half of splitmix64(seed).
// The state is never zero.
func NewXorshift32(seed int64) *Xorshift32 {
	s := uint32(splitmix64(uint64(seed)) >> 32)
	if s == 0 {
		s = 0x9E3779B9
	}
	return &Xorshift32{state: s}
}

// Float64 returns a value in [0, 1).
func (r *Xorshift32) Float64() float64 {
	r.state ^= r.state << 13
	r.state ^= r.state >> 17
	r.state ^= r.state << 5
	return float64(r.state) / 4294967296.0
}

// mathRand adapts math/rand to Source.
type mathRand struct {
	*rand.Rand
}

// DeriveSeed returns the seed of trial t of a run. Trials are independent of the
// worker that executes them, so results do not depend on the worker count.
func DeriveSeed(runSeed int64, trial int) int64 {
	return int64(splitmix64(uint64(runSeed) + uint64(trial)*0x9E3779B97F4A7C15))
}

func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	z := x
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Sequence replays a fixed list of values, cycling when exhausted. Used to script
// outcomes in tests.
type Sequence struct {
	Values []float64
	pos    int
}

func (s *Sequence) Float64() float64 {
	v := s.Values[s.pos%len(s.Values)]
	s.pos++
	return v
}

// Drawn reports how many values have been consumed.
func (s *Sequence) Drawn() int { return s.pos }
