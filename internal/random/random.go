// Package random abstracts the randomness behind every simulated
// instrument so that tests can replay fixed draws.
package random

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Source yields uniformly distributed values in [0, 1).
type Source interface {
	Float64() float64
}

type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a goroutine safe Source. A zero seed picks a time based one.
func New(seed int64) Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &lockedSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rng.Float64()
}

// Sequence replays values in order, wrapping around at the end.
type Sequence struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// NewSequence returns a Source replaying values. Values must lie in [0, 1).
func NewSequence(values ...float64) *Sequence {
	if len(values) == 0 {
		values = []float64{0}
	}

	return &Sequence{values: values}
}

func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.values[s.next]
	s.next = (s.next + 1) % len(s.values)

	return v
}

// Draws returns how many values have been consumed modulo the sequence length.
func (s *Sequence) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.next
}

// Range returns a uniform value in [lo, hi).
func Range(src Source, lo, hi float64) float64 {
	return src.Float64()*(hi-lo) + lo
}

// Symmetric returns a uniform value in [-amplitude, amplitude).
func Symmetric(src Source, amplitude float64) float64 {
	return Range(src, -amplitude, amplitude)
}

// Chance reports true with probability p.
func Chance(src Source, p float64) bool {
	return src.Float64() > 1-p
}

// Index returns floor(Range(lo, hi)), an integer in [lo, hi).
func Index(src Source, lo, hi int) int {
	return int(math.Floor(Range(src, float64(lo), float64(hi))))
}
