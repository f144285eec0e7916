package waveform

import (
	"sync"
	"time"

	"codeberg.org/mutker/labdash/internal/random"
	"codeberg.org/mutker/labdash/internal/sched"
)

const (
	DefaultRefresh     = 50 * time.Millisecond
	DefaultSampleCount = 200
	DefaultNoise       = 0.05
)

// Synthesizer regenerates a frame on every tick.
type Synthesizer struct {
	src     random.Source
	refresh time.Duration

	mu     sync.RWMutex
	params Params
	frame  Buffer
	seq    uint64

	frames sched.Notifier[Buffer]
}

func NewSynthesizer(src random.Source, refresh time.Duration, p Params) *Synthesizer {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}

	return &Synthesizer{
		src:     src,
		refresh: refresh,
		params:  p,
		frame:   Buffer{},
	}
}

// SetParams takes effect on the next tick.
func (s *Synthesizer) SetParams(p Params) {
	s.mu.Lock()
	s.params = p
	s.mu.Unlock()
}

func (s *Synthesizer) Params() Params {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.params
}

// Frame returns a copy of the latest frame.
func (s *Synthesizer) Frame() Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.frame.Clone()
}

// Seq returns the number of frames produced so far.
func (s *Synthesizer) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.seq
}

// Tick synthesizes a new frame and swaps it in.
func (s *Synthesizer) Tick() Buffer {
	p := s.Params()
	buf := Synthesize(s.src, p)

	s.mu.Lock()
	s.frame = buf
	s.seq++
	s.mu.Unlock()

	s.frames.Notify(buf.Clone())

	return buf.Clone()
}

// Subscribe registers fn for every new frame. Subscribers share the
// buffer they receive and must not modify it.
func (s *Synthesizer) Subscribe(fn func(Buffer)) func() {
	return s.frames.Subscribe(fn)
}

func (s *Synthesizer) Start(g *sched.Group) {
	g.Every("waveform.synthesize", s.refresh, func() { s.Tick() })
}
