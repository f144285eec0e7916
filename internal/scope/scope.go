// Package scope is the oscilloscope front panel: it drives a waveform
// synthesizer from the timebase and vertical scale and measures what is
// on screen.
package scope

import (
	"fmt"
	"sync"

	"codeberg.org/mutker/labdash/internal/errors"
	"codeberg.org/mutker/labdash/internal/waveform"
)

// FrequencyConstant sets the synthesized frequency to FrequencyConstant
// divided by the time per division.
const FrequencyConstant = 200.0

type Settings struct {
	TimePerDiv   float64     `json:"time_per_div"`
	VoltsPerDiv  float64     `json:"volts_per_div"`
	TriggerMode  TriggerMode `json:"trigger_mode"`
	TriggerEdge  Edge        `json:"trigger_edge"`
	TriggerLevel float64     `json:"trigger_level"`
	Running      bool        `json:"running"`
}

func DefaultSettings() Settings {
	return Settings{
		TimePerDiv:   1,
		VoltsPerDiv:  1,
		TriggerMode:  TriggerAuto,
		TriggerEdge:  Rising,
		TriggerLevel: 0,
		Running:      true,
	}
}

// Validate checks every field against the front panel choices.
func (s Settings) Validate() error {
	errFactory := errors.New()

	if _, ok := lookup(Timebases, s.TimePerDiv); !ok {
		return errFactory.WithData(ErrOutOfRange, fmt.Sprintf("time per div %g", s.TimePerDiv))
	}
	if _, ok := lookup(VoltScales, s.VoltsPerDiv); !ok {
		return errFactory.WithData(ErrOutOfRange, fmt.Sprintf("volts per div %g", s.VoltsPerDiv))
	}
	if !s.TriggerMode.Valid() {
		return errFactory.WithData(ErrInvalidMode, string(s.TriggerMode))
	}
	if !s.TriggerEdge.Valid() {
		return errFactory.WithData(ErrInvalidMode, string(s.TriggerEdge))
	}
	if s.TriggerLevel < -MaxTriggerLevel || s.TriggerLevel > MaxTriggerLevel {
		return errFactory.WithData(ErrOutOfRange, fmt.Sprintf("trigger level %g", s.TriggerLevel))
	}

	return nil
}

// Scope shows synthesizer frames according to its settings. A stopped
// scope keeps showing the last frame.
type Scope struct {
	synth   *waveform.Synthesizer
	samples int
	noise   float64

	mu       sync.RWMutex
	settings Settings
	display  waveform.Buffer

	unsubscribe func()
}

// New attaches a scope to synth and drives it with the default settings.
func New(synth *waveform.Synthesizer, samples int, noise float64) *Scope {
	s := &Scope{
		synth:    synth,
		samples:  samples,
		noise:    noise,
		settings: DefaultSettings(),
		display:  waveform.Buffer{},
	}
	s.synth.SetParams(s.params(s.settings))
	s.unsubscribe = synth.Subscribe(s.onFrame)

	return s
}

// Detach stops following the synthesizer.
func (s *Scope) Detach() {
	s.unsubscribe()
}

func (s *Scope) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.settings
}

// Apply replaces the settings. Invalid settings are rejected whole.
func (s *Scope) Apply(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.settings = next
	s.mu.Unlock()

	s.synth.SetParams(s.params(next))

	return nil
}

// Update applies fn to a copy of the current settings.
func (s *Scope) Update(fn func(*Settings)) error {
	next := s.Settings()
	fn(&next)

	return s.Apply(next)
}

func (s *Scope) SetRunning(on bool) {
	s.mu.Lock()
	s.settings.Running = on
	s.mu.Unlock()
}

// Display returns a copy of the frame on screen.
func (s *Scope) Display() waveform.Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.display.Clone()
}

// Measure analyzes the frame on screen.
func (s *Scope) Measure() waveform.Measurement {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return waveform.Analyze(s.display, s.settings.TimePerDiv, s.settings.VoltsPerDiv)
}

func (s *Scope) onFrame(buf waveform.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.settings
	if !st.Running {
		return
	}

	switch st.TriggerMode {
	case TriggerNormal:
		if !Triggered(buf, st.TriggerLevel*st.VoltsPerDiv, st.TriggerEdge) {
			return
		}
	case TriggerSingle:
		if !Triggered(buf, st.TriggerLevel*st.VoltsPerDiv, st.TriggerEdge) {
			return
		}
		s.settings.Running = false
	}

	s.display = buf.Clone()
}

func (s *Scope) params(st Settings) waveform.Params {
	return waveform.Params{
		Frequency:   FrequencyConstant / st.TimePerDiv,
		Amplitude:   st.VoltsPerDiv,
		SampleCount: s.samples,
		NoiseLevel:  s.noise,
	}
}

// Triggered reports whether buf crosses level on the given edge.
func Triggered(buf waveform.Buffer, level float64, edge Edge) bool {
	for i := 1; i < len(buf); i++ {
		prev, cur := buf[i-1], buf[i]
		switch edge {
		case Rising:
			if prev < level && cur >= level {
				return true
			}
		case Falling:
			if prev >= level && cur < level {
				return true
			}
		}
	}

	return false
}
