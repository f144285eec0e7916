// Package powersupply simulates a single channel bench supply driving a
// fixed resistive load.
package powersupply

import (
	"fmt"
	"sync"
	"time"

	"codeberg.org/mutker/labdash/internal/errors"
	"codeberg.org/mutker/labdash/internal/random"
	"codeberg.org/mutker/labdash/internal/sched"
)

const (
	MaxVoltage = 12.0
	MaxCurrent = 3.0

	voltageNoise = 0.02
	currentNoise = 0.01
)

type Config struct {
	Interval time.Duration
	LoadOhm  float64
	Voltage  float64
	Limit    float64
}

func DefaultConfig() Config {
	return Config{
		Interval: 200 * time.Millisecond,
		LoadOhm:  100,
		Voltage:  5,
		Limit:    1,
	}
}

// State is the front panel: settings plus measured output.
type State struct {
	TargetVoltage float64 `json:"target_voltage"`
	CurrentLimit  float64 `json:"current_limit"`
	Enabled       bool    `json:"enabled"`
	ActualVoltage float64 `json:"actual_voltage"`
	ActualCurrent float64 `json:"actual_current"`
	Limiting      bool    `json:"limiting"`
}

type Supply struct {
	cfg Config
	src random.Source

	mu      sync.RWMutex
	target  float64
	limit   float64
	enabled bool
	voltage float64
	current float64

	changes sched.Notifier[State]
}

func New(cfg Config, src random.Source) *Supply {
	return &Supply{
		cfg:    cfg,
		src:    src,
		target: cfg.Voltage,
		limit:  cfg.Limit,
	}
}

// SetVoltage changes the target. While enabled the output follows at once.
func (s *Supply) SetVoltage(v float64) error {
	if v < 0 || v > MaxVoltage {
		return errors.New().WithData(ErrOutOfRange, fmt.Sprintf("voltage %.2f not in [0,%g]", v, MaxVoltage))
	}

	s.update(func() {
		s.target = v
		if s.enabled {
			s.voltage = v
		}
	})

	return nil
}

func (s *Supply) SetCurrentLimit(a float64) error {
	if a < 0 || a > MaxCurrent {
		return errors.New().WithData(ErrOutOfRange, fmt.Sprintf("current limit %.3f not in [0,%g]", a, MaxCurrent))
	}

	s.update(func() { s.limit = a })

	return nil
}

// SetEnabled switches the output. Disabling pins both readings to zero;
// enabling seeds the voltage reading with the target.
func (s *Supply) SetEnabled(on bool) {
	s.update(func() {
		s.enabled = on
		if on {
			s.voltage = s.target
			return
		}
		s.voltage = 0
		s.current = 0
	})
}

func (s *Supply) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.stateLocked()
}

// Tick samples the output. It does nothing while disabled.
func (s *Supply) Tick() State {
	s.mu.Lock()
	if s.enabled {
		s.voltage = s.target + random.Symmetric(s.src, voltageNoise)
		s.current = s.target/s.cfg.LoadOhm + random.Symmetric(s.src, currentNoise)
	}
	st := s.stateLocked()
	s.mu.Unlock()

	s.changes.Notify(st)

	return st
}

func (s *Supply) Subscribe(fn func(State)) func() {
	return s.changes.Subscribe(fn)
}

func (s *Supply) Start(g *sched.Group) {
	g.Every("powersupply.sample", s.cfg.Interval, func() { s.Tick() })
}

func (s *Supply) update(fn func()) {
	s.mu.Lock()
	fn()
	st := s.stateLocked()
	s.mu.Unlock()

	s.changes.Notify(st)
}

func (s *Supply) stateLocked() State {
	return State{
		TargetVoltage: s.target,
		CurrentLimit:  s.limit,
		Enabled:       s.enabled,
		ActualVoltage: s.voltage,
		ActualCurrent: s.current,
		Limiting:      s.enabled && s.current >= s.limit,
	}
}
