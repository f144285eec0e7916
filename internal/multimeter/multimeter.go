// Package multimeter simulates a bench multimeter whose reading drifts by
// mode dependent noise on a fixed cadence.
package multimeter

import (
	"sync"
	"time"

	"codeberg.org/mutker/labdash/internal/errors"
	"codeberg.org/mutker/labdash/internal/random"
	"codeberg.org/mutker/labdash/internal/sched"
)

const DefaultBase = 5.0

type Config struct {
	Interval time.Duration
	// Base is the reading every mode restarts from.
	Base float64
	Mode Mode
}

func DefaultConfig() Config {
	return Config{
		Interval: 200 * time.Millisecond,
		Base:     DefaultBase,
		Mode:     DCV,
	}
}

type Reading struct {
	Mode    Mode    `json:"mode"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

type Meter struct {
	cfg Config
	src random.Source

	mu    sync.RWMutex
	mode  Mode
	value float64

	changes sched.Notifier[Reading]
}

func New(cfg Config, src random.Source) *Meter {
	if !cfg.Mode.Valid() {
		cfg.Mode = DCV
	}

	return &Meter{
		cfg:   cfg,
		src:   src,
		mode:  cfg.Mode,
		value: cfg.Base,
	}
}

// SetMode switches mode and resets the reading to the base value.
func (m *Meter) SetMode(mode Mode) error {
	if !mode.Valid() {
		return errors.New().WithData(ErrInvalidMode, string(mode))
	}

	m.mu.Lock()
	m.mode = mode
	m.value = m.cfg.Base
	r := m.readingLocked()
	m.mu.Unlock()

	m.changes.Notify(r)

	return nil
}

func (m *Meter) Mode() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.mode
}

func (m *Meter) Reading() Reading {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.readingLocked()
}

// Tick adds the mode's noise to the previous reading.
func (m *Meter) Tick() Reading {
	m.mu.Lock()
	m.value += random.Symmetric(m.src, m.mode.Noise())
	r := m.readingLocked()
	m.mu.Unlock()

	m.changes.Notify(r)

	return r
}

func (m *Meter) Subscribe(fn func(Reading)) func() {
	return m.changes.Subscribe(fn)
}

func (m *Meter) Start(g *sched.Group) {
	g.Every("multimeter.sample", m.cfg.Interval, func() { m.Tick() })
}

func (m *Meter) readingLocked() Reading {
	return Reading{
		Mode:    m.mode,
		Value:   m.value,
		Display: Format(m.mode, m.value),
	}
}
