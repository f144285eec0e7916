// Package gesture simulates a gesture sensor that rarely reports a
// direction and falls back to idle after a hold time.
package gesture

import (
	"sync"
	"time"

	"codeberg.org/mutker/labdash/internal/random"
	"codeberg.org/mutker/labdash/internal/sched"
)

type Kind string

const (
	None     Kind = "none"
	Left     Kind = "left"
	Right    Kind = "right"
	Up       Kind = "up"
	Down     Kind = "down"
	Forward  Kind = "forward"
	Backward Kind = "backward"
)

// Kinds lists every category, idle first.
var Kinds = []Kind{None, Left, Right, Up, Down, Forward, Backward}

type Config struct {
	Interval time.Duration
	Hold     time.Duration
	Chance   float64
}

func DefaultConfig() Config {
	return Config{
		Interval: 3 * time.Second,
		Hold:     2 * time.Second,
		Chance:   0.2,
	}
}

type Generator struct {
	cfg Config
	src random.Source

	mu      sync.RWMutex
	current Kind
	group   *sched.Group

	changes sched.Notifier[Kind]
}

func New(cfg Config, src random.Source) *Generator {
	return &Generator{
		cfg:     cfg,
		src:     src,
		current: None,
	}
}

// Current returns the active gesture, None when idle.
func (g *Generator) Current() Kind {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.current
}

// Active reports whether a gesture is being shown.
func (g *Generator) Active() bool {
	return g.Current() != None
}

func (g *Generator) Subscribe(fn func(Kind)) func() {
	return g.changes.Subscribe(fn)
}

// Tick draws a possible gesture. It returns the new gesture and true when
// one was triggered. A trigger while already active is allowed; every
// trigger schedules its own reset.
func (g *Generator) Tick() (Kind, bool) {
	if !random.Chance(g.src, g.cfg.Chance) {
		return None, false
	}

	kind := Kinds[random.Index(g.src, 1, len(Kinds))]

	g.mu.RLock()
	group := g.group
	g.mu.RUnlock()
	if group != nil {
		group.After("gesture.reset", g.cfg.Hold, g.Reset)
	}
	g.set(kind)

	return kind, true
}

// Reset returns the generator to idle.
func (g *Generator) Reset() {
	g.set(None)
}

// Start schedules the generator and its resets on group.
func (g *Generator) Start(group *sched.Group) {
	g.mu.Lock()
	g.group = group
	g.mu.Unlock()

	group.Every("gesture.tick", g.cfg.Interval, func() { g.Tick() })
}

func (g *Generator) set(kind Kind) {
	g.mu.Lock()
	changed := g.current != kind
	g.current = kind
	g.mu.Unlock()

	if changed {
		g.changes.Notify(kind)
	}
}
