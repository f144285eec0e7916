// Package link simulates the bench's connection indicator.
package link

import (
	"sync"
	"time"

	"codeberg.org/mutker/labdash/internal/random"
	"codeberg.org/mutker/labdash/internal/sched"
)

type Config struct {
	Interval   time.Duration
	Recovery   time.Duration
	DropChance float64
}

func DefaultConfig() Config {
	return Config{
		Interval:   10 * time.Second,
		Recovery:   2 * time.Second,
		DropChance: 0.05,
	}
}

// Status is the connected flag, starting connected.
type Status struct {
	cfg Config
	src random.Source

	mu        sync.RWMutex
	connected bool
	drops     int
	group     *sched.Group

	changes sched.Notifier[bool]
}

func New(cfg Config, src random.Source) *Status {
	return &Status{
		cfg:       cfg,
		src:       src,
		connected: true,
	}
}

func (s *Status) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.connected
}

// Drops returns how many times the link went down since start.
func (s *Status) Drops() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.drops
}

func (s *Status) Subscribe(fn func(bool)) func() {
	return s.changes.Subscribe(fn)
}

// Tick possibly drops the link and reports whether it did.
func (s *Status) Tick() bool {
	if !random.Chance(s.src, s.cfg.DropChance) {
		return false
	}

	s.mu.Lock()
	group := s.group
	s.drops++
	s.mu.Unlock()

	if group != nil {
		group.After("link.recover", s.cfg.Recovery, s.Recover)
	}
	s.set(false)

	return true
}

// Recover marks the link connected again.
func (s *Status) Recover() {
	s.set(true)
}

func (s *Status) Start(group *sched.Group) {
	s.mu.Lock()
	s.group = group
	s.mu.Unlock()

	group.Every("link.tick", s.cfg.Interval, func() { s.Tick() })
}

func (s *Status) set(connected bool) {
	s.mu.Lock()
	changed := s.connected != connected
	s.connected = connected
	s.mu.Unlock()

	if changed {
		s.changes.Notify(connected)
	}
}
