package sched

import (
	"sync"
	"time"
)

// Group ties a set of handles to one consumer scope.
type Group struct {
	s *Scheduler

	mu      sync.Mutex
	handles []*Handle
	closed  bool
}

// Group opens a new scope on the scheduler.
func (s *Scheduler) Group() *Group {
	return &Group{s: s}
}

// Scheduler returns the scheduler the group was opened on.
func (g *Group) Scheduler() *Scheduler {
	return g.s
}

func (g *Group) Every(name string, period time.Duration, fn func()) *Handle {
	return g.track(g.s.Every(name, period, fn))
}

func (g *Group) After(name string, delay time.Duration, fn func()) *Handle {
	return g.track(g.s.After(name, delay, fn))
}

// Len returns the number of live handles in the group.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prune()
	return len(g.handles)
}

// Close stops every handle of the group. Handles created afterwards are
// stopped immediately.
func (g *Group) Close() {
	g.mu.Lock()
	g.closed = true
	handles := g.handles
	g.handles = nil
	g.mu.Unlock()

	for _, h := range handles {
		h.Stop()
	}
}

func (g *Group) track(h *Handle) *Handle {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		h.Stop()
		return h
	}

	g.prune()
	g.handles = append(g.handles, h)

	return h
}

func (g *Group) prune() {
	live := g.handles[:0]
	for _, h := range g.handles {
		if !h.Stopped() {
			live = append(live, h)
		}
	}
	g.handles = live
}
