// Package sched owns the recurring and one-shot timers that drive the
// simulated instruments. Callbacks of one Scheduler never overlap, so the
// generators behave as if they shared a single event loop.
package sched

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

type Scheduler struct {
	clock clock.Clock

	// loop serializes every callback and every Do call.
	loop sync.Mutex

	mu      sync.Mutex
	handles map[*Handle]struct{}
	closed  bool
	wg      sync.WaitGroup
}

// Handle is the owned reference to one timer. Stop must be called when the
// consumer goes away; a Group does it for a whole scope.
type Handle struct {
	name    string
	s       *Scheduler
	stopped atomic.Bool
	done    chan struct{}
	once    sync.Once

	mu    sync.Mutex
	timer *clock.Timer
}

// New returns a Scheduler on the given clock. A nil clock means wall time.
func New(c clock.Clock) *Scheduler {
	if c == nil {
		c = clock.New()
	}

	return &Scheduler{
		clock:   c,
		handles: make(map[*Handle]struct{}),
	}
}

// Clock returns the clock the scheduler runs on.
func (s *Scheduler) Clock() clock.Clock {
	return s.clock
}

// Every runs fn each period until the handle is stopped.
func (s *Scheduler) Every(name string, period time.Duration, fn func()) *Handle {
	h, ok := s.register(name)
	if !ok {
		return h
	}

	ticker := s.clock.Ticker(period)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
				s.run(h, fn)
			}
		}
	}()

	return h
}

// After runs fn once after delay unless the handle is stopped first.
func (s *Scheduler) After(name string, delay time.Duration, fn func()) *Handle {
	h, ok := s.register(name)
	if !ok {
		return h
	}

	timer := s.clock.AfterFunc(delay, func() {
		s.run(h, fn)
		h.Stop()
	})

	h.mu.Lock()
	h.timer = timer
	h.mu.Unlock()

	return h
}

// Do runs fn on the loop, after any callback in progress. It must not be
// called from inside a callback.
func (s *Scheduler) Do(fn func()) {
	s.loop.Lock()
	defer s.loop.Unlock()

	fn()
}

// Pending returns the number of live handles.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.handles)
}

// Close stops every handle and waits for the recurring loops to exit.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	handles := make([]*Handle, 0, len(s.handles))
	for h := range s.handles {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.Stop()
	}

	s.wg.Wait()
}

func (s *Scheduler) register(name string) (*Handle, bool) {
	h := &Handle{
		name: name,
		s:    s,
		done: make(chan struct{}),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		h.stopped.Store(true)
		close(h.done)
		return h, false
	}
	s.handles[h] = struct{}{}

	return h, true
}

func (s *Scheduler) forget(h *Handle) {
	s.mu.Lock()
	delete(s.handles, h)
	s.mu.Unlock()
}

func (s *Scheduler) run(h *Handle, fn func()) {
	s.loop.Lock()
	defer s.loop.Unlock()

	if h.stopped.Load() {
		return
	}
	fn()
}

// Name returns the label given at creation.
func (h *Handle) Name() string {
	return h.name
}

// Stopped reports whether the handle was stopped or, for one-shot
// handles, has fired.
func (h *Handle) Stopped() bool {
	return h.stopped.Load()
}

// Stop cancels the timer. Once Stop returns no further callback starts.
func (h *Handle) Stop() {
	h.once.Do(func() {
		h.stopped.Store(true)
		close(h.done)

		h.mu.Lock()
		if h.timer != nil {
			h.timer.Stop()
		}
		h.mu.Unlock()

		h.s.forget(h)
	})
}
