package sensor

import (
	"sync"
	"time"

	"codeberg.org/mutker/labdash/internal/random"
	"codeberg.org/mutker/labdash/internal/sched"
)

// Spec describes one simulated scalar channel.
type Spec struct {
	Name     string
	Unit     string
	Initial  float64
	Delta    Range
	Bounds   Bounds
	Interval time.Duration
	// History is the number of past readings retained, 0 for none.
	History int
}

// Reading is the latest value of a channel.
type Reading struct {
	Channel string    `json:"channel"`
	Value   float64   `json:"value"`
	Unit    string    `json:"unit"`
	At      time.Time `json:"at"`
}

// Channel is a random walk advanced on its own timer.
type Channel struct {
	spec  Spec
	src   random.Source
	clock func() time.Time

	mu      sync.RWMutex
	value   float64
	at      time.Time
	history []float64

	changes sched.Notifier[Reading]
	handle  *sched.Handle
}

// NewChannel creates a channel at its initial value.
func NewChannel(spec Spec, src random.Source) *Channel {
	c := &Channel{
		spec:  spec,
		src:   src,
		clock: time.Now,
		value: spec.Initial,
	}
	if spec.History > 0 {
		c.history = make([]float64, 0, spec.History)
		c.history = append(c.history, spec.Initial)
	}

	return c
}

func (c *Channel) Spec() Spec {
	return c.spec
}

// Tick advances the walk by one step and notifies subscribers.
func (c *Channel) Tick() Reading {
	c.mu.Lock()
	c.value = Step(c.src, c.value, c.spec.Delta, c.spec.Bounds)
	c.at = c.clock()
	if c.spec.History > 0 {
		c.history = append(c.history, c.value)
		if len(c.history) > c.spec.History {
			c.history = c.history[1:]
		}
	}
	r := c.readingLocked()
	c.mu.Unlock()

	c.changes.Notify(r)

	return r
}

// Value returns the current reading.
func (c *Channel) Value() Reading {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.readingLocked()
}

// History returns a copy of the retained readings, oldest first.
func (c *Channel) History() []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]float64, len(c.history))
	copy(out, c.history)

	return out
}

// Subscribe registers fn for every accepted or rejected step.
func (c *Channel) Subscribe(fn func(Reading)) func() {
	return c.changes.Subscribe(fn)
}

// Start schedules the channel on g. The timer is released with the group.
func (c *Channel) Start(g *sched.Group) {
	c.mu.Lock()
	c.clock = g.Scheduler().Clock().Now
	c.mu.Unlock()

	c.handle = g.Every("sensor."+c.spec.Name, c.spec.Interval, func() { c.Tick() })
}

// Stop cancels the channel's timer if it was started.
func (c *Channel) Stop() {
	if c.handle != nil {
		c.handle.Stop()
	}
}

func (c *Channel) readingLocked() Reading {
	return Reading{
		Channel: c.spec.Name,
		Value:   c.value,
		Unit:    c.spec.Unit,
		At:      c.at,
	}
}
