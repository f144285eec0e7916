package gpio

import (
	"fmt"
	"sync"

	"codeberg.org/mutker/labdash/internal/errors"
	"codeberg.org/mutker/labdash/internal/logger"
	"codeberg.org/mutker/labdash/internal/sched"
)

const DefaultLEDCount = 9

// LEDBank is a row of user LEDs, all off at start.
type LEDBank struct {
	log logger.Logger

	mu   sync.RWMutex
	leds []bool

	changes sched.Notifier[[]bool]
}

func NewLEDBank(count int, log logger.Logger) *LEDBank {
	if log == nil {
		log = logger.Nop()
	}

	return &LEDBank{
		log:  log,
		leds: make([]bool, count),
	}
}

func (l *LEDBank) Len() int {
	return len(l.leds)
}

// States returns a copy of the LED states.
func (l *LEDBank) States() []bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.copyLocked()
}

// Toggle flips one LED, counted from zero.
func (l *LEDBank) Toggle(i int) (bool, error) {
	if i < 0 || i >= len(l.leds) {
		return false, errors.New().WithData(ErrOutOfRange, fmt.Sprintf("led %d", i))
	}

	l.mu.Lock()
	l.leds[i] = !l.leds[i]
	on := l.leds[i]
	states := l.copyLocked()
	l.mu.Unlock()

	l.log.Debug().Int("led", i+1).Bool("on", on).Msg("LED toggled")
	l.changes.Notify(states)

	return on, nil
}

// ToggleAll turns every LED off when all are on, otherwise turns all on.
func (l *LEDBank) ToggleAll() bool {
	l.mu.Lock()
	on := !l.allOnLocked()
	for i := range l.leds {
		l.leds[i] = on
	}
	states := l.copyLocked()
	l.mu.Unlock()

	l.log.Debug().Bool("on", on).Msg("All LEDs toggled")
	l.changes.Notify(states)

	return on
}

// AllOn reports whether every LED is lit.
func (l *LEDBank) AllOn() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.allOnLocked()
}

func (l *LEDBank) Subscribe(fn func([]bool)) func() {
	return l.changes.Subscribe(fn)
}

func (l *LEDBank) allOnLocked() bool {
	for _, on := range l.leds {
		if !on {
			return false
		}
	}

	return true
}

func (l *LEDBank) copyLocked() []bool {
	out := make([]bool, len(l.leds))
	copy(out, l.leds)

	return out
}
