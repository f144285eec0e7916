// Package gpio simulates a GPIO header with directional pins and a set of
// inputs that change on their own.
package gpio

import (
	"fmt"
	"sync"
	"time"

	"codeberg.org/mutker/labdash/internal/errors"
	"codeberg.org/mutker/labdash/internal/random"
	"codeberg.org/mutker/labdash/internal/sched"
)

// PinState is one header pin as shown on the front panel. Mode and Level
// are only meaningful for gpio pins.
type PinState struct {
	PinInfo
	Mode  Mode `json:"mode,omitempty"`
	Level bool `json:"level"`
}

type Board struct {
	src      random.Source
	interval time.Duration

	mu      sync.RWMutex
	modes   map[int]Mode
	outputs map[int]bool
	inputs  map[int]bool

	changes sched.Notifier[[]PinState]
}

func NewBoard(src random.Source, interval time.Duration) *Board {
	b := &Board{
		src:      src,
		interval: interval,
		modes:    make(map[int]Mode),
		outputs:  make(map[int]bool),
		inputs:   make(map[int]bool),
	}
	for _, p := range Header {
		if p.Type != GPIO {
			continue
		}
		mode, ok := initialModes[p.Number]
		if !ok {
			mode = Input
		}
		b.modes[p.Number] = mode
	}

	return b
}

// ToggleMode flips a gpio pin between input and output.
func (b *Board) ToggleMode(pin int) (Mode, error) {
	if err := checkGPIO(pin); err != nil {
		return "", err
	}

	b.mu.Lock()
	next := Input
	if b.modes[pin] == Input {
		next = Output
	}
	b.modes[pin] = next
	b.mu.Unlock()

	b.notify()

	return next, nil
}

// SetMode sets the direction of a gpio pin.
func (b *Board) SetMode(pin int, mode Mode) error {
	if err := checkGPIO(pin); err != nil {
		return err
	}
	if !mode.Valid() {
		return errors.New().WithData(ErrInvalidMode, string(mode))
	}

	b.mu.Lock()
	b.modes[pin] = mode
	b.mu.Unlock()

	b.notify()

	return nil
}

// ToggleOutput flips the driven level of an output pin.
func (b *Board) ToggleOutput(pin int) (bool, error) {
	if err := b.checkOutput(pin); err != nil {
		return false, err
	}

	b.mu.Lock()
	b.outputs[pin] = !b.outputs[pin]
	level := b.outputs[pin]
	b.mu.Unlock()

	b.notify()

	return level, nil
}

// SetOutput drives an output pin to level.
func (b *Board) SetOutput(pin int, level bool) error {
	if err := b.checkOutput(pin); err != nil {
		return err
	}

	b.mu.Lock()
	b.outputs[pin] = level
	b.mu.Unlock()

	b.notify()

	return nil
}

// InputLevel returns the simulated level seen on pin.
func (b *Board) InputLevel(pin int) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.inputs[pin]
}

// Pin returns the state of one header pin.
func (b *Board) Pin(n int) (PinState, error) {
	info, ok := lookupPin(n)
	if !ok {
		return PinState{}, pinNotFound(n)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.stateLocked(info), nil
}

// Pins returns every header pin in order.
func (b *Board) Pins() []PinState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.pinsLocked()
}

// Tick sets one simulated input to a random level.
func (b *Board) Tick() (int, bool) {
	pin := SimulatedInputs[random.Index(b.src, 0, len(SimulatedInputs))]
	level := random.Chance(b.src, 0.5)

	b.mu.Lock()
	b.inputs[pin] = level
	b.mu.Unlock()

	b.notify()

	return pin, level
}

func (b *Board) Subscribe(fn func([]PinState)) func() {
	return b.changes.Subscribe(fn)
}

func (b *Board) Start(g *sched.Group) {
	g.Every("gpio.inputs", b.interval, func() { b.Tick() })
}

func (b *Board) checkOutput(pin int) error {
	if err := checkGPIO(pin); err != nil {
		return err
	}

	b.mu.RLock()
	mode := b.modes[pin]
	b.mu.RUnlock()

	if mode != Output {
		return errors.New().WithData(ErrPinNotWritable, fmt.Sprintf("pin %d is %s", pin, mode))
	}

	return nil
}

func (b *Board) notify() {
	b.mu.RLock()
	pins := b.pinsLocked()
	b.mu.RUnlock()

	b.changes.Notify(pins)
}

func (b *Board) pinsLocked() []PinState {
	out := make([]PinState, 0, len(Header))
	for _, info := range Header {
		out = append(out, b.stateLocked(info))
	}

	return out
}

func (b *Board) stateLocked(info PinInfo) PinState {
	st := PinState{PinInfo: info}
	if info.Type != GPIO {
		return st
	}

	st.Mode = b.modes[info.Number]
	if st.Mode == Output {
		st.Level = b.outputs[info.Number]
	} else {
		st.Level = b.inputs[info.Number]
	}

	return st
}

func checkGPIO(pin int) error {
	info, ok := lookupPin(pin)
	if !ok {
		return pinNotFound(pin)
	}
	if info.Type != GPIO {
		return errors.New().WithData(ErrPinNotWritable, fmt.Sprintf("pin %d is %s", pin, info.Type))
	}

	return nil
}

func pinNotFound(pin int) error {
	return errors.New().WithData(ErrPinNotFound, fmt.Sprintf("pin %d", pin))
}
