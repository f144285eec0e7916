package bench

import (
	"codeberg.org/mutker/labdash/internal/errors"
	"codeberg.org/mutker/labdash/internal/gpio"
	"codeberg.org/mutker/labdash/internal/multimeter"
	"codeberg.org/mutker/labdash/internal/scope"
	"codeberg.org/mutker/labdash/internal/siggen"
)

// Front panel inputs. Each runs between two callbacks so an input never
// interleaves with a tick of the instrument it changes.

func (b *Bench) SetMultimeterMode(mode string) error {
	m, err := multimeter.ParseMode(mode)
	if err != nil {
		return err
	}

	return b.do("multimeter.mode", func() error { return b.Multimeter.SetMode(m) })
}

func (b *Bench) SetSupplyVoltage(v float64) error {
	return b.do("supply.voltage", func() error { return b.Supply.SetVoltage(v) })
}

func (b *Bench) SetSupplyCurrentLimit(a float64) error {
	return b.do("supply.current_limit", func() error { return b.Supply.SetCurrentLimit(a) })
}

func (b *Bench) SetSupplyEnabled(on bool) error {
	return b.do("supply.enabled", func() error {
		b.Supply.SetEnabled(on)
		return nil
	})
}

// UpdateSignalGenerator edits the generator settings in place.
func (b *Bench) UpdateSignalGenerator(fn func(*siggen.Settings)) error {
	return b.do("siggen.update", func() error { return b.SigGen.Update(fn) })
}

// UpdateScope edits the oscilloscope settings in place.
func (b *Bench) UpdateScope(fn func(*scope.Settings)) error {
	return b.do("scope.update", func() error { return b.Scope.Update(fn) })
}

func (b *Bench) SetScopeRunning(on bool) error {
	return b.do("scope.running", func() error {
		b.Scope.SetRunning(on)
		return nil
	})
}

func (b *Bench) ToggleGPIOMode(pin int) (gpio.Mode, error) {
	var mode gpio.Mode
	err := b.do("gpio.mode", func() error {
		var err error
		mode, err = b.Board.ToggleMode(pin)
		return err
	})

	return mode, err
}

func (b *Bench) ToggleGPIOOutput(pin int) (bool, error) {
	var level bool
	err := b.do("gpio.output", func() error {
		var err error
		level, err = b.Board.ToggleOutput(pin)
		return err
	})

	return level, err
}

func (b *Bench) ToggleLED(i int) (bool, error) {
	var on bool
	err := b.do("leds.toggle", func() error {
		var err error
		on, err = b.LEDs.Toggle(i)
		return err
	})

	return on, err
}

func (b *Bench) ToggleAllLEDs() (bool, error) {
	var on bool
	err := b.do("leds.toggle_all", func() error {
		on = b.LEDs.ToggleAll()
		return nil
	})

	return on, err
}

func (b *Bench) do(op string, fn func() error) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return errors.New().New(ErrClosed)
	}

	var err error
	b.sched.Do(func() { err = fn() })

	if err != nil {
		b.log.Debug().Err(err).Str("operation", op).Msg("Control rejected")
		return err
	}
	b.log.Debug().Str("operation", op).Msg("Control applied")

	return nil
}
