// Package siggen holds the signal generator's front panel state. It has no
// timer: its output exists only as the preview trace.
package siggen

import (
	"fmt"
	"math"
	"strconv"
	"sync"

	"codeberg.org/mutker/labdash/internal/errors"
	"codeberg.org/mutker/labdash/internal/sched"
	"codeberg.org/mutker/labdash/internal/waveform"
)

const (
	MaxFrequency = 10_000_000.0
	MaxAmplitude = 5.0
	MaxOffset    = 2.5

	// PreviewCycles is how many periods the preview trace spans.
	PreviewCycles = 3
)

type Settings struct {
	Shape     waveform.Shape `json:"shape"`
	Frequency float64        `json:"frequency"`
	Amplitude float64        `json:"amplitude"`
	Offset    float64        `json:"offset"`
	Enabled   bool           `json:"enabled"`
}

func DefaultSettings() Settings {
	return Settings{
		Shape:     waveform.Sine,
		Frequency: 1000,
		Amplitude: 1,
	}
}

func (s Settings) Validate() error {
	errFactory := errors.New()

	if !s.Shape.Valid() {
		return errFactory.WithData(ErrInvalidMode, string(s.Shape))
	}
	if math.IsNaN(s.Frequency) || s.Frequency < 0 || s.Frequency > MaxFrequency {
		return errFactory.WithData(ErrOutOfRange, fmt.Sprintf("frequency %g", s.Frequency))
	}
	if s.Amplitude < 0 || s.Amplitude > MaxAmplitude {
		return errFactory.WithData(ErrOutOfRange, fmt.Sprintf("amplitude %g", s.Amplitude))
	}
	if s.Offset < -MaxOffset || s.Offset > MaxOffset {
		return errFactory.WithData(ErrOutOfRange, fmt.Sprintf("offset %g", s.Offset))
	}

	return nil
}

type Generator struct {
	mu       sync.RWMutex
	settings Settings

	changes sched.Notifier[Settings]
}

func New() *Generator {
	return &Generator{settings: DefaultSettings()}
}

func (g *Generator) Settings() Settings {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.settings
}

// Apply replaces the settings. On error the previous settings stay.
func (g *Generator) Apply(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}

	g.mu.Lock()
	g.settings = next
	g.mu.Unlock()

	g.changes.Notify(next)

	return nil
}

// Update applies fn to a copy of the current settings.
func (g *Generator) Update(fn func(*Settings)) error {
	next := g.Settings()
	fn(&next)

	return g.Apply(next)
}

func (g *Generator) Subscribe(fn func(Settings)) func() {
	return g.changes.Subscribe(fn)
}

// Preview returns width points of the output over PreviewCycles periods,
// normalized so that full scale is 1.
func (g *Generator) Preview(width int) []float64 {
	return Preview(g.Settings(), width)
}

func Preview(s Settings, width int) []float64 {
	if width <= 0 {
		return nil
	}

	out := make([]float64, width)
	for i := range out {
		t := float64(i) / float64(width) * 2 * math.Pi * PreviewCycles
		out[i] = s.Shape.Sample(t)*s.Amplitude/3 + s.Offset/3
	}

	return out
}

// FormatFrequency renders hz with the largest fitting unit.
func FormatFrequency(hz float64) string {
	switch {
	case hz < 1e3:
		return strconv.FormatFloat(hz, 'f', -1, 64) + " Hz"
	case hz < 1e6:
		return fmt.Sprintf("%.3f kHz", hz/1e3)
	default:
		return fmt.Sprintf("%.3f MHz", hz/1e6)
	}
}
