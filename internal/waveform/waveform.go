// Package waveform synthesizes oscilloscope frames and derives the usual
// scope measurements from them.
package waveform

import (
	"math"

	"codeberg.org/mutker/labdash/internal/random"
)

// FrequencyScale maps the front panel frequency to cycles per frame.
const FrequencyScale = 100.0

// Buffer is one frame of samples. Frames are replaced whole, never edited.
type Buffer []float64

type Params struct {
	Frequency   float64 `json:"frequency"`
	Amplitude   float64 `json:"amplitude"`
	SampleCount int     `json:"sample_count"`
	NoiseLevel  float64 `json:"noise_level"`
}

// Clone returns an independent copy of b.
func (b Buffer) Clone() Buffer {
	if b == nil {
		return nil
	}
	out := make(Buffer, len(b))
	copy(out, b)

	return out
}

// Synthesize builds a noisy sine frame. Sample i sits at phase
// 2*pi*i/SampleCount and is scaled by Frequency/FrequencyScale.
func Synthesize(src random.Source, p Params) Buffer {
	if p.SampleCount <= 0 {
		return Buffer{}
	}

	n := float64(p.SampleCount)
	buf := make(Buffer, p.SampleCount)
	for i := range buf {
		x := float64(i) / n * 2 * math.Pi
		noise := random.Symmetric(src, p.NoiseLevel)
		buf[i] = math.Sin(x*p.Frequency/FrequencyScale)*p.Amplitude + noise
	}

	return buf
}
