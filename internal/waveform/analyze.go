package waveform

import (
	"encoding/json"
	"fmt"
	"math"
)

// Unavailable is how an invalid Quantity renders.
const Unavailable = "N/A"

// Quantity is a derived value that may be unavailable.
type Quantity struct {
	Value float64
	Valid bool
}

func Some(v float64) Quantity {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Quantity{}
	}

	return Quantity{Value: v, Valid: true}
}

// Format renders q with the given decimals and unit, or Unavailable.
func (q Quantity) Format(decimals int, unit string) string {
	if !q.Valid {
		return Unavailable
	}
	if unit == "" {
		return fmt.Sprintf("%.*f", decimals, q.Value)
	}

	return fmt.Sprintf("%.*f %s", decimals, q.Value, unit)
}

func (q Quantity) String() string {
	return q.Format(3, "")
}

// MarshalJSON encodes an unavailable quantity as null.
func (q Quantity) MarshalJSON() ([]byte, error) {
	if !q.Valid {
		return []byte("null"), nil
	}

	return json.Marshal(q.Value)
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*q = Quantity{}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*q = Some(v)

	return nil
}

// Measurement holds the values derived from one frame.
type Measurement struct {
	Frequency     Quantity `json:"frequency"`
	Period        Quantity `json:"period"`
	PeakToPeak    Quantity `json:"peak_to_peak"`
	RMS           Quantity `json:"rms"`
	Average       Quantity `json:"average"`
	ZeroCrossings int      `json:"zero_crossings"`
}

// ZeroCrossings counts sign changes between adjacent samples. Zero counts
// as non-negative.
func ZeroCrossings(buf Buffer) int {
	if len(buf) < 2 {
		return 0
	}

	count := 0
	prev := buf[0]
	for _, cur := range buf[1:] {
		if (prev < 0 && cur >= 0) || (prev >= 0 && cur < 0) {
			count++
		}
		prev = cur
	}

	return count
}

// Analyze derives the measurements of buf. timePerDiv is in milliseconds
// and the frame spans len(buf) divisions of it. Frequency is in Hz, period
// in ms, voltages are scaled by voltsPerDiv. Frames shorter than two
// samples yield a Measurement with every field unavailable.
//
// RMS assumes a sine: it is peak to peak over 2*sqrt(2).
func Analyze(buf Buffer, timePerDiv, voltsPerDiv float64) Measurement {
	if len(buf) < 2 {
		return Measurement{}
	}

	zc := ZeroCrossings(buf)

	lo, hi, sum := buf[0], buf[0], 0.0
	for _, v := range buf {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		sum += v
	}
	pp := hi - lo
	rms := pp / (2 * math.Sqrt2)
	avg := sum / float64(len(buf))

	m := Measurement{
		ZeroCrossings: zc,
		PeakToPeak:    Some(pp * voltsPerDiv),
		RMS:           Some(rms * voltsPerDiv),
		Average:       Some(avg * voltsPerDiv),
	}

	span := float64(len(buf)) * timePerDiv / 1000
	if span > 0 {
		m.Frequency = Some(float64(zc) / 2 / span)
	}
	if m.Frequency.Valid && m.Frequency.Value != 0 {
		m.Period = Some(1000 / m.Frequency.Value)
	}

	return m
}
