package waveform

import (
	"math"
	"strings"

	"codeberg.org/mutker/labdash/internal/errors"
)

// Shape is a signal generator waveform.
type Shape string

const (
	Sine     Shape = "sine"
	Square   Shape = "square"
	Triangle Shape = "triangle"
)

var Shapes = []Shape{Sine, Square, Triangle}

func ParseShape(s string) (Shape, error) {
	sh := Shape(strings.ToLower(strings.TrimSpace(s)))
	if !sh.Valid() {
		return "", errors.New().WithData(errors.ErrInvalidMode, s)
	}

	return sh, nil
}

func (s Shape) Valid() bool {
	switch s {
	case Sine, Square, Triangle:
		return true
	}

	return false
}

// Sample returns the unit amplitude value at phase t radians.
func (s Shape) Sample(t float64) float64 {
	switch s {
	case Sine:
		return math.Sin(t)
	case Square:
		if math.Sin(t) > 0 {
			return 1
		}
		return -1
	case Triangle:
		return math.Abs(math.Mod(t/math.Pi, 2)-1)*2 - 1
	default:
		return 0
	}
}
