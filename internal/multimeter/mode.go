package multimeter

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/labdash/internal/errors"
)

type Mode string

const (
	DCV Mode = "DCV"
	ACV Mode = "ACV"
	DCA Mode = "DCA"
	ACA Mode = "ACA"
	OHM Mode = "OHM"
)

// Modes lists every mode in front panel order.
var Modes = []Mode{DCV, ACV, DCA, ACA, OHM}

type modeSpec struct {
	noise float64
	unit  string
}

var modeSpecs = map[Mode]modeSpec{
	DCV: {noise: 0.01, unit: "V"},
	ACV: {noise: 0.05, unit: "V"},
	DCA: {noise: 0.005, unit: "A"},
	ACA: {noise: 0.01, unit: "A"},
	OHM: {noise: 5, unit: "Ω"},
}

// ParseMode accepts a mode name in any case.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", errors.New().WithData(ErrInvalidMode, s)
	}

	return m, nil
}

func (m Mode) Valid() bool {
	_, ok := modeSpecs[m]
	return ok
}

// Noise returns the half width of the per tick noise.
func (m Mode) Noise() float64 {
	return modeSpecs[m].noise
}

func (m Mode) Unit() string {
	return modeSpecs[m].unit
}

// Format renders v the way the front panel shows it in mode m.
func Format(m Mode, v float64) string {
	switch m {
	case DCV, ACV, DCA, ACA:
		return fmt.Sprintf("%.3f %s", v, m.Unit())
	case OHM:
		switch {
		case v >= 1e6:
			return fmt.Sprintf("%.2f MΩ", v/1e6)
		case v >= 1e3:
			return fmt.Sprintf("%.2f kΩ", v/1e3)
		default:
			return fmt.Sprintf("%.1f Ω", v)
		}
	default:
		return fmt.Sprint(v)
	}
}
