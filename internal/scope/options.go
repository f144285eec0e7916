package scope

// Option is one front panel selector entry.
type Option struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Timebases lists the time per division choices in milliseconds.
var Timebases = []Option{
	{"5μs", 0.005},
	{"10μs", 0.01},
	{"50μs", 0.05},
	{"100μs", 0.1},
	{"500μs", 0.5},
	{"1ms", 1},
	{"5ms", 5},
	{"10ms", 10},
	{"50ms", 50},
	{"100ms", 100},
}

// VoltScales lists the volts per division choices.
var VoltScales = []Option{
	{"10mV", 0.01},
	{"20mV", 0.02},
	{"50mV", 0.05},
	{"100mV", 0.1},
	{"200mV", 0.2},
	{"500mV", 0.5},
	{"1V", 1},
	{"2V", 2},
	{"5V", 5},
}

func lookup(opts []Option, v float64) (Option, bool) {
	for _, o := range opts {
		if o.Value == v {
			return o, true
		}
	}

	return Option{}, false
}

type TriggerMode string

const (
	TriggerAuto   TriggerMode = "auto"
	TriggerNormal TriggerMode = "normal"
	TriggerSingle TriggerMode = "single"
)

func (m TriggerMode) Valid() bool {
	switch m {
	case TriggerAuto, TriggerNormal, TriggerSingle:
		return true
	}

	return false
}

type Edge string

const (
	Rising  Edge = "rising"
	Falling Edge = "falling"
)

func (e Edge) Valid() bool {
	return e == Rising || e == Falling
}

// MaxTriggerLevel bounds the trigger level in divisions.
const MaxTriggerLevel = 4.0
