package bench

import (
	"time"

	"codeberg.org/mutker/labdash/internal/gesture"
	"codeberg.org/mutker/labdash/internal/gpio"
	"codeberg.org/mutker/labdash/internal/multimeter"
	"codeberg.org/mutker/labdash/internal/powersupply"
	"codeberg.org/mutker/labdash/internal/scope"
	"codeberg.org/mutker/labdash/internal/sensor"
	"codeberg.org/mutker/labdash/internal/siggen"
	"codeberg.org/mutker/labdash/internal/telemetry"
	"codeberg.org/mutker/labdash/internal/waveform"
)

// Snapshot is the combined latest state of the bench.
type Snapshot struct {
	Session    string             `json:"session"`
	Seq        uint64             `json:"seq"`
	Timestamp  time.Time          `json:"timestamp"`
	Bench      Identity           `json:"bench"`
	Sensors    SensorSnapshot     `json:"sensors"`
	Multimeter multimeter.Reading `json:"multimeter"`
	Supply     powersupply.State  `json:"power_supply"`
	SigGen     SigGenSnapshot     `json:"signal_generator"`
	Scope      ScopeSnapshot      `json:"oscilloscope"`
	GPIO       []gpio.PinState    `json:"gpio"`
	LEDs       []bool             `json:"leds"`
	Connected  bool               `json:"connected"`
}

type SensorSnapshot struct {
	Temperature        sensor.Reading `json:"temperature"`
	TemperatureHistory []float64      `json:"temperature_history"`
	Humidity           sensor.Reading `json:"humidity"`
	Light              sensor.Reading `json:"light"`
	Distance           sensor.Reading `json:"distance"`
	Gesture            gesture.Kind   `json:"gesture"`
}

type SigGenSnapshot struct {
	siggen.Settings
	FrequencyDisplay string `json:"frequency_display"`
}

type ScopeSnapshot struct {
	Settings    scope.Settings       `json:"settings"`
	Measurement waveform.Measurement `json:"measurement"`
	Readout     ScopeReadout         `json:"readout"`
	FrameSeq    uint64               `json:"frame_seq"`
}

// ScopeReadout is the measurement panel text.
type ScopeReadout struct {
	Frequency  string `json:"frequency"`
	Period     string `json:"period"`
	PeakToPeak string `json:"peak_to_peak"`
	RMS        string `json:"rms"`
	Average    string `json:"average"`
}

func NewScopeReadout(m waveform.Measurement) ScopeReadout {
	return ScopeReadout{
		Frequency:  m.Frequency.Format(1, "Hz"),
		Period:     m.Period.Format(2, "ms"),
		PeakToPeak: m.PeakToPeak.Format(2, "V"),
		RMS:        m.RMS.Format(2, "V"),
		Average:    m.Average.Format(2, "V"),
	}
}

// Snapshot collects the latest value of every instrument between two
// callbacks. It must not be called from inside a scheduled callback.
func (b *Bench) Snapshot() *Snapshot {
	var snap *Snapshot
	b.sched.Do(func() { snap = b.snapshot() })

	return snap
}

func (b *Bench) snapshot() *Snapshot {
	sg := b.SigGen.Settings()
	m := b.Scope.Measure()

	return &Snapshot{
		Session:   b.session,
		Seq:       b.seq.Add(1),
		Timestamp: b.now(),
		Bench:     b.identity,
		Sensors: SensorSnapshot{
			Temperature:        b.Temperature.Value(),
			TemperatureHistory: b.Temperature.History(),
			Humidity:           b.Humidity.Value(),
			Light:              b.Light.Value(),
			Distance:           b.Distance.Value(),
			Gesture:            b.Gesture.Current(),
		},
		Multimeter: b.Multimeter.Reading(),
		Supply:     b.Supply.State(),
		SigGen: SigGenSnapshot{
			Settings:         sg,
			FrequencyDisplay: siggen.FormatFrequency(sg.Frequency),
		},
		Scope: ScopeSnapshot{
			Settings:    b.Scope.Settings(),
			Measurement: m,
			Readout:     NewScopeReadout(m),
			FrameSeq:    b.Synth.Seq(),
		},
		GPIO:      b.Board.Pins(),
		LEDs:      b.LEDs.States(),
		Connected: b.Link.Connected(),
	}
}

// Record converts the snapshot into a telemetry row.
func (s *Snapshot) Record() *telemetry.Record {
	return &telemetry.Record{
		Timestamp: s.Timestamp,
		Session:   s.Session,
		Sensors: telemetry.SensorValues{
			Temperature: s.Sensors.Temperature.Value,
			Humidity:    s.Sensors.Humidity.Value,
			Light:       s.Sensors.Light.Value,
			Distance:    s.Sensors.Distance.Value,
			Gesture:     string(s.Sensors.Gesture),
		},
		Multimeter: telemetry.MeterValues{
			Mode:  string(s.Multimeter.Mode),
			Value: s.Multimeter.Value,
		},
		Supply: telemetry.SupplyValues{
			Enabled:  s.Supply.Enabled,
			Voltage:  s.Supply.ActualVoltage,
			Current:  s.Supply.ActualCurrent,
			Limiting: s.Supply.Limiting,
		},
		Scope:     s.Scope.Measurement,
		Connected: s.Connected,
	}
}

// Frame is the oscilloscope trace on screen.
type Frame struct {
	Seq         uint64          `json:"seq"`
	TimePerDiv  float64         `json:"time_per_div"`
	VoltsPerDiv float64         `json:"volts_per_div"`
	Running     bool            `json:"running"`
	Samples     waveform.Buffer `json:"samples"`
}

func (b *Bench) Frame() Frame {
	st := b.Scope.Settings()

	return Frame{
		Seq:         b.Synth.Seq(),
		TimePerDiv:  st.TimePerDiv,
		VoltsPerDiv: st.VoltsPerDiv,
		Running:     st.Running,
		Samples:     b.Scope.Display(),
	}
}
