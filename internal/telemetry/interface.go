package telemetry

import (
	"context"
	"time"

	"codeberg.org/mutker/labdash/internal/waveform"
)

// Collector defines the core domain interface
type Collector interface {
	Record(ctx context.Context, rec *Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Enabled() bool
	Close() error
}

// Repository defines the interface for telemetry data storage
type Repository interface {
	Record(rec *Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// Record is one stored bench snapshot.
type Record struct {
	Timestamp  time.Time
	Session    string
	Sensors    SensorValues
	Multimeter MeterValues
	Supply     SupplyValues
	Scope      waveform.Measurement
	Connected  bool
}

// Domain value objects
type SensorValues struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Light       float64 `json:"light"`
	Distance    float64 `json:"distance"`
	Gesture     string  `json:"gesture"`
}

type MeterValues struct {
	Mode  string  `json:"mode"`
	Value float64 `json:"value"`
}

type SupplyValues struct {
	Enabled  bool    `json:"enabled"`
	Voltage  float64 `json:"voltage"`
	Current  float64 `json:"current"`
	Limiting bool    `json:"limiting"`
}
