package bench_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/labdash/internal/bench"
	"codeberg.org/mutker/labdash/internal/config"
	"codeberg.org/mutker/labdash/internal/errors"
	"codeberg.org/mutker/labdash/internal/gpio"
	"codeberg.org/mutker/labdash/internal/logger"
	"codeberg.org/mutker/labdash/internal/multimeter"
	"codeberg.org/mutker/labdash/internal/random"
	"codeberg.org/mutker/labdash/internal/scope"
	"codeberg.org/mutker/labdash/internal/siggen"
	"codeberg.org/mutker/labdash/internal/telemetry"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBench(t *testing.T) (*bench.Bench, *clock.Mock) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Seed = 42
	mock := clock.NewMock()

	b, err := bench.New(cfg,
		bench.WithClock(mock),
		bench.WithSource(random.New(7)),
		bench.WithLogger(logger.Nop()),
	)
	require.NoError(t, err)
	t.Cleanup(b.Close)

	return b, mock
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Instruments.ScopeSamples = 0

	_, err := bench.New(cfg, bench.WithLogger(logger.Nop()))
	require.Error(t, err)
	assert.Equal(t, bench.ErrInitBench, errors.CodeOf(err))
}

func TestIdentityIsSeeded(t *testing.T) {
	a, err := bench.NewIdentity(42)
	require.NoError(t, err)
	b, err := bench.NewIdentity(42)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Regexp(t, `^LD-\d{4}-\d{4}$`, a.Serial)
	assert.NotEmpty(t, a.MacAddress)
	assert.NotEmpty(t, a.Firmware)
	assert.Contains(t, a.Location, ", ")
}

func TestStartAndClose(t *testing.T) {
	b, mock := newBench(t)
	require.Zero(t, b.Pending())

	require.NoError(t, b.Start())
	require.NoError(t, b.Start())
	assert.Equal(t, 10, b.Pending())

	mock.Add(time.Second)
	require.Eventually(t, func() bool { return b.Synth.Seq() > 0 }, time.Second, 5*time.Millisecond)

	b.Close()
	assert.Zero(t, b.Pending())

	seq := b.Synth.Seq()
	mock.Add(time.Second)
	assert.Never(t, func() bool { return b.Synth.Seq() != seq }, 50*time.Millisecond, 5*time.Millisecond)

	require.Error(t, b.Start())
	err := b.SetSupplyEnabled(true)
	require.Error(t, err)
	assert.Equal(t, bench.ErrClosed, errors.CodeOf(err))
}

func TestSnapshot(t *testing.T) {
	b, _ := newBench(t)

	first := b.Snapshot()
	second := b.Snapshot()
	assert.Equal(t, first.Seq+1, second.Seq)

	_, err := uuid.Parse(first.Session)
	require.NoError(t, err)
	assert.Equal(t, b.Identity(), first.Bench)

	assert.Equal(t, 25.0, first.Sensors.Temperature.Value)
	assert.Equal(t, []float64{25}, first.Sensors.TemperatureHistory)
	assert.Equal(t, multimeter.DCV, first.Multimeter.Mode)
	assert.Zero(t, first.Supply.ActualVoltage)
	assert.Len(t, first.GPIO, len(gpio.Header))
	assert.Len(t, first.LEDs, 9)
	assert.True(t, first.Connected)
	assert.Equal(t, "1.000 kHz", first.SigGen.FrequencyDisplay)
	assert.Equal(t, "N/A", first.Scope.Readout.Frequency)

	data, err := json.Marshal(first)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"session", "bench", "sensors", "multimeter", "power_supply", "signal_generator", "oscilloscope", "gpio", "leds", "connected"} {
		assert.Contains(t, decoded, key)
	}
}

func TestScopeMeasurementAfterFrame(t *testing.T) {
	b, _ := newBench(t)
	b.Synth.Tick()

	snap := b.Snapshot()
	require.True(t, snap.Scope.Measurement.PeakToPeak.Valid)
	assert.NotEqual(t, "N/A", snap.Scope.Readout.PeakToPeak)

	frame := b.Frame()
	assert.Len(t, frame.Samples, 200)
	assert.Equal(t, uint64(1), frame.Seq)
}

func TestControls(t *testing.T) {
	b, _ := newBench(t)

	for i := 0; i < 5; i++ {
		b.Multimeter.Tick()
	}
	require.NoError(t, b.SetMultimeterMode("ohm"))
	r := b.Multimeter.Reading()
	assert.Equal(t, multimeter.OHM, r.Mode)
	assert.Equal(t, 5.0, r.Value)

	err := b.SetMultimeterMode("farad")
	require.Error(t, err)
	assert.Equal(t, multimeter.ErrInvalidMode, errors.CodeOf(err))

	require.NoError(t, b.SetSupplyVoltage(9))
	require.NoError(t, b.SetSupplyEnabled(true))
	assert.Equal(t, 9.0, b.Supply.State().ActualVoltage)
	require.Error(t, b.SetSupplyCurrentLimit(4))

	require.NoError(t, b.UpdateSignalGenerator(func(s *siggen.Settings) { s.Frequency = 2e6 }))
	assert.Equal(t, 2e6, b.SigGen.Settings().Frequency)

	require.NoError(t, b.UpdateScope(func(s *scope.Settings) { s.TimePerDiv = 10 }))
	assert.Equal(t, 20.0, b.Synth.Params().Frequency)
	require.NoError(t, b.SetScopeRunning(false))
	assert.False(t, b.Scope.Settings().Running)

	mode, err := b.ToggleGPIOMode(13)
	require.NoError(t, err)
	assert.Equal(t, gpio.Output, mode)
	level, err := b.ToggleGPIOOutput(13)
	require.NoError(t, err)
	assert.True(t, level)
	_, err = b.ToggleGPIOOutput(11)
	require.Error(t, err)

	on, err := b.ToggleLED(0)
	require.NoError(t, err)
	assert.True(t, on)
	on, err = b.ToggleAllLEDs()
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, b.LEDs.AllOn())
}

type recordingSink struct {
	mu     sync.Mutex
	snaps  []*bench.Snapshot
	frames []bench.Frame
	err    error
}

func (*recordingSink) Name() string { return "recording" }

func (s *recordingSink) Publish(_ context.Context, snap *bench.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snaps = append(s.snaps, snap)
	return s.err
}

func (s *recordingSink) PublishFrame(_ context.Context, f bench.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames = append(s.frames, f)
	return nil
}

func (s *recordingSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.snaps), len(s.frames)
}

func TestPublishOnce(t *testing.T) {
	b, _ := newBench(t)
	failing := &recordingSink{err: errors.New().New(errors.ErrPublish)}
	ok := &recordingSink{}
	p := bench.NewPublisher(b, time.Second, failing, ok)

	p.PublishOnce(context.Background())
	snaps, frames := ok.counts()
	assert.Equal(t, 1, snaps)
	assert.Zero(t, frames)

	b.Synth.Tick()
	p.PublishOnce(context.Background())
	p.PublishOnce(context.Background())

	snaps, frames = ok.counts()
	assert.Equal(t, 3, snaps)
	assert.Equal(t, 1, frames)

	snaps, frames = failing.counts()
	assert.Equal(t, 3, snaps)
	assert.Zero(t, frames)
}

func TestPublisherRun(t *testing.T) {
	b, mock := newBench(t)
	sink := &recordingSink{}
	p := bench.NewPublisher(b, 200*time.Millisecond, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		mock.Add(200 * time.Millisecond)
		n, _ := sink.counts()
		return n >= 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop")
	}
}

func TestPublisherRejectsInterval(t *testing.T) {
	b, _ := newBench(t)
	err := bench.NewPublisher(b, 0).Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidInterval, errors.CodeOf(err))
}

func TestTelemetrySink(t *testing.T) {
	b, _ := newBench(t)

	cfg := telemetry.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(t.TempDir(), "telemetry.db")
	cfg.BatchSize = 1

	collector, err := telemetry.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	defer collector.Close()

	p := bench.NewPublisher(b, time.Second, bench.NewTelemetrySink(collector))
	snap := p.PublishOnce(context.Background())

	recs, err := collector.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, snap.Session, recs[0].Session)
	assert.Equal(t, "DCV", recs[0].Multimeter.Mode)
	assert.Equal(t, "none", recs[0].Sensors.Gesture)
}
