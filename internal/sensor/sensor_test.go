package sensor_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/labdash/internal/random"
	"codeberg.org/mutker/labdash/internal/sched"
	"codeberg.org/mutker/labdash/internal/sensor"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStep(t *testing.T) {
	delta := sensor.Range{Lo: -2, Hi: 2}
	bounds := sensor.Bounds{Min: 10, Max: 100}

	t.Run("accepts step inside bounds", func(t *testing.T) {
		got := sensor.Step(random.NewSequence(0.75), 50, delta, bounds)
		assert.InDelta(t, 51, got, 1e-9)
	})

	t.Run("rejects step below min", func(t *testing.T) {
		got := sensor.Step(random.NewSequence(0), 11, delta, bounds)
		assert.Equal(t, 11.0, got)
	})

	t.Run("rejects step landing exactly on bound", func(t *testing.T) {
		got := sensor.Step(random.NewSequence(0.25), 11, delta, bounds)
		assert.Equal(t, 11.0, got, "bounds are exclusive")
	})

	t.Run("rejects step above max", func(t *testing.T) {
		got := sensor.Step(random.NewSequence(0.99), 99.5, delta, bounds)
		assert.Equal(t, 99.5, got)
	})
}

func TestWalkNeverEscapesBounds(t *testing.T) {
	specs := []sensor.Spec{
		sensor.TemperatureSpec(time.Second, 60),
		sensor.HumiditySpec(time.Second),
		sensor.LightSpec(500 * time.Millisecond),
		sensor.DistanceSpec(200 * time.Millisecond),
	}

	for _, spec := range specs {
		t.Run(spec.Name, func(t *testing.T) {
			ch := sensor.NewChannel(spec, random.New(7))
			for i := 0; i < 20000; i++ {
				v := ch.Tick().Value
				require.Truef(t, spec.Bounds.Contains(v), "step %d escaped bounds: %f", i, v)
			}
		})
	}
}

func TestTemperatureHistoryWindow(t *testing.T) {
	ch := sensor.NewChannel(sensor.TemperatureSpec(time.Second, 60), random.New(3))
	assert.Equal(t, []float64{25}, ch.History())

	var last float64
	for i := 0; i < 100; i++ {
		last = ch.Tick().Value
	}

	history := ch.History()
	require.Len(t, history, 60)
	assert.Equal(t, last, history[len(history)-1])

	history[0] = -1
	assert.NotEqual(t, -1.0, ch.History()[0], "History returns a copy")
}

func TestChannelWithoutHistory(t *testing.T) {
	ch := sensor.NewChannel(sensor.HumiditySpec(time.Second), random.New(3))
	ch.Tick()
	assert.Empty(t, ch.History())
}

func TestSubscribe(t *testing.T) {
	ch := sensor.NewChannel(sensor.LightSpec(time.Second), random.NewSequence(0.75))

	var got []sensor.Reading
	cancel := ch.Subscribe(func(r sensor.Reading) { got = append(got, r) })

	ch.Tick()
	cancel()
	ch.Tick()

	require.Len(t, got, 1)
	assert.Equal(t, sensor.Light, got[0].Channel)
	assert.Equal(t, "lux", got[0].Unit)
	assert.InDelta(t, 505, got[0].Value, 1e-9)
}

func TestChannelRunsOnScheduler(t *testing.T) {
	mock := clock.NewMock()
	s := sched.New(mock)
	defer s.Close()
	g := s.Group()

	ch := sensor.NewChannel(sensor.DistanceSpec(200*time.Millisecond), random.NewSequence(0.75))
	ticks := make(chan sensor.Reading, 16)
	ch.Subscribe(func(r sensor.Reading) { ticks <- r })
	ch.Start(g)

	mock.Add(200 * time.Millisecond)
	select {
	case r := <-ticks:
		assert.InDelta(t, 51, r.Value, 1e-9)
		assert.Equal(t, mock.Now(), r.At)
	case <-time.After(time.Second):
		t.Fatal("channel did not tick")
	}

	g.Close()
	mock.Add(time.Second)
	select {
	case <-ticks:
		t.Fatal("channel ticked after its group was closed")
	case <-time.After(20 * time.Millisecond):
	}
	assert.InDelta(t, 51, ch.Value().Value, 1e-9)
}
