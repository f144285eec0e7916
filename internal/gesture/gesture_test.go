package gesture_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/labdash/internal/gesture"
	"codeberg.org/mutker/labdash/internal/random"
	"codeberg.org/mutker/labdash/internal/sched"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickWithoutTrigger(t *testing.T) {
	g := gesture.New(gesture.DefaultConfig(), random.NewSequence(0.5))

	kind, ok := g.Tick()
	assert.False(t, ok)
	assert.Equal(t, gesture.None, kind)
	assert.False(t, g.Active())
}

func TestTickTriggersUniformCategory(t *testing.T) {
	cases := []struct {
		draw float64
		want gesture.Kind
	}{
		{0, gesture.Left},
		{0.2, gesture.Right},
		{0.34, gesture.Up},
		{0.5, gesture.Down},
		{0.67, gesture.Forward},
		{0.99, gesture.Backward},
	}

	for _, tc := range cases {
		t.Run(string(tc.want), func(t *testing.T) {
			g := gesture.New(gesture.DefaultConfig(), random.NewSequence(0.9, tc.draw))

			kind, ok := g.Tick()
			require.True(t, ok)
			assert.Equal(t, tc.want, kind)
			assert.Equal(t, tc.want, g.Current())
		})
	}
}

func TestNeverTriggersIdle(t *testing.T) {
	g := gesture.New(gesture.Config{Interval: time.Second, Hold: time.Second, Chance: 1}, random.New(11))

	for i := 0; i < 1000; i++ {
		kind, ok := g.Tick()
		require.True(t, ok)
		require.NotEqual(t, gesture.None, kind)
	}
}

func TestResetAfterHold(t *testing.T) {
	mock := clock.NewMock()
	s := sched.New(mock)
	defer s.Close()
	group := s.Group()

	g := gesture.New(gesture.DefaultConfig(), random.NewSequence(0.9, 0))
	changes := make(chan gesture.Kind, 8)
	g.Subscribe(func(k gesture.Kind) { changes <- k })
	g.Start(group)

	mock.Add(3 * time.Second)
	assert.Equal(t, gesture.Left, receive(t, changes))

	mock.Add(2 * time.Second)
	assert.Equal(t, gesture.None, receive(t, changes))
	assert.False(t, g.Active())
}

func TestOverlappingTriggersStillEndIdle(t *testing.T) {
	mock := clock.NewMock()
	s := sched.New(mock)
	defer s.Close()
	group := s.Group()

	cfg := gesture.Config{Interval: time.Second, Hold: 1500 * time.Millisecond, Chance: 0.2}
	g := gesture.New(cfg, random.NewSequence(0.9, 0, 0.9, 0.5, 0.1))
	changes := make(chan gesture.Kind, 8)
	g.Subscribe(func(k gesture.Kind) { changes <- k })
	g.Start(group)

	mock.Add(time.Second)
	assert.Equal(t, gesture.Left, receive(t, changes))
	mock.Add(time.Second)
	assert.Equal(t, gesture.Down, receive(t, changes))

	// first reset lands while the second gesture is showing
	mock.Add(500 * time.Millisecond)
	assert.Equal(t, gesture.None, receive(t, changes))

	group.Close()
	assert.Equal(t, gesture.None, g.Current())
}

func receive(t *testing.T, ch <-chan gesture.Kind) gesture.Kind {
	t.Helper()
	select {
	case k := <-ch:
		return k
	case <-time.After(time.Second):
		t.Fatal("no gesture change")
		return ""
	}
}
