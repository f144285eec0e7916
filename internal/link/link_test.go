package link_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/labdash/internal/link"
	"codeberg.org/mutker/labdash/internal/random"
	"codeberg.org/mutker/labdash/internal/sched"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartsConnected(t *testing.T) {
	s := link.New(link.DefaultConfig(), random.New(1))
	assert.True(t, s.Connected())
	assert.Zero(t, s.Drops())
}

func TestTickDropChance(t *testing.T) {
	tests := []struct {
		name string
		draw float64
		drop bool
	}{
		{"below threshold", 0.5, false},
		{"just below threshold", 0.94, false},
		{"above threshold", 0.96, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := link.New(link.DefaultConfig(), random.NewSequence(tt.draw))

			assert.Equal(t, tt.drop, s.Tick())
			assert.Equal(t, !tt.drop, s.Connected())
		})
	}
}

func TestRecoversAfterDelay(t *testing.T) {
	mock := clock.NewMock()
	s := sched.New(mock)
	defer s.Close()

	st := link.New(link.DefaultConfig(), random.NewSequence(0.99))
	changes := make(chan bool, 4)
	st.Subscribe(func(c bool) { changes <- c })
	st.Start(s.Group())

	mock.Add(10 * time.Second)
	assert.False(t, receive(t, changes))
	assert.Equal(t, 1, st.Drops())

	mock.Add(time.Second)
	assert.False(t, st.Connected())

	mock.Add(time.Second)
	assert.True(t, receive(t, changes))
	assert.True(t, st.Connected())
}

func TestNoCallbacksAfterGroupClose(t *testing.T) {
	mock := clock.NewMock()
	s := sched.New(mock)
	defer s.Close()
	group := s.Group()

	st := link.New(link.DefaultConfig(), random.NewSequence(0.99))
	st.Start(group)
	group.Close()

	mock.Add(time.Minute)
	assert.Never(t, func() bool { return !st.Connected() }, 50*time.Millisecond, 5*time.Millisecond)
	require.Zero(t, st.Drops())
}

func receive(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("no link change")
		return false
	}
}
