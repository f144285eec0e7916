package stream_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/labdash/internal/bench"
	"codeberg.org/mutker/labdash/internal/logger"
	"codeberg.org/mutker/labdash/internal/stream"
	"codeberg.org/mutker/labdash/internal/waveform"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *stream.Hub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestHubBroadcast(t *testing.T) {
	hub := stream.NewHub(logger.Nop())
	conn := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, &bench.Snapshot{Session: "s-1", Seq: 4}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)

	var got struct {
		Session string `json:"session"`
		Seq     uint64 `json:"seq"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "s-1", got.Session)
	assert.Equal(t, uint64(4), got.Seq)

	require.NoError(t, hub.PublishFrame(ctx, bench.Frame{Samples: waveform.Buffer{0.5, -0.5}}))

	kind, data, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	samples, err := stream.DecodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, waveform.Buffer{0.5, -0.5}, samples)
}

func TestHubDropsClosedClients(t *testing.T) {
	hub := stream.NewHub(logger.Nop())
	conn := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 5*time.Millisecond)

	assert.NoError(t, hub.Publish(context.Background(), &bench.Snapshot{}))
}

func TestHubClose(t *testing.T) {
	hub := stream.NewHub(logger.Nop())
	conn := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	hub.Close()
	assert.Zero(t, hub.Len())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
