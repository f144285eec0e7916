package stream_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/labdash/internal/bench"
	"codeberg.org/mutker/labdash/internal/config"
	"codeberg.org/mutker/labdash/internal/errors"
	"codeberg.org/mutker/labdash/internal/logger"
	"codeberg.org/mutker/labdash/internal/random"
	"codeberg.org/mutker/labdash/internal/stream"
	"codeberg.org/mutker/labdash/internal/telemetry"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, history telemetry.Collector) (*stream.Server, *bench.Bench) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Seed = 42

	b, err := bench.New(cfg,
		bench.WithClock(clock.NewMock()),
		bench.WithSource(random.New(7)),
		bench.WithLogger(logger.Nop()),
	)
	require.NoError(t, err)
	t.Cleanup(b.Close)

	return stream.NewServer(b, stream.NewHub(logger.Nop()), history, logger.Nop()), b
}

func call(t *testing.T, srv http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}

	return rec, out
}

func errorCode(body map[string]any) string {
	e, ok := body["error"].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := e["code"].(string)

	return code
}

func TestGetSnapshot(t *testing.T) {
	srv, b := newServer(t, nil)

	rec, body := call(t, srv, http.MethodGet, "/api/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, b.Session(), body["session"])
	assert.Contains(t, body, "oscilloscope")
	assert.Contains(t, body, "gpio")
}

func TestGetFrame(t *testing.T) {
	srv, _ := newServer(t, nil)

	rec, body := call(t, srv, http.MethodGet, "/api/scope/frame", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["time_per_div"])
	assert.Equal(t, true, body["running"])
}

func TestGetPreview(t *testing.T) {
	srv, _ := newServer(t, nil)

	rec, body := call(t, srv, http.MethodGet, "/api/siggen/preview?width=30", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["points"], 30)

	rec, body = call(t, srv, http.MethodGet, "/api/siggen/preview?width=1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(errors.ErrInvalidArgument), errorCode(body))
}

func TestControlMultimeter(t *testing.T) {
	srv, b := newServer(t, nil)

	rec, body := call(t, srv, http.MethodPost, "/api/control/multimeter", `{"mode":"ohm"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OHM", body["mode"])
	assert.Equal(t, 5.0, body["value"])
	assert.Equal(t, "OHM", string(b.Multimeter.Mode()))

	rec, body = call(t, srv, http.MethodPost, "/api/control/multimeter", `{"mode":"hz"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(errors.ErrInvalidMode), errorCode(body))
}

func TestControlSupply(t *testing.T) {
	srv, b := newServer(t, nil)

	rec, body := call(t, srv, http.MethodPost, "/api/control/supply", `{"voltage":20}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(errors.ErrOutOfRange), errorCode(body))

	rec, _ = call(t, srv, http.MethodPost, "/api/control/supply", `{"voltage":3.3,"current_limit":0.5,"enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	st := b.Supply.State()
	assert.Equal(t, 3.3, st.TargetVoltage)
	assert.Equal(t, 0.5, st.CurrentLimit)
	assert.True(t, st.Enabled)
	assert.Equal(t, 3.3, st.ActualVoltage)
}

func TestControlSigGen(t *testing.T) {
	srv, b := newServer(t, nil)

	rec, _ := call(t, srv, http.MethodPost, "/api/control/siggen", `{"shape":"square","frequency":5000,"enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	st := b.SigGen.Settings()
	assert.Equal(t, "square", string(st.Shape))
	assert.Equal(t, 5000.0, st.Frequency)
	assert.True(t, st.Enabled)

	rec, body := call(t, srv, http.MethodPost, "/api/control/siggen", `{"frequency":2e7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(errors.ErrOutOfRange), errorCode(body))
	assert.Equal(t, 5000.0, b.SigGen.Settings().Frequency)

	rec, _ = call(t, srv, http.MethodPost, "/api/control/siggen", `{"shape":"sawtooth"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestControlScope(t *testing.T) {
	srv, b := newServer(t, nil)

	rec, _ := call(t, srv, http.MethodPost, "/api/control/scope", `{"time_per_div":0.5,"trigger_mode":"normal","running":false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	st := b.Scope.Settings()
	assert.Equal(t, 0.5, st.TimePerDiv)
	assert.Equal(t, "normal", string(st.TriggerMode))
	assert.False(t, st.Running)

	rec, _ = call(t, srv, http.MethodPost, "/api/control/scope", `{"time_per_div":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0.5, b.Scope.Settings().TimePerDiv)

	rec, body := call(t, srv, http.MethodPost, "/api/control/scope", `{"trigger_edge":"both"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(errors.ErrInvalidMode), errorCode(body))
}

func TestControlGPIO(t *testing.T) {
	srv, _ := newServer(t, nil)

	tests := []struct {
		name   string
		path   string
		status int
		code   errors.ErrorCode
	}{
		{"output pin toggles", "/api/control/gpio/16/output", http.StatusOK, ""},
		{"input pin is not writable", "/api/control/gpio/11/output", http.StatusConflict, errors.ErrPinNotWritable},
		{"power pin has no mode", "/api/control/gpio/1/mode", http.StatusConflict, errors.ErrPinNotWritable},
		{"unknown pin", "/api/control/gpio/99/mode", http.StatusNotFound, errors.ErrResourceNotFound},
		{"malformed pin", "/api/control/gpio/abc/mode", http.StatusBadRequest, errors.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := call(t, srv, http.MethodPost, tt.path, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, string(tt.code), errorCode(body))
		})
	}

	rec, body := call(t, srv, http.MethodPost, "/api/control/gpio/11/mode", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "output", body["mode"])
}

func TestControlLEDs(t *testing.T) {
	srv, b := newServer(t, nil)

	rec, body := call(t, srv, http.MethodPost, "/api/control/leds/0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["on"])

	rec, body = call(t, srv, http.MethodPost, "/api/control/leds/9", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(errors.ErrOutOfRange), errorCode(body))

	rec, body = call(t, srv, http.MethodPost, "/api/control/leds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["on"])
	assert.True(t, b.LEDs.AllOn())
}

func TestControlRejectsBadBody(t *testing.T) {
	srv, _ := newServer(t, nil)

	rec, body := call(t, srv, http.MethodPost, "/api/control/supply", `{"volts":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(errors.ErrInvalidArgument), errorCode(body))

	rec, _ = call(t, srv, http.MethodPost, "/api/control/multimeter", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = call(t, srv, http.MethodGet, "/api/control/multimeter", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestControlAfterClose(t *testing.T) {
	srv, b := newServer(t, nil)
	b.Close()

	rec, body := call(t, srv, http.MethodPost, "/api/control/leds", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, string(bench.ErrClosed), errorCode(body))
}

func TestHistory(t *testing.T) {
	srv, _ := newServer(t, nil)
	rec, body := call(t, srv, http.MethodGet, "/api/history", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, string(errors.ErrUnavailable), errorCode(body))

	cfg := telemetry.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(t.TempDir(), "telemetry.db")
	cfg.BatchSize = 1

	collector, err := telemetry.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	defer collector.Close()

	srv, b := newServer(t, collector)
	p := bench.NewPublisher(b, time.Second, bench.NewTelemetrySink(collector))
	p.PublishOnce(context.Background())
	p.PublishOnce(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/api/history?limit=1", nil)
	resp := httptest.NewRecorder()
	srv.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, b.Session(), entries[0]["session"])

	rec, _ = call(t, srv, http.MethodGet, "/api/history?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, stream.StatusOf(errors.ErrOutOfRange))
	assert.Equal(t, http.StatusNotFound, stream.StatusOf(errors.ErrResourceNotFound))
	assert.Equal(t, http.StatusServiceUnavailable, stream.StatusOf(bench.ErrClosed))
	assert.Equal(t, http.StatusInternalServerError, stream.StatusOf(errors.ErrRecordTelemetry))
}
