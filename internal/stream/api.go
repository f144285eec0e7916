package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/mutker/labdash/internal/bench"
	"codeberg.org/mutker/labdash/internal/errors"
	"codeberg.org/mutker/labdash/internal/logger"
	"codeberg.org/mutker/labdash/internal/scope"
	"codeberg.org/mutker/labdash/internal/siggen"
	"codeberg.org/mutker/labdash/internal/telemetry"
	"codeberg.org/mutker/labdash/internal/waveform"
)

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
	DefaultPreviewWidth = 100
	MaxPreviewWidth     = 1000
	shutdownTimeout     = 5 * time.Second
)

// Server exposes the bench over HTTP: read endpoints for the latest
// state, control endpoints for the front panel inputs and the websocket
// feed on /ws.
type Server struct {
	bench   *bench.Bench
	hub     *Hub
	history telemetry.Collector
	log     logger.Logger
	mux     *http.ServeMux
}

// NewServer wires the routes. hub and history may be nil.
func NewServer(b *bench.Bench, hub *Hub, history telemetry.Collector, log logger.Logger) *Server {
	s := &Server{
		bench:   b,
		hub:     hub,
		history: history,
		log:     log.With("http"),
		mux:     http.NewServeMux(),
	}

	s.handle("GET /api/snapshot", s.getSnapshot)
	s.handle("GET /api/scope/frame", s.getFrame)
	s.handle("GET /api/siggen/preview", s.getPreview)
	s.handle("GET /api/history", s.getHistory)

	s.handle("POST /api/control/multimeter", s.postMultimeter)
	s.handle("POST /api/control/supply", s.postSupply)
	s.handle("POST /api/control/siggen", s.postSigGen)
	s.handle("POST /api/control/scope", s.postScope)
	s.handle("POST /api/control/gpio/{pin}/mode", s.postGPIOMode)
	s.handle("POST /api/control/gpio/{pin}/output", s.postGPIOOutput)
	s.handle("POST /api/control/leds/{index}", s.postLED)
	s.handle("POST /api/control/leds", s.postAllLEDs)

	if hub != nil {
		s.mux.Handle("GET /ws", hub)
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.New().Wrap(ErrServe, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.New().Wrap(ErrServe, err)
	}
	s.log.Info().Msg("HTTP server stopped")

	return nil
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Server) handle(pattern string, fn handlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		err := fn(w, r)
		if err != nil {
			s.writeError(w, r, err)
		}
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Bool("ok", err == nil).
			Msg("Request handled")
	})
}

func (s *Server) getSnapshot(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, http.StatusOK, s.bench.Snapshot())
}

func (s *Server) getFrame(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, http.StatusOK, s.bench.Frame())
}

func (s *Server) getPreview(w http.ResponseWriter, r *http.Request) error {
	width, err := queryInt(r, "width", DefaultPreviewWidth)
	if err != nil {
		return err
	}
	if width < 2 || width > MaxPreviewWidth {
		return errors.New().WithData(ErrInvalidArgument, fmt.Sprintf("width %d", width))
	}

	return writeJSON(w, http.StatusOK, map[string]any{
		"settings": s.bench.SigGen.Settings(),
		"points":   s.bench.SigGen.Preview(width),
	})
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) error {
	if s.history == nil || !s.history.Enabled() {
		return errors.New().WithMessage(ErrUnavailable, "telemetry is disabled")
	}

	limit, err := queryInt(r, "limit", DefaultHistoryLimit)
	if err != nil {
		return err
	}
	if limit < 1 || limit > MaxHistoryLimit {
		return errors.New().WithData(ErrInvalidArgument, fmt.Sprintf("limit %d", limit))
	}

	records, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		return err
	}

	out := make([]historyEntry, 0, len(records))
	for i := range records {
		out = append(out, newHistoryEntry(&records[i]))
	}

	return writeJSON(w, http.StatusOK, out)
}

type multimeterRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) postMultimeter(w http.ResponseWriter, r *http.Request) error {
	var req multimeterRequest
	if err := decode(w, r, &req); err != nil {
		return err
	}
	if err := s.bench.SetMultimeterMode(req.Mode); err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, s.bench.Multimeter.Reading())
}

type supplyRequest struct {
	Voltage      *float64 `json:"voltage"`
	CurrentLimit *float64 `json:"current_limit"`
	Enabled      *bool    `json:"enabled"`
}

// postSupply applies the fields present in the body in order voltage,
// limit, enable and stops at the first rejected one.
func (s *Server) postSupply(w http.ResponseWriter, r *http.Request) error {
	var req supplyRequest
	if err := decode(w, r, &req); err != nil {
		return err
	}

	if req.Voltage != nil {
		if err := s.bench.SetSupplyVoltage(*req.Voltage); err != nil {
			return err
		}
	}
	if req.CurrentLimit != nil {
		if err := s.bench.SetSupplyCurrentLimit(*req.CurrentLimit); err != nil {
			return err
		}
	}
	if req.Enabled != nil {
		if err := s.bench.SetSupplyEnabled(*req.Enabled); err != nil {
			return err
		}
	}

	return writeJSON(w, http.StatusOK, s.bench.Supply.State())
}

type sigGenRequest struct {
	Shape     *string  `json:"shape"`
	Frequency *float64 `json:"frequency"`
	Amplitude *float64 `json:"amplitude"`
	Offset    *float64 `json:"offset"`
	Enabled   *bool    `json:"enabled"`
}

func (s *Server) postSigGen(w http.ResponseWriter, r *http.Request) error {
	var req sigGenRequest
	if err := decode(w, r, &req); err != nil {
		return err
	}

	var shape waveform.Shape
	if req.Shape != nil {
		var err error
		if shape, err = waveform.ParseShape(*req.Shape); err != nil {
			return err
		}
	}

	err := s.bench.UpdateSignalGenerator(func(st *siggen.Settings) {
		if req.Shape != nil {
			st.Shape = shape
		}
		setIf(&st.Frequency, req.Frequency)
		setIf(&st.Amplitude, req.Amplitude)
		setIf(&st.Offset, req.Offset)
		setIf(&st.Enabled, req.Enabled)
	})
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, s.bench.SigGen.Settings())
}

type scopeRequest struct {
	TimePerDiv   *float64 `json:"time_per_div"`
	VoltsPerDiv  *float64 `json:"volts_per_div"`
	TriggerMode  *string  `json:"trigger_mode"`
	TriggerEdge  *string  `json:"trigger_edge"`
	TriggerLevel *float64 `json:"trigger_level"`
	Running      *bool    `json:"running"`
}

func (s *Server) postScope(w http.ResponseWriter, r *http.Request) error {
	var req scopeRequest
	if err := decode(w, r, &req); err != nil {
		return err
	}

	err := s.bench.UpdateScope(func(st *scope.Settings) {
		setIf(&st.TimePerDiv, req.TimePerDiv)
		setIf(&st.VoltsPerDiv, req.VoltsPerDiv)
		if req.TriggerMode != nil {
			st.TriggerMode = scope.TriggerMode(*req.TriggerMode)
		}
		if req.TriggerEdge != nil {
			st.TriggerEdge = scope.Edge(*req.TriggerEdge)
		}
		setIf(&st.TriggerLevel, req.TriggerLevel)
		setIf(&st.Running, req.Running)
	})
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, s.bench.Scope.Settings())
}

func (s *Server) postGPIOMode(w http.ResponseWriter, r *http.Request) error {
	pin, err := pathInt(r, "pin")
	if err != nil {
		return err
	}

	mode, err := s.bench.ToggleGPIOMode(pin)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, map[string]any{"pin": pin, "mode": mode})
}

func (s *Server) postGPIOOutput(w http.ResponseWriter, r *http.Request) error {
	pin, err := pathInt(r, "pin")
	if err != nil {
		return err
	}

	level, err := s.bench.ToggleGPIOOutput(pin)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, map[string]any{"pin": pin, "level": level})
}

func (s *Server) postLED(w http.ResponseWriter, r *http.Request) error {
	i, err := pathInt(r, "index")
	if err != nil {
		return err
	}

	on, err := s.bench.ToggleLED(i)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, map[string]any{"index": i, "on": on})
}

func (s *Server) postAllLEDs(w http.ResponseWriter, _ *http.Request) error {
	on, err := s.bench.ToggleAllLEDs()
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, map[string]any{"on": on, "leds": s.bench.LEDs.States()})
}

type historyEntry struct {
	Timestamp  time.Time              `json:"timestamp"`
	Session    string                 `json:"session"`
	Sensors    telemetry.SensorValues `json:"sensors"`
	Multimeter telemetry.MeterValues  `json:"multimeter"`
	Supply     telemetry.SupplyValues `json:"power_supply"`
	Scope      waveform.Measurement   `json:"oscilloscope"`
	Connected  bool                   `json:"connected"`
}

func newHistoryEntry(rec *telemetry.Record) historyEntry {
	return historyEntry{
		Timestamp:  rec.Timestamp,
		Session:    rec.Session,
		Sensors:    rec.Sensors,
		Multimeter: rec.Multimeter,
		Supply:     rec.Supply,
		Scope:      rec.Scope,
		Connected:  rec.Connected,
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.CodeOf(err)
	status := StatusOf(code)

	if status >= http.StatusInternalServerError {
		var appErr errors.Error
		if !errors.As(err, &appErr) {
			appErr = errors.New().Wrap(code, err)
		}
		s.log.ErrorWithContext(appErr, "http", r.URL.Path).Msg("Request failed")
	}

	_ = writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: err.Error()}})
}

// StatusOf maps an error code onto the HTTP status reported for it.
func StatusOf(code errors.ErrorCode) int {
	switch code {
	case errors.ErrInvalidArgument, errors.ErrInvalidMode, errors.ErrOutOfRange:
		return http.StatusBadRequest
	case errors.ErrPinNotWritable:
		return http.StatusConflict
	case errors.ErrResourceNotFound:
		return http.StatusNotFound
	case errors.ErrUnavailable, bench.ErrClosed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New().Wrap(ErrInvalidArgument, err)
	}

	return nil
}

func pathInt(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, errors.New().WithData(ErrInvalidArgument, fmt.Sprintf("%s %q", name, r.PathValue(name)))
	}

	return n, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New().WithData(ErrInvalidArgument, fmt.Sprintf("%s %q", name, raw))
	}

	return n, nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
