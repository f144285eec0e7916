package bench

import (
	"context"
	"time"

	"codeberg.org/mutker/labdash/internal/errors"
	"codeberg.org/mutker/labdash/internal/logger"
	"codeberg.org/mutker/labdash/internal/telemetry"
)

// Sink receives every published snapshot.
type Sink interface {
	Name() string
	Publish(ctx context.Context, snap *Snapshot) error
}

// FrameSink additionally receives the scope trace when it changed.
type FrameSink interface {
	Sink
	PublishFrame(ctx context.Context, frame Frame) error
}

// Publisher pushes a snapshot to its sinks on every interval.
type Publisher struct {
	bench    *Bench
	interval time.Duration
	sinks    []Sink
	log      logger.Logger

	lastFrame uint64
}

func NewPublisher(b *Bench, interval time.Duration, sinks ...Sink) *Publisher {
	return &Publisher{
		bench:    b,
		interval: interval,
		sinks:    sinks,
		log:      b.log.With("publisher"),
	}
}

// Run publishes until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	if p.interval <= 0 {
		return errors.New().WithData(errors.ErrInvalidInterval, p.interval.String())
	}

	ticker := p.bench.Clock().Ticker(p.interval)
	defer ticker.Stop()

	p.log.Info().
		Dur("interval", p.interval).
		Int("sinks", len(p.sinks)).
		Msg("Publisher started")

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("Publisher stopped")
			return nil
		case <-ticker.C:
			p.PublishOnce(ctx)
		}
	}
}

// PublishOnce takes one snapshot and hands it to every sink. A failing
// sink is logged and does not stop the others.
func (p *Publisher) PublishOnce(ctx context.Context) *Snapshot {
	snap := p.bench.Snapshot()

	var frame *Frame
	if seq := p.bench.Synth.Seq(); seq != p.lastFrame {
		f := p.bench.Frame()
		frame = &f
		p.lastFrame = seq
	}

	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, snap); err != nil {
			p.logFailure(sink, "publish", err)
			continue
		}

		fs, ok := sink.(FrameSink)
		if !ok || frame == nil {
			continue
		}
		if err := fs.PublishFrame(ctx, *frame); err != nil {
			p.logFailure(sink, "publish_frame", err)
		}
	}

	return snap
}

func (p *Publisher) logFailure(sink Sink, op string, err error) {
	var appErr errors.Error
	if !errors.As(err, &appErr) {
		appErr = errors.New().Wrap(ErrPublish, err)
	}
	p.log.ErrorWithContext(appErr, sink.Name(), op).Msg("Sink failed")
}

// TelemetrySink records snapshots through a telemetry collector.
type TelemetrySink struct {
	collector telemetry.Collector
}

func NewTelemetrySink(c telemetry.Collector) *TelemetrySink {
	return &TelemetrySink{collector: c}
}

func (*TelemetrySink) Name() string {
	return "telemetry"
}

func (s *TelemetrySink) Publish(ctx context.Context, snap *Snapshot) error {
	return s.collector.Record(ctx, snap.Record())
}
