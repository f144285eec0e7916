package stream

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"codeberg.org/mutker/labdash/internal/bench"
	"codeberg.org/mutker/labdash/internal/errors"
	"github.com/nats-io/nats.go"
)

// Frame headers carried next to the raw samples.
const (
	HeaderFrameSeq    = "Labdash-Frame-Seq"
	HeaderTimePerDiv  = "Labdash-Time-Per-Div"
	HeaderVoltsPerDiv = "Labdash-Volts-Per-Div"
)

// Connect dials NATS and keeps reconnecting for the life of the process.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, errors.New().Wrap(ErrConnect, err)
	}

	return nc, nil
}

func SnapshotSubject(prefix string) string {
	return prefix + ".snapshot"
}

func FrameSubject(prefix string) string {
	return prefix + ".scope.frame"
}

// NATSPublisher publishes snapshots as JSON and scope frames as raw
// float32 samples under a subject prefix.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSPublisher(conn *nats.Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix}
}

func (*NATSPublisher) Name() string {
	return "nats"
}

func (p *NATSPublisher) Publish(ctx context.Context, snap *bench.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return errors.New().Wrap(ErrPublish, err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return errors.New().Wrap(ErrPublish, err)
	}

	if err := p.conn.Publish(SnapshotSubject(p.prefix), data); err != nil {
		return errors.New().Wrap(ErrPublish, err)
	}

	return nil
}

func (p *NATSPublisher) PublishFrame(ctx context.Context, frame bench.Frame) error {
	if err := ctx.Err(); err != nil {
		return errors.New().Wrap(ErrPublish, err)
	}

	if err := p.conn.PublishMsg(FrameMsg(p.prefix, frame)); err != nil {
		return errors.New().Wrap(ErrPublish, err)
	}

	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		return errors.New().Wrap(ErrPublish, err)
	}

	return nil
}

// FrameMsg builds the message published for one scope frame.
func FrameMsg(prefix string, frame bench.Frame) *nats.Msg {
	msg := nats.NewMsg(FrameSubject(prefix))
	msg.Header.Set(HeaderFrameSeq, strconv.FormatUint(frame.Seq, 10))
	msg.Header.Set(HeaderTimePerDiv, strconv.FormatFloat(frame.TimePerDiv, 'g', -1, 64))
	msg.Header.Set(HeaderVoltsPerDiv, strconv.FormatFloat(frame.VoltsPerDiv, 'g', -1, 64))
	msg.Data = EncodeFrame(frame.Samples)

	return msg
}
