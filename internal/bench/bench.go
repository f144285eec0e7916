// Package bench wires every simulated instrument to one scheduler and
// exposes their combined state and front panel controls.
package bench

import (
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/labdash/internal/config"
	"codeberg.org/mutker/labdash/internal/errors"
	"codeberg.org/mutker/labdash/internal/gesture"
	"codeberg.org/mutker/labdash/internal/gpio"
	"codeberg.org/mutker/labdash/internal/link"
	"codeberg.org/mutker/labdash/internal/logger"
	"codeberg.org/mutker/labdash/internal/multimeter"
	"codeberg.org/mutker/labdash/internal/powersupply"
	"codeberg.org/mutker/labdash/internal/random"
	"codeberg.org/mutker/labdash/internal/sched"
	"codeberg.org/mutker/labdash/internal/scope"
	"codeberg.org/mutker/labdash/internal/sensor"
	"codeberg.org/mutker/labdash/internal/siggen"
	"codeberg.org/mutker/labdash/internal/waveform"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

type Option func(*options)

type options struct {
	clock  clock.Clock
	source random.Source
	log    logger.Logger
}

// WithClock runs the bench on c instead of wall time.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithSource replaces the seeded random source.
func WithSource(src random.Source) Option {
	return func(o *options) { o.source = src }
}

func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.log = log }
}

type Bench struct {
	log      logger.Logger
	sched    *sched.Scheduler
	session  string
	identity Identity

	Temperature *sensor.Channel
	Humidity    *sensor.Channel
	Light       *sensor.Channel
	Distance    *sensor.Channel
	Gesture     *gesture.Generator
	Multimeter  *multimeter.Meter
	Supply      *powersupply.Supply
	Synth       *waveform.Synthesizer
	Scope       *scope.Scope
	SigGen      *siggen.Generator
	Board       *gpio.Board
	LEDs        *gpio.LEDBank
	Link        *link.Status

	mu      sync.Mutex
	group   *sched.Group
	started bool
	closed  bool
	seq     atomic.Uint64
}

// New builds every instrument from cfg. Nothing runs until Start.
func New(cfg *config.Config, opts ...Option) (*Bench, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInitBench, err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Default()
	}
	if o.source == nil {
		o.source = random.New(cfg.GetSeed())
	}

	identity, err := NewIdentity(cfg.GetSeed())
	if err != nil {
		return nil, errFactory.Wrap(ErrInitBench, err)
	}

	src := o.source
	sc, ic := cfg.Sensors, cfg.Instruments

	synth := waveform.NewSynthesizer(src, ic.ScopeRefresh, waveform.Params{})

	b := &Bench{
		log:      o.log.With("bench"),
		sched:    sched.New(o.clock),
		session:  uuid.NewString(),
		identity: identity,

		Temperature: sensor.NewChannel(sensor.TemperatureSpec(sc.TemperatureInterval, sc.TemperatureHistory), src),
		Humidity:    sensor.NewChannel(sensor.HumiditySpec(sc.HumidityInterval), src),
		Light:       sensor.NewChannel(sensor.LightSpec(sc.LightInterval), src),
		Distance:    sensor.NewChannel(sensor.DistanceSpec(sc.DistanceInterval), src),
		Gesture: gesture.New(gesture.Config{
			Interval: sc.GestureInterval,
			Hold:     sc.GestureHold,
			Chance:   ic.GestureChance,
		}, src),
		Multimeter: multimeter.New(multimeter.Config{
			Interval: ic.SamplerInterval,
			Base:     ic.MultimeterBase,
			Mode:     multimeter.DCV,
		}, src),
		Supply: powersupply.New(powersupply.Config{
			Interval: ic.SamplerInterval,
			LoadOhm:  ic.PowerSupplyLoadOhm,
			Voltage:  powersupply.DefaultConfig().Voltage,
			Limit:    powersupply.DefaultConfig().Limit,
		}, src),
		Synth:  synth,
		Scope:  scope.New(synth, ic.ScopeSamples, ic.ScopeNoise),
		SigGen: siggen.New(),
		Board:  gpio.NewBoard(src, ic.GPIOInterval),
		LEDs:   gpio.NewLEDBank(ic.LEDCount, o.log.With("leds")),
		Link: link.New(link.Config{
			Interval:   ic.LinkInterval,
			Recovery:   ic.LinkRecovery,
			DropChance: ic.LinkDropChance,
		}, src),
	}

	b.Link.Subscribe(func(connected bool) {
		b.log.Info().Bool("connected", connected).Msg("Link status changed")
	})

	b.log.Debug().
		Str("session", b.session).
		Str("serial", identity.Serial).
		Msg("Bench initialized")

	return b, nil
}

// Start schedules every instrument in one group.
func (b *Bench) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.New().New(ErrClosed)
	}
	if b.started {
		return nil
	}

	g := b.sched.Group()
	for _, ch := range []*sensor.Channel{b.Temperature, b.Humidity, b.Light, b.Distance} {
		ch.Start(g)
	}
	b.Gesture.Start(g)
	b.Multimeter.Start(g)
	b.Supply.Start(g)
	b.Synth.Start(g)
	b.Board.Start(g)
	b.Link.Start(g)

	b.group = g
	b.started = true

	b.log.Info().Int("timers", g.Len()).Msg("Bench started")

	return nil
}

// Close cancels every timer. No instrument changes after Close returns.
func (b *Bench) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	g := b.group
	b.mu.Unlock()

	if g != nil {
		g.Close()
	}
	b.Scope.Detach()
	b.sched.Close()

	b.log.Info().Msg("Bench closed")
}

func (b *Bench) Session() string {
	return b.session
}

func (b *Bench) Identity() Identity {
	return b.identity
}

// Clock returns the clock the instruments run on.
func (b *Bench) Clock() clock.Clock {
	return b.sched.Clock()
}

// Pending returns the number of live timers.
func (b *Bench) Pending() int {
	return b.sched.Pending()
}

func (b *Bench) now() time.Time {
	return b.sched.Clock().Now()
}
