package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/labdash/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel   = LogLevelInfo
	DefaultConfigName = "labdash"
	DefaultEnvPrefix  = "LABDASH"
	configEnvVar      = "LABDASH_CONFIG"
)

type SensorConfig struct {
	TemperatureInterval time.Duration `mapstructure:"temperature_interval"`
	HumidityInterval    time.Duration `mapstructure:"humidity_interval"`
	LightInterval       time.Duration `mapstructure:"light_interval"`
	DistanceInterval    time.Duration `mapstructure:"distance_interval"`
	TemperatureHistory  int           `mapstructure:"temperature_history"`
	GestureInterval     time.Duration `mapstructure:"gesture_interval"`
	GestureHold         time.Duration `mapstructure:"gesture_hold"`
}

type InstrumentConfig struct {
	SamplerInterval    time.Duration `mapstructure:"sampler_interval"`
	MultimeterBase     float64       `mapstructure:"multimeter_base"`
	ScopeRefresh       time.Duration `mapstructure:"scope_refresh"`
	ScopeSamples       int           `mapstructure:"scope_samples"`
	ScopeNoise         float64       `mapstructure:"scope_noise"`
	GPIOInterval       time.Duration `mapstructure:"gpio_interval"`
	LEDCount           int           `mapstructure:"led_count"`
	LinkInterval       time.Duration `mapstructure:"link_interval"`
	LinkRecovery       time.Duration `mapstructure:"link_recovery"`
	LinkDropChance     float64       `mapstructure:"link_drop_chance"`
	GestureChance      float64       `mapstructure:"gesture_chance"`
	PowerSupplyLoadOhm float64       `mapstructure:"power_supply_load_ohm"`
}

type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DBPath       string `mapstructure:"db_path"`
	BatchSize    int    `mapstructure:"batch_size"`
	BatchTimeout int    `mapstructure:"batch_timeout"`
}

type StreamConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	PublishInterval time.Duration `mapstructure:"publish_interval"`
	NATSURL         string        `mapstructure:"nats_url"`
	NATSSubject     string        `mapstructure:"nats_subject"`
}

type Config struct {
	LogLevel    LogLevel         `mapstructure:"log_level"`
	Seed        int64            `mapstructure:"seed"`
	PIDFile     bool             `mapstructure:"pid_file"`
	Sensors     SensorConfig     `mapstructure:"sensors"`
	Instruments InstrumentConfig `mapstructure:"instruments"`
	Telemetry   TelemetryConfig  `mapstructure:"telemetry"`
	Stream      StreamConfig     `mapstructure:"stream"`
}

// DefaultConfig returns the bench timings of the reference dashboard.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Sensors: SensorConfig{
			TemperatureInterval: time.Second,
			HumidityInterval:    time.Second,
			LightInterval:       500 * time.Millisecond,
			DistanceInterval:    200 * time.Millisecond,
			TemperatureHistory:  60,
			GestureInterval:     3 * time.Second,
			GestureHold:         2 * time.Second,
		},
		Instruments: InstrumentConfig{
			SamplerInterval:    200 * time.Millisecond,
			MultimeterBase:     5,
			ScopeRefresh:       50 * time.Millisecond,
			ScopeSamples:       200,
			ScopeNoise:         0.05,
			GPIOInterval:       2 * time.Second,
			LEDCount:           9,
			LinkInterval:       10 * time.Second,
			LinkRecovery:       2 * time.Second,
			LinkDropChance:     0.05,
			GestureChance:      0.2,
			PowerSupplyLoadOhm: 100,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			DBPath:       "/var/lib/labdash/telemetry.db",
			BatchSize:    50,
			BatchTimeout: 5,
		},
		Stream: StreamConfig{
			ListenAddr:      ":8080",
			PublishInterval: 200 * time.Millisecond,
			NATSSubject:     "labdash",
		},
	}
}

// RegisterFlags declares the command line flags understood by Load.
func RegisterFlags(flags *pflag.FlagSet) {
	def := DefaultConfig()

	flags.String("log-level", string(def.LogLevel), "Log level (debug, info, warning, error)")
	flags.Int64("seed", def.Seed, "Random seed, 0 for time based")
	flags.Bool("pid-file", def.PIDFile, "Refuse to start when another instance is running")
	flags.String("listen", def.Stream.ListenAddr, "HTTP listen address, empty to disable")
	flags.Duration("publish-interval", def.Stream.PublishInterval, "Snapshot publish interval")
	flags.String("nats-url", def.Stream.NATSURL, "NATS server url, empty to disable")
	flags.String("nats-subject", def.Stream.NATSSubject, "NATS subject prefix")
	flags.Bool("telemetry", def.Telemetry.Enabled, "Record snapshots to SQLite")
	flags.String("telemetry-db", def.Telemetry.DBPath, "Telemetry database path")
	flags.Int("scope-samples", def.Instruments.ScopeSamples, "Oscilloscope samples per frame")
}

// flagKeys maps flag names onto their configuration keys.
var flagKeys = map[string]string{
	"log-level":        "log_level",
	"seed":             "seed",
	"pid-file":         "pid_file",
	"listen":           "stream.listen_addr",
	"publish-interval": "stream.publish_interval",
	"nats-url":         "stream.nats_url",
	"nats-subject":     "stream.nats_subject",
	"telemetry":        "telemetry.enabled",
	"telemetry-db":     "telemetry.db_path",
	"scope-samples":    "instruments.scope_samples",
}

// Load builds the configuration from defaults, an optional TOML file,
// LABDASH_* environment variables and flags, in increasing precedence.
func Load(flags *pflag.FlagSet, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		configPath: os.Getenv(configEnvVar),
		envPrefix:  DefaultEnvPrefix,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(ErrInvalidConfig, err)
		}
	}

	if flags == nil {
		flags = pflag.NewFlagSet(DefaultConfigName, pflag.ContinueOnError)
		RegisterFlags(flags)
	}
	if o.args != nil {
		if err := flags.Parse(o.args); err != nil {
			return nil, errFactory.Wrap(ErrBindFlags, err)
		}
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errFactory.Wrap(ErrBindFlags, err)
			}
		}
	}

	if o.configPath != "" {
		v.SetConfigFile(o.configPath)
		v.SetConfigType("toml")
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/labdash")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.Wrap(ErrReadConfig, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("log_level", string(def.LogLevel))
	v.SetDefault("seed", def.Seed)
	v.SetDefault("pid_file", def.PIDFile)

	v.SetDefault("sensors.temperature_interval", def.Sensors.TemperatureInterval)
	v.SetDefault("sensors.humidity_interval", def.Sensors.HumidityInterval)
	v.SetDefault("sensors.light_interval", def.Sensors.LightInterval)
	v.SetDefault("sensors.distance_interval", def.Sensors.DistanceInterval)
	v.SetDefault("sensors.temperature_history", def.Sensors.TemperatureHistory)
	v.SetDefault("sensors.gesture_interval", def.Sensors.GestureInterval)
	v.SetDefault("sensors.gesture_hold", def.Sensors.GestureHold)

	v.SetDefault("instruments.sampler_interval", def.Instruments.SamplerInterval)
	v.SetDefault("instruments.multimeter_base", def.Instruments.MultimeterBase)
	v.SetDefault("instruments.scope_refresh", def.Instruments.ScopeRefresh)
	v.SetDefault("instruments.scope_samples", def.Instruments.ScopeSamples)
	v.SetDefault("instruments.scope_noise", def.Instruments.ScopeNoise)
	v.SetDefault("instruments.gpio_interval", def.Instruments.GPIOInterval)
	v.SetDefault("instruments.led_count", def.Instruments.LEDCount)
	v.SetDefault("instruments.link_interval", def.Instruments.LinkInterval)
	v.SetDefault("instruments.link_recovery", def.Instruments.LinkRecovery)
	v.SetDefault("instruments.link_drop_chance", def.Instruments.LinkDropChance)
	v.SetDefault("instruments.gesture_chance", def.Instruments.GestureChance)
	v.SetDefault("instruments.power_supply_load_ohm", def.Instruments.PowerSupplyLoadOhm)

	v.SetDefault("telemetry.enabled", def.Telemetry.Enabled)
	v.SetDefault("telemetry.db_path", def.Telemetry.DBPath)
	v.SetDefault("telemetry.batch_size", def.Telemetry.BatchSize)
	v.SetDefault("telemetry.batch_timeout", def.Telemetry.BatchTimeout)

	v.SetDefault("stream.listen_addr", def.Stream.ListenAddr)
	v.SetDefault("stream.publish_interval", def.Stream.PublishInterval)
	v.SetDefault("stream.nats_url", def.Stream.NATSURL)
	v.SetDefault("stream.nats_subject", def.Stream.NATSSubject)
}

// Validate checks intervals, probabilities and the log level.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !c.LogLevel.IsValid() {
		return errFactory.WithData(ErrInvalidLogLevel, c.LogLevel)
	}

	intervals := map[string]time.Duration{
		"sensors.temperature_interval": c.Sensors.TemperatureInterval,
		"sensors.humidity_interval":    c.Sensors.HumidityInterval,
		"sensors.light_interval":       c.Sensors.LightInterval,
		"sensors.distance_interval":    c.Sensors.DistanceInterval,
		"sensors.gesture_interval":     c.Sensors.GestureInterval,
		"sensors.gesture_hold":         c.Sensors.GestureHold,
		"instruments.sampler_interval": c.Instruments.SamplerInterval,
		"instruments.scope_refresh":    c.Instruments.ScopeRefresh,
		"instruments.gpio_interval":    c.Instruments.GPIOInterval,
		"instruments.link_interval":    c.Instruments.LinkInterval,
		"instruments.link_recovery":    c.Instruments.LinkRecovery,
		"stream.publish_interval":      c.Stream.PublishInterval,
	}
	for key, d := range intervals {
		if d <= 0 {
			return errFactory.WithData(ErrInvalidInterval, key+"="+d.String())
		}
	}

	if c.Instruments.ScopeSamples <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "instruments.scope_samples must be positive")
	}
	if c.Sensors.TemperatureHistory < 0 {
		return errFactory.WithData(ErrInvalidConfig, "sensors.temperature_history must not be negative")
	}
	if c.Instruments.LEDCount < 0 {
		return errFactory.WithData(ErrInvalidConfig, "instruments.led_count must not be negative")
	}
	if c.Instruments.PowerSupplyLoadOhm <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "instruments.power_supply_load_ohm must be positive")
	}
	for key, p := range map[string]float64{
		"instruments.link_drop_chance": c.Instruments.LinkDropChance,
		"instruments.gesture_chance":   c.Instruments.GestureChance,
	} {
		if p < 0 || p > 1 {
			return errFactory.WithData(ErrInvalidConfig, key+" must be within [0,1]")
		}
	}

	if c.Telemetry.Enabled && c.Telemetry.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}

	return nil
}

func (c *Config) GetLogLevel() LogLevel             { return c.LogLevel }
func (c *Config) GetSeed() int64                    { return c.Seed }
func (c *Config) GetListenAddr() string             { return c.Stream.ListenAddr }
func (c *Config) GetPublishInterval() time.Duration { return c.Stream.PublishInterval }
func (c *Config) IsTelemetryEnabled() bool          { return c.Telemetry.Enabled }
