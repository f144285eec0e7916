package main

import (
	"context"

	"codeberg.org/mutker/labdash/internal/bench"
	"codeberg.org/mutker/labdash/internal/config"
	"codeberg.org/mutker/labdash/internal/errors"
	"codeberg.org/mutker/labdash/internal/logger"
	"codeberg.org/mutker/labdash/internal/pid"
	"codeberg.org/mutker/labdash/internal/stream"
	"codeberg.org/mutker/labdash/internal/telemetry"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bench and serve it over HTTP, websocket and NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if err := serve(cmd.Context(), cfg); err != nil {
				var appErr errors.Error
				if errors.As(err, &appErr) {
					logger.ErrorWithCode(appErr).Msg("Serve failed")
				} else {
					logger.Error().Err(err).Msg("Serve failed")
				}
				return err
			}

			return nil
		},
	}
	config.RegisterFlags(cmd.Flags())

	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	errFactory := errors.New()
	log := logger.Default()

	if cfg.PIDFile {
		if err := pid.Write(""); err != nil {
			return err
		}
		defer func() {
			if err := pid.Remove(""); err != nil {
				logger.Error().Err(err).Msg("Failed to remove PID file")
			}
		}()
	}

	collector, err := telemetry.NewService(telemetryConfig(cfg), log.With("telemetry"))
	if err != nil {
		return errFactory.Wrap(errors.ErrInitTelemetry, err)
	}
	defer func() {
		if err := collector.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close telemetry")
		}
	}()

	b, err := bench.New(cfg, bench.WithLogger(log))
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.Start(); err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	logger.Info().
		Str("session", b.Session()).
		Str("serial", b.Identity().Serial).
		Msg("Bench started")

	hub := stream.NewHub(log)
	defer hub.Close()

	sinks := []bench.Sink{hub}
	if cfg.IsTelemetryEnabled() && collector.Enabled() {
		sinks = append(sinks, bench.NewTelemetrySink(collector))
	}

	if cfg.Stream.NATSURL != "" {
		nc, err := stream.Connect(cfg.Stream.NATSURL, "labdash")
		if err != nil {
			return err
		}
		np := stream.NewNATSPublisher(nc, cfg.Stream.NATSSubject)
		defer func() {
			if err := np.Close(); err != nil {
				logger.Error().Err(err).Msg("Failed to drain NATS connection")
			}
		}()
		sinks = append(sinks, np)
		logger.Info().
			Str("url", cfg.Stream.NATSURL).
			Str("subject", cfg.Stream.NATSSubject).
			Msg("Publishing to NATS")
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	go handleSignals(ctx, cancel)

	errCh := make(chan error, 2)
	running := 1

	publisher := bench.NewPublisher(b, cfg.GetPublishInterval(), sinks...)
	go func() { errCh <- publisher.Run(ctx) }()

	if addr := cfg.GetListenAddr(); addr != "" {
		srv := stream.NewServer(b, hub, collector, log)
		running++
		go func() { errCh <- srv.ListenAndServe(ctx, addr) }()
	}

	// The first failure stops everything else.
	var firstErr error
	for ; running > 0; running-- {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	logger.Info().Msg("Exiting...")

	return firstErr
}
