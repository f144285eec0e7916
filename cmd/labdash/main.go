package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/labdash/internal/config"
	"codeberg.org/mutker/labdash/internal/logger"
	"codeberg.org/mutker/labdash/internal/telemetry"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "labdash",
		Short:         "Simulated lab bench with live instrument readings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd(), newMeasureCmd(), newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "labdash %s\n", version)
		},
	}
}

// loadConfig reads the configuration and initializes the logger from it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "failed to load config: %v\n", err)
		return nil, err
	}

	initLogger(cfg)
	logger.Debug().Msg("Config loaded")

	return cfg, nil
}

func initLogger(p config.Provider) {
	level, _ := logger.ParseLevel(p.GetLogLevel().String())
	logger.Init(level, logger.IsService())
}

func telemetryConfig(cfg *config.Config) telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.Enabled = cfg.Telemetry.Enabled
	tc.DBPath = cfg.Telemetry.DBPath
	tc.BatchSize = cfg.Telemetry.BatchSize
	tc.BatchTimeout = time.Duration(cfg.Telemetry.BatchTimeout) * time.Second

	return tc
}

func handleSignals(ctx context.Context, cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		logger.Info().Msg("Received termination signal.")
		cancel()
	case <-ctx.Done():
	}
}
