package main

import (
	"encoding/json"
	"fmt"
	"io"

	"codeberg.org/mutker/labdash/internal/bench"
	"codeberg.org/mutker/labdash/internal/config"
	"codeberg.org/mutker/labdash/internal/errors"
	"codeberg.org/mutker/labdash/internal/logger"
	"codeberg.org/mutker/labdash/internal/scope"
	"codeberg.org/mutker/labdash/internal/waveform"
	"github.com/spf13/cobra"
)

type measureOptions struct {
	frames      int
	timePerDiv  float64
	voltsPerDiv float64
	asJSON      bool
}

func newMeasureCmd() *cobra.Command {
	opts := measureOptions{}

	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Synthesize oscilloscope frames and print their measurements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			return measure(cmd.OutOrStdout(), cfg, opts)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().IntVarP(&opts.frames, "frames", "n", 5, "number of frames to measure")
	cmd.Flags().Float64Var(&opts.timePerDiv, "time-per-div", 1, "timebase in ms per division")
	cmd.Flags().Float64Var(&opts.voltsPerDiv, "volts-per-div", 1, "vertical scale in volts per division")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print one JSON object per frame")

	return cmd
}

type measureLine struct {
	Frame       int                  `json:"frame"`
	Measurement waveform.Measurement `json:"measurement"`
	Readout     bench.ScopeReadout   `json:"readout"`
}

// measure drives the synthesizer directly, one frame per iteration,
// without starting the bench timers.
func measure(out io.Writer, cfg *config.Config, opts measureOptions) error {
	if opts.frames <= 0 {
		return errors.New().WithData(errors.ErrInvalidArgument, fmt.Sprintf("frames %d", opts.frames))
	}

	b, err := bench.New(cfg, bench.WithLogger(logger.Default()))
	if err != nil {
		return err
	}
	defer b.Close()

	err = b.UpdateScope(func(s *scope.Settings) {
		s.TimePerDiv = opts.timePerDiv
		s.VoltsPerDiv = opts.voltsPerDiv
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	for i := 1; i <= opts.frames; i++ {
		b.Synth.Tick()
		m := b.Scope.Measure()
		r := bench.NewScopeReadout(m)

		if opts.asJSON {
			if err := enc.Encode(measureLine{Frame: i, Measurement: m, Readout: r}); err != nil {
				return err
			}
			continue
		}

		fmt.Fprintf(out, "frame %d: f=%s T=%s Vpp=%s Vrms=%s Vavg=%s\n",
			i, r.Frequency, r.Period, r.PeakToPeak, r.RMS, r.Average)
	}

	return nil
}
