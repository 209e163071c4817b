package cli

import (
	"context"
	"os"
	"time"

	"github.com/leandrodaf/airdaw/internal/clock"
	"github.com/leandrodaf/airdaw/internal/config"
	"github.com/leandrodaf/airdaw/internal/filter"
	"github.com/leandrodaf/airdaw/internal/hit"
	"github.com/leandrodaf/airdaw/internal/sensor"
	"github.com/leandrodaf/airdaw/internal/sensornode"
	"github.com/leandrodaf/airdaw/internal/transport"
	"github.com/leandrodaf/airdaw/sdk/contracts"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// SensorOptions holds flags for the sensor command.
type SensorOptions struct {
	*RootOptions
	Simulate bool
}

// NewSensorCommand creates the sensor command.
func NewSensorCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SensorOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sensor",
		Short: "Sample the distance sensor and stream telemetry to the router",
		Long: `Run the sensor node: trigger the ultrasonic sensor at cycle_hz, filter
the echo into a distance, detect strikes and send /dist, /hit and /alive
over UDP to the router.

Example:
  airdaw sensor --config configs/sensor.yaml
  airdaw sensor --simulate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSensor(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Simulate, "simulate", false, "use the waveform simulator instead of the serial sensor")
	return cmd
}

func runSensor(parent context.Context, opts *SensorOptions) error {
	cfg, err := config.LoadSensor(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid sensor configuration", err)
	}
	if opts.Simulate {
		cfg.Simulator.Enabled = true
	}

	log, _, err := newLogger(opts.RootOptions, cfg.Logging, "sensor")
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid logging configuration", err)
	}
	defer log.Sync()

	src, err := openSource(cfg, log)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open sensor", err)
	}
	defer src.Close()

	pipeline, err := filter.New(cfg.FilterConfig())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter configuration", err)
	}
	detector, err := hit.New(cfg.HitConfig())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid hit configuration", err)
	}

	tx, err := transport.Dial(cfg.TransportOptions(), log)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open telemetry socket", err)
	}
	defer tx.Close()

	node := sensornode.New(src, pipeline, detector, tx, log)
	if cfg.PrintDist {
		node.PrintDist = os.Stdout
	}

	ctx, stop := signalContext(parent)
	defer stop()

	log.Info("sensor node started",
		log.Field().Float64("cycle_hz", cfg.CycleHz),
		log.Field().String("router", cfg.TransportOptions().Addr),
		log.Field().Bool("simulator", cfg.Simulator.Enabled),
		log.Field().Bool("hit_enabled", cfg.Hit.Enabled))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tx.Run(ctx) })
	g.Go(func() error { return node.Run(ctx, clock.System{}, cfg.Period()) })
	err = g.Wait()

	log.Info("sensor node stopped",
		log.Field().Int64("alive_seq", node.AliveSeq()),
		log.Field().Int("queued", tx.Queue().Len()))
	if err != nil {
		return WrapExitError(ExitFailure, "sensor node failed", err)
	}
	return nil
}

func openSource(cfg config.SensorConfig, log contracts.Logger) (sensor.Source, error) {
	if cfg.Simulator.Enabled {
		return sensor.NewSim(cfg.Simulator.WaveformCM, cfg.Distance.TempC, time.Now), nil
	}
	return sensor.OpenSerial(cfg.SerialConfig(), log)
}
