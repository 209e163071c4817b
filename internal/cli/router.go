package cli

import (
	"context"
	"time"

	"github.com/leandrodaf/airdaw/internal/clock"
	"github.com/leandrodaf/airdaw/internal/config"
	"github.com/leandrodaf/airdaw/internal/gesture"
	"github.com/leandrodaf/airdaw/internal/journal"
	"github.com/leandrodaf/airdaw/internal/midi/midimem"
	"github.com/leandrodaf/airdaw/internal/receiver"
	"github.com/leandrodaf/airdaw/internal/router"
	"github.com/leandrodaf/airdaw/sdk/contracts"
	"github.com/leandrodaf/airdaw/sdk/midi"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// RouterOptions holds flags for the router command.
type RouterOptions struct {
	*RootOptions
	DryRun bool
}

// NewRouterCommand creates the router command.
func NewRouterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RouterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "router",
		Short: "Fuse telemetry with gestures and emit MIDI",
		Long: `Run the router node: receive sensor telemetry, poll the gesture
classifier, and drive the musical and control MIDI ports at tick_hz.

Both MIDI ports must exist at startup. Use "airdaw ports" to list them, or
--dry-run to route into an in-memory driver and watch the debug log.

Example:
  airdaw router --config configs/router.yaml
  airdaw router --dry-run --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRouter(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "send MIDI to an in-memory driver instead of real ports")
	return cmd
}

func runRouter(parent context.Context, opts *RouterOptions) error {
	cfg, err := config.LoadRouter(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid router configuration", err)
	}
	if opts.DryRun {
		cfg.MIDI.Driver = config.DriverMemory
	}
	rc, err := cfg.Build()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid router configuration", err)
	}

	log, session, err := newLogger(opts.RootOptions, cfg.Logging, "router")
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid logging configuration", err)
	}
	defer log.Sync()

	emitterOpts := cfg.EmitterOptions(log)
	if cfg.MIDI.Driver == config.DriverMemory {
		emitterOpts = append(emitterOpts, contracts.WithDriver(midimem.New(cfg.MIDI.MusicalPort, cfg.MIDI.ControlPort)))
	}
	emitter, err := midi.NewEmitter(emitterOpts...)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open MIDI ports", err)
	}
	defer func() {
		if err := emitter.Close(); err != nil {
			log.Error("error closing MIDI ports", log.Field().Error("error", err))
		}
	}()

	recv, err := receiver.Listen(cfg.ListenAddr(), clock.System{}, log)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open telemetry socket", err)
	}
	defer recv.Close()

	ctx, stop := signalContext(parent)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	var provider contracts.GestureProvider
	switch cfg.Gesture.Source {
	case config.GestureStatic:
		provider = gesture.Static(cfg.StaticGesture())
	default:
		osc, err := gesture.ListenOSC(cfg.Gesture.Listen, cfg.GestureStale(), log)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to open gesture socket", err)
		}
		defer osc.Close()
		g.Go(func() error { return osc.Serve(ctx) })
		provider = osc
	}
	poller := gesture.NewPoller(provider, cfg.GestureTimeout(), log)

	var routerOpts []router.Option
	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path, session, cfg.Journal.Capacity, log)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to open journal", err)
		}
		defer func() {
			if err := j.Close(); err != nil {
				log.Error("error closing journal", log.Field().Error("error", err))
			}
		}()
		routerOpts = append(routerOpts, router.WithJournal(j))
	}

	r := router.New(rc, emitter, recv.State(), poller, log, routerOpts...)

	log.Info("router node started",
		log.Field().String("listen", cfg.ListenAddr()),
		log.Field().String("gesture", cfg.Gesture.Source),
		log.Field().String("musical_port", cfg.MIDI.MusicalPort),
		log.Field().String("control_port", cfg.MIDI.ControlPort),
		log.Field().Bool("dry_run", cfg.MIDI.Driver == config.DriverMemory))

	started := time.Now()
	g.Go(func() error { return recv.Serve(ctx) })
	g.Go(func() error { return poller.Run(ctx, clock.System{}, cfg.Period()) })
	g.Go(func() error { return r.Run(ctx, clock.System{}, cfg.Period()) })

	err = g.Wait()
	log.Info("router node stopped", log.Field().Int64("malformed", recv.Malformed()),
		log.Field().Int64("gesture_failures", poller.Failures()),
		log.Field().Duration("uptime", time.Since(started)))
	if err != nil {
		return WrapExitError(ExitFailure, "router node failed", err)
	}
	return nil
}
