package router

import (
	"context"
	"time"

	"github.com/leandrodaf/airdaw/internal/clock"
	"github.com/leandrodaf/airdaw/internal/logger"
	"github.com/leandrodaf/airdaw/internal/receiver"
	"github.com/leandrodaf/airdaw/internal/ticker"
	"github.com/leandrodaf/airdaw/sdk/contracts"
)

// Emitter forwards commands to the MIDI ports.
type Emitter interface {
	Emit(cmd contracts.MidiCommand) error
}

// SensorView is drained once per tick.
type SensorView interface {
	Drain() receiver.Snapshot
}

// GestureView returns the most recent gesture snapshot without blocking.
type GestureView interface {
	Latest() contracts.GestureSnapshot
}

// Journal records what the router did. Implementations must not block.
type Journal interface {
	RecordCommand(at time.Time, cmd contracts.MidiCommand)
	RecordEvent(at time.Time, kind, detail string)
}

// Option configures a Router.
type Option func(*Router)

// WithJournal attaches a journal.
func WithJournal(j Journal) Option {
	return func(r *Router) { r.journal = j }
}

// Router runs Step at a fixed rate against live collaborators.
type Router struct {
	cfg      Config
	state    State
	emitter  Emitter
	sensor   SensorView
	gestures GestureView
	journal  Journal
	log      contracts.Logger

	emitErr *logger.Throttle
}

// New builds a Router with an empty State.
func New(cfg Config, e Emitter, s SensorView, g GestureView, log contracts.Logger, opts ...Option) *Router {
	r := &Router{
		cfg:      cfg,
		emitter:  e,
		sensor:   s,
		gestures: g,
		log:      log,
		emitErr:  logger.NewThrottle(time.Second),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns a copy of the current state.
func (r *Router) State() State { return r.state }

// Tick runs one transition at instant now and emits its commands.
func (r *Router) Tick(now time.Time) {
	in := Input{Now: now, Gesture: r.gestures.Latest(), Sensor: r.sensor.Drain()}

	var out Output
	r.state, out = Step(r.state, in, r.cfg)

	for _, ev := range out.Events {
		r.logEvent(now, ev)
	}
	r.emit(now, out.Commands)
}

// Run ticks at the given period until ctx is done, then releases any held
// note before returning.
func (r *Router) Run(ctx context.Context, c clock.Clock, period time.Duration) error {
	r.log.Info("router started",
		r.log.Field().Duration("period", period),
		r.log.Field().Duration("watchdog", r.cfg.WatchdogTimeout),
		r.log.Field().Duration("count_in", r.cfg.CountIn()))
	defer func() { r.Shutdown(c.Now()) }()
	return ticker.Run(ctx, c, period, r.Tick)
}

// Shutdown sends NoteOff for any held note.
func (r *Router) Shutdown(now time.Time) {
	var cmds []contracts.MidiCommand
	r.state, cmds = Release(r.state, r.cfg)
	r.emit(now, cmds)
	r.log.Info("router stopped", r.log.Field().Int("released", len(cmds)))
}

func (r *Router) emit(now time.Time, cmds []contracts.MidiCommand) {
	for _, cmd := range cmds {
		if err := r.emitter.Emit(cmd); err != nil {
			r.emitErr.Error(r.log, "midi emit failed",
				r.log.Field().String("command", cmd.String()),
				r.log.Field().Error("error", err))
			continue
		}
		r.log.Debug("midi", r.log.Field().String("command", cmd.String()))
		if r.journal != nil {
			r.journal.RecordCommand(now, cmd)
		}
	}
}

func (r *Router) logEvent(now time.Time, ev Event) {
	f := r.log.Field()
	switch ev.Kind {
	case EventWatchdogTripped:
		r.log.Warn("watchdog tripped, sensor silent", f.Duration("elapsed", ev.Elapsed))
	case EventWatchdogRecovered:
		r.log.Info("watchdog recovered after sensor update", f.Duration("elapsed", ev.Elapsed))
	case EventRecordingStarted:
		r.log.Info("recording started", f.Duration("count_in", r.cfg.CountIn()))
	case EventRecordingStopped:
		r.log.Info("recording stopped")
	case EventInstrumentChanged:
		r.log.Info("instrument changed", f.String("instrument", ev.Detail))
	case EventModeChanged:
		r.log.Info("mode changed", f.String("mode", ev.Detail))
	case EventHitsSuppressed:
		r.log.Debug("hits suppressed", f.Int("count", ev.Count))
	case EventNoteChanged:
		r.log.Info("pitch from distance", f.Float64("dist_cm", ev.Distance), f.Int("note", ev.Count))
		return
	}
	if r.journal != nil {
		r.journal.RecordEvent(now, string(ev.Kind), ev.Detail)
	}
}
