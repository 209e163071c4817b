// Package router fuses sensor telemetry with the gesture snapshot and
// decides which MIDI commands to send on each tick.
//
// Step is a pure transition: given the previous State and this tick's Input
// it returns the next State and the ordered commands to emit. Everything
// stateful about the router lives in State.
package router

import (
	"time"

	"github.com/leandrodaf/airdaw/internal/mapping"
	"github.com/leandrodaf/airdaw/internal/receiver"
	"github.com/leandrodaf/airdaw/sdk/contracts"
)

// State is owned by the router loop and replaced once per tick.
type State struct {
	HeldNote uint8
	Holding  bool

	// MuteUntil is the end of the count-in window; zero means none.
	MuteUntil       time.Time
	RecordingPrev   bool
	WatchdogTripped bool

	// Instrument is the last applied instrument label. InstrumentSet is
	// false until the first tick applies one.
	Instrument    string
	InstrumentSet bool
	Mode          contracts.Mode
	// NotePrev is the previous note_active as seen by the voice logic. Drum
	// instruments fire on its rising edge.
	NotePrev bool
}

// Input is everything one tick observes.
type Input struct {
	Now     time.Time
	Gesture contracts.GestureSnapshot
	Sensor  receiver.Snapshot
}

// Output is the ordered result of one tick.
type Output struct {
	Commands []contracts.MidiCommand
	Events   []Event
}

// EventKind classifies notable transitions for logging and the journal.
type EventKind string

const (
	EventWatchdogTripped   EventKind = "watchdog_tripped"
	EventWatchdogRecovered EventKind = "watchdog_recovered"
	EventRecordingStarted  EventKind = "recording_started"
	EventRecordingStopped  EventKind = "recording_stopped"
	EventInstrumentChanged EventKind = "instrument_changed"
	EventModeChanged       EventKind = "mode_changed"
	EventHitsSuppressed    EventKind = "hits_suppressed"
	EventNoteChanged       EventKind = "note_changed"
)

// Event is one notable transition.
type Event struct {
	Kind   EventKind
	Detail string
	// Elapsed is the sensor silence for watchdog events.
	Elapsed time.Duration
	// Count is the number of suppressed hits, or the new note.
	Count int
	// Distance is the distance that produced a note change.
	Distance float64
}

type stepper struct {
	cfg Config
	st  State
	out Output
}

func (s *stepper) emit(c contracts.MidiCommand) { s.out.Commands = append(s.out.Commands, c) }
func (s *stepper) event(e Event)                { s.out.Events = append(s.out.Events, e) }

func (s *stepper) release() {
	if !s.st.Holding {
		return
	}
	s.emit(contracts.NoteOffCommand(s.cfg.LeadChannel, s.st.HeldNote))
	s.st.Holding = false
	s.st.HeldNote = 0
}

func (s *stepper) controlChange(cc uint8) {
	s.emit(contracts.ControlChangeCommand(s.cfg.ControlChannel, cc, 127))
}

// Step runs one tick.
func Step(st State, in Input, cfg Config) (State, Output) {
	s := &stepper{cfg: cfg, st: st}

	s.trackGesture(in.Gesture)
	s.watchdog(in.Now, in.Sensor.LastSeen)
	s.recordingEdge(in.Now, in.Gesture.Recording)

	if s.st.WatchdogTripped || in.Now.Before(s.st.MuteUntil) {
		if n := len(in.Sensor.Hits); n > 0 {
			s.event(Event{Kind: EventHitsSuppressed, Count: n})
		}
		s.release()
		s.st.NotePrev = false
		return s.st, s.out
	}

	for _, h := range in.Sensor.Hits {
		s.oneShot(cfg.DrumNote, clampVelocity(h.Velocity))
	}

	if !in.Gesture.Playable() {
		s.release()
		s.st.NotePrev = false
		return s.st, s.out
	}

	if inst := cfg.instrument(s.st.Instrument); inst.Kind == Drum {
		s.release()
		if in.Gesture.NoteActive && !s.st.NotePrev {
			s.oneShot(inst.drumNote(cfg), cfg.DrumVelocity)
		}
		s.st.NotePrev = in.Gesture.NoteActive
		return s.st, s.out
	}

	s.lead(in)
	return s.st, s.out
}

// Release returns the state with no held note and the NoteOff for the note
// that was held, if any. It is used on shutdown.
func Release(st State, cfg Config) (State, []contracts.MidiCommand) {
	s := &stepper{cfg: cfg, st: st}
	s.release()
	s.st.NotePrev = false
	return s.st, s.out.Commands
}

func (s *stepper) trackGesture(g contracts.GestureSnapshot) {
	if g.Mode != s.st.Mode {
		s.event(Event{Kind: EventModeChanged, Detail: string(g.Mode)})
		s.st.Mode = g.Mode
	}
	if s.st.InstrumentSet && g.Instrument == s.st.Instrument {
		return
	}

	s.st.Instrument = g.Instrument
	s.st.InstrumentSet = true
	s.event(Event{Kind: EventInstrumentChanged, Detail: g.Instrument})
	s.release()
	s.st.NotePrev = false

	inst := s.cfg.instrument(g.Instrument)
	if inst.Kind != Drum && inst.Program != nil {
		s.emit(contracts.ProgramChangeCommand(s.cfg.LeadChannel, *inst.Program))
	}
	if s.cfg.InsertOnInstrumentChange && g.Recording {
		s.controlChange(s.cfg.InsertTrackCC)
	}
}

func (s *stepper) watchdog(now, lastSeen time.Time) {
	elapsed := now.Sub(lastSeen)
	if elapsed >= s.cfg.WatchdogTimeout {
		if !s.st.WatchdogTripped {
			s.st.WatchdogTripped = true
			s.release()
			s.event(Event{Kind: EventWatchdogTripped, Elapsed: elapsed})
		}
		return
	}
	if s.st.WatchdogTripped {
		s.st.WatchdogTripped = false
		s.event(Event{Kind: EventWatchdogRecovered, Elapsed: elapsed})
	}
}

func (s *stepper) recordingEdge(now time.Time, recording bool) {
	switch {
	case recording && !s.st.RecordingPrev:
		s.controlChange(s.cfg.RecordCC)
		if s.cfg.InsertOnRecordStart {
			s.controlChange(s.cfg.InsertTrackCC)
		}
		s.st.MuteUntil = now.Add(s.cfg.CountIn())
		s.st.RecordingPrev = true
		s.release()
		s.event(Event{Kind: EventRecordingStarted})
	case !recording && s.st.RecordingPrev:
		s.controlChange(s.cfg.RecordCC)
		s.st.RecordingPrev = false
		s.event(Event{Kind: EventRecordingStopped})
	}
}

func (s *stepper) oneShot(note, velocity uint8) {
	s.emit(contracts.NoteOnCommand(s.cfg.PercussionChannel, note, velocity))
	s.emit(contracts.NoteOffCommand(s.cfg.PercussionChannel, note))
}

func (s *stepper) lead(in Input) {
	if !in.Gesture.NoteActive || !in.Sensor.HasDistance {
		s.release()
		s.st.NotePrev = false
		return
	}

	d := mapping.Snap(in.Sensor.Distance, s.cfg.SnapCM)
	note := uint8(s.cfg.Mapping.Quantize(d))
	s.st.NotePrev = true
	if s.st.Holding && s.st.HeldNote == note {
		return
	}

	s.release()
	s.emit(contracts.NoteOnCommand(s.cfg.LeadChannel, note, s.cfg.LeadVelocity))
	s.st.HeldNote = note
	s.st.Holding = true
	s.event(Event{Kind: EventNoteChanged, Count: int(note), Distance: in.Sensor.Distance})
}

func clampVelocity(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}
