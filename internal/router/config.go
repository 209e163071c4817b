package router

import (
	"errors"
	"fmt"
	"time"

	"github.com/leandrodaf/airdaw/internal/mapping"
	"go.uber.org/multierr"
)

// InstrumentKind selects how an instrument label is voiced.
type InstrumentKind string

const (
	Lead InstrumentKind = "lead"
	Drum InstrumentKind = "drum"
)

// Instrument describes one gesture instrument label.
type Instrument struct {
	Kind InstrumentKind
	// Program is sent as a ProgramChange on the lead channel when a lead
	// instrument is selected.
	Program *uint8
	// Note is the drum note; nil falls back to Config.DrumNote.
	Note *uint8
}

func (i Instrument) drumNote(cfg Config) uint8 {
	if i.Note == nil {
		return cfg.DrumNote
	}
	return *i.Note
}

// Config is the router's immutable configuration. Channels are 1-based.
type Config struct {
	Mapping mapping.NoteMapping
	// SnapCM rounds distances to buckets of this size before quantizing.
	SnapCM float64

	LeadChannel  uint8
	LeadVelocity uint8

	PercussionChannel uint8
	DrumNote          uint8
	// DrumVelocity is used for gesture-triggered drum one-shots.
	DrumVelocity uint8

	ControlChannel           uint8
	RecordCC                 uint8
	InsertTrackCC            uint8
	InsertOnRecordStart      bool
	InsertOnInstrumentChange bool

	BPM          float64
	CountInBeats int

	WatchdogTimeout time.Duration

	// Instruments maps gesture instrument labels. Unknown labels are lead
	// instruments without a program.
	Instruments map[string]Instrument
}

// CountIn is the mute window that follows a recording start.
func (c Config) CountIn() time.Duration {
	if c.BPM <= 0 {
		return 0
	}
	return time.Duration(float64(c.CountInBeats) * 60 / c.BPM * float64(time.Second))
}

func (c Config) instrument(label string) Instrument {
	if inst, ok := c.Instruments[label]; ok {
		return inst
	}
	return Instrument{Kind: Lead}
}

var (
	ErrChannel  = errors.New("midi channel must be between 1 and 16")
	ErrDataByte = errors.New("midi data byte must be between 0 and 127")
)

// Validate reports every problem found.
func (c Config) Validate() error {
	err := c.Mapping.Validate()

	for name, ch := range map[string]uint8{
		"lead_channel":       c.LeadChannel,
		"percussion_channel": c.PercussionChannel,
		"control_channel":    c.ControlChannel,
	} {
		if ch < 1 || ch > 16 {
			err = multierr.Append(err, fmt.Errorf("%s: %w (got %d)", name, ErrChannel, ch))
		}
	}
	for name, v := range map[string]uint8{
		"lead_velocity":   c.LeadVelocity,
		"drum_note":       c.DrumNote,
		"drum_velocity":   c.DrumVelocity,
		"record_cc":       c.RecordCC,
		"insert_track_cc": c.InsertTrackCC,
	} {
		if v > 127 {
			err = multierr.Append(err, fmt.Errorf("%s: %w (got %d)", name, ErrDataByte, v))
		}
	}
	if c.BPM <= 0 {
		err = multierr.Append(err, fmt.Errorf("bpm must be positive (got %v)", c.BPM))
	}
	if c.CountInBeats < 0 {
		err = multierr.Append(err, fmt.Errorf("countin_beats must not be negative (got %d)", c.CountInBeats))
	}
	if c.WatchdogTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("watchdog timeout must be positive (got %s)", c.WatchdogTimeout))
	}
	if c.SnapCM < 0 {
		err = multierr.Append(err, fmt.Errorf("snap_cm must not be negative (got %v)", c.SnapCM))
	}
	for label, inst := range c.Instruments {
		switch inst.Kind {
		case Lead, Drum:
		default:
			err = multierr.Append(err, fmt.Errorf("instrument %q: unknown type %q", label, inst.Kind))
		}
		if (inst.Note != nil && *inst.Note > 127) || (inst.Program != nil && *inst.Program > 127) {
			err = multierr.Append(err, fmt.Errorf("instrument %q: %w", label, ErrDataByte))
		}
	}
	return err
}
