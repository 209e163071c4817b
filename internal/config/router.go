package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/leandrodaf/airdaw/internal/mapping"
	"github.com/leandrodaf/airdaw/internal/router"
	"github.com/leandrodaf/airdaw/sdk/contracts"
	"go.uber.org/multierr"
)

// Gesture sources.
const (
	GestureOSC    = "osc"
	GestureStatic = "static"
)

// MIDI drivers selectable from configuration.
const (
	DriverPlatform = ""
	DriverMemory   = "memory"
)

// InstrumentEntry is one instrument_map item.
type InstrumentEntry struct {
	Type    string `yaml:"type"`
	Program *int   `yaml:"program"`
	Note    *int   `yaml:"note"`
}

// RouterConfig is the router node configuration file.
type RouterConfig struct {
	OSC struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"osc"`

	Router struct {
		TickHz                   float64 `yaml:"tick_hz"`
		WatchdogS                float64 `yaml:"watchdog_s"`
		InsertOnInstrumentChange bool    `yaml:"auto_insert_track_on_instrument_change"`
		InsertOnRecordStart      bool    `yaml:"auto_insert_track_on_record_start"`
		SnapCM                   float64 `yaml:"snap_cm"`
	} `yaml:"router"`

	Transport struct {
		BPM          float64 `yaml:"bpm"`
		CountInBeats int     `yaml:"countin_beats"`
	} `yaml:"transport"`

	MIDI struct {
		Driver              string `yaml:"driver"`
		ClientName          string `yaml:"client_name"`
		MusicalPort         string `yaml:"musical_port"`
		ControlPort         string `yaml:"control_port"`
		DrumChannel         int    `yaml:"drum_channel"`
		LeadChannel         int    `yaml:"lead_channel"`
		ControlChannel      int    `yaml:"control_channel"`
		DrumNote            int    `yaml:"drum_note"`
		DrumVelocityDefault int    `yaml:"drum_velocity_default"`
		LeadVelocity        int    `yaml:"lead_velocity"`
		RecordCC            int    `yaml:"record_cc"`
		InsertTrackCC       int    `yaml:"insert_track_cc"`
	} `yaml:"midi"`

	Mapping struct {
		DMinCM         float64 `yaml:"d_min_cm"`
		DMaxCM         float64 `yaml:"d_max_cm"`
		NoteLo         int     `yaml:"note_lo"`
		NoteHi         int     `yaml:"note_hi"`
		CloserIsHigher bool    `yaml:"closer_is_higher"`
		Scale          string  `yaml:"scale"`
		Root           int     `yaml:"root"`
	} `yaml:"mapping"`

	InstrumentMap map[string]InstrumentEntry `yaml:"instrument_map"`

	Gesture struct {
		Source    string `yaml:"source"`
		Listen    string `yaml:"listen"`
		StaleMS   int    `yaml:"stale_ms"`
		TimeoutMS int    `yaml:"timeout_ms"`
		Static    struct {
			Instrument string `yaml:"instrument"`
			Mode       string `yaml:"mode"`
			Recording  bool   `yaml:"recording"`
			NoteActive bool   `yaml:"note_active"`
		} `yaml:"static"`
	} `yaml:"gesture"`

	Journal struct {
		Path     string `yaml:"path"`
		Capacity int    `yaml:"capacity"`
	} `yaml:"journal"`

	Logging LoggingConfig `yaml:"logging"`
}

// DefaultRouter returns the built-in router node defaults.
func DefaultRouter() RouterConfig {
	var c RouterConfig
	c.OSC.Host = "0.0.0.0"
	c.OSC.Port = 9000
	c.Router.TickHz = 100
	c.Router.WatchdogS = 0.5
	c.Transport.BPM = 120
	c.Transport.CountInBeats = 4
	c.MIDI.ClientName = "airdaw"
	c.MIDI.MusicalPort = "AirDAW Musical"
	c.MIDI.ControlPort = "AirDAW Control"
	c.MIDI.DrumChannel = 10
	c.MIDI.LeadChannel = 1
	c.MIDI.ControlChannel = 1
	c.MIDI.DrumNote = 36
	c.MIDI.DrumVelocityDefault = 100
	c.MIDI.LeadVelocity = 100
	c.MIDI.RecordCC = 20
	c.MIDI.InsertTrackCC = 21
	c.Mapping.DMinCM = 15
	c.Mapping.DMaxCM = 60
	c.Mapping.NoteLo = 48
	c.Mapping.NoteHi = 72
	c.Mapping.CloserIsHigher = true
	c.Mapping.Scale = string(mapping.Chromatic)
	c.Gesture.Source = GestureOSC
	c.Gesture.Listen = "127.0.0.1:9100"
	c.Gesture.StaleMS = 1000
	c.Gesture.TimeoutMS = 5
	c.Gesture.Static.Mode = string(contracts.ModeIdle)
	c.Journal.Capacity = 256
	c.Logging.Level = "info"
	return c
}

// LoadRouter reads path (optional) over the defaults, applies environment
// overrides and validates the result.
func LoadRouter(path string) (RouterConfig, error) {
	c := DefaultRouter()
	if err := decodeFile(path, &c); err != nil {
		return c, err
	}
	if err := c.applyEnv(); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c *RouterConfig) applyEnv() error {
	envString("LISTEN_HOST", &c.OSC.Host)
	envString("MUSICAL_PORT", &c.MIDI.MusicalPort)
	envString("CONTROL_PORT", &c.MIDI.ControlPort)
	envString("MIDI_DRIVER", &c.MIDI.Driver)
	envString("GESTURE_LISTEN", &c.Gesture.Listen)
	envString("JOURNAL", &c.Journal.Path)
	envString("LOG_LEVEL", &c.Logging.Level)
	return envInt("LISTEN_PORT", &c.OSC.Port)
}

// Validate reports every invalid field.
func (c RouterConfig) Validate() error {
	var err error
	if c.Router.TickHz <= 0 {
		err = multierr.Append(err, fmt.Errorf("router.tick_hz must be greater than zero (got %v)", c.Router.TickHz))
	}
	err = multierr.Append(err, inRange("osc.port", c.OSC.Port, 1, 65535))

	for name, v := range map[string]int{
		"midi.drum_channel":    c.MIDI.DrumChannel,
		"midi.lead_channel":    c.MIDI.LeadChannel,
		"midi.control_channel": c.MIDI.ControlChannel,
	} {
		err = multierr.Append(err, inRange(name, v, 1, 16))
	}
	for name, v := range map[string]int{
		"midi.drum_note":             c.MIDI.DrumNote,
		"midi.drum_velocity_default": c.MIDI.DrumVelocityDefault,
		"midi.lead_velocity":         c.MIDI.LeadVelocity,
		"midi.record_cc":             c.MIDI.RecordCC,
		"midi.insert_track_cc":       c.MIDI.InsertTrackCC,
	} {
		err = multierr.Append(err, inRange(name, v, 0, 127))
	}
	err = multierr.Append(err, inRange("mapping.root", c.Mapping.Root, 0, 11))
	if c.MIDI.MusicalPort == "" || c.MIDI.ControlPort == "" {
		err = multierr.Append(err, fmt.Errorf("midi.musical_port and midi.control_port must be set"))
	}
	switch c.MIDI.Driver {
	case DriverPlatform, DriverMemory:
	default:
		err = multierr.Append(err, fmt.Errorf("midi.driver: unknown driver %q", c.MIDI.Driver))
	}

	for label, e := range c.InstrumentMap {
		if e.Program != nil {
			err = multierr.Append(err, inRange(fmt.Sprintf("instrument_map.%s.program", label), *e.Program, 0, 127))
		}
		if e.Note != nil {
			err = multierr.Append(err, inRange(fmt.Sprintf("instrument_map.%s.note", label), *e.Note, 0, 127))
		}
	}

	switch c.Gesture.Source {
	case GestureOSC:
		if c.Gesture.Listen == "" {
			err = multierr.Append(err, fmt.Errorf("gesture.listen must be set for the osc source"))
		}
	case GestureStatic:
		switch contracts.Mode(c.Gesture.Static.Mode) {
		case contracts.ModeIdle, contracts.ModePlay:
		default:
			err = multierr.Append(err, fmt.Errorf("gesture.static.mode: unknown mode %q", c.Gesture.Static.Mode))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("gesture.source: unknown source %q", c.Gesture.Source))
	}
	if c.Gesture.TimeoutMS < 0 || c.Gesture.StaleMS < 0 {
		err = multierr.Append(err, fmt.Errorf("gesture timeouts must not be negative"))
	}
	if c.Journal.Capacity < 0 {
		err = multierr.Append(err, fmt.Errorf("journal.capacity must not be negative"))
	}
	err = multierr.Append(err, c.Logging.validate())

	// Build narrows to uint8 and assumes the ranges above hold.
	if err != nil {
		return err
	}
	rc, e := c.Build()
	if e != nil {
		return e
	}
	return rc.Validate()
}

// Period is the router tick length.
func (c RouterConfig) Period() time.Duration {
	return time.Duration(float64(time.Second) / c.Router.TickHz)
}

// ListenAddr is the telemetry listen address.
func (c RouterConfig) ListenAddr() string {
	return net.JoinHostPort(c.OSC.Host, strconv.Itoa(c.OSC.Port))
}

// GestureTimeout bounds one gesture provider call.
func (c RouterConfig) GestureTimeout() time.Duration {
	return time.Duration(c.Gesture.TimeoutMS) * time.Millisecond
}

// GestureStale is the age after which an OSC gesture report is ignored.
func (c RouterConfig) GestureStale() time.Duration {
	return time.Duration(c.Gesture.StaleMS) * time.Millisecond
}

// StaticGesture is the snapshot served by the static source.
func (c RouterConfig) StaticGesture() contracts.GestureSnapshot {
	s := c.Gesture.Static
	return contracts.GestureSnapshot{
		Instrument: s.Instrument,
		Mode:       contracts.Mode(s.Mode),
		Recording:  s.Recording,
		NoteActive: s.NoteActive,
	}
}

// EmitterOptions lists the MIDI emitter options for the configured ports.
func (c RouterConfig) EmitterOptions(log contracts.Logger) []contracts.Option {
	return []contracts.Option{
		contracts.WithLogger(log),
		contracts.WithClientName(c.MIDI.ClientName),
		contracts.WithPorts(c.MIDI.MusicalPort, c.MIDI.ControlPort),
	}
}

// Build converts the file into the router configuration.
func (c RouterConfig) Build() (router.Config, error) {
	scale, err := mapping.ParseScale(c.Mapping.Scale)
	if err != nil {
		return router.Config{}, fmt.Errorf("mapping.scale: %w", err)
	}

	instruments := make(map[string]router.Instrument, len(c.InstrumentMap))
	for label, e := range c.InstrumentMap {
		inst := router.Instrument{Kind: router.InstrumentKind(e.Type)}
		if inst.Kind == "" {
			inst.Kind = router.Lead
		}
		if e.Program != nil {
			p := uint8(*e.Program)
			inst.Program = &p
		}
		if e.Note != nil {
			n := uint8(*e.Note)
			inst.Note = &n
		}
		instruments[label] = inst
	}

	return router.Config{
		Mapping: mapping.NoteMapping{
			DistanceLow:    c.Mapping.DMinCM,
			DistanceHigh:   c.Mapping.DMaxCM,
			NoteLow:        c.Mapping.NoteLo,
			NoteHigh:       c.Mapping.NoteHi,
			CloserIsHigher: c.Mapping.CloserIsHigher,
			Scale:          scale,
			Root:           c.Mapping.Root,
		},
		SnapCM:                   c.Router.SnapCM,
		LeadChannel:              uint8(c.MIDI.LeadChannel),
		LeadVelocity:             uint8(c.MIDI.LeadVelocity),
		PercussionChannel:        uint8(c.MIDI.DrumChannel),
		DrumNote:                 uint8(c.MIDI.DrumNote),
		DrumVelocity:             uint8(c.MIDI.DrumVelocityDefault),
		ControlChannel:           uint8(c.MIDI.ControlChannel),
		RecordCC:                 uint8(c.MIDI.RecordCC),
		InsertTrackCC:            uint8(c.MIDI.InsertTrackCC),
		InsertOnRecordStart:      c.Router.InsertOnRecordStart,
		InsertOnInstrumentChange: c.Router.InsertOnInstrumentChange,
		BPM:                      c.Transport.BPM,
		CountInBeats:             c.Transport.CountInBeats,
		WatchdogTimeout:          seconds(c.Router.WatchdogS),
		Instruments:              instruments,
	}, nil
}
