package contracts

import "fmt"

// MIDICommand is the status nibble of a channel voice message.
type MIDICommand byte

const (
	// NoteOff is the MIDI command for a Note Off event (0x80).
	NoteOff MIDICommand = 0x80
	// NoteOn is the MIDI command for a Note On event (0x90).
	NoteOn MIDICommand = 0x90
	// ControlChange is the MIDI command for a Control Change event (0xB0).
	ControlChange MIDICommand = 0xB0
	// ProgramChange is the MIDI command for a Program Change event (0xC0).
	ProgramChange MIDICommand = 0xC0
)

// String returns the snake_case name of the command.
func (c MIDICommand) String() string {
	switch c {
	case NoteOff:
		return "note_off"
	case NoteOn:
		return "note_on"
	case ControlChange:
		return "control_change"
	case ProgramChange:
		return "program_change"
	}
	return fmt.Sprintf("command(0x%X)", byte(c))
}

// PortRole names one of the two logical output ports.
type PortRole uint8

const (
	// MusicalPort carries lead and percussion notes.
	MusicalPort PortRole = iota
	// ControlPort carries transport control changes.
	ControlPort
)

// String returns the role name used in configuration and logs.
func (r PortRole) String() string {
	if r == ControlPort {
		return "control"
	}
	return "musical"
}

// MidiCommand is a single outbound channel voice message addressed to a
// logical port. Channel is 1-based (1-16).
type MidiCommand struct {
	Kind    MIDICommand
	Channel uint8
	Data1   uint8 // note, controller or program number
	Data2   uint8 // velocity or controller value; unused for ProgramChange
	Port    PortRole
}

// NoteOnCommand builds a NoteOn for the musical port.
func NoteOnCommand(channel, note, velocity uint8) MidiCommand {
	return MidiCommand{Kind: NoteOn, Channel: channel, Data1: note, Data2: velocity, Port: MusicalPort}
}

// NoteOffCommand builds a zero-velocity NoteOff for the musical port.
func NoteOffCommand(channel, note uint8) MidiCommand {
	return MidiCommand{Kind: NoteOff, Channel: channel, Data1: note, Port: MusicalPort}
}

// ControlChangeCommand builds a ControlChange for the control port.
func ControlChangeCommand(channel, controller, value uint8) MidiCommand {
	return MidiCommand{Kind: ControlChange, Channel: channel, Data1: controller, Data2: value, Port: ControlPort}
}

// ProgramChangeCommand builds a ProgramChange for the musical port.
func ProgramChangeCommand(channel, program uint8) MidiCommand {
	return MidiCommand{Kind: ProgramChange, Channel: channel, Data1: program, Port: MusicalPort}
}

// Bytes encodes the command as raw MIDI. Out-of-range channels are folded
// into 1-16 and data bytes are masked to 7 bits.
func (c MidiCommand) Bytes() []byte {
	ch := c.Channel
	if ch < 1 || ch > 16 {
		ch = 1
	}
	status := byte(c.Kind) | (ch - 1)
	if c.Kind == ProgramChange {
		return []byte{status, c.Data1 & 0x7F}
	}
	return []byte{status, c.Data1 & 0x7F, c.Data2 & 0x7F}
}

// String renders the command for logs and trace files.
func (c MidiCommand) String() string {
	if c.Kind == ProgramChange {
		return fmt.Sprintf("%s ch=%d data1=%d port=%s", c.Kind, c.Channel, c.Data1, c.Port)
	}
	return fmt.Sprintf("%s ch=%d data1=%d data2=%d port=%s", c.Kind, c.Channel, c.Data1, c.Data2, c.Port)
}

// OutputPort is an opened MIDI destination.
type OutputPort interface {
	Name() string
	Send(msg []byte) error
	Close() error
}

// MIDIDriver enumerates and opens output ports on one platform backend.
type MIDIDriver interface {
	ListPorts() ([]DeviceInfo, error)
	OpenPort(name string) (OutputPort, error)
	Close() error
}
