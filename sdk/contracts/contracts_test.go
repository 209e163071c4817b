package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMidiCommandBytes(t *testing.T) {
	tests := []struct {
		name string
		cmd  MidiCommand
		want []byte
	}{
		{"note on", NoteOnCommand(1, 60, 100), []byte{0x90, 60, 100}},
		{"note off drum channel", NoteOffCommand(10, 36), []byte{0x89, 36, 0}},
		{"control change", ControlChangeCommand(16, 20, 127), []byte{0xBF, 20, 127}},
		{"program change is two bytes", ProgramChangeCommand(2, 48), []byte{0xC1, 48}},
		{"bad channel folds to 1", NoteOnCommand(0, 60, 1), []byte{0x90, 60, 1}},
		{"data masked to 7 bits", NoteOnCommand(1, 200, 255), []byte{0x90, 200 & 0x7F, 0x7F}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.Bytes())
		})
	}
}

func TestMidiCommandPorts(t *testing.T) {
	assert.Equal(t, MusicalPort, NoteOnCommand(1, 60, 1).Port)
	assert.Equal(t, MusicalPort, ProgramChangeCommand(1, 0).Port)
	assert.Equal(t, ControlPort, ControlChangeCommand(1, 20, 127).Port)
}

func TestMidiCommandString(t *testing.T) {
	assert.Equal(t, "note_on ch=1 data1=60 data2=100 port=musical", NoteOnCommand(1, 60, 100).String())
	assert.Equal(t, "program_change ch=1 data1=48 port=musical", ProgramChangeCommand(1, 48).String())
	assert.Equal(t, "command(0xE0)", MIDICommand(0xE0).String())
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{
		"debug":   DebugLevel,
		"":        InfoLevel,
		" INFO ":  InfoLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"fatal":   FatalLevel,
	} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		if in == "debug" {
			assert.Equal(t, "debug", got.String())
		}
	}

	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
}

func TestPortNames(t *testing.T) {
	assert.Equal(t, "none", PortNames(nil))
	assert.Equal(t, "IAC Bus 1, AirDAW Control",
		PortNames([]DeviceInfo{{Name: "IAC Bus 1"}, {Name: "AirDAW Control"}}))
}

func TestOptions(t *testing.T) {
	var o EmitterOptions
	assert.False(t, o.LevelSet())
	for _, opt := range []Option{
		WithLogLevel(WarnLevel),
		WithClientName("airdaw"),
		WithPorts("A", "B"),
	} {
		opt(&o)
	}
	assert.True(t, o.LevelSet())
	assert.Equal(t, WarnLevel, o.LogLevel)
	assert.Equal(t, "airdaw", o.ClientName)
	assert.Equal(t, "A", o.MusicalPort)
	assert.Equal(t, "B", o.ControlPort)
}

func TestGestureProviderFunc(t *testing.T) {
	p := GestureProviderFunc(func() (GestureSnapshot, error) {
		return GestureSnapshot{Mode: ModePlay, Instrument: "piano"}, nil
	})
	g, err := p.Snapshot()
	require.NoError(t, err)
	assert.True(t, g.Playable())
	assert.False(t, GestureSnapshot{Mode: ModeIdle}.Playable())
}
