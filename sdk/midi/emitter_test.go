package midi

import (
	"errors"
	"testing"

	"github.com/leandrodaf/airdaw/internal/logger"
	"github.com/leandrodaf/airdaw/internal/midi/midimem"
	"github.com/leandrodaf/airdaw/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
)

func TestNewEmitter_RoutesByRole(t *testing.T) {
	drv := midimem.New("Synth", "DAW Control")
	e, err := NewEmitter(
		contracts.WithDriver(drv),
		contracts.WithLogger(logger.NewNop()),
		contracts.WithPorts("Synth", "DAW Control"),
	)
	require.NoError(t, err)

	require.NoError(t, e.Emit(contracts.NoteOnCommand(1, 64, 100)))
	require.NoError(t, e.Emit(contracts.ControlChangeCommand(1, 20, 127)))
	require.NoError(t, e.Emit(contracts.NoteOnCommand(10, 38, 90)))

	assert.Equal(t, []gomidi.Message{gomidi.NoteOn(0, 64, 100), gomidi.NoteOn(9, 38, 90)},
		drv.Port("Synth").Messages())
	assert.Equal(t, []gomidi.Message{gomidi.ControlChange(0, 20, 127)},
		drv.Port("DAW Control").Messages())

	require.NoError(t, e.Close())
	assert.True(t, drv.Closed())
}

func TestNewEmitter_SharedPort(t *testing.T) {
	drv := midimem.New("Loop")
	e, err := NewEmitter(
		contracts.WithDriver(drv),
		contracts.WithLogger(logger.NewNop()),
		contracts.WithPorts("Loop", "Loop"),
	)
	require.NoError(t, err)

	require.NoError(t, e.Emit(contracts.NoteOnCommand(1, 60, 1)))
	require.NoError(t, e.Emit(contracts.ControlChangeCommand(1, 20, 127)))
	assert.Len(t, drv.Port("Loop").Messages(), 2)
	require.NoError(t, e.Close())
}

func TestNewEmitter_MissingPortNamesAvailable(t *testing.T) {
	drv := midimem.New("Synth", "IAC Bus 1")
	_, err := NewEmitter(
		contracts.WithDriver(drv),
		contracts.WithLogger(logger.NewNop()),
		contracts.WithPorts("Synth", "DAW Control"),
	)

	require.ErrorIs(t, err, ErrPortNotFound)
	assert.Contains(t, err.Error(), `control port "DAW Control"`)
	assert.Contains(t, err.Error(), "available ports: Synth, IAC Bus 1")
	assert.True(t, drv.Closed())
}

func TestEmitter_SendFailureNamesPort(t *testing.T) {
	drv := midimem.New("Synth", "DAW Control")
	e, err := NewEmitter(
		contracts.WithDriver(drv),
		contracts.WithLogger(logger.NewNop()),
		contracts.WithPorts("Synth", "DAW Control"),
	)
	require.NoError(t, err)

	boom := errors.New("device unplugged")
	drv.Port("Synth").FailWith(boom)
	err = e.Emit(contracts.NoteOffCommand(1, 64))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `"Synth"`)
}

func TestApplyDefaultOptions(t *testing.T) {
	opts := applyDefaultOptions(contracts.WithLogger(logger.NewNop()))
	assert.Equal(t, DefaultClientName, opts.ClientName)
	assert.Equal(t, DefaultMusicalPort, opts.MusicalPort)
	assert.Equal(t, DefaultControlPort, opts.ControlPort)
	assert.False(t, opts.LevelSet())
}

func TestListPorts(t *testing.T) {
	devices, err := ListPorts(contracts.WithDriver(midimem.New("A", "B")), contracts.WithLogger(logger.NewNop()))
	require.NoError(t, err)
	assert.Equal(t, "A, B", contracts.PortNames(devices))
}
