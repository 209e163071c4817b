package midi

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/leandrodaf/airdaw/internal/midi/mididarwin"
	"github.com/leandrodaf/airdaw/internal/midi/midirtmidi"
	"github.com/leandrodaf/airdaw/internal/midi/midiwindows"
	"github.com/leandrodaf/airdaw/sdk/contracts"
)

// ErrUnsupportedOS is returned when no MIDI driver exists for the operating system.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// driverInitializers maps OS names to MIDI output drivers.
var driverInitializers = map[string]func(*contracts.EmitterOptions) (contracts.MIDIDriver, error){
	"darwin":  mididarwin.NewDriver,  // CoreMIDI
	"windows": midiwindows.NewDriver, // winmm
	"linux":   midirtmidi.NewDriver,  // RtMidi over ALSA
}

// NewDriver returns opts.Driver when set, otherwise the platform driver.
func NewDriver(opts *contracts.EmitterOptions) (contracts.MIDIDriver, error) {
	if opts.Driver != nil {
		return opts.Driver, nil
	}
	if initializer, exists := driverInitializers[runtime.GOOS]; exists {
		return initializer(opts)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedOS, runtime.GOOS)
}
