//go:build !linux || !cgo
// +build !linux !cgo

// Package midirtmidi sends MIDI through RtMidi (ALSA on Linux).
package midirtmidi

import (
	"errors"

	"github.com/leandrodaf/airdaw/sdk/contracts"
)

var ErrUnavailable = errors.New("RtMidi driver needs linux with cgo")

// NewDriver fails where RtMidi is not compiled in.
func NewDriver(options *contracts.EmitterOptions) (contracts.MIDIDriver, error) {
	options.Logger.Warn("RtMidi driver requested without cgo support")
	return nil, ErrUnavailable
}
