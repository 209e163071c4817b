//go:build !darwin
// +build !darwin

package mididarwin

import (
	"errors"

	"github.com/leandrodaf/airdaw/sdk/contracts"
)

var ErrUnavailable = errors.New("CoreMIDI is not available on this platform")

// NewDriver fails on systems without CoreMIDI.
func NewDriver(options *contracts.EmitterOptions) (contracts.MIDIDriver, error) {
	options.Logger.Warn("CoreMIDI driver requested on non-macOS system")
	return nil, ErrUnavailable
}
