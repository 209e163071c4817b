//go:build !windows
// +build !windows

package midiwindows

import (
	"errors"

	"github.com/leandrodaf/airdaw/sdk/contracts"
)

var ErrUnavailable = errors.New("winmm is not available on this platform")

// NewDriver fails on non-Windows systems.
func NewDriver(options *contracts.EmitterOptions) (contracts.MIDIDriver, error) {
	options.Logger.Warn("winmm driver requested on non-Windows system")
	return nil, ErrUnavailable
}
