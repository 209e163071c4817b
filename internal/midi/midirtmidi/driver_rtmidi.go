//go:build linux && cgo
// +build linux,cgo

// Package midirtmidi sends MIDI through RtMidi (ALSA on Linux).
package midirtmidi

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/airdaw/sdk/contracts"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

var ErrOutputMissing = errors.New("MIDI output not found")

// Driver wraps an rtmididrv.Driver.
type Driver struct {
	logger contracts.Logger
	mu     sync.Mutex
	drv    *rtmididrv.Driver
}

// NewDriver initialises RtMidi.
func NewDriver(options *contracts.EmitterOptions) (contracts.MIDIDriver, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	options.Logger.Info("RtMidi driver created")
	return &Driver{logger: options.Logger, drv: drv}, nil
}

// ListPorts lists RtMidi outputs.
func (d *Driver) ListPorts() ([]contracts.DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	outs, err := d.drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("list outputs: %w", err)
	}
	devices := make([]contracts.DeviceInfo, len(outs))
	for i, out := range outs {
		devices[i] = contracts.DeviceInfo{Name: out.String(), EntityName: out.String()}
	}
	return devices, nil
}

// OpenPort opens the output whose name matches exactly.
func (d *Driver) OpenPort(name string) (contracts.OutputPort, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	outs, err := d.drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("list outputs: %w", err)
	}
	var found drivers.Out
	for _, out := range outs {
		if out.String() == name {
			found = out
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %q", ErrOutputMissing, name)
	}
	if err := found.Open(); err != nil {
		return nil, fmt.Errorf("open %q: %w", name, err)
	}
	d.logger.Info("MIDI output opened", d.logger.Field().String("port", name))
	return &outputPort{name: name, out: found}, nil
}

// Close shuts down RtMidi and every port it opened.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drv.Close()
}

type outputPort struct {
	name string
	mu   sync.Mutex
	out  drivers.Out
}

func (p *outputPort) Name() string { return p.name }

func (p *outputPort) Send(msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.Send(msg)
}

func (p *outputPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.Close()
}
