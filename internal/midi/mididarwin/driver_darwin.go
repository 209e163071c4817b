//go:build darwin
// +build darwin

package mididarwin

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/airdaw/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// Error definitions for CoreMIDI output handling.
var (
	ErrNoMIDIDestinations = errors.New("no MIDI destinations found")
	ErrDestinationMissing = errors.New("MIDI destination not found")
	ErrCreateOutputPort   = errors.New("error creating output port")
	ErrPortClosed         = errors.New("MIDI port closed")
)

// Driver sends MIDI to CoreMIDI destinations on macOS.
type Driver struct {
	logger contracts.Logger
	client coremidi.Client
	mu     sync.Mutex
	ports  []*outputPort
}

// NewDriver registers a CoreMIDI client under the configured name.
func NewDriver(options *contracts.EmitterOptions) (contracts.MIDIDriver, error) {
	client, err := coremidi.NewClient(options.ClientName)
	if err != nil {
		return nil, fmt.Errorf("create CoreMIDI client: %w", err)
	}
	options.Logger.Info("CoreMIDI client created", options.Logger.Field().String("client", options.ClientName))

	return &Driver{logger: options.Logger, client: client}, nil
}

// ListPorts returns every CoreMIDI destination.
func (d *Driver) ListPorts() ([]contracts.DeviceInfo, error) {
	dests, err := coremidi.AllDestinations()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI destinations: %w", err)
	}
	if len(dests) == 0 {
		d.logger.Warn(ErrNoMIDIDestinations.Error())
		return nil, nil
	}

	devices := make([]contracts.DeviceInfo, len(dests))
	for i, dest := range dests {
		devices[i] = contracts.DeviceInfo{Name: dest.Name(), EntityName: dest.Name()}
	}
	return devices, nil
}

// OpenPort creates an output port bound to the named destination.
func (d *Driver) OpenPort(name string) (contracts.OutputPort, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dests, err := coremidi.AllDestinations()
	if err != nil {
		return nil, fmt.Errorf("error retrieving MIDI destinations: %w", err)
	}
	var found *coremidi.Destination
	for i := range dests {
		if dests[i].Name() == name {
			found = &dests[i]
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %q", ErrDestinationMissing, name)
	}

	port, err := coremidi.NewOutputPort(d.client, "airdaw "+name)
	if err != nil {
		d.logger.Error(ErrCreateOutputPort.Error(), d.logger.Field().String("port", name))
		return nil, fmt.Errorf("%w: %v", ErrCreateOutputPort, err)
	}

	p := &outputPort{name: name, port: port, dest: *found}
	d.ports = append(d.ports, p)
	d.logger.Info("MIDI destination connected", d.logger.Field().String("port", name))
	return p, nil
}

// Close marks every opened port closed. CoreMIDI releases the client with
// the process.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.ports {
		_ = p.Close()
	}
	d.ports = nil
	return nil
}

type outputPort struct {
	name string
	port coremidi.OutputPort
	dest coremidi.Destination

	mu     sync.Mutex
	closed bool
}

func (p *outputPort) Name() string { return p.name }

func (p *outputPort) Send(msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPortClosed
	}
	packet := coremidi.Packet{Data: msg}
	return packet.Send(&p.port, &p.dest)
}

func (p *outputPort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}
