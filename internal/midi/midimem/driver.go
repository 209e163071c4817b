// Package midimem is an in-memory MIDI driver for dry runs and tests.
package midimem

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/airdaw/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
)

var (
	ErrPortMissing = errors.New("port not found")
	ErrPortClosed  = errors.New("port closed")
)

// Driver exposes a fixed set of named ports that record what they receive.
type Driver struct {
	mu     sync.Mutex
	ports  map[string]*Port
	order  []string
	closed bool
}

// New creates a driver with one port per name.
func New(names ...string) *Driver {
	d := &Driver{ports: make(map[string]*Port, len(names))}
	for _, n := range names {
		if _, ok := d.ports[n]; ok {
			continue
		}
		d.ports[n] = &Port{name: n}
		d.order = append(d.order, n)
	}
	return d
}

// ListPorts returns the ports in creation order.
func (d *Driver) ListPorts() ([]contracts.DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]contracts.DeviceInfo, len(d.order))
	for i, n := range d.order {
		out[i] = contracts.DeviceInfo{Name: n, EntityName: n, Manufacturer: "airdaw"}
	}
	return out, nil
}

// OpenPort opens a named port.
func (d *Driver) OpenPort(name string) (contracts.OutputPort, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.ports[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPortMissing, name)
	}
	p.mu.Lock()
	p.open = true
	p.mu.Unlock()
	return p, nil
}

// Port returns the named port, opened or not.
func (d *Driver) Port(name string) *Port {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ports[name]
}

// Close closes every port.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for _, p := range d.ports {
		_ = p.Close()
	}
	return nil
}

// Closed reports whether Close was called.
func (d *Driver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Port records messages.
type Port struct {
	name string

	mu       sync.Mutex
	open     bool
	messages []midi.Message
	fail     error
}

func (p *Port) Name() string { return p.name }

// Send records a copy of msg.
func (p *Port) Send(msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return fmt.Errorf("%w: %q", ErrPortClosed, p.name)
	}
	if p.fail != nil {
		return p.fail
	}
	p.messages = append(p.messages, append(midi.Message(nil), msg...))
	return nil
}

func (p *Port) Close() error {
	p.mu.Lock()
	p.open = false
	p.mu.Unlock()
	return nil
}

// FailWith makes every following Send return err; nil restores it.
func (p *Port) FailWith(err error) {
	p.mu.Lock()
	p.fail = err
	p.mu.Unlock()
}

// Messages returns a copy of everything sent so far.
func (p *Port) Messages() []midi.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]midi.Message(nil), p.messages...)
}

// Dump renders the recorded messages in gomidi's notation.
func (p *Port) Dump() []string {
	msgs := p.Messages()
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.String()
	}
	return out
}
