// Package midi opens the musical and control output ports and forwards
// router commands to them.
package midi

import (
	"errors"
	"fmt"

	"github.com/leandrodaf/airdaw/sdk/contracts"
	"go.uber.org/multierr"
)

// ErrPortNotFound is returned when a configured port does not exist.
var ErrPortNotFound = errors.New("MIDI output port not found")

// Emitter forwards commands to the port their role names.
type Emitter struct {
	driver  contracts.MIDIDriver
	musical contracts.OutputPort
	control contracts.OutputPort
	log     contracts.Logger
}

// NewEmitter opens both configured ports. A missing port is an error naming
// the port and every port that is available.
func NewEmitter(opts ...contracts.Option) (*Emitter, error) {
	options := applyDefaultOptions(opts...)

	driver, err := NewDriver(&options)
	if err != nil {
		return nil, err
	}

	e, err := open(driver, &options)
	if err != nil {
		return nil, multierr.Append(err, driver.Close())
	}
	return e, nil
}

func open(driver contracts.MIDIDriver, options *contracts.EmitterOptions) (*Emitter, error) {
	available, err := driver.ListPorts()
	if err != nil {
		return nil, fmt.Errorf("list MIDI ports: %w", err)
	}
	for _, want := range []struct{ role, name string }{
		{contracts.MusicalPort.String(), options.MusicalPort},
		{contracts.ControlPort.String(), options.ControlPort},
	} {
		if !hasPort(available, want.name) {
			return nil, fmt.Errorf("%w: %s port %q; available ports: %s",
				ErrPortNotFound, want.role, want.name, contracts.PortNames(available))
		}
	}

	musical, err := driver.OpenPort(options.MusicalPort)
	if err != nil {
		return nil, fmt.Errorf("open musical port %q: %w", options.MusicalPort, err)
	}
	control := musical
	if options.ControlPort != options.MusicalPort {
		control, err = driver.OpenPort(options.ControlPort)
		if err != nil {
			return nil, multierr.Append(
				fmt.Errorf("open control port %q: %w", options.ControlPort, err),
				musical.Close())
		}
	}

	options.Logger.Info("MIDI ports opened",
		options.Logger.Field().String("musical", options.MusicalPort),
		options.Logger.Field().String("control", options.ControlPort))

	return &Emitter{driver: driver, musical: musical, control: control, log: options.Logger}, nil
}

func hasPort(devices []contracts.DeviceInfo, name string) bool {
	for _, d := range devices {
		if d.Name == name {
			return true
		}
	}
	return false
}

// Emit sends one command on the port its role selects.
func (e *Emitter) Emit(cmd contracts.MidiCommand) error {
	port := e.musical
	if cmd.Port == contracts.ControlPort {
		port = e.control
	}
	if err := port.Send(cmd.Bytes()); err != nil {
		return fmt.Errorf("send %s to %q: %w", cmd.Kind, port.Name(), err)
	}
	return nil
}

// Close closes both ports and the driver.
func (e *Emitter) Close() error {
	err := e.musical.Close()
	if e.control != e.musical {
		err = multierr.Append(err, e.control.Close())
	}
	return multierr.Append(err, e.driver.Close())
}

// ListPorts lists the output ports of the selected driver.
func ListPorts(opts ...contracts.Option) ([]contracts.DeviceInfo, error) {
	options := applyDefaultOptions(opts...)
	driver, err := NewDriver(&options)
	if err != nil {
		return nil, err
	}
	devices, err := driver.ListPorts()
	return devices, multierr.Append(err, driver.Close())
}
