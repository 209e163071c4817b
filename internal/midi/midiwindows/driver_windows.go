//go:build windows
// +build windows

package midiwindows

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/leandrodaf/airdaw/sdk/contracts"
	"go.uber.org/multierr"
	"golang.org/x/sys/windows"
)

// HMIDIOUT is a winmm output device handle.
type HMIDIOUT windows.Handle

// CALLBACK_NULL opens a device without completion notifications.
const CALLBACK_NULL = 0x00000000

var (
	ErrDeviceMissing = errors.New("MIDI output device not found")
	ErrPortClosed    = errors.New("MIDI port closed")
	ErrShortMessage  = errors.New("MIDI message must be 1 to 3 bytes")
)

// midiOutCaps mirrors MIDIOUTCAPSW.
type midiOutCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	wTechnology    uint16
	wVoices        uint16
	wNotes         uint16
	wChannelMask   uint16
	dwSupport      uint32
}

// Load the winmm.dll library and required functions
var (
	winmm                 = windows.NewLazySystemDLL("winmm.dll")
	procMidiOutGetNumDevs = winmm.NewProc("midiOutGetNumDevs")
	procMidiOutGetDevCaps = winmm.NewProc("midiOutGetDevCapsW")
	procMidiOutOpen       = winmm.NewProc("midiOutOpen")
	procMidiOutShortMsg   = winmm.NewProc("midiOutShortMsg")
	procMidiOutReset      = winmm.NewProc("midiOutReset")
	procMidiOutClose      = winmm.NewProc("midiOutClose")
)

// Driver sends MIDI through the winmm output API.
type Driver struct {
	logger contracts.Logger
	mu     sync.Mutex
	ports  []*outputPort
}

// NewDriver creates a winmm driver.
func NewDriver(options *contracts.EmitterOptions) (contracts.MIDIDriver, error) {
	if err := procMidiOutOpen.Find(); err != nil {
		return nil, fmt.Errorf("load winmm: %w", err)
	}
	options.Logger.Info("MIDI driver created for Windows")
	return &Driver{logger: options.Logger}, nil
}

// ListPorts lists the output devices in winmm order.
func (d *Driver) ListPorts() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiOutGetNumDevs.Call()
	numDevices := uint32(r0)

	devices := make([]contracts.DeviceInfo, 0, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiOutCaps
		r1, _, _ := procMidiOutGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			d.logger.Warn("failed to query MIDI output device", d.logger.Field().Int("device", int(i)))
			continue
		}
		name := windows.UTF16ToString(caps.szPname[:])
		devices = append(devices, contracts.DeviceInfo{
			Name:         name,
			EntityName:   name,
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
		})
	}
	return devices, nil
}

// OpenPort opens the first output device whose name matches.
func (d *Driver) OpenPort(name string) (contracts.OutputPort, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := d.deviceID(name)
	if err != nil {
		return nil, err
	}

	var handle HMIDIOUT
	r1, _, callErr := procMidiOutOpen.Call(
		uintptr(unsafe.Pointer(&handle)),
		uintptr(id),
		0,
		0,
		CALLBACK_NULL,
	)
	if r1 != 0 {
		return nil, fmt.Errorf("failed to open MIDI output %q (mmresult %d): %v", name, r1, callErr)
	}

	p := &outputPort{name: name, handle: handle}
	d.ports = append(d.ports, p)
	d.logger.Info("MIDI output opened", d.logger.Field().String("port", name))
	return p, nil
}

func (d *Driver) deviceID(name string) (uint32, error) {
	r0, _, _ := procMidiOutGetNumDevs.Call()
	for i := uint32(0); i < uint32(r0); i++ {
		var caps midiOutCaps
		r1, _, _ := procMidiOutGetDevCaps.Call(uintptr(i), uintptr(unsafe.Pointer(&caps)), unsafe.Sizeof(caps))
		if r1 == 0 && windows.UTF16ToString(caps.szPname[:]) == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrDeviceMissing, name)
}

// Close closes every port opened through the driver.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	for _, p := range d.ports {
		err = multierr.Append(err, p.Close())
	}
	d.ports = nil
	return err
}

type outputPort struct {
	name   string
	mu     sync.Mutex
	handle HMIDIOUT
}

func (p *outputPort) Name() string { return p.name }

// Send packs up to three bytes little-endian as midiOutShortMsg expects.
func (p *outputPort) Send(msg []byte) error {
	if len(msg) == 0 || len(msg) > 3 {
		return ErrShortMessage
	}
	var packed uint32
	for i, b := range msg {
		packed |= uint32(b) << (8 * i)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == 0 {
		return ErrPortClosed
	}
	r1, _, err := procMidiOutShortMsg.Call(uintptr(p.handle), uintptr(packed))
	if r1 != 0 {
		return fmt.Errorf("midiOutShortMsg %q (mmresult %d): %v", p.name, r1, err)
	}
	return nil
}

func (p *outputPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == 0 {
		return nil
	}
	procMidiOutReset.Call(uintptr(p.handle))
	r1, _, err := procMidiOutClose.Call(uintptr(p.handle))
	p.handle = 0
	if r1 != 0 {
		return fmt.Errorf("failed to close MIDI output %q: %v", p.name, err)
	}
	return nil
}
