package contracts

import "strings"

// DeviceInfo describes a MIDI output port as reported by the driver.
type DeviceInfo struct {
	Name         string // Port name, matched against configuration.
	Manufacturer string // Device manufacturer, if the driver reports one.
	EntityName   string // Owning device or entity name.
}

// PortNames joins the names of devices for error messages.
func PortNames(devices []DeviceInfo) string {
	if len(devices) == 0 {
		return "none"
	}
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}
	return strings.Join(names, ", ")
}
