package exchange

import (
	"slices"
	"strings"

	"github.com/rescp17/nearbyExchanger/pkg/device"
)

// State is the snapshot published by an engine. It is treated as immutable:
// every operation returns a new State and leaves the receiver untouched.
type State struct {
	Mode    Mode
	Devices []device.RemoteDevice
}

// NewState returns the initial state: stopped, no devices.
func NewState() State {
	return State{Mode: Stopped{}}
}

// WithMode returns a copy in mode m.
func (s State) WithMode(m Mode) State {
	s.Mode = m
	return s
}

// SetDevice inserts d or replaces the entry with the same endpoint id. The
// result is sorted by name.
func (s State) SetDevice(d device.RemoteDevice) State {
	devices := make([]device.RemoteDevice, 0, len(s.Devices)+1)
	for _, existing := range s.Devices {
		if existing.EndpointID != d.EndpointID {
			devices = append(devices, existing)
		}
	}
	devices = append(devices, d)
	sortDevices(devices)
	s.Devices = devices
	return s
}

// RemoveDevice drops the device with endpointID, if any.
func (s State) RemoveDevice(endpointID string) State {
	devices := make([]device.RemoteDevice, 0, len(s.Devices))
	for _, existing := range s.Devices {
		if existing.EndpointID != endpointID {
			devices = append(devices, existing)
		}
	}
	s.Devices = devices
	return s
}

// WithoutDevices returns a copy with an empty registry.
func (s State) WithoutDevices() State {
	s.Devices = nil
	return s
}

// Device looks up a device by endpoint id.
func (s State) Device(endpointID string) (device.RemoteDevice, bool) {
	for _, d := range s.Devices {
		if d.EndpointID == endpointID {
			return d, true
		}
	}
	return device.RemoteDevice{}, false
}

// AnyConnected reports whether at least one device is connected.
func (s State) AnyConnected() bool {
	return slices.ContainsFunc(s.Devices, func(d device.RemoteDevice) bool {
		return d.ConnectionState == device.Connected
	})
}

// Connected returns the connected devices in display order.
func (s State) Connected() []device.RemoteDevice {
	var out []device.RemoteDevice
	for _, d := range s.Devices {
		if d.ConnectionState == device.Connected {
			out = append(out, d)
		}
	}
	return out
}

func sortDevices(devices []device.RemoteDevice) {
	slices.SortStableFunc(devices, func(a, b device.RemoteDevice) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.EndpointID, b.EndpointID)
	})
}
