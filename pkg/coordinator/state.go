package coordinator

import (
	"github.com/rescp17/nearbyExchanger/pkg/device"
	"github.com/rescp17/nearbyExchanger/pkg/exchange"
	"github.com/rescp17/nearbyExchanger/pkg/platform"
)

// ConnectionState is the coarse status the screen renders.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Advertising
	Discovering
	Connected
	Error
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Advertising:
		return "advertising"
	case Discovering:
		return "discovering"
	case Connected:
		return "connected"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// CorrespondingRole reports the role an active search state belongs to.
func (s ConnectionState) CorrespondingRole() (exchange.Role, bool) {
	switch s {
	case Advertising:
		return exchange.Advertiser, true
	case Discovering:
		return exchange.Discoverer, true
	case Disconnected, Connected, Error:
		return 0, false
	default:
		return 0, false
	}
}

// ScreenState is the snapshot the UI renders. It is replaced, never mutated.
type ScreenState struct {
	ConnectionState ConnectionState
	// CurrentRole is nil while no session is attached.
	CurrentRole *exchange.Role
	SaveDirs    []platform.SaveDir
	// CurrentDir is the selected save directory path, empty when none.
	CurrentDir string
	StatusText string
	Devices    []device.RemoteDevice
	// CheckingDirectory is set while the persisted save directory is being
	// revalidated at startup. Roles selected meanwhile are queued.
	CheckingDirectory bool
}

// DetermineConnectionState folds an engine snapshot into a ConnectionState.
func DetermineConnectionState(state exchange.State) ConnectionState {
	switch mode := state.Mode.(type) {
	case exchange.Failed:
		return Error
	case exchange.Running:
		switch mode.Role {
		case exchange.Advertiser:
			return Advertising
		case exchange.Discoverer:
			return Discovering
		default:
			return Error
		}
	case exchange.Stopped:
		if state.AnyConnected() {
			return Connected
		}
		return Disconnected
	default:
		return Disconnected
	}
}

// DetermineStatusText returns the failure message while the engine is Failed.
func DetermineStatusText(state exchange.State) string {
	if failed, ok := state.Mode.(exchange.Failed); ok {
		return failed.Message
	}
	return ""
}

// project copies the engine facts into s.
func project(s ScreenState, role exchange.Role, state exchange.State) ScreenState {
	s.ConnectionState = DetermineConnectionState(state)
	s.CurrentRole = &role
	s.Devices = state.Devices
	s.StatusText = DetermineStatusText(state)
	return s
}

// reset drops everything the engine contributed.
func reset(s ScreenState) ScreenState {
	s.ConnectionState = Disconnected
	s.CurrentRole = nil
	s.StatusText = ""
	s.Devices = nil
	return s
}
