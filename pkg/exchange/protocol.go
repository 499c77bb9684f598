package exchange

import (
	"github.com/rescp17/nearbyExchanger/pkg/concurrency"
	"github.com/rescp17/nearbyExchanger/pkg/device"
)

// --- Commands (coordinator -> engine) ---

// Command is a request for a transport action. Only types from this package
// satisfy it.
type Command interface {
	isCommand()
}

type command struct{}

func (command) isCommand() {}

// ConnectEndpoint asks the engine to connect to a discovered endpoint.
type ConnectEndpoint struct {
	command
	EndpointID string
}

// DisconnectEndpoint asks the engine to drop the link to an endpoint.
type DisconnectEndpoint struct {
	command
	EndpointID string
}

// StopSearching ends discovery while keeping established connections.
type StopSearching struct {
	command
}

// SendFile sends one file to every connected endpoint.
type SendFile struct {
	command
	Path string
}

// SendDirectory sends every file under a directory to every connected endpoint.
type SendDirectory struct {
	command
	Path string
}

var (
	_ Command = ConnectEndpoint{}
	_ Command = DisconnectEndpoint{}
	_ Command = StopSearching{}
	_ Command = SendFile{}
	_ Command = SendDirectory{}
)

// --- Events (engine -> coordinator) ---

// Event is a discrete occurrence published by an engine.
type Event interface {
	isEvent()
	EndpointID() string
}

// EndpointConnected fires when a connection result succeeds. Device is the
// snapshot taken right after the device was marked connected.
type EndpointConnected struct {
	Device device.RemoteDevice
}

// EndpointDisconnected fires when an established peer goes away.
type EndpointDisconnected struct {
	Device device.RemoteDevice
}

// SendFinished fires when an outbound batch started by SendFile or
// SendDirectory ends. Err is nil when every file reached every connected peer.
type SendFinished struct {
	Path string
	Err  error
}

func (EndpointConnected) isEvent()    {}
func (EndpointDisconnected) isEvent() {}
func (SendFinished) isEvent()         {}

func (e EndpointConnected) EndpointID() string    { return e.Device.EndpointID }
func (e EndpointDisconnected) EndpointID() string { return e.Device.EndpointID }

// EndpointID is empty because a batch goes to every connected peer.
func (SendFinished) EndpointID() string { return "" }

// Exchanger is the role-polymorphic engine driving the proximity transport.
//
// Execute, Start and Stop never block on the transport and never return
// errors: outcomes show up in State and Events.
type Exchanger interface {
	Role() Role
	// State replays the latest snapshot to every new subscriber.
	State() *concurrency.StateCell[State]
	// Events is multicast and not replayed.
	Events() *concurrency.EventBus[Event]
	Execute(cmd Command)
	// Start begins advertising or discovery, restarting cleanly if running.
	Start()
	// Stop ends the activity. Stopping a stopped engine is a no-op.
	Stop()
}
