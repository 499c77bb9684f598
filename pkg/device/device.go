package device

// ConnectionState is the stage of the exchange with one remote device.
type ConnectionState int

const (
	// Disconnected means the device is known but not linked.
	Disconnected ConnectionState = iota
	// Discovered means the device was seen but never contacted.
	Discovered
	// Connecting means a connection request is in flight.
	Connecting
	// AwaitingConfirm means the transport has initiated the connection and the
	// users are expected to compare the authentication token.
	AwaitingConfirm
	// Connected means payloads can be exchanged.
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Discovered:
		return "discovered"
	case Connecting:
		return "connecting"
	case AwaitingConfirm:
		return "awaiting confirm"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Authenticating reports whether the connection has been initiated but not
// completed, the only stages in which a device carries a token.
func (s ConnectionState) Authenticating() bool {
	switch s {
	case Connecting, AwaitingConfirm:
		return true
	case Disconnected, Discovered, Connected:
		return false
	default:
		return false
	}
}

// RemoteDevice is one discovered or connected peer. It is a value: every
// change produces a new RemoteDevice.
type RemoteDevice struct {
	// EndpointID is assigned by the transport and is only unique within one
	// discovery session.
	EndpointID string `json:"endpoint_id"`
	// Name is the readable label reported by the transport.
	Name string `json:"name"`
	// AuthenticationToken is the short code shown to both users while the
	// connection is being established. Empty when absent.
	AuthenticationToken string          `json:"authentication_token,omitempty"`
	ConnectionState     ConnectionState `json:"connection_state"`
}

// New creates a device in the given state.
func New(endpointID, name string, state ConnectionState) RemoteDevice {
	return RemoteDevice{
		EndpointID:      endpointID,
		Name:            name,
		ConnectionState: state,
	}
}

// Updated returns a copy with the supplied fields replaced. An empty token or
// a nil state leaves the corresponding field unchanged.
func (d RemoteDevice) Updated(token string, state *ConnectionState) RemoteDevice {
	if token != "" {
		d.AuthenticationToken = token
	}
	if state != nil {
		d.ConnectionState = *state
	}
	return d
}

// WithState returns a copy in the given state.
func (d RemoteDevice) WithState(state ConnectionState) RemoteDevice {
	d.ConnectionState = state
	return d
}

// WithName refines the label. An empty name is ignored so a device never
// loses its label.
func (d RemoteDevice) WithName(name string) RemoteDevice {
	if name != "" {
		d.Name = name
	}
	return d
}

// DisplayName is the label used in lists and alerts.
func (d RemoteDevice) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.EndpointID
}
