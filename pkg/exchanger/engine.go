// Package exchanger contains the Advertiser and Discoverer engines. They own
// the transport session, translate its callbacks into exchange.State updates
// and exchange.Event values, and execute exchange.Command requests.
package exchanger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rescp17/nearbyExchanger/pkg/concurrency"
	"github.com/rescp17/nearbyExchanger/pkg/device"
	"github.com/rescp17/nearbyExchanger/pkg/exchange"
	"github.com/rescp17/nearbyExchanger/pkg/nearby"
	"github.com/rescp17/nearbyExchanger/pkg/transfer"
)

const (
	DefaultServiceID = "org.nearby.exchanger"
	DefaultStrategy  = nearby.StrategyPointToPoint
	// DefaultRequestTimeout bounds a single call into the transport.
	DefaultRequestTimeout = 15 * time.Second
)

// Options configures an engine. Zero values fall back to defaults.
type Options struct {
	ServiceID string
	// LocalName is announced to peers. Defaults to LocalDeviceName().
	LocalName string
	Strategy  nearby.Strategy
	// Router receives payload callbacks. A router without a writer is created
	// when nil.
	Router         *transfer.Router
	Logger         *slog.Logger
	EventBuffer    int
	RequestTimeout time.Duration
}

// LocalDeviceName derives a readable name for this machine.
func LocalDeviceName() string {
	hostname, err := os.Hostname()
	if err != nil || strings.TrimSpace(hostname) == "" {
		return "nearby-device"
	}
	return strings.TrimSuffix(hostname, ".local")
}

// engine holds what Advertiser and Discoverer share: the state cell, the
// event bus and the transport client.
type engine struct {
	role      exchange.Role
	client    nearby.Client
	serviceID string
	localName string
	strategy  nearby.Strategy
	router    *transfer.Router
	logger    *slog.Logger
	timeout   time.Duration

	state  *concurrency.StateCell[exchange.State]
	events *concurrency.EventBus[exchange.Event]
}

func newEngine(role exchange.Role, client nearby.Client, opts Options) *engine {
	if opts.ServiceID == "" {
		opts.ServiceID = DefaultServiceID
	}
	if opts.LocalName == "" {
		opts.LocalName = LocalDeviceName()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = concurrency.DefaultEventBuffer
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	logger := opts.Logger.With("component", "exchanger", "role", role.String())
	if opts.Router == nil {
		opts.Router = transfer.NewRouter(nil, nil, logger)
	}

	return &engine{
		role:      role,
		client:    client,
		serviceID: opts.ServiceID,
		localName: opts.LocalName,
		strategy:  opts.Strategy,
		router:    opts.Router,
		logger:    logger,
		timeout:   opts.RequestTimeout,
		state:     concurrency.NewStateCell(exchange.NewState()),
		events:    concurrency.NewEventBus[exchange.Event](opts.EventBuffer),
	}
}

func (e *engine) Role() exchange.Role {
	return e.role
}

func (e *engine) State() *concurrency.StateCell[exchange.State] {
	return e.state
}

func (e *engine) Events() *concurrency.EventBus[exchange.Event] {
	return e.events
}

// Transfers exposes the progress of inbound and outbound payloads.
func (e *engine) Transfers() *transfer.StatusManager {
	return e.router.Status()
}

func (e *engine) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), e.timeout)
}

func (e *engine) setDevice(d device.RemoteDevice) {
	e.state.Update(func(s exchange.State) exchange.State {
		return s.SetDevice(d)
	})
}

// updateDevice applies fn to a tracked device in a single state update and
// returns the result. Unknown endpoints are left alone.
func (e *engine) updateDevice(endpointID string, fn func(device.RemoteDevice) device.RemoteDevice) (device.RemoteDevice, bool) {
	var (
		updated device.RemoteDevice
		found   bool
	)
	e.state.Update(func(s exchange.State) exchange.State {
		d, ok := s.Device(endpointID)
		if !ok {
			return s
		}
		updated, found = fn(d), true
		return s.SetDevice(updated)
	})
	return updated, found
}

// markState moves a tracked device to state. The authentication token is
// dropped once the connection is completed or abandoned.
func (e *engine) markState(endpointID string, state device.ConnectionState) (device.RemoteDevice, bool) {
	return e.updateDevice(endpointID, func(d device.RemoteDevice) device.RemoteDevice {
		d = d.WithState(state)
		if !state.Authenticating() {
			d.AuthenticationToken = ""
		}
		return d
	})
}

func (e *engine) removeDevice(endpointID string) {
	e.state.Update(func(s exchange.State) exchange.State {
		return s.RemoveDevice(endpointID)
	})
}

func (e *engine) device(endpointID string) (device.RemoteDevice, bool) {
	return e.state.Value().Device(endpointID)
}

func (e *engine) setMode(mode exchange.Mode) {
	e.state.Update(func(s exchange.State) exchange.State {
		return s.WithMode(mode)
	})
}

func (e *engine) mode() exchange.Mode {
	return e.state.Value().Mode
}

func (e *engine) sendEvent(ev exchange.Event) {
	if n := e.events.Publish(ev); n == 0 {
		e.logger.Debug("Event had no subscribers", "event", fmt.Sprintf("%T", ev), "endpoint", ev.EndpointID())
	}
}

// failed builds a Failed mode, taking the status code from err when it has one.
func failed(message string, err error) exchange.Failed {
	mode := exchange.Failed{
		Message: fmt.Sprintf("%s: %v", message, err),
		Cause:   err,
	}
	if code, ok := nearby.StatusCode(err); ok {
		mode.ErrorCode = &code
	}
	return mode
}

// connectionResult applies a connection outcome to a tracked device. It
// returns the updated device and whether the connection succeeded.
func (e *engine) connectionResult(endpointID string, result nearby.Resolution) (device.RemoteDevice, bool) {
	switch result.StatusCode {
	case nearby.StatusOK:
		e.logger.Info("Connection established", "endpoint", endpointID)
		d, ok := e.markState(endpointID, device.Connected)
		return d, ok
	case nearby.StatusConnectionRejected:
		e.logger.Info("Connection rejected", "endpoint", endpointID)
	default:
		e.logger.Error("Connection failed", "endpoint", endpointID, "code", result.StatusCode)
	}
	e.markState(endpointID, device.Disconnected)
	return device.RemoteDevice{}, false
}

// disconnectAll issues a disconnect for every tracked device and then clears
// the registry in one update.
func (e *engine) disconnectAll() {
	for _, d := range e.state.Value().Devices {
		e.client.DisconnectFromEndpoint(d.EndpointID)
		e.router.EndpointGone(d.EndpointID)
	}
	e.state.Update(func(s exchange.State) exchange.State {
		return s.WithoutDevices()
	})
}

var errNoConnectedPeers = errors.New("no connected peers")
