// Package nearby defines the proximity transport consumed by the exchange
// engines: advertise, discover, connect and move payloads between endpoints.
// Every outcome of a transport action is reported through callbacks.
package nearby

import (
	"context"
	"errors"
	"fmt"
)

// Strategy describes the connection topology the transport should allow.
type Strategy int

const (
	// StrategyPointToPoint allows a single connection at a time.
	StrategyPointToPoint Strategy = iota
	// StrategyStar allows one hub and many spokes.
	StrategyStar
	// StrategyCluster allows many-to-many connections.
	StrategyCluster
)

func (s Strategy) String() string {
	switch s {
	case StrategyPointToPoint:
		return "p2p_point_to_point"
	case StrategyStar:
		return "p2p_star"
	case StrategyCluster:
		return "p2p_cluster"
	default:
		return "unknown"
	}
}

// ParseStrategy accepts the names produced by String.
func ParseStrategy(s string) (Strategy, error) {
	for _, candidate := range []Strategy{StrategyPointToPoint, StrategyStar, StrategyCluster} {
		if candidate.String() == s {
			return candidate, nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

// Options configures advertising and discovery.
type Options struct {
	Strategy Strategy
}

// Status codes reported by the transport.
const (
	StatusOK                 = 0
	StatusErrorCode          = 13
	StatusAlreadyAdvertising = 8001
	StatusAlreadyDiscovering = 8002
	StatusConnectionRejected = 8004
	StatusNotConnected       = 8005
	StatusEndpointUnknown    = 8011
)

// StatusError is an error carrying a transport status code.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("nearby status %d", e.Code)
	}
	return fmt.Sprintf("nearby status %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// NewStatusError wraps err with a status code.
func NewStatusError(code int, err error) error {
	return &StatusError{Code: code, Err: err}
}

// StatusCode extracts the status code carried by err, if any.
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// EndpointInfo describes an endpoint seen during discovery.
type EndpointInfo struct {
	EndpointName string
	ServiceID    string
}

// ConnectionInfo describes a connection being initiated, from either side.
type ConnectionInfo struct {
	EndpointName string
	// AuthenticationDigits is the short token both users should compare.
	AuthenticationDigits string
	// IsIncoming is true when the remote side asked for the connection.
	IsIncoming bool
}

// Resolution is the final outcome of a connection attempt.
type Resolution struct {
	StatusCode int
}

// Success reports whether the connection was established.
func (r Resolution) Success() bool {
	return r.StatusCode == StatusOK
}

// EndpointDiscovery receives discovery callbacks.
type EndpointDiscovery interface {
	OnEndpointFound(endpointID string, info EndpointInfo)
	OnEndpointLost(endpointID string)
}

// ConnectionLifecycle receives connection callbacks.
type ConnectionLifecycle interface {
	OnConnectionInitiated(endpointID string, info ConnectionInfo)
	OnConnectionResult(endpointID string, result Resolution)
	OnDisconnected(endpointID string)
}

// PayloadListener receives payload callbacks for an accepted connection.
type PayloadListener interface {
	OnPayloadReceived(endpointID string, payload Payload)
	OnPayloadTransferUpdate(endpointID string, update TransferUpdate)
}

// Client is the proximity transport. Implementations report results through
// the callback interfaces. The returned errors only say whether a request
// could be issued.
type Client interface {
	StartAdvertising(ctx context.Context, localName, serviceID string, opts Options, lifecycle ConnectionLifecycle) error
	StopAdvertising()
	StartDiscovery(ctx context.Context, serviceID string, opts Options, discovery EndpointDiscovery) error
	StopDiscovery()
	RequestConnection(ctx context.Context, localName, endpointID string, lifecycle ConnectionLifecycle) error
	AcceptConnection(endpointID string, listener PayloadListener) error
	RejectConnection(endpointID string) error
	DisconnectFromEndpoint(endpointID string)
	SendPayload(ctx context.Context, endpointID string, payload Payload) error
	StopAllEndpoints()
}
