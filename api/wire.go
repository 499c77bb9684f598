package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rescp17/nearbyExchanger/pkg/nearby"
)

const (
	endpointIDHeader      = "X-Endpoint-ID"
	payloadIDHeader       = "X-Payload-ID"
	payloadKindHeader     = "X-Payload-Kind"
	payloadNameHeader     = "X-Payload-Name"
	payloadSizeHeader     = "X-Payload-Size"
	payloadChecksumHeader = "X-Payload-Checksum"
)

// ConnectRequest is the body of POST /connect.
type ConnectRequest struct {
	Name      string `json:"name"`
	ServiceID string `json:"service_id"`
	// Port is where the requester's own API listens, so the peer can call back.
	Port int `json:"port"`
}

// ConnectResponse is returned by POST /connect when the peer takes the request.
type ConnectResponse struct {
	Name string `json:"name"`
}

// errorResponse is the JSON body of every non-2xx answer.
type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// PayloadHeader is the metadata of a payload carried in request headers.
type PayloadHeader struct {
	ID       string
	Kind     nearby.PayloadKind
	Name     string
	Size     int64
	Checksum string
}

func (p PayloadHeader) apply(h http.Header) {
	h.Set(payloadIDHeader, p.ID)
	h.Set(payloadKindHeader, p.Kind.String())
	h.Set(payloadNameHeader, p.Name)
	h.Set(payloadSizeHeader, strconv.FormatInt(p.Size, 10))
	if p.Checksum != "" {
		h.Set(payloadChecksumHeader, p.Checksum)
	}
}

func parsePayloadHeader(h http.Header) (PayloadHeader, error) {
	p := PayloadHeader{
		ID:       h.Get(payloadIDHeader),
		Name:     h.Get(payloadNameHeader),
		Checksum: h.Get(payloadChecksumHeader),
	}
	if p.ID == "" {
		return PayloadHeader{}, errors.New("missing payload id")
	}
	kind, err := nearby.ParsePayloadKind(h.Get(payloadKindHeader))
	if err != nil {
		return PayloadHeader{}, err
	}
	p.Kind = kind
	size, err := strconv.ParseInt(h.Get(payloadSizeHeader), 10, 64)
	if err != nil {
		return PayloadHeader{}, fmt.Errorf("invalid payload size: %w", err)
	}
	p.Size = size
	return p, nil
}

// httpStatus maps a transport status code onto an HTTP status.
func httpStatus(code int) int {
	switch code {
	case nearby.StatusEndpointUnknown:
		return http.StatusNotFound
	case nearby.StatusConnectionRejected:
		return http.StatusForbidden
	case nearby.StatusNotConnected, nearby.StatusAlreadyAdvertising, nearby.StatusAlreadyDiscovering:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
