package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/rescp17/nearbyExchanger/pkg/nearby"
)

// Handler is the local side of the wire protocol. Every method is called with
// the endpoint id of the calling peer.
type Handler interface {
	HandleConnect(endpointID, remoteHost string, req ConnectRequest) (ConnectResponse, error)
	HandleAccept(endpointID string) error
	HandleReject(endpointID string) error
	HandleDisconnect(endpointID string) error
	// HandlePayload must consume body before returning.
	HandlePayload(endpointID string, header PayloadHeader, body io.Reader) error
}

// API is the HTTP surface every endpoint exposes to its peers.
type API struct {
	handler Handler
	mux     *http.ServeMux
}

// NewAPI creates and initializes a new API instance.
func NewAPI(handler Handler) *API {
	api := &API{
		handler: handler,
		mux:     http.NewServeMux(),
	}
	api.registerRoutes()
	return api
}

// ServeHTTP allows the API struct to satisfy the http.Handler interface.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *API) registerRoutes() {
	a.mux.Handle("POST /connect", requireEndpointID(a.connectHandler))
	a.mux.Handle("POST /accept", requireEndpointID(a.simpleHandler(a.handler.HandleAccept)))
	a.mux.Handle("POST /reject", requireEndpointID(a.simpleHandler(a.handler.HandleReject)))
	a.mux.Handle("POST /disconnect", requireEndpointID(a.simpleHandler(a.handler.HandleDisconnect)))
	a.mux.Handle("POST /payload", requireEndpointID(a.payloadHandler))
}

// requireEndpointID rejects requests that do not say which endpoint sent them.
func requireEndpointID(next func(w http.ResponseWriter, r *http.Request, endpointID string)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpointID := r.Header.Get(endpointIDHeader)
		if endpointID == "" {
			writeError(w, http.StatusBadRequest, nearby.StatusErrorCode, errors.New("missing endpoint id"))
			return
		}
		next(w, r, endpointID)
	})
}

func (a *API) connectHandler(w http.ResponseWriter, r *http.Request, endpointID string) {
	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, nearby.StatusErrorCode, errors.New("invalid connect request"))
		return
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	slog.Info("Connect request received", "endpoint", endpointID, "name", req.Name, "host", host)

	resp, err := a.handler.HandleConnect(endpointID, host, req)
	if err != nil {
		writeHandlerError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("Failed to write connect response", "error", err)
	}
}

func (a *API) simpleHandler(fn func(endpointID string) error) func(w http.ResponseWriter, r *http.Request, endpointID string) {
	return func(w http.ResponseWriter, r *http.Request, endpointID string) {
		if err := fn(endpointID); err != nil {
			writeHandlerError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (a *API) payloadHandler(w http.ResponseWriter, r *http.Request, endpointID string) {
	header, err := parsePayloadHeader(r.Header)
	if err != nil {
		writeError(w, http.StatusBadRequest, nearby.StatusErrorCode, err)
		return
	}
	if err := a.handler.HandlePayload(endpointID, header, r.Body); err != nil {
		writeHandlerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeHandlerError(w http.ResponseWriter, err error) {
	code, ok := nearby.StatusCode(err)
	if !ok {
		code = nearby.StatusErrorCode
	}
	writeError(w, httpStatus(code), code, err)
}

func writeError(w http.ResponseWriter, status, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(errorResponse{Error: err.Error(), Code: code}); encErr != nil {
		slog.Warn("Failed to write error response", "error", encErr)
	}
}
