package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescp17/nearbyExchanger/pkg/nearby"
)

type recordingHandler struct {
	mu       sync.Mutex
	calls    []string
	connect  ConnectRequest
	host     string
	header   PayloadHeader
	body     string
	failWith error
}

func (h *recordingHandler) record(call string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call)
	return h.failWith
}

func (h *recordingHandler) HandleConnect(endpointID, remoteHost string, req ConnectRequest) (ConnectResponse, error) {
	h.mu.Lock()
	h.connect = req
	h.host = remoteHost
	h.mu.Unlock()
	if err := h.record("connect:" + endpointID); err != nil {
		return ConnectResponse{}, err
	}
	return ConnectResponse{Name: "advertiser"}, nil
}

func (h *recordingHandler) HandleAccept(endpointID string) error {
	return h.record("accept:" + endpointID)
}

func (h *recordingHandler) HandleReject(endpointID string) error {
	return h.record("reject:" + endpointID)
}

func (h *recordingHandler) HandleDisconnect(endpointID string) error {
	return h.record("disconnect:" + endpointID)
}

func (h *recordingHandler) HandlePayload(endpointID string, header PayloadHeader, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.header = header
	h.body = string(data)
	h.mu.Unlock()
	return h.record("payload:" + endpointID)
}

func newTestServer(t *testing.T, handler Handler) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewAPI(handler))
	t.Cleanup(server.Close)
	return server
}

func TestClient_ControlRoundTrip(t *testing.T) {
	handler := &recordingHandler{}
	server := newTestServer(t, handler)
	client := NewClient("EP-1")
	ctx := context.Background()

	resp, err := client.Connect(ctx, server.URL, ConnectRequest{Name: "phone", ServiceID: "svc", Port: 9000})
	require.NoError(t, err)
	assert.Equal(t, "advertiser", resp.Name)
	assert.Equal(t, ConnectRequest{Name: "phone", ServiceID: "svc", Port: 9000}, handler.connect)
	assert.Equal(t, "127.0.0.1", handler.host)

	require.NoError(t, client.Accept(ctx, server.URL))
	require.NoError(t, client.Reject(ctx, server.URL))
	require.NoError(t, client.Disconnect(ctx, server.URL))

	assert.Equal(t, []string{"connect:EP-1", "accept:EP-1", "reject:EP-1", "disconnect:EP-1"}, handler.calls)
}

func TestClient_SendPayload(t *testing.T) {
	handler := &recordingHandler{}
	server := newTestServer(t, handler)
	client := NewClient("EP-2")

	header := PayloadHeader{ID: "p1", Kind: nearby.PayloadFile, Name: "dir/a.txt", Size: 5, Checksum: "abc"}
	require.NoError(t, client.SendPayload(context.Background(), server.URL, header, strings.NewReader("hello")))

	assert.Equal(t, header, handler.header)
	assert.Equal(t, "hello", handler.body)
	assert.Equal(t, []string{"payload:EP-2"}, handler.calls)
}

func TestClient_HandlerErrorCarriesStatusCode(t *testing.T) {
	handler := &recordingHandler{failWith: nearby.NewStatusError(nearby.StatusNotConnected, errors.New("not connected"))}
	server := newTestServer(t, handler)

	err := NewClient("EP-3").Accept(context.Background(), server.URL)
	require.Error(t, err)
	code, ok := nearby.StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, nearby.StatusNotConnected, code)
}

func TestAPI_RequiresEndpointID(t *testing.T) {
	server := newTestServer(t, &recordingHandler{})

	resp, err := http.Post(server.URL+"/accept", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_RejectsMalformedPayloadHeaders(t *testing.T) {
	handler := &recordingHandler{}
	server := newTestServer(t, handler)

	req, err := http.NewRequest(http.MethodPost, server.URL+"/payload", strings.NewReader("x"))
	require.NoError(t, err)
	req.Header.Set(endpointIDHeader, "EP-4")
	req.Header.Set(payloadIDHeader, "p1")
	req.Header.Set(payloadKindHeader, "carrier-pigeon")
	req.Header.Set(payloadSizeHeader, "1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, handler.calls)
}
