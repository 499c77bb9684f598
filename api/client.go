package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rescp17/nearbyExchanger/pkg/nearby"
)

// endpointIDInjector is a custom http.RoundTripper that injects the local
// endpoint id into each request.
type endpointIDInjector struct {
	endpointID string
	next       http.RoundTripper
}

// RoundTrip intercepts the request, adds the endpoint ID header, and passes it to the next transport.
func (t *endpointIDInjector) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set(endpointIDHeader, t.endpointID)
	return t.next.RoundTrip(req)
}

// Client is a stateless HTTP client for calling the API of peer endpoints.
type Client struct {
	// HttpClient carries control requests and has a timeout.
	HttpClient *http.Client
	// streamClient carries payload bodies, which may take arbitrarily long.
	streamClient *http.Client
}

// NewClient creates a new API client, configured to automatically inject the provided endpointID.
func NewClient(endpointID string) *Client {
	transport := &endpointIDInjector{
		endpointID: endpointID,
		next:       http.DefaultTransport,
	}

	return &Client{
		HttpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		streamClient: &http.Client{Transport: transport},
	}
}

// Connect asks the peer at baseURL to open a connection.
func (c *Client) Connect(ctx context.Context, baseURL string, req ConnectRequest) (ConnectResponse, error) {
	var resp ConnectResponse
	if err := c.postJSON(ctx, baseURL+"/connect", req, &resp); err != nil {
		return ConnectResponse{}, err
	}
	return resp, nil
}

// Accept tells the peer the local side accepted the connection.
func (c *Client) Accept(ctx context.Context, baseURL string) error {
	return c.postJSON(ctx, baseURL+"/accept", nil, nil)
}

// Reject tells the peer the local side rejected the connection.
func (c *Client) Reject(ctx context.Context, baseURL string) error {
	return c.postJSON(ctx, baseURL+"/reject", nil, nil)
}

// Disconnect tells the peer the connection is gone.
func (c *Client) Disconnect(ctx context.Context, baseURL string) error {
	return c.postJSON(ctx, baseURL+"/disconnect", nil, nil)
}

// SendPayload streams body to the peer.
func (c *Client) SendPayload(ctx context.Context, baseURL string, header PayloadHeader, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/payload", body)
	if err != nil {
		return fmt.Errorf("failed to create payload request: %w", err)
	}
	header.apply(req.Header)
	req.Header.Set("Content-Type", "application/octet-stream")
	if header.Size >= 0 {
		req.ContentLength = header.Size
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send payload: %w", err)
	}
	defer closeBody(resp)
	return checkResponse(resp)
}

func (c *Client) postJSON(ctx context.Context, url string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", url, err)
	}
	defer closeBody(resp)

	if err := checkResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// checkResponse turns a non-2xx answer into a nearby.StatusError.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var e errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Code == 0 {
		return nearby.NewStatusError(nearby.StatusErrorCode, fmt.Errorf("peer responded with %s", resp.Status))
	}
	return nearby.NewStatusError(e.Code, errors.New(e.Error))
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err)
	}
}
