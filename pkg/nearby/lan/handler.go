package lan

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/rescp17/nearbyExchanger/api"
	"github.com/rescp17/nearbyExchanger/pkg/fileInfo"
	"github.com/rescp17/nearbyExchanger/pkg/nearby"
)

// HandleConnect registers a peer asking to connect while advertising.
func (c *Client) HandleConnect(endpointID, remoteHost string, req api.ConnectRequest) (api.ConnectResponse, error) {
	c.mu.Lock()
	lifecycle := c.inbound
	if lifecycle == nil {
		c.mu.Unlock()
		return api.ConnectResponse{}, nearby.NewStatusError(nearby.StatusConnectionRejected, errors.New("not advertising"))
	}
	if req.ServiceID != c.advertiseSvc {
		c.mu.Unlock()
		return api.ConnectResponse{}, nearby.NewStatusError(nearby.StatusConnectionRejected, fmt.Errorf("unknown service %q", req.ServiceID))
	}
	if _, busy := c.peers[endpointID]; busy {
		c.mu.Unlock()
		return api.ConnectResponse{}, nearby.NewStatusError(nearby.StatusErrorCode, fmt.Errorf("endpoint %s already connecting", endpointID))
	}
	c.peers[endpointID] = &peer{
		id:        endpointID,
		name:      req.Name,
		url:       "http://" + net.JoinHostPort(remoteHost, strconv.Itoa(req.Port)),
		lifecycle: lifecycle,
	}
	localName := c.advertiseName
	c.mu.Unlock()

	info := nearby.ConnectionInfo{
		EndpointName:         req.Name,
		AuthenticationDigits: nearby.AuthenticationDigits(c.endpointID, endpointID),
		IsIncoming:           true,
	}
	// The lifecycle may answer with AcceptConnection, which calls back into
	// the requester, so it must not run inside this request.
	go lifecycle.OnConnectionInitiated(endpointID, info)
	return api.ConnectResponse{Name: localName}, nil
}

func (c *Client) HandleAccept(endpointID string) error {
	c.mu.Lock()
	p, ok := c.peers[endpointID]
	if !ok {
		c.mu.Unlock()
		return nearby.NewStatusError(nearby.StatusEndpointUnknown, fmt.Errorf("no pending connection with %s", endpointID))
	}
	p.remoteAccepted = true
	resolved := c.resolveLocked(p)
	c.mu.Unlock()

	if resolved {
		go p.lifecycle.OnConnectionResult(endpointID, nearby.Resolution{StatusCode: nearby.StatusOK})
	}
	return nil
}

func (c *Client) HandleReject(endpointID string) error {
	p, ok := c.removePeer(endpointID)
	if !ok {
		return nearby.NewStatusError(nearby.StatusEndpointUnknown, fmt.Errorf("no pending connection with %s", endpointID))
	}
	go p.lifecycle.OnConnectionResult(endpointID, nearby.Resolution{StatusCode: nearby.StatusConnectionRejected})
	return nil
}

func (c *Client) HandleDisconnect(endpointID string) error {
	p, ok := c.removePeer(endpointID)
	if !ok {
		return nil
	}
	c.mu.Lock()
	connected := p.connected
	c.mu.Unlock()

	if connected {
		go p.lifecycle.OnDisconnected(endpointID)
	} else {
		go p.lifecycle.OnConnectionResult(endpointID, nearby.Resolution{StatusCode: nearby.StatusErrorCode})
	}
	return nil
}

// HandlePayload hands an inbound payload to the listener of the connection
// and reports the final transfer status once the body is consumed.
func (c *Client) HandlePayload(endpointID string, header api.PayloadHeader, body io.Reader) error {
	p, ok := c.peer(endpointID)
	if !ok || !c.isConnected(p) {
		return nearby.NewStatusError(nearby.StatusNotConnected, fmt.Errorf("not connected to %s", endpointID))
	}
	listener := p.listener
	if listener == nil {
		return nearby.NewStatusError(nearby.StatusErrorCode, errors.New("connection has no payload listener"))
	}

	hashed := fileInfo.NewHashingReader(body)
	counted := &progressReader{
		r:    hashed,
		step: int64(c.config.ChunkSize),
		report: func(done int64) {
			listener.OnPayloadTransferUpdate(endpointID, nearby.TransferUpdate{
				PayloadID:        header.ID,
				Status:           nearby.TransferInProgress,
				BytesTransferred: done,
				TotalBytes:       header.Size,
			})
		},
	}

	payload := nearby.Payload{
		ID:       header.ID,
		Kind:     header.Kind,
		Name:     header.Name,
		Size:     header.Size,
		Checksum: header.Checksum,
	}
	if header.Kind == nearby.PayloadBytes {
		data, err := io.ReadAll(io.LimitReader(counted, maxBytesPayload))
		if err != nil {
			return fmt.Errorf("failed to read bytes payload: %w", err)
		}
		payload.Bytes = data
	} else {
		payload.Body = counted
	}
	listener.OnPayloadReceived(endpointID, payload)

	// Whatever the listener left unread still counts toward the checksum.
	if _, err := io.Copy(io.Discard, counted); err != nil {
		c.reportInbound(listener, endpointID, header, nearby.TransferFailure, counted.n)
		return fmt.Errorf("failed to read payload body: %w", err)
	}

	status := nearby.TransferSuccess
	switch {
	case header.Size >= 0 && counted.n != header.Size:
		c.logger.Warn("Payload size mismatch", "payload", header.ID, "want", header.Size, "got", counted.n)
		status = nearby.TransferFailure
	case !hashed.Matches(header.Checksum):
		c.logger.Warn("Payload checksum mismatch", "payload", header.ID, "name", header.Name)
		status = nearby.TransferFailure
	}
	c.reportInbound(listener, endpointID, header, status, counted.n)
	return nil
}

func (c *Client) reportInbound(listener nearby.PayloadListener, endpointID string, header api.PayloadHeader, status nearby.TransferStatus, done int64) {
	listener.OnPayloadTransferUpdate(endpointID, nearby.TransferUpdate{
		PayloadID:        header.ID,
		Status:           status,
		BytesTransferred: done,
		TotalBytes:       header.Size,
	})
}

// progressReader counts bytes and calls report each time another step of
// bytes went through.
type progressReader struct {
	r      io.Reader
	n      int64
	next   int64
	step   int64
	report func(done int64)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	pr.n += int64(n)
	if pr.step > 0 && pr.n >= pr.next+pr.step {
		pr.next = pr.n - pr.n%pr.step
		pr.report(pr.n)
	}
	return n, err
}
