// Package lan implements nearby.Client over the local network: endpoints are
// announced and found with mDNS, and connections and payloads travel over
// each endpoint's HTTP API.
package lan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rescp17/nearbyExchanger/api"
	"github.com/rescp17/nearbyExchanger/pkg/discovery"
	"github.com/rescp17/nearbyExchanger/pkg/nearby"
	"github.com/rescp17/nearbyExchanger/pkg/transfer"
)

const controlTimeout = 10 * time.Second

// maxBytesPayload bounds PayloadBytes bodies, which are held in memory.
const maxBytesPayload = 1 << 20

type Config struct {
	// Port the HTTP API listens on. Zero picks a free port.
	Port int
	// ServiceType is the mDNS service type endpoints are announced under.
	ServiceType string
	Domain      string
	// ChunkSize is the granularity of progress updates.
	ChunkSize int32
}

func DefaultConfig() Config {
	return Config{
		ServiceType: discovery.DefaultServerType,
		Domain:      discovery.DefaultDomain,
		ChunkSize:   transfer.DefaultChunkSize,
	}
}

// activity is a running announcement or browse.
type activity struct {
	cancel context.CancelFunc
	group  *errgroup.Group
}

func (a *activity) stop() {
	a.cancel()
	if err := a.group.Wait(); err != nil {
		slog.Warn("Background mDNS task ended with error", "error", err)
	}
}

// peer is a connection in any phase, from request to established.
type peer struct {
	id        string
	name      string
	url       string
	lifecycle nearby.ConnectionLifecycle
	listener  nearby.PayloadListener

	localAccepted  bool
	remoteAccepted bool
	connected      bool
}

// Client is a nearby.Client for endpoints on the same LAN.
type Client struct {
	endpointID string
	config     Config
	adapter    discovery.Adapter
	api        *api.Client
	logger     *slog.Logger

	mu       sync.Mutex
	server   *http.Server
	port     int
	closed   bool
	baseCtx  context.Context
	shutdown context.CancelFunc

	advertising   *activity
	advertiseName string
	advertiseSvc  string
	inbound       nearby.ConnectionLifecycle

	discovering *activity
	discoverSvc string
	discoveryCb nearby.EndpointDiscovery
	found       map[string]discovery.ServiceInfo

	peers map[string]*peer
}

var (
	_ nearby.Client = (*Client)(nil)
	_ api.Handler   = (*Client)(nil)
)

// NewClient creates a client with a fresh endpoint id. A nil adapter uses mDNS.
func NewClient(config Config, adapter discovery.Adapter, logger *slog.Logger) *Client {
	if adapter == nil {
		adapter = discovery.NewMDNSAdapter()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.ServiceType == "" {
		config.ServiceType = discovery.DefaultServerType
	}
	if config.Domain == "" {
		config.Domain = discovery.DefaultDomain
	}
	if config.ChunkSize == 0 {
		config.ChunkSize = transfer.DefaultChunkSize
	}

	endpointID := strings.ToUpper(uuid.NewString()[:8])
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		endpointID: endpointID,
		config:     config,
		adapter:    adapter,
		api:        api.NewClient(endpointID),
		logger:     logger.With("component", "lan-transport", "local_endpoint", endpointID),
		baseCtx:    ctx,
		shutdown:   cancel,
		found:      make(map[string]discovery.ServiceInfo),
		peers:      make(map[string]*peer),
	}
}

// EndpointID is the id peers see for this client.
func (c *Client) EndpointID() string {
	return c.endpointID
}

// Port is the port of the HTTP API, or zero before it started.
func (c *Client) Port() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port
}

// ensureServerLocked starts the HTTP API on first use.
func (c *Client) ensureServerLocked() error {
	if c.closed {
		return nearby.NewStatusError(nearby.StatusErrorCode, errors.New("transport closed"))
	}
	if c.server != nil {
		return nil
	}
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", c.config.Port))
	if err != nil {
		return nearby.NewStatusError(nearby.StatusErrorCode, fmt.Errorf("failed to listen: %w", err))
	}
	c.port = listener.Addr().(*net.TCPAddr).Port
	c.server = &http.Server{Handler: api.NewAPI(c)}

	server := c.server
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("HTTP server failed", "error", err)
		}
	}()
	c.logger.Info("Transport API listening", "port", c.port)
	return nil
}

func (c *Client) startActivity(fn func(ctx context.Context) error) *activity {
	ctx, cancel := context.WithCancel(c.baseCtx)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return fn(gctx)
	})
	return &activity{cancel: cancel, group: group}
}

func (c *Client) StartAdvertising(ctx context.Context, localName, serviceID string, opts nearby.Options, lifecycle nearby.ConnectionLifecycle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.advertising != nil {
		return nearby.NewStatusError(nearby.StatusAlreadyAdvertising, errors.New("already advertising"))
	}
	if err := c.ensureServerLocked(); err != nil {
		return err
	}

	info := discovery.ServiceInfo{
		Name:   fmt.Sprintf("%s-%s", localName, c.endpointID),
		Type:   c.config.ServiceType,
		Domain: c.config.Domain,
		Port:   c.port,
		Text: map[string]string{
			discovery.TextEndpointID: c.endpointID,
			discovery.TextName:       localName,
			discovery.TextServiceID:  serviceID,
		},
	}
	c.advertising = c.startActivity(func(ctx context.Context) error {
		return c.adapter.Announce(ctx, info)
	})
	c.advertiseName = localName
	c.advertiseSvc = serviceID
	c.inbound = lifecycle
	c.logger.Info("Advertising", "name", localName, "service", serviceID, "strategy", opts.Strategy.String())
	return nil
}

func (c *Client) StopAdvertising() {
	c.mu.Lock()
	a := c.advertising
	c.advertising = nil
	c.inbound = nil
	c.mu.Unlock()
	if a != nil {
		a.stop()
		c.logger.Info("Stopped advertising")
	}
}

func (c *Client) StartDiscovery(ctx context.Context, serviceID string, opts nearby.Options, cb nearby.EndpointDiscovery) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.discovering != nil {
		return nearby.NewStatusError(nearby.StatusAlreadyDiscovering, errors.New("already discovering"))
	}
	if err := c.ensureServerLocked(); err != nil {
		return err
	}

	c.discoverSvc = serviceID
	c.discoveryCb = cb
	browseType := discovery.FullType(c.config.ServiceType, c.config.Domain)
	c.discovering = c.startActivity(func(ctx context.Context) error {
		return c.adapter.Browse(ctx, browseType, c.serviceFound, c.serviceLost)
	})
	c.logger.Info("Discovering", "service", serviceID, "strategy", opts.Strategy.String())
	return nil
}

func (c *Client) StopDiscovery() {
	c.mu.Lock()
	d := c.discovering
	c.discovering = nil
	c.discoveryCb = nil
	c.found = make(map[string]discovery.ServiceInfo)
	c.mu.Unlock()
	if d != nil {
		d.stop()
		c.logger.Info("Stopped discovery")
	}
}

func (c *Client) serviceFound(info discovery.ServiceInfo) {
	id := info.EndpointID()
	c.mu.Lock()
	cb := c.discoveryCb
	if cb == nil || id == "" || id == c.endpointID || info.ServiceID() != c.discoverSvc {
		c.mu.Unlock()
		return
	}
	_, known := c.found[id]
	c.found[id] = info
	c.mu.Unlock()

	if !known {
		cb.OnEndpointFound(id, nearby.EndpointInfo{EndpointName: info.DisplayName(), ServiceID: info.ServiceID()})
	}
}

// serviceLost matches on the instance name because removals may arrive
// without TXT data.
func (c *Client) serviceLost(info discovery.ServiceInfo) {
	c.mu.Lock()
	cb := c.discoveryCb
	var lostID string
	for id, known := range c.found {
		if known.Name == info.Name {
			lostID = id
			delete(c.found, id)
			break
		}
	}
	c.mu.Unlock()

	if cb != nil && lostID != "" {
		cb.OnEndpointLost(lostID)
	}
}

func (c *Client) RequestConnection(ctx context.Context, localName, endpointID string, lifecycle nearby.ConnectionLifecycle) error {
	c.mu.Lock()
	info, ok := c.found[endpointID]
	if !ok {
		c.mu.Unlock()
		return nearby.NewStatusError(nearby.StatusEndpointUnknown, fmt.Errorf("endpoint %s not discovered", endpointID))
	}
	if err := c.ensureServerLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	p := &peer{id: endpointID, name: info.DisplayName(), url: info.URL(), lifecycle: lifecycle}
	c.peers[endpointID] = p
	req := api.ConnectRequest{Name: localName, ServiceID: c.discoverSvc, Port: c.port}
	c.mu.Unlock()

	resp, err := c.api.Connect(ctx, p.url, req)
	if err != nil {
		c.removePeer(endpointID)
		return err
	}
	name := p.name
	if resp.Name != "" {
		name = resp.Name
	}
	lifecycle.OnConnectionInitiated(endpointID, nearby.ConnectionInfo{
		EndpointName:         name,
		AuthenticationDigits: nearby.AuthenticationDigits(c.endpointID, endpointID),
		IsIncoming:           false,
	})
	return nil
}

func (c *Client) AcceptConnection(endpointID string, listener nearby.PayloadListener) error {
	p, ok := c.peer(endpointID)
	if !ok {
		return nearby.NewStatusError(nearby.StatusEndpointUnknown, fmt.Errorf("no pending connection with %s", endpointID))
	}
	ctx, cancel := context.WithTimeout(c.baseCtx, controlTimeout)
	defer cancel()
	if err := c.api.Accept(ctx, p.url); err != nil {
		return err
	}

	c.mu.Lock()
	p.listener = listener
	p.localAccepted = true
	resolved := c.resolveLocked(p)
	c.mu.Unlock()

	if resolved {
		p.lifecycle.OnConnectionResult(endpointID, nearby.Resolution{StatusCode: nearby.StatusOK})
	}
	return nil
}

func (c *Client) RejectConnection(endpointID string) error {
	p, ok := c.peer(endpointID)
	if !ok {
		return nearby.NewStatusError(nearby.StatusEndpointUnknown, fmt.Errorf("no pending connection with %s", endpointID))
	}
	ctx, cancel := context.WithTimeout(c.baseCtx, controlTimeout)
	defer cancel()
	err := c.api.Reject(ctx, p.url)
	c.removePeer(endpointID)
	p.lifecycle.OnConnectionResult(endpointID, nearby.Resolution{StatusCode: nearby.StatusConnectionRejected})
	return err
}

// DisconnectFromEndpoint drops the connection locally and tells the peer on a
// best effort basis. The local lifecycle is not notified.
func (c *Client) DisconnectFromEndpoint(endpointID string) {
	p, ok := c.removePeer(endpointID)
	if !ok {
		return
	}
	c.notifyDisconnect(p)
}

func (c *Client) notifyDisconnect(p *peer) {
	go func() {
		ctx, cancel := context.WithTimeout(c.baseCtx, controlTimeout)
		defer cancel()
		if err := c.api.Disconnect(ctx, p.url); err != nil {
			c.logger.Debug("Peer did not take disconnect", "endpoint", p.id, "error", err)
		}
	}()
}

// SendPayload streams payload to a connected endpoint and blocks until the
// peer stored it. Progress is reported to the listener given to
// AcceptConnection.
func (c *Client) SendPayload(ctx context.Context, endpointID string, payload nearby.Payload) error {
	p, ok := c.peer(endpointID)
	if !ok || !c.isConnected(p) {
		return nearby.NewStatusError(nearby.StatusNotConnected, fmt.Errorf("not connected to %s", endpointID))
	}

	var src io.Reader
	switch payload.Kind {
	case nearby.PayloadBytes:
		src = bytes.NewReader(payload.Bytes)
	default:
		if payload.Body == nil {
			return fmt.Errorf("payload %s has no body", payload.ID)
		}
		src = payload.Body
	}

	report := func(status nearby.TransferStatus, done int64) {
		if p.listener != nil {
			p.listener.OnPayloadTransferUpdate(endpointID, nearby.TransferUpdate{
				PayloadID:        payload.ID,
				Status:           status,
				BytesTransferred: done,
				TotalBytes:       payload.Size,
				Outgoing:         true,
			})
		}
	}

	pr, pw := io.Pipe()
	copied := make(chan int64, 1)
	go func() {
		n, err := transfer.CopyWithProgress(pw, src, payload.Size, c.config.ChunkSize, func(done int64) {
			report(nearby.TransferInProgress, done)
		})
		pw.CloseWithError(err)
		copied <- n
	}()

	header := api.PayloadHeader{
		ID:       payload.ID,
		Kind:     payload.Kind,
		Name:     payload.Name,
		Size:     payload.Size,
		Checksum: payload.Checksum,
	}
	err := c.api.SendPayload(ctx, p.url, header, pr)
	// Unblock the copier if the request ended before the body was read.
	pr.CloseWithError(io.ErrClosedPipe)
	sent := <-copied
	if err != nil {
		status := nearby.TransferFailure
		if errors.Is(err, context.Canceled) {
			status = nearby.TransferCanceled
		}
		report(status, sent)
		return err
	}
	report(nearby.TransferSuccess, payload.Size)
	return nil
}

// StopAllEndpoints disconnects every peer, and stops advertising and discovery.
func (c *Client) StopAllEndpoints() {
	c.StopAdvertising()
	c.StopDiscovery()

	c.mu.Lock()
	peers := c.peers
	c.peers = make(map[string]*peer)
	c.mu.Unlock()
	for _, p := range peers {
		c.notifyDisconnect(p)
	}
}

// Close stops everything and shuts the HTTP API down.
func (c *Client) Close() error {
	c.StopAllEndpoints()

	c.mu.Lock()
	c.closed = true
	server := c.server
	c.server = nil
	c.mu.Unlock()

	c.shutdown()
	if server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down transport API: %w", err)
	}
	return nil
}

func (c *Client) peer(endpointID string) (*peer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.peers[endpointID]
	return p, ok
}

func (c *Client) removePeer(endpointID string) (*peer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.peers[endpointID]
	delete(c.peers, endpointID)
	return p, ok
}

func (c *Client) isConnected(p *peer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return p.connected
}

// resolveLocked marks p connected once both sides accepted and reports
// whether this call did so.
func (c *Client) resolveLocked(p *peer) bool {
	if p.connected || !p.localAccepted || !p.remoteAccepted {
		return false
	}
	p.connected = true
	return true
}
