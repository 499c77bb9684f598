package lan

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescp17/nearbyExchanger/pkg/discovery"
	"github.com/rescp17/nearbyExchanger/pkg/nearby"
	"github.com/rescp17/nearbyExchanger/pkg/transfer"
)

// memoryRegistry is a discovery.Adapter shared by clients in one process.
type memoryRegistry struct {
	mu       sync.Mutex
	services map[string]discovery.ServiceInfo
	browsers map[int]func(discovery.ServiceInfo)
	losers   map[int]func(discovery.ServiceInfo)
	nextID   int
}

func newMemoryRegistry() *memoryRegistry {
	return &memoryRegistry{
		services: make(map[string]discovery.ServiceInfo),
		browsers: make(map[int]func(discovery.ServiceInfo)),
		losers:   make(map[int]func(discovery.ServiceInfo)),
	}
}

func (m *memoryRegistry) Announce(ctx context.Context, service discovery.ServiceInfo) error {
	service.Addr = net.IPv4(127, 0, 0, 1)
	m.mu.Lock()
	m.services[service.Name] = service
	var found []func(discovery.ServiceInfo)
	for _, fn := range m.browsers {
		found = append(found, fn)
	}
	m.mu.Unlock()
	for _, fn := range found {
		fn(service)
	}

	<-ctx.Done()

	m.mu.Lock()
	delete(m.services, service.Name)
	var lost []func(discovery.ServiceInfo)
	for _, fn := range m.losers {
		lost = append(lost, fn)
	}
	m.mu.Unlock()
	for _, fn := range lost {
		fn(discovery.ServiceInfo{Name: service.Name})
	}
	return nil
}

func (m *memoryRegistry) Browse(ctx context.Context, _ string, found, lost func(discovery.ServiceInfo)) error {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.browsers[id] = found
	m.losers[id] = lost
	var existing []discovery.ServiceInfo
	for _, s := range m.services {
		existing = append(existing, s)
	}
	m.mu.Unlock()
	for _, s := range existing {
		found(s)
	}

	<-ctx.Done()

	m.mu.Lock()
	delete(m.browsers, id)
	delete(m.losers, id)
	m.mu.Unlock()
	return nil
}

// autoAccept records every callback and accepts every initiated connection.
// Payloads go to listener when it is set.
type autoAccept struct {
	client   *Client
	listener nearby.PayloadListener

	mu        sync.Mutex
	found     chan string
	lost      chan string
	initiated chan nearby.ConnectionInfo
	results   chan nearby.Resolution
	gone      chan string
	received  chan nearby.Payload
	updates   []nearby.TransferUpdate
	contents  map[string][]byte
}

func newAutoAccept() *autoAccept {
	return &autoAccept{
		found:     make(chan string, 8),
		lost:      make(chan string, 8),
		initiated: make(chan nearby.ConnectionInfo, 8),
		results:   make(chan nearby.Resolution, 8),
		gone:      make(chan string, 8),
		received:  make(chan nearby.Payload, 8),
		contents:  make(map[string][]byte),
	}
}

func (a *autoAccept) OnEndpointFound(endpointID string, _ nearby.EndpointInfo) { a.found <- endpointID }
func (a *autoAccept) OnEndpointLost(endpointID string)                         { a.lost <- endpointID }

func (a *autoAccept) OnConnectionInitiated(endpointID string, info nearby.ConnectionInfo) {
	a.initiated <- info
	var listener nearby.PayloadListener = a
	if a.listener != nil {
		listener = a.listener
	}
	if err := a.client.AcceptConnection(endpointID, listener); err != nil {
		panic(err)
	}
}

func (a *autoAccept) OnConnectionResult(_ string, result nearby.Resolution) { a.results <- result }
func (a *autoAccept) OnDisconnected(endpointID string)                      { a.gone <- endpointID }

func (a *autoAccept) OnPayloadReceived(_ string, payload nearby.Payload) {
	if payload.Body != nil {
		data, _ := io.ReadAll(payload.Body)
		a.mu.Lock()
		a.contents[payload.ID] = data
		a.mu.Unlock()
	}
	a.received <- payload
}

func (a *autoAccept) OnPayloadTransferUpdate(_ string, update nearby.TransferUpdate) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.updates = append(a.updates, update)
}

func (a *autoAccept) lastUpdate(payloadID string) (nearby.TransferUpdate, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.updates) - 1; i >= 0; i-- {
		if a.updates[i].PayloadID == payloadID {
			return a.updates[i], true
		}
	}
	return nearby.TransferUpdate{}, false
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for callback")
		var zero T
		return zero
	}
}

func connectedPair(t *testing.T) (*Client, *autoAccept, *Client, *autoAccept) {
	t.Helper()
	return connectedPairWith(t, nil)
}

// connectedPairWith connects a discoverer to an advertiser whose inbound
// payloads go to listener, or to its recorder when listener is nil.
func connectedPairWith(t *testing.T, listener nearby.PayloadListener) (*Client, *autoAccept, *Client, *autoAccept) {
	t.Helper()
	registry := newMemoryRegistry()
	ctx := context.Background()

	advertiser := NewClient(DefaultConfig(), registry, nil)
	discoverer := NewClient(DefaultConfig(), registry, nil)
	t.Cleanup(func() {
		_ = advertiser.Close()
		_ = discoverer.Close()
	})

	adCb := newAutoAccept()
	adCb.client = advertiser
	adCb.listener = listener
	diCb := newAutoAccept()
	diCb.client = discoverer

	require.NoError(t, advertiser.StartAdvertising(ctx, "tablet", "svc", nearby.Options{Strategy: nearby.StrategyPointToPoint}, adCb))
	require.NoError(t, discoverer.StartDiscovery(ctx, "svc", nearby.Options{Strategy: nearby.StrategyPointToPoint}, diCb))

	found := receive(t, diCb.found)
	require.Equal(t, advertiser.EndpointID(), found)

	require.NoError(t, discoverer.RequestConnection(ctx, "phone", found, diCb))

	adInfo := receive(t, adCb.initiated)
	diInfo := receive(t, diCb.initiated)
	assert.True(t, adInfo.IsIncoming)
	assert.False(t, diInfo.IsIncoming)
	assert.Equal(t, "phone", adInfo.EndpointName)
	assert.Equal(t, "tablet", diInfo.EndpointName)
	assert.Equal(t, adInfo.AuthenticationDigits, diInfo.AuthenticationDigits)
	assert.Len(t, diInfo.AuthenticationDigits, 4)

	assert.True(t, receive(t, adCb.results).Success())
	assert.True(t, receive(t, diCb.results).Success())
	return advertiser, adCb, discoverer, diCb
}

func TestClient_ConnectBothSidesResolve(t *testing.T) {
	connectedPair(t)
}

func TestClient_AlreadyAdvertisingAndDiscovering(t *testing.T) {
	registry := newMemoryRegistry()
	client := NewClient(DefaultConfig(), registry, nil)
	t.Cleanup(func() { _ = client.Close() })
	cb := newAutoAccept()
	cb.client = client
	ctx := context.Background()

	require.NoError(t, client.StartAdvertising(ctx, "a", "svc", nearby.Options{}, cb))
	code, ok := nearby.StatusCode(client.StartAdvertising(ctx, "a", "svc", nearby.Options{}, cb))
	require.True(t, ok)
	assert.Equal(t, nearby.StatusAlreadyAdvertising, code)

	require.NoError(t, client.StartDiscovery(ctx, "svc", nearby.Options{}, cb))
	code, ok = nearby.StatusCode(client.StartDiscovery(ctx, "svc", nearby.Options{}, cb))
	require.True(t, ok)
	assert.Equal(t, nearby.StatusAlreadyDiscovering, code)

	client.StopAdvertising()
	require.NoError(t, client.StartAdvertising(ctx, "a", "svc", nearby.Options{}, cb))
}

func TestClient_RequestUnknownEndpoint(t *testing.T) {
	client := NewClient(DefaultConfig(), newMemoryRegistry(), nil)
	t.Cleanup(func() { _ = client.Close() })

	err := client.RequestConnection(context.Background(), "me", "NOPE", newAutoAccept())
	code, ok := nearby.StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, nearby.StatusEndpointUnknown, code)
}

func TestClient_SendPayload(t *testing.T) {
	advertiser, adCb, discoverer, diCb := connectedPair(t)

	content := bytes.Repeat([]byte("z"), 100*1024)
	payload := nearby.NewFilePayload("album/pic.jpg", int64(len(content)), bytes.NewReader(content))
	require.NoError(t, discoverer.SendPayload(context.Background(), advertiser.EndpointID(), payload))

	got := receive(t, adCb.received)
	assert.Equal(t, payload.ID, got.ID)
	assert.Equal(t, "album/pic.jpg", got.Name)
	adCb.mu.Lock()
	assert.Equal(t, content, adCb.contents[payload.ID])
	adCb.mu.Unlock()

	inbound, ok := adCb.lastUpdate(payload.ID)
	require.True(t, ok)
	assert.Equal(t, nearby.TransferSuccess, inbound.Status)
	assert.False(t, inbound.Outgoing)

	outbound, ok := diCb.lastUpdate(payload.ID)
	require.True(t, ok)
	assert.Equal(t, nearby.TransferSuccess, outbound.Status)
	assert.True(t, outbound.Outgoing)
	assert.Equal(t, int64(len(content)), outbound.BytesTransferred)
}

func TestClient_ChecksumMismatchFailsTransfer(t *testing.T) {
	advertiser, adCb, discoverer, _ := connectedPair(t)

	payload := nearby.NewFilePayload("a.txt", 5, bytes.NewReader([]byte("hello")))
	payload.Checksum = "0000"
	require.NoError(t, discoverer.SendPayload(context.Background(), advertiser.EndpointID(), payload))

	receive(t, adCb.received)
	inbound, ok := adCb.lastUpdate(payload.ID)
	require.True(t, ok)
	assert.Equal(t, nearby.TransferFailure, inbound.Status)
}

func TestClient_ReceivedFileAppearsOnlyWhenVerified(t *testing.T) {
	root := t.TempDir()
	router := transfer.NewRouter(transfer.NewDiskWriter(func() string { return root }), nil, nil)
	advertiser, _, discoverer, _ := connectedPairWith(t, router)

	finished := func(id string) func() bool {
		return func() bool {
			status, err := router.Status().Get(id)
			return err == nil && status.State.IsTerminal()
		}
	}

	bad := nearby.NewFilePayload("a.txt", 5, bytes.NewReader([]byte("hello")))
	bad.Checksum = "0000"
	require.NoError(t, discoverer.SendPayload(context.Background(), advertiser.EndpointID(), bad))
	require.Eventually(t, finished(bad.ID), 5*time.Second, 10*time.Millisecond)

	status, err := router.Status().Get(bad.ID)
	require.NoError(t, err)
	assert.Equal(t, transfer.TransferStateFailed, status.State)
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)

	good := nearby.NewFilePayload("a.txt", 5, bytes.NewReader([]byte("hello")))
	require.NoError(t, discoverer.SendPayload(context.Background(), advertiser.EndpointID(), good))
	require.Eventually(t, finished(good.ID), 5*time.Second, 10*time.Millisecond)

	status, err = router.Status().Get(good.ID)
	require.NoError(t, err)
	assert.Equal(t, transfer.TransferStateCompleted, status.State)
	assert.Equal(t, filepath.Join(root, "a.txt"), status.StoredPath)
	content, err := os.ReadFile(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
	assert.NoFileExists(t, filepath.Join(root, "a.txt.part"))
}

func TestClient_DisconnectNotifiesPeer(t *testing.T) {
	advertiser, adCb, discoverer, _ := connectedPair(t)

	discoverer.DisconnectFromEndpoint(advertiser.EndpointID())
	assert.Equal(t, discoverer.EndpointID(), receive(t, adCb.gone))

	err := discoverer.SendPayload(context.Background(), advertiser.EndpointID(), nearby.NewBytesPayload([]byte("hi")))
	code, ok := nearby.StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, nearby.StatusNotConnected, code)
}

func TestClient_LostWhenAdvertiserStops(t *testing.T) {
	registry := newMemoryRegistry()
	advertiser := NewClient(DefaultConfig(), registry, nil)
	discoverer := NewClient(DefaultConfig(), registry, nil)
	t.Cleanup(func() {
		_ = advertiser.Close()
		_ = discoverer.Close()
	})
	cb := newAutoAccept()
	cb.client = discoverer
	ctx := context.Background()

	require.NoError(t, discoverer.StartDiscovery(ctx, "svc", nearby.Options{}, cb))
	require.NoError(t, advertiser.StartAdvertising(ctx, "tablet", "svc", nearby.Options{}, newAutoAccept()))
	assert.Equal(t, advertiser.EndpointID(), receive(t, cb.found))

	advertiser.StopAdvertising()
	assert.Equal(t, advertiser.EndpointID(), receive(t, cb.lost))
}

func TestClient_OtherServiceIgnored(t *testing.T) {
	registry := newMemoryRegistry()
	advertiser := NewClient(DefaultConfig(), registry, nil)
	discoverer := NewClient(DefaultConfig(), registry, nil)
	t.Cleanup(func() {
		_ = advertiser.Close()
		_ = discoverer.Close()
	})
	cb := newAutoAccept()
	ctx := context.Background()

	require.NoError(t, advertiser.StartAdvertising(ctx, "tablet", "other", nearby.Options{}, newAutoAccept()))
	require.NoError(t, discoverer.StartDiscovery(ctx, "svc", nearby.Options{}, cb))

	select {
	case id := <-cb.found:
		t.Fatalf("unexpected endpoint %s", id)
	case <-time.After(100 * time.Millisecond):
	}
}
