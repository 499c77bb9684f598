package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceInfo_Text(t *testing.T) {
	info := ServiceInfo{
		Name: "host-1234",
		Addr: net.ParseIP("192.168.1.20"),
		Port: 8080,
		Text: map[string]string{TextEndpointID: "ep-1", TextName: "Pixel", TextServiceID: "svc"},
	}
	assert.Equal(t, "ep-1", info.EndpointID())
	assert.Equal(t, "Pixel", info.DisplayName())
	assert.Equal(t, "svc", info.ServiceID())
	assert.Equal(t, "http://192.168.1.20:8080", info.URL())

	info.Text = nil
	assert.Equal(t, "host-1234", info.DisplayName())
	assert.Equal(t, "_nearby-xchg._tcp.local.", FullType(DefaultServerType, DefaultDomain))
}

func TestMDNSAdapter_AnnounceStopsOnCancel(t *testing.T) {
	// Skip mDNS tests in CI environment as they may be unreliable
	if testing.Short() {
		t.Skip("Skipping mDNS test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	adapter := NewMDNSAdapter()
	errCh := make(chan error, 1)
	go func() {
		errCh <- adapter.Announce(ctx, ServiceInfo{
			Name:   "test-instance",
			Type:   "_test-service._tcp",
			Domain: DefaultDomain,
			Port:   8080,
			Text:   map[string]string{TextEndpointID: "ep-1"},
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("Service announcement did not complete in time")
	}
}

func TestMDNSAdapter_Browse(t *testing.T) {
	// Skip mDNS tests in CI environment as they may be unreliable
	if testing.Short() {
		t.Skip("Skipping mDNS test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	adapter := NewMDNSAdapter()

	serviceInfo := ServiceInfo{
		Name:   "browse-instance",
		Type:   "_test-browse._tcp",
		Domain: DefaultDomain,
		Port:   8081,
		Text:   map[string]string{TextEndpointID: "ep-2", TextName: "Laptop"},
	}
	go func() {
		_ = adapter.Announce(ctx, serviceInfo)
	}()
	time.Sleep(300 * time.Millisecond)

	queryCtx, queryCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer queryCancel()

	foundCh := make(chan ServiceInfo, 4)
	go func() {
		_ = adapter.Browse(queryCtx, FullType(serviceInfo.Type, serviceInfo.Domain), func(s ServiceInfo) {
			foundCh <- s
		}, func(ServiceInfo) {})
	}()

	select {
	case found := <-foundCh:
		require.Equal(t, serviceInfo.Name, found.Name)
		assert.Equal(t, "ep-2", found.EndpointID())
		assert.Equal(t, "Laptop", found.DisplayName())
		assert.Equal(t, serviceInfo.Port, found.Port)
	case <-queryCtx.Done():
		t.Fatalf("Service was not discovered")
	}
}
