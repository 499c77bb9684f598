package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/brutella/dnssd"
	dnssdlog "github.com/brutella/dnssd/log"
)

type MDNSAdapter struct{}

// NewMDNSAdapter returns an adapter with the dnssd library's own logging muted.
func NewMDNSAdapter() *MDNSAdapter {
	dnssdlog.Info.SetOutput(io.Discard)
	dnssdlog.Debug.SetOutput(io.Discard)
	return &MDNSAdapter{}
}

func (m *MDNSAdapter) Announce(ctx context.Context, serviceInfo ServiceInfo) error {
	cfg := dnssd.Config{
		Name:   serviceInfo.Name,
		Type:   serviceInfo.Type,
		Domain: serviceInfo.Domain,
		// mdns will multicast to ip address, so we can leave it nil
		IPs:  nil,
		Text: serviceInfo.Text,
		Port: serviceInfo.Port,
	}

	service, err := dnssd.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to create mDNS service: %w", err)
	}

	rp, err := dnssd.NewResponder()
	if err != nil {
		return fmt.Errorf("failed to create mDNS responder: %w", err)
	}

	if _, err = rp.Add(service); err != nil {
		return fmt.Errorf("failed to add mDNS service: %w", err)
	}

	if err = rp.Respond(ctx); err != nil {
		// Context cancellation is not an error in normal operation
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("failed to respond to mDNS service: %w", err)
	}

	slog.Info("mDNS announcement stopped", "name", serviceInfo.Name)
	return nil
}

func (m *MDNSAdapter) Browse(ctx context.Context, service string, found, lost func(ServiceInfo)) error {
	addFn := func(e dnssd.BrowseEntry) {
		if len(e.IPs) == 0 {
			slog.Debug("Ignoring mDNS entry without address", "name", e.Name)
			return
		}
		found(entryInfo(e))
	}
	rmvFn := func(e dnssd.BrowseEntry) {
		lost(entryInfo(e))
	}

	if err := dnssd.LookupType(ctx, service, addFn, rmvFn); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return fmt.Errorf("mDNS lookup failed: %w", err)
	}
	return nil
}

func entryInfo(e dnssd.BrowseEntry) ServiceInfo {
	info := ServiceInfo{
		Name:   e.Name,
		Type:   e.Type,
		Domain: e.Domain,
		Port:   e.Port,
		Text:   e.Text,
	}
	if len(e.IPs) > 0 {
		info.Addr = e.IPs[0]
	}
	return info
}
