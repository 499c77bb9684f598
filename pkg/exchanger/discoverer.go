package exchanger

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rescp17/nearbyExchanger/pkg/concurrency"
	"github.com/rescp17/nearbyExchanger/pkg/device"
	"github.com/rescp17/nearbyExchanger/pkg/exchange"
	"github.com/rescp17/nearbyExchanger/pkg/fileInfo"
	"github.com/rescp17/nearbyExchanger/pkg/nearby"
)

// Discoverer scans for advertisers, connects on request and sends files to
// connected peers.
type Discoverer struct {
	*engine
	// guard lets one outbound batch run at a time.
	guard *concurrency.ConcurrencyGuard
}

var (
	_ exchange.Exchanger         = (*Discoverer)(nil)
	_ nearby.ConnectionLifecycle = (*Discoverer)(nil)
	_ nearby.EndpointDiscovery   = (*Discoverer)(nil)
)

func NewDiscoverer(client nearby.Client, opts Options) *Discoverer {
	return &Discoverer{
		engine: newEngine(exchange.Discoverer, client, opts),
		guard:  concurrency.NewConcurrencyGuard(),
	}
}

func (d *Discoverer) Start() {
	if exchange.IsRunning(d.mode()) {
		d.client.StopDiscovery()
	}
	d.setMode(exchange.Stopped{})

	ctx, cancel := d.requestContext()
	defer cancel()
	err := d.client.StartDiscovery(ctx, d.serviceID, nearby.Options{Strategy: d.strategy}, d)
	if err != nil {
		d.logger.Error("discovery failed", "error", err)
		d.setMode(failed("Failed to start discovery", err))
		return
	}
	d.logger.Info("discovery started successfully")
	d.setMode(exchange.Running{Role: exchange.Discoverer})
}

// Stop disconnects every tracked device, clears the registry and then stops
// discovery.
func (d *Discoverer) Stop() {
	d.disconnectAll()
	d.stopDiscovery()
}

func (d *Discoverer) stopDiscovery() {
	if !exchange.IsRunning(d.mode()) {
		return
	}
	d.client.StopDiscovery()
	d.setMode(exchange.Stopped{})
}

func (d *Discoverer) Execute(cmd exchange.Command) {
	switch cmd := cmd.(type) {
	case exchange.ConnectEndpoint:
		d.connectEndpoint(cmd.EndpointID)
	case exchange.DisconnectEndpoint:
		d.disconnectEndpoint(cmd.EndpointID)
	case exchange.StopSearching:
		d.stopDiscovery()
	case exchange.SendFile:
		d.send(cmd.Path)
	case exchange.SendDirectory:
		d.send(cmd.Path)
	default:
		d.logger.Warn("Unknown command", "command", commandName(cmd))
	}
}

func (d *Discoverer) connectEndpoint(endpointID string) {
	d.logger.Info("Connecting to endpoint", "endpoint", endpointID)
	if _, ok := d.markState(endpointID, device.Connecting); !ok {
		d.logger.Warn("Connect requested for unknown endpoint", "endpoint", endpointID)
		return
	}

	ctx, cancel := d.requestContext()
	defer cancel()
	if err := d.client.RequestConnection(ctx, d.localName, endpointID, d); err != nil {
		d.logger.Error("Failed to request connection", "endpoint", endpointID, "error", err)
		d.markState(endpointID, device.Disconnected)
		return
	}
	d.logger.Info("Connection request sent successfully", "endpoint", endpointID)
}

func (d *Discoverer) disconnectEndpoint(endpointID string) {
	d.logger.Info("Disconnecting from endpoint", "endpoint", endpointID)
	d.client.DisconnectFromEndpoint(endpointID)
	d.router.EndpointGone(endpointID)
	d.markState(endpointID, device.Disconnected)
}

// send streams path, a file or a directory tree, to every connected peer in
// the background and publishes SendFinished when it ends. A batch requested
// while another runs is dropped.
func (d *Discoverer) send(path string) {
	if d.guard.Busy() {
		d.logger.Warn("Transfer already in progress, dropping request", "path", path)
		d.sendEvent(exchange.SendFinished{Path: path, Err: concurrency.ErrBusy})
		return
	}
	go func() {
		err := d.guard.ExecuteWithContext(context.Background(), func(ctx context.Context) error {
			return d.sendTree(ctx, path)
		})
		if err != nil {
			d.logger.Error("Failed to send", "path", path, "error", err)
		} else {
			d.logger.Info("Sent", "path", path)
		}
		d.sendEvent(exchange.SendFinished{Path: path, Err: err})
	}()
}

func (d *Discoverer) sendTree(ctx context.Context, path string) error {
	peers := d.state.Value().Connected()
	if len(peers) == 0 {
		return errNoConnectedPeers
	}

	root, err := fileInfo.CreateNode(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var errs []error
	for _, node := range root.Flatten() {
		for _, peer := range peers {
			if err := d.sendFile(ctx, peer.EndpointID, node); err != nil {
				errs = append(errs, fmt.Errorf("%s to %s: %w", node.RelPath, peer.DisplayName(), err))
			}
		}
	}
	return errors.Join(errs...)
}

func (d *Discoverer) sendFile(ctx context.Context, endpointID string, node fileInfo.FileNode) error {
	checksum, err := node.CalcChecksum()
	if err != nil {
		return err
	}
	f, err := os.Open(node.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			d.logger.Warn("failed to close sent file", "path", node.Path, "error", err)
		}
	}()

	payload := nearby.NewFilePayload(node.RelPath, node.Size, f)
	payload.Checksum = checksum
	d.router.TrackOutgoing(endpointID, payload)
	d.logger.Info("Sending file", "endpoint", endpointID, "name", node.RelPath, "size", node.Size, "mime", node.MimeType)
	return d.client.SendPayload(ctx, endpointID, payload)
}

func (d *Discoverer) OnEndpointFound(endpointID string, info nearby.EndpointInfo) {
	d.logger.Info("endpoint found", "endpoint", endpointID, "name", info.EndpointName)
	d.setDevice(device.New(endpointID, info.EndpointName, device.Disconnected))
}

func (d *Discoverer) OnEndpointLost(endpointID string) {
	d.logger.Info("endpoint lost", "endpoint", endpointID)
	d.removeDevice(endpointID)
}

func (d *Discoverer) OnConnectionInitiated(endpointID string, info nearby.ConnectionInfo) {
	d.logger.Info("Connection initiated", "endpoint", endpointID, "token", info.AuthenticationDigits)
	state := device.AwaitingConfirm
	d.updateDevice(endpointID, func(rd device.RemoteDevice) device.RemoteDevice {
		return rd.Updated(info.AuthenticationDigits, &state)
	})
	if err := d.client.AcceptConnection(endpointID, d.router); err != nil {
		d.logger.Error("Failed to accept connection", "endpoint", endpointID, "error", err)
		d.markState(endpointID, device.Disconnected)
	}
}

func (d *Discoverer) OnConnectionResult(endpointID string, result nearby.Resolution) {
	if rd, ok := d.connectionResult(endpointID, result); ok {
		d.sendEvent(exchange.EndpointConnected{Device: rd})
	}
}

func (d *Discoverer) OnDisconnected(endpointID string) {
	d.logger.Info("Disconnected", "endpoint", endpointID)
	d.router.EndpointGone(endpointID)
	if rd, ok := d.markState(endpointID, device.Disconnected); ok {
		d.sendEvent(exchange.EndpointDisconnected{Device: rd})
	}
}

func commandName(cmd exchange.Command) string {
	return fmt.Sprintf("%T", cmd)
}
