package exchanger

import (
	"github.com/rescp17/nearbyExchanger/pkg/device"
	"github.com/rescp17/nearbyExchanger/pkg/exchange"
	"github.com/rescp17/nearbyExchanger/pkg/nearby"
)

// Advertiser announces the local device and accepts every inbound
// connection without asking the user.
type Advertiser struct {
	*engine
}

var (
	_ exchange.Exchanger         = (*Advertiser)(nil)
	_ nearby.ConnectionLifecycle = (*Advertiser)(nil)
)

func NewAdvertiser(client nearby.Client, opts Options) *Advertiser {
	return &Advertiser{engine: newEngine(exchange.Advertiser, client, opts)}
}

func (a *Advertiser) Start() {
	if exchange.IsRunning(a.mode()) {
		a.client.StopAdvertising()
	}
	a.setMode(exchange.Stopped{})

	ctx, cancel := a.requestContext()
	defer cancel()
	err := a.client.StartAdvertising(ctx, a.localName, a.serviceID, nearby.Options{Strategy: a.strategy}, a)
	if err != nil {
		a.logger.Error("advertising failed", "error", err)
		a.setMode(failed("Failed to start advertising", err))
		return
	}
	a.logger.Info("advertising started successfully", "name", a.localName)
	a.setMode(exchange.Running{Role: exchange.Advertiser})
}

func (a *Advertiser) Stop() {
	if !exchange.IsRunning(a.mode()) {
		return
	}
	a.client.StopAdvertising()
	a.setMode(exchange.Stopped{})
}

// Execute only honours DisconnectEndpoint; an advertiser never initiates.
func (a *Advertiser) Execute(cmd exchange.Command) {
	switch cmd := cmd.(type) {
	case exchange.DisconnectEndpoint:
		a.client.DisconnectFromEndpoint(cmd.EndpointID)
		a.router.EndpointGone(cmd.EndpointID)
		a.markState(cmd.EndpointID, device.Disconnected)
	case exchange.ConnectEndpoint, exchange.StopSearching, exchange.SendFile, exchange.SendDirectory:
		a.logger.Warn("Command not supported by advertiser", "command", commandName(cmd))
	default:
		a.logger.Warn("Unknown command", "command", commandName(cmd))
	}
}

func (a *Advertiser) OnConnectionInitiated(endpointID string, info nearby.ConnectionInfo) {
	a.logger.Info("Connection initiated", "endpoint", endpointID, "name", info.EndpointName, "token", info.AuthenticationDigits)
	d, ok := a.device(endpointID)
	if !ok {
		d = device.New(endpointID, info.EndpointName, device.Connecting)
	}
	state := device.Connecting
	a.setDevice(d.WithName(info.EndpointName).Updated(info.AuthenticationDigits, &state))

	if err := a.client.AcceptConnection(endpointID, a.router); err != nil {
		a.logger.Error("Failed to accept connection", "endpoint", endpointID, "error", err)
		a.markState(endpointID, device.Disconnected)
	}
}

func (a *Advertiser) OnConnectionResult(endpointID string, result nearby.Resolution) {
	if d, ok := a.connectionResult(endpointID, result); ok {
		a.sendEvent(exchange.EndpointConnected{Device: d})
	}
}

func (a *Advertiser) OnDisconnected(endpointID string) {
	a.logger.Info("Disconnected", "endpoint", endpointID)
	a.router.EndpointGone(endpointID)
	a.markState(endpointID, device.Disconnected)
}
