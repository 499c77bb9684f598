package session

import (
	"io"
	"log/slog"
	"time"

	"github.com/rescp17/nearbyExchanger/pkg/discovery"
	"github.com/rescp17/nearbyExchanger/pkg/exchange"
	"github.com/rescp17/nearbyExchanger/pkg/exchanger"
	"github.com/rescp17/nearbyExchanger/pkg/nearby"
	"github.com/rescp17/nearbyExchanger/pkg/nearby/lan"
	"github.com/rescp17/nearbyExchanger/pkg/transfer"
)

// LANOptions configures sessions that run over the LAN transport.
type LANOptions struct {
	LAN         lan.Config
	Transfer    *transfer.Config
	Adapter     discovery.Adapter
	LocalName   string
	ServiceID   string
	Strategy    nearby.Strategy
	Timeout     time.Duration
	EventBuffer int
	// SaveDir reports where received files go. It is read on every payload.
	SaveDir func() string
	Logger  *slog.Logger
}

// NewLANFactory returns a Factory that gives every session its own LAN
// client, payload router and engine.
func NewLANFactory(opts LANOptions) Factory {
	return func(role exchange.Role) (exchange.Exchanger, io.Closer, error) {
		logger := opts.Logger
		if logger == nil {
			logger = slog.Default()
		}
		if opts.Transfer != nil {
			opts.LAN.ChunkSize = opts.Transfer.ChunkSize
		}

		client := lan.NewClient(opts.LAN, opts.Adapter, logger)

		writer := transfer.NewDiskWriter(opts.SaveDir)
		if opts.Transfer != nil {
			writer.ChunkSize = opts.Transfer.ChunkSize
		}
		router := transfer.NewRouter(writer, transfer.NewStatusManagerWithConfig(opts.Transfer), logger)

		engineOpts := exchanger.Options{
			ServiceID:      opts.ServiceID,
			LocalName:      opts.LocalName,
			Strategy:       opts.Strategy,
			Router:         router,
			Logger:         logger,
			EventBuffer:    opts.EventBuffer,
			RequestTimeout: opts.Timeout,
		}

		switch role {
		case exchange.Advertiser:
			return exchanger.NewAdvertiser(client, engineOpts), client, nil
		default:
			return exchanger.NewDiscoverer(client, engineOpts), client, nil
		}
	}
}
