package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	appevents "github.com/rescp17/nearbyExchanger/internal/app_events"
	"github.com/rescp17/nearbyExchanger/pkg/concurrency"
	"github.com/rescp17/nearbyExchanger/pkg/coordinator"
	"github.com/rescp17/nearbyExchanger/pkg/exchange"
	"github.com/rescp17/nearbyExchanger/pkg/session"
)

// AppController defines the contract between the UI and the coordinator.
type AppController interface {
	// Run processes screen events until ctx ends or the coordinator fails.
	Run(ctx context.Context) error

	// UIMessages returns a read-only channel for receiving effects from the coordinator.
	UIMessages() <-chan tea.Msg

	// AppEvents returns a write-only channel for the UI to send screen events.
	AppEvents() chan<- appevents.AppEvent

	// Screen holds the snapshot the UI renders.
	Screen() *concurrency.StateCell[coordinator.ScreenState]
}

// ServiceHost starts and stops the engine the coordinator asks for.
type ServiceHost interface {
	Start(ctx context.Context, role exchange.Role) (*session.Session, error)
	Stop() error
}

var (
	_ AppController = (*coordinator.App)(nil)
	_ ServiceHost   = (*session.Host)(nil)
)
