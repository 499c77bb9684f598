package coordinator

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/rescp17/nearbyExchanger/internal/app_events/screen"
	"github.com/rescp17/nearbyExchanger/pkg/exchange"
	"github.com/rescp17/nearbyExchanger/pkg/transfer"
)

// transferReporter is implemented by engines that track payload progress.
type transferReporter interface {
	Transfers() *transfer.StatusManager
}

// attachment is the set of subscriptions held on one engine.
type attachment struct {
	exchanger exchange.Exchanger
	cancel    context.CancelFunc
	group     *errgroup.Group
}

// Attach subscribes to ex, replacing any engine attached before. Its state
// is projected into the screen state and its events are handled and
// re-published until Detach or ctx ends.
func (a *App) Attach(ctx context.Context, ex exchange.Exchanger) {
	a.Detach()

	actx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(actx)
	role := ex.Role()

	states, unsubscribeStates := ex.State().Subscribe()
	events, unsubscribeEvents := ex.Events().Subscribe()

	g.Go(func() error {
		defer unsubscribeStates()
		for {
			select {
			case <-gctx.Done():
				return nil
			case st, ok := <-states:
				if !ok {
					return nil
				}
				a.screen.Update(func(s ScreenState) ScreenState {
					return project(s, role, st)
				})
			}
		}
	})
	g.Go(func() error {
		defer unsubscribeEvents()
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				a.onExchangeEvent(gctx, ex, ev)
			}
		}
	})
	if reporter, ok := ex.(transferReporter); ok {
		updates, unsubscribeUpdates := reporter.Transfers().Updates().Subscribe()
		g.Go(func() error {
			defer unsubscribeUpdates()
			for {
				select {
				case <-gctx.Done():
					return nil
				case status, ok := <-updates:
					if !ok {
						return nil
					}
					a.emit(gctx, screen.TransferProgress{Status: status})
				}
			}
		})
	}

	a.mu.Lock()
	a.attached = &attachment{exchanger: ex, cancel: cancel, group: g}
	a.mu.Unlock()
	a.logger.Info("Attached to exchanger", "role", role.String())
}

// Detach drops the engine subscriptions and waits for them to finish.
func (a *App) Detach() {
	a.mu.Lock()
	att := a.attached
	a.attached = nil
	a.mu.Unlock()

	if att == nil {
		return
	}
	att.cancel()
	if err := att.group.Wait(); err != nil {
		a.logger.Warn("Exchanger subscription ended with error", "error", err)
	}
	a.logger.Info("Detached from exchanger", "role", att.exchanger.Role().String())
}

func (a *App) exchanger() (exchange.Exchanger, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.attached == nil {
		return nil, false
	}
	return a.attached.exchanger, true
}

func (a *App) onExchangeEvent(ctx context.Context, ex exchange.Exchanger, ev exchange.Event) {
	a.logger.Info("Exchange event", "event", fmt.Sprintf("%T", ev), "endpoint", ev.EndpointID())
	switch ev := ev.(type) {
	case exchange.EndpointConnected:
		ex.Execute(exchange.StopSearching{})
	case exchange.EndpointDisconnected:
		a.emit(ctx, screen.ShowDisconnectedAlert{Device: ev.Device})
	case exchange.SendFinished:
		name := filepath.Base(ev.Path)
		if ev.Err != nil {
			a.emit(ctx, screen.ShowMessage{Text: fmt.Sprintf("Failed to send %s: %v", name, ev.Err)})
		} else {
			a.emit(ctx, screen.ShowMessage{Text: "Sent " + name})
		}
	}
	a.events.Publish(ev)
}
