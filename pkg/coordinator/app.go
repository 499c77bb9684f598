// Package coordinator mediates between the screen and the exchange engine.
// It derives the screen state from the engine state, sequences the flows
// that wait for a permission or picker answer, and keeps the save
// directories in sync with storage.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/rescp17/nearbyExchanger/internal/app"
	appevents "github.com/rescp17/nearbyExchanger/internal/app_events"
	"github.com/rescp17/nearbyExchanger/internal/app_events/screen"
	"github.com/rescp17/nearbyExchanger/pkg/concurrency"
	"github.com/rescp17/nearbyExchanger/pkg/device"
	"github.com/rescp17/nearbyExchanger/pkg/exchange"
	"github.com/rescp17/nearbyExchanger/pkg/platform"
	"github.com/rescp17/nearbyExchanger/pkg/storage"
)

// ErrProtocolViolation means the screen answered a request that was never
// made, or made a second request before the first was answered.
var ErrProtocolViolation = errors.New("protocol violation")

const uiMessageBuffer = 10

// App is the screen coordinator.
type App struct {
	storage     storage.Storage
	directories platform.DirectoryProvider
	permissions platform.PermissionPolicy
	logger      *slog.Logger

	pending    *app.PendingSlot
	screen     *concurrency.StateCell[ScreenState]
	events     *concurrency.EventBus[exchange.Event]
	uiMessages chan tea.Msg
	appEvents  chan appevents.AppEvent

	// queuedRole is selected once the startup directory check is answered.
	queuedRole *exchange.Role

	mu       sync.Mutex
	attached *attachment
}

func NewApp(store storage.Storage, directories platform.DirectoryProvider, permissions platform.PermissionPolicy, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		storage:     store,
		directories: directories,
		permissions: permissions,
		logger:      logger.With("component", "coordinator"),
		pending:     app.NewPendingSlot(),
		screen:      concurrency.NewStateCell(ScreenState{}),
		events:      concurrency.NewEventBus[exchange.Event](concurrency.DefaultEventBuffer),
		uiMessages:  make(chan tea.Msg, uiMessageBuffer),
		appEvents:   make(chan appevents.AppEvent, uiMessageBuffer),
	}
}

// Screen publishes the state the UI renders.
func (a *App) Screen() *concurrency.StateCell[ScreenState] {
	return a.screen
}

// Events re-publishes the events of the attached engine.
func (a *App) Events() *concurrency.EventBus[exchange.Event] {
	return a.events
}

func (a *App) UIMessages() <-chan tea.Msg {
	return a.uiMessages
}

func (a *App) AppEvents() chan<- appevents.AppEvent {
	return a.appEvents
}

// SaveDir is the directory received files are written to.
func (a *App) SaveDir() string {
	return a.screen.Value().CurrentDir
}

// Run processes screen events until ctx ends or a protocol violation occurs,
// which is returned.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case event := <-a.appEvents:
				err := a.HandleEvent(gctx, event)
				if err == nil {
					continue
				}
				if errors.Is(err, ErrProtocolViolation) {
					a.sendAndLogError(gctx, "Screen protocol violated", err)
					return err
				}
				a.sendAndLogError(gctx, "Failed to handle screen event", err)
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Detach()
		return nil
	})

	return g.Wait()
}

// HandleEvent applies one screen event. Errors wrapping ErrProtocolViolation
// are fatal; any other error is reported and the coordinator carries on.
func (a *App) HandleEvent(ctx context.Context, event appevents.AppEvent) error {
	a.logger.Debug("Screen event", "event", fmt.Sprintf("%T", event))

	switch ev := event.(type) {
	case screen.ActivityStarted:
		return a.onActivityStarted(ctx)
	case screen.RoleSelected:
		if a.screen.Value().CheckingDirectory {
			a.logger.Info("Save directory check in progress, queuing role", "role", ev.Role.String())
			a.SelectRoleOnStart(ev.Role)
			return nil
		}
		return a.onRoleSelected(ctx, ev.Role)
	case screen.PermissionsResult:
		return a.onPermissionsResult(ctx, ev.Granted)
	case screen.ServiceStarted:
		return a.onServiceStarted(ctx, ev)
	case screen.ServiceStopped:
		a.onServiceStopped()
		return nil
	case screen.AddDirectoryRequested:
		return a.request(ctx, app.AddSaveDirectory{}, screen.PickDirectory{ReadOnly: false})
	case screen.RemoveDirectoryRequested:
		return a.removeDir(ctx, ev.Dir)
	case screen.DirectorySelected:
		return a.setCurrentDir(ctx, ev.Dir)
	case screen.DirectoryAccessChecked:
		return a.onDirectoryAccessChecked(ctx, ev.Dir, ev.HasAccess)
	case screen.SendFileClicked:
		return a.request(ctx, app.SendFile{}, screen.PickFile{ReadOnly: true})
	case screen.SendFolderClicked:
		return a.request(ctx, app.SendDirectory{}, screen.PickDirectory{ReadOnly: true})
	case screen.FilePicked:
		return a.onFilePicked(ctx, ev.Path)
	case screen.DirectoryPicked:
		return a.onDirectoryPicked(ctx, ev.Path, ev.Name)
	case screen.PickerCancelled:
		return a.onPickerCancelled(ctx)
	case screen.DisconnectClicked:
		a.emit(ctx, screen.StopForegroundService{})
		return nil
	case screen.DeviceClicked:
		a.onDeviceClicked(ctx, ev.Device)
		return nil
	default:
		a.logger.Warn("Received unhandled screen event", "event", fmt.Sprintf("%T", event))
		return nil
	}
}

// request records action and asks the screen for what it needs.
func (a *App) request(ctx context.Context, action app.PendingAction, effect tea.Msg) error {
	if err := a.pending.Set(action); err != nil {
		return fmt.Errorf("%w: %w", ErrProtocolViolation, err)
	}
	a.emit(ctx, effect)
	return nil
}

// take removes the pending action a result event answers.
func (a *App) take(result string) (app.PendingAction, error) {
	action, err := a.pending.Take()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProtocolViolation, result, err)
	}
	return action, nil
}

func mismatch(result string, action app.PendingAction) error {
	return fmt.Errorf("%w: %s does not answer %s", ErrProtocolViolation, result, action)
}

func (a *App) onRoleSelected(ctx context.Context, role exchange.Role) error {
	if err := a.pending.Set(app.StartService{Role: role}); err != nil {
		return fmt.Errorf("%w: %w", ErrProtocolViolation, err)
	}
	perms := a.permissions.PermissionsFor(role)
	for _, p := range a.permissions.PermissionsForServiceStart() {
		if !containsPermission(perms, p) {
			perms = append(perms, p)
		}
	}
	a.emit(ctx, screen.RequestPermissions{Permissions: perms})
	return nil
}

func (a *App) onPermissionsResult(ctx context.Context, granted bool) error {
	action, err := a.take("permissions result")
	if err != nil {
		return err
	}
	start, ok := action.(app.StartService)
	if !ok {
		return mismatch("permissions result", action)
	}
	if !granted {
		a.logger.Info("Permissions denied, dropping pending action", "action", action.String())
		a.emit(ctx, screen.ShowMessage{Text: "Permissions were denied, the " + start.Role.String() + " was not started"})
		return nil
	}
	a.emit(ctx, screen.StartForegroundService{Role: start.Role})
	return nil
}

func (a *App) onServiceStarted(ctx context.Context, ev screen.ServiceStarted) error {
	if ev.Exchanger == nil {
		return fmt.Errorf("service started for %s without an exchanger", ev.Role)
	}
	a.logger.Info("Service started", "role", ev.Role.String())
	a.Attach(ctx, ev.Exchanger)
	return nil
}

func (a *App) onServiceStopped() {
	a.logger.Info("Service stopped")
	a.Detach()
	a.screen.Update(reset)
}

func (a *App) onFilePicked(ctx context.Context, path string) error {
	action, err := a.take("file picked")
	if err != nil {
		return err
	}
	if _, ok := action.(app.SendFile); !ok {
		return mismatch("file picked", action)
	}
	a.execute(ctx, exchange.SendFile{Path: path})
	return nil
}

func (a *App) onDirectoryPicked(ctx context.Context, path, name string) error {
	action, err := a.take("directory picked")
	if err != nil {
		return err
	}
	switch action.(type) {
	case app.AddSaveDirectory:
		if err := a.addSaveDirectory(ctx, path, name); err != nil {
			return err
		}
		return a.settleStartup(ctx)
	case app.SendDirectory:
		a.execute(ctx, exchange.SendDirectory{Path: path})
		return nil
	default:
		return mismatch("directory picked", action)
	}
}

func (a *App) onPickerCancelled(ctx context.Context) error {
	action, ok := a.pending.Clear()
	if !ok {
		a.logger.Debug("Picker cancelled with nothing pending")
		return nil
	}
	a.logger.Info("Picker cancelled", "action", action.String())
	return a.settleStartup(ctx)
}

// SelectRoleOnStart queues role so that it is selected as soon as
// ActivityStarted and any directory prompt it triggers have been answered.
// Outside of event handling it must be called before Run.
func (a *App) SelectRoleOnStart(role exchange.Role) {
	a.queuedRole = &role
}

func (a *App) startQueuedRole(ctx context.Context) error {
	if a.queuedRole == nil {
		return nil
	}
	role := *a.queuedRole
	a.queuedRole = nil
	return a.onRoleSelected(ctx, role)
}

func (a *App) onDeviceClicked(ctx context.Context, d device.RemoteDevice) {
	switch d.ConnectionState {
	case device.Disconnected, device.Discovered:
		a.execute(ctx, exchange.ConnectEndpoint{EndpointID: d.EndpointID})
	case device.Connecting, device.AwaitingConfirm, device.Connected:
		a.execute(ctx, exchange.DisconnectEndpoint{EndpointID: d.EndpointID})
	}
}

// execute forwards cmd to the attached engine.
func (a *App) execute(ctx context.Context, cmd exchange.Command) {
	ex, ok := a.exchanger()
	if !ok {
		a.logger.Warn("No session to execute command", "command", fmt.Sprintf("%T", cmd))
		a.emit(ctx, screen.ShowMessage{Text: "Start advertising or discovery first"})
		return
	}
	ex.Execute(cmd)
}

// emit hands msg to the UI unless ctx ends first.
func (a *App) emit(ctx context.Context, msg tea.Msg) {
	select {
	case a.uiMessages <- msg:
	case <-ctx.Done():
		a.logger.Warn("Dropping UI message", "message", fmt.Sprintf("%T", msg), "error", ctx.Err())
	}
}

// sendAndLogError logs an error and sends it to the UI.
func (a *App) sendAndLogError(ctx context.Context, baseMessage string, err error) {
	a.logger.Error(baseMessage, "error", err)
	a.emit(ctx, appevents.AppErrorMsg{Err: fmt.Errorf("%s: %w", baseMessage, err)})
}

func containsPermission(perms []platform.Permission, p platform.Permission) bool {
	for _, existing := range perms {
		if existing == p {
			return true
		}
	}
	return false
}
