package ui

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	appevents "github.com/rescp17/nearbyExchanger/internal/app_events"
	"github.com/rescp17/nearbyExchanger/internal/app_events/screen"
	"github.com/rescp17/nearbyExchanger/internal/util"
	"github.com/rescp17/nearbyExchanger/pkg/exchange"
	"github.com/rescp17/nearbyExchanger/pkg/pathPicker"
	"github.com/rescp17/nearbyExchanger/pkg/session"
)

// handleAppMessage applies one coordinator effect. Effects that need the
// host or the file system run as commands whose result is a screen event.
func (m *model) handleAppMessage(msg appevents.AppUIMessage) tea.Cmd {
	switch msg := msg.(type) {
	case screen.CheckDirectoryAccess:
		return checkDirectoryAccess(msg.Dir)

	case screen.RequestPermissions:
		m.permissions = msg.Permissions
		m.view = viewPermissions
		return nil

	case screen.StartForegroundService:
		m.message = fmt.Sprintf("Starting %s...", msg.Role)
		m.err = nil
		return m.startService(msg.Role)

	case screen.StopForegroundService:
		m.message = "Stopping..."
		return m.stopService()

	case screen.PickFile:
		return m.openPicker(pathPicker.TargetFile, msg.ReadOnly)

	case screen.PickDirectory:
		return m.openPicker(pathPicker.TargetDirectory, msg.ReadOnly)

	case screen.ShowDisconnectedAlert:
		m.alert = fmt.Sprintf("Disconnected from %s", msg.Device.DisplayName())
		return nil

	case screen.ShowMessage:
		m.message = msg.Text
		return nil

	case screen.TransferProgress:
		id := msg.Status.PayloadID
		if _, ok := m.transfers[id]; !ok {
			m.transferOrder = append(m.transferOrder, id)
		}
		m.transfers[id] = msg.Status
		return nil

	case appevents.AppErrorMsg:
		m.err = msg.Err
		return nil

	default:
		m.logger.Warn("Unhandled app message", "message", fmt.Sprintf("%T", msg))
		return nil
	}
}

func checkDirectoryAccess(dir string) tea.Cmd {
	return func() tea.Msg {
		ok, err := util.CheckDirectoryAccess(dir)
		return screen.DirectoryAccessChecked{Dir: dir, HasAccess: ok && err == nil}
	}
}

func (m *model) startService(role exchange.Role) tea.Cmd {
	ctx, host, logger := m.ctx, m.host, m.logger
	return func() tea.Msg {
		s, err := host.Start(ctx, role)
		if err != nil {
			logger.Error("Failed to start service", "role", role.String(), "error", err)
			return serviceErrorMsg{err: fmt.Errorf("failed to start %s: %w", role, err)}
		}
		return screen.ServiceStarted{Role: role, Exchanger: s.Exchanger()}
	}
}

func (m *model) stopService() tea.Cmd {
	host, logger := m.host, m.logger
	return func() tea.Msg {
		if err := host.Stop(); err != nil && !errors.Is(err, session.ErrNoSession) {
			logger.Warn("Failed to stop service cleanly", "error", err)
		}
		return screen.ServiceStopped{}
	}
}

func (m *model) openPicker(target pathPicker.Target, readOnly bool) tea.Cmd {
	m.picker = pathPicker.New(target, readOnly)
	m.picker, _ = m.picker.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	if err := m.picker.SetPath(m.startDir()); err != nil {
		m.logger.Warn("Failed to open picker directory", "error", err)
	}
	m.view = viewPicker
	return m.picker.Init()
}

func (m *model) startDir() string {
	if m.opts.StartDir != "" {
		return m.opts.StartDir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}
