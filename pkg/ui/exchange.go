package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rescp17/nearbyExchanger/internal/app_events/screen"
	"github.com/rescp17/nearbyExchanger/internal/style"
	"github.com/rescp17/nearbyExchanger/internal/util"
	"github.com/rescp17/nearbyExchanger/pkg/coordinator"
	"github.com/rescp17/nearbyExchanger/pkg/device"
	"github.com/rescp17/nearbyExchanger/pkg/exchange"
	"github.com/rescp17/nearbyExchanger/pkg/transfer"
)

type KeyMap struct {
	Advertise   key.Binding
	Discover    key.Binding
	Connect     key.Binding
	SendFile    key.Binding
	SendFolder  key.Binding
	Directories key.Binding
	Disconnect  key.Binding
	Accept      key.Binding
	Reject      key.Binding
	Add         key.Binding
	Remove      key.Binding
	Back        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap provides sensible default keybindings.
var DefaultKeyMap = KeyMap{
	Advertise:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "advertise")),
	Discover:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "discover")),
	Connect:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "connect/disconnect")),
	SendFile:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "send file")),
	SendFolder:  key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "send folder")),
	Directories: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save directories")),
	Disconnect:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
	Accept:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "Accept")),
	Reject:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "Reject")),
	Add:         key.NewBinding(key.WithKeys("+"), key.WithHelp("+", "add")),
	Remove:      key.NewBinding(key.WithKeys("-", "delete"), key.WithHelp("-", "remove")),
	Back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Quit:        key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
}

var deviceColumns = []table.Column{
	{Title: "Name", Width: 24},
	{Title: "State", Width: 18},
	{Title: "Token", Width: 8},
	{Title: "Endpoint", Width: 12},
}

// applyScreen stores a new snapshot and refreshes the device table.
func (m *model) applyScreen(state coordinator.ScreenState) {
	m.state = state
	rows := make([]table.Row, 0, len(state.Devices))
	for _, d := range state.Devices {
		token := ""
		if d.ConnectionState == device.AwaitingConfirm || d.ConnectionState == device.Connecting {
			token = d.AuthenticationToken
		}
		rows = append(rows, table.Row{d.DisplayName(), d.ConnectionState.String(), token, d.EndpointID})
	}
	m.table.SetRows(rows)
	m.table.SetHeight(len(rows) + 1)
	if m.dirCursor >= len(state.SaveDirs) {
		m.dirCursor = max(len(state.SaveDirs)-1, 0)
	}
}

func (m model) selectedDevice() (device.RemoteDevice, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.state.Devices) {
		return device.RemoteDevice{}, false
	}
	return m.state.Devices[i], true
}

func (m model) updateExchange(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.alert = ""
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	// The startup directory check may still ask for a new save directory.
	if m.state.CheckingDirectory {
		return m, nil
	}
	if key.Matches(msg, m.keys.Directories) {
		m.view = viewDirectories
		return m, nil
	}

	// Without a session the screen only offers the two roles.
	if m.state.CurrentRole == nil {
		switch {
		case key.Matches(msg, m.keys.Advertise):
			m.message = "Requesting permissions to advertise..."
			return m, m.send(screen.RoleSelected{Role: exchange.Advertiser})
		case key.Matches(msg, m.keys.Discover):
			m.message = "Requesting permissions to discover..."
			return m, m.send(screen.RoleSelected{Role: exchange.Discoverer})
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Connect):
		if d, ok := m.selectedDevice(); ok {
			return m, m.send(screen.DeviceClicked{Device: d})
		}
		return m, nil
	case key.Matches(msg, m.keys.SendFile):
		return m, m.send(screen.SendFileClicked{})
	case key.Matches(msg, m.keys.SendFolder):
		return m, m.send(screen.SendFolderClicked{})
	case key.Matches(msg, m.keys.Disconnect):
		return m, m.send(screen.DisconnectClicked{})
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) exchangeView() string {
	var s strings.Builder

	status := m.state.ConnectionState.String()
	if m.state.CurrentRole != nil {
		status = m.state.CurrentRole.String() + " · " + status
	}
	s.WriteString(style.StatusStyle.Render(status))
	if dir := m.state.CurrentDir; dir != "" {
		s.WriteString("  Saving to " + style.HighlightFontStyle.Render(dir))
	} else {
		s.WriteString("  " + style.WarnStyle.Render("No save directory selected"))
	}
	s.WriteString("\n")
	if m.state.StatusText != "" {
		s.WriteString(style.ErrorStyle.Render(m.state.StatusText) + "\n")
	}
	s.WriteString("\n")

	switch {
	case m.state.CheckingDirectory:
		s.WriteString(fmt.Sprintf("%s Checking the save directory...\n", m.spinner.View()))
	case m.state.CurrentRole == nil:
		s.WriteString("Choose how to exchange files:\n\n")
		s.WriteString(fmt.Sprintf("  %s  wait for nearby devices to connect\n", style.HighlightFontStyle.Render("a")))
		s.WriteString(fmt.Sprintf("  %s  look for nearby devices\n", style.HighlightFontStyle.Render("d")))
	case len(m.state.Devices) == 0:
		verb := "Waiting for nearby devices"
		if *m.state.CurrentRole == exchange.Discoverer {
			verb = "Looking for nearby devices"
		}
		if m.state.ConnectionState == coordinator.Advertising || m.state.ConnectionState == coordinator.Discovering {
			s.WriteString(fmt.Sprintf("%s %s...\n", m.spinner.View(), verb))
		} else {
			s.WriteString("No devices.\n")
		}
	default:
		s.WriteString(style.BaseStyle.Render(m.table.View()) + "\n")
		if d, ok := m.selectedDevice(); ok && d.AuthenticationToken != "" && d.ConnectionState == device.AwaitingConfirm {
			s.WriteString(fmt.Sprintf("Confirm %s shows the code %s\n", style.HighlightFontStyle.Render(d.DisplayName()), style.TokenStyle.Render(d.AuthenticationToken)))
		}
	}

	if len(m.transferOrder) > 0 {
		s.WriteString("\n" + style.HeaderStyle.Render("Transfers") + "\n")
		for _, id := range m.transferOrder {
			s.WriteString(transferLine(m.transfers[id]) + "\n")
		}
	}

	if m.alert != "" {
		s.WriteString("\n" + style.WarnStyle.Render(m.alert) + "\n")
	}
	if m.message != "" {
		s.WriteString("\n" + m.message + "\n")
	}
	s.WriteString("\n" + m.helpView())
	return s.String()
}

func (m model) helpView() string {
	bindings := []key.Binding{m.keys.Advertise, m.keys.Discover, m.keys.Directories, m.keys.Quit}
	switch {
	case m.state.CheckingDirectory:
		bindings = []key.Binding{m.keys.Quit}
	case m.state.CurrentRole != nil:
		bindings = []key.Binding{m.keys.Connect, m.keys.SendFile, m.keys.SendFolder, m.keys.Directories, m.keys.Disconnect, m.keys.Quit}
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, fmt.Sprintf("'%s' %s", b.Help().Key, b.Help().Desc))
	}
	return style.HelpStyle.Render(strings.Join(parts, " · "))
}

// transferLine renders one payload as "↑ name  [####    ]  45.0%  1.0 KiB/2.0 KiB  512 B/s  ETA 2s".
func transferLine(ts transfer.TransferStatus) string {
	arrow := "↓"
	if ts.Outgoing {
		arrow = "↑"
	}
	percent := ts.GetProgressPercentage()
	line := util.Row([]int{2, 28, 22, 7, 24, 12},
		arrow,
		ts.Name,
		progressBar(percent, 20),
		fmt.Sprintf("%.1f%%", percent),
		util.FormatBytes(ts.BytesTransferred)+"/"+util.FormatBytes(ts.TotalBytes),
		util.FormatRate(ts.TransferRate()),
	)
	switch ts.State {
	case transfer.TransferStateCompleted:
		return style.SuccessStyle.Render(line + "  done")
	case transfer.TransferStateFailed, transfer.TransferStateCancelled:
		return style.ErrorStyle.Render(line + "  " + ts.State.String())
	default:
		return line + "  ETA " + util.FormatETA(ts.TotalBytes-ts.BytesTransferred, ts.TransferRate())
	}
}

func progressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	filled = min(max(filled, 0), width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(" ", width-filled) + "]"
}
