package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rescp17/nearbyExchanger/internal/app_events/screen"
	"github.com/rescp17/nearbyExchanger/internal/style"
	"github.com/rescp17/nearbyExchanger/internal/util"
)

func (m *model) updatePermissions(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Accept):
		m.view = viewExchange
		m.permissions = nil
		m.message = ""
		return m.send(screen.PermissionsResult{Granted: true})
	case key.Matches(msg, m.keys.Reject), key.Matches(msg, m.keys.Back):
		m.view = viewExchange
		m.permissions = nil
		return m.send(screen.PermissionsResult{Granted: false})
	}
	return nil
}

func (m model) permissionsView() string {
	var s strings.Builder
	s.WriteString(style.TitleStyle.Render("Permissions required") + "\n\n")
	for _, p := range m.permissions {
		s.WriteString("  • " + string(p) + "\n")
	}
	s.WriteString(fmt.Sprintf("\nGrant them? %s / %s", m.keys.Accept.Help().Key, m.keys.Reject.Help().Key))
	return style.PromptStyle.Render(s.String())
}

func (m *model) updateDirectories(msg tea.KeyMsg) tea.Cmd {
	dirs := m.state.SaveDirs
	switch {
	case key.Matches(msg, m.keys.Back):
		m.view = viewExchange
	case msg.Type == tea.KeyUp || msg.String() == "k":
		if m.dirCursor > 0 {
			m.dirCursor--
		}
	case msg.Type == tea.KeyDown || msg.String() == "j":
		if m.dirCursor < len(dirs)-1 {
			m.dirCursor++
		}
	case msg.Type == tea.KeyEnter:
		if m.dirCursor < len(dirs) {
			m.view = viewExchange
			return m.send(screen.DirectorySelected{Dir: dirs[m.dirCursor].Path})
		}
	case key.Matches(msg, m.keys.Add):
		m.view = viewExchange
		return m.send(screen.AddDirectoryRequested{})
	case key.Matches(msg, m.keys.Remove):
		if m.dirCursor < len(dirs) {
			return m.send(screen.RemoveDirectoryRequested{Dir: dirs[m.dirCursor].Path})
		}
	}
	return nil
}

func (m model) directoriesView() string {
	var s strings.Builder
	s.WriteString(style.TitleStyle.Render("Save directories") + "\n\n")
	if len(m.state.SaveDirs) == 0 {
		s.WriteString("  No save directories. Press + to add one.\n")
	}
	for i, dir := range m.state.SaveDirs {
		if i == m.dirCursor {
			s.WriteString(style.CursorStyle.String())
		} else {
			s.WriteString(style.NoCursorStyle.String())
		}
		line := util.Row([]int{20, 60}, dir.Name, dir.Path)
		if dir.Path == m.state.CurrentDir {
			line = style.SelectedStyle.Render(line + "  (current)")
		}
		s.WriteString(line + "\n")
	}
	s.WriteString("\n" + style.HelpStyle.Render(fmt.Sprintf("'enter' select · '%s' %s · '%s' %s · '%s' %s",
		m.keys.Add.Help().Key, m.keys.Add.Help().Desc,
		m.keys.Remove.Help().Key, m.keys.Remove.Help().Desc,
		m.keys.Back.Help().Key, m.keys.Back.Help().Desc)))
	return s.String()
}
