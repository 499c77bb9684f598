package pathPicker

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rescp17/nearbyExchanger/internal/style"
	"github.com/rescp17/nearbyExchanger/internal/util"
)

type mode int

const (
	modeBrowse mode = iota
	modeInput
)

// Target is the kind of entry the picker returns.
type Target int

const (
	TargetFile Target = iota
	TargetDirectory
)

func (t Target) String() string {
	if t == TargetDirectory {
		return "directory"
	}
	return "file"
}

// PickedMsg reports the chosen entry.
type PickedMsg struct {
	Target Target
	Path   string
	Name   string
}

// CancelledMsg reports that the user left the picker without choosing.
type CancelledMsg struct {
	Target Target
}

// --- Key Map ---
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Left        key.Binding // Page up
	Right       key.Binding // Page down
	Parent      key.Binding
	Choose      key.Binding
	ToggleInput key.Binding
	Confirm     key.Binding
	Quit        key.Binding
}

var DefaultKeyMap = KeyMap{
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
	Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
	Left:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "page up")),
	Right:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "page down")),
	Parent:      key.NewBinding(key.WithKeys("backspace", "-"), key.WithHelp("backspace", "parent")),
	Choose:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "choose")),
	ToggleInput: key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "input path")),
	Confirm:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Quit:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
}

// --- Model ---
type Model struct {
	target   Target
	readOnly bool
	path     string
	lastPath string // For relative path resolution
	items    []fs.DirEntry
	cursor   int
	keys     KeyMap
	done     bool
	mode     mode
	input    textinput.Model
	inputErr error
	height   int // For viewport height
	offset   int // For scrolling
}

// New returns a picker for target. A directory picked with readOnly unset
// must accept new files.
func New(target Target, readOnly bool) Model {
	ti := textinput.New()
	ti.Placeholder = ""
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 80
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))

	wd, err := os.Getwd()
	if err != nil {
		slog.Warn("Could not get working directory", "error", err)
		wd = ""
	}

	return Model{
		target:   target,
		readOnly: readOnly,
		lastPath: wd,
		items:    []fs.DirEntry{},
		keys:     DefaultKeyMap,
		mode:     modeInput,
		input:    ti,
	}
}

func (m Model) Target() Target {
	return m.target
}

// Done reports whether the picker already produced its result.
func (m Model) Done() bool {
	return m.done
}

// --- Bubble Tea Methods ---
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.done {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			// Leaving input mode returns to the loaded directory when there is one.
			if m.mode == modeInput && m.path != "" {
				m.mode = modeBrowse
				m.input.Blur()
				m.input.Reset()
				m.inputErr = nil
				return m, nil
			}
			m.done = true
			target := m.target
			return m, func() tea.Msg { return CancelledMsg{Target: target} }
		}

		switch m.mode {
		case modeBrowse:
			return m.updateBrowse(msg)
		case modeInput:
			return m.updateInput(msg)
		}
	}

	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleInput):
		m.mode = modeInput
		m.input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			if m.cursor < m.offset {
				m.offset--
			}
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
			if m.cursor >= m.offset+m.visibleItems() {
				m.offset++
			}
		}

	case key.Matches(msg, m.keys.Right): // Page down
		visible := m.visibleItems()
		m.cursor = min(m.cursor+visible, len(m.items)-1)
		m.offset = max(min(m.offset+visible, len(m.items)-visible), 0)
		if m.cursor >= m.offset+visible {
			m.offset = m.cursor - visible + 1
		}

	case key.Matches(msg, m.keys.Left): // Page up
		visible := m.visibleItems()
		m.cursor = max(m.cursor-visible, 0)
		m.offset = max(m.offset-visible, 0)
		if m.cursor < m.offset {
			m.offset = m.cursor
		}

	case key.Matches(msg, m.keys.Parent):
		parent := filepath.Dir(m.path)
		if parent != m.path {
			if err := m.SetPath(parent); err != nil {
				m.inputErr = err
			}
		}

	case key.Matches(msg, m.keys.Choose):
		if item, ok := m.current(); ok {
			return m.choose(filepath.Join(m.path, item.Name()), item.IsDir())
		}
		// An empty directory can still be chosen as a whole.
		if m.target == TargetDirectory {
			return m.choose(m.path, true)
		}

	case key.Matches(msg, m.keys.Confirm):
		item, ok := m.current()
		if !ok {
			return m, nil
		}
		path := filepath.Join(m.path, item.Name())
		if item.IsDir() {
			if err := m.SetPath(path); err != nil {
				m.inputErr = err
			}
			return m, nil
		}
		return m.choose(path, false)
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (Model, tea.Cmd) {
	if !key.Matches(msg, m.keys.Confirm) {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	path := strings.TrimSpace(m.input.Value())
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.lastPath, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		m.inputErr = fmt.Errorf("path does not exist: %s", path)
		return m, nil
	}
	if !info.IsDir() {
		m.input.Reset()
		return m.choose(path, false)
	}
	if err := m.SetPath(path); err != nil {
		m.inputErr = err
		return m, nil
	}
	m.input.Reset()
	return m, nil
}

// choose finishes the picker when path matches the target.
func (m Model) choose(path string, isDir bool) (Model, tea.Cmd) {
	abs, err := filepath.Abs(path)
	if err != nil {
		m.inputErr = fmt.Errorf("invalid path: %w", err)
		return m, nil
	}
	switch {
	case m.target == TargetFile && isDir:
		m.inputErr = fmt.Errorf("%s is a directory, choose a file", abs)
		return m, nil
	case m.target == TargetDirectory && !isDir:
		m.inputErr = fmt.Errorf("%s is a file, choose a directory", abs)
		return m, nil
	}
	if m.target == TargetDirectory && !m.readOnly {
		ok, err := util.CheckDirectoryAccess(abs)
		if err != nil || !ok {
			m.inputErr = fmt.Errorf("%s is not writable", abs)
			return m, nil
		}
	}

	m.done = true
	picked := PickedMsg{Target: m.target, Path: abs, Name: util.DirectoryName(abs)}
	return m, func() tea.Msg { return picked }
}

func (m Model) current() (fs.DirEntry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return nil, false
	}
	return m.items[m.cursor], true
}

func (m Model) View() string {
	var s strings.Builder

	access := "read/write"
	if m.readOnly {
		access = "read-only"
	}
	s.WriteString(style.TitleStyle.Render(fmt.Sprintf("Choose a %s (%s)", m.target, access)) + "\n")
	s.WriteString(m.helpView() + "\n \n")
	s.WriteString(m.input.View())
	if m.inputErr != nil {
		s.WriteString("\n" + style.ErrorStyle.Render(m.inputErr.Error()))
	}
	s.WriteString("\n\n")

	if m.path == "" {
		return s.String()
	}
	s.WriteString(fmt.Sprintf("Browsing: %s\n\n", m.path))

	widths := []int{36, 20, 12, 30}
	s.WriteString(style.HeaderStyle.Render(util.PadRight("", 2)+util.Row(widths, "Name", "Last Modified", "Size", "Type")) + "\n\n")

	visible := m.visibleItems()
	start := max(m.offset, 0)
	end := min(start+visible, len(m.items))
	if start > end {
		start = end
	}

	for i, item := range m.items[start:end] {
		if m.cursor == start+i {
			s.WriteString(style.CursorStyle.String())
		} else {
			s.WriteString(style.NoCursorStyle.String())
		}

		path := filepath.Join(m.path, item.Name())
		name := item.Name()
		modTime, size, kind := "", "", ""
		if info, err := item.Info(); err == nil {
			modTime = info.ModTime().Format("2006-01-02 15:04:05")
			if info.IsDir() {
				size = "<DIR>"
			} else {
				size = util.FormatBytes(info.Size())
			}
		}
		if item.IsDir() {
			name += "/"
		} else if mime, err := mimetype.DetectFile(path); err == nil {
			kind = mime.String()
		}

		line := util.Row(widths, name, modTime, size, kind)
		switch {
		case item.IsDir() && m.target == TargetDirectory:
			line = style.SelectedStyle.Render(line)
		case item.IsDir():
			line = style.DirStyle.Render(line)
		case m.target == TargetDirectory:
			line = style.DeselectedStyle.Render(line)
		default:
			line = style.FileStyle.Render(line)
		}
		s.WriteString(line + "\n")
	}

	if len(m.items) > visible {
		s.WriteString(fmt.Sprintf("\n... %d/%d ...\n", m.cursor+1, len(m.items)))
	}

	return s.String()
}

func (m Model) helpView() string {
	return style.HelpStyle.Render(
		fmt.Sprintf("'%s' to open, '%s' to choose, '%s' for parent, '%s' to type a path, '%s' to cancel",
			m.keys.Confirm.Help().Key, m.keys.Choose.Help().Key, m.keys.Parent.Help().Key, m.keys.ToggleInput.Help().Key, m.keys.Quit.Help().Key),
	)
}

// SetPath switches the picker to browse path, listing directories first.
func (m *Model) SetPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", absPath)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", absPath)
	}
	items, err := os.ReadDir(absPath)
	if err != nil {
		return fmt.Errorf("could not read directory: %w", err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsDir() != items[j].IsDir() {
			return items[i].IsDir()
		}
		return items[i].Name() < items[j].Name()
	})
	m.path = absPath
	m.lastPath = absPath
	m.items = items
	m.cursor = 0
	m.offset = 0
	m.inputErr = nil
	m.mode = modeBrowse
	m.input.Blur()
	return nil
}

func (m *Model) visibleItems() int {
	headerHeight := 10
	if m.inputErr != nil {
		headerHeight++
	}
	visible := m.height - headerHeight
	if visible < 1 {
		visible = 12
	}
	return visible
}
