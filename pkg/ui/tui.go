package ui

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	appevents "github.com/rescp17/nearbyExchanger/internal/app_events"
	"github.com/rescp17/nearbyExchanger/internal/app_events/screen"
	"github.com/rescp17/nearbyExchanger/internal/style"
	"github.com/rescp17/nearbyExchanger/pkg/coordinator"
	"github.com/rescp17/nearbyExchanger/pkg/pathPicker"
	"github.com/rescp17/nearbyExchanger/pkg/platform"
	"github.com/rescp17/nearbyExchanger/pkg/session"
	"github.com/rescp17/nearbyExchanger/pkg/transfer"
)

type view int

const (
	viewExchange view = iota
	viewPermissions
	viewPicker
	viewDirectories
)

// Options tune the screen.
type Options struct {
	// StartDir is where pickers open. Defaults to the home directory.
	StartDir string
	Logger   *slog.Logger
}

type screenStateMsg struct {
	state coordinator.ScreenState
}

type appClosedMsg struct{}

type serviceErrorMsg struct {
	err error
}

type model struct {
	ctx        context.Context
	controller AppController
	host       ServiceHost
	opts       Options
	logger     *slog.Logger
	keys       KeyMap

	screenCh    <-chan coordinator.ScreenState
	unsubscribe func()
	state       coordinator.ScreenState

	view        view
	spinner     spinner.Model
	table       table.Model
	picker      pathPicker.Model
	permissions []platform.Permission
	dirCursor   int

	transfers     map[string]transfer.TransferStatus
	transferOrder []string

	message string
	alert   string
	err     error
	width   int
	height  int
}

func newModel(ctx context.Context, controller AppController, host ServiceHost, opts Options) model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ch, unsubscribe := controller.Screen().Subscribe()

	t := table.New(
		table.WithColumns(deviceColumns),
		table.WithRows([]table.Row{}),
		table.WithFocused(true),
		table.WithHeight(1),
	)
	t.SetStyles(style.NewTableStyles())

	return model{
		ctx:         ctx,
		controller:  controller,
		host:        host,
		opts:        opts,
		logger:      opts.Logger.With("component", "ui"),
		keys:        DefaultKeyMap,
		screenCh:    ch,
		unsubscribe: unsubscribe,
		state:       controller.Screen().Value(),
		spinner:     style.NewSpinner(),
		table:       t,
		transfers:   make(map[string]transfer.TransferStatus),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.listenForAppMessages(),
		m.listenForScreen(),
		m.send(screen.ActivityStarted{}),
	)
}

// listenForAppMessages is a command that waits for the next coordinator effect.
func (m model) listenForAppMessages() tea.Cmd {
	ch := m.controller.UIMessages()
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return appClosedMsg{}
		}
		return msg
	}
}

// listenForScreen waits for the next screen snapshot.
func (m model) listenForScreen() tea.Cmd {
	ch := m.screenCh
	return func() tea.Msg {
		state, ok := <-ch
		if !ok {
			return nil
		}
		return screenStateMsg{state: state}
	}
}

// send hands a screen event to the coordinator.
func (m model) send(event appevents.AppEvent) tea.Cmd {
	ctx, events := m.ctx, m.controller.AppEvents()
	return func() tea.Msg {
		select {
		case events <- event:
		case <-ctx.Done():
		}
		return nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.picker, _ = m.picker.Update(msg)
		return m, nil

	case screenStateMsg:
		m.applyScreen(msg.state)
		return m, m.listenForScreen()

	case appClosedMsg:
		return m, tea.Quit

	case serviceErrorMsg:
		m.err = msg.err
		return m, nil

	case appevents.AppEvent:
		// Results of host and file system commands go back to the coordinator.
		return m, m.send(msg)

	case appevents.AppUIMessage:
		cmd := m.handleAppMessage(msg)
		return m, tea.Batch(cmd, m.listenForAppMessages())

	case pathPicker.PickedMsg:
		m.view = viewExchange
		if msg.Target == pathPicker.TargetDirectory {
			return m, m.send(screen.DirectoryPicked{Path: msg.Path, Name: msg.Name})
		}
		return m, m.send(screen.FilePicked{Path: msg.Path})

	case pathPicker.CancelledMsg:
		m.view = viewExchange
		return m, m.send(screen.PickerCancelled{})

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.view {
	case viewPermissions:
		return m, m.updatePermissions(msg)
	case viewPicker:
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	case viewDirectories:
		return m, m.updateDirectories(msg)
	default:
		return m.updateExchange(msg)
	}
}

func (m model) View() string {
	var s strings.Builder
	switch m.view {
	case viewPermissions:
		s.WriteString(m.permissionsView())
	case viewPicker:
		s.WriteString(m.picker.View())
	case viewDirectories:
		s.WriteString(m.directoriesView())
	default:
		s.WriteString(m.exchangeView())
	}
	if m.err != nil {
		s.WriteString("\n" + style.ErrorStyle.Render("Error: "+m.err.Error()))
	}
	s.WriteString("\n" + style.HelpStyle.Render("Press ctrl + c to quit"))
	return s.String()
}

func (m *model) close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Run drives the coordinator and the screen until either ends. The running
// session is stopped before Run returns.
func Run(ctx context.Context, controller AppController, host ServiceHost, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newModel(ctx, controller, host, opts)
	defer m.close()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := controller.Run(gctx)
		p.Quit()
		return err
	})
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})

	err := g.Wait()
	if stopErr := host.Stop(); stopErr != nil && !errors.Is(stopErr, session.ErrNoSession) {
		m.logger.Warn("Failed to stop session", "error", stopErr)
	}
	return err
}
