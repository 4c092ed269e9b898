// Package tui is the interactive console: a record list, a details pane,
// a filter bar and toolbar toggles over a polled store.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/newhook/remedy/internal/console"
	"github.com/newhook/remedy/internal/filter"
	"github.com/newhook/remedy/internal/logentry"
	"github.com/newhook/remedy/internal/logging"
	"github.com/newhook/remedy/internal/logstore"
)

// Config wires the console to its data.
type Config struct {
	Title    string
	Store    *logstore.Store
	Provider logstore.Provider
	// Changes, when set, triggers a poll on every receive in addition to
	// the periodic poll.
	Changes <-chan struct{}
	// PollInterval defaults to 250ms.
	PollInterval time.Duration
	Display      console.Options
	// SelectLastChanged follows the most recently added or changed record.
	SelectLastChanged bool
	// Notice is shown in the status bar until the first action replaces it.
	Notice string
}

type focusArea int

const (
	focusList focusArea = iota
	focusDetails
)

type pollMsg struct{}

type changeMsg struct{}

// Model is the root bubbletea model.
type Model struct {
	cfg      Config
	store    *logstore.Store
	provider logstore.Provider
	display  *console.Options

	width  int
	height int
	focus  focusArea

	toolbar   *Toolbar
	list      *ListPanel
	details   *DetailsPanel
	filterBar *FilterBar
	status    *StatusBar

	text       *filter.TextFilter
	files      *filter.FileFilter
	codes      *filter.CodeFilter
	severities *filter.SeverityFilter

	counts      logstore.Counts
	lastChanged *logentry.Record
}

var _ tea.Model = (*Model)(nil)

// New creates the model and registers its filters and observers on the
// store.
func New(cfg Config) *Model {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	if cfg.Title == "" {
		cfg.Title = "remedy"
	}

	m := &Model{
		cfg:      cfg,
		store:    cfg.Store,
		provider: cfg.Provider,
		toolbar:  NewToolbar(),
		status:   NewStatusBar(),
	}
	m.display = &m.cfg.Display
	if cfg.Notice != "" {
		m.status.SetStatus(cfg.Notice, false)
	}

	set := cfg.Store.Filters()
	m.text = ensureFilter(set, filter.NameText, func() *filter.TextFilter { return filter.NewTextFilter(filter.ModeSubstring, "") })
	m.files = ensureFilter(set, filter.NameFiles, func() *filter.FileFilter { return filter.NewFileFilter() })
	m.codes = ensureFilter(set, filter.NameCodes, func() *filter.CodeFilter { return filter.NewCodeFilter() })
	m.severities = ensureFilter(set, filter.NameSeverity, filter.NewSeverityFilter)

	m.list = NewListPanel(cfg.Store, m.display)
	m.details = NewDetailsPanel(m.display)
	m.filterBar = NewFilterBar(m.text)

	follow := func(rec *logentry.Record) { m.lastChanged = rec }
	cfg.Store.OnRecordAdded(follow)
	cfg.Store.OnOccurrenceChanged(follow)
	return m
}

// ensureFilter returns the filter registered under name, registering a
// new one when it is missing or of another type.
func ensureFilter[F filter.Filter](set *filter.Set, name string, create func() F) F {
	if f, ok := set.Get(name); ok {
		if typed, ok := f.(F); ok {
			return typed
		}
	}
	f := create()
	set.Add(name, f)
	return f
}

// Init starts polling.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(func() tea.Msg { return pollMsg{} }, m.waitForChange())
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.cfg.PollInterval, func(time.Time) tea.Msg { return pollMsg{} })
}

func (m *Model) waitForChange() tea.Cmd {
	if m.cfg.Changes == nil {
		return nil
	}
	ch := m.cfg.Changes
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changeMsg{}
	}
}

// poll reconciles with the provider and moves the selection to the last
// changed record when following is on.
func (m *Model) poll(mode logstore.Mode) {
	m.lastChanged = nil
	if err := m.store.Poll(mode); err != nil {
		logging.Warn("poll failed", "error", err)
		m.status.SetStatus(fmt.Sprintf("poll failed: %v", err), true)
	}
	if counts, err := m.store.Counts(); err == nil {
		m.counts = counts
	}
	if m.cfg.SelectLastChanged && m.lastChanged != nil {
		m.list.SelectRecord(m.lastChanged)
	}
	m.syncDetails()
}

func (m *Model) syncDetails() {
	m.list.clamp()
	m.details.SetRecord(m.list.Selected())
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	// Add mode so collapsed repeats, which add no rows, still refresh counts.
	case pollMsg:
		m.poll(logstore.ModeAdd)
		return m, m.tick()

	case changeMsg:
		m.poll(logstore.ModeAdd)
		return m, m.waitForChange()

	case tea.KeyMsg:
		if m.filterBar.Focused() {
			return m.updateFilter(msg)
		}
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}
	return m, nil
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.filterBar.Reset()
		m.syncDetails()
		return m, nil
	case "enter":
		m.filterBar.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filterBar.input, cmd = m.filterBar.input.Update(msg)
	m.text.SetPattern(m.filterBar.input.Value())
	m.syncDetails()
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "j", "down":
		if m.focus == focusDetails {
			m.details.ScrollDown(1)
			return m, nil
		}
		m.list.Move(1)
	case "k", "up":
		if m.focus == focusDetails {
			m.details.ScrollUp(1)
			return m, nil
		}
		m.list.Move(-1)
	case "pgdown", "ctrl+d":
		m.list.Page(1)
	case "pgup", "ctrl+u":
		m.list.Page(-1)
	case "g", "home":
		m.list.Select(0)
	case "G", "end":
		m.list.Select(m.store.Len() - 1)
	case "tab":
		m.setFocus((m.focus + 1) % 2)
		return m, nil

	case "/":
		m.filterBar.Focus()
		return m, nil
	case "m":
		m.filterBar.CycleMode()
	case "esc":
		m.filterBar.Reset()

	default:
		if action, ok := keyActions[msg.String()]; ok {
			m.apply(action)
		}
	}
	m.syncDetails()
	return m, nil
}

var keyActions = map[string]string{
	"x": buttonClear,
	"c": buttonCollapse,
	"r": buttonReverse,
	"s": buttonSmall,
	"f": buttonFiles,
	"1": buttonLogs,
	"2": buttonWarnings,
	"3": buttonErrors,
	"i": "ignore-file",
	"I": "ignore-code",
	"u": "unignore",
}

// apply runs a toolbar or key action.
func (m *Model) apply(action string) {
	switch action {
	case buttonClear:
		if err := m.store.Clear(); err != nil {
			m.status.SetStatus(fmt.Sprintf("clear failed: %v", err), true)
			return
		}
		m.list.Select(0)
		m.status.SetStatus("cleared", false)

	case buttonCollapse:
		on := m.provider.Flags()&logstore.FlagCollapse == 0
		m.provider.SetFlag(logstore.FlagCollapse, on)
		m.poll(logstore.ModeNone)

	case buttonReverse:
		m.store.SetReverse(!m.store.Reverse())

	case buttonSmall:
		m.display.SmallList = !m.display.SmallList
		m.list.clamp()

	case buttonFiles:
		m.display.ShowFilesInDetails = !m.display.ShowFilesInDetails
		m.details.Refresh()

	case buttonLogs:
		m.toggleSeverity(logentry.SeverityLog)
	case buttonWarnings:
		m.toggleSeverity(logentry.SeverityWarning)
	case buttonErrors:
		m.toggleSeverity(logentry.SeverityError)

	case "ignore-file":
		rec := m.list.Selected()
		if rec.File() == "" {
			m.status.SetStatus("entry has no file", true)
			return
		}
		m.files.AddFile(rec.File())
		m.status.SetStatus("ignoring "+rec.File(), false)

	case "ignore-code":
		rec := m.list.Selected()
		if rec.Code() == "" {
			m.status.SetStatus("entry has no warning code", true)
			return
		}
		m.codes.AddCode(rec.Code())
		m.status.SetStatus("ignoring "+rec.Code(), false)

	case "unignore":
		for _, f := range m.files.Files() {
			m.files.RemoveFile(f)
		}
		for _, c := range m.codes.Codes() {
			m.codes.RemoveCode(c)
		}
		m.status.SetStatus("showing ignored entries", false)
	}
}

func (m *Model) toggleSeverity(sev logentry.Severity) {
	m.severities.SetShown(sev, !m.severities.Shown(sev))
}

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	m.list.SetFocus(f == focusList)
	m.details.SetFocus(f == focusDetails)
}

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		delta := 1
		if msg.Button == tea.MouseButtonWheelUp {
			delta = -1
		}
		if zone.Get(detailsZone).InBounds(msg) {
			if delta < 0 {
				m.details.ScrollUp(3)
			} else {
				m.details.ScrollDown(3)
			}
			return m, nil
		}
		m.list.Move(delta)

	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionRelease {
			return m, nil
		}
		if action := m.toolbar.Clicked(func(id string) bool { return zone.Get(id).InBounds(msg) }); action != "" {
			m.apply(action)
		} else if m.list.HandleClick(msg) {
			m.setFocus(focusList)
		} else if zone.Get(detailsZone).InBounds(msg) {
			m.setFocus(focusDetails)
		}
	default:
		return m, nil
	}
	m.syncDetails()
	return m, nil
}

const detailsZone = "details"

// layout splits the height between the list and the details pane.
func (m *Model) layout() {
	m.toolbar.SetSize(m.width)
	m.filterBar.SetSize(m.width)
	m.status.SetSize(m.width)

	body := max(m.height-3, 4)
	listHeight := max(body*3/5, 3)
	m.list.SetSize(m.width, listHeight)
	m.details.SetSize(m.width, max(body-listHeight, 3))
	m.syncDetails()
}

// View renders the console.
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	toolbar := m.toolbar.View(ToolbarState{
		Title:      m.cfg.Title,
		Collapse:   m.provider.Flags()&logstore.FlagCollapse != 0,
		Reverse:    m.store.Reverse(),
		SmallList:  m.display.SmallList,
		ShowFiles:  m.display.ShowFilesInDetails,
		Counts:     m.counts,
		Severities: m.severities,
	})
	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		toolbar,
		m.list.View(),
		zone.Mark(detailsZone, m.details.View()),
		m.filterBar.View(),
		m.status.View(),
	))
}

// Run starts the console and blocks until the user quits or ctx is done.
func Run(ctx context.Context, cfg Config, enableMouse bool) error {
	zone.NewGlobal()
	defer zone.Close()

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if enableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(New(cfg), opts...)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
