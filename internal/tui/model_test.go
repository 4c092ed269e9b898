package tui

import (
	"os"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newhook/remedy/internal/console"
	"github.com/newhook/remedy/internal/filter"
	"github.com/newhook/remedy/internal/logentry"
	"github.com/newhook/remedy/internal/logstore"
	"github.com/newhook/remedy/internal/provider"
)

func TestMain(m *testing.M) {
	zone.NewGlobal()
	code := m.Run()
	zone.Close()
	os.Exit(code)
}

type fixture struct {
	mem   *provider.Memory
	store *logstore.Store
	model *Model
}

func newFixture(t *testing.T, follow bool) *fixture {
	t.Helper()
	mem := provider.NewMemory(0)
	store := logstore.New(mem, logstore.Options{})
	m := New(Config{
		Store:             store,
		Provider:          mem,
		Display:           console.Options{SmallList: true, ShowFilesInDetails: true},
		SelectLastChanged: follow,
	})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return &fixture{mem: mem, store: store, model: m}
}

func (f *fixture) log(condition string, mode logentry.Mode) {
	f.mem.Log(logentry.Raw{Condition: condition, Mode: mode})
}

func (f *fixture) poll() {
	f.model.Update(pollMsg{})
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_PollFollowsLastChanged(t *testing.T) {
	f := newFixture(t, true)
	f.log("first", logentry.ModeLog)
	f.log("second", logentry.ModeLog)
	f.poll()

	assert.Equal(t, 2, f.store.Len())
	assert.Equal(t, "second", f.model.list.Selected().Condition())
	assert.Equal(t, logstore.Counts{Logs: 2}, f.model.counts)

	f.model.Update(key("k"))
	assert.Equal(t, "first", f.model.list.Selected().Condition())
	assert.Same(t, f.model.list.Selected(), f.model.details.record)
}

func TestModel_NoFollowKeepsSelection(t *testing.T) {
	f := newFixture(t, false)
	f.log("first", logentry.ModeLog)
	f.poll()
	f.log("second", logentry.ModeLog)
	f.poll()
	assert.Equal(t, "first", f.model.list.Selected().Condition())

	f.model.Update(key("G"))
	assert.Equal(t, "second", f.model.list.Selected().Condition())
	f.model.Update(key("g"))
	assert.Equal(t, 0, f.model.list.SelectedIndex())
}

func TestModel_CollapseToggleRebuilds(t *testing.T) {
	f := newFixture(t, false)
	for range 3 {
		f.log("tick", logentry.ModeLog)
	}
	f.poll()
	assert.Equal(t, 3, f.store.RowCount())

	f.model.Update(key("c"))
	assert.NotZero(t, f.mem.Flags()&logstore.FlagCollapse)
	assert.Equal(t, 1, f.store.RowCount())
	assert.Equal(t, 3, f.model.list.Selected().Count())
}

func TestModel_CollapsedRepeatRefreshesCount(t *testing.T) {
	f := newFixture(t, true)
	f.mem.SetFlag(logstore.FlagCollapse, true)
	f.log("tick", logentry.ModeLog)
	f.log("other", logentry.ModeLog)
	f.poll()
	require.Equal(t, 2, f.store.RowCount())

	f.log("tick", logentry.ModeLog)
	f.poll()
	f.log("tick", logentry.ModeLog)
	f.model.Update(changeMsg{})

	assert.Equal(t, 2, f.store.RowCount(), "repeats add no rows")
	selected := f.model.list.Selected()
	assert.Equal(t, "tick", selected.Condition(), "follow selects the repeated record")
	assert.Equal(t, 3, selected.Count())
	assert.Equal(t, logstore.Counts{Logs: 4}, f.model.counts)
}

func TestModel_FilterBar(t *testing.T) {
	f := newFixture(t, false)
	f.log("player spawned", logentry.ModeLog)
	f.log("enemy spawned", logentry.ModeLog)
	f.poll()

	f.model.Update(key("/"))
	require.True(t, f.model.filterBar.Focused())
	f.model.Update(key("enemy"))
	assert.Equal(t, "enemy", f.model.text.Pattern())
	assert.Equal(t, 1, f.store.Len())

	f.model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, f.model.filterBar.Focused())
	assert.Equal(t, 1, f.store.Len(), "enter keeps the pattern")

	f.model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, 2, f.store.Len())
}

func TestModel_FilterModeAndInvalidRegex(t *testing.T) {
	f := newFixture(t, false)
	f.log("a", logentry.ModeLog)
	f.poll()

	f.model.Update(key("m"))
	f.model.Update(key("m"))
	assert.Equal(t, filter.ModeRegex, f.model.text.Mode())

	f.model.Update(key("/"))
	f.model.Update(key("(["))
	assert.Error(t, f.model.text.Err())
	assert.Equal(t, 1, f.store.Len(), "invalid regex shows everything")
	assert.Contains(t, ansi.Strip(f.model.View()), "invalid pattern")
}

func TestModel_SeverityToggles(t *testing.T) {
	f := newFixture(t, false)
	f.log("boom", logentry.ModeScriptingError)
	f.log("careful", logentry.ModeScriptingWarning)
	f.log("hello", logentry.ModeScriptingLog)
	f.poll()

	f.model.Update(key("1"))
	assert.Equal(t, 2, f.store.Len())
	f.model.Update(key("3"))
	assert.Equal(t, 1, f.store.Len())
	assert.Equal(t, "careful", f.model.list.Selected().Condition())
	f.model.Update(key("1"))
	f.model.Update(key("3"))
	assert.Equal(t, 3, f.store.Len())
}

func TestModel_IgnoreAndUnignore(t *testing.T) {
	f := newFixture(t, false)
	f.mem.Log(logentry.Raw{Condition: "noisy", File: "Assets/Noisy.cs", Mode: logentry.ModeLog})
	f.log("Assets/Old.cs(3,1): warning CS0618: obsolete", logentry.ModeScriptCompileWarning)
	f.log("plain", logentry.ModeLog)
	f.poll()

	f.model.Update(key("i"))
	assert.Equal(t, 2, f.store.Len())
	assert.True(t, f.model.files.Contains("Assets/Noisy.cs"))

	f.model.list.Select(0)
	f.model.Update(key("I"))
	assert.Equal(t, 1, f.store.Len())
	assert.Equal(t, "plain", f.model.list.Selected().Condition())

	f.model.Update(key("I"))
	assert.Contains(t, f.model.status.message, "no warning code")

	f.model.Update(key("u"))
	assert.Equal(t, 3, f.store.Len())
}

func TestModel_ReverseClearAndDisplayToggles(t *testing.T) {
	f := newFixture(t, false)
	f.log("first", logentry.ModeLog)
	f.log("second", logentry.ModeLog)
	f.poll()

	f.model.Update(key("r"))
	assert.True(t, f.store.Reverse())
	assert.Equal(t, "second", f.store.At(0).Condition())

	f.model.Update(key("s"))
	assert.False(t, f.model.display.SmallList)
	f.model.Update(key("f"))
	assert.False(t, f.model.display.ShowFilesInDetails)

	f.model.Update(key("x"))
	assert.Zero(t, f.store.Len())
	assert.Zero(t, f.mem.Len())
	assert.True(t, f.model.list.Selected().IsEmpty())
}

func TestModel_TabScrollsDetails(t *testing.T) {
	f := newFixture(t, false)
	f.log("a", logentry.ModeLog)
	f.log("b", logentry.ModeLog)
	f.poll()

	f.model.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusDetails, f.model.focus)
	f.model.Update(key("j"))
	assert.Equal(t, 0, f.model.list.SelectedIndex(), "details focus does not move the list")
}

func TestModel_View(t *testing.T) {
	f := newFixture(t, false)
	assert.Equal(t, "Loading...", New(Config{Store: f.store, Provider: f.mem}).View())

	f.log("[Boot] ready", logentry.ModeLog)
	f.log("broken", logentry.ModeScriptingError)
	f.poll()

	view := ansi.Strip(f.model.View())
	assert.Contains(t, view, "remedy")
	assert.Contains(t, view, "[c]Collapse")
	assert.Contains(t, view, "L [Boot] ready")
	assert.Contains(t, view, "E broken")
	assert.Contains(t, view, "3:E 1")
	assert.Contains(t, view, "1:L 1")
	assert.Contains(t, view, "/ to filter")
}

func TestModel_NoticeShownInStatusBar(t *testing.T) {
	mem := provider.NewMemory(0)
	store := logstore.New(mem, logstore.Options{})
	m := New(Config{Store: store, Provider: mem, Notice: "Unity is not running; showing the last log"})
	m.Update(tea.WindowSizeMsg{Width: 200, Height: 30})

	assert.Contains(t, ansi.Strip(m.View()), "Unity is not running")
}

func TestModel_ChangesChannelTriggersPoll(t *testing.T) {
	mem := provider.NewMemory(0)
	store := logstore.New(mem, logstore.Options{})
	changes := make(chan struct{}, 1)
	m := New(Config{Store: store, Provider: mem, Changes: changes})

	changes <- struct{}{}
	msg := m.waitForChange()()
	require.IsType(t, changeMsg{}, msg)

	mem.Log(logentry.Raw{Condition: "x", Mode: logentry.ModeLog})
	_, cmd := m.Update(msg)
	assert.NotNil(t, cmd)
	assert.Equal(t, 1, store.Len())

	close(changes)
	assert.Nil(t, m.waitForChange()())
}

func TestEnsureFilter_ReusesRegistered(t *testing.T) {
	set := filter.NewSet()
	text := filter.NewTextFilter(filter.ModeFile, "Player")
	set.Add(filter.NameText, text)

	got := ensureFilter(set, filter.NameText, func() *filter.TextFilter { return filter.NewTextFilter(filter.ModeSubstring, "") })
	assert.Same(t, text, got)

	sev := ensureFilter(set, filter.NameSeverity, filter.NewSeverityFilter)
	registered, ok := set.Get(filter.NameSeverity)
	require.True(t, ok)
	assert.Same(t, sev, registered)
}
