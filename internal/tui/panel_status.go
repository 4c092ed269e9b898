package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"

	"github.com/newhook/remedy/internal/console"
	"github.com/newhook/remedy/internal/filter"
	"github.com/newhook/remedy/internal/logentry"
	"github.com/newhook/remedy/internal/logstore"
)

// Toolbar button zone IDs, also used as action names.
const (
	buttonClear    = "clear"
	buttonCollapse = "collapse"
	buttonReverse  = "reverse"
	buttonSmall    = "small"
	buttonFiles    = "files"
	buttonErrors   = "errors"
	buttonWarnings = "warnings"
	buttonLogs     = "logs"
)

// Toolbar is the top line: console toggles and severity counts.
type Toolbar struct {
	width      int
	zonePrefix string
}

// NewToolbar creates a toolbar.
func NewToolbar() *Toolbar {
	return &Toolbar{width: 80, zonePrefix: zone.NewPrefix()}
}

// SetSize updates the toolbar width.
func (t *Toolbar) SetSize(width int) {
	t.width = width
}

// ToolbarState is what the toolbar displays.
type ToolbarState struct {
	Title      string
	Collapse   bool
	Reverse    bool
	SmallList  bool
	ShowFiles  bool
	Counts     logstore.Counts
	Severities *filter.SeverityFilter
}

// Clicked returns the button under a mouse event, or "".
func (t *Toolbar) Clicked(inBounds func(id string) bool) string {
	for _, b := range []string{buttonClear, buttonCollapse, buttonReverse, buttonSmall, buttonFiles, buttonErrors, buttonWarnings, buttonLogs} {
		if inBounds(t.zonePrefix + b) {
			return b
		}
	}
	return ""
}

// View renders the toolbar.
func (t *Toolbar) View(s ToolbarState) string {
	mark := func(id, s string) string { return zone.Mark(t.zonePrefix+id, s) }

	left := strings.Join([]string{
		titleStyle.Render(s.Title),
		mark(buttonClear, toggle("[x]Clear", false)),
		mark(buttonCollapse, toggle("[c]Collapse", s.Collapse)),
		mark(buttonReverse, toggle("[r]Reverse", s.Reverse)),
		mark(buttonSmall, toggle("[s]Small", s.SmallList)),
		mark(buttonFiles, toggle("[f]Files", s.ShowFiles)),
	}, " ")

	level := func(id, key string, sev logentry.Severity, n int) string {
		label := key + console.Icon(sev) + " " + console.FormatCount(n)
		if s.Severities.Shown(sev) {
			label = console.SeverityStyle(sev).Render(label)
		} else {
			label = dimStyle.Render(label)
		}
		return mark(id, label)
	}
	right := strings.Join([]string{
		level(buttonErrors, "3:", logentry.SeverityError, s.Counts.Errors),
		level(buttonWarnings, "2:", logentry.SeverityWarning, s.Counts.Warnings),
		level(buttonLogs, "1:", logentry.SeverityLog, s.Counts.Logs),
	}, "  ")

	gap := t.width - ansi.StringWidth(left) - ansi.StringWidth(right)
	if gap < 1 {
		return ansi.Truncate(left+" "+right, t.width, "")
	}
	return left + strings.Repeat(" ", gap) + right
}

// FilterBar edits the text filter.
type FilterBar struct {
	width int
	input textinput.Model
	text  *filter.TextFilter
}

// NewFilterBar creates a bar editing text.
func NewFilterBar(text *filter.TextFilter) *FilterBar {
	in := textinput.New()
	in.Prompt = "/"
	in.Placeholder = "filter"
	in.SetValue(text.Pattern())
	return &FilterBar{width: 80, input: in, text: text}
}

// SetSize updates the bar width.
func (b *FilterBar) SetSize(width int) {
	b.width = width
}

// Focused reports whether the input has focus.
func (b *FilterBar) Focused() bool {
	return b.input.Focused()
}

// Focus starts editing.
func (b *FilterBar) Focus() {
	b.input.Focus()
}

// Blur stops editing, keeping the current pattern.
func (b *FilterBar) Blur() {
	b.input.Blur()
}

// Reset clears the pattern and stops editing.
func (b *FilterBar) Reset() {
	b.input.SetValue("")
	b.text.SetPattern("")
	b.input.Blur()
}

// CycleMode switches between substring, file and regex matching.
func (b *FilterBar) CycleMode() {
	b.text.SetMode((b.text.Mode() + 1) % (filter.ModeRegex + 1))
}

// View renders the bar.
func (b *FilterBar) View() string {
	mode := dimStyle.Render("["+b.text.Mode().String()+"]") + " "
	suffix := ""
	if b.text.Err() != nil {
		suffix = " " + errorStyle.Render("invalid pattern")
	}

	// The input gets what the mode label and error leave, less the prompt
	// and the cursor cell.
	avail := b.width - ansi.StringWidth(mode) - ansi.StringWidth(suffix)
	b.input.Width = max(avail-ansi.StringWidth(b.input.Prompt)-1, 1)

	line := b.input.View()
	if !b.input.Focused() && b.text.Pattern() == "" {
		line = dimStyle.Render("/ to filter")
	}
	line = ansi.Truncate(line, max(avail, 0), "")
	return ansi.Truncate(mode+line+suffix, b.width, "")
}

// StatusBar is the bottom line: key hints and the last message.
type StatusBar struct {
	width   int
	message string
	isError bool
}

// NewStatusBar creates an empty status bar.
func NewStatusBar() *StatusBar {
	return &StatusBar{width: 80}
}

// SetSize updates the bar width.
func (s *StatusBar) SetSize(width int) {
	s.width = width
}

// SetStatus replaces the message. Newlines are flattened.
func (s *StatusBar) SetStatus(message string, isError bool) {
	message = strings.ReplaceAll(message, "\n", " ")
	s.message = strings.TrimSpace(message)
	s.isError = isError
}

// View renders the bar.
func (s *StatusBar) View() string {
	hints := strings.Join([]string{
		hotkeyStyle.Render("j/k") + " move",
		hotkeyStyle.Render("tab") + " focus",
		hotkeyStyle.Render("/") + " filter",
		hotkeyStyle.Render("m") + " mode",
		hotkeyStyle.Render("i/I") + " ignore file/code",
		hotkeyStyle.Render("u") + " unignore",
		hotkeyStyle.Render("q") + " quit",
	}, "  ")

	msg := s.message
	if msg != "" {
		avail := s.width - ansi.StringWidth(hints) - 4
		if avail > 3 {
			msg = ansi.Truncate(msg, avail, "...")
			if s.isError {
				msg = errorStyle.Render(msg)
			}
			hints = hints + "  " + msg
		}
	}
	return statusBarStyle.Width(s.width).MaxWidth(s.width).Render(hints)
}
