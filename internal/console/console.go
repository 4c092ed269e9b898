// Package console renders records for terminals. Both the streaming
// watch output and the interactive TUI draw through it.
package console

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/newhook/remedy/internal/classlog"
	"github.com/newhook/remedy/internal/logentry"
	"github.com/newhook/remedy/internal/logparser"
	"github.com/newhook/remedy/internal/logstore"
)

// Options are the display settings.
type Options struct {
	// SmallList renders one line per record instead of two.
	SmallList bool
	// ShowLogCallFile prefixes plain logs with the file that logged them.
	ShowLogCallFile bool
	// ShowFilesInDetails lists file references under the detail text.
	ShowFilesInDetails bool
	// ProjectRoot highlights files under this prefix. Defaults to
	// logparser.DefaultProjectRoot.
	ProjectRoot string
}

var (
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	logStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	terminalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("247"))

	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("247"))
	assetStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Underline(true)
	countStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("247"))
	mutedBadge   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headingStyle = lipgloss.NewStyle().Bold(true)
)

var componentPattern = regexp.MustCompile(`^\[([^\]\s]+)\] `)

// SeverityStyle returns the text style for sev.
func SeverityStyle(sev logentry.Severity) lipgloss.Style {
	switch sev {
	case logentry.SeverityError:
		return errorStyle
	case logentry.SeverityWarning:
		return warningStyle
	case logentry.SeverityLog:
		return logStyle
	case logentry.SeverityTerminal:
		return terminalStyle
	default:
		return infoStyle
	}
}

// Icon is a one-character severity marker.
func Icon(sev logentry.Severity) string {
	switch sev {
	case logentry.SeverityError:
		return "E"
	case logentry.SeverityWarning:
		return "W"
	case logentry.SeverityLog:
		return "L"
	case logentry.SeverityTerminal:
		return ">"
	default:
		return "i"
	}
}

// FormatCount caps counts the way the toolbar shows them.
func FormatCount(n int) string {
	if n > 999 {
		return "999+"
	}
	return fmt.Sprint(n)
}

// Badge renders per-severity totals. Zero counts are dimmed.
func Badge(c logstore.Counts) string {
	part := func(icon string, n int, style lipgloss.Style) string {
		if n == 0 {
			style = mutedBadge
		}
		return style.Render(icon + " " + FormatCount(n))
	}
	return strings.Join([]string{
		part(Icon(logentry.SeverityError), c.Errors, errorStyle),
		part(Icon(logentry.SeverityWarning), c.Warnings, warningStyle),
		part(Icon(logentry.SeverityLog), c.Logs, logStyle),
	}, "  ")
}

// Text returns the record text as shown in the list: one or two lines,
// with rich text and escape codes removed.
func Text(rec *logentry.Record, opts Options) string {
	text := rec.FirstTwoLines()
	if opts.SmallList {
		text = rec.FirstLine()
	}
	text = logparser.CleanLog(text)
	if opts.ShowLogCallFile && rec.Severity() == logentry.SeverityLog {
		text = "[" + rec.Basename() + "]\t" + text
	}
	return text
}

// ListLine renders one list entry at most width cells wide. Entries are
// two lines tall unless opts.SmallList is set.
func ListLine(rec *logentry.Record, width int, opts Options) string {
	style := SeverityStyle(rec.Severity())
	badge := ""
	if rec.Count() > 1 {
		badge = " " + countStyle.Render(" "+FormatCount(rec.Count())+" ")
	}

	prefix := Icon(rec.Severity()) + " "
	lines := strings.Split(strings.ReplaceAll(Text(rec, opts), "\t", "  "), "\n")
	out := make([]string, len(lines))
	for i, line := range lines {
		avail := width - ansi.StringWidth(prefix)
		if i == 0 {
			avail -= ansi.StringWidth(badge)
		}
		if avail < 1 {
			avail = 1
		}
		line = truncate.StringWithTail(line, uint(avail), "...")

		lead := prefix
		if i > 0 {
			lead = strings.Repeat(" ", ansi.StringWidth(prefix))
		}
		rendered := style.Render(lead) + highlightComponent(line, style)
		if i == 0 {
			rendered += badge
		}
		out[i] = ansi.Truncate(rendered, width, "")
	}
	return strings.Join(out, "\n")
}

// highlightComponent colours a leading "[Component] " tag.
func highlightComponent(line string, style lipgloss.Style) string {
	m := componentPattern.FindStringSubmatchIndex(line)
	if m == nil {
		return style.Render(line)
	}
	name := line[m[2]:m[3]]
	tag := lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.Color("#" + classlog.ComponentColor(name).Hex())).
		Render(line[:m[1]])
	return tag + style.Render(line[m[1]:])
}

// Details renders the full record text wrapped to width, followed by its
// code, occurrence count and file references.
func Details(rec *logentry.Record, width int, opts Options) string {
	if width < 10 {
		width = 10
	}
	var b strings.Builder
	b.WriteString(wordwrap.String(logparser.CleanLog(rec.Condition()), width))
	b.WriteString("\n\n")

	var meta []string
	meta = append(meta, SeverityStyle(rec.Severity()).Render(rec.Severity().String()))
	if code := rec.Code(); code != "" {
		meta = append(meta, labelStyle.Render("code ")+code)
	}
	if rec.Count() > 1 {
		meta = append(meta, labelStyle.Render("count ")+fmt.Sprint(rec.Count()))
	}
	if !rec.Time().IsZero() {
		meta = append(meta, dimStyle.Render(rec.Time().Format(time.TimeOnly)))
	}
	b.WriteString(strings.Join(meta, "  "))

	if opts.ShowFilesInDetails {
		if files := rec.Files(); len(files) > 0 {
			b.WriteString("\n\n")
			b.WriteString(headingStyle.Render("Files"))
			for _, f := range files {
				b.WriteString("\n  ")
				b.WriteString(FileLine(f, opts.ProjectRoot))
			}
		}
	}
	return b.String()
}

// FileLine renders a file reference. Project assets are highlighted and a
// negative line is omitted.
func FileLine(f logparser.FileRef, root string) string {
	loc := f.Path
	if f.Line >= 0 {
		loc = fmt.Sprintf("%s:%d", f.Path, f.Line)
	}
	if f.IsProjectAsset(root) {
		return assetStyle.Render(loc)
	}
	return dimStyle.Render(loc)
}

// Stream renders a record for line-oriented output: a time, a severity
// marker and the full text with continuation lines indented.
func Stream(rec *logentry.Record, opts Options) string {
	style := SeverityStyle(rec.Severity())
	stamp := dimStyle.Render(rec.Time().Format(time.TimeOnly))
	text := logparser.CleanLog(rec.Condition())
	if opts.SmallList {
		text = logparser.CleanLog(rec.FirstLine())
	}

	lines := strings.Split(text, "\n")
	lines[0] = highlightComponent(lines[0], style)
	for i := 1; i < len(lines); i++ {
		lines[i] = strings.Repeat(" ", 11) + dimStyle.Render(lines[i])
	}
	return stamp + " " + style.Render(Icon(rec.Severity())) + " " + strings.Join(lines, "\n")
}
