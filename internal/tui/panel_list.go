package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/newhook/remedy/internal/console"
	"github.com/newhook/remedy/internal/logentry"
	"github.com/newhook/remedy/internal/logstore"
)

// ListPanel shows the store's projection with one selected record.
type ListPanel struct {
	width  int
	height int

	focused bool

	store    *logstore.Store
	display  *console.Options
	selected int
	offset   int

	zonePrefix string
}

// NewListPanel creates a list over store.
func NewListPanel(store *logstore.Store, display *console.Options) *ListPanel {
	return &ListPanel{
		width:      80,
		height:     10,
		focused:    true,
		store:      store,
		display:    display,
		zonePrefix: zone.NewPrefix(),
	}
}

// SetSize updates the panel dimensions, border included.
func (p *ListPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.clamp()
}

// SetFocus updates the focus state.
func (p *ListPanel) SetFocus(focused bool) {
	p.focused = focused
}

func (p *ListPanel) rowHeight() int {
	if p.display.SmallList {
		return 1
	}
	return 2
}

// visibleRows is how many records fit inside the border.
func (p *ListPanel) visibleRows() int {
	return max((p.height-2)/p.rowHeight(), 1)
}

// Selected returns the selected record, or the empty record when the
// projection is empty.
func (p *ListPanel) Selected() *logentry.Record {
	return p.store.At(p.selected)
}

// SelectedIndex returns the selection's projection index.
func (p *ListPanel) SelectedIndex() int {
	return p.selected
}

// Select moves the selection to index, clamped to the projection.
func (p *ListPanel) Select(index int) {
	p.selected = index
	p.clamp()
}

// SelectRecord moves the selection to rec if it is visible.
func (p *ListPanel) SelectRecord(rec *logentry.Record) bool {
	i := p.store.LastIndexOf(rec)
	if i < 0 {
		return false
	}
	p.Select(i)
	return true
}

// Move shifts the selection by delta rows.
func (p *ListPanel) Move(delta int) {
	p.Select(p.selected + delta)
}

// Page shifts the selection by delta pages.
func (p *ListPanel) Page(delta int) {
	p.Move(delta * p.visibleRows())
}

// clamp keeps the selection inside the projection and the window around
// the selection.
func (p *ListPanel) clamp() {
	n := p.store.Len()
	p.selected = min(max(p.selected, 0), max(n-1, 0))

	rows := p.visibleRows()
	if p.selected < p.offset {
		p.offset = p.selected
	}
	if p.selected >= p.offset+rows {
		p.offset = p.selected - rows + 1
	}
	p.offset = min(max(p.offset, 0), max(n-rows, 0))
}

func (p *ListPanel) rowZone(i int) string {
	return fmt.Sprintf("%srow-%d", p.zonePrefix, i)
}

// HandleClick selects the row under a mouse click. It reports whether a
// row was hit.
func (p *ListPanel) HandleClick(msg tea.MouseMsg) bool {
	end := min(p.offset+p.visibleRows(), p.store.Len())
	for i := p.offset; i < end; i++ {
		if zone.Get(p.rowZone(i)).InBounds(msg) {
			p.Select(i)
			return true
		}
	}
	return false
}

// View renders the panel.
func (p *ListPanel) View() string {
	p.clamp()
	inner := max(p.width-4, 1)

	var lines []string
	n := p.store.Len()
	if n == 0 {
		lines = append(lines, dimStyle.Render("No entries"))
	}
	end := min(p.offset+p.visibleRows(), n)
	for i := p.offset; i < end; i++ {
		row := console.ListLine(p.store.At(i), inner, *p.display)
		if h := p.rowHeight(); strings.Count(row, "\n")+1 < h {
			row += strings.Repeat("\n", h-1-strings.Count(row, "\n"))
		}
		if i == p.selected {
			row = selectedStyle.Width(inner).Render(row)
		}
		lines = append(lines, zone.Mark(p.rowZone(i), row))
	}

	style := panelStyle
	if p.focused {
		style = activePanelStyle
	}
	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return style.Width(p.width - 2).Height(p.height - 2).MaxHeight(p.height).Render(content)
}
