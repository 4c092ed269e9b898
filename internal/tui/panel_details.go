package tui

import (
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/newhook/remedy/internal/console"
	"github.com/newhook/remedy/internal/logentry"
)

// DetailsPanel shows the full text of the selected record.
type DetailsPanel struct {
	width  int
	height int

	focused bool

	viewport viewport.Model
	display  *console.Options

	record *logentry.Record
	count  int
}

// NewDetailsPanel creates an empty details panel.
func NewDetailsPanel(display *console.Options) *DetailsPanel {
	vp := viewport.New(40, 10)
	vp.MouseWheelEnabled = false
	return &DetailsPanel{
		width:    40,
		height:   10,
		viewport: vp,
		display:  display,
	}
}

// SetSize updates the panel dimensions, border included.
func (p *DetailsPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.viewport.Width = max(width-4, 1)
	p.viewport.Height = max(height-2, 1)
	p.refresh()
}

// SetFocus updates the focus state.
func (p *DetailsPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetRecord shows rec. Switching records scrolls back to the top; the
// same record is re-rendered when its count changed.
func (p *DetailsPanel) SetRecord(rec *logentry.Record) {
	if rec == p.record && rec.Count() == p.count {
		return
	}
	if rec.IsEmpty() && p.record != nil && p.record.IsEmpty() {
		return
	}
	if rec != p.record {
		p.viewport.SetYOffset(0)
	}
	p.record = rec
	p.refresh()
}

// Refresh re-renders after a display setting changed.
func (p *DetailsPanel) Refresh() {
	p.refresh()
}

func (p *DetailsPanel) refresh() {
	if p.record == nil || p.record.IsEmpty() {
		p.viewport.SetContent(dimStyle.Render("Nothing selected"))
		p.count = 0
		return
	}
	p.count = p.record.Count()
	p.viewport.SetContent(console.Details(p.record, p.viewport.Width, *p.display))
}

// ScrollUp scrolls the content up.
func (p *DetailsPanel) ScrollUp(n int) {
	p.viewport.ScrollUp(n)
}

// ScrollDown scrolls the content down.
func (p *DetailsPanel) ScrollDown(n int) {
	p.viewport.ScrollDown(n)
}

// View renders the panel.
func (p *DetailsPanel) View() string {
	style := panelStyle
	if p.focused {
		style = activePanelStyle
	}
	return style.Width(p.width - 2).Height(p.height - 2).MaxHeight(p.height).Render(p.viewport.View())
}
