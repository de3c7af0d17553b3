package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

// pageLayout splits the window into the thumbnail rail, the page list and
// the audit sidebar. Hidden panels take no columns.
type pageLayout struct {
	windowWidth  int
	windowHeight int
	railWidth    int
	listWidth    int
	sidebarWidth int
	bodyHeight   int
}

func newPageLayout() pageLayout {
	return pageLayout{listWidth: 80, bodyHeight: 20}
}

func (l *pageLayout) Update(width, height, thumbWidth, sidebarWidth int, showRail, showSidebar bool) {
	l.windowWidth = width
	l.windowHeight = height
	l.railWidth = 0
	if showRail {
		l.railWidth = thumbWidth + railPadding
	}
	l.sidebarWidth = 0
	if showSidebar {
		l.sidebarWidth = sidebarWidth
	}
	l.listWidth = width - l.railWidth - l.sidebarWidth
	if l.listWidth < minListWidth {
		l.listWidth = minListWidth
	}
	l.bodyHeight = height - headerRows - footerRows
	if l.bodyHeight < minBodyHeight {
		l.bodyHeight = minBodyHeight
	}
}

// inRail reports whether a window cell falls on the rail's body rows.
func (l pageLayout) inRail(x, y int) bool {
	return l.railWidth > 0 && x < l.railWidth && y >= headerRows && y < headerRows+l.bodyHeight
}

// fitLines pads or cuts lines to exactly n rows.
func fitLines(lines []string, n int) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, n)
	copy(out, lines)
	return out
}

// wrapEvents lays out audit events for a sidebar width columns wide.
func wrapEvents(events []string, width int) []string {
	if width <= 2 {
		return nil
	}
	var out []string
	for _, ev := range events {
		wrapped := wordwrap.String(strings.TrimSpace(ev), width-2)
		for i, line := range strings.Split(wrapped, "\n") {
			prefix := "  "
			if i == 0 {
				prefix = "• "
			}
			out = append(out, truncate.StringWithTail(prefix+line, uint(width), "…"))
		}
	}
	return out
}

func column(content string, width, height int) string {
	return lipgloss.NewStyle().Width(width).MaxWidth(width).Height(height).MaxHeight(height).Render(content)
}
