package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
)

var (
	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	pageLabelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	currentLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6"))
	railMarkerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffd166"))
	brokenStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ff8c00"))
	pageControlStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	sidebarStyle       = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderLeft(true).BorderForeground(lipgloss.Color("#56526e"))
	helpBoxStyle       = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("#7f5af0")).Padding(1, 2)
)

func (m *model) View() string {
	if !m.sizeKnown {
		return m.spinner.View() + " Loading pages…"
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.headerView(), m.bodyView(), m.footerView())
}

func (m *model) headerView() string {
	title := m.title
	if title == "" {
		title = "folio"
	}
	parts := []string{titleStyle.Render(title)}
	count := m.session.State().PageCount
	meta := fmt.Sprintf("%d pages", count)
	if c := m.config.Companion; c != nil && c.PageCount != count && !m.loading {
		meta = fmt.Sprintf("%d pages (PDF: %d)", count, c.PageCount)
	}
	parts = append(parts, helperStyle.Render(meta))
	if m.loading {
		parts = append(parts, m.spinner.View()+helperStyle.Render("loading"))
	} else if status := m.jobStatus(); status != "" {
		parts = append(parts, helperStyle.Render(status))
	}
	line := strings.Join(parts, "  ")
	return truncate.StringWithTail(line, uint(max(m.layout.windowWidth, 1)), "…")
}

// jobStatus summarises running render jobs by kind.
func (m *model) jobStatus() string {
	var pagesRunning, thumbsRunning int
	for _, snap := range m.active {
		switch snap.Kind {
		case jobKindPage:
			pagesRunning++
		case jobKindThumb:
			thumbsRunning++
		}
	}
	var parts []string
	if pagesRunning > 0 {
		parts = append(parts, countOf(pagesRunning, "page"))
	}
	if thumbsRunning > 0 {
		parts = append(parts, countOf(thumbsRunning, "thumbnail"))
	}
	if len(parts) == 0 {
		return ""
	}
	return "rendering " + strings.Join(parts, ", ")
}

func countOf(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func (m *model) bodyView() string {
	h := m.layout.bodyHeight
	var cols []string
	if m.layout.railWidth > 0 {
		cols = append(cols, m.railView())
	}
	if m.helpVisible {
		cols = append(cols, column(helpBoxStyle.Render(m.help.View(m.keys)), m.layout.listWidth, h))
	} else {
		m.refreshList()
		cols = append(cols, column(m.viewport.View(), m.layout.listWidth, h))
	}
	if m.layout.sidebarWidth > 0 {
		cols = append(cols, m.sidebarView())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

// refreshList rebuilds the page list content from the tracker's region
// heights. Regions without a bitmap yet are blank below their label.
func (m *model) refreshList() {
	if !m.listDirty {
		return
	}
	m.listDirty = false
	set := m.session.Set()
	tracker := m.session.Tracker()
	current := m.session.State().CurrentPage
	var lines []string
	for i := 1; i <= set.Len(); i++ {
		h := tracker.Height(i)
		region := []string{m.pageLabel(i, current)}
		if reason, ok := m.broken[i]; ok {
			region = append(region, brokenLines(m.layout.listWidth, reason)...)
		} else {
			region = append(region, m.pageLines[i]...)
		}
		lines = append(lines, fitLines(region, h)...)
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
}

func (m *model) pageLabel(index, current int) string {
	label := fmt.Sprintf(" page %d / %d ", index, m.session.State().PageCount)
	if index == current {
		return currentLabelStyle.Render(label)
	}
	return pageLabelStyle.Render(label)
}

func brokenLines(width int, reason string) []string {
	return []string{
		"",
		brokenStyle.Render(" ▒ broken page ▒ "),
		helperStyle.Render(truncate.StringWithTail(reason, uint(max(width, 1)), "…")),
	}
}

func (m *model) railView() string {
	panel := m.session.Thumbs()
	current := m.session.State().CurrentPage
	var lines []string
	for i := 1; i <= panel.Len(); i++ {
		marker := " "
		if i == current {
			marker = railMarkerStyle.Render("▌")
		}
		entry := append([]string{helperStyle.Render(fmt.Sprintf("%d", i))}, m.thumbLines[i]...)
		for _, l := range fitLines(entry, panel.EntryHeight(i)) {
			lines = append(lines, marker+" "+l)
		}
	}
	start := min(panel.Offset(), len(lines))
	end := min(start+m.layout.bodyHeight, len(lines))
	return column(strings.Join(lines[start:end], "\n"), m.layout.railWidth, m.layout.bodyHeight)
}

func (m *model) sidebarView() string {
	width := m.layout.sidebarWidth - 1
	lines := []string{sectionHeaderStyle.Render("Audit log")}
	if len(m.audit) == 0 {
		lines = append(lines, helperStyle.Render("No audit events."))
	} else {
		lines = append(lines, wrapEvents(m.audit, width)...)
	}
	lines = fitLines(lines, m.layout.bodyHeight)
	return sidebarStyle.Render(column(strings.Join(lines, "\n"), width, m.layout.bodyHeight))
}

func (m *model) footerView() string {
	st := m.session.State()
	field := st.PageInputText
	if m.inputFocused {
		field = m.input.View()
	}
	control := pageControlStyle.Render(fmt.Sprintf("page [ %s ] / %d", field, st.PageCount))
	parts := []string{control}
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	} else if m.status != "" {
		parts = append(parts, helperStyle.Render(m.status))
	}
	status := truncate.StringWithTail(strings.Join(parts, "  "), uint(max(m.layout.windowWidth, 1)), "…")
	short := m.help
	short.ShowAll = false
	return lipgloss.JoinVertical(lipgloss.Left, status, short.View(m.keys))
}
