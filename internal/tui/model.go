package tui

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	xdraw "golang.org/x/image/draw"

	"github.com/csheth/folio/internal/config"
	"github.com/csheth/folio/internal/pages"
	"github.com/csheth/folio/internal/render"
	"github.com/csheth/folio/internal/viewer"

	applog "github.com/csheth/folio/internal/log"
)

// Config wires runtime options into the TUI program.
type Config struct {
	Source      pages.Source
	PageLoader  render.Loader
	ThumbLoader render.Loader
	Viewer      config.ViewerConfig
	// StartPage is navigated to once the first page set is laid out.
	StartPage int
	// Companion describes a PDF the rasterized pages were produced from.
	Companion *pages.DocumentInfo
	// OnReload runs when a refreshed listing replaces the shown one, before
	// its pages render, so loaders can drop bitmaps they hold.
	OnReload func()
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	return newModel(config)
}

type model struct {
	config Config
	keys   keyMap
	help   help.Model
	layout pageLayout

	session       *viewer.Session
	jobs          *jobBus
	pageRenderer  *render.Renderer
	thumbRenderer *render.Renderer
	anim          viewer.Animator

	spinner  spinner.Model
	viewport viewport.Model
	input    textinput.Model

	inputFocused bool
	inputPage    int
	loading      bool
	sizeKnown    bool
	helpVisible  bool
	listDirty    bool
	loaded       bool
	sourceSeq    int
	active       map[string]jobSnapshot

	title        string
	audit        []string
	pageLines    map[int][]string
	thumbLines   map[int][]string
	broken       map[int]string
	status       string
	errorMessage string

	log *slog.Logger
}

func newModel(cfg Config) *model {
	vc := cfg.Viewer
	if vc.ThumbnailWidth <= 0 {
		vc.ThumbnailWidth = config.Defaults().Viewer.ThumbnailWidth
	}
	if vc.SidebarWidth <= 0 {
		vc.SidebarWidth = config.Defaults().Viewer.SidebarWidth
	}
	if vc.ScrollFrameMs <= 0 {
		vc.ScrollFrameMs = config.Defaults().Viewer.ScrollFrameMs
	}
	cfg.Viewer = vc

	input := textinput.New()
	input.Prompt = ""
	input.CharLimit = 6
	input.Width = 5

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 20)

	m := &model{
		config:     cfg,
		keys:       defaultKeyMap(),
		help:       help.New(),
		layout:     newPageLayout(),
		jobs:       newJobBus(),
		spinner:    spin,
		viewport:   vp,
		input:      input,
		pageLines:  map[int][]string{},
		thumbLines: map[int][]string{},
		broken:     map[int]string{},
		active:     map[string]jobSnapshot{},
		log:        applog.WithComponent("tui"),
	}
	m.session = viewer.NewSession(viewer.Config{
		Threshold:      vc.VisibilityThreshold,
		SettleFallback: vc.SettleFallback(),
		ResizeDebounce: vc.ResizeDebounce(),
		ThumbWidth:     vc.ThumbnailWidth,
		Placeholder:    placeholderRows,
	}, viewer.Hooks{
		PageChanged: m.onPageChanged,
		LoadError:   m.onLoadError,
	})
	if cfg.PageLoader != nil {
		m.pageRenderer = render.NewRenderer(cfg.PageLoader)
	}
	if cfg.ThumbLoader != nil {
		m.thumbRenderer = render.NewRenderer(cfg.ThumbLoader)
		m.thumbRenderer.Scaler = xdraw.ApproxBiLinear
	}
	return m
}

func (m *model) Init() tea.Cmd {
	return m.loadSourceCmd()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.route(msg)
	m.mirrorInput()
	return m, cmd
}

func (m *model) route(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return cmd
		}
		return nil
	case jobSignalMsg:
		m.active[msg.Snapshot.ID] = msg.Snapshot
		return nil
	case jobResultEnvelope:
		delete(m.active, msg.Snapshot.ID)
		if msg.Payload == nil {
			return nil
		}
		return m.route(msg.Payload)
	case sourceResultMsg:
		return m.handleSource(msg)
	case pageRenderedMsg:
		return m.handleRendered(msg)
	case scrollFrameMsg:
		return m.handleFrame(msg)
	case settleFallbackMsg:
		m.handleFallback(msg)
		return nil
	case resizeFireMsg:
		return m.apply(m.session.FireResize(msg.token))
	case tea.WindowSizeMsg:
		return m.resize(msg.Width, msg.Height)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return nil
}

func (m *model) handleSource(msg sourceResultMsg) tea.Cmd {
	if msg.seq != m.sourceSeq {
		m.log.Debug("stale source result dropped", slog.Int("seq", msg.seq))
		return nil
	}
	m.loading = false
	if msg.err != nil {
		m.errorMessage = fmt.Sprintf("load failed: %v", msg.err)
		m.log.Error("page source failed", slog.String("source", m.sourceName()), slog.Any("err", msg.err))
		return nil
	}
	if m.loaded && m.config.OnReload != nil {
		m.config.OnReload()
	}
	m.loaded = true
	res := msg.resolved
	m.title = res.Title
	if m.title == "" && m.config.Companion != nil {
		m.title = m.config.Companion.Title
	}
	m.audit = res.Audit
	m.pageLines = map[int][]string{}
	m.thumbLines = map[int][]string{}
	m.broken = map[int]string{}
	m.errorMessage = ""
	m.anim.Stop()
	if c := m.config.Companion; c != nil && c.PageCount != res.Set.Len() {
		m.log.Warn("companion PDF page count differs",
			slog.Int("pages", res.Set.Len()), slog.Int("pdf_pages", c.PageCount), slog.String("pdf", c.Path))
	}
	m.listDirty = true
	eff := m.session.Load(res.Set)
	m.viewport.SetYOffset(0)
	// a reload keeps the reader on the same page
	if cur := m.session.State().CurrentPage; cur > 1 && m.session.Width() > 0 {
		m.setOffset(m.session.TargetOffset(cur))
		m.session.ViewportMoved(m.viewport.YOffset)
	}
	if res.Set.Len() == 0 {
		m.status = "No pages."
	}
	return tea.Batch(m.apply(eff), m.jumpToStart())
}

func (m *model) sourceName() string {
	if m.config.Source == nil {
		return ""
	}
	return m.config.Source.Name()
}

func (m *model) jumpToStart() tea.Cmd {
	if m.config.StartPage <= 0 || m.session.Set().Len() == 0 || m.session.Width() == 0 {
		return nil
	}
	page := m.config.StartPage
	m.config.StartPage = 0
	return m.apply(m.session.ScrollToPage(page))
}

func (m *model) handleRendered(msg pageRenderedMsg) tea.Cmd {
	idx := msg.req.Page.Index
	if msg.err != nil {
		if m.session.PageFailed(msg.req, msg.err) && msg.req.Thumb {
			delete(m.thumbLines, idx)
		}
		return nil
	}
	eff, ok := m.session.PageRendered(msg.req, msg.rows+labelRows)
	if !ok {
		return nil
	}
	if msg.req.Thumb {
		m.thumbLines[idx] = msg.lines
	} else {
		m.pageLines[idx] = msg.lines
		delete(m.broken, idx)
		m.listDirty = true
	}
	return m.apply(eff)
}

// apply executes what a Session call asked for.
func (m *model) apply(eff viewer.Effects) tea.Cmd {
	if eff.Empty() {
		return nil
	}
	var cmds []tea.Cmd
	if eff.Reposition != nil {
		m.setOffset(*eff.Reposition)
		m.session.ViewportMoved(m.viewport.YOffset)
	}
	if eff.Retarget != nil {
		m.anim.Retarget(*eff.Retarget)
	}
	if eff.Scroll != nil {
		cmds = append(cmds, m.startScroll(*eff.Scroll))
	}
	if eff.Resize != nil {
		tok := eff.Resize.Token
		cmds = append(cmds, tea.Tick(eff.Resize.After, func(time.Time) tea.Msg {
			return resizeFireMsg{token: tok}
		}))
	}
	for _, req := range eff.Render {
		cmds = append(cmds, m.renderCmd(req))
	}
	return tea.Batch(cmds...)
}

func (m *model) startScroll(se viewer.ScrollEffect) tea.Cmd {
	m.listDirty = true
	if !m.config.Viewer.SmoothScroll {
		m.anim.Stop()
		m.setOffset(se.Offset)
		m.session.ViewportMoved(m.viewport.YOffset)
		m.session.ScrollSettled(se.Token)
		return nil
	}
	m.anim.Start(m.viewport.YOffset, se.Offset, se.Token)
	tok := se.Token
	return tea.Batch(
		m.frameTick(tok),
		tea.Tick(se.SettleAfter, func(time.Time) tea.Msg { return settleFallbackMsg{token: tok} }),
	)
}

func (m *model) frameTick(tok viewer.Token) tea.Cmd {
	return tea.Tick(m.config.Viewer.ScrollFrame(), func(time.Time) tea.Msg {
		return scrollFrameMsg{token: tok}
	})
}

func (m *model) handleFrame(msg scrollFrameMsg) tea.Cmd {
	if !m.anim.Active() || m.anim.Token() != msg.token {
		return nil
	}
	off, done := m.anim.Step()
	m.setOffset(off)
	m.session.ViewportMoved(m.viewport.YOffset)
	if !done {
		return m.frameTick(msg.token)
	}
	m.session.ScrollSettled(msg.token)
	m.listDirty = true
	return nil
}

// handleFallback settles an intent whose glide never reported arrival and
// lands the list on the glide's destination.
func (m *model) handleFallback(msg settleFallbackMsg) {
	gliding := m.anim.Active() && m.anim.Token() == msg.token
	if !m.session.ScrollSettled(msg.token) {
		return
	}
	m.log.Debug("scroll settled by fallback timer", slog.Uint64("token", uint64(msg.token)))
	if gliding {
		target := m.anim.Target()
		m.anim.Stop()
		m.setOffset(target)
		m.session.ViewportMoved(m.viewport.YOffset)
	}
	m.listDirty = true
}

func (m *model) setOffset(off int) {
	m.refreshList()
	m.viewport.SetYOffset(off)
}

// userScroll moves the list on the user's behalf, abandoning any glide.
func (m *model) userScroll(delta int) {
	m.anim.Stop()
	m.setOffset(m.viewport.YOffset + delta)
	m.session.UserScrolled(m.viewport.YOffset)
}

func (m *model) resize(width, height int) tea.Cmd {
	st := m.session.State()
	vc := m.config.Viewer
	m.layout.Update(width, height, vc.ThumbnailWidth, vc.SidebarWidth, !st.ThumbnailsCollapsed, !st.SidebarCollapsed)
	m.viewport.Width = m.layout.listWidth
	m.viewport.Height = m.layout.bodyHeight
	m.help.Width = width
	m.sizeKnown = true
	m.listDirty = true
	m.session.SetThumbViewport(m.layout.bodyHeight)
	eff := m.session.SetContainer(m.layout.listWidth, m.layout.bodyHeight)
	return tea.Batch(m.apply(eff), m.jumpToStart())
}

func (m *model) relayout() tea.Cmd {
	if !m.sizeKnown {
		return nil
	}
	return m.resize(m.layout.windowWidth, m.layout.windowHeight)
}

func (m *model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	switch msg.Type {
	case tea.MouseWheelUp, tea.MouseWheelDown:
		delta := wheelStep
		if msg.Type == tea.MouseWheelUp {
			delta = -delta
		}
		if m.layout.inRail(msg.X, msg.Y) {
			m.session.Thumbs().Scroll(delta)
			return nil
		}
		m.userScroll(delta)
	case tea.MouseLeft:
		if m.layout.inRail(msg.X, msg.Y) {
			return m.apply(m.session.ThumbnailRowClicked(msg.Y - headerRows))
		}
	}
	return nil
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.inputFocused {
		return m.handleInputKey(msg)
	}
	st := m.session.State()
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.shutdown()
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.helpVisible = !m.helpVisible
		m.help.ShowAll = m.helpVisible
	case msg.Type == tea.KeyEsc:
		m.helpVisible = false
		m.help.ShowAll = false
	case key.Matches(msg, m.keys.Next):
		return m.apply(m.session.NavigateRelative(1))
	case key.Matches(msg, m.keys.Prev):
		return m.apply(m.session.NavigateRelative(-1))
	case key.Matches(msg, m.keys.First):
		return m.apply(m.session.ScrollToPage(1))
	case key.Matches(msg, m.keys.Last):
		return m.apply(m.session.ScrollToPage(st.PageCount))
	case key.Matches(msg, m.keys.GoTo):
		return m.focusInput()
	case key.Matches(msg, m.keys.Up):
		m.userScroll(-1)
	case key.Matches(msg, m.keys.Down):
		m.userScroll(1)
	case key.Matches(msg, m.keys.PageUp):
		m.userScroll(-m.layout.bodyHeight)
	case key.Matches(msg, m.keys.PageDown):
		m.userScroll(m.layout.bodyHeight)
	case key.Matches(msg, m.keys.Thumbnails):
		eff := m.session.SetThumbnailsCollapsed(!st.ThumbnailsCollapsed)
		return tea.Batch(m.apply(eff), m.relayout())
	case key.Matches(msg, m.keys.Sidebar):
		m.session.SetSidebarCollapsed(!st.SidebarCollapsed)
		return m.relayout()
	case key.Matches(msg, m.keys.Refresh):
		if m.loading {
			return nil
		}
		m.status = "Reloading…"
		return m.loadSourceCmd()
	}
	return nil
}

func (m *model) focusInput() tea.Cmd {
	if m.session.State().PageCount == 0 {
		return nil
	}
	m.inputFocused = true
	m.inputPage = m.session.State().CurrentPage
	m.input.SetValue("")
	m.input.Placeholder = m.session.State().PageInputText
	return m.input.Focus()
}

func (m *model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.shutdown()
		return tea.Quit
	case tea.KeyEnter:
		return m.commitInput(viewer.CommitEnter)
	case tea.KeyEsc, tea.KeyTab:
		return m.commitInput(viewer.CommitBlur)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.session.EditPageInput(m.input.Value())
	return cmd
}

func (m *model) commitInput(trigger viewer.CommitTrigger) tea.Cmd {
	m.inputFocused = false
	m.input.Blur()
	m.session.EditPageInput(m.input.Value())
	eff := m.session.CommitPageInput(trigger)
	m.input.SetValue(m.session.State().PageInputText)
	return m.apply(eff)
}

func (m *model) onPageChanged(page int) {
	m.status = fmt.Sprintf("Page %d of %d", page, m.session.State().PageCount)
	m.listDirty = true
	if !m.inputFocused {
		m.input.SetValue(m.session.State().PageInputText)
	}
	m.mirrorInput()
	m.log.Info("page changed", slog.Int("page", page))
}

// mirrorInput replaces an uncommitted page number with the current page
// when the page changes under a focused input.
func (m *model) mirrorInput() {
	st := m.session.State()
	if !m.inputFocused || st.CurrentPage == m.inputPage {
		return
	}
	m.inputPage = st.CurrentPage
	m.input.SetValue(st.PageInputText)
	m.input.CursorEnd()
	m.log.Debug("page input overwritten", slog.Int("page", st.CurrentPage))
}

func (m *model) onLoadError(page int, err error) {
	m.broken[page] = err.Error()
	delete(m.pageLines, page)
	m.errorMessage = fmt.Sprintf("Page %d could not be loaded.", page)
	m.listDirty = true
}

func (m *model) shutdown() {
	m.anim.Stop()
	m.session.Close()
	m.jobs.Cancel()
	m.log.Info("viewer closed")
}
