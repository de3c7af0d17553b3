package viewer

import (
	"log/slog"
	"time"

	"github.com/csheth/folio/internal/pages"

	applog "github.com/csheth/folio/internal/log"
)

// Hooks are the session's outbound notifications.
type Hooks struct {
	// PageChanged fires when the current page settles on a new value.
	PageChanged func(page int)
	// LoadError fires when a page bitmap could not be drawn.
	LoadError func(page int, err error)
}

// Config tunes a Session.
type Config struct {
	Threshold      float64
	SettleFallback time.Duration
	ResizeDebounce time.Duration
	ThumbWidth     int
	// Placeholder estimates a region's height at a width before its bitmap
	// has been drawn.
	Placeholder func(width int) int
}

// RenderRequest asks the host to draw one page. Layout ties the result to
// the layout generation it was requested for.
type RenderRequest struct {
	Handle pages.Handle
	Page   pages.Descriptor
	Width  int
	Layout uint64
	Thumb  bool
}

// ScrollEffect asks the host to glide the list to Offset, report frames via
// ViewportMoved and report arrival via ScrollSettled(Token). The host also
// arms a fallback timer of SettleAfter that delivers the same token.
type ScrollEffect struct {
	ScrollRequest
	Offset      int
	SettleAfter time.Duration
}

// ResizeEffect asks the host to call FireResize(Token) after After.
type ResizeEffect struct {
	Token ResizeToken
	After time.Duration
}

// Effects is what one Session call asks the host to do. Zero fields mean
// nothing to do.
type Effects struct {
	Scroll *ScrollEffect
	Resize *ResizeEffect
	Render []RenderRequest
	// Reposition, when set, is a new list offset keeping the current page in
	// place after a layout change.
	Reposition *int
	// Retarget, when set, moves an in-flight glide's destination.
	Retarget *int
}

// Empty reports whether there is nothing for the host to do.
func (e Effects) Empty() bool {
	return e.Scroll == nil && e.Resize == nil && len(e.Render) == 0 && e.Reposition == nil && e.Retarget == nil
}

// Session owns one viewer instance: navigator, tracker, page input, rail and
// resize coordinator. It is created when the host starts and closed when the
// viewer goes away; every call after Close is a no-op.
type Session struct {
	cfg   Config
	hooks Hooks

	nav     *Navigator
	tracker *Tracker
	input   *PageInput
	thumbs  *ThumbPanel
	resizer *Resizer

	set         *pages.Set
	width       int
	viewport    int
	offset      int
	layout      uint64
	thumbLayout uint64
	ready       bool
	closed      bool

	log *slog.Logger
}

func NewSession(cfg Config, hooks Hooks) *Session {
	if cfg.SettleFallback <= 0 {
		cfg.SettleFallback = 1200 * time.Millisecond
	}
	if cfg.ThumbWidth <= 0 {
		cfg.ThumbWidth = 14
	}
	if cfg.Placeholder == nil {
		cfg.Placeholder = func(width int) int { return max(width, 1) }
	}
	s := &Session{cfg: cfg, hooks: hooks, log: applog.WithComponent("viewer")}
	s.nav = NewNavigator(func(page int) {
		if s.hooks.PageChanged != nil {
			s.hooks.PageChanged(page)
		}
	})
	s.tracker = NewTracker(cfg.Threshold)
	s.input = NewPageInput(s.nav)
	s.thumbs = &ThumbPanel{}
	s.resizer = NewResizer(cfg.ResizeDebounce)
	return s
}

func (s *Session) State() State { return s.nav.State() }

func (s *Session) Tracker() *Tracker { return s.tracker }

func (s *Session) Thumbs() *ThumbPanel { return s.thumbs }

func (s *Session) Set() *pages.Set { return s.set }

// Width is the list width the current layout was rendered for.
func (s *Session) Width() int { return s.width }

// Layout is the current layout generation.
func (s *Session) Layout() uint64 { return s.layout }

func (s *Session) Closed() bool { return s.closed }

// Load installs a resolved page set, replacing any previous one. Loads still
// in flight for the previous set are discarded when they complete.
func (s *Session) Load(set *pages.Set) Effects {
	if s.closed {
		return Effects{}
	}
	s.set = set
	s.layout++
	s.thumbLayout++
	s.offset = 0
	s.tracker.Unobserve()
	s.nav.Reset(set.Len())
	s.thumbs.Reset(set.Len(), s.cfg.Placeholder(s.cfg.ThumbWidth))
	s.log.Info("page set loaded", slog.Int("pages", set.Len()), slog.Uint64("gen", set.Gen()))
	if s.width > 0 {
		s.tracker.Observe(set.Handles(), s.cfg.Placeholder(s.width))
	}
	return s.maybeReady()
}

// SetContainer reports the list area size. The first usable width triggers
// the initial render immediately; later width changes are debounced.
func (s *Session) SetContainer(width, height int) Effects {
	if s.closed {
		return Effects{}
	}
	s.viewport = max(height, 0)
	if !s.ready {
		if width > 0 && width != s.width {
			s.width = width
			if s.set != nil {
				s.tracker.Observe(s.set.Handles(), s.cfg.Placeholder(width))
			}
		}
		return s.maybeReady()
	}
	if width <= 0 || width == s.width {
		s.resizer.Cancel()
		return Effects{}
	}
	tok, after, ok := s.resizer.Notify(width)
	if !ok {
		return Effects{}
	}
	return Effects{Resize: &ResizeEffect{Token: tok, After: after}}
}

// SetThumbViewport reports the rail's visible rows.
func (s *Session) SetThumbViewport(rows int) {
	s.thumbs.SetViewport(rows)
	s.thumbs.SyncSelection(s.nav.State().CurrentPage)
}

// maybeReady renders everything once both a page set and a width exist.
func (s *Session) maybeReady() Effects {
	if s.set == nil || s.width <= 0 {
		return Effects{}
	}
	s.ready = true
	eff := Effects{Render: s.pageRenders()}
	if !s.nav.State().ThumbnailsCollapsed {
		eff.Render = append(eff.Render, s.thumbRenders()...)
	}
	s.thumbs.SyncSelection(s.nav.State().CurrentPage)
	return eff
}

// FireResize runs the debounced render pass if tok is still current.
func (s *Session) FireResize(tok ResizeToken) Effects {
	if s.closed {
		return Effects{}
	}
	width, ok := s.resizer.Fire(tok)
	if !ok || width == s.width {
		return Effects{}
	}
	s.log.Debug("resize settled", slog.Int("from", s.width), slog.Int("to", width))
	s.width = width
	s.layout++
	return Effects{Render: s.pageRenders()}
}

// ScrollToPage navigates to page n.
func (s *Session) ScrollToPage(n int) Effects {
	if s.closed {
		return Effects{}
	}
	req, ok := s.nav.ScrollToPage(n)
	return s.scrollEffects(req, ok)
}

// NavigateRelative navigates delta pages away from the current one.
func (s *Session) NavigateRelative(delta int) Effects {
	if s.closed {
		return Effects{}
	}
	req, ok := s.nav.NavigateRelative(delta)
	return s.scrollEffects(req, ok)
}

// ThumbnailClicked navigates to the 1-based page index of a rail entry.
func (s *Session) ThumbnailClicked(index int) Effects {
	if s.closed || s.thumbs.Collapsed() {
		return Effects{}
	}
	return s.ScrollToPage(index)
}

// ThumbnailRowClicked maps a rail row to its entry and navigates there.
func (s *Session) ThumbnailRowClicked(row int) Effects {
	idx, ok := s.thumbs.EntryAt(row)
	if !ok {
		return Effects{}
	}
	return s.ThumbnailClicked(idx)
}

func (s *Session) scrollEffects(req ScrollRequest, ok bool) Effects {
	if !ok {
		return Effects{}
	}
	s.thumbs.SyncSelection(req.Page)
	return Effects{Scroll: &ScrollEffect{
		ScrollRequest: req,
		Offset:        s.TargetOffset(req.Page),
		SettleAfter:   s.cfg.SettleFallback,
	}}
}

// TargetOffset is the list offset that puts page's region at the top, limited
// to how far the list can scroll.
func (s *Session) TargetOffset(page int) int {
	return clamp(s.tracker.Top(page), 0, s.maxOffset())
}

func (s *Session) maxOffset() int {
	return max(s.tracker.TotalHeight()-s.viewport, 0)
}

// ViewportMoved reports the list offset after any movement, programmatic or
// not. Reports made while a programmatic scroll is in flight are ignored.
func (s *Session) ViewportMoved(offset int) {
	if s.closed {
		return
	}
	s.offset = offset
	s.tracker.Prefer(s.nav.State().CurrentPage)
	if idx, changed := s.tracker.Measure(offset, s.viewport); changed {
		if s.nav.OnVisibilityReport(idx) {
			s.thumbs.SyncSelection(idx)
		}
	}
}

// UserScrolled reports a list movement the user made. It abandons any
// in-flight programmatic scroll and applies what is now in view.
func (s *Session) UserScrolled(offset int) {
	if s.closed {
		return
	}
	s.offset = offset
	if s.nav.Release() {
		s.log.Debug("programmatic scroll abandoned by user")
	}
	s.tracker.Prefer(s.nav.State().CurrentPage)
	s.tracker.Measure(offset, s.viewport)
	if best := s.tracker.Best(offset, s.viewport); best > 0 {
		if s.nav.OnVisibilityReport(best) {
			s.thumbs.SyncSelection(best)
		}
	}
}

// ScrollSettled delivers the scroll-end signal or the fallback timer for tok.
func (s *Session) ScrollSettled(tok Token) bool {
	if s.closed {
		return false
	}
	return s.nav.Settle(tok)
}

// PageRendered records a finished render with its region height. Results
// for a replaced page set or an older layout are dropped and false is
// returned. For accepted list renders the effects keep the current page
// anchored.
func (s *Session) PageRendered(req RenderRequest, height int) (Effects, bool) {
	if !s.accept(req) {
		return Effects{}, false
	}
	if req.Thumb {
		s.thumbs.SetEntryHeight(req.Page.Index, height)
		s.thumbs.SyncSelection(s.nav.State().CurrentPage)
		return Effects{}, true
	}
	return s.resizeRegion(req, height), true
}

// PageFailed records a failed render. The region keeps its placeholder
// height and LoadError fires for list pages.
func (s *Session) PageFailed(req RenderRequest, err error) bool {
	if !s.accept(req) {
		return false
	}
	s.log.Warn("page failed to render", slog.Int("page", req.Page.Index), slog.Bool("thumb", req.Thumb), slog.Any("err", err))
	if !req.Thumb && s.hooks.LoadError != nil {
		s.hooks.LoadError(req.Page.Index, err)
	}
	return true
}

func (s *Session) accept(req RenderRequest) bool {
	if s.closed || !s.set.Owns(req.Handle) {
		s.log.Debug("stale render dropped", slog.Int("page", req.Page.Index))
		return false
	}
	layout := s.layout
	if req.Thumb {
		layout = s.thumbLayout
	}
	if req.Layout != layout {
		s.log.Debug("render for old layout dropped", slog.Int("page", req.Page.Index), slog.Uint64("layout", req.Layout))
		return false
	}
	return true
}

func (s *Session) resizeRegion(req RenderRequest, height int) Effects {
	cur := s.nav.State().CurrentPage
	anchorTop := s.tracker.Top(cur)
	screenPos := anchorTop - s.offset
	if !s.tracker.SetHeight(req.Handle, height) {
		return Effects{}
	}
	var eff Effects
	if s.nav.Pending() != 0 {
		// a glide is running toward the current page; move its destination
		to := s.TargetOffset(cur)
		eff.Retarget = &to
		return eff
	}
	newTop := s.tracker.Top(cur)
	if newTop != anchorTop {
		off := clamp(newTop-screenPos, 0, s.maxOffset())
		s.offset = off
		eff.Reposition = &off
	}
	return eff
}

// EditPageInput stores typed page input.
func (s *Session) EditPageInput(text string) {
	if s.closed {
		return
	}
	s.input.OnInputChange(text)
}

// CommitPageInput validates the typed page number on blur or Enter.
func (s *Session) CommitPageInput(trigger CommitTrigger) Effects {
	if s.closed {
		return Effects{}
	}
	req, ok := s.input.OnCommit(trigger)
	return s.scrollEffects(req, ok)
}

// SetThumbnailsCollapsed shows or hides the rail. Expanding redraws every
// thumbnail.
func (s *Session) SetThumbnailsCollapsed(v bool) Effects {
	if s.closed || !s.nav.SetThumbnailsCollapsed(v) {
		return Effects{}
	}
	if !s.thumbs.SetCollapsed(v) {
		return Effects{}
	}
	s.thumbLayout++
	if !s.ready {
		return Effects{}
	}
	s.thumbs.SyncSelection(s.nav.State().CurrentPage)
	return Effects{Render: s.thumbRenders()}
}

// SetSidebarCollapsed shows or hides the audit sidebar. The list width
// change arrives separately through SetContainer.
func (s *Session) SetSidebarCollapsed(v bool) {
	if s.closed {
		return
	}
	s.nav.SetSidebarCollapsed(v)
}

// Close tears the session down: pending resize and settle tokens go stale
// and the tracker stops observing.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.resizer.Close()
	s.nav.Invalidate()
	s.tracker.Unobserve()
	s.closed = true
	s.log.Info("session closed")
}

func (s *Session) pageRenders() []RenderRequest {
	out := make([]RenderRequest, 0, s.set.Len())
	for _, h := range s.set.Handles() {
		d, _ := s.set.Descriptor(h)
		out = append(out, RenderRequest{Handle: h, Page: d, Width: s.width, Layout: s.layout})
	}
	return out
}

func (s *Session) thumbRenders() []RenderRequest {
	out := make([]RenderRequest, 0, s.set.Len())
	for _, h := range s.set.Handles() {
		d, _ := s.set.Descriptor(h)
		out = append(out, RenderRequest{Handle: h, Page: d, Width: s.cfg.ThumbWidth, Layout: s.thumbLayout, Thumb: true})
	}
	return out
}
