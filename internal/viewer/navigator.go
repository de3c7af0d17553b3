// Package viewer keeps the page list, the thumbnail rail and the page number
// input consistent while the user scrolls, clicks, types and resizes.
//
// Everything here is synchronous and free of timers: operations return the
// effects (scroll requests, timers to arm, renders to start) for the host
// event loop to carry out, and the host reports completions back with the
// tokens it was given. Completions carrying an outdated token are dropped.
package viewer

import (
	"log/slog"
	"strconv"

	applog "github.com/csheth/folio/internal/log"
)

// State is the viewer state. The Navigator is its only writer.
type State struct {
	PageCount           int
	CurrentPage         int
	PageInputText       string
	ThumbnailsCollapsed bool
	SidebarCollapsed    bool
	SuppressTracking    bool
}

// Token identifies one navigation intent. Tokens only grow.
type Token uint64

// ScrollRequest asks the host to bring Page's region to the top of the list.
type ScrollRequest struct {
	Page  int
	Token Token
}

// Navigator owns State. Suppression is keyed by the token of the latest
// intent, so settling an older intent never clears a newer one.
type Navigator struct {
	state     State
	gen       Token
	pending   Token
	announced int
	onChange  func(page int)
	log       *slog.Logger
}

// NewNavigator returns a navigator for an empty document. onChange, if set,
// is called whenever the current page settles on a new value.
func NewNavigator(onChange func(page int)) *Navigator {
	return &Navigator{onChange: onChange, log: applog.WithComponent("nav")}
}

// State returns a snapshot.
func (n *Navigator) State() State { return n.state }

// Reset installs a new page count. The current page is kept when still in
// range, so a refresh does not jump back to the first page. Any in-flight
// intent is abandoned.
func (n *Navigator) Reset(pageCount int) {
	if pageCount < 0 {
		pageCount = 0
	}
	n.gen++
	n.pending = 0
	n.state.SuppressTracking = false
	n.state.PageCount = pageCount
	switch {
	case pageCount == 0:
		n.setCurrent(0)
	case n.state.CurrentPage < 1:
		n.setCurrent(1)
	case n.state.CurrentPage > pageCount:
		n.setCurrent(pageCount)
	default:
		n.state.PageInputText = strconv.Itoa(n.state.CurrentPage)
	}
	n.announce()
}

// ScrollToPage clamps p and starts a programmatic scroll. It returns false
// when there is nothing to do: no pages, or p is already current.
func (n *Navigator) ScrollToPage(p int) (ScrollRequest, bool) {
	if n.state.PageCount == 0 {
		return ScrollRequest{}, false
	}
	p = clamp(p, 1, n.state.PageCount)
	if p == n.state.CurrentPage {
		return ScrollRequest{}, false
	}
	n.gen++
	n.pending = n.gen
	// suppression goes up before the request leaves this call
	n.state.SuppressTracking = true
	n.setCurrent(p)
	n.log.Debug("scroll requested", slog.Int("page", p), slog.Uint64("token", uint64(n.gen)))
	return ScrollRequest{Page: p, Token: n.gen}, true
}

// NavigateRelative scrolls delta pages from the current one.
func (n *Navigator) NavigateRelative(delta int) (ScrollRequest, bool) {
	return n.ScrollToPage(n.state.CurrentPage + delta)
}

// OnVisibilityReport applies a tracker report unless a programmatic scroll
// is in flight. It never requests a scroll.
func (n *Navigator) OnVisibilityReport(index int) bool {
	if n.state.SuppressTracking {
		n.log.Debug("visibility report suppressed", slog.Int("page", index), slog.Uint64("token", uint64(n.pending)))
		return false
	}
	if index < 1 || index > n.state.PageCount {
		return false
	}
	changed := index != n.state.CurrentPage
	if changed {
		n.setCurrent(index)
	}
	// an abandoned intent's optimistic page is announced once confirmed
	n.announce()
	return changed
}

// Settle marks the intent tok as complete. Tokens other than the latest
// in-flight one are stale and ignored.
func (n *Navigator) Settle(tok Token) bool {
	if tok == 0 || tok != n.pending {
		n.log.Debug("stale settlement dropped", slog.Uint64("token", uint64(tok)), slog.Uint64("pending", uint64(n.pending)))
		return false
	}
	n.pending = 0
	n.state.SuppressTracking = false
	n.log.Info("navigation settled", slog.Int("page", n.state.CurrentPage))
	n.announce()
	return true
}

// Release abandons the in-flight intent, e.g. because the user grabbed the
// scroll. The optimistic current page stands until the next report.
func (n *Navigator) Release() bool {
	if n.pending == 0 {
		return false
	}
	n.gen++
	n.pending = 0
	n.state.SuppressTracking = false
	return true
}

// Pending returns the token of the in-flight intent, or 0.
func (n *Navigator) Pending() Token { return n.pending }

// EditInput stores raw page input text without validation.
func (n *Navigator) EditInput(text string) { n.state.PageInputText = text }

// RevertInput restores the input text to the current page.
func (n *Navigator) RevertInput() {
	if n.state.CurrentPage == 0 {
		n.state.PageInputText = ""
		return
	}
	n.state.PageInputText = strconv.Itoa(n.state.CurrentPage)
}

func (n *Navigator) SetThumbnailsCollapsed(v bool) bool {
	if n.state.ThumbnailsCollapsed == v {
		return false
	}
	n.state.ThumbnailsCollapsed = v
	return true
}

func (n *Navigator) SetSidebarCollapsed(v bool) bool {
	if n.state.SidebarCollapsed == v {
		return false
	}
	n.state.SidebarCollapsed = v
	return true
}

// Invalidate drops any in-flight intent without announcing; used on close.
func (n *Navigator) Invalidate() {
	n.gen++
	n.pending = 0
	n.state.SuppressTracking = false
}

func (n *Navigator) setCurrent(p int) {
	n.state.CurrentPage = p
	if p == 0 {
		n.state.PageInputText = ""
		return
	}
	n.state.PageInputText = strconv.Itoa(p)
}

func (n *Navigator) announce() {
	if n.state.CurrentPage == n.announced || n.state.CurrentPage == 0 {
		n.announced = n.state.CurrentPage
		return
	}
	n.announced = n.state.CurrentPage
	if n.onChange != nil {
		n.onChange(n.announced)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
