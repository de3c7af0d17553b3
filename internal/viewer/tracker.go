package viewer

import (
	"log/slog"

	"github.com/csheth/folio/internal/pages"

	applog "github.com/csheth/folio/internal/log"
)

// Tracker measures which page region dominates the list viewport. Regions
// are stacked top to bottom in page order; their heights change as pages
// render.
//
// A region qualifies when its visible extent reaches threshold times the
// smaller of its own height and the viewport height, so pages taller than
// the viewport still qualify. Among qualifying regions the greatest visible
// fraction wins. On equal fractions the preferred page (see Prefer) wins,
// otherwise the lower page index.
type Tracker struct {
	threshold float64
	handles   []pages.Handle
	heights   []int
	tops      []int
	observing bool
	last      int
	prefer    int
	log       *slog.Logger
}

// NewTracker returns an idle tracker. Thresholds outside (0, 1] mean 0.5.
func NewTracker(threshold float64) *Tracker {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.5
	}
	return &Tracker{threshold: threshold, log: applog.WithComponent("tracker")}
}

// Observe registers regions for handles, each initialHeight tall, replacing
// any previous registration.
func (t *Tracker) Observe(handles []pages.Handle, initialHeight int) {
	t.handles = append([]pages.Handle(nil), handles...)
	t.heights = make([]int, len(handles))
	for i := range t.heights {
		t.heights[i] = max(initialHeight, 1)
	}
	t.observing = true
	t.last = 0
	t.prefer = 0
	t.relayout()
	t.log.Debug("observing regions", slog.Int("count", len(handles)))
}

// Unobserve stops measurement and forgets all regions.
func (t *Tracker) Unobserve() {
	t.handles = nil
	t.heights = nil
	t.tops = nil
	t.observing = false
	t.last = 0
	t.prefer = 0
}

// Prefer makes the 1-based page index win ties for the greatest visible
// fraction. A bottomed-out list shows several whole pages at once and the
// page the viewer already shows must stay current among them. 0 clears it.
func (t *Tracker) Prefer(index int) { t.prefer = index }

// Observing reports whether regions are registered.
func (t *Tracker) Observing() bool { return t.observing }

// SetHeight updates h's region height. Unknown handles are ignored.
func (t *Tracker) SetHeight(h pages.Handle, height int) bool {
	i, ok := t.position(h)
	if !ok {
		return false
	}
	height = max(height, 1)
	if t.heights[i] == height {
		return false
	}
	t.heights[i] = height
	t.relayout()
	return true
}

// Top returns the list offset of the region for the 1-based page index.
func (t *Tracker) Top(index int) int {
	if index < 1 || index > len(t.tops) {
		return 0
	}
	return t.tops[index-1]
}

// Height returns the region height for the 1-based page index.
func (t *Tracker) Height(index int) int {
	if index < 1 || index > len(t.heights) {
		return 0
	}
	return t.heights[index-1]
}

// TotalHeight is the height of the whole list.
func (t *Tracker) TotalHeight() int {
	n := len(t.tops)
	if n == 0 {
		return 0
	}
	return t.tops[n-1] + t.heights[n-1]
}

// Best returns the region that currently dominates a viewport of height vh
// at offset, or 0 when none qualifies.
func (t *Tracker) Best(offset, vh int) int {
	if !t.observing || vh <= 0 {
		return 0
	}
	best := 0
	bestFrac := 0.0
	for i, top := range t.tops {
		h := t.heights[i]
		if top >= offset+vh {
			break
		}
		visible := min(top+h, offset+vh) - max(top, offset)
		if visible <= 0 {
			continue
		}
		basis := float64(min(h, vh))
		if float64(visible) < t.threshold*basis {
			continue
		}
		frac := float64(visible) / basis
		if frac > bestFrac || (frac == bestFrac && i+1 == t.prefer) {
			best, bestFrac = i+1, frac
		}
	}
	return best
}

// Measure reports a page-became-current event when the dominant region
// differs from the one last reported.
func (t *Tracker) Measure(offset, vh int) (int, bool) {
	best := t.Best(offset, vh)
	if best == 0 || best == t.last {
		return 0, false
	}
	t.last = best
	return best, true
}

func (t *Tracker) position(h pages.Handle) (int, bool) {
	if h.IsZero() {
		return 0, false
	}
	i := h.Index() - 1
	if i < 0 || i >= len(t.handles) || t.handles[i] != h {
		return 0, false
	}
	return i, true
}

func (t *Tracker) relayout() {
	t.tops = make([]int, len(t.heights))
	y := 0
	for i, h := range t.heights {
		t.tops[i] = y
		y += h
	}
}
