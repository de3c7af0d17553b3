package viewer

import (
	"log/slog"
	"time"

	applog "github.com/csheth/folio/internal/log"
)

// ResizeToken identifies one debounce window.
type ResizeToken uint64

// Resizer debounces container width changes: only the timer armed by the
// latest notification may fire.
type Resizer struct {
	delay   time.Duration
	gen     ResizeToken
	pending int
	armed   bool
	closed  bool
	log     *slog.Logger
}

func NewResizer(delay time.Duration) *Resizer {
	if delay <= 0 {
		delay = 150 * time.Millisecond
	}
	return &Resizer{delay: delay, log: applog.WithComponent("resize")}
}

// Notify records width and returns the token and delay of a new timer,
// superseding any timer already armed.
func (r *Resizer) Notify(width int) (ResizeToken, time.Duration, bool) {
	if r.closed {
		return 0, 0, false
	}
	r.gen++
	r.pending = width
	r.armed = true
	return r.gen, r.delay, true
}

// Fire returns the settled width if tok belongs to the latest timer.
func (r *Resizer) Fire(tok ResizeToken) (int, bool) {
	if r.closed || !r.armed || tok != r.gen {
		r.log.Debug("stale resize timer dropped", slog.Uint64("token", uint64(tok)))
		return 0, false
	}
	r.armed = false
	return r.pending, true
}

// Cancel drops the armed timer, if any.
func (r *Resizer) Cancel() {
	r.gen++
	r.armed = false
}

// Close cancels any pending pass and refuses further notifications.
func (r *Resizer) Close() {
	r.Cancel()
	r.closed = true
}
