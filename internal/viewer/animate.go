package viewer

// Animator eases the list offset toward a target one frame at a time. The
// frame that reaches the target is the scroll-end signal for its token.
type Animator struct {
	pos    int
	target int
	token  Token
	active bool
}

// Start begins a glide from offset from to offset to for intent tok.
func (a *Animator) Start(from, to int, tok Token) {
	a.pos, a.target, a.token, a.active = from, to, tok, true
}

// Retarget moves the destination, e.g. after regions above it resized.
func (a *Animator) Retarget(to int) {
	if a.active {
		a.target = to
	}
}

// Step advances one frame: a third of the remaining distance, at least
// one row. done is true on the frame that lands on the target.
func (a *Animator) Step() (offset int, done bool) {
	if !a.active {
		return a.pos, false
	}
	d := a.target - a.pos
	step := d / 3
	if step == 0 {
		step = d
	}
	a.pos += step
	if a.pos == a.target {
		a.active = false
		return a.pos, true
	}
	return a.pos, false
}

// Stop abandons the glide.
func (a *Animator) Stop() { a.active = false }

func (a *Animator) Active() bool { return a.active }

func (a *Animator) Token() Token { return a.token }

func (a *Animator) Target() int { return a.target }
