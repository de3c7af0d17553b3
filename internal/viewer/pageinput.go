package viewer

import (
	"strconv"
	"strings"
)

// CommitTrigger says how an input edit was committed.
type CommitTrigger int

const (
	CommitBlur CommitTrigger = iota
	CommitEnter
)

func (c CommitTrigger) String() string {
	if c == CommitEnter {
		return "enter"
	}
	return "blur"
}

// PageInput binds the page number text field to the navigator. Invalid
// commits revert silently.
type PageInput struct {
	nav *Navigator
}

func NewPageInput(nav *Navigator) *PageInput { return &PageInput{nav: nav} }

// OnInputChange stores text as typed, including transient invalid states.
func (p *PageInput) OnInputChange(text string) { p.nav.EditInput(text) }

// OnCommit parses the stored text. An in-range number scrolls there;
// anything else, including the current page, restores the canonical text.
func (p *PageInput) OnCommit(CommitTrigger) (ScrollRequest, bool) {
	st := p.nav.State()
	n, err := strconv.Atoi(strings.TrimSpace(st.PageInputText))
	if err != nil || n < 1 || n > st.PageCount {
		p.nav.RevertInput()
		return ScrollRequest{}, false
	}
	req, ok := p.nav.ScrollToPage(n)
	if !ok {
		p.nav.RevertInput()
	}
	return req, ok
}
