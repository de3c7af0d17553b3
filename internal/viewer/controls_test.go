package viewer

import (
	"testing"
	"time"
)

func TestPageInputRevertsOutOfRange(t *testing.T) {
	t.Parallel()
	n, log := newNav(t, 10)
	n.ScrollToPage(3)
	n.Settle(n.Pending())
	log.pages = nil

	in := NewPageInput(n)
	in.OnInputChange("15")
	if n.State().PageInputText != "15" {
		t.Fatal("raw text should be stored while editing")
	}
	if _, ok := in.OnCommit(CommitEnter); ok {
		t.Fatal("out of range commit scrolled")
	}
	st := n.State()
	if st.CurrentPage != 3 || st.PageInputText != "3" {
		t.Fatalf("state = %#v", st)
	}
	if len(log.pages) != 0 {
		t.Fatalf("announcements = %v", log.pages)
	}
}

func TestPageInputCommitCases(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		text     string
		trigger  CommitTrigger
		scrolls  bool
		wantPage int
		wantText string
	}{
		{name: "valid enter", text: "7", trigger: CommitEnter, scrolls: true, wantPage: 7, wantText: "7"},
		{name: "valid blur with spaces", text: " 9 ", trigger: CommitBlur, scrolls: true, wantPage: 9, wantText: "9"},
		{name: "empty", text: "", trigger: CommitBlur, wantPage: 1, wantText: "1"},
		{name: "not a number", text: "two", trigger: CommitEnter, wantPage: 1, wantText: "1"},
		{name: "zero", text: "0", trigger: CommitEnter, wantPage: 1, wantText: "1"},
		{name: "current page with leading zero", text: "01", trigger: CommitEnter, wantPage: 1, wantText: "1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, _ := newNav(t, 10)
			in := NewPageInput(n)
			in.OnInputChange(tc.text)
			_, ok := in.OnCommit(tc.trigger)
			if ok != tc.scrolls {
				t.Fatalf("scrolled = %v, want %v", ok, tc.scrolls)
			}
			st := n.State()
			if st.CurrentPage != tc.wantPage || st.PageInputText != tc.wantText {
				t.Fatalf("state = %#v", st)
			}
		})
	}
}

func TestThumbPanelSyncSelectionNearestEdge(t *testing.T) {
	t.Parallel()
	var p ThumbPanel
	p.Reset(10, 4)
	p.SetViewport(10)

	if p.SyncSelection(2) {
		t.Fatal("visible entry should not scroll the rail")
	}
	// entry 5 spans rows 16..20; bottom edge aligns
	if !p.SyncSelection(5) || p.Offset() != 10 {
		t.Fatalf("offset = %d, want 10", p.Offset())
	}
	// entry 2 spans 4..8; top edge aligns
	if !p.SyncSelection(2) || p.Offset() != 4 {
		t.Fatalf("offset = %d, want 4", p.Offset())
	}
	if !p.SyncSelection(10) || p.Offset() != 30 {
		t.Fatalf("offset = %d, want 30", p.Offset())
	}
}

func TestThumbPanelClicksAndCollapse(t *testing.T) {
	t.Parallel()
	var p ThumbPanel
	p.Reset(5, 4)
	p.SetViewport(8)
	p.Scroll(4)
	if idx, ok := p.EntryAt(0); !ok || idx != 2 {
		t.Fatalf("EntryAt(0) = %d, %v", idx, ok)
	}
	if idx, ok := p.EntryAt(7); !ok || idx != 3 {
		t.Fatalf("EntryAt(7) = %d, %v", idx, ok)
	}
	if _, ok := p.EntryAt(8); ok {
		t.Fatal("row outside the rail matched an entry")
	}
	if p.SetCollapsed(true) {
		t.Fatal("collapsing should not request a redraw")
	}
	if _, ok := p.EntryAt(0); ok {
		t.Fatal("collapsed rail accepted a click")
	}
	if p.SyncSelection(5) {
		t.Fatal("collapsed rail scrolled")
	}
	if !p.SetCollapsed(false) {
		t.Fatal("expanding should request a full redraw")
	}
}

func TestResizerOnlyLatestTimerFires(t *testing.T) {
	t.Parallel()
	r := NewResizer(100 * time.Millisecond)
	t1, d, ok := r.Notify(80)
	if !ok || d != 100*time.Millisecond {
		t.Fatalf("notify = %v, %v", d, ok)
	}
	t2, _, _ := r.Notify(70)
	t3, _, _ := r.Notify(60)
	for _, stale := range []ResizeToken{t1, t2} {
		if _, ok := r.Fire(stale); ok {
			t.Fatalf("stale token %d fired", stale)
		}
	}
	if w, ok := r.Fire(t3); !ok || w != 60 {
		t.Fatalf("fire = %d, %v", w, ok)
	}
	if _, ok := r.Fire(t3); ok {
		t.Fatal("timer fired twice")
	}
}

func TestResizerCloseCancelsPending(t *testing.T) {
	t.Parallel()
	r := NewResizer(0)
	tok, _, _ := r.Notify(50)
	r.Close()
	if _, ok := r.Fire(tok); ok {
		t.Fatal("pending pass ran after close")
	}
	if _, _, ok := r.Notify(40); ok {
		t.Fatal("closed resizer accepted a notification")
	}
}

func TestAnimatorLandsOnTarget(t *testing.T) {
	t.Parallel()
	var a Animator
	a.Start(0, 30, 7)
	var frames int
	for {
		off, done := a.Step()
		frames++
		if done {
			if off != 30 {
				t.Fatalf("landed at %d", off)
			}
			break
		}
		if frames > 100 {
			t.Fatal("animation never finished")
		}
	}
	if a.Active() || a.Token() != 7 {
		t.Fatalf("active=%v token=%d", a.Active(), a.Token())
	}

	a.Start(30, 0, 8)
	a.Step()
	a.Retarget(12)
	for a.Active() {
		a.Step()
	}
	if a.Target() != 12 {
		t.Fatalf("target = %d", a.Target())
	}
	a.Stop()
	if _, done := a.Step(); done {
		t.Fatal("stopped animator reported arrival")
	}
}
