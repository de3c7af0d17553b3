package viewer

import (
	"testing"
)

type changeLog struct{ pages []int }

func (c *changeLog) record(p int) { c.pages = append(c.pages, p) }

func newNav(t *testing.T, count int) (*Navigator, *changeLog) {
	t.Helper()
	log := &changeLog{}
	n := NewNavigator(log.record)
	n.Reset(count)
	log.pages = nil
	return n, log
}

func TestScrollToPageClampsOnceSettled(t *testing.T) {
	t.Parallel()
	for _, target := range []int{-3, 0, 1, 4, 10, 11, 1000} {
		n, _ := newNav(t, 10)
		n.ScrollToPage(5)
		n.Settle(n.Pending())
		req, ok := n.ScrollToPage(target)
		if ok {
			n.Settle(req.Token)
		}
		want := max(1, min(target, 10))
		if got := n.State().CurrentPage; got != want {
			t.Fatalf("ScrollToPage(%d) -> %d, want %d", target, got, want)
		}
		if n.State().SuppressTracking {
			t.Fatalf("suppression still set after settle for %d", target)
		}
	}
}

func TestScrollToCurrentPageIsNoop(t *testing.T) {
	t.Parallel()
	n, log := newNav(t, 10)
	before := n.State()
	if _, ok := n.ScrollToPage(before.CurrentPage); ok {
		t.Fatal("expected no scroll request")
	}
	if n.State() != before {
		t.Fatalf("state changed: %#v -> %#v", before, n.State())
	}
	if len(log.pages) != 0 {
		t.Fatalf("spurious page change: %v", log.pages)
	}
}

func TestSuppressedReportsCannotMoveCurrentPage(t *testing.T) {
	t.Parallel()
	n, log := newNav(t, 10)
	req, ok := n.ScrollToPage(5)
	if !ok {
		t.Fatal("expected scroll request")
	}
	if !n.State().SuppressTracking {
		t.Fatal("suppression must be set when the request is issued")
	}
	if n.OnVisibilityReport(4) {
		t.Fatal("report applied during suppression")
	}
	if got := n.State().CurrentPage; got != 5 {
		t.Fatalf("current page = %d, want 5", got)
	}
	if len(log.pages) != 0 {
		t.Fatalf("announced before settlement: %v", log.pages)
	}
	if !n.Settle(req.Token) {
		t.Fatal("settle rejected the live token")
	}
	if len(log.pages) != 1 || log.pages[0] != 5 {
		t.Fatalf("announcements = %v, want [5]", log.pages)
	}
	if !n.OnVisibilityReport(6) || n.State().CurrentPage != 6 {
		t.Fatal("report after settlement should apply")
	}
}

func TestOlderIntentCannotClearNewerSuppression(t *testing.T) {
	t.Parallel()
	n, log := newNav(t, 10)
	first, _ := n.ScrollToPage(3)
	second, _ := n.ScrollToPage(8)
	if n.Settle(first.Token) {
		t.Fatal("stale token settled")
	}
	if !n.State().SuppressTracking {
		t.Fatal("stale settlement cleared suppression")
	}
	n.OnVisibilityReport(4)
	if n.State().CurrentPage != 8 {
		t.Fatalf("current page = %d, want 8", n.State().CurrentPage)
	}
	n.Settle(second.Token)
	if len(log.pages) != 1 || log.pages[0] != 8 {
		t.Fatalf("announcements = %v, want only the final page", log.pages)
	}
}

func TestNavigateRelativeWalksToLastPage(t *testing.T) {
	t.Parallel()
	n, _ := newNav(t, 10)
	for i := 0; i < 9; i++ {
		if _, ok := n.NavigateRelative(+1); !ok {
			t.Fatalf("step %d refused", i+1)
		}
	}
	if n.State().CurrentPage != 10 {
		t.Fatalf("current page = %d, want 10", n.State().CurrentPage)
	}
	if _, ok := n.NavigateRelative(+1); ok {
		t.Fatal("tenth step should be a no-op")
	}
	if n.State().CurrentPage != 10 {
		t.Fatalf("current page = %d after tenth step", n.State().CurrentPage)
	}
}

func TestEmptyDocumentIgnoresNavigation(t *testing.T) {
	t.Parallel()
	n, log := newNav(t, 0)
	for _, f := range []func() (ScrollRequest, bool){
		func() (ScrollRequest, bool) { return n.ScrollToPage(1) },
		func() (ScrollRequest, bool) { return n.ScrollToPage(5) },
		func() (ScrollRequest, bool) { return n.NavigateRelative(1) },
		func() (ScrollRequest, bool) { return n.NavigateRelative(-1) },
	} {
		if _, ok := f(); ok {
			t.Fatal("navigation on empty document issued a request")
		}
	}
	if n.OnVisibilityReport(1) {
		t.Fatal("report applied on empty document")
	}
	st := n.State()
	if st.CurrentPage != 0 || st.PageInputText != "" || st.SuppressTracking {
		t.Fatalf("state = %#v", st)
	}
	if len(log.pages) != 0 {
		t.Fatalf("announcements = %v", log.pages)
	}
}

func TestInputTextMirrorsCurrentPage(t *testing.T) {
	t.Parallel()
	n, _ := newNav(t, 10)
	n.EditInput("7x")
	n.ScrollToPage(3)
	if n.State().PageInputText != "3" {
		t.Fatalf("input = %q, want 3", n.State().PageInputText)
	}
	n.Settle(n.Pending())
	n.EditInput("")
	n.OnVisibilityReport(4)
	if n.State().PageInputText != "4" {
		t.Fatalf("input = %q, want 4", n.State().PageInputText)
	}
}

func TestReleaseAbandonsIntent(t *testing.T) {
	t.Parallel()
	n, log := newNav(t, 10)
	req, _ := n.ScrollToPage(9)
	if !n.Release() {
		t.Fatal("release should abandon the in-flight intent")
	}
	if n.State().SuppressTracking {
		t.Fatal("suppression should be lifted")
	}
	if n.Settle(req.Token) {
		t.Fatal("abandoned token settled")
	}
	// the user landed on the optimistic page; it is announced once seen
	n.OnVisibilityReport(9)
	if len(log.pages) != 1 || log.pages[0] != 9 {
		t.Fatalf("announcements = %v", log.pages)
	}
	if n.Release() {
		t.Fatal("nothing left to release")
	}
}

func TestResetKeepsPageInRange(t *testing.T) {
	t.Parallel()
	n, log := newNav(t, 10)
	n.ScrollToPage(8)
	n.Settle(n.Pending())
	n.Reset(5)
	if n.State().CurrentPage != 5 || n.State().PageCount != 5 {
		t.Fatalf("state = %#v", n.State())
	}
	n.Reset(0)
	if n.State().CurrentPage != 0 {
		t.Fatalf("empty reset current = %d", n.State().CurrentPage)
	}
	if got := log.pages; len(got) != 2 || got[0] != 8 || got[1] != 5 {
		t.Fatalf("announcements = %v", got)
	}
}
