package tui

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/csheth/folio/internal/config"
	"github.com/csheth/folio/internal/pages"
	"github.com/csheth/folio/internal/render"
	"github.com/csheth/folio/internal/viewer"
)

type staticLoader struct {
	img image.Image
	err error
}

func (l staticLoader) Load(context.Context, string) (image.Image, error) {
	return l.img, l.err
}

type countingLoader struct {
	mu    sync.Mutex
	calls int
	img   image.Image
}

func (l *countingLoader) Load(context.Context, string) (image.Image, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.img, nil
}

func solidImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	return img
}

type memSource struct {
	refs      []pages.Ref
	audit     []string
	refreshed int
}

func (s *memSource) Name() string { return "mem" }

func (s *memSource) Pages(context.Context) ([]pages.Ref, error) { return s.refs, nil }

func (s *memSource) AuditEvents(context.Context) ([]string, error) { return s.audit, nil }

func (s *memSource) Refresh() { s.refreshed++ }

func testRefs(n int) []pages.Ref {
	out := make([]pages.Ref, n)
	for i := range out {
		out[i] = pages.Ref{ID: string(rune('a' + i)), URL: "mem://page"}
	}
	return out
}

func newTestModel(t *testing.T) *model {
	t.Helper()
	teaModel, ok := New(Config{
		Source:      &memSource{refs: testRefs(3), audit: []string{"recorded"}},
		PageLoader:  staticLoader{img: solidImage(4, 6)},
		ThumbLoader: staticLoader{img: solidImage(4, 6)},
		Viewer:      config.Defaults().Viewer,
	}).(*model)
	if !ok {
		t.Fatalf("expected *model, got %T", teaModel)
	}
	return teaModel
}

func TestSourceRunnerResolvesAndRefreshes(t *testing.T) {
	src := &memSource{refs: testRefs(2), audit: []string{"signed"}}
	msg, err := sourceRunner(src, 4, true)(context.Background())
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	res, ok := msg.(sourceResultMsg)
	if !ok {
		t.Fatalf("payload = %T", msg)
	}
	if res.seq != 4 || res.resolved.Set.Len() != 2 || len(res.resolved.Audit) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if src.refreshed != 1 {
		t.Fatalf("refresh calls = %d", src.refreshed)
	}
	if _, err := sourceRunner(src, 5, false)(context.Background()); err != nil || src.refreshed != 1 {
		t.Fatalf("initial load should not refresh (err=%v, calls=%d)", err, src.refreshed)
	}
}

func TestRenderRunnerDrawsCellRows(t *testing.T) {
	set := pages.NewSet(testRefs(1))
	h, _ := set.Handle(1)
	d, _ := set.Descriptor(h)
	req := viewer.RenderRequest{Handle: h, Page: d, Width: 10, Layout: 1}

	msg, err := renderRunner(render.NewRenderer(staticLoader{img: solidImage(4, 6)}), req)(context.Background())
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	out := msg.(pageRenderedMsg)
	// 10 wide keeps the 2:3 aspect at 15 pixels, i.e. 8 half-block rows
	if out.rows != 8 || len(out.lines) != 8 {
		t.Fatalf("rows = %d, lines = %d", out.rows, len(out.lines))
	}
	if out.req != req {
		t.Fatal("result must carry its request")
	}
}

func TestRenderRunnerReportsLoadError(t *testing.T) {
	set := pages.NewSet(testRefs(1))
	h, _ := set.Handle(1)
	d, _ := set.Descriptor(h)
	boom := errors.New("404")
	msg, err := renderRunner(render.NewRenderer(staticLoader{err: boom}), viewer.RenderRequest{Handle: h, Page: d, Width: 10})(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	var loadErr *render.LoadError
	if !errors.As(msg.(pageRenderedMsg).err, &loadErr) || loadErr.Page != 1 {
		t.Fatalf("payload err = %v", msg.(pageRenderedMsg).err)
	}
}
