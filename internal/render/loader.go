package render

import (
	"container/list"
	"context"
	"fmt"
	"image"
	"io"
	"sync"

	// decoders for image.Decode
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/sync/singleflight"
)

// Loader turns a page URL into a decoded bitmap.
type Loader interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

// Opener is satisfied by *pages.Fetcher.
type Opener interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// DecodeLoader opens a URL and decodes it with the registered decoders.
type DecodeLoader struct {
	Opener Opener
}

func (d DecodeLoader) Load(ctx context.Context, url string) (image.Image, error) {
	rc, err := d.Opener.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	img, _, err := image.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("decode bitmap: %w", err)
	}
	return img, nil
}

// MemoLoader keeps the most recently used decoded bitmaps so a resize pass
// rescales without refetching. Concurrent loads of one URL share a call.
type MemoLoader struct {
	base Loader
	max  int

	mu      sync.Mutex
	order   *list.List
	entries map[string]*list.Element
	group   singleflight.Group
}

type memoEntry struct {
	url string
	img image.Image
}

// NewMemoLoader wraps base, keeping at most max bitmaps (at least one).
func NewMemoLoader(base Loader, max int) *MemoLoader {
	if max < 1 {
		max = 1
	}
	return &MemoLoader{base: base, max: max, order: list.New(), entries: map[string]*list.Element{}}
}

func (m *MemoLoader) Load(ctx context.Context, url string) (image.Image, error) {
	if img, ok := m.get(url); ok {
		return img, nil
	}
	v, err, _ := m.group.Do(url, func() (any, error) {
		img, err := m.base.Load(ctx, url)
		if err != nil {
			return nil, err
		}
		m.put(url, img)
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(image.Image), nil
}

// Len reports how many bitmaps are held.
func (m *MemoLoader) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// Forget drops every held bitmap, e.g. after the page source is refreshed.
func (m *MemoLoader) Forget() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order.Init()
	m.entries = map[string]*list.Element{}
}

func (m *MemoLoader) get(url string) (image.Image, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.entries[url]
	if !ok {
		return nil, false
	}
	m.order.MoveToFront(el)
	return el.Value.(*memoEntry).img, true
}

func (m *MemoLoader) put(url string, img image.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.entries[url]; ok {
		el.Value.(*memoEntry).img = img
		m.order.MoveToFront(el)
		return
	}
	m.entries[url] = m.order.PushFront(&memoEntry{url: url, img: img})
	for m.order.Len() > m.max {
		last := m.order.Back()
		m.order.Remove(last)
		delete(m.entries, last.Value.(*memoEntry).url)
	}
}
