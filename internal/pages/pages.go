// Package pages holds the page list a viewer session works on: the Page
// Source collaborators that supply it and the arena of opaque handles the
// rest of the viewer uses to refer to individual pages.
package pages

import (
	"errors"
	"sync/atomic"
)

// ErrNoPages is returned by sources that resolved but found nothing to show.
var ErrNoPages = errors.New("pages: source has no pages")

// Ref is one entry of a Page Source listing.
type Ref struct {
	ID  string `json:"id" yaml:"id"`
	URL string `json:"url" yaml:"url"`
}

// Descriptor is an immutable page entry. Index is 1-based.
type Descriptor struct {
	Index     int
	ID        string
	SourceURL string
}

// Handle identifies one page of one Set. Handles from a replaced Set are
// stale and never resolve again.
type Handle struct {
	gen uint64
	pos int
}

// Index returns the 1-based page number, or 0 for the zero Handle.
func (h Handle) Index() int {
	if h.gen == 0 {
		return 0
	}
	return h.pos + 1
}

// IsZero reports whether h was never issued by a Set.
func (h Handle) IsZero() bool { return h.gen == 0 }

var generations atomic.Uint64

// Set is the arena created when a Page Source resolves. It is never mutated;
// a refresh builds a new Set with a new generation.
type Set struct {
	gen   uint64
	descs []Descriptor
}

// NewSet allocates a fresh generation and one descriptor per ref.
func NewSet(refs []Ref) *Set {
	s := &Set{gen: generations.Add(1), descs: make([]Descriptor, len(refs))}
	for i, r := range refs {
		s.descs[i] = Descriptor{Index: i + 1, ID: r.ID, SourceURL: r.URL}
	}
	return s
}

// Len returns the page count.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.descs)
}

// Gen returns the arena generation.
func (s *Set) Gen() uint64 {
	if s == nil {
		return 0
	}
	return s.gen
}

// Handle returns the handle of the 1-based page index.
func (s *Set) Handle(index int) (Handle, bool) {
	if s == nil || index < 1 || index > len(s.descs) {
		return Handle{}, false
	}
	return Handle{gen: s.gen, pos: index - 1}, true
}

// Handles returns every handle in page order.
func (s *Set) Handles() []Handle {
	out := make([]Handle, s.Len())
	for i := range out {
		out[i], _ = s.Handle(i + 1)
	}
	return out
}

// Owns reports whether h was issued by this Set.
func (s *Set) Owns(h Handle) bool {
	return s != nil && h.gen == s.gen && h.pos >= 0 && h.pos < len(s.descs)
}

// Descriptor resolves h. It fails for stale or foreign handles.
func (s *Set) Descriptor(h Handle) (Descriptor, bool) {
	if !s.Owns(h) {
		return Descriptor{}, false
	}
	return s.descs[h.pos], true
}
