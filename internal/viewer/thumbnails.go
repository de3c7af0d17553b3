package viewer

// ThumbPanel is the thumbnail rail's own geometry and scroll position. The
// highlighted entry is always the current page; the panel keeps no
// selection of its own.
type ThumbPanel struct {
	heights   []int
	offset    int
	viewport  int
	collapsed bool
}

// Reset lays out count entries of entryHeight rows and scrolls to the top.
func (p *ThumbPanel) Reset(count, entryHeight int) {
	p.heights = make([]int, count)
	for i := range p.heights {
		p.heights[i] = max(entryHeight, 1)
	}
	p.offset = 0
}

// SetEntryHeight updates the 1-based entry's height.
func (p *ThumbPanel) SetEntryHeight(index, height int) {
	if index < 1 || index > len(p.heights) {
		return
	}
	p.heights[index-1] = max(height, 1)
	p.offset = clamp(p.offset, 0, p.maxOffset())
}

// SetViewport sets the visible rows of the rail.
func (p *ThumbPanel) SetViewport(rows int) {
	p.viewport = max(rows, 0)
	p.offset = clamp(p.offset, 0, p.maxOffset())
}

func (p *ThumbPanel) Viewport() int { return p.viewport }

func (p *ThumbPanel) Offset() int { return p.offset }

func (p *ThumbPanel) Collapsed() bool { return p.collapsed }

func (p *ThumbPanel) Len() int { return len(p.heights) }

// EntryTop returns the rail offset of the 1-based entry.
func (p *ThumbPanel) EntryTop(index int) int {
	y := 0
	for i := 0; i < index-1 && i < len(p.heights); i++ {
		y += p.heights[i]
	}
	return y
}

// EntryHeight returns the 1-based entry's height, or 0 when out of range.
func (p *ThumbPanel) EntryHeight(index int) int {
	if index < 1 || index > len(p.heights) {
		return 0
	}
	return p.heights[index-1]
}

// SyncSelection scrolls the rail by the smallest amount that brings the
// entry for current fully into view. It reports whether the offset moved.
func (p *ThumbPanel) SyncSelection(current int) bool {
	if p.collapsed || current < 1 || current > len(p.heights) || p.viewport == 0 {
		return false
	}
	top := p.EntryTop(current)
	bottom := top + p.heights[current-1]
	next := p.offset
	switch {
	case top < p.offset:
		next = top
	case bottom > p.offset+p.viewport:
		next = bottom - p.viewport
		// an entry taller than the rail aligns to its top
		if next > top {
			next = top
		}
	}
	next = clamp(next, 0, p.maxOffset())
	if next == p.offset {
		return false
	}
	p.offset = next
	return true
}

// Scroll moves the rail by delta rows without touching the page list.
func (p *ThumbPanel) Scroll(delta int) {
	if p.collapsed {
		return
	}
	p.offset = clamp(p.offset+delta, 0, p.maxOffset())
}

// EntryAt maps a row inside the rail viewport to a 1-based entry.
func (p *ThumbPanel) EntryAt(row int) (int, bool) {
	if p.collapsed || row < 0 || row >= p.viewport {
		return 0, false
	}
	y := p.offset + row
	top := 0
	for i, h := range p.heights {
		if y < top+h {
			return i + 1, true
		}
		top += h
	}
	return 0, false
}

// SetCollapsed toggles the rail. Expanding returns true: every thumbnail
// must be drawn again because its dimensions may be stale.
func (p *ThumbPanel) SetCollapsed(v bool) bool {
	if p.collapsed == v {
		return false
	}
	p.collapsed = v
	return !v
}

func (p *ThumbPanel) maxOffset() int {
	total := 0
	for _, h := range p.heights {
		total += h
	}
	return max(total-p.viewport, 0)
}
