package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/folio/internal/pages"
	"github.com/csheth/folio/internal/render"
	"github.com/csheth/folio/internal/viewer"
)

// refresher is implemented by sources that cache their listing.
type refresher interface {
	Refresh()
}

func sourceRunner(src pages.Source, seq int, refresh bool) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		if r, ok := src.(refresher); ok && refresh {
			r.Refresh()
		}
		resolved, err := pages.Resolve(ctx, src)
		return sourceResultMsg{seq: seq, resolved: resolved, err: err}, err
	}
}

func renderRunner(r *render.Renderer, req viewer.RenderRequest) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		surface := render.NewCellSurface()
		if _, err := r.Render(ctx, surface, req.Page, req.Width); err != nil {
			return pageRenderedMsg{req: req, err: err}, err
		}
		return pageRenderedMsg{req: req, lines: surface.Lines(), rows: surface.Rows()}, nil
	}
}

func (m *model) loadSourceCmd() tea.Cmd {
	if m.config.Source == nil {
		return nil
	}
	m.sourceSeq++
	m.loading = true
	run := sourceRunner(m.config.Source, m.sourceSeq, m.loaded)
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindSource, run))
}

func (m *model) renderCmd(req viewer.RenderRequest) tea.Cmd {
	r, kind := m.pageRenderer, jobKindPage
	if req.Thumb {
		r, kind = m.thumbRenderer, jobKindThumb
	}
	if r == nil {
		return nil
	}
	return m.jobs.Start(kind, renderRunner(r, req))
}
