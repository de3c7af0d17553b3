// Package render draws page bitmaps onto surfaces at a target width,
// preserving the bitmap's aspect ratio.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/csheth/folio/internal/pages"

	applog "github.com/csheth/folio/internal/log"
)

var (
	// ErrEmptyBitmap is returned for bitmaps with a zero dimension.
	ErrEmptyBitmap = errors.New("render: bitmap has no pixels")
	// ErrInvalidWidth is returned when the target width is not positive.
	ErrInvalidWidth = errors.New("render: target width must be positive")
)

// Frame records one render pass. It is recomputed on every pass and never
// outlives the layout generation it was produced for.
type Frame struct {
	PageIndex      int
	TargetWidth    int
	ComputedHeight int
}

// LoadError reports a page whose bitmap could not be fetched or decoded.
type LoadError struct {
	Page int
	URL  string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("page %d (%s): %v", e.Page, e.URL, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Surface is a drawable rectangle. Resize discards content.
type Surface interface {
	Resize(width, height int)
	Clear()
	Canvas() draw.Image
	Size() (width, height int)
}

// ComputeHeight scales bh by width/bw, rounded to the nearest unit.
func ComputeHeight(width, bw, bh int) (int, error) {
	if width <= 0 {
		return 0, ErrInvalidWidth
	}
	if bw <= 0 || bh <= 0 {
		return 0, ErrEmptyBitmap
	}
	return int(math.Round(float64(width) * float64(bh) / float64(bw))), nil
}

// Renderer loads bitmaps and draws them scaled onto surfaces.
type Renderer struct {
	Loader Loader
	// Scaler defaults to CatmullRom.
	Scaler xdraw.Scaler
}

// NewRenderer returns a Renderer using the high quality page scaler.
func NewRenderer(loader Loader) *Renderer {
	return &Renderer{Loader: loader, Scaler: xdraw.CatmullRom}
}

// Render loads page's bitmap, sizes surface to (width, computed height),
// clears it and draws the bitmap filling the whole rectangle. On failure the
// surface is left blank and a *LoadError is returned.
func (r *Renderer) Render(ctx context.Context, surface Surface, page pages.Descriptor, width int) (Frame, error) {
	if width <= 0 {
		return Frame{}, ErrInvalidWidth
	}
	l := applog.WithOperation(applog.WithComponent("render"), "render")

	img, err := r.Loader.Load(ctx, page.SourceURL)
	if err == nil && (img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0) {
		err = ErrEmptyBitmap
	}
	if err != nil {
		surface.Clear()
		lerr := &LoadError{Page: page.Index, URL: page.SourceURL, Err: err}
		l.Warn("page load failed", slog.Int("page", page.Index), slog.String("url", page.SourceURL), slog.Any("err", err))
		return Frame{PageIndex: page.Index, TargetWidth: width}, lerr
	}

	b := img.Bounds()
	height, err := ComputeHeight(width, b.Dx(), b.Dy())
	if err != nil {
		return Frame{}, err
	}
	surface.Resize(width, height)
	surface.Clear()
	scaler := r.Scaler
	if scaler == nil {
		scaler = xdraw.CatmullRom
	}
	if height > 0 {
		scaler.Scale(surface.Canvas(), image.Rect(0, 0, width, height), img, b, xdraw.Src, nil)
	}
	l.Debug("page drawn", slog.Int("page", page.Index), slog.Int("width", width), slog.Int("height", height))
	return Frame{PageIndex: page.Index, TargetWidth: width, ComputedHeight: height}, nil
}
