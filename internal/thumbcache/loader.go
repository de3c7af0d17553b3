package thumbcache

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"log/slog"

	xdraw "golang.org/x/image/draw"

	"github.com/csheth/folio/internal/render"

	applog "github.com/csheth/folio/internal/log"
)

// Versioner names the current revision of a page bitmap. *pages.Fetcher
// implements it.
type Versioner interface {
	Version(ctx context.Context, url string) (string, error)
}

// Loader serves thumbnails Width pixels wide. Misses load through Base,
// are downscaled and stored. Cache failures fall back to Base.
//
// With Versions set, entries are keyed by URL and revision, so a page
// whose bitmap changed is downscaled again.
type Loader struct {
	Base     render.Loader
	Cache    *Cache
	Width    int
	Versions Versioner
}

func (l Loader) Load(ctx context.Context, url string) (image.Image, error) {
	log := applog.WithComponent("thumbcache")
	key := url
	if l.Cache != nil && l.Versions != nil {
		if v, err := l.Versions.Version(ctx, url); err != nil {
			log.Debug("thumbnail revision unknown", slog.String("url", url), slog.Any("err", err))
		} else if v != "" {
			key = url + "#" + v
		}
	}
	if l.Cache != nil {
		blob, err := l.Cache.Get(ctx, key, l.Width)
		switch {
		case err == nil:
			img, derr := png.Decode(bytes.NewReader(blob))
			if derr == nil {
				return img, nil
			}
			log.Warn("cached thumbnail unreadable", slog.String("url", url), slog.Any("err", derr))
		case !errors.Is(err, ErrMiss):
			log.Warn("thumbnail lookup failed", slog.String("url", url), slog.Any("err", err))
		}
	}

	src, err := l.Base.Load(ctx, url)
	if err != nil {
		return nil, err
	}
	thumb, err := Downscale(src, l.Width)
	if err != nil {
		return nil, err
	}
	if l.Cache != nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, thumb); err != nil {
			log.Warn("encode thumbnail failed", slog.String("url", url), slog.Any("err", err))
		} else if err := l.Cache.Put(ctx, key, l.Width, buf.Bytes()); err != nil {
			log.Warn("store thumbnail failed", slog.String("url", url), slog.Any("err", err))
		}
	}
	return thumb, nil
}

// Downscale scales src to width with its aspect ratio preserved. Bitmaps
// already at or below width are returned unchanged.
func Downscale(src image.Image, width int) (image.Image, error) {
	b := src.Bounds()
	if b.Dx() <= width {
		if b.Dx() <= 0 || b.Dy() <= 0 {
			return nil, render.ErrEmptyBitmap
		}
		return src, nil
	}
	height, err := render.ComputeHeight(width, b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst, nil
}
