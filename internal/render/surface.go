package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ImageSurface is an in-memory RGBA surface.
type ImageSurface struct {
	img *image.RGBA
}

func NewImageSurface() *ImageSurface {
	return &ImageSurface{img: image.NewRGBA(image.Rect(0, 0, 0, 0))}
}

func (s *ImageSurface) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	s.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

func (s *ImageSurface) Clear() {
	draw.Draw(s.img, s.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

func (s *ImageSurface) Canvas() draw.Image { return s.img }

func (s *ImageSurface) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

// Image returns the backing bitmap.
func (s *ImageSurface) Image() *image.RGBA { return s.img }

const upperHalf = "▀"

// CellSurface draws into terminal cells: one column per pixel and two pixel
// rows per text row, using the upper half block with the top pixel as the
// foreground and the bottom pixel as the background.
type CellSurface struct {
	ImageSurface
}

func NewCellSurface() *CellSurface {
	return &CellSurface{ImageSurface: *NewImageSurface()}
}

// Rows returns the number of text rows the surface occupies.
func (s *CellSurface) Rows() int {
	_, h := s.Size()
	return (h + 1) / 2
}

// Lines renders the surface as styled text rows.
func (s *CellSurface) Lines() []string {
	w, h := s.Size()
	rows := (h + 1) / 2
	out := make([]string, 0, rows)
	for row := 0; row < rows; row++ {
		var b strings.Builder
		var run strings.Builder
		var runFg, runBg string
		flush := func() {
			if run.Len() == 0 {
				return
			}
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(runFg)).Background(lipgloss.Color(runBg))
			b.WriteString(style.Render(run.String()))
			run.Reset()
		}
		for x := 0; x < w; x++ {
			fg := hexColor(s.img.At(x, row*2))
			bg := fg
			if row*2+1 < h {
				bg = hexColor(s.img.At(x, row*2+1))
			}
			if fg != runFg || bg != runBg {
				flush()
				runFg, runBg = fg, bg
			}
			run.WriteString(upperHalf)
		}
		flush()
		out = append(out, b.String())
	}
	return out
}

func hexColor(c color.Color) string {
	// premultiplied, so adding the missing alpha composites onto white paper
	r, g, b, a := c.RGBA()
	if a < 0xffff {
		inv := 0xffff - a
		r += inv
		g += inv
		b += inv
	}
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}
