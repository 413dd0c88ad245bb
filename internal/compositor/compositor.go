// Package compositor assembles the downloadable QR image: a background, an
// optional frame and the raster returned by the QR image service.
package compositor

import (
	"image"
	"image/color"
	"io"
	"log/slog"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/PRASANNAPATIL12/weddingcard/internal/style"
)

// Size is the edge length of every composited surface.
const Size = 400

// Surface is an off-screen raster owned by exactly one generation cycle.
type Surface struct {
	dc *gg.Context
}

// NewSurface returns a blank Size×Size surface.
func NewSurface() *Surface {
	return &Surface{dc: gg.NewContext(Size, Size)}
}

// Resize replaces the raster with a cleared w×h one, like assigning a canvas
// width in a browser.
func (s *Surface) Resize(w, h int) {
	s.dc = gg.NewContext(w, h)
}

// Bounds returns the raster bounds.
func (s *Surface) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.dc.Width(), s.dc.Height())
}

// Image returns the backing raster. Callers must not draw into it.
func (s *Surface) Image() image.Image { return s.dc.Image() }

// EncodePNG writes the surface as PNG.
func (s *Surface) EncodePNG(w io.Writer) error { return s.dc.EncodePNG(w) }

// Rect is an axis-aligned rectangle in surface units.
type Rect struct {
	X, Y, W, H float64
}

func inset(n float64) Rect {
	return Rect{X: n, Y: n, W: Size - 2*n, H: Size - 2*n}
}

// Stroke is one outlined rectangle of a frame.
type Stroke struct {
	Rect  Rect
	Width float64
	Color style.Color
}

// Layout is the drawing plan for a selection.
type Layout struct {
	Background style.Color
	// GradientTo is set when the background is a diagonal gradient from
	// Background to GradientTo.
	GradientTo style.Color
	Strokes    []Stroke
	Image      image.Rectangle
}

// Plan computes the geometry and colors used to render sel.
func Plan(sel style.Selection) Layout {
	if sel.Shape == style.ShapeClassy {
		return Layout{
			Background: sel.Background,
			GradientTo: style.AdjustBrightness(sel.Background, -10),
			Strokes: []Stroke{
				{Rect: inset(20), Width: 8, Color: style.AdjustBrightness(sel.Foreground, 20)},
				{Rect: inset(30), Width: 2, Color: sel.Foreground},
			},
			Image: image.Rect(40, 40, 40+320, 40+320),
		}
	}
	return Layout{
		Background: sel.Background,
		Image:      image.Rect(50, 50, 50+300, 50+300),
	}
}

// Compositor draws layouts onto surfaces.
type Compositor struct {
	logger *slog.Logger
}

// New returns a Compositor logging to logger, or slog.Default when nil.
func New(logger *slog.Logger) *Compositor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compositor{logger: logger}
}

// Render paints sel and src onto s. A nil src means the image never loaded:
// the failure is logged and s keeps only its background.
func (c *Compositor) Render(s *Surface, src image.Image, sel style.Selection) {
	s.Resize(Size, Size)
	layout := Plan(sel)
	dc := s.dc

	bg := layout.Background.RGBAOr(color.RGBA{255, 255, 255, 255})
	if layout.GradientTo != "" {
		grad := gg.NewLinearGradient(0, 0, Size, Size)
		grad.AddColorStop(0, bg)
		grad.AddColorStop(1, layout.GradientTo.RGBAOr(bg))
		dc.SetFillStyle(grad)
	} else {
		dc.SetColor(bg)
	}
	dc.DrawRectangle(0, 0, Size, Size)
	dc.Fill()

	for _, st := range layout.Strokes {
		dc.SetColor(st.Color.RGBAOr(color.RGBA{0, 0, 0, 255}))
		dc.SetLineWidth(st.Width)
		dc.DrawRectangle(st.Rect.X, st.Rect.Y, st.Rect.W, st.Rect.H)
		dc.Stroke()
	}

	if src == nil {
		c.logger.Warn("compositor: source image missing, surface left without QR",
			"shape", sel.Shape)
		return
	}
	dst := layout.Image
	scaled := image.NewRGBA(image.Rect(0, 0, dst.Dx(), dst.Dy()))
	xdraw.BiLinear.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	dc.DrawImage(scaled, dst.Min.X, dst.Min.Y)
}
