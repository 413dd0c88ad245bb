package qrserver

import (
	"github.com/yeqown/go-qrcode/writer/standard"
)

// moduleShape draws data modules as squares or circles and finder modules as
// squares or rounded squares.
type moduleShape struct {
	roundDots    bool
	roundCorners bool
}

// Draw implements standard.IShape.
func (s *moduleShape) Draw(ctx *standard.DrawContext) {
	if s.roundDots {
		drawCircle(ctx)
		return
	}
	drawSquare(ctx)
}

// DrawFinder implements standard.IShape.
func (s *moduleShape) DrawFinder(ctx *standard.DrawContext) {
	if s.roundCorners {
		drawRounded(ctx)
		return
	}
	drawSquare(ctx)
}

// drawRounded fills the module with quadratic corners of a third of its edge.
func drawRounded(ctx *standard.DrawContext) {
	x, y := ctx.UpperLeft()
	w, h := ctx.Edge()
	fw, fh := float64(w), float64(h)
	r := min(fw, fh) / 3

	ctx.MoveTo(x+r, y)
	ctx.LineTo(x+fw-r, y)
	ctx.QuadraticTo(x+fw, y, x+fw, y+r)
	ctx.LineTo(x+fw, y+fh-r)
	ctx.QuadraticTo(x+fw, y+fh, x+fw-r, y+fh)
	ctx.LineTo(x+r, y+fh)
	ctx.QuadraticTo(x, y+fh, x, y+fh-r)
	ctx.LineTo(x, y+r)
	ctx.QuadraticTo(x, y, x+r, y)
	ctx.ClosePath()
	ctx.SetColor(ctx.Color())
	ctx.Fill()
}

func drawSquare(ctx *standard.DrawContext) {
	x, y := ctx.UpperLeft()
	w, h := ctx.Edge()
	ctx.DrawRectangle(x, y, float64(w), float64(h))
	ctx.SetColor(ctx.Color())
	ctx.Fill()
}

func drawCircle(ctx *standard.DrawContext) {
	x, y := ctx.UpperLeft()
	w, h := ctx.Edge()
	r := float64(min(w, h)) / 2
	ctx.DrawCircle(x+float64(w)/2, y+float64(h)/2, r)
	ctx.SetColor(ctx.Color())
	ctx.Fill()
}
