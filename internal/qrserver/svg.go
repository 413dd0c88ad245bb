package qrserver

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/yeqown/go-qrcode/v2"
)

func rgb(c color.RGBA) string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// renderSVG emits one vector element per dark module.
func renderSVG(qrc *qrcode.QRCode, o Options) ([]byte, error) {
	mat, err := moduleMatrix(qrc)
	if err != nil {
		return nil, err
	}
	dimension := len(mat)
	if dimension == 0 {
		return nil, fmt.Errorf("invalid QR matrix dimension")
	}

	edge, offX, offY := o.square()
	module := float64(edge) / float64(dimension+2*o.QuietZone)
	originX := float64(offX) + module*float64(o.QuietZone)
	originY := float64(offY) + module*float64(o.QuietZone)

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`,
		o.Width, o.Height, o.Width, o.Height)
	fmt.Fprintf(&sb, `<rect width="%d" height="%d" fill="%s"/>`, o.Width, o.Height, rgb(o.BG))

	fill := rgb(o.FG)
	for y, row := range mat {
		for x, dark := range row {
			if !dark {
				continue
			}
			mx := originX + float64(x)*module
			my := originY + float64(y)*module
			if o.RoundDots && !inFinder(x, y, dimension) {
				r := module / 2
				fmt.Fprintf(&sb, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s"/>`, mx+r, my+r, r, fill)
				continue
			}
			fmt.Fprintf(&sb, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s"/>`,
				mx, my, module, module, fill)
		}
	}
	sb.WriteString(`</svg>`)
	return []byte(sb.String()), nil
}

// inFinder reports whether module (x, y) belongs to one of the three 7×7
// finder patterns.
func inFinder(x, y, dimension int) bool {
	near := func(v int) bool { return v < 7 }
	far := func(v int) bool { return v >= dimension-7 }
	return (near(x) && near(y)) || (far(x) && near(y)) || (near(x) && far(y))
}
