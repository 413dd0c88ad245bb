package qrserver

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
	xdraw "golang.org/x/image/draw"
)

// bufferCloser lets the standard writer target an in-memory buffer.
type bufferCloser struct {
	bytes.Buffer
}

func (*bufferCloser) Close() error { return nil }

func eccOption(level string) qrcode.EncodeOption {
	switch level {
	case "L":
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionLow)
	case "Q":
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionQuart)
	case "H":
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionHighest)
	default:
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionMedium)
	}
}

// Render produces the encoded image described by o.
func Render(o Options) ([]byte, error) {
	qrc, err := qrcode.NewWith(o.Data, eccOption(o.ECC))
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	if o.Format == FormatSVG {
		return renderSVG(qrc, o)
	}

	img, err := rasterize(qrc, o)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if o.Format == FormatJPG {
		err = jpeg.Encode(&out, img, &jpeg.Options{Quality: 92})
	} else {
		err = png.Encode(&out, img)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", o.Format, err)
	}
	return out.Bytes(), nil
}

// square returns the edge of the QR area and its offset inside a W×H canvas.
func (o Options) square() (edge, offX, offY int) {
	edge = min(o.Width, o.Height) - 2*o.Margin
	if edge < 1 {
		edge = 1
	}
	return edge, (o.Width - edge) / 2, (o.Height - edge) / 2
}

// moduleWidth picks the largest module size the writer accepts that keeps the
// symbol plus quiet zone within edge pixels.
func moduleWidth(edge, modules int) uint8 {
	w := edge / modules
	if w < 1 {
		w = 1
	}
	if w > 255 {
		w = 255
	}
	return uint8(w)
}

func rasterize(qrc *qrcode.QRCode, o Options) (image.Image, error) {
	edge, offX, offY := o.square()
	total := qrc.Dimension() + 2*o.QuietZone
	mw := moduleWidth(edge, total)

	writerOptions := []standard.ImageOption{
		standard.WithQRWidth(mw),
		standard.WithBorderWidth(o.QuietZone * int(mw)),
		standard.WithBgColor(o.BG),
		standard.WithFgColor(o.FG),
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
	}
	if o.RoundDots || o.RoundCorners {
		writerOptions = append(writerOptions, standard.WithCustomShape(&moduleShape{
			roundDots:    o.RoundDots,
			roundCorners: o.RoundCorners,
		}))
	}

	buf := &bufferCloser{}
	writer := standard.NewWithWriter(buf, writerOptions...)
	if err := qrc.Save(writer); err != nil {
		return nil, fmt.Errorf("failed to generate QR code image: %w", err)
	}
	symbol, err := png.Decode(&buf.Buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to decode QR image: %w", err)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, o.Width, o.Height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: o.BG}, image.Point{}, draw.Src)
	target := image.Rect(offX, offY, offX+edge, offY+edge)
	xdraw.NearestNeighbor.Scale(canvas, target, symbol, symbol.Bounds(), xdraw.Src, nil)
	return canvas, nil
}

// moduleMatrix extracts the dark/light module grid by rendering one pixel per
// module without a border.
func moduleMatrix(qrc *qrcode.QRCode) ([][]bool, error) {
	buf := &bufferCloser{}
	writer := standard.NewWithWriter(buf,
		standard.WithQRWidth(1),
		standard.WithBorderWidth(0),
		standard.WithBgColor(color.RGBA{255, 255, 255, 255}),
		standard.WithFgColor(color.RGBA{0, 0, 0, 255}),
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
	)
	if err := qrc.Save(writer); err != nil {
		return nil, fmt.Errorf("failed to generate QR for matrix extraction: %w", err)
	}
	img, err := png.Decode(&buf.Buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to decode matrix image: %w", err)
	}

	b := img.Bounds()
	mat := make([][]bool, b.Dy())
	for y := range mat {
		mat[y] = make([]bool, b.Dx())
		for x := range mat[y] {
			r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			mat[y][x] = r < 0x8000
		}
	}
	return mat, nil
}
