// Package qrserver serves the two QR image contracts the request builder
// targets, so the service can run without the public API. Symbol encoding is
// done by github.com/yeqown/go-qrcode; this package maps query parameters onto
// writer options and scales the result to the requested size.
package qrserver

import (
	"errors"
	"fmt"
	"image/color"
	"net/url"
	"strconv"
	"strings"
)

// ErrBadRequest wraps every parameter validation error.
var ErrBadRequest = errors.New("bad request")

// Size limits match the public qrserver API.
const (
	MinSize      = 10
	MaxSize      = 1000
	MaxMargin    = 50
	MaxQuietZone = 100
	MaxDataBytes = 900
)

// Format is an output encoding.
type Format string

const (
	FormatPNG Format = "png"
	FormatJPG Format = "jpg"
	FormatSVG Format = "svg"
)

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatJPG:
		return "image/jpeg"
	case FormatSVG:
		return "image/svg+xml"
	default:
		return "image/png"
	}
}

// Options fully describes one image.
type Options struct {
	Data          string
	Width, Height int
	FG, BG        color.RGBA
	ECC           string
	Margin        int
	QuietZone     int
	RoundDots     bool
	RoundCorners  bool
	Format        Format
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// ParseCreateQuery reads the create-qr-code contract:
// size=WxH, data, color, bgcolor, format, ecc, margin, qzone.
func ParseCreateQuery(q url.Values) (Options, error) {
	o := Options{ECC: "L", Margin: 1, Format: FormatPNG}
	var err error

	if o.Data, err = parseData(q.Get("data")); err != nil {
		return o, err
	}
	if o.Width, o.Height, err = parseSize(q.Get("size"), 200); err != nil {
		return o, err
	}
	o.FG = parseColorParam(q.Get("color"), color.RGBA{0, 0, 0, 255})
	o.BG = parseColorParam(q.Get("bgcolor"), color.RGBA{255, 255, 255, 255})
	if o.Format, err = parseFormat(q.Get("format")); err != nil {
		return o, err
	}
	if v := q.Get("ecc"); v != "" {
		switch v = strings.ToUpper(v); v {
		case "L", "M", "Q", "H":
			o.ECC = v
		default:
			return o, badRequest("ecc must be one of L, M, Q, H")
		}
	}
	if o.Margin, err = parseBounded(q.Get("margin"), "margin", o.Margin, 0, MaxMargin); err != nil {
		return o, err
	}
	if o.QuietZone, err = parseBounded(q.Get("qzone"), "qzone", 0, 0, MaxQuietZone); err != nil {
		return o, err
	}
	return o, nil
}

// ParseStyledQuery reads the styled-qr-code contract:
// data, size=N, format, color, backgroundColor, dotType, cornerType.
func ParseStyledQuery(q url.Values) (Options, error) {
	o := Options{ECC: "M", Format: FormatPNG}
	var err error

	if o.Data, err = parseData(q.Get("data")); err != nil {
		return o, err
	}
	if o.Width, o.Height, err = parseSize(q.Get("size"), 300); err != nil {
		return o, err
	}
	o.FG = parseColorParam(q.Get("color"), color.RGBA{0, 0, 0, 255})
	o.BG = parseColorParam(q.Get("backgroundColor"), color.RGBA{255, 255, 255, 255})
	if o.Format, err = parseFormat(q.Get("format")); err != nil {
		return o, err
	}
	switch q.Get("dotType") {
	case "", "square":
	case "rounded", "dots":
		o.RoundDots = true
	default:
		return o, badRequest("dotType must be square or rounded")
	}
	switch q.Get("cornerType") {
	case "", "square":
	case "rounded", "extra-rounded":
		o.RoundCorners = true
	default:
		return o, badRequest("cornerType must be square or rounded")
	}
	return o, nil
}

func parseData(v string) (string, error) {
	if v == "" {
		return "", badRequest("data parameter is required")
	}
	if len(v) > MaxDataBytes {
		return "", badRequest("data is longer than %d bytes", MaxDataBytes)
	}
	return v, nil
}

// parseSize accepts "N" or "WxH".
func parseSize(v string, def int) (int, int, error) {
	if v == "" {
		return def, def, nil
	}
	ws, hs, found := strings.Cut(strings.ToLower(v), "x")
	if !found {
		hs = ws
	}
	w, err1 := strconv.Atoi(ws)
	h, err2 := strconv.Atoi(hs)
	if err1 != nil || err2 != nil {
		return 0, 0, badRequest("invalid size %q", v)
	}
	if w < MinSize || h < MinSize || w > MaxSize || h > MaxSize {
		return 0, 0, badRequest("size must be between %d and %d", MinSize, MaxSize)
	}
	return w, h, nil
}

func parseFormat(v string) (Format, error) {
	switch strings.ToLower(v) {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPG, nil
	case "svg":
		return FormatSVG, nil
	}
	return "", badRequest("unsupported format %q", v)
}

func parseBounded(v, name string, def, lo, hi int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		return 0, badRequest("%s must be an integer between %d and %d", name, lo, hi)
	}
	return n, nil
}

// parseColorParam reads "RRGGBB", "#RRGGBB" or "R-G-B" and falls back to def.
func parseColorParam(param string, def color.RGBA) color.RGBA {
	param = strings.TrimPrefix(strings.TrimSpace(param), "#")
	if param == "" {
		return def
	}
	if parts := strings.Split(param, "-"); len(parts) == 3 {
		var rgb [3]uint8
		for i, p := range parts {
			n, err := strconv.ParseUint(p, 10, 8)
			if err != nil {
				return def
			}
			rgb[i] = uint8(n)
		}
		return color.RGBA{rgb[0], rgb[1], rgb[2], 255}
	}
	if len(param) != 6 {
		return def
	}
	r, err1 := strconv.ParseUint(param[0:2], 16, 8)
	g, err2 := strconv.ParseUint(param[2:4], 16, 8)
	b, err3 := strconv.ParseUint(param[4:6], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return def
	}
	return color.RGBA{uint8(r), uint8(g), uint8(b), 255}
}
