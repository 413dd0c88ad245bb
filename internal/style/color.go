// Package style holds the immutable selection a user makes for a QR code:
// shape, foreground and background colors.
package style

import (
	"fmt"
	"image/color"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Color is an RGB color written as "#RRGGBB".
type Color string

// Default colors of a fresh selection.
const (
	Black Color = "#000000"
	White Color = "#FFFFFF"
)

var hexPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ParseColor accepts exactly "#" followed by six hex digits, in any case.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if !hexPattern.MatchString(s) {
		return "", fmt.Errorf("invalid color %q: want #RRGGBB", s)
	}
	return Color(strings.ToUpper(s)), nil
}

// Valid reports whether c is a well-formed "#RRGGBB" value.
func (c Color) Valid() bool { return hexPattern.MatchString(string(c)) }

// Hex returns c without its leading marker. The value is not validated.
func (c Color) Hex() string { return strings.TrimPrefix(string(c), "#") }

// Equal compares two colors ignoring hex digit case.
func (c Color) Equal(o Color) bool { return strings.EqualFold(string(c), string(o)) }

func (c Color) String() string { return string(c) }

// RGBA converts c to an opaque color.RGBA.
func (c Color) RGBA() (color.RGBA, error) {
	hex := c.Hex()
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", string(c))
	}
	r, err1 := strconv.ParseUint(hex[0:2], 16, 8)
	g, err2 := strconv.ParseUint(hex[2:4], 16, 8)
	b, err3 := strconv.ParseUint(hex[4:6], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q", string(c))
	}
	return color.RGBA{uint8(r), uint8(g), uint8(b), 255}, nil
}

// RGBAOr is RGBA with a fallback for malformed values.
func (c Color) RGBAOr(fallback color.RGBA) color.RGBA {
	rgba, err := c.RGBA()
	if err != nil {
		return fallback
	}
	return rgba
}

// FromRGBA formats an 8-bit color as "#RRGGBB".
func FromRGBA(rgba color.RGBA) Color {
	return Color(fmt.Sprintf("#%02X%02X%02X", rgba.R, rgba.G, rgba.B))
}

// AdjustBrightness shifts every channel by round(2.55*percent) and clamps
// to [0,255]. This is a linear shift in sRGB, not a perceptual lightness change.
// Malformed input is returned unchanged.
func AdjustBrightness(c Color, percent float64) Color {
	rgba, err := c.RGBA()
	if err != nil {
		return c
	}
	// Halves round toward +Inf so -25.5 becomes -25.
	amt := int(math.Floor(2.55*percent + 0.5))
	return FromRGBA(color.RGBA{
		R: clampChannel(int(rgba.R) + amt),
		G: clampChannel(int(rgba.G) + amt),
		B: clampChannel(int(rgba.B) + amt),
		A: 255,
	})
}

func clampChannel(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Presets is the swatch palette offered next to the free-form color input.
var Presets = []Color{
	"#FF0000", "#FF8000", "#FFFF00", "#00FF00",
	"#00FFFF", "#0000FF", "#8000FF", "#000000",
	"#FFFFFF", "#808080", "#800000", "#008000",
	"#000080", "#800080", "#FFC0CB", "#FFA500",
}
