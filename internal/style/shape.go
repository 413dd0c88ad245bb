package style

import (
	"fmt"
	"strings"
)

// ShapeID names a visual treatment of the QR code.
type ShapeID string

const (
	ShapeSquare       ShapeID = "square"
	ShapeRounded      ShapeID = "rounded"
	ShapeDots         ShapeID = "dots"
	ShapeRoundedDots  ShapeID = "rounded-dots"
	ShapeExtraRounded ShapeID = "extra-rounded"
	ShapeClassy       ShapeID = "classy"
)

// Shape describes a shape option as offered to the user.
type Shape struct {
	ID          ShapeID `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
}

// Shapes lists every supported shape in display order.
var Shapes = []Shape{
	{ShapeSquare, "Classic Square", "Traditional sharp edges"},
	{ShapeRounded, "Rounded Corners", "Soft rounded edges"},
	{ShapeDots, "Circular Dots", "Perfect circles"},
	{ShapeRoundedDots, "Rounded Dots", "Smooth circular dots"},
	{ShapeExtraRounded, "Extra Rounded", "Maximum roundness"},
	{ShapeClassy, "Classy Border", "Elegant with border"},
}

// ParseShape maps a shape id to a ShapeID.
func ParseShape(s string) (ShapeID, error) {
	id := ShapeID(strings.ToLower(strings.TrimSpace(s)))
	if id.Valid() {
		return id, nil
	}
	return "", fmt.Errorf("unknown shape %q", s)
}

// Valid reports whether id is one of the supported shapes.
func (id ShapeID) Valid() bool {
	for _, s := range Shapes {
		if s.ID == id {
			return true
		}
	}
	return false
}

// IsDotted reports whether the shape is served by the styled (dots) endpoint.
func (id ShapeID) IsDotted() bool {
	return id == ShapeDots || id == ShapeRoundedDots
}
