package style

// Selection is one immutable set of user choices. Every change produces a new
// value; nothing holds a pointer into it.
type Selection struct {
	Shape      ShapeID `json:"shape"`
	Foreground Color   `json:"foreground"`
	Background Color   `json:"background"`
}

// DefaultSelection is black square modules on white.
func DefaultSelection() Selection {
	return Selection{Shape: ShapeSquare, Foreground: Black, Background: White}
}

// WithShape returns a copy of s using shape.
func (s Selection) WithShape(shape ShapeID) Selection {
	s.Shape = shape
	return s
}

// WithForeground returns a copy of s using fg.
func (s Selection) WithForeground(fg Color) Selection {
	s.Foreground = fg
	return s
}

// WithBackground returns a copy of s using bg.
func (s Selection) WithBackground(bg Color) Selection {
	s.Background = bg
	return s
}

// Merge applies raw user input on top of s. Values that fail validation are
// dropped and the current value is kept; empty strings mean "unchanged".
// The returned slice names the fields that were rejected.
func (s Selection) Merge(shape, fg, bg string) (Selection, []string) {
	var rejected []string
	if shape != "" {
		if id, err := ParseShape(shape); err == nil {
			s.Shape = id
		} else {
			rejected = append(rejected, "shape")
		}
	}
	if fg != "" {
		if c, err := ParseColor(fg); err == nil {
			s.Foreground = c
		} else {
			rejected = append(rejected, "foreground")
		}
	}
	if bg != "" {
		if c, err := ParseColor(bg); err == nil {
			s.Background = c
		} else {
			rejected = append(rejected, "background")
		}
	}
	return s, rejected
}
