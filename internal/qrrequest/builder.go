// Package qrrequest derives the request for an external QR image service from
// a target URL and a style selection. Building is pure: the same inputs always
// produce the same descriptor, byte for byte.
package qrrequest

import (
	"net/url"
	"strings"

	"github.com/PRASANNAPATIL12/weddingcard/internal/style"
)

// DefaultPrimaryEndpoint is the public goqr.me/qrserver API.
const DefaultPrimaryEndpoint = "https://api.qrserver.com/v1/create-qr-code/"

// Endpoints holds the two image services a descriptor can target.
type Endpoints struct {
	// Primary serves square, rounded, extra-rounded and classy shapes.
	Primary string
	// Dots serves the dots and rounded-dots shapes.
	Dots string
}

// Param is a single query parameter.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Descriptor is a fully formed image request.
type Descriptor struct {
	Endpoint string  `json:"endpoint"`
	Params   []Param `json:"params"`
}

// Get returns the value of the first parameter named key.
func (d Descriptor) Get(key string) (string, bool) {
	for _, p := range d.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Query returns the parameters as url.Values.
func (d Descriptor) Query() url.Values {
	v := make(url.Values, len(d.Params))
	for _, p := range d.Params {
		v.Add(p.Key, p.Value)
	}
	return v
}

// URL encodes the descriptor keeping parameter order.
func (d Descriptor) URL() string {
	var b strings.Builder
	b.WriteString(d.Endpoint)
	if len(d.Params) == 0 {
		return b.String()
	}
	if strings.Contains(d.Endpoint, "?") {
		b.WriteByte('&')
	} else {
		b.WriteByte('?')
	}
	for i, p := range d.Params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// Builder maps selections onto descriptors for a fixed pair of endpoints.
type Builder struct {
	endpoints Endpoints
}

// NewBuilder returns a Builder. An empty Primary falls back to
// DefaultPrimaryEndpoint; an empty Dots falls back to Primary.
func NewBuilder(e Endpoints) *Builder {
	if e.Primary == "" {
		e.Primary = DefaultPrimaryEndpoint
	}
	if e.Dots == "" {
		e.Dots = e.Primary
	}
	return &Builder{endpoints: e}
}

// Endpoints returns the endpoints b targets.
func (b *Builder) Endpoints() Endpoints { return b.endpoints }

// Build never fails. Colors are passed through after stripping the "#"
// marker; validating them is the caller's job.
func (b *Builder) Build(target string, fg, bg style.Color, shape style.ShapeID) Descriptor {
	if shape.IsDotted() {
		dotType := "square"
		if shape == style.ShapeRoundedDots {
			dotType = "rounded"
		}
		return Descriptor{
			Endpoint: b.endpoints.Dots,
			Params: []Param{
				{"data", target},
				{"size", "300"},
				{"format", "png"},
				{"color", fg.Hex()},
				{"backgroundColor", bg.Hex()},
				{"dotType", dotType},
				{"cornerType", "square"},
			},
		}
	}

	margin := "0"
	if shape == style.ShapeClassy {
		margin = "2"
	}
	params := []Param{
		{"size", "300x300"},
		{"data", target},
		{"color", fg.Hex()},
		{"bgcolor", bg.Hex()},
		{"format", "png"},
		{"ecc", "M"},
		{"margin", margin},
	}
	switch shape {
	case style.ShapeExtraRounded:
		params = append(params, Param{"qzone", "3"})
	case style.ShapeRounded:
		params = append(params, Param{"qzone", "1"})
	}
	return Descriptor{Endpoint: b.endpoints.Primary, Params: params}
}

// BuildSelection is Build with the fields of sel.
func (b *Builder) BuildSelection(target string, sel style.Selection) Descriptor {
	return b.Build(target, sel.Foreground, sel.Background, sel.Shape)
}
