// Package rimage holds the colours and drawing primitives used to paint overlays.
package rimage

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Some basic colors.
var (
	White = color.NRGBA{0xff, 0xff, 0xff, 0xff}
	Black = color.NRGBA{0x00, 0x00, 0x00, 0xff}
	Red   = color.NRGBA{0xff, 0x00, 0x00, 0xff}
)

// defaultPaletteHex are visually distinct colours handed out to the boxes of one frame, in order.
var defaultPaletteHex = []string{
	"#0000FF", // blue
	"#FF0000", // red
	"#00FF00", // green
	"#FFFF00", // yellow
	"#00FFFF", // cyan
	"#FF00FF", // magenta
	"#FFFFFF", // white
	"#55FF55",
	"#FFA500",
	"#FF8888",
	"#AAAAFF",
	"#FFFFAA",
	"#55AAAA",
	"#AA33AA",
	"#0D0068",
}

// Palette is a fixed ordered set of colours. A colour id is an index into it.
type Palette []colorful.Color

// NewPalette parses "#rrggbb" strings into a palette.
func NewPalette(hexes ...string) (Palette, error) {
	if len(hexes) == 0 {
		return nil, errors.New("palette must have at least one color")
	}
	p := make(Palette, 0, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, errors.Wrapf(err, "palette color %d", i)
		}
		p = append(p, c)
	}
	return p, nil
}

// DefaultPalette returns the standard 15 colour palette.
func DefaultPalette() Palette {
	p, err := NewPalette(defaultPaletteHex...)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the number of colours, which bounds the boxes drawn per frame.
func (p Palette) Len() int {
	return len(p)
}

// At returns the opaque colour for a colour id. Ids outside the palette wrap around.
func (p Palette) At(id int) color.Color {
	return p.WithAlpha(id, 0xff)
}

// WithAlpha returns the colour for a colour id with the given alpha.
func (p Palette) WithAlpha(id int, alpha uint8) color.Color {
	if len(p) == 0 {
		return color.NRGBA{0xff, 0x00, 0x00, alpha}
	}
	id %= len(p)
	if id < 0 {
		id += len(p)
	}
	r, g, b := p[id].RGB255()
	return color.NRGBA{r, g, b, alpha}
}

// Hex returns the palette as "#rrggbb" strings.
func (p Palette) Hex() []string {
	out := make([]string, 0, len(p))
	for _, c := range p {
		out = append(out, c.Hex())
	}
	return out
}
