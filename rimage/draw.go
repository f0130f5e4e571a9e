package rimage

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/golang/geo/r2"
	"golang.org/x/image/font/gofont/goregular"
)

var font *truetype.Font

// init sets up the fonts we want to use.
func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Font returns the font we use for drawing.
func Font() *truetype.Font {
	return font
}

// SetFontSize selects the drawing font at the given size on the context.
func SetFontSize(dc *gg.Context, size float64) {
	dc.SetFontFace(truetype.NewFace(Font(), &truetype.Options{Size: size}))
}

// DrawString writes a string to the given context with its baseline at a particular point.
func DrawString(dc *gg.Context, text string, p r2.Point, c color.Color, size float64) {
	SetFontSize(dc, size)
	dc.SetColor(c)
	dc.DrawString(text, p.X, p.Y)
}

// DrawBorderedString writes white text over a filled background box whose top-left corner is p.
// The box is as wide as the text and one font size tall.
func DrawBorderedString(dc *gg.Context, text string, p r2.Point, bg color.Color, size float64) {
	SetFontSize(dc, size)
	w, _ := dc.MeasureString(text)
	dc.SetColor(bg)
	dc.DrawRectangle(p.X, p.Y, w, size)
	dc.Fill()

	// 1px black outline
	dc.SetColor(Black)
	for _, o := range []image.Point{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		dc.DrawString(text, p.X+float64(o.X), p.Y+size+float64(o.Y))
	}
	dc.SetColor(White)
	dc.DrawString(text, p.X, p.Y+size)
}

// DrawRectangleEmpty draws the outline of the given rectangle into the context.
func DrawRectangleEmpty(dc *gg.Context, r r2.Rect, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.DrawRectangle(r.X.Lo, r.Y.Lo, r.X.Length(), r.Y.Length())
	dc.Stroke()
}

// DrawRoundedRectangleEmpty draws the outline of the rectangle with rounded corners of the given
// radius, using round caps and joins.
func DrawRoundedRectangleEmpty(dc *gg.Context, r r2.Rect, radius float64, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	dc.DrawRoundedRectangle(r.X.Lo, r.Y.Lo, r.X.Length(), r.Y.Length(), radius)
	dc.Stroke()
}
