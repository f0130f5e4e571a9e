package tracking

import (
	"fmt"
	"image/color"
	"math"
	"strconv"

	"github.com/fogleman/gg"
	"github.com/golang/geo/r2"

	"github.com/foodprint/multibox/annotation"
	"github.com/foodprint/multibox/rimage"
	"github.com/foodprint/multibox/rimage/transform"
)

const (
	labelBackgroundAlpha = 160
	debugAlpha           = 200
	debugTextSize        = 60.0
	debugStrokeWidth     = 1.0
)

// Renderer draws tracked objects and debug rectangles onto a gg context.
type Renderer struct {
	Palette     rimage.Palette
	StrokeWidth float64
	TextSize    float64
	Annotator   annotation.Annotator
}

// LabelText returns the caption drawn above a tracked object, e.g. "apple 0.2347 Co2e 91.00%".
// Without a label only the confidence is shown.
func (r *Renderer) LabelText(obj TrackedObject) string {
	var s string
	if obj.Label != "" {
		var annotated string
		if r.Annotator != nil {
			annotated = r.Annotator.Annotate(obj.Label)
		}
		s = fmt.Sprintf("%s %.2f", annotated, 100*obj.Confidence)
	} else {
		s = fmt.Sprintf("%.2f", 100*obj.Confidence)
	}
	return s + "%"
}

// CornerRadius is the rounding applied to a box on screen.
func CornerRadius(screen r2.Rect) float64 {
	return math.Min(screen.X.Length(), screen.Y.Length()) / 8
}

// Draw maps each object through xf and draws its box and caption.
func (r *Renderer) Draw(dc *gg.Context, objs []TrackedObject, xf transform.Affine) {
	for _, obj := range objs {
		screen := obj.ScreenRect(xf)
		radius := CornerRadius(screen)
		rimage.DrawRoundedRectangleEmpty(dc, screen, radius, r.Palette.At(obj.ColorID), r.StrokeWidth)
		rimage.DrawBorderedString(
			dc,
			r.LabelText(obj),
			r2.Point{X: screen.X.Lo + radius, Y: screen.Y.Lo},
			r.Palette.WithAlpha(obj.ColorID, labelBackgroundAlpha),
			r.TextSize,
		)
	}
}

// DrawDebug draws every raw detection as an outline with its confidence.
func (r *Renderer) DrawDebug(dc *gg.Context, debug []DebugRect) {
	boxColor := color.NRGBA{0xff, 0x00, 0x00, debugAlpha}
	for _, d := range debug {
		text := strconv.FormatFloat(d.Confidence, 'f', -1, 64)
		rimage.DrawRectangleEmpty(dc, d.ScreenRect, boxColor, debugStrokeWidth)
		rimage.DrawString(dc, text, r2.Point{X: d.ScreenRect.X.Lo, Y: d.ScreenRect.Y.Lo}, rimage.White, debugTextSize)
		center := d.ScreenRect.Center()
		rimage.DrawBorderedString(dc, text, center, boxColor, r.TextSize)
	}
}
