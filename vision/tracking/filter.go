package tracking

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"go.uber.org/zap"

	"github.com/foodprint/multibox/rimage/transform"
	"github.com/foodprint/multibox/vision/objectdetection"
)

// DefaultMinSize is the smallest width and height, in frame pixels, of a box worth tracking.
const DefaultMinSize = 16.0

// TrackedObject is one accepted detection of the current frame together with its colour.
// The rectangle stays in frame coordinates and is mapped at draw time.
type TrackedObject struct {
	FrameRect  r2.Rect
	Confidence float64
	Label      string
	ColorID    int
}

// ScreenRect maps the object's frame rectangle through xf.
func (o TrackedObject) ScreenRect(xf transform.Affine) r2.Rect {
	return xf.MapRect(o.FrameRect)
}

// DebugRect is a raw detection, valid or not, already mapped to screen coordinates.
type DebugRect struct {
	Confidence float64
	ScreenRect r2.Rect
}

// Filter validates a batch of detections and assigns colours to the survivors.
type Filter struct {
	MinSize     float64
	PaletteSize int
	Logger      golog.Logger
}

func (f Filter) logger() golog.Logger {
	if f.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return f.Logger
}

// Process splits a batch into the objects to render and the debug rectangles to show.
//
// Every detection with a bounding box shows up in the debug set, mapped through xf. Boxes smaller
// than MinSize in either dimension are left out of the render set. Survivors keep batch order and
// get colour ids 0, 1, ... until the palette is used up; the rest are dropped.
func (f Filter) Process(dets []objectdetection.Detection, xf transform.Affine) ([]TrackedObject, []DebugRect) {
	logger := f.logger()
	debug := make([]DebugRect, 0, len(dets))
	candidates := make([]objectdetection.Detection, 0, len(dets))

	for _, d := range dets {
		bb := d.BoundingBox()
		if bb == nil {
			continue
		}
		screen := xf.MapRect(*bb)
		logger.Debugw("result mapped to screen", "frame", *bb, "screen", screen)
		debug = append(debug, DebugRect{Confidence: d.Score(), ScreenRect: screen})

		if objectdetection.IsDegenerate(*bb, f.MinSize) {
			logger.Warnw("degenerate rectangle", "frame", *bb, "label", d.Label())
			continue
		}
		candidates = append(candidates, d)
	}

	render := make([]TrackedObject, 0, len(candidates))
	if len(candidates) == 0 {
		logger.Debug("nothing to track")
		return render, debug
	}

	for _, d := range candidates {
		if len(render) >= f.PaletteSize {
			logger.Debugw("palette exhausted, dropping detections", "dropped", len(candidates)-len(render))
			break
		}
		render = append(render, TrackedObject{
			FrameRect:  *d.BoundingBox(),
			Confidence: d.Score(),
			Label:      d.Label(),
			ColorID:    len(render),
		})
	}
	return render, debug
}
