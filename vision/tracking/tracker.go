// Package tracking turns per-frame detection batches into coloured, labelled overlay boxes.
//
// Detections arrive on one goroutine (TrackResults) and are drawn on another (Draw), at
// different rates. Each batch fully replaces the previous one; nothing is carried across frames.
package tracking

import (
	"image"

	"github.com/edaniels/golog"
	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/foodprint/multibox/annotation"
	"github.com/foodprint/multibox/rimage"
	"github.com/foodprint/multibox/rimage/transform"
	"github.com/foodprint/multibox/vision/objectdetection"
)

// Options configure how a Tracker filters and draws.
type Options struct {
	MinSize        float64
	Palette        rimage.Palette
	StrokeWidth    float64
	TextSize       float64
	MaintainAspect bool
}

// DefaultOptions returns the standard tracker options.
func DefaultOptions() Options {
	return Options{
		MinSize:        DefaultMinSize,
		Palette:        rimage.DefaultPalette(),
		StrokeWidth:    10,
		TextSize:       18,
		MaintainAspect: true,
	}
}

// Validate reports every problem with the options.
func (o Options) Validate() error {
	var err error
	if o.MinSize < 0 {
		err = multierr.Append(err, errors.Errorf("min size cannot be negative, got %v", o.MinSize))
	}
	if o.Palette.Len() == 0 {
		err = multierr.Append(err, errors.New("palette must have at least one color"))
	}
	if o.StrokeWidth <= 0 {
		err = multierr.Append(err, errors.Errorf("stroke width must be positive, got %v", o.StrokeWidth))
	}
	if o.TextSize <= 0 {
		err = multierr.Append(err, errors.Errorf("text size must be positive, got %v", o.TextSize))
	}
	return err
}

// Tracker reconciles detection batches into the overlay state and draws it.
type Tracker struct {
	state     *OverlayState
	annotator annotation.Annotator
	logger    golog.Logger

	// guarded by state.mu
	opts     Options
	renderer *Renderer
}

// NewTracker returns a tracker that keeps its overlay in state.
func NewTracker(state *OverlayState, opts Options, annotator annotation.Annotator, logger golog.Logger) (*Tracker, error) {
	if state == nil {
		return nil, errors.New("tracker needs an overlay state")
	}
	if logger == nil {
		return nil, errors.New("tracker needs a logger")
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid tracker options")
	}
	t := &Tracker{state: state, annotator: annotator, logger: logger}
	t.applyOptions(opts)
	return t, nil
}

func (t *Tracker) applyOptions(opts Options) {
	t.opts = opts
	t.renderer = &Renderer{
		Palette:     opts.Palette,
		StrokeWidth: opts.StrokeWidth,
		TextSize:    opts.TextSize,
		Annotator:   t.annotator,
	}
}

// State returns the overlay state the tracker writes to.
func (t *Tracker) State() *OverlayState {
	return t.state
}

// Reconfigure swaps in new options. Objects already tracked keep their colour ids.
func (t *Tracker) Reconfigure(opts Options) error {
	if err := opts.Validate(); err != nil {
		return errors.Wrap(err, "invalid tracker options")
	}
	t.state.mu.Lock()
	defer t.state.mu.Unlock()
	t.applyOptions(opts)
	return nil
}

// Options returns the options currently in use.
func (t *Tracker) Options() Options {
	t.state.mu.Lock()
	defer t.state.mu.Unlock()
	return t.opts
}

// SetFrameConfiguration records the sensor buffer geometry; see OverlayState.
func (t *Tracker) SetFrameConfiguration(width, height, sensorOrientation int) error {
	if err := t.state.SetFrameConfiguration(width, height, sensorOrientation); err != nil {
		return err
	}
	t.logger.Debugw("frame configuration set", "width", width, "height", height, "orientation", sensorOrientation)
	return nil
}

// TrackResults replaces the overlay with the given batch. The most recent call wins regardless
// of timestamp.
func (t *Tracker) TrackResults(dets []objectdetection.Detection, timestamp int64) {
	t.logger.Debugw("processing results", "count", len(dets), "timestamp", timestamp)

	t.state.mu.Lock()
	defer t.state.mu.Unlock()

	f := Filter{MinSize: t.opts.MinSize, PaletteSize: t.opts.Palette.Len(), Logger: t.logger}
	render, debug := f.Process(dets, t.debugTransformLocked())
	t.state.replace(render, debug)
}

// debugTransformLocked maps frame space onto the canvas of the most recent draw, or onto a
// canvas the size of the oriented frame if nothing was drawn yet. Must be called with the
// state lock held.
func (t *Tracker) debugTransformLocked() transform.Affine {
	fc := t.state.frame
	if !fc.IsSet() {
		return transform.Identity()
	}
	w, h := t.state.canvasWidth, t.state.canvasHeight
	if w <= 0 || h <= 0 {
		w, h = fc.Width, fc.Height
		if fc.SensorOrientation%180 == 90 {
			w, h = h, w
		}
	}
	xf, err := transform.NewFrameToCanvas(fc.Width, fc.Height, w, h, fc.SensorOrientation, t.opts.MaintainAspect)
	if err != nil {
		t.logger.Debugw("cannot map detections to screen", "error", err)
		return transform.Identity()
	}
	return xf
}

// transformLocked computes the frame to canvas transform for a canvas of the given size and
// remembers the size for the debug mapping. Must be called with the state lock held.
func (t *Tracker) transformLocked(width, height int) (transform.Affine, error) {
	t.state.canvasWidth, t.state.canvasHeight = width, height
	fc := t.state.frame
	if !fc.IsSet() {
		return transform.Affine{}, errors.New("frame configuration has not been set")
	}
	return transform.NewFrameToCanvas(fc.Width, fc.Height, width, height, fc.SensorOrientation, t.opts.MaintainAspect)
}

// Transform returns the frame to canvas transform for a canvas of the given size.
func (t *Tracker) Transform(width, height int) (transform.Affine, error) {
	t.state.mu.Lock()
	defer t.state.mu.Unlock()
	return t.transformLocked(width, height)
}

// Draw renders the current objects onto dc. The transform is recomputed from the current frame
// configuration and the size of dc on every call.
func (t *Tracker) Draw(dc *gg.Context) {
	t.state.mu.Lock()
	defer t.state.mu.Unlock()

	xf, err := t.transformLocked(dc.Width(), dc.Height())
	if err != nil {
		t.logger.Debugw("skipping draw", "error", err)
		return
	}
	t.renderer.Draw(dc, t.state.renderSet, xf)
}

// DrawDebug renders every raw detection of the last batch onto dc.
func (t *Tracker) DrawDebug(dc *gg.Context) {
	t.state.mu.Lock()
	defer t.state.mu.Unlock()
	t.renderer.DrawDebug(dc, t.state.debugSet)
}

// DrawFrame paints the captured frame img onto dc underneath where the boxes will land.
func (t *Tracker) DrawFrame(dc *gg.Context, img image.Image) error {
	t.state.mu.Lock()
	defer t.state.mu.Unlock()

	xf, err := t.transformLocked(dc.Width(), dc.Height())
	if err != nil {
		return err
	}
	b := img.Bounds()
	fc := t.state.frame
	if b.Dx() != fc.Width || b.Dy() != fc.Height {
		return errors.Errorf("frame image is %dx%d but the frame configuration is %dx%d", b.Dx(), b.Dy(), fc.Width, fc.Height)
	}
	rimage.DrawFrame(dc, img, fc.SensorOrientation, xf)
	return nil
}

// RenderSet returns a copy of the objects that will be drawn.
func (t *Tracker) RenderSet() []TrackedObject {
	return t.state.CurrentRenderSet()
}

// DebugSet returns a copy of the debug rectangles of the last batch.
func (t *Tracker) DebugSet() []DebugRect {
	return t.state.CurrentDebugSet()
}

// LabelText returns the caption the tracker draws for obj.
func (t *Tracker) LabelText(obj TrackedObject) string {
	t.state.mu.Lock()
	defer t.state.mu.Unlock()
	return t.renderer.LabelText(obj)
}
