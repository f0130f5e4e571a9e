package tracking

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/foodprint/multibox/rimage/transform"
)

// FrameConfiguration describes the sensor buffer. Width and height are of the un-rotated buffer,
// not of the display.
type FrameConfiguration struct {
	Width             int
	Height            int
	SensorOrientation int
}

// IsSet reports whether a frame configuration has been provided.
func (fc FrameConfiguration) IsSet() bool {
	return fc.Width > 0 && fc.Height > 0
}

// OverlayState holds what the overlay shows for the current frame. It is written by the
// detection path and read by the draw path; every access goes through one mutex, and every
// write replaces whole collections.
type OverlayState struct {
	mu sync.Mutex

	frame     FrameConfiguration
	renderSet []TrackedObject
	debugSet  []DebugRect

	// canvas size seen by the most recent draw
	canvasWidth, canvasHeight int
}

// NewOverlayState returns an empty state with no frame configuration.
func NewOverlayState() *OverlayState {
	return &OverlayState{
		renderSet: []TrackedObject{},
		debugSet:  []DebugRect{},
	}
}

// SetFrameConfiguration records the geometry of the sensor buffer.
func (s *OverlayState) SetFrameConfiguration(width, height, sensorOrientation int) error {
	if width <= 0 || height <= 0 {
		return errors.Errorf("frame dimensions must be positive, got %dx%d", width, height)
	}
	orientation := transform.NormalizeOrientation(sensorOrientation)
	if orientation%90 != 0 {
		return transform.NewOrientationError(sensorOrientation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = FrameConfiguration{Width: width, Height: height, SensorOrientation: orientation}
	return nil
}

// FrameConfiguration returns the current frame configuration.
func (s *OverlayState) FrameConfiguration() FrameConfiguration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Update replaces the render and debug sets.
func (s *OverlayState) Update(render []TrackedObject, debug []DebugRect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(render, debug)
}

// replace must be called with mu held.
func (s *OverlayState) replace(render []TrackedObject, debug []DebugRect) {
	s.renderSet = append([]TrackedObject{}, render...)
	s.debugSet = append([]DebugRect{}, debug...)
}

// CurrentRenderSet returns a copy of the objects to render.
func (s *OverlayState) CurrentRenderSet() []TrackedObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TrackedObject{}, s.renderSet...)
}

// CurrentDebugSet returns a copy of the debug rectangles.
func (s *OverlayState) CurrentDebugSet() []DebugRect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DebugRect{}, s.debugSet...)
}
