// Package objectdetection defines the detections produced by an inference step and the
// filters and recordings built around them.
package objectdetection

import (
	"fmt"

	"github.com/golang/geo/r2"
)

// Detection returns a bounding box around the object in frame coordinates, a confidence
// score of the detection and a label.
type Detection interface {
	// BoundingBox is nil when the inference step produced no geometry.
	BoundingBox() *r2.Rect
	Score() float64
	Label() string
}

// NewDetection creates a simple 2D detection.
func NewDetection(bb r2.Rect, score float64, label string) Detection {
	return &detection2D{boundingBox: &bb, score: score, label: label}
}

// NewDetectionWithoutBox creates a detection that has no geometry.
func NewDetectionWithoutBox(score float64, label string) Detection {
	return &detection2D{score: score, label: label}
}

// detection2D is a simple struct for storing 2D detections.
type detection2D struct {
	boundingBox *r2.Rect
	score       float64
	label       string
}

// BoundingBox returns a copy of the bounding box of the detection, or nil.
func (d *detection2D) BoundingBox() *r2.Rect {
	if d.boundingBox == nil {
		return nil
	}
	bb := *d.boundingBox
	return &bb
}

// Score returns the confidence of the detection.
func (d *detection2D) Score() float64 {
	return d.score
}

// Label returns the class label of the object in the bounding box.
func (d *detection2D) Label() string {
	return d.label
}

// String turns the detection into a string.
func (d *detection2D) String() string {
	if d.boundingBox == nil {
		return fmt.Sprintf("Label: %s, Score: %.2f, Box: none", d.label, d.score)
	}
	return fmt.Sprintf("Label: %s, Score: %.2f, Box: %v", d.label, d.score, *d.boundingBox)
}

// IsDegenerate reports whether a frame-space rectangle is narrower or shorter than minSize.
// Such boxes are numerical noise from the inference step rather than real objects.
func IsDegenerate(bb r2.Rect, minSize float64) bool {
	return bb.X.Length() < minSize || bb.Y.Length() < minSize
}
