// Package transform contains the geometry that maps a captured frame onto a display canvas.
package transform

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Affine is a 2x3 matrix (represented as a 2D array) that maps a point in one plane to another
// plane using rotation, scale and translation only. Indices are [row][column].
//
//	x' = a[0][0]*x + a[0][1]*y + a[0][2]
//	y' = a[1][0]*x + a[1][1]*y + a[1][2]
type Affine [2][3]float64

// Identity returns the affine transform that leaves every point where it is.
func Identity() Affine {
	return Affine{{1, 0, 0}, {0, 1, 0}}
}

// Translation returns a transform that moves points by (tx, ty).
func Translation(tx, ty float64) Affine {
	return Affine{{1, 0, tx}, {0, 1, ty}}
}

// Scaling returns a transform that scales points about the origin.
func Scaling(sx, sy float64) Affine {
	return Affine{{sx, 0, 0}, {0, sy, 0}}
}

// Rotation returns a transform that rotates points clockwise about the origin in image
// coordinates (y pointing down). Only quarter turns are accepted so the coefficients stay exact.
func Rotation(degrees int) (Affine, error) {
	var cos, sin float64
	switch NormalizeOrientation(degrees) {
	case 0:
		cos, sin = 1, 0
	case 90:
		cos, sin = 0, 1
	case 180:
		cos, sin = -1, 0
	case 270:
		cos, sin = 0, -1
	default:
		return Affine{}, NewOrientationError(degrees)
	}
	return Affine{{cos, -sin, 0}, {sin, cos, 0}}, nil
}

// NormalizeOrientation maps any angle in degrees into [0, 360).
func NormalizeOrientation(degrees int) int {
	return ((degrees % 360) + 360) % 360
}

// NewOrientationError is used when a sensor orientation is not a quarter turn.
func NewOrientationError(degrees int) error {
	return errors.Errorf("sensor orientation must be one of 0, 90, 180 or 270 degrees, got %d", degrees)
}

// At returns the coefficient at the given row and column.
func (a Affine) At(row, col int) float64 {
	return a[row][col]
}

// Apply maps a single point through the transform.
func (a Affine) Apply(pt r2.Point) r2.Point {
	return r2.Point{
		X: a.At(0, 0)*pt.X + a.At(0, 1)*pt.Y + a.At(0, 2),
		Y: a.At(1, 0)*pt.X + a.At(1, 1)*pt.Y + a.At(1, 2),
	}
}

// Then returns the transform that applies a first and b second.
func (a Affine) Then(b Affine) Affine {
	var out Affine
	for r := 0; r < 2; r++ {
		out[r][0] = b[r][0]*a[0][0] + b[r][1]*a[1][0]
		out[r][1] = b[r][0]*a[0][1] + b[r][1]*a[1][1]
		out[r][2] = b[r][0]*a[0][2] + b[r][1]*a[1][2] + b[r][2]
	}
	return out
}

// Inverse returns the transform that undoes a.
func (a Affine) Inverse() (Affine, error) {
	m := mat.NewDense(3, 3, []float64{
		a[0][0], a[0][1], a[0][2],
		a[1][0], a[1][1], a[1][2],
		0, 0, 1,
	})
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return Affine{}, errors.Wrap(err, "affine transform is not invertible")
	}
	return Affine{
		{inv.At(0, 0), inv.At(0, 1), inv.At(0, 2)},
		{inv.At(1, 0), inv.At(1, 1), inv.At(1, 2)},
	}, nil
}

// MapRect maps all four corners of r and returns the axis-aligned bounding box of the result.
// Mapping only two corners gives the wrong box once a quarter turn is involved.
func (a Affine) MapRect(r r2.Rect) r2.Rect {
	v := r.Vertices()
	return r2.RectFromPoints(a.Apply(v[0]), a.Apply(v[1]), a.Apply(v[2]), a.Apply(v[3]))
}

func (a Affine) String() string {
	return fmt.Sprintf("[%.4g %.4g %.4g; %.4g %.4g %.4g]", a[0][0], a[0][1], a[0][2], a[1][0], a[1][1], a[1][2])
}

// FitScale returns the uniform scale that makes a frame, after applying the sensor orientation,
// fit inside (maintainAspect) or fill (otherwise) the destination.
func FitScale(frameWidth, frameHeight, destWidth, destHeight, sensorOrientation int, maintainAspect bool) float64 {
	rotated := NormalizeOrientation(sensorOrientation)%180 == 90
	inWidth, inHeight := float64(frameWidth), float64(frameHeight)
	if rotated {
		inWidth, inHeight = inHeight, inWidth
	}
	scaleX := float64(destWidth) / inWidth
	scaleY := float64(destHeight) / inHeight
	if maintainAspect {
		return math.Min(scaleY, scaleX)
	}
	return math.Max(scaleY, scaleX)
}

// NewFrameToCanvas computes the transform from frame pixel coordinates to destination pixel
// coordinates. The frame is rotated about its centre by the sensor orientation, scaled
// uniformly and centred in the destination. With maintainAspect the whole frame is visible
// and letterboxed; without it the frame fills the destination and the overflow is cropped.
func NewFrameToCanvas(frameWidth, frameHeight, destWidth, destHeight, sensorOrientation int, maintainAspect bool) (Affine, error) {
	if frameWidth <= 0 || frameHeight <= 0 {
		return Affine{}, errors.Errorf("frame dimensions must be positive, got %dx%d", frameWidth, frameHeight)
	}
	if destWidth <= 0 || destHeight <= 0 {
		return Affine{}, errors.Errorf("destination dimensions must be positive, got %dx%d", destWidth, destHeight)
	}
	rot, err := Rotation(sensorOrientation)
	if err != nil {
		return Affine{}, err
	}
	scale := FitScale(frameWidth, frameHeight, destWidth, destHeight, sensorOrientation, maintainAspect)

	return Translation(-float64(frameWidth)/2, -float64(frameHeight)/2).
		Then(rot).
		Then(Scaling(scale, scale)).
		Then(Translation(float64(destWidth)/2, float64(destHeight)/2)), nil
}
