package rimage

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	_ "github.com/lmittmann/ppm" // register ppm
	"github.com/pkg/errors"

	"github.com/foodprint/multibox/rimage/transform"
)

// FrameRect returns the rectangle that exactly covers a frame in frame coordinates.
func FrameRect(width, height int) r2.Rect {
	return r2.Rect{X: r1.Interval{Lo: 0, Hi: float64(width)}, Y: r1.Interval{Lo: 0, Hi: float64(height)}}
}

// OrientFrame rotates a captured frame clockwise by the sensor orientation so it is upright on
// the display.
func OrientFrame(img image.Image, sensorOrientation int) image.Image {
	// imaging rotates counter-clockwise while sensor orientation is clockwise.
	switch transform.NormalizeOrientation(sensorOrientation) {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// DrawFrame paints the captured frame into the footprint that xf gives it on the context, so
// that boxes mapped through the same transform line up with the picture.
func DrawFrame(dc *gg.Context, img image.Image, sensorOrientation int, xf transform.Affine) {
	b := img.Bounds()
	footprint := xf.MapRect(FrameRect(b.Dx(), b.Dy()))
	w := int(math.Round(footprint.X.Length()))
	h := int(math.Round(footprint.Y.Length()))
	if w <= 0 || h <= 0 {
		return
	}
	oriented := imaging.Resize(OrientFrame(img, sensorOrientation), w, h, imaging.Linear)
	dc.DrawImage(oriented, int(math.Round(footprint.X.Lo)), int(math.Round(footprint.Y.Lo)))
}

// ReadFrameFile decodes a captured frame stored as PNG, JPEG or PPM.
func ReadFrameFile(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open frame %q", path)
	}
	return img, nil
}
