package tracking

import (
	"image/color"
	"testing"

	"github.com/fogleman/gg"
	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"go.viam.com/test"
)

func rect(x0, y0, x1, y1 float64) r2.Rect {
	return r2.Rect{X: r1.Interval{Lo: x0, Hi: x1}, Y: r1.Interval{Lo: y0, Hi: y1}}
}

func rectShouldAlmostEqual(t *testing.T, got, want r2.Rect) {
	t.Helper()
	test.That(t, got.X.Lo, test.ShouldAlmostEqual, want.X.Lo, 1e-6)
	test.That(t, got.X.Hi, test.ShouldAlmostEqual, want.X.Hi, 1e-6)
	test.That(t, got.Y.Lo, test.ShouldAlmostEqual, want.Y.Lo, 1e-6)
	test.That(t, got.Y.Hi, test.ShouldAlmostEqual, want.Y.Hi, 1e-6)
}

func newObservedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func rgbaAt(dc *gg.Context, x, y int) color.RGBA {
	return color.RGBAModel.Convert(dc.Image().At(x, y)).(color.RGBA)
}

func paintedPixels(dc *gg.Context) int {
	b := dc.Image().Bounds()
	n := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if rgbaAt(dc, x, y).A != 0 {
				n++
			}
		}
	}
	return n
}
