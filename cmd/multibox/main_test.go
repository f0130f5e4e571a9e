package main

import (
	"bytes"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/foodprint/multibox/annotation"
	"github.com/foodprint/multibox/config"
	"github.com/foodprint/multibox/vision/tracking"
)

const testRecording = `{
	"frame": {"width": 640, "height": 480, "sensor_orientation": 90},
	"batches": [
		{"timestamp": 1, "detections": [
			{"label": "apple", "confidence": 0.9, "rect": {"left": 100, "top": 100, "right": 200, "bottom": 150}}
		]},
		{"timestamp": 2, "detections": []}
	]
}`

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
	return path
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	rec := writeFile(t, dir, "rec.json", testRecording)
	conf := writeFile(t, dir, "multibox.json", `{"canvas": {"width_px": 480, "height_px": 640}}`)
	bg := filepath.Join(dir, "frame.png")
	test.That(t, imaging.Save(imaging.New(640, 480, color.NRGBA{0, 0x80, 0, 0xff}), bg), test.ShouldBeNil)
	out := filepath.Join(dir, "out")
	logFile := filepath.Join(dir, "multibox.log")

	err := newApp().RunContext(context.Background(), []string{
		"multibox", "--config", conf, "--log-file", logFile,
		"render", "--recording", rec, "--out", out, "--background", bg, "--overlay-debug",
	})
	test.That(t, err, test.ShouldBeNil)

	entries, err := os.ReadDir(out)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(entries), test.ShouldEqual, 2)
	img, err := imaging.Open(filepath.Join(out, "frame_00001.png"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 480)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, 640)

	_, err = os.Stat(logFile)
	test.That(t, err, test.ShouldBeNil)
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	rec := writeFile(t, dir, "rec.json", testRecording)

	err := newApp().RunContext(context.Background(), []string{
		"multibox", "render", "--recording", filepath.Join(dir, "missing.json"), "--out", dir,
	})
	test.That(t, err, test.ShouldNotBeNil)

	bad := writeFile(t, dir, "bad.json", `{"stroke_width": -2}`)
	err = newApp().RunContext(context.Background(), []string{
		"multibox", "--config", bad, "render", "--recording", rec, "--out", dir,
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "stroke_width")
}

func TestReplay(t *testing.T) {
	dir := t.TempDir()
	rec := writeFile(t, dir, "rec.json", testRecording)
	conf := writeFile(t, dir, "multibox.json",
		`{"inference_fps": 500, "render_fps": 1000, "canvas": {"width_px": 120, "height_px": 160}}`)
	out := filepath.Join(dir, "out")

	err := newApp().RunContext(context.Background(), []string{
		"multibox", "--config", conf, "replay", "--recording", rec, "--out", out, "--watch",
	})
	test.That(t, err, test.ShouldBeNil)
	entries, err := os.ReadDir(out)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(entries), test.ShouldBeGreaterThanOrEqualTo, 1)
}

func TestReconfigure(t *testing.T) {
	logger := golog.NewTestLogger(t)
	tracker, err := tracking.NewTracker(tracking.NewOverlayState(), tracking.DefaultOptions(), annotation.Identity, logger)
	test.That(t, err, test.ShouldBeNil)

	conf := config.Default()
	conf.MinSize = 4
	reconfigure(tracker, conf, logger)
	test.That(t, tracker.Options().MinSize, test.ShouldEqual, 4)

	conf.Palette = []string{"nope"}
	reconfigure(tracker, conf, logger)
	test.That(t, tracker.Options().MinSize, test.ShouldEqual, 4)

	conf = config.Default()
	conf.StrokeWidth = 0
	reconfigure(tracker, conf, logger)
	test.That(t, tracker.Options().StrokeWidth, test.ShouldEqual, tracking.DefaultOptions().StrokeWidth)
}

func runCapture(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.RunContext(context.Background(), append([]string{"multibox"}, args...))
	return out.String(), err
}

func TestLabels(t *testing.T) {
	out, err := runCapture(t, "labels")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "banana")
	test.That(t, out, test.ShouldContainSubstring, "0.2734")
	test.That(t, out, test.ShouldContainSubstring, "Co2e")
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	rec := writeFile(t, dir, "rec.json", testRecording)
	out, err := runCapture(t, "inspect", rec)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "640x480 @ 90°")
	test.That(t, out, test.ShouldContainSubstring, "0.9000")

	_, err = runCapture(t, "inspect")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSchemaCommand(t *testing.T) {
	out, err := runCapture(t, "schema")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "inference_fps")
}
