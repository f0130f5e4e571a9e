package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/foodprint/multibox/rimage"
	"github.com/foodprint/multibox/vision/objectdetection"
	"github.com/foodprint/multibox/vision/tracking"
)

func TestFromReaderValidate(t *testing.T) {
	logger := golog.NewTestLogger(t)

	_, err := FromReader("somepath", strings.NewReader(""), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "EOF")

	_, err = FromReader("somepath", strings.NewReader(`{"cloud": 1}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cloud")

	conf, err := FromReader("somepath", strings.NewReader(`{}`), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf, test.ShouldResemble, Default())

	_, err = FromReader("somepath", strings.NewReader(`{"stroke_width": 0, "render_fps": -1}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"stroke_width"`)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"render_fps"`)
	test.That(t, err.Error(), test.ShouldContainSubstring, "somepath")

	_, err = FromReader("somepath", strings.NewReader(`{"palette": ["#nothex"]}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"palette"`)

	_, err = FromReader("somepath", strings.NewReader(`{"palette": []}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "at least one color")
}

func TestFromAttributes(t *testing.T) {
	conf, err := FromAttributes(AttributeMap{
		"min_size":        0,
		"palette":         []interface{}{"#ff0000", "#00ff00"},
		"maintain_aspect": false,
		"canvas":          map[string]interface{}{"width_px": 480},
		"inference_fps":   10,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.MinSize, test.ShouldEqual, 0)
	test.That(t, conf.Palette, test.ShouldResemble, []string{"#ff0000", "#00ff00"})
	test.That(t, conf.MaintainAspect, test.ShouldBeFalse)
	test.That(t, conf.Canvas, test.ShouldResemble, CanvasConfig{Width: 480, Height: DefaultCanvasHeight})
	test.That(t, conf.StrokeWidth, test.ShouldEqual, DefaultStrokeWidth)
	test.That(t, conf.InferenceInterval(), test.ShouldEqual, 100*time.Millisecond)
	test.That(t, conf.RenderInterval(), test.ShouldEqual, time.Second/30)

	sopts := conf.SessionOptions()
	test.That(t, sopts.CanvasWidth, test.ShouldEqual, 480)
	test.That(t, sopts.CanvasHeight, test.ShouldEqual, DefaultCanvasHeight)
	test.That(t, sopts.InferenceInterval, test.ShouldEqual, 100*time.Millisecond)
	test.That(t, sopts.Debug, test.ShouldBeFalse)

	opts, err := conf.TrackerOptions()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts.MinSize, test.ShouldEqual, 0)
	test.That(t, opts.Palette.Len(), test.ShouldEqual, 2)
	test.That(t, opts.MaintainAspect, test.ShouldBeFalse)
	test.That(t, opts.Validate(), test.ShouldBeNil)

	_, err = FromAttributes(AttributeMap{"min_size": "big"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot parse tracker configuration")
}

func TestDefault(t *testing.T) {
	conf := Default()
	test.That(t, conf.Validate("default"), test.ShouldBeNil)
	opts, err := conf.TrackerOptions()
	test.That(t, err, test.ShouldBeNil)
	def := tracking.DefaultOptions()
	test.That(t, opts.MinSize, test.ShouldEqual, def.MinSize)
	test.That(t, opts.StrokeWidth, test.ShouldEqual, def.StrokeWidth)
	test.That(t, opts.TextSize, test.ShouldEqual, def.TextSize)
	test.That(t, opts.Palette.Hex(), test.ShouldResemble, rimage.DefaultPalette().Hex())

	ann, err := conf.Annotator()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ann.Annotate("banana"), test.ShouldEqual, "banana 0.2734 Co2e")
}

func TestRead(t *testing.T) {
	logger := golog.NewTestLogger(t)
	dir := t.TempDir()

	labels := filepath.Join(dir, "labels.json")
	test.That(t, os.WriteFile(labels, []byte(`{"unit": "kg", "entries": {"cup": "3"}}`), 0o600), test.ShouldBeNil)

	t.Setenv("MULTIBOX_TEST_DIR", dir)
	path := filepath.Join(dir, "multibox.json")
	test.That(t, os.WriteFile(path, []byte(`{"labels_path": "${MULTIBOX_TEST_DIR}/labels.json", "debug": true}`), 0o600),
		test.ShouldBeNil)

	conf, err := Read(path, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.LabelsPath, test.ShouldEqual, labels)
	test.That(t, conf.Debug, test.ShouldBeTrue)

	ann, err := conf.Annotator()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ann.Annotate("cup"), test.ShouldEqual, "cup 3 kg")

	_, err = Read(filepath.Join(dir, "missing.json"), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSchema(t *testing.T) {
	schema := Schema()
	test.That(t, schema, test.ShouldNotBeNil)
	out, err := json.Marshal(schema)
	test.That(t, err, test.ShouldBeNil)
	for _, key := range []string{"min_size", "palette", "maintain_aspect", "width_px", "render_fps"} {
		test.That(t, string(out), test.ShouldContainSubstring, key)
	}
}

func TestWholeNumbers(t *testing.T) {
	logger := golog.NewTestLogger(t)
	_, err := FromReader("somepath", strings.NewReader(`{"canvas": {"width_px": 480.5}}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "whole number")

	conf, err := FromReader("somepath", strings.NewReader(`{"canvas": {"width_px": 480.0, "height_px": 640}}`), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Canvas, test.ShouldResemble, CanvasConfig{Width: 480, Height: 640})

	// float fields keep their fractions
	conf, err = FromReader("somepath", strings.NewReader(`{"min_size": 2.5}`), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.MinSize, test.ShouldEqual, 2.5)
}

func TestPostprocessor(t *testing.T) {
	logger := golog.NewTestLogger(t)
	conf := Default()
	test.That(t, conf.Postprocessor(), test.ShouldBeNil)
	test.That(t, conf.SessionOptions().Postprocessor, test.ShouldBeNil)

	conf, err := FromReader("somepath", strings.NewReader(`{"min_score": 0.5, "min_area": 1000}`), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.MinScore, test.ShouldEqual, 0.5)
	test.That(t, conf.MinArea, test.ShouldEqual, 1000)

	dets := []objectdetection.Detection{
		objectdetection.NewDetection(r2.RectFromPoints(r2.Point{}, r2.Point{X: 100, Y: 50}), 0.9, "big"),
		objectdetection.NewDetection(r2.RectFromPoints(r2.Point{}, r2.Point{X: 100, Y: 50}), 0.3, "unsure"),
		objectdetection.NewDetection(r2.RectFromPoints(r2.Point{}, r2.Point{X: 20, Y: 20}), 0.9, "small"),
	}
	pp := conf.SessionOptions().Postprocessor
	test.That(t, pp, test.ShouldNotBeNil)
	out := pp(dets)
	test.That(t, len(out), test.ShouldEqual, 1)
	test.That(t, out[0].Label(), test.ShouldEqual, "big")

	_, err = FromReader("somepath", strings.NewReader(`{"min_score": 1.5, "min_area": -1}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"min_score"`)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"min_area"`)
}
