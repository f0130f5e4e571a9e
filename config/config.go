// Package config reads the JSON configuration of the overlay tracker.
package config

import (
	"math"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/foodprint/multibox/annotation"
	"github.com/foodprint/multibox/rimage"
	"github.com/foodprint/multibox/session"
	"github.com/foodprint/multibox/vision/objectdetection"
	"github.com/foodprint/multibox/vision/tracking"
)

// Defaults applied when a key is absent from the configuration.
const (
	DefaultStrokeWidth  = 10.0
	DefaultTextSize     = 18.0
	DefaultCanvasWidth  = 1080
	DefaultCanvasHeight = 1920
	DefaultInferenceFPS = 5.0
	DefaultRenderFPS    = 30.0
)

// AttributeMap is a loosely typed JSON object.
type AttributeMap map[string]interface{}

// Has returns whether the given key is present.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// CanvasConfig is the size of the display surface drawn on.
type CanvasConfig struct {
	Width  int `json:"width_px"`
	Height int `json:"height_px"`
}

// Config is the tracker configuration.
type Config struct {
	MinSize        float64      `json:"min_size"`
	MinScore       float64      `json:"min_score"`
	MinArea        float64      `json:"min_area"`
	Palette        []string     `json:"palette"`
	StrokeWidth    float64      `json:"stroke_width"`
	TextSize       float64      `json:"text_size"`
	MaintainAspect bool         `json:"maintain_aspect"`
	LabelsPath     string       `json:"labels_path"`
	Debug          bool         `json:"debug"`
	Canvas         CanvasConfig `json:"canvas"`
	InferenceFPS   float64      `json:"inference_fps"`
	RenderFPS      float64      `json:"render_fps"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		MinSize:        tracking.DefaultMinSize,
		Palette:        rimage.DefaultPalette().Hex(),
		StrokeWidth:    DefaultStrokeWidth,
		TextSize:       DefaultTextSize,
		MaintainAspect: true,
		Canvas:         CanvasConfig{Width: DefaultCanvasWidth, Height: DefaultCanvasHeight},
		InferenceFPS:   DefaultInferenceFPS,
		RenderFPS:      DefaultRenderFPS,
	}
}

// wholeNumberHook rejects fractional JSON numbers decoded into integer fields, which mapstructure
// would otherwise truncate.
func wholeNumberHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() != reflect.Int || (from.Kind() != reflect.Float64 && from.Kind() != reflect.Float32) {
		return data, nil
	}
	f := reflect.ValueOf(data).Float()
	if f != math.Trunc(f) {
		return nil, errors.Errorf("expected a whole number, got %v", f)
	}
	return data, nil
}

// FromAttributes converts an attribute map into a Config, filling in defaults for absent keys.
// Unknown keys are an error.
func FromAttributes(am AttributeMap) (*Config, error) {
	conf := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      conf,
		ErrorUnused: true,
		DecodeHook:  wholeNumberHook,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(am); err != nil {
		return nil, errors.Wrap(err, "cannot parse tracker configuration")
	}

	def := Default()
	if !am.Has("min_size") {
		conf.MinSize = def.MinSize
	}
	if !am.Has("palette") {
		conf.Palette = def.Palette
	}
	if !am.Has("stroke_width") {
		conf.StrokeWidth = def.StrokeWidth
	}
	if !am.Has("text_size") {
		conf.TextSize = def.TextSize
	}
	if !am.Has("maintain_aspect") {
		conf.MaintainAspect = def.MaintainAspect
	}
	if conf.Canvas.Width == 0 {
		conf.Canvas.Width = def.Canvas.Width
	}
	if conf.Canvas.Height == 0 {
		conf.Canvas.Height = def.Canvas.Height
	}
	if !am.Has("inference_fps") {
		conf.InferenceFPS = def.InferenceFPS
	}
	if !am.Has("render_fps") {
		conf.RenderFPS = def.RenderFPS
	}
	return conf, nil
}

// Validate returns every problem found in the configuration. path names where it came from.
func (c *Config) Validate(path string) error {
	var err error
	fieldErr := func(field, format string, args ...interface{}) {
		err = multierr.Append(err, errors.Wrapf(errors.Errorf(format, args...), "%s: %q", path, field))
	}
	if c.MinSize < 0 {
		fieldErr("min_size", "cannot be negative, got %v", c.MinSize)
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		fieldErr("min_score", "must be within [0, 1], got %v", c.MinScore)
	}
	if c.MinArea < 0 {
		fieldErr("min_area", "cannot be negative, got %v", c.MinArea)
	}
	if len(c.Palette) == 0 {
		fieldErr("palette", "must have at least one color")
	} else if _, perr := rimage.NewPalette(c.Palette...); perr != nil {
		fieldErr("palette", "%v", perr)
	}
	if c.StrokeWidth <= 0 {
		fieldErr("stroke_width", "must be positive, got %v", c.StrokeWidth)
	}
	if c.TextSize <= 0 {
		fieldErr("text_size", "must be positive, got %v", c.TextSize)
	}
	if c.Canvas.Width < 0 || c.Canvas.Height < 0 {
		fieldErr("canvas", "dimensions must be positive, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.InferenceFPS <= 0 {
		fieldErr("inference_fps", "must be positive, got %v", c.InferenceFPS)
	}
	if c.RenderFPS <= 0 {
		fieldErr("render_fps", "must be positive, got %v", c.RenderFPS)
	}
	return err
}

// TrackerOptions builds the tracker options described by the configuration.
func (c *Config) TrackerOptions() (tracking.Options, error) {
	palette, err := rimage.NewPalette(c.Palette...)
	if err != nil {
		return tracking.Options{}, err
	}
	return tracking.Options{
		MinSize:        c.MinSize,
		Palette:        palette,
		StrokeWidth:    c.StrokeWidth,
		TextSize:       c.TextSize,
		MaintainAspect: c.MaintainAspect,
	}, nil
}

// Postprocessor returns the filters applied to every batch before tracking, or nil when neither
// min_score nor min_area is set.
func (c *Config) Postprocessor() objectdetection.Postprocessor {
	var pps []objectdetection.Postprocessor
	if c.MinScore > 0 {
		pps = append(pps, objectdetection.NewScoreFilter(c.MinScore))
	}
	if c.MinArea > 0 {
		pps = append(pps, objectdetection.NewAreaFilter(c.MinArea))
	}
	if len(pps) == 0 {
		return nil
	}
	return objectdetection.Chain(pps...)
}

// Annotator returns the label table named by labels_path, or the built-in one.
func (c *Config) Annotator() (annotation.Annotator, error) {
	if c.LabelsPath == "" {
		return annotation.DefaultTable(), nil
	}
	return annotation.LoadTableFile(c.LabelsPath)
}

func fpsToInterval(fps float64) time.Duration {
	return time.Duration(float64(time.Second) / fps)
}

// InferenceInterval is the time between two detection batches.
func (c *Config) InferenceInterval() time.Duration {
	return fpsToInterval(c.InferenceFPS)
}

// RenderInterval is the time between two draws.
func (c *Config) RenderInterval() time.Duration {
	return fpsToInterval(c.RenderFPS)
}

// SessionOptions builds the session pacing and canvas described by the configuration.
func (c *Config) SessionOptions() session.Options {
	return session.Options{
		CanvasWidth:       c.Canvas.Width,
		CanvasHeight:      c.Canvas.Height,
		InferenceInterval: c.InferenceInterval(),
		RenderInterval:    c.RenderInterval(),
		Debug:             c.Debug,
		Postprocessor:     c.Postprocessor(),
	}
}

// Schema describes the accepted configuration keys as JSON schema.
func Schema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}
