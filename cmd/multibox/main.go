// Package main replays recorded detections through the overlay tracker and writes the
// rendered canvases as PNG files. It can also inspect recordings and print the label table.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/edaniels/golog"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"github.com/foodprint/multibox/config"
	"github.com/foodprint/multibox/rimage"
	"github.com/foodprint/multibox/session"
	"github.com/foodprint/multibox/vision/objectdetection"
	"github.com/foodprint/multibox/vision/tracking"
)

const (
	flagConfig       = "config"
	flagDebug        = "debug"
	flagLogFile      = "log-file"
	flagRecording    = "recording"
	flagOut          = "out"
	flagBackground   = "background"
	flagWidth        = "width"
	flagHeight       = "height"
	flagOverlayDebug = "overlay-debug"
	flagWatch        = "watch"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	var logger golog.Logger

	sessionFlags := []cli.Flag{
		&cli.StringFlag{
			Name:     flagRecording,
			Aliases:  []string{"r"},
			Usage:    "read detection batches from `FILE`",
			Required: true,
		},
		&cli.StringFlag{
			Name:     flagOut,
			Aliases:  []string{"o"},
			Usage:    "write rendered canvases into `DIR`",
			Required: true,
		},
		&cli.StringFlag{
			Name:  flagBackground,
			Usage: "draw the captured frame in `FILE` underneath the overlay",
		},
		&cli.IntFlag{
			Name:  flagWidth,
			Usage: "canvas width in pixels, overrides the config",
		},
		&cli.IntFlag{
			Name:  flagHeight,
			Usage: "canvas height in pixels, overrides the config",
		},
		&cli.BoolFlag{
			Name:  flagOverlayDebug,
			Usage: "also draw every raw detection",
		},
	}

	return &cli.App{
		Name:  "multibox",
		Usage: "draw tracked detections over camera frames",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also log to the rotated `FILE`",
			},
		},
		Before: func(c *cli.Context) error {
			logger = newLogger(c.Bool(flagDebug), c.String(flagLogFile))
			return nil
		},
		After: func(c *cli.Context) error {
			if logger != nil {
				goutils.UncheckedError(logger.Sync())
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "labels",
				Usage: "print the label annotations in use",
				Action: func(c *cli.Context) error {
					conf, err := loadConfig(c, logger)
					if err != nil {
						return err
					}
					annotator, err := conf.Annotator()
					if err != nil {
						return err
					}
					printf(c, "%v\n", annotator)
					return nil
				},
			},
			{
				Name:      "inspect",
				Usage:     "summarize a detection recording",
				ArgsUsage: "<recording>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return errors.New("expected exactly one recording")
					}
					rec, err := objectdetection.ReadRecordingFile(c.Args().First())
					if err != nil {
						return err
					}
					summary, err := rec.Summarize()
					if err != nil {
						return err
					}
					printf(c, "%s\n", summaryTable(rec.Frame, summary))
					return nil
				},
			},
			{
				Name:  "schema",
				Usage: "print the JSON schema of the config file",
				Action: func(c *cli.Context) error {
					out, err := json.MarshalIndent(config.Schema(), "", "  ")
					if err != nil {
						return err
					}
					printf(c, "%s\n", out)
					return nil
				},
			},
			{
				Name:  "render",
				Usage: "render one canvas per detection batch",
				Flags: sessionFlags,
				Action: func(c *cli.Context) error {
					sess, _, err := newSession(c, logger)
					if err != nil {
						return err
					}
					if err := sess.Drain(c.Context); err != nil {
						return err
					}
					logger.Infow("rendered", "frames", sess.Frames(), "out", c.String(flagOut))
					return nil
				},
			},
			{
				Name:  "replay",
				Usage: "replay detection batches at the configured rates",
				Flags: append(append([]cli.Flag{}, sessionFlags...), &cli.BoolFlag{
					Name:  flagWatch,
					Usage: "reconfigure the tracker when the config file changes",
				}),
				Action: func(c *cli.Context) error {
					sess, conf, err := newSession(c, logger)
					if err != nil {
						return err
					}
					ctx, cancel := context.WithCancel(c.Context)
					defer cancel()
					if path := c.String(flagConfig); path != "" && c.Bool(flagWatch) {
						watchDone := make(chan struct{})
						defer func() { <-watchDone }()
						defer cancel()
						go func() {
							defer close(watchDone)
							goutils.UncheckedError(config.Watch(ctx, path, logger, func(next *config.Config) {
								reconfigure(sess.Tracker(), next, logger)
							}))
						}()
					}
					logger.Infow("replaying", "session", sess.ID().String(), "render_fps", conf.RenderFPS)
					if err := sess.Run(ctx); err != nil {
						return err
					}
					logger.Infow("replayed", "frames", sess.Frames(), "out", c.String(flagOut))
					return nil
				},
			},
		},
	}
}

func printf(c *cli.Context, format string, a ...interface{}) {
	_, err := fmt.Fprintf(c.App.Writer, format, a...)
	goutils.UncheckedError(err)
}

func summaryTable(frame objectdetection.FrameInfo, s objectdetection.Summary) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"Frame", fmt.Sprintf("%dx%d @ %d°", frame.Width, frame.Height, frame.SensorOrientation)},
		{"Batches", s.Batches},
		{"Detections", s.Detections},
		{"Without box", s.WithoutBox},
		{"Max per batch", s.MaxPerBatch},
		{"Mean confidence", fmt.Sprintf("%.4f", s.MeanConfidence)},
		{"Median confidence", fmt.Sprintf("%.4f", s.MedianConfidence)},
		{"Confidence range", fmt.Sprintf("%.4f - %.4f", s.MinConfidence, s.MaxConfidence)},
	})
	return t.Render()
}

func loadConfig(c *cli.Context, logger golog.Logger) (*config.Config, error) {
	path := c.String(flagConfig)
	if path == "" {
		return config.Default(), nil
	}
	return config.Read(path, logger)
}

func newSession(c *cli.Context, logger golog.Logger) (*session.Session, *config.Config, error) {
	conf, err := loadConfig(c, logger)
	if err != nil {
		return nil, nil, err
	}
	if w := c.Int(flagWidth); w > 0 {
		conf.Canvas.Width = w
	}
	if h := c.Int(flagHeight); h > 0 {
		conf.Canvas.Height = h
	}
	if c.Bool(flagOverlayDebug) {
		conf.Debug = true
	}

	opts, err := conf.TrackerOptions()
	if err != nil {
		return nil, nil, err
	}
	annotator, err := conf.Annotator()
	if err != nil {
		return nil, nil, err
	}
	tracker, err := tracking.NewTracker(tracking.NewOverlayState(), opts, annotator, logger.Named("tracker"))
	if err != nil {
		return nil, nil, err
	}

	rec, err := objectdetection.ReadRecordingFile(c.String(flagRecording))
	if err != nil {
		return nil, nil, err
	}
	sink, err := session.NewPNGDirSink(c.String(flagOut))
	if err != nil {
		return nil, nil, err
	}
	sess, err := session.New(tracker, session.NewRecordingSource(rec), sink, conf.SessionOptions(), logger.Named("session"))
	if err != nil {
		return nil, nil, err
	}

	if path := c.String(flagBackground); path != "" {
		bg, err := rimage.ReadFrameFile(path)
		if err != nil {
			return nil, nil, err
		}
		sess.SetBackground(bg)
	}
	return sess, conf, nil
}

func reconfigure(tracker *tracking.Tracker, conf *config.Config, logger golog.Logger) {
	opts, err := conf.TrackerOptions()
	if err != nil {
		logger.Warnw("ignoring config change", "error", err)
		return
	}
	if err := tracker.Reconfigure(opts); err != nil {
		logger.Warnw("ignoring config change", "error", err)
		return
	}
	logger.Infow("tracker reconfigured", "min_size", opts.MinSize, "palette_size", opts.Palette.Len())
}
