// Package session drives a Tracker from a detection source and renders its overlay into a sink.
package session

import (
	"context"
	"image"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/fogleman/gg"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"golang.org/x/sync/errgroup"

	"github.com/foodprint/multibox/vision/objectdetection"
	"github.com/foodprint/multibox/vision/tracking"
)

// A Source produces detection batches in order. Next returns io.EOF once exhausted.
type Source interface {
	Next(ctx context.Context) (objectdetection.Batch, error)
}

// A FramedSource also knows the geometry of the frames its detections refer to.
type FramedSource interface {
	Source
	FrameInfo() objectdetection.FrameInfo
}

// A Sink receives each rendered canvas. seq starts at 1.
type Sink interface {
	Write(ctx context.Context, seq int, img image.Image) error
}

// Options configure the pacing and canvas of a Session.
type Options struct {
	CanvasWidth       int
	CanvasHeight      int
	InferenceInterval time.Duration
	RenderInterval    time.Duration
	Debug             bool
	// Postprocessor, when set, filters every batch before it is tracked.
	Postprocessor objectdetection.Postprocessor
	// Clock defaults to the wall clock.
	Clock clock.Clock
}

// Session feeds batches from a Source into a Tracker and renders the overlay into a Sink.
type Session struct {
	id      uuid.UUID
	tracker *tracking.Tracker
	source  Source
	sink    Sink
	opts    Options
	logger  golog.Logger

	mu         sync.Mutex
	background image.Image
	seq        int
}

// New makes a new session. If source is a FramedSource its frame configuration is applied to
// the tracker.
func New(tracker *tracking.Tracker, source Source, sink Sink, opts Options, logger golog.Logger) (*Session, error) {
	if tracker == nil || source == nil || sink == nil {
		return nil, errors.New("session needs a tracker, a source and a sink")
	}
	if logger == nil {
		return nil, errors.New("session needs a logger")
	}
	if opts.CanvasWidth <= 0 || opts.CanvasHeight <= 0 {
		return nil, errors.Errorf("canvas dimensions must be positive, got %dx%d", opts.CanvasWidth, opts.CanvasHeight)
	}
	if opts.InferenceInterval <= 0 || opts.RenderInterval <= 0 {
		return nil, errors.New("session intervals must be positive")
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if fs, ok := source.(FramedSource); ok {
		fi := fs.FrameInfo()
		if err := tracker.SetFrameConfiguration(fi.Width, fi.Height, fi.SensorOrientation); err != nil {
			return nil, err
		}
	}
	id := uuid.New()
	return &Session{
		id:      id,
		tracker: tracker,
		source:  source,
		sink:    sink,
		opts:    opts,
		logger:  logger.With("session", id.String()),
	}, nil
}

// ID returns the id of this session.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Tracker returns the tracker this session drives.
func (s *Session) Tracker() *tracking.Tracker {
	return s.tracker
}

// SetBackground sets the captured frame drawn underneath the overlay. nil draws no frame.
func (s *Session) SetBackground(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = img
}

// Step pulls one batch from the source into the tracker. It returns false once the source
// is exhausted.
func (s *Session) Step(ctx context.Context) (bool, error) {
	batch, err := s.source.Next(ctx)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "cannot read detection batch")
	}
	dets := batch.Detections
	if s.opts.Postprocessor != nil {
		dets = s.opts.Postprocessor(dets)
	}
	s.tracker.TrackResults(dets, batch.Timestamp)
	return true, nil
}

// Render draws the current overlay onto a fresh canvas and writes it to the sink.
func (s *Session) Render(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "multibox::session::Render")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	dc := gg.NewContext(s.opts.CanvasWidth, s.opts.CanvasHeight)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	if s.background != nil {
		if err := s.tracker.DrawFrame(dc, s.background); err != nil {
			s.logger.Debugw("not drawing background", "error", err)
		}
	}
	s.tracker.Draw(dc)
	if s.opts.Debug {
		s.tracker.DrawDebug(dc)
	}
	s.seq++
	span.AddAttributes(trace.Int64Attribute("seq", int64(s.seq)))
	return s.sink.Write(ctx, s.seq, dc.Image())
}

// Drain renders once per batch until the source is exhausted, ignoring the intervals.
func (s *Session) Drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		more, err := s.Step(ctx)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		if err := s.Render(ctx); err != nil {
			return err
		}
	}
}

// Run consumes batches every InferenceInterval and renders every RenderInterval until the
// source is exhausted, then renders one last frame and returns nil.
func (s *Session) Run(ctx context.Context) error {
	inferTicker := s.opts.Clock.Ticker(s.opts.InferenceInterval)
	defer inferTicker.Stop()
	renderTicker := s.opts.Clock.Ticker(s.opts.RenderInterval)
	defer renderTicker.Stop()

	s.logger.Debugw("session started", "inference_interval", s.opts.InferenceInterval, "render_interval", s.opts.RenderInterval)
	exhausted := make(chan struct{})
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-inferTicker.C:
				more, err := s.Step(ctx)
				if err != nil {
					return err
				}
				if !more {
					close(exhausted)
					return nil
				}
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-exhausted:
				return s.Render(ctx)
			case <-renderTicker.C:
				if err := s.Render(ctx); err != nil {
					return err
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Debugw("session finished", "frames", s.Frames())
	return nil
}

// Frames returns how many canvases have been written.
func (s *Session) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}
