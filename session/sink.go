package session

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// PNGDirSink writes every canvas as a numbered PNG file in Dir.
type PNGDirSink struct {
	Dir string
}

// NewPNGDirSink creates dir if needed.
func NewPNGDirSink(dir string) (*PNGDirSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "cannot create output directory %q", dir)
	}
	return &PNGDirSink{Dir: dir}, nil
}

// Path returns the file a canvas with the given sequence number is written to.
func (s *PNGDirSink) Path(seq int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("frame_%05d.png", seq))
}

// Write saves img.
func (s *PNGDirSink) Write(ctx context.Context, seq int, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return imaging.Save(img, s.Path(seq))
}

// MemorySink keeps every canvas in memory.
type MemorySink struct {
	mu     sync.Mutex
	frames []image.Image
}

// Write appends img.
func (s *MemorySink) Write(ctx context.Context, seq int, img image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, img)
	return nil
}

// Frames returns the canvases written so far.
func (s *MemorySink) Frames() []image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]image.Image(nil), s.frames...)
}
