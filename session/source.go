package session

import (
	"context"
	"io"
	"sync"

	"github.com/foodprint/multibox/vision/objectdetection"
)

// RecordingSource replays the batches of a recording in order.
type RecordingSource struct {
	mu   sync.Mutex
	rec  *objectdetection.Recording
	next int
}

// NewRecordingSource returns a source over rec.
func NewRecordingSource(rec *objectdetection.Recording) *RecordingSource {
	return &RecordingSource{rec: rec}
}

// Next returns the next batch, or io.EOF after the last.
func (rs *RecordingSource) Next(ctx context.Context) (objectdetection.Batch, error) {
	if err := ctx.Err(); err != nil {
		return objectdetection.Batch{}, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.next >= len(rs.rec.Batches) {
		return objectdetection.Batch{}, io.EOF
	}
	b := rs.rec.Batches[rs.next]
	rs.next++
	return b, nil
}

// FrameInfo returns the frame geometry of the recording.
func (rs *RecordingSource) FrameInfo() objectdetection.FrameInfo {
	return rs.rec.Frame
}
