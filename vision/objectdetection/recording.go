package objectdetection

import (
	"encoding/json"
	"io"
	"os"

	"github.com/golang/geo/r2"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// FrameInfo describes the un-rotated sensor buffer the detections were produced on.
type FrameInfo struct {
	Width             int `json:"width"`
	Height            int `json:"height"`
	SensorOrientation int `json:"sensor_orientation"`
}

// Batch is every detection produced by one inference cycle.
type Batch struct {
	Timestamp  int64
	Detections []Detection
}

// Recording is a captured sequence of detection batches for one frame configuration.
type Recording struct {
	Frame   FrameInfo
	Batches []Batch
}

type jsonRect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

type jsonDetection struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Rect       *jsonRect `json:"rect,omitempty"`
}

type jsonBatch struct {
	Timestamp  int64           `json:"timestamp"`
	Detections []jsonDetection `json:"detections"`
}

type jsonRecording struct {
	Frame   FrameInfo   `json:"frame"`
	Batches []jsonBatch `json:"batches"`
}

func (jd jsonDetection) toDetection() Detection {
	if jd.Rect == nil {
		return NewDetectionWithoutBox(jd.Confidence, jd.Label)
	}
	bb := r2.RectFromPoints(
		r2.Point{X: jd.Rect.Left, Y: jd.Rect.Top},
		r2.Point{X: jd.Rect.Right, Y: jd.Rect.Bottom},
	)
	return NewDetection(bb, jd.Confidence, jd.Label)
}

// ReadRecording decodes a JSON recording of detection batches.
func ReadRecording(r io.Reader) (*Recording, error) {
	var raw jsonRecording
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "cannot decode detection recording")
	}
	for i, b := range raw.Batches {
		for j, d := range b.Detections {
			if d.Confidence < 0 || d.Confidence > 1 {
				return nil, errors.Errorf("batch %d detection %d: confidence %v is outside [0, 1]", i, j, d.Confidence)
			}
		}
	}
	return &Recording{
		Frame: raw.Frame,
		Batches: lo.Map(raw.Batches, func(b jsonBatch, _ int) Batch {
			return Batch{
				Timestamp: b.Timestamp,
				Detections: lo.Map(b.Detections, func(d jsonDetection, _ int) Detection {
					return d.toDetection()
				}),
			}
		}),
	}, nil
}

// ReadRecordingFile decodes the JSON recording stored at path.
func ReadRecordingFile(path string) (*Recording, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rec, err := ReadRecording(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", path)
	}
	return rec, nil
}

// Summary describes the detections in a recording.
type Summary struct {
	Batches          int
	Detections       int
	WithoutBox       int
	MaxPerBatch      int
	MeanConfidence   float64
	MedianConfidence float64
	MinConfidence    float64
	MaxConfidence    float64
}

// Summarize counts the detections of rec and describes their confidences. Confidence figures are
// zero when the recording has no detections.
func (rec *Recording) Summarize() (Summary, error) {
	s := Summary{Batches: len(rec.Batches)}
	var scores stats.Float64Data
	for _, b := range rec.Batches {
		s.MaxPerBatch = max(s.MaxPerBatch, len(b.Detections))
		for _, d := range b.Detections {
			if d.BoundingBox() == nil {
				s.WithoutBox++
			}
			scores = append(scores, d.Score())
		}
	}
	s.Detections = len(scores)
	if s.Detections == 0 {
		return s, nil
	}

	var err error
	if s.MeanConfidence, err = scores.Mean(); err != nil {
		return Summary{}, err
	}
	if s.MedianConfidence, err = scores.Median(); err != nil {
		return Summary{}, err
	}
	if s.MinConfidence, err = scores.Min(); err != nil {
		return Summary{}, err
	}
	if s.MaxConfidence, err = scores.Max(); err != nil {
		return Summary{}, err
	}
	return s, nil
}
