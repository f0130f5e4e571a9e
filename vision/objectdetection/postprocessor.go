package objectdetection

import "github.com/samber/lo"

// Postprocessor filters a detection batch before it reaches the tracker. It must keep batch order.
type Postprocessor func([]Detection) []Detection

// NewAreaFilter keeps detections whose box covers at least minArea square frame pixels.
// Detections without a box are dropped.
func NewAreaFilter(minArea float64) Postprocessor {
	return func(in []Detection) []Detection {
		return lo.Filter(in, func(d Detection, _ int) bool {
			bb := d.BoundingBox()
			return bb != nil && bb.X.Length()*bb.Y.Length() >= minArea
		})
	}
}

// NewScoreFilter keeps detections whose confidence is at least minScore, with or without a box.
func NewScoreFilter(minScore float64) Postprocessor {
	return func(in []Detection) []Detection {
		return lo.Filter(in, func(d Detection, _ int) bool {
			return d.Score() >= minScore
		})
	}
}

// Chain applies the postprocessors in order. Nil entries are skipped.
func Chain(pps ...Postprocessor) Postprocessor {
	return func(in []Detection) []Detection {
		for _, pp := range pps {
			if pp != nil {
				in = pp(in)
			}
		}
		return in
	}
}
