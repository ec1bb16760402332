package usecase

import "math"

// defaultMaxDistance is the nominal upper bound of a cosine-type distance.
const defaultMaxDistance = 2.0

// ConfidenceNormalizer maps a raw corpus distance onto a bounded [0, 1] score.
type ConfidenceNormalizer struct {
	maxDistance float64
}

func NewConfidenceNormalizer(maxDistance float64) *ConfidenceNormalizer {
	if maxDistance <= 0 {
		maxDistance = defaultMaxDistance
	}
	return &ConfidenceNormalizer{maxDistance: maxDistance}
}

// Score is a pure function of distance: clamp(1 - d/max, 0, 1) rounded to two
// decimal places. A nil distance means no evidence and scores 0.
func (n *ConfidenceNormalizer) Score(distance *float64) float64 {
	if distance == nil {
		return 0
	}
	score := 1 - *distance/n.maxDistance
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return math.Round(score*100) / 100
}
