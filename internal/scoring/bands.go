// Package scoring converts aggregated metrics into 0-100 sub-scores,
// category scores, and one weighted overall score per neighbourhood.
// Missing metrics stay null through every layer: a null never defaults to
// a neutral number, and category weights are renormalized over the
// categories that produced a score.
package scoring

import "math"

// Band is one (upperBound, score) step of a threshold table.
type Band struct {
	UpperBound float64
	Score      float64
}

// Bands is an ordered threshold table: sorted ascending by bound, with the
// last band's bound effectively infinite. Used where real-world policy
// thresholds exist.
type Bands []Band

// Score returns the score of the first band whose upper bound is >= raw.
// The table being exhaustive, the last band catches everything.
func (b Bands) Score(raw float64) float64 {
	for _, band := range b {
		if raw <= band.UpperBound {
			return clamp(band.Score)
		}
	}
	if len(b) == 0 {
		return 0
	}
	return clamp(b[len(b)-1].Score)
}

// Linear is a min-max scaler for metrics without natural breakpoints.
// LowerIsBetter inverts the direction.
type Linear struct {
	Min           float64
	Max           float64
	LowerIsBetter bool
}

// Score clamps raw to [Min, Max] and scales linearly to [0, 100].
func (l Linear) Score(raw float64) float64 {
	if l.Max <= l.Min {
		return 0
	}
	v := raw
	if v < l.Min {
		v = l.Min
	}
	if v > l.Max {
		v = l.Max
	}
	score := (v - l.Min) / (l.Max - l.Min) * 100
	if l.LowerIsBetter {
		score = 100 - score
	}
	return clamp(score)
}

// Scaler converts one raw metric value into a sub-score.
type Scaler interface {
	Score(raw float64) float64
}

// apply runs a scaler over a nullable raw value; nil propagates.
func apply(raw *float64, s Scaler) *float64 {
	if raw == nil {
		return nil
	}
	score := s.Score(*raw)
	return &score
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
