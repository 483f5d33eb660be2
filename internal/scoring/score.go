package scoring

import (
	"math"

	"github.com/ottcivic/liveability-cli/internal/metrics"
)

// ScoreSet is the scored view of one neighbourhood.
type ScoreSet struct {
	SubScores  map[string]*float64   `json:"subScores"`
	Categories map[Category]*float64 `json:"categories"`
	Overall    *float64              `json:"overall"`
}

// ScoreNeighbourhood converts an aggregated metric bag into sub-scores, one
// score per category, and the weighted overall. Every level propagates null:
// a category with no scored metric gets nil and drops out of the overall,
// whose weights renormalize over the categories that have data.
func ScoreNeighbourhood(m *metrics.Result) *ScoreSet {
	set := &ScoreSet{
		SubScores:  make(map[string]*float64),
		Categories: make(map[Category]*float64),
	}

	for cat, defs := range categoryMetrics {
		var scored []*float64
		for _, def := range defs {
			s := apply(def.Extract(m), def.Scaler)
			set.SubScores[def.Name] = s
			scored = append(scored, s)
		}
		if cat == CategorySafety {
			crime := crimeScore(m)
			set.SubScores["crime"] = crime
			scored = append(scored, crime)
		}
		set.Categories[cat] = meanOfPresent(scored)
	}

	set.Overall = overall(set.Categories)
	return set
}

// crimeScore composites the per-bucket crime rates with violent incidents
// weighted heaviest. If any bucket rate is unavailable, the single
// undifferentiated total rate is scored instead; with no crime data at all
// the score is null.
func crimeScore(m *metrics.Result) *float64 {
	if m.CrimeRatePer1k == nil {
		return nil
	}
	violent := m.CrimeBucketRates[metrics.CrimeViolent]
	property := m.CrimeBucketRates[metrics.CrimeProperty]
	other := m.CrimeBucketRates[metrics.CrimeOther]
	if violent == nil || property == nil || other == nil {
		s := clamp(CrimeRateBands.Score(*m.CrimeRatePer1k))
		return &s
	}
	s := CrimeRateBands.Score(*violent)*crimeViolentWeight +
		CrimeRateBands.Score(*property)*crimePropertyWeight +
		CrimeRateBands.Score(*other)*crimeOtherWeight
	s = clamp(s)
	return &s
}

// meanOfPresent averages the non-nil scores; all-nil yields nil.
func meanOfPresent(scores []*float64) *float64 {
	var sum float64
	var n int
	for _, s := range scores {
		if s == nil {
			continue
		}
		sum += *s
		n++
	}
	if n == 0 {
		return nil
	}
	mean := round2(sum / float64(n))
	return &mean
}

// overall folds category scores with the canonical weights, renormalizing
// over the categories that produced a score.
func overall(categories map[Category]*float64) *float64 {
	var sum, weight float64
	for cat, score := range categories {
		if score == nil {
			continue
		}
		w := CategoryWeights[cat]
		sum += *score * w
		weight += w
	}
	if weight == 0 {
		return nil
	}
	o := round2(sum / weight)
	return &o
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
