// Package overlay loads optional tabular datasets keyed by neighbourhood or
// zone id: walk/transit/bike indices, commute times, health indicators, and
// census attributes. A wholly absent overlay is not an error; its metrics
// stay null.
package overlay

import (
	"strconv"
	"strings"

	"github.com/ottcivic/liveability-cli/internal/catalog"
)

// Indices carries the walkability-style indices for one neighbourhood.
// All fields are nullable; the indices are already on a 0-100 scale.
type Indices struct {
	Walk    *float64 `json:"walk,omitempty"`
	Transit *float64 `json:"transit,omitempty"`
	Bike    *float64 `json:"bike,omitempty"`
}

// Health carries externally computed health and equity indicators.
type Health struct {
	NEI                *float64 `json:"nei,omitempty"`
	SelfRatedHealthPct *float64 `json:"selfRatedHealthPct,omitempty"`
	FoodSafetyPct      *float64 `json:"foodSafetyPct,omitempty"`
}

// Set is the full collection of loaded overlays. Missing maps or missing
// keys both read as null downstream.
type Set struct {
	Indices        map[catalog.NeighbourhoodID]Indices
	Health         map[catalog.NeighbourhoodID]Health
	CommuteMinutes map[catalog.NeighbourhoodID]*float64
	ZoneAttrs      map[catalog.ZoneID]catalog.ZoneAttributes
}

// IndicesFor returns the indices for a neighbourhood, zero-valued when the
// overlay or the key is absent.
func (s *Set) IndicesFor(id catalog.NeighbourhoodID) Indices {
	if s == nil || s.Indices == nil {
		return Indices{}
	}
	return s.Indices[id]
}

// HealthFor returns the health indicators for a neighbourhood.
func (s *Set) HealthFor(id catalog.NeighbourhoodID) Health {
	if s == nil || s.Health == nil {
		return Health{}
	}
	return s.Health[id]
}

// CommuteFor returns the average commute minutes for a neighbourhood.
func (s *Set) CommuteFor(id catalog.NeighbourhoodID) *float64 {
	if s == nil || s.CommuteMinutes == nil {
		return nil
	}
	return s.CommuteMinutes[id]
}

// parseFloatCell parses a table cell into a nullable float. Empty cells and
// sentinel markers read as null.
func parseFloatCell(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "-" || strings.EqualFold(raw, "n/a") || strings.EqualFold(raw, "null") {
		return nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return nil
	}
	return &f
}
