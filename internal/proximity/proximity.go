// Package proximity computes nearest-facility metrics for categories scored
// by distance rather than containment (hospitals, rapid-transit stations).
package proximity

import (
	"github.com/ottcivic/liveability-cli/internal/catalog"
	"github.com/ottcivic/liveability-cli/internal/feature"
	"github.com/ottcivic/liveability-cli/internal/geometry"
)

// Nearest describes the closest facility to a neighbourhood centroid.
// A nil DistanceKm means no facility of that type exists in the dataset:
// the null must survive to the output, never infinity.
type Nearest struct {
	DistanceKm *float64 `json:"distanceKm"`
	Name       string   `json:"name,omitempty"`
	Subtype    string   `json:"subtype,omitempty"`
}

// FacilitySet is one group of candidate facilities under a subtype label.
// Subtypes exist for datasets like rapid transit where two modes are scored
// against the same metric.
type FacilitySet struct {
	Subtype string
	Points  []*feature.Point
}

// NearestTo returns the minimum great-circle distance from the
// neighbourhood's centroid across the union of the facility sets, tagged
// with the winning facility and subtype. Neighbourhoods with no resolvable
// centroid, or an empty union, get a nil distance.
func NearestTo(n *catalog.Neighbourhood, sets ...FacilitySet) Nearest {
	centroid, ok := n.Centroid()
	if !ok {
		return Nearest{}
	}
	return NearestFrom(centroid, sets...)
}

// NearestFrom is NearestTo with an explicit origin, for callers that have
// already computed the centroid.
func NearestFrom(origin geometry.Point, sets ...FacilitySet) Nearest {
	var best Nearest
	for _, set := range sets {
		for _, p := range set.Points {
			d := geometry.HaversineKm(origin.Lat, origin.Lon, p.Lat, p.Lon)
			if best.DistanceKm == nil || d < *best.DistanceKm {
				dist := d
				best = Nearest{DistanceKm: &dist, Name: p.Name, Subtype: set.Subtype}
			}
		}
	}
	return best
}
