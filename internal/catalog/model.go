// Package catalog resolves the curated neighbourhood list into administrative
// zone polygons. Iteration order of the catalog is the insertion order of the
// mapping configuration and is the documented tie-break for the first-match
// spatial join downstream.
package catalog

import (
	"github.com/ottcivic/liveability-cli/internal/geometry"
)

// ZoneID identifies an administrative/statistical zone in the boundary source.
type ZoneID string

// NeighbourhoodID identifies a curated neighbourhood. Stable across runs.
type NeighbourhoodID string

// ZoneAttributes carries the zone-local demographic and crime snapshot
// attached by the boundary source. Pointer fields are nil when the source
// did not provide the attribute.
type ZoneAttributes struct {
	Population            int                `json:"population"`
	MedianHouseholdIncome *float64           `json:"medianHouseholdIncome,omitempty"`
	AvgHouseholdSize      *float64           `json:"avgHouseholdSize,omitempty"`
	TreeCanopyPct         *float64           `json:"treeCanopyPct,omitempty"`
	UnemploymentPct       *float64           `json:"unemploymentPct,omitempty"`
	CrimeCounts           map[string]int     `json:"crimeCounts,omitempty"`
	CrimeYears            float64            `json:"crimeYears,omitempty"`
	Extra                 map[string]float64 `json:"extra,omitempty"`
}

// Zone is one administrative polygon (possibly multipart) backing a
// neighbourhood.
type Zone struct {
	ID       ZoneID             `json:"id"`
	Name     string             `json:"name"`
	Polygons []geometry.Polygon `json:"polygons"`
	Attrs    ZoneAttributes     `json:"attrs"`
}

// AreaSquareMeters is the sum of the zone's polygon areas.
func (z *Zone) AreaSquareMeters() float64 {
	var area float64
	for _, p := range z.Polygons {
		area += geometry.PolygonAreaSquareMeters(p)
	}
	return area
}

// Contains reports whether the point lies inside any of the zone's polygons.
func (z *Zone) Contains(p geometry.Point) bool {
	for _, poly := range z.Polygons {
		if geometry.PointInPolygon(p, poly) {
			return true
		}
	}
	return false
}

// Centroid returns the vertex-averaged centroid of the zone's largest outer
// ring. ok is false when the zone has no usable ring.
func (z *Zone) Centroid() (geometry.Point, bool) {
	var best geometry.Ring
	var bestArea float64
	for _, poly := range z.Polygons {
		if len(poly) == 0 {
			continue
		}
		a := geometry.RingAreaSquareMeters(poly[0])
		if best == nil || a > bestArea {
			best = poly[0]
			bestArea = a
		}
	}
	if best == nil {
		return geometry.Point{}, false
	}
	return geometry.Centroid(best)
}

// Neighbourhood is a curated unit composed of one or more zones, or of a
// single literal boundary override.
type Neighbourhood struct {
	ID    NeighbourhoodID `json:"id"`
	Name  string          `json:"name"`
	Zones []Zone          `json:"zones"`

	// Custom is set instead of Zones when the mapping declares a literal
	// boundary for this neighbourhood.
	Custom []geometry.Polygon `json:"custom,omitempty"`
}

// Population is the sum of the zone populations. Zero for custom-boundary
// neighbourhoods with no attached zones.
func (n *Neighbourhood) Population() int {
	var pop int
	for i := range n.Zones {
		pop += n.Zones[i].Attrs.Population
	}
	return pop
}

// AreaSquareMeters is the sum of zone areas, or the custom boundary area.
func (n *Neighbourhood) AreaSquareMeters() float64 {
	if len(n.Custom) > 0 {
		var area float64
		for _, p := range n.Custom {
			area += geometry.PolygonAreaSquareMeters(p)
		}
		return area
	}
	var area float64
	for i := range n.Zones {
		area += n.Zones[i].AreaSquareMeters()
	}
	return area
}

// AreaKm2 is the neighbourhood area in square kilometers.
func (n *Neighbourhood) AreaKm2() float64 {
	return n.AreaSquareMeters() / 1e6
}

// Contains reports whether the point lies inside the neighbourhood: inside
// the custom boundary when present, otherwise inside any zone.
func (n *Neighbourhood) Contains(p geometry.Point) bool {
	if len(n.Custom) > 0 {
		for _, poly := range n.Custom {
			if geometry.PointInPolygon(p, poly) {
				return true
			}
		}
		return false
	}
	for i := range n.Zones {
		if n.Zones[i].Contains(p) {
			return true
		}
	}
	return false
}

// MatchingZone returns the id of the first zone containing the point. Used
// when statistics are kept per-zone as well as per-neighbourhood. ok is
// false for custom-boundary neighbourhoods and non-containing points.
func (n *Neighbourhood) MatchingZone(p geometry.Point) (ZoneID, bool) {
	for i := range n.Zones {
		if n.Zones[i].Contains(p) {
			return n.Zones[i].ID, true
		}
	}
	return "", false
}

// Centroid is the unweighted mean of the zone centroids, excluding zones
// with no resolvable centroid. Custom-boundary neighbourhoods use the
// centroid of their largest outer ring.
func (n *Neighbourhood) Centroid() (geometry.Point, bool) {
	if len(n.Custom) > 0 {
		var best geometry.Ring
		var bestArea float64
		for _, poly := range n.Custom {
			if len(poly) == 0 {
				continue
			}
			a := geometry.RingAreaSquareMeters(poly[0])
			if best == nil || a > bestArea {
				best = poly[0]
				bestArea = a
			}
		}
		if best == nil {
			return geometry.Point{}, false
		}
		return geometry.Centroid(best)
	}

	var lon, lat float64
	var count int
	for i := range n.Zones {
		c, ok := n.Zones[i].Centroid()
		if !ok {
			continue
		}
		lon += c.Lon
		lat += c.Lat
		count++
	}
	if count == 0 {
		return geometry.Point{}, false
	}
	return geometry.Point{Lon: lon / float64(count), Lat: lat / float64(count)}, true
}
