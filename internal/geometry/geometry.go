// Package geometry provides the planar and spherical primitives used by the
// spatial join: ray-cast point-in-polygon with hole support, equirectangular
// ring area, vertex-averaged centroids, and haversine distance.
package geometry

import "math"

const (
	// EarthRadiusMeters is the mean Earth radius used for area computation.
	EarthRadiusMeters = 6371000.0
	// EarthRadiusKm is the mean Earth radius used for great-circle distance.
	EarthRadiusKm = 6371.0
)

// Point is a geographic coordinate in (longitude, latitude) order, matching
// the GeoJSON convention of the boundary sources.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Ring is an ordered sequence of vertices. The ring is implicitly closed:
// the last vertex connects back to the first.
type Ring []Point

// Polygon is an outer ring followed by zero or more hole rings.
type Polygon []Ring

// PointInRing reports whether p lies inside the ring using the standard
// ray-casting crossing test. Points exactly on an edge have unspecified
// membership.
func PointInRing(p Point, ring Ring) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].Lon, ring[i].Lat
		xj, yj := ring[j].Lon, ring[j].Lat
		if (yi > p.Lat) != (yj > p.Lat) &&
			p.Lon < (xj-xi)*(p.Lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// PointInPolygon reports whether p lies inside the polygon: inside the outer
// ring and inside none of the hole rings.
func PointInPolygon(p Point, poly Polygon) bool {
	if len(poly) == 0 {
		return false
	}
	if !PointInRing(p, poly[0]) {
		return false
	}
	for _, hole := range poly[1:] {
		if PointInRing(p, hole) {
			return false
		}
	}
	return true
}

// RingAreaSquareMeters returns the absolute planar area of a ring under a
// local equirectangular projection centered on the ring's mean latitude.
// The approximation is only valid for rings small relative to the Earth's
// radius, which holds for city-scale zones. Rings with fewer than three
// vertices have zero area.
func RingAreaSquareMeters(ring Ring) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}

	var meanLat float64
	for _, v := range ring {
		meanLat += v.Lat
	}
	meanLat /= float64(n)
	cosLat := math.Cos(meanLat * math.Pi / 180)

	// Project to meters and apply the shoelace formula.
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		xi := ring[i].Lon * math.Pi / 180 * EarthRadiusMeters * cosLat
		yi := ring[i].Lat * math.Pi / 180 * EarthRadiusMeters
		xj := ring[j].Lon * math.Pi / 180 * EarthRadiusMeters * cosLat
		yj := ring[j].Lat * math.Pi / 180 * EarthRadiusMeters
		sum += xi*yj - xj*yi
	}
	return math.Abs(sum / 2)
}

// PolygonAreaSquareMeters returns the outer-ring area minus the hole areas,
// floored at zero.
func PolygonAreaSquareMeters(poly Polygon) float64 {
	if len(poly) == 0 {
		return 0
	}
	area := RingAreaSquareMeters(poly[0])
	for _, hole := range poly[1:] {
		area -= RingAreaSquareMeters(hole)
	}
	if area < 0 {
		return 0
	}
	return area
}

// Centroid returns the vertex-averaged centroid of a ring. This is not the
// area-weighted centroid; the simplification is acceptable for near-convex
// city zones. Returns ok=false for rings with no vertices.
func Centroid(ring Ring) (Point, bool) {
	if len(ring) == 0 {
		return Point{}, false
	}
	var lon, lat float64
	for _, v := range ring {
		lon += v.Lon
		lat += v.Lat
	}
	n := float64(len(ring))
	return Point{Lon: lon / n, Lat: lat / n}, true
}

// HaversineKm returns the great-circle distance in kilometers between two
// coordinates given in degrees.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180
	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}
