// Package feature models raw point datasets and their spatial assignment to
// neighbourhoods.
package feature

import (
	"strconv"
	"strings"

	"github.com/ottcivic/liveability-cli/internal/geometry"
)

// Category tags a point dataset. The set is fixed by the ingest
// configuration, not discovered from data.
type Category string

const (
	CategoryPark         Category = "park"
	CategorySchool       Category = "school"
	CategoryLibrary      Category = "library"
	CategoryGym          Category = "gym"
	CategoryGrocery      Category = "grocery"
	CategoryDining       Category = "dining"
	CategoryHospital     Category = "hospital"
	CategoryTransitStop  Category = "transit_stop"
	CategoryRapidStation Category = "rapid_station"
	CategoryCrime        Category = "crime"
	CategoryCollision    Category = "collision"
	CategoryCycling      Category = "cycling"
	CategoryService      Category = "service_request"
)

// Point is a category-tagged geolocated record with a category-specific
// attribute bag. Points are ephemeral: read once, assigned at most once,
// then folded into aggregates.
type Point struct {
	Category Category          `json:"category"`
	Name     string            `json:"name,omitempty"`
	Lat      float64           `json:"lat"`
	Lon      float64           `json:"lon"`
	Attrs    map[string]string `json:"attrs,omitempty"`
}

// Coord returns the point's location in the kernel's (lon, lat) order.
func (p *Point) Coord() geometry.Point {
	return geometry.Point{Lon: p.Lon, Lat: p.Lat}
}

// AttrFloat parses a named attribute as a float.
func (p *Point) AttrFloat(key string) (float64, bool) {
	raw, ok := p.Attrs[key]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// RowSchema describes how to pull a point out of a tabular row.
type RowSchema struct {
	LatColumn  int
	LonColumn  int
	NameColumn int            // -1 when the dataset has no name column
	AttrCols   map[string]int // attribute name -> column index
}

// FromRow builds a point from one tabular row. Rows with missing or
// non-numeric coordinates are rejected; the caller counts them.
func FromRow(category Category, row []string, schema RowSchema) (*Point, bool) {
	lat, ok := parseCoord(row, schema.LatColumn)
	if !ok {
		return nil, false
	}
	lon, ok := parseCoord(row, schema.LonColumn)
	if !ok {
		return nil, false
	}
	// A (0, 0) coordinate in a city dataset is a null island artifact.
	if lat == 0 && lon == 0 {
		return nil, false
	}

	p := &Point{Category: category, Lat: lat, Lon: lon}
	if schema.NameColumn >= 0 && schema.NameColumn < len(row) {
		p.Name = strings.TrimSpace(row[schema.NameColumn])
	}
	for key, col := range schema.AttrCols {
		if col >= 0 && col < len(row) {
			if v := strings.TrimSpace(row[col]); v != "" {
				if p.Attrs == nil {
					p.Attrs = make(map[string]string, len(schema.AttrCols))
				}
				p.Attrs[key] = v
			}
		}
	}
	return p, true
}

func parseCoord(row []string, col int) (float64, bool) {
	if col < 0 || col >= len(row) {
		return 0, false
	}
	raw := strings.TrimSpace(row[col])
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
