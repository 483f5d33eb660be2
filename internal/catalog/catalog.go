package catalog

import (
	"go.uber.org/zap"

	"github.com/ottcivic/liveability-cli/internal/geometry"
)

// Catalog is the resolved, ordered set of neighbourhoods. The order is the
// mapping config's declaration order and is stable for the lifetime of a
// run; the spatial join downstream relies on it as the first-match
// tie-break for overlapping boundaries.
type Catalog struct {
	neighbourhoods []Neighbourhood
	index          map[NeighbourhoodID]int
}

// ResolveReport summarizes what the resolver could and could not find.
type ResolveReport struct {
	Neighbourhoods int `json:"neighbourhoods"`
	ZonesResolved  int `json:"zonesResolved"`
	ZonesMissing   int `json:"zonesMissing"`
}

// Resolve builds a catalog from the mapping config and a boundary source.
// Missing zone ids are skipped; a neighbourhood resolving to zero zones
// still exists with zero population and area.
func Resolve(mapping *Mapping, source BoundarySource) (*Catalog, ResolveReport) {
	c := &Catalog{
		neighbourhoods: make([]Neighbourhood, 0, len(mapping.Neighbourhoods)),
		index:          make(map[NeighbourhoodID]int, len(mapping.Neighbourhoods)),
	}
	var report ResolveReport

	for _, entry := range mapping.Neighbourhoods {
		n := Neighbourhood{
			ID:   NeighbourhoodID(entry.ID),
			Name: entry.Name,
		}

		if len(entry.Boundary) > 0 {
			if poly := boundaryToPolygon(entry.Boundary); len(poly) > 0 {
				n.Custom = []geometry.Polygon{poly}
			}
		} else {
			for _, zid := range entry.Zones {
				rec, ok := source.Zone(ZoneID(zid))
				if !ok {
					report.ZonesMissing++
					zap.L().Warn("catalog: zone not found in boundary source",
						zap.String("neighbourhood", entry.ID),
						zap.String("zone", zid),
					)
					continue
				}
				n.Zones = append(n.Zones, Zone{
					ID:       rec.ID,
					Name:     rec.Name,
					Polygons: rec.Polygons,
					Attrs:    rec.Attrs,
				})
				report.ZonesResolved++
			}
		}

		c.index[n.ID] = len(c.neighbourhoods)
		c.neighbourhoods = append(c.neighbourhoods, n)
	}

	report.Neighbourhoods = len(c.neighbourhoods)
	return c, report
}

// Neighbourhoods returns the neighbourhoods in catalog order. Callers must
// not mutate the returned slice.
func (c *Catalog) Neighbourhoods() []Neighbourhood {
	return c.neighbourhoods
}

// Lookup returns the neighbourhood with the given id.
func (c *Catalog) Lookup(id NeighbourhoodID) (*Neighbourhood, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return &c.neighbourhoods[i], true
}

// Len returns the number of neighbourhoods.
func (c *Catalog) Len() int {
	return len(c.neighbourhoods)
}
