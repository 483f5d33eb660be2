package feature

import (
	"github.com/ottcivic/liveability-cli/internal/catalog"
)

// Unassigned is the sentinel neighbourhood id for points no neighbourhood
// contains.
const Unassigned = catalog.NeighbourhoodID("")

// AssignReport accumulates per-category counters for the run summary. It is
// an explicit return object; nothing here feeds into scoring.
type AssignReport struct {
	Assigned   map[Category]int `json:"assigned"`
	Unassigned map[Category]int `json:"unassigned"`
	Rejected   map[Category]int `json:"rejected"`
}

// NewAssignReport returns an empty report.
func NewAssignReport() *AssignReport {
	return &AssignReport{
		Assigned:   make(map[Category]int),
		Unassigned: make(map[Category]int),
		Rejected:   make(map[Category]int),
	}
}

// Assigner performs the spatial join of points onto the catalog. The
// catalog's declaration order is the tie-break when boundaries overlap:
// the first neighbourhood containing the point wins.
type Assigner struct {
	catalog *catalog.Catalog
}

// NewAssigner creates an assigner over a resolved catalog.
func NewAssigner(c *catalog.Catalog) *Assigner {
	return &Assigner{catalog: c}
}

// Assign returns the id of the first neighbourhood whose polygon set
// contains the point, or Unassigned.
func (a *Assigner) Assign(p *Point) catalog.NeighbourhoodID {
	coord := p.Coord()
	for _, n := range a.catalog.Neighbourhoods() {
		if n.Contains(coord) {
			return n.ID
		}
	}
	return Unassigned
}

// AssignZone is the per-zone variant: it also reports which zone matched,
// for statistics kept per-zone as well as rolled up per-neighbourhood.
// zoneOK is false for custom-boundary neighbourhoods.
func (a *Assigner) AssignZone(p *Point) (nid catalog.NeighbourhoodID, zid catalog.ZoneID, zoneOK bool) {
	coord := p.Coord()
	for _, n := range a.catalog.Neighbourhoods() {
		if !n.Contains(coord) {
			continue
		}
		if z, ok := n.MatchingZone(coord); ok {
			return n.ID, z, true
		}
		return n.ID, "", false
	}
	return Unassigned, "", false
}

// AssignAll joins a point slice onto the catalog, returning points grouped
// by neighbourhood id and updating the report counters.
func (a *Assigner) AssignAll(points []*Point, report *AssignReport) map[catalog.NeighbourhoodID][]*Point {
	out := make(map[catalog.NeighbourhoodID][]*Point)
	for _, p := range points {
		nid := a.Assign(p)
		if nid == Unassigned {
			report.Unassigned[p.Category]++
			continue
		}
		report.Assigned[p.Category]++
		out[nid] = append(out[nid], p)
	}
	return out
}
