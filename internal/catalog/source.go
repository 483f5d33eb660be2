package catalog

import (
	"github.com/ottcivic/liveability-cli/internal/geometry"
)

// BoundaryRecord is one zone as delivered by a boundary source.
type BoundaryRecord struct {
	ID       ZoneID
	Name     string
	Polygons []geometry.Polygon
	Attrs    ZoneAttributes
}

// BoundarySource resolves zone ids to boundary records. Sources are
// read-only once constructed.
type BoundarySource interface {
	Zone(id ZoneID) (*BoundaryRecord, bool)
	Len() int
}

// StaticSource is an in-memory boundary source keyed by zone id.
type StaticSource struct {
	records map[ZoneID]*BoundaryRecord
}

// NewStaticSource builds a source from a record slice. Later duplicates of
// a zone id replace earlier ones.
func NewStaticSource(records []BoundaryRecord) *StaticSource {
	s := &StaticSource{records: make(map[ZoneID]*BoundaryRecord, len(records))}
	for i := range records {
		rec := records[i]
		s.records[rec.ID] = &rec
	}
	return s
}

// Zone returns the record for a zone id.
func (s *StaticSource) Zone(id ZoneID) (*BoundaryRecord, bool) {
	rec, ok := s.records[id]
	return rec, ok
}

// Len returns the number of zones in the source.
func (s *StaticSource) Len() int {
	return len(s.records)
}

// MergeAttributes attaches overlay attributes to zones already in the
// source. Unknown zone ids are ignored; the overlay being partial must not
// error.
func (s *StaticSource) MergeAttributes(attrs map[ZoneID]ZoneAttributes) {
	for id, a := range attrs {
		rec, ok := s.records[id]
		if !ok {
			continue
		}
		if a.Population != 0 {
			rec.Attrs.Population = a.Population
		}
		if a.MedianHouseholdIncome != nil {
			rec.Attrs.MedianHouseholdIncome = a.MedianHouseholdIncome
		}
		if a.AvgHouseholdSize != nil {
			rec.Attrs.AvgHouseholdSize = a.AvgHouseholdSize
		}
		if a.TreeCanopyPct != nil {
			rec.Attrs.TreeCanopyPct = a.TreeCanopyPct
		}
		if a.UnemploymentPct != nil {
			rec.Attrs.UnemploymentPct = a.UnemploymentPct
		}
		if len(a.CrimeCounts) > 0 {
			rec.Attrs.CrimeCounts = a.CrimeCounts
		}
		if a.CrimeYears != 0 {
			rec.Attrs.CrimeYears = a.CrimeYears
		}
		for k, v := range a.Extra {
			if rec.Attrs.Extra == nil {
				rec.Attrs.Extra = make(map[string]float64)
			}
			rec.Attrs.Extra[k] = v
		}
	}
}
