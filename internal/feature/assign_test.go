package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ottcivic/liveability-cli/internal/catalog"
	"github.com/ottcivic/liveability-cli/internal/geometry"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	source := catalog.NewStaticSource([]catalog.BoundaryRecord{
		{
			ID: "Z-WEST",
			Polygons: []geometry.Polygon{{
				{{Lon: -76.0, Lat: 45.0}, {Lon: -75.9, Lat: 45.0}, {Lon: -75.9, Lat: 45.1}, {Lon: -76.0, Lat: 45.1}},
			}},
			Attrs: catalog.ZoneAttributes{Population: 1000},
		},
		{
			ID: "Z-EAST",
			Polygons: []geometry.Polygon{{
				{{Lon: -75.9, Lat: 45.0}, {Lon: -75.8, Lat: 45.0}, {Lon: -75.8, Lat: 45.1}, {Lon: -75.9, Lat: 45.1}},
			}},
			Attrs: catalog.ZoneAttributes{Population: 2000},
		},
		{
			// Overlaps Z-WEST entirely; declared under the second
			// neighbourhood to exercise the first-match tie-break.
			ID: "Z-OVERLAP",
			Polygons: []geometry.Polygon{{
				{{Lon: -76.0, Lat: 45.0}, {Lon: -75.9, Lat: 45.0}, {Lon: -75.9, Lat: 45.1}, {Lon: -76.0, Lat: 45.1}},
			}},
		},
	})

	mapping, err := catalog.ParseMapping([]byte(`
neighbourhoods:
  - name: West End
    zones: ["Z-WEST"]
  - name: East End
    zones: ["Z-EAST", "Z-OVERLAP"]
`))
	require.NoError(t, err)

	cat, _ := catalog.Resolve(mapping, source)
	return cat
}

func TestAssign_FirstMatchWins(t *testing.T) {
	a := NewAssigner(testCatalog(t))

	// Point inside both Z-WEST (west-end) and Z-OVERLAP (east-end):
	// catalog order assigns it to the earlier neighbourhood.
	p := &Point{Category: CategoryPark, Lat: 45.05, Lon: -75.95}
	assert.Equal(t, catalog.NeighbourhoodID("west-end"), a.Assign(p))
}

func TestAssign_Unassigned(t *testing.T) {
	a := NewAssigner(testCatalog(t))
	p := &Point{Category: CategoryPark, Lat: 50.0, Lon: -70.0}
	assert.Equal(t, Unassigned, a.Assign(p))
}

func TestAssignZone(t *testing.T) {
	a := NewAssigner(testCatalog(t))

	nid, zid, ok := a.AssignZone(&Point{Category: CategoryCrime, Lat: 45.05, Lon: -75.85})
	require.True(t, ok)
	assert.Equal(t, catalog.NeighbourhoodID("east-end"), nid)
	assert.Equal(t, catalog.ZoneID("Z-EAST"), zid)
}

func TestAssignAll_CountersAndNoDoubleCount(t *testing.T) {
	a := NewAssigner(testCatalog(t))
	report := NewAssignReport()

	points := []*Point{
		{Category: CategoryPark, Lat: 45.05, Lon: -75.95},
		{Category: CategoryPark, Lat: 45.05, Lon: -75.85},
		{Category: CategorySchool, Lat: 45.05, Lon: -75.85},
		{Category: CategoryPark, Lat: 10.0, Lon: 10.0}, // nowhere
	}
	byHood := a.AssignAll(points, report)

	assert.Equal(t, 2, report.Assigned[CategoryPark])
	assert.Equal(t, 1, report.Assigned[CategorySchool])
	assert.Equal(t, 1, report.Unassigned[CategoryPark])

	// Each assigned point appears under exactly one neighbourhood.
	var total int
	for _, pts := range byHood {
		total += len(pts)
	}
	assert.Equal(t, 3, total)
	assert.Len(t, byHood["west-end"], 1)
	assert.Len(t, byHood["east-end"], 2)
}
