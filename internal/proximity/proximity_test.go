package proximity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ottcivic/liveability-cli/internal/catalog"
	"github.com/ottcivic/liveability-cli/internal/feature"
	"github.com/ottcivic/liveability-cli/internal/geometry"
)

func TestNearestFrom_PicksMinimumAcrossSubtypes(t *testing.T) {
	origin := geometry.Point{Lon: -75.70, Lat: 45.42}

	train := FacilitySet{Subtype: "rail", Points: []*feature.Point{
		{Name: "Far Station", Lat: 45.30, Lon: -75.90},
	}}
	bus := FacilitySet{Subtype: "brt", Points: []*feature.Point{
		{Name: "Near Stop", Lat: 45.421, Lon: -75.701},
		{Name: "Mid Stop", Lat: 45.45, Lon: -75.75},
	}}

	got := NearestFrom(origin, train, bus)
	require.NotNil(t, got.DistanceKm)
	assert.Equal(t, "Near Stop", got.Name)
	assert.Equal(t, "brt", got.Subtype)
	assert.Less(t, *got.DistanceKm, 0.5)
}

func TestNearestFrom_EmptyUnion(t *testing.T) {
	got := NearestFrom(geometry.Point{Lon: -75.7, Lat: 45.4})
	assert.Nil(t, got.DistanceKm)

	got = NearestFrom(geometry.Point{Lon: -75.7, Lat: 45.4}, FacilitySet{Subtype: "rail"})
	assert.Nil(t, got.DistanceKm)
}

func TestNearestTo_NoCentroid(t *testing.T) {
	// Neighbourhood with zero zones has no centroid: distance is null.
	n := &catalog.Neighbourhood{ID: "empty", Name: "Empty"}
	got := NearestTo(n, FacilitySet{Subtype: "hospital", Points: []*feature.Point{
		{Name: "General", Lat: 45.4, Lon: -75.65},
	}})
	assert.Nil(t, got.DistanceKm)
}

func TestNearestTo_UsesZoneCentroids(t *testing.T) {
	n := &catalog.Neighbourhood{
		ID:   "mid",
		Name: "Mid",
		Zones: []catalog.Zone{{
			ID: "Z1",
			Polygons: []geometry.Polygon{{
				{{Lon: -75.71, Lat: 45.41}, {Lon: -75.69, Lat: 45.41}, {Lon: -75.69, Lat: 45.43}, {Lon: -75.71, Lat: 45.43}},
			}},
		}},
	}

	got := NearestTo(n, FacilitySet{Subtype: "hospital", Points: []*feature.Point{
		{Name: "Close", Lat: 45.42, Lon: -75.70},
		{Name: "Far", Lat: 46.0, Lon: -76.5},
	}})
	require.NotNil(t, got.DistanceKm)
	assert.Equal(t, "Close", got.Name)
	assert.InDelta(t, 0.0, *got.DistanceKm, 0.2)
}
