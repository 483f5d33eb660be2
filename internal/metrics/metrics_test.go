package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ottcivic/liveability-cli/internal/catalog"
	"github.com/ottcivic/liveability-cli/internal/feature"
	"github.com/ottcivic/liveability-cli/internal/geometry"
	"github.com/ottcivic/liveability-cli/internal/overlay"
)

func ptr(v float64) *float64 { return &v }

func TestDensity(t *testing.T) {
	d := Density(10, 4)
	require.NotNil(t, d)
	assert.InDelta(t, 2.5, *d, 1e-9)

	assert.Nil(t, Density(10, 0))
	assert.Nil(t, Density(10, -1))
}

func TestRatePer(t *testing.T) {
	// 15 crimes over 5,000 residents => 3.0 per 1,000.
	r := RatePer(15, 5000, 1000, 1)
	require.NotNil(t, r)
	assert.InDelta(t, 3.0, *r, 1e-9)

	// Annualized over 3 years.
	r = RatePer(30, 5000, 1000, 3)
	require.NotNil(t, r)
	assert.InDelta(t, 2.0, *r, 1e-9)

	// Rare events scale per 100k.
	r = RatePer(2, 40000, 100000, 1)
	require.NotNil(t, r)
	assert.InDelta(t, 5.0, *r, 1e-9)

	assert.Nil(t, RatePer(5, 0, 1000, 1))
}

func TestWeightedZoneMean_SkipsZeroPopulation(t *testing.T) {
	zones := []catalog.Zone{
		{Attrs: catalog.ZoneAttributes{Population: 100, MedianHouseholdIncome: ptr(10)}},
		{Attrs: catalog.ZoneAttributes{Population: 0, MedianHouseholdIncome: ptr(999)}},
	}
	got := WeightedZoneMean(zones, func(a *catalog.ZoneAttributes) *float64 { return a.MedianHouseholdIncome })
	require.NotNil(t, got)
	assert.InDelta(t, 10.0, *got, 1e-9)
}

func TestWeightedZoneMean_SkipsUnknownValues(t *testing.T) {
	zones := []catalog.Zone{
		{Attrs: catalog.ZoneAttributes{Population: 1000}}, // no value
		{Attrs: catalog.ZoneAttributes{Population: 3000, TreeCanopyPct: ptr(40)}},
	}
	got := WeightedZoneMean(zones, func(a *catalog.ZoneAttributes) *float64 { return a.TreeCanopyPct })
	require.NotNil(t, got)
	assert.InDelta(t, 40.0, *got, 1e-9)
}

func TestWeightedZoneMean_NilOnZeroWeight(t *testing.T) {
	zones := []catalog.Zone{
		{Attrs: catalog.ZoneAttributes{Population: 0, TreeCanopyPct: ptr(40)}},
	}
	assert.Nil(t, WeightedZoneMean(zones, func(a *catalog.ZoneAttributes) *float64 { return a.TreeCanopyPct }))
	assert.Nil(t, WeightedZoneMean(nil, func(a *catalog.ZoneAttributes) *float64 { return a.TreeCanopyPct }))
}

func TestClassifyCrime(t *testing.T) {
	assert.Equal(t, CrimeViolent, ClassifyCrime("Assault Level 1"))
	assert.Equal(t, CrimeViolent, ClassifyCrime("ROBBERY"))
	assert.Equal(t, CrimeProperty, ClassifyCrime("Break and Enter - Residence"))
	assert.Equal(t, CrimeProperty, ClassifyCrime("Theft under $5000"))
	assert.Equal(t, CrimeOther, ClassifyCrime("Bylaw complaint"))
	assert.Equal(t, CrimeOther, ClassifyCrime(""))
}

func aggregateFixtureNeighbourhood() *catalog.Neighbourhood {
	// Two zones matching the worked scenario: A pop 1,000 / 3 crimes,
	// B pop 4,000 / 12 crimes.
	square := geometry.Polygon{{
		{Lon: -76.0, Lat: 45.0}, {Lon: -75.9, Lat: 45.0}, {Lon: -75.9, Lat: 45.1}, {Lon: -76.0, Lat: 45.1},
	}}
	return &catalog.Neighbourhood{
		ID:   "test-hood",
		Name: "Test Hood",
		Zones: []catalog.Zone{
			{ID: "A", Polygons: []geometry.Polygon{square}, Attrs: catalog.ZoneAttributes{
				Population:  1000,
				CrimeCounts: map[string]int{CrimeViolent: 3},
			}},
			{ID: "B", Polygons: []geometry.Polygon{square}, Attrs: catalog.ZoneAttributes{
				Population:  4000,
				CrimeCounts: map[string]int{CrimeProperty: 12},
			}},
		},
	}
}

func TestAggregate_CrimeRateFromZones(t *testing.T) {
	n := aggregateFixtureNeighbourhood()
	r := Aggregate(n, nil, nil, Options{})

	assert.Equal(t, 5000, r.Population)
	assert.Equal(t, 15, r.CrimeTotal)
	require.NotNil(t, r.CrimeRatePer1k)
	// (15 / 5000) * 1000 = 3.0 per 1,000 residents.
	assert.InDelta(t, 3.0, *r.CrimeRatePer1k, 1e-9)

	require.NotNil(t, r.CrimeBucketRates[CrimeViolent])
	assert.InDelta(t, 0.6, *r.CrimeBucketRates[CrimeViolent], 1e-9)

	// Buckets with no incidents still rate: zero, not missing.
	for _, bucket := range []string{CrimeViolent, CrimeProperty, CrimeOther} {
		require.NotNil(t, r.CrimeBucketRates[bucket], "bucket %s", bucket)
	}
	assert.InDelta(t, 0.0, *r.CrimeBucketRates[CrimeOther], 1e-9)
}

func TestAggregate_CountsAndDensities(t *testing.T) {
	n := aggregateFixtureNeighbourhood()
	points := []*feature.Point{
		{Category: feature.CategoryPark, Name: "P1"},
		{Category: feature.CategoryPark, Name: "P2"},
		{Category: feature.CategorySchool, Name: "S1", Attrs: map[string]string{"eqao": "78"}},
		{Category: feature.CategoryCycling, Attrs: map[string]string{"length_km": "2.5"}},
		{Category: feature.CategoryCycling, Attrs: map[string]string{"length_km": "1.5"}},
	}
	opts := Options{Present: map[feature.Category]bool{
		feature.CategoryPark:    true,
		feature.CategorySchool:  true,
		feature.CategoryCycling: true,
	}}
	r := Aggregate(n, points, nil, opts)

	assert.Equal(t, 2, r.Counts[feature.CategoryPark])
	require.NotNil(t, r.Densities[feature.CategoryPark])
	assert.Greater(t, *r.Densities[feature.CategoryPark], 0.0)

	require.NotNil(t, r.CyclingKm)
	assert.InDelta(t, 4.0, *r.CyclingKm, 1e-9)

	require.NotNil(t, r.AvgEQAO)
	assert.InDelta(t, 78.0, *r.AvgEQAO, 1e-9)

	// Library dataset absent: density stays null even though count is 0.
	assert.Nil(t, r.Densities[feature.CategoryLibrary])
}

func TestAggregate_ZeroAreaNeighbourhood(t *testing.T) {
	n := &catalog.Neighbourhood{ID: "empty", Name: "Empty"}
	r := Aggregate(n, []*feature.Point{{Category: feature.CategoryPark}}, nil,
		Options{Present: map[feature.Category]bool{feature.CategoryPark: true}})

	assert.Equal(t, 1, r.Counts[feature.CategoryPark])
	assert.Nil(t, r.Densities[feature.CategoryPark], "zero area must null the density")
	assert.Nil(t, r.CrimeRatePer1k, "zero population must null the rate")
}

func TestAggregate_Overlays(t *testing.T) {
	n := aggregateFixtureNeighbourhood()
	overlays := &overlay.Set{
		Indices: map[catalog.NeighbourhoodID]overlay.Indices{
			"test-hood": {Walk: ptr(82), Bike: ptr(65)},
		},
		Health: map[catalog.NeighbourhoodID]overlay.Health{
			"test-hood": {NEI: ptr(55.5)},
		},
		CommuteMinutes: map[catalog.NeighbourhoodID]*float64{"test-hood": ptr(24)},
	}
	r := Aggregate(n, nil, overlays, Options{})

	require.NotNil(t, r.WalkScore)
	assert.InDelta(t, 82.0, *r.WalkScore, 1e-9)
	assert.Nil(t, r.TransitScore)
	require.NotNil(t, r.NEI)
	assert.InDelta(t, 55.5, *r.NEI, 1e-9)
	require.NotNil(t, r.CommuteMinutes)
}

func TestZoneCrimeRatePer1k(t *testing.T) {
	attrs := &catalog.ZoneAttributes{
		Population:  2000,
		CrimeCounts: map[string]int{CrimeViolent: 4, CrimeOther: 6},
		CrimeYears:  2,
	}
	r := ZoneCrimeRatePer1k(attrs)
	require.NotNil(t, r)
	// 10 crimes / 2000 pop * 1000 / 2 years = 2.5
	assert.InDelta(t, 2.5, *r, 1e-9)

	assert.Nil(t, ZoneCrimeRatePer1k(&catalog.ZoneAttributes{CrimeCounts: map[string]int{CrimeOther: 5}}))
}
