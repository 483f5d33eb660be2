package scoring

import (
	"github.com/ottcivic/liveability-cli/internal/feature"
	"github.com/ottcivic/liveability-cli/internal/metrics"
)

// Category groups related sub-scores.
type Category string

const (
	CategorySafety         Category = "safety"
	CategoryAmenities      Category = "amenities"
	CategoryTransportation Category = "transportation"
	CategoryHealth         Category = "health"
	CategoryEducation      Category = "education"
	CategoryEnvironment    Category = "environment"
	CategoryCommunity      Category = "community"
)

// CategoryWeights are fixed configuration constants summing to 1.0 when
// every category has data. This is the canonical table; superseded tunings
// are not carried.
var CategoryWeights = map[Category]float64{
	CategorySafety:         0.20,
	CategoryAmenities:      0.20,
	CategoryTransportation: 0.15,
	CategoryHealth:         0.15,
	CategoryEducation:      0.10,
	CategoryEnvironment:    0.10,
	CategoryCommunity:      0.10,
}

// Composite crime weights: violent incidents dominate perceived safety.
const (
	crimeViolentWeight  = 0.5
	crimePropertyWeight = 0.3
	crimeOtherWeight    = 0.2
)

// CrimeRateBands maps crimes per 1,000 residents per year to a score.
// Thresholds follow published municipal policing benchmarks.
var CrimeRateBands = Bands{
	{15, 100}, {30, 85}, {50, 70}, {75, 50}, {100, 30}, {120, 15},
	{inf, 0},
}

// HospitalDistanceBands scores great-circle km to the nearest hospital.
var HospitalDistanceBands = Bands{
	{1, 100}, {2.5, 85}, {5, 70}, {8, 50}, {12, 30}, {inf, 10},
}

// RapidTransitDistanceBands scores km to the nearest rapid-transit station.
var RapidTransitDistanceBands = Bands{
	{0.8, 100}, {1.5, 85}, {3, 65}, {5, 45}, {8, 25}, {inf, 10},
}

// CollisionRateBands scores traffic collisions per 1,000 residents per year.
var CollisionRateBands = Bands{
	{5, 100}, {10, 85}, {20, 65}, {35, 45}, {50, 25}, {inf, 0},
}

const inf = 1e18

// metricDef binds one named metric to its extractor and scaler.
type metricDef struct {
	Name    string
	Extract func(*metrics.Result) *float64
	Scaler  Scaler
}

// categoryMetrics is the canonical metric → category assignment. The crime
// composite is handled separately in crimeScore and is not listed here.
var categoryMetrics = map[Category][]metricDef{
	CategorySafety: {
		{"collisionsPer1k", func(m *metrics.Result) *float64 { return m.CollisionsPer1k }, CollisionRateBands},
	},
	CategoryAmenities: {
		{"parksPerKm2", density(feature.CategoryPark), Linear{Min: 0, Max: 2.5}},
		{"groceryPerKm2", density(feature.CategoryGrocery), Linear{Min: 0, Max: 1.5}},
		{"diningPerKm2", density(feature.CategoryDining), Linear{Min: 0, Max: 8}},
		{"librariesPerKm2", density(feature.CategoryLibrary), Linear{Min: 0, Max: 0.5}},
		{"gymsPerKm2", density(feature.CategoryGym), Linear{Min: 0, Max: 1.2}},
	},
	CategoryTransportation: {
		{"walkScore", func(m *metrics.Result) *float64 { return m.WalkScore }, Linear{Min: 0, Max: 100}},
		{"transitScore", func(m *metrics.Result) *float64 { return m.TransitScore }, Linear{Min: 0, Max: 100}},
		{"bikeScore", func(m *metrics.Result) *float64 { return m.BikeScore }, Linear{Min: 0, Max: 100}},
		{"transitStopsPerKm2", density(feature.CategoryTransitStop), Linear{Min: 0, Max: 30}},
		{"rapidTransitKm", func(m *metrics.Result) *float64 { return m.RapidTransit.DistanceKm }, RapidTransitDistanceBands},
		{"commuteMinutes", func(m *metrics.Result) *float64 { return m.CommuteMinutes }, Linear{Min: 15, Max: 60, LowerIsBetter: true}},
	},
	CategoryHealth: {
		{"hospitalKm", func(m *metrics.Result) *float64 { return m.Hospital.DistanceKm }, HospitalDistanceBands},
		{"selfRatedHealthPct", func(m *metrics.Result) *float64 { return m.SelfRatedHealthPct }, Linear{Min: 35, Max: 75}},
		{"foodSafetyPct", func(m *metrics.Result) *float64 { return m.FoodSafetyPct }, Linear{Min: 80, Max: 100}},
	},
	CategoryEducation: {
		{"schoolsPerKm2", density(feature.CategorySchool), Linear{Min: 0, Max: 1.5}},
		{"avgEqao", func(m *metrics.Result) *float64 { return m.AvgEQAO }, Linear{Min: 50, Max: 90}},
	},
	CategoryEnvironment: {
		{"treeCanopyPct", func(m *metrics.Result) *float64 { return m.TreeCanopyPct }, Linear{Min: 5, Max: 45}},
		{"cyclingKm", func(m *metrics.Result) *float64 { return m.CyclingKm }, Linear{Min: 0, Max: 40}},
	},
	CategoryCommunity: {
		{"nei", func(m *metrics.Result) *float64 { return m.NEI }, Linear{Min: 0, Max: 100}},
		{"medianHouseholdIncome", func(m *metrics.Result) *float64 { return m.MedianHouseholdIncome }, Linear{Min: 40000, Max: 120000}},
		{"unemploymentPct", func(m *metrics.Result) *float64 { return m.UnemploymentPct }, Linear{Min: 3, Max: 12, LowerIsBetter: true}},
		{"serviceRequestsPer1k", func(m *metrics.Result) *float64 { return m.ServiceRequestsPer1k }, Linear{Min: 20, Max: 400, LowerIsBetter: true}},
	},
}

func density(cat feature.Category) func(*metrics.Result) *float64 {
	return func(m *metrics.Result) *float64 { return m.Densities[cat] }
}
