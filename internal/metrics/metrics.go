// Package metrics folds assigned point features and zone attributes into
// the per-neighbourhood statistical profile. Every derived value is
// nullable: a missing dataset or a zero denominator yields nil, never a
// zero that would silently penalize a neighbourhood.
package metrics

import (
	"github.com/ottcivic/liveability-cli/internal/catalog"
	"github.com/ottcivic/liveability-cli/internal/feature"
	"github.com/ottcivic/liveability-cli/internal/overlay"
	"github.com/ottcivic/liveability-cli/internal/proximity"
)

// Crime bucket labels used for weighted sub-scoring.
const (
	CrimeViolent  = "violent"
	CrimeProperty = "property"
	CrimeOther    = "other"
)

// Options configures aggregation.
type Options struct {
	// Present marks the categories whose source dataset was loaded at all.
	// Densities and rates for absent categories stay null instead of
	// reading as zero.
	Present map[feature.Category]bool

	// Years spanned by the multi-year incident datasets, used to
	// annualize rates. Zero or negative reads as 1.
	CrimeYears     float64
	CollisionYears float64
	ServiceYears   float64
}

func (o *Options) years(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}

func (o *Options) present(c feature.Category) bool {
	if o.Present == nil {
		return true
	}
	return o.Present[c]
}

// Result is the aggregated metric bag for one neighbourhood.
type Result struct {
	ID         catalog.NeighbourhoodID `json:"id"`
	Name       string                  `json:"name"`
	Population int                     `json:"population"`
	AreaKm2    float64                 `json:"areaKm2"`

	Counts    map[feature.Category]int      `json:"counts"`
	Densities map[feature.Category]*float64 `json:"densities"`

	CrimeTotal        int                 `json:"crimeTotal"`
	CrimeRatePer1k    *float64            `json:"crimeRatePer1k"`
	CrimeBucketCounts map[string]int      `json:"crimeBucketCounts"`
	CrimeBucketRates  map[string]*float64 `json:"crimeBucketRates"`

	CollisionsPer1k      *float64 `json:"collisionsPer1k"`
	ServiceRequestsPer1k *float64 `json:"serviceRequestsPer1k"`
	CyclingKm            *float64 `json:"cyclingKm"`
	AvgEQAO              *float64 `json:"avgEqao"`

	// Population-weighted zone aggregates.
	MedianHouseholdIncome *float64 `json:"medianHouseholdIncome"`
	AvgHouseholdSize      *float64 `json:"avgHouseholdSize"`
	TreeCanopyPct         *float64 `json:"treeCanopyPct"`
	UnemploymentPct       *float64 `json:"unemploymentPct"`

	// Overlay pass-throughs.
	WalkScore          *float64 `json:"walkScore"`
	TransitScore       *float64 `json:"transitScore"`
	BikeScore          *float64 `json:"bikeScore"`
	CommuteMinutes     *float64 `json:"commuteMinutes"`
	NEI                *float64 `json:"nei"`
	SelfRatedHealthPct *float64 `json:"selfRatedHealthPct"`
	FoodSafetyPct      *float64 `json:"foodSafetyPct"`

	// Nearest-facility metrics, resolved upstream.
	Hospital     proximity.Nearest `json:"hospital"`
	RapidTransit proximity.Nearest `json:"rapidTransit"`
}

// Density divides a count by an area in km². A zero area yields nil.
func Density(count int, areaKm2 float64) *float64 {
	if areaKm2 <= 0 {
		return nil
	}
	d := float64(count) / areaKm2
	return &d
}

// RatePer divides a count by population, scales (1,000 for common events,
// 100,000 for rare ones) and annualizes over the dataset's year span. A
// zero population yields nil.
func RatePer(count, population int, scale, years float64) *float64 {
	if population <= 0 {
		return nil
	}
	if years <= 0 {
		years = 1
	}
	r := float64(count) / float64(population) * scale / years
	return &r
}

// WeightedZoneMean computes Σ(value × population) / Σ(population) over the
// neighbourhood's zones, skipping zones with zero population or an unknown
// value. A zero total weight yields nil.
func WeightedZoneMean(zones []catalog.Zone, pick func(*catalog.ZoneAttributes) *float64) *float64 {
	var sum, weight float64
	for i := range zones {
		attrs := &zones[i].Attrs
		if attrs.Population <= 0 {
			continue
		}
		v := pick(attrs)
		if v == nil {
			continue
		}
		sum += *v * float64(attrs.Population)
		weight += float64(attrs.Population)
	}
	if weight == 0 {
		return nil
	}
	mean := sum / weight
	return &mean
}

// Aggregate computes the metric bag for one neighbourhood from its assigned
// points, its zones' attributes, and the loaded overlays. Proximity fields
// are left for the caller, which holds the full facility sets.
func Aggregate(n *catalog.Neighbourhood, points []*feature.Point, overlays *overlay.Set, opts Options) *Result {
	r := &Result{
		ID:                n.ID,
		Name:              n.Name,
		Population:        n.Population(),
		AreaKm2:           n.AreaKm2(),
		Counts:            make(map[feature.Category]int),
		Densities:         make(map[feature.Category]*float64),
		CrimeBucketCounts: make(map[string]int),
		CrimeBucketRates:  make(map[string]*float64),
	}

	var cyclingKm float64
	var eqaoSum float64
	var eqaoN int
	for _, p := range points {
		r.Counts[p.Category]++
		switch p.Category {
		case feature.CategoryCrime:
			r.CrimeBucketCounts[ClassifyCrime(p.Attrs["offense"])]++
		case feature.CategoryCycling:
			if km, ok := p.AttrFloat("length_km"); ok {
				cyclingKm += km
			}
		case feature.CategorySchool:
			if score, ok := p.AttrFloat("eqao"); ok {
				eqaoSum += score
				eqaoN++
			}
		}
	}

	// Count-based densities for the amenity categories.
	for _, cat := range []feature.Category{
		feature.CategoryPark, feature.CategorySchool, feature.CategoryLibrary,
		feature.CategoryGym, feature.CategoryGrocery, feature.CategoryDining,
		feature.CategoryTransitStop,
	} {
		if !opts.present(cat) {
			continue
		}
		r.Densities[cat] = Density(r.Counts[cat], r.AreaKm2)
	}

	// Rate-based metrics. Zone-attached crime counts take precedence over
	// assigned points when the boundary source carried them.
	crimeTotal, bucketCounts, crimeYears := zoneCrime(n.Zones)
	if crimeTotal == 0 && opts.present(feature.CategoryCrime) {
		crimeTotal = r.Counts[feature.CategoryCrime]
		bucketCounts = r.CrimeBucketCounts
		crimeYears = opts.years(opts.CrimeYears)
	}
	if crimeTotal > 0 || opts.present(feature.CategoryCrime) {
		r.CrimeTotal = crimeTotal
		r.CrimeBucketCounts = bucketCounts
		r.CrimeRatePer1k = RatePer(crimeTotal, r.Population, 1000, crimeYears)
		// Every canonical bucket gets a rate: zero incidents is a real
		// zero, not missing data, once the dataset is loaded.
		for _, bucket := range []string{CrimeViolent, CrimeProperty, CrimeOther} {
			r.CrimeBucketRates[bucket] = RatePer(bucketCounts[bucket], r.Population, 1000, crimeYears)
		}
	}

	if opts.present(feature.CategoryCollision) {
		r.CollisionsPer1k = RatePer(r.Counts[feature.CategoryCollision], r.Population, 1000, opts.years(opts.CollisionYears))
	}
	if opts.present(feature.CategoryService) {
		r.ServiceRequestsPer1k = RatePer(r.Counts[feature.CategoryService], r.Population, 1000, opts.years(opts.ServiceYears))
	}
	if opts.present(feature.CategoryCycling) {
		r.CyclingKm = &cyclingKm
	}
	if eqaoN > 0 {
		avg := eqaoSum / float64(eqaoN)
		r.AvgEQAO = &avg
	}

	// Population-weighted zone aggregates.
	r.MedianHouseholdIncome = WeightedZoneMean(n.Zones, func(a *catalog.ZoneAttributes) *float64 { return a.MedianHouseholdIncome })
	r.AvgHouseholdSize = WeightedZoneMean(n.Zones, func(a *catalog.ZoneAttributes) *float64 { return a.AvgHouseholdSize })
	r.TreeCanopyPct = WeightedZoneMean(n.Zones, func(a *catalog.ZoneAttributes) *float64 { return a.TreeCanopyPct })
	r.UnemploymentPct = WeightedZoneMean(n.Zones, func(a *catalog.ZoneAttributes) *float64 { return a.UnemploymentPct })

	// Overlays.
	idx := overlays.IndicesFor(n.ID)
	r.WalkScore = idx.Walk
	r.TransitScore = idx.Transit
	r.BikeScore = idx.Bike
	r.CommuteMinutes = overlays.CommuteFor(n.ID)
	health := overlays.HealthFor(n.ID)
	r.NEI = health.NEI
	r.SelfRatedHealthPct = health.SelfRatedHealthPct
	r.FoodSafetyPct = health.FoodSafetyPct

	return r
}

// zoneCrime sums the crime counts attached to zone attributes. years is the
// max span declared by any zone (they come from one dataset, so they agree
// in practice).
func zoneCrime(zones []catalog.Zone) (total int, buckets map[string]int, years float64) {
	buckets = make(map[string]int)
	years = 1
	for i := range zones {
		attrs := &zones[i].Attrs
		for bucket, count := range attrs.CrimeCounts {
			buckets[bucket] += count
			total += count
		}
		if attrs.CrimeYears > years {
			years = attrs.CrimeYears
		}
	}
	return total, buckets, years
}

// ZoneCrimeRatePer1k derives the per-zone crime rate used for map shading.
func ZoneCrimeRatePer1k(attrs *catalog.ZoneAttributes) *float64 {
	var total int
	for _, count := range attrs.CrimeCounts {
		total += count
	}
	years := attrs.CrimeYears
	if years <= 0 {
		years = 1
	}
	return RatePer(total, attrs.Population, 1000, years)
}
