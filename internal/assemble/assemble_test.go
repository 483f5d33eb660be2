package assemble

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ottcivic/liveability-cli/internal/catalog"
	"github.com/ottcivic/liveability-cli/internal/feature"
	"github.com/ottcivic/liveability-cli/internal/metrics"
	"github.com/ottcivic/liveability-cli/internal/scoring"
)

func ptr(v float64) *float64 { return &v }

func scored(id string, overall *float64) Input {
	return Input{
		Metrics: &metrics.Result{ID: catalog.NeighbourhoodID(id), Name: id},
		Scores:  &scoring.ScoreSet{Overall: overall},
	}
}

func TestBuild_RanksDescendingNullsLast(t *testing.T) {
	doc := Build([]Input{
		scored("mid", ptr(70)),
		scored("none", nil),
		scored("top", ptr(91.5)),
		scored("low", ptr(12)),
	}, "run-1")

	require.Len(t, doc.Neighbourhoods, 4)
	var order []string
	for _, p := range doc.Neighbourhoods {
		order = append(order, string(p.ID))
	}
	assert.Equal(t, []string{"top", "mid", "low", "none"}, order)
	assert.Equal(t, 1, doc.Neighbourhoods[0].Rank)
	assert.Equal(t, 4, doc.Neighbourhoods[3].Rank)
	assert.Equal(t, "run-1", doc.RunID)
}

func TestBuild_TiesKeepInputOrder(t *testing.T) {
	doc := Build([]Input{
		scored("first", ptr(50)),
		scored("second", ptr(50)),
	}, "")

	assert.Equal(t, catalog.NeighbourhoodID("first"), doc.Neighbourhoods[0].ID)
	assert.Equal(t, catalog.NeighbourhoodID("second"), doc.Neighbourhoods[1].ID)
}

func TestDetailNames_SortedAndCapped(t *testing.T) {
	points := []*feature.Point{
		{Category: feature.CategoryPark, Name: "Vincent Massey"},
		{Category: feature.CategoryPark, Name: "Brewer"},
		{Category: feature.CategoryCrime, Name: "incident"},
		{Category: feature.CategoryPark}, // unnamed, skipped
	}
	details := detailNames(points)
	require.Contains(t, details, "park")
	assert.Equal(t, []string{"Brewer", "Vincent Massey"}, details["park"])
	assert.NotContains(t, details, "crime")

	assert.Nil(t, detailNames(nil))
}

func TestZoneDetails_CarriesAttributeSnapshot(t *testing.T) {
	n := &catalog.Neighbourhood{
		Zones: []catalog.Zone{{
			ID:   "Z1",
			Name: "Zone One",
			Attrs: catalog.ZoneAttributes{
				Population:            2000,
				MedianHouseholdIncome: ptr(85000),
				CrimeCounts:           map[string]int{"violent": 4},
			},
		}},
	}
	zones := zoneDetails(n)
	require.Len(t, zones, 1)
	assert.Equal(t, 2000, zones[0].Population)
	require.NotNil(t, zones[0].CrimeRatePer1k)
	assert.InDelta(t, 2.0, *zones[0].CrimeRatePer1k, 1e-9)
	require.NotNil(t, zones[0].MedianIncome)
}

func TestWriteJSON_Atomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "liveability.json")

	doc := Build([]Input{scored("only", ptr(40))}, "run-x")
	require.NoError(t, WriteJSON(doc, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var back Document
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back.Neighbourhoods, 1)
	assert.Equal(t, "run-x", back.RunID)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
