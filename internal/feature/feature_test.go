package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRow_Valid(t *testing.T) {
	schema := RowSchema{
		LatColumn:  1,
		LonColumn:  2,
		NameColumn: 0,
		AttrCols:   map[string]int{"type": 3},
	}
	p, ok := FromRow(CategoryPark, []string{"Dundonald Park", "45.414", "-75.695", "community"}, schema)
	require.True(t, ok)
	assert.Equal(t, "Dundonald Park", p.Name)
	assert.InDelta(t, 45.414, p.Lat, 1e-9)
	assert.InDelta(t, -75.695, p.Lon, 1e-9)
	assert.Equal(t, "community", p.Attrs["type"])
}

func TestFromRow_BadCoordinates(t *testing.T) {
	schema := RowSchema{LatColumn: 0, LonColumn: 1, NameColumn: -1}

	cases := [][]string{
		{"", "-75.69"}, // missing lat
		{"45.41", ""},  // missing lon
		{"not-a-number", "-75.69"},
		{"45.41"},  // short row
		{"0", "0"}, // null island
	}
	for _, row := range cases {
		_, ok := FromRow(CategoryCrime, row, schema)
		assert.False(t, ok, "row %v should be rejected", row)
	}
}

func TestAttrFloat(t *testing.T) {
	p := &Point{Attrs: map[string]string{"length_km": " 1.25 ", "bad": "x"}}

	v, ok := p.AttrFloat("length_km")
	require.True(t, ok)
	assert.InDelta(t, 1.25, v, 1e-9)

	_, ok = p.AttrFloat("bad")
	assert.False(t, ok)
	_, ok = p.AttrFloat("missing")
	assert.False(t, ok)
}
