package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ottcivic/liveability-cli/internal/geometry"
)

const sampleFeatureCollection = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"ONS_ID": 3017, "NAME": "Centretown", "POPULATION": 24000},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[-75.70, 45.40], [-75.68, 45.40], [-75.68, 45.42], [-75.70, 45.42], [-75.70, 45.40]]]
      }
    },
    {
      "type": "Feature",
      "properties": {"ONS_ID": "3018", "NAME": "Glebe"},
      "geometry": {
        "type": "MultiPolygon",
        "coordinates": [
          [[[-75.69, 45.39], [-75.68, 45.39], [-75.68, 45.40], [-75.69, 45.40], [-75.69, 45.39]]],
          [[[-75.71, 45.39], [-75.70, 45.39], [-75.70, 45.40], [-75.71, 45.40], [-75.71, 45.39]]]
        ]
      }
    },
    {
      "type": "Feature",
      "properties": {"NAME": "No ID"},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[-75.0, 45.0], [-74.9, 45.0], [-74.9, 45.1], [-75.0, 45.1], [-75.0, 45.0]]]
      }
    }
  ]
}`

func TestParseGeoJSON(t *testing.T) {
	src, err := ParseGeoJSON([]byte(sampleFeatureCollection), GeoJSONOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, src.Len())

	rec, ok := src.Zone("3017")
	require.True(t, ok)
	assert.Equal(t, "Centretown", rec.Name)
	assert.Equal(t, 24000, rec.Attrs.Population)
	require.Len(t, rec.Polygons, 1)
	assert.True(t, geometry.PointInPolygon(geometry.Point{Lon: -75.69, Lat: 45.41}, rec.Polygons[0]))

	multi, ok := src.Zone("3018")
	require.True(t, ok)
	assert.Len(t, multi.Polygons, 2)
}

func TestParseGeoJSON_Invalid(t *testing.T) {
	_, err := ParseGeoJSON([]byte("{not json"), GeoJSONOptions{})
	assert.Error(t, err)
}

func TestParseGeoJSON_CustomProperties(t *testing.T) {
	raw := `{
	  "type": "FeatureCollection",
	  "features": [{
	    "type": "Feature",
	    "properties": {"tract": "T-9", "label": "Tract Nine"},
	    "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}
	  }]
	}`
	src, err := ParseGeoJSON([]byte(raw), GeoJSONOptions{IDProperty: "tract", NameProperty: "label"})
	require.NoError(t, err)

	rec, ok := src.Zone("T-9")
	require.True(t, ok)
	assert.Equal(t, "Tract Nine", rec.Name)
}
