package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	geomjson "github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/ottcivic/liveability-cli/internal/geometry"
)

// GeoJSONOptions names the feature properties carrying zone identity.
// Defaults match the ONS open-data export.
type GeoJSONOptions struct {
	IDProperty         string // default "ONS_ID"
	NameProperty       string // default "NAME"
	PopulationProperty string // default "POPULATION" (optional)
}

func (o *GeoJSONOptions) applyDefaults() {
	if o.IDProperty == "" {
		o.IDProperty = "ONS_ID"
	}
	if o.NameProperty == "" {
		o.NameProperty = "NAME"
	}
	if o.PopulationProperty == "" {
		o.PopulationProperty = "POPULATION"
	}
}

// LoadGeoJSON reads a boundary FeatureCollection file into a static source.
func LoadGeoJSON(path string, opts GeoJSONOptions) (*StaticSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read geojson %s", path)
	}
	return ParseGeoJSON(raw, opts)
}

// ParseGeoJSON decodes a GeoJSON FeatureCollection into a static source.
// Features without a usable id or polygon geometry are skipped with a
// counter; they never abort the load.
func ParseGeoJSON(raw []byte, opts GeoJSONOptions) (*StaticSource, error) {
	opts.applyDefaults()

	var fc geomjson.FeatureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, eris.Wrap(err, "catalog: parse geojson")
	}

	var records []BoundaryRecord
	var skipped int
	for _, f := range fc.Features {
		id := propertyString(f.Properties, opts.IDProperty)
		if id == "" && f.ID != "" {
			id = f.ID
		}
		polys := geomToPolygons(f.Geometry)
		if id == "" || len(polys) == 0 {
			skipped++
			continue
		}

		rec := BoundaryRecord{
			ID:       ZoneID(id),
			Name:     propertyString(f.Properties, opts.NameProperty),
			Polygons: polys,
		}
		if pop, ok := propertyFloat(f.Properties, opts.PopulationProperty); ok {
			rec.Attrs.Population = int(pop)
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		zap.L().Debug("catalog: skipped geojson features",
			zap.Int("skipped", skipped),
			zap.Int("loaded", len(records)),
		)
	}
	return NewStaticSource(records), nil
}

// geomToPolygons converts a go-geom Polygon or MultiPolygon into kernel
// polygons. Other geometry types yield nil.
func geomToPolygons(g geom.T) []geometry.Polygon {
	switch t := g.(type) {
	case *geom.Polygon:
		if p := coordsToPolygon(t.Coords()); len(p) > 0 {
			return []geometry.Polygon{p}
		}
	case *geom.MultiPolygon:
		var polys []geometry.Polygon
		for _, coords := range t.Coords() {
			if p := coordsToPolygon(coords); len(p) > 0 {
				polys = append(polys, p)
			}
		}
		return polys
	}
	return nil
}

func coordsToPolygon(coords [][]geom.Coord) geometry.Polygon {
	var poly geometry.Polygon
	for _, ringCoords := range coords {
		var ring geometry.Ring
		for _, c := range ringCoords {
			if len(c) < 2 {
				continue
			}
			ring = append(ring, geometry.Point{Lon: c[0], Lat: c[1]})
		}
		if len(ring) >= 3 {
			poly = append(poly, ring)
		}
	}
	return poly
}

func propertyString(props map[string]any, key string) string {
	v, ok := props[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// Numeric ids come back as float64 from encoding/json.
		return strconv.FormatInt(int64(t), 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func propertyFloat(props map[string]any, key string) (float64, bool) {
	v, ok := props[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
