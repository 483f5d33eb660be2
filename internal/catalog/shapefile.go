package catalog

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ottcivic/liveability-cli/internal/geometry"
)

// ShapefileOptions names the attribute columns carrying zone identity.
type ShapefileOptions struct {
	IDField         string // default "ONS_ID"
	NameField       string // default "NAME"
	PopulationField string // default "POPULATION" (optional)
}

func (o *ShapefileOptions) applyDefaults() {
	if o.IDField == "" {
		o.IDField = "ONS_ID"
	}
	if o.NameField == "" {
		o.NameField = "NAME"
	}
	if o.PopulationField == "" {
		o.PopulationField = "POPULATION"
	}
}

// LoadShapefile reads zone boundaries from a local shapefile. Records with
// no id or no polygon shape are skipped with a counter.
func LoadShapefile(path string, opts ShapefileOptions) (*StaticSource, error) {
	opts.applyDefaults()

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idIdx := fieldIndex(reader, opts.IDField)
	nameIdx := fieldIndex(reader, opts.NameField)
	popIdx := fieldIndex(reader, opts.PopulationField)
	if idIdx < 0 {
		return nil, eris.Errorf("catalog: shapefile has no %q field", opts.IDField)
	}

	var records []BoundaryRecord
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}

		id := strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00"))
		if id == "" {
			skipped++
			continue
		}

		rec := BoundaryRecord{
			ID:       ZoneID(id),
			Polygons: shpPolygons(poly),
		}
		if nameIdx >= 0 {
			rec.Name = strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		}
		if popIdx >= 0 {
			if pop, ok := propertyFloat(map[string]any{"p": strings.TrimSpace(reader.Attribute(popIdx))}, "p"); ok {
				rec.Attrs.Population = int(pop)
			}
		}
		if len(rec.Polygons) == 0 {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		zap.L().Debug("catalog: skipped shapefile records",
			zap.Int("skipped", skipped),
			zap.Int("loaded", len(records)),
		)
	}
	return NewStaticSource(records), nil
}

func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// shpPolygons splits a shapefile polygon into ringed polygons. Shapefile
// convention: clockwise rings open a new polygon, counter-clockwise rings
// are holes in the preceding one.
func shpPolygons(p *shp.Polygon) []geometry.Polygon {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var polys []geometry.Polygon
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		var ring geometry.Ring
		for j := start; j < end; j++ {
			ring = append(ring, geometry.Point{Lon: p.Points[j].X, Lat: p.Points[j].Y})
		}
		if len(ring) < 3 {
			continue
		}

		if signedRingArea(ring) < 0 || len(polys) == 0 {
			// Clockwise in lon/lat terms: negative shoelace sum, outer ring.
			polys = append(polys, geometry.Polygon{ring})
		} else {
			last := len(polys) - 1
			polys[last] = append(polys[last], ring)
		}
	}
	return polys
}

// signedRingArea is the raw shoelace sum in degrees; only the sign matters
// here (positive = counter-clockwise).
func signedRingArea(ring geometry.Ring) float64 {
	var sum float64
	n := len(ring)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i].Lon*ring[j].Lat - ring[j].Lon*ring[i].Lat
	}
	return sum / 2
}
