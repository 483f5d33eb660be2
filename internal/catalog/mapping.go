package catalog

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/ottcivic/liveability-cli/internal/geometry"
)

// MappingEntry is one neighbourhood declaration in the mapping config.
// Either Zones or Boundary is set; a literal boundary overrides zone lookup
// for that neighbourhood only.
type MappingEntry struct {
	ID    string   `yaml:"id"`
	Name  string   `yaml:"name"`
	Zones []string `yaml:"zones,omitempty"`

	// Boundary is a literal polygon: rings of [lon, lat] pairs, outer ring
	// first, holes after.
	Boundary [][][]float64 `yaml:"boundary,omitempty"`
}

// Mapping is the ordered neighbourhood→zone table. Order is significant:
// it fixes the catalog's iteration order.
type Mapping struct {
	Neighbourhoods []MappingEntry `yaml:"neighbourhoods"`
}

// LoadMapping reads the mapping config from a YAML file. An unloadable
// mapping is the one fatal condition of the pipeline.
func LoadMapping(path string) (*Mapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read mapping %s", path)
	}
	return ParseMapping(raw)
}

// ParseMapping parses mapping YAML and validates each entry.
func ParseMapping(raw []byte) (*Mapping, error) {
	var m Mapping
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, eris.Wrap(err, "catalog: parse mapping yaml")
	}
	if len(m.Neighbourhoods) == 0 {
		return nil, eris.New("catalog: mapping declares no neighbourhoods")
	}

	seen := make(map[NeighbourhoodID]bool, len(m.Neighbourhoods))
	for i := range m.Neighbourhoods {
		e := &m.Neighbourhoods[i]
		if e.Name == "" {
			return nil, eris.Errorf("catalog: mapping entry %d has no name", i)
		}
		if e.ID == "" {
			e.ID = string(Slug(e.Name))
		}
		id := NeighbourhoodID(e.ID)
		if seen[id] {
			return nil, eris.Errorf("catalog: duplicate neighbourhood id %q", e.ID)
		}
		seen[id] = true
		if len(e.Zones) == 0 && len(e.Boundary) == 0 {
			return nil, eris.Errorf("catalog: neighbourhood %q has neither zones nor boundary", e.ID)
		}
	}
	return &m, nil
}

// boundaryToPolygon converts a literal mapping boundary into a polygon.
// Rings with fewer than three vertices or malformed pairs are dropped.
func boundaryToPolygon(rings [][][]float64) geometry.Polygon {
	var poly geometry.Polygon
	for _, ring := range rings {
		var r geometry.Ring
		for _, pair := range ring {
			if len(pair) < 2 {
				continue
			}
			r = append(r, geometry.Point{Lon: pair[0], Lat: pair[1]})
		}
		if len(r) >= 3 {
			poly = append(poly, r)
		}
	}
	return poly
}
