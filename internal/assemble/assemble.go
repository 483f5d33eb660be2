// Package assemble turns scored neighbourhoods into the ranked JSON
// document the CLI publishes. Ranking is stable: ties and null overalls
// keep catalog order, and nulls always sort after scored entries.
package assemble

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ottcivic/liveability-cli/internal/catalog"
	"github.com/ottcivic/liveability-cli/internal/feature"
	"github.com/ottcivic/liveability-cli/internal/geometry"
	"github.com/ottcivic/liveability-cli/internal/metrics"
	"github.com/ottcivic/liveability-cli/internal/scoring"
)

// Place is one ranked neighbourhood in the output document.
type Place struct {
	Rank    int                     `json:"rank"`
	ID      catalog.NeighbourhoodID `json:"id"`
	Name    string                  `json:"name"`
	Scores  *scoring.ScoreSet       `json:"scores"`
	Metrics *metrics.Result         `json:"metrics"`
	Details map[string][]string     `json:"details,omitempty"`
	Zones   []ZoneDetail            `json:"zones,omitempty"`
}

// ZoneDetail carries the per-zone boundary and attribute snapshot used for
// map rendering.
type ZoneDetail struct {
	ID             catalog.ZoneID  `json:"id"`
	Name           string          `json:"name,omitempty"`
	Population     int             `json:"population"`
	CrimeRatePer1k *float64        `json:"crimeRatePer1k"`
	MedianIncome   *float64        `json:"medianHouseholdIncome"`
	TreeCanopyPct  *float64        `json:"treeCanopyPct"`
	Boundary       [][][][]float64 `json:"boundary,omitempty"`
}

// Document is the top-level output payload. It carries no generation
// timestamp: identical inputs must produce byte-identical documents, and
// run provenance lives in the snapshot store.
type Document struct {
	RunID          string  `json:"runId,omitempty"`
	Neighbourhoods []Place `json:"neighbourhoods"`
}

// Input bundles one neighbourhood's worth of material for assembly.
type Input struct {
	Neighbourhood *catalog.Neighbourhood
	Metrics       *metrics.Result
	Scores        *scoring.ScoreSet
	Points        []*feature.Point
}

// detailCategories lists the categories whose feature names are worth
// surfacing in the output. Incident categories would list thousands of
// anonymous rows, so they are excluded.
var detailCategories = []feature.Category{
	feature.CategoryPark, feature.CategorySchool, feature.CategoryLibrary,
	feature.CategoryGym, feature.CategoryGrocery, feature.CategoryDining,
}

const maxDetailNames = 25

// Build ranks the scored inputs into a Document. Inputs must arrive in
// catalog order so the stable sort preserves it for ties.
func Build(inputs []Input, runID string) *Document {
	doc := &Document{RunID: runID}
	for _, in := range inputs {
		doc.Neighbourhoods = append(doc.Neighbourhoods, Place{
			ID:      in.Metrics.ID,
			Name:    in.Metrics.Name,
			Scores:  in.Scores,
			Metrics: in.Metrics,
			Details: detailNames(in.Points),
			Zones:   zoneDetails(in.Neighbourhood),
		})
	}

	sort.SliceStable(doc.Neighbourhoods, func(i, j int) bool {
		a, b := doc.Neighbourhoods[i].Scores.Overall, doc.Neighbourhoods[j].Scores.Overall
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
	for i := range doc.Neighbourhoods {
		doc.Neighbourhoods[i].Rank = i + 1
	}
	return doc
}

func detailNames(points []*feature.Point) map[string][]string {
	details := make(map[string][]string)
	for _, cat := range detailCategories {
		var names []string
		for _, p := range points {
			if p.Category != cat || p.Name == "" {
				continue
			}
			names = append(names, p.Name)
			if len(names) == maxDetailNames {
				break
			}
		}
		if len(names) > 0 {
			sort.Strings(names)
			details[string(cat)] = names
		}
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

func zoneDetails(n *catalog.Neighbourhood) []ZoneDetail {
	if n == nil {
		return nil
	}
	var zones []ZoneDetail
	for i := range n.Zones {
		z := &n.Zones[i]
		zones = append(zones, ZoneDetail{
			ID:             z.ID,
			Name:           z.Name,
			Population:     z.Attrs.Population,
			CrimeRatePer1k: metrics.ZoneCrimeRatePer1k(&z.Attrs),
			MedianIncome:   z.Attrs.MedianHouseholdIncome,
			TreeCanopyPct:  z.Attrs.TreeCanopyPct,
			Boundary:       encodePolygons(z.Polygons),
		})
	}
	return zones
}

// encodePolygons flattens polygons to GeoJSON-style nested coordinate
// arrays, [lon, lat] per vertex.
func encodePolygons(polys []geometry.Polygon) [][][][]float64 {
	var out [][][][]float64
	for _, poly := range polys {
		var rings [][][]float64
		for _, ring := range poly {
			coords := make([][]float64, 0, len(ring))
			for _, p := range ring {
				coords = append(coords, []float64{p.Lon, p.Lat})
			}
			rings = append(rings, coords)
		}
		out = append(out, rings)
	}
	return out
}

// WriteJSON marshals the document and writes it atomically: a temp file in
// the target directory, then rename.
func WriteJSON(doc *Document, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "assemble: marshal document")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "assemble: create output dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".liveability-*.json")
	if err != nil {
		return eris.Wrap(err, "assemble: create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "assemble: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "assemble: close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "assemble: rename into %s", path)
	}
	zap.L().Info("wrote output document",
		zap.String("path", path),
		zap.Int("neighbourhoods", len(doc.Neighbourhoods)),
		zap.Int("bytes", len(data)))
	return nil
}
