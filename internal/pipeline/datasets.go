package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ottcivic/liveability-cli/internal/catalog"
	"github.com/ottcivic/liveability-cli/internal/config"
	"github.com/ottcivic/liveability-cli/internal/feature"
	"github.com/ottcivic/liveability-cli/internal/fetcher"
	"github.com/ottcivic/liveability-cli/internal/overlay"
)

// Fixed column layouts for the overlay tables. The fetch command writes
// them in this shape, so positions rather than header names are contract.
var (
	zoneAttrLayout = overlay.ZoneAttrColumns{
		ID: 0, Population: 1, MedianIncome: 2, HouseholdSz: 3, TreeCanopy: 4, Unemployment: 5,
	}
	indexLayout   = overlay.IndexColumns{ID: 0, Walk: 1, Transit: 2, Bike: 3}
	healthLayout  = overlay.HealthColumns{ID: 0, NEI: 1, SelfRated: 2, FoodSafety: 3}
	commuteIDCol  = 0
	commuteMinCol = 1
)

// loadDataset reads one point dataset. A missing file is not an error: the
// dataset is reported absent and its metrics stay null downstream.
func loadDataset(ctx context.Context, ds config.DatasetConfig) (points []*feature.Point, loaded bool, rejected int, err error) {
	f, err := os.Open(ds.Path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Info("pipeline: dataset absent",
				zap.String("category", ds.Category),
				zap.String("path", ds.Path))
			return nil, false, 0, nil
		}
		return nil, false, 0, eris.Wrapf(err, "pipeline: open dataset %s", ds.Path)
	}
	defer func() { _ = f.Close() }()

	rows, err := fetcher.ReadCSV(ctx, f, fetcher.CSVOptions{TrimSpace: true})
	if err != nil {
		return nil, false, 0, eris.Wrapf(err, "pipeline: read dataset %s", ds.Path)
	}
	if len(rows) == 0 {
		return nil, true, 0, nil
	}

	schema, err := resolveSchema(rows[0], ds)
	if err != nil {
		return nil, false, 0, err
	}

	cat := feature.Category(ds.Category)
	for _, row := range rows[1:] {
		p, ok := feature.FromRow(cat, row, schema)
		if !ok {
			rejected++
			continue
		}
		points = append(points, p)
	}

	zap.L().Info("pipeline: dataset loaded",
		zap.String("category", ds.Category),
		zap.Int("points", len(points)),
		zap.Int("rejected", rejected))
	return points, true, rejected, nil
}

// resolveSchema turns the configured column names into indices via the
// header row, case-insensitively.
func resolveSchema(header []string, ds config.DatasetConfig) (feature.RowSchema, error) {
	find := func(name string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}

	schema := feature.RowSchema{
		LatColumn:  find(ds.LatColumn),
		LonColumn:  find(ds.LonColumn),
		NameColumn: -1,
	}
	if schema.LatColumn < 0 || schema.LonColumn < 0 {
		return schema, eris.Errorf("pipeline: dataset %s missing coordinate columns %q/%q",
			ds.Path, ds.LatColumn, ds.LonColumn)
	}
	if ds.NameColumn != "" {
		schema.NameColumn = find(ds.NameColumn)
	}
	for attr, col := range ds.AttrCols {
		idx := find(col)
		if idx < 0 {
			continue
		}
		if schema.AttrCols == nil {
			schema.AttrCols = make(map[string]int, len(ds.AttrCols))
		}
		schema.AttrCols[attr] = idx
	}
	return schema, nil
}

// loadOverlays reads the optional per-neighbourhood tables. Sampled health
// indicators stand in for a missing health table only when the config opts
// in; otherwise absent data stays null all the way to the scores.
func (p *Pipeline) loadOverlays(ctx context.Context, cat *catalog.Catalog) (*overlay.Set, error) {
	set := &overlay.Set{}
	oc := p.cfg.Data.Overlays

	if oc.Indices != "" {
		rows, err := overlay.ReadCSVRows(ctx, oc.Indices)
		if err != nil {
			return nil, err
		}
		if rows != nil {
			set.Indices = overlay.IndicesFromRows(rows, indexLayout)
		}
	}

	if oc.Health != "" {
		rows, err := readOverlayTable(ctx, oc.Health)
		if err != nil {
			return nil, err
		}
		if rows != nil {
			set.Health = overlay.HealthFromRows(rows, healthLayout)
		}
	}
	if set.Health == nil && oc.SampleHealth {
		hoods := cat.Neighbourhoods()
		ids := make([]catalog.NeighbourhoodID, len(hoods))
		for i := range hoods {
			ids[i] = hoods[i].ID
		}
		set.Health = overlay.SampleHealth(ids, oc.HealthSeed)
	}

	if oc.Commute != "" {
		rows, err := overlay.ReadCSVRows(ctx, oc.Commute)
		if err != nil {
			return nil, err
		}
		if rows != nil {
			set.CommuteMinutes = overlay.CommuteFromRows(rows, commuteIDCol, commuteMinCol)
		}
	}

	return set, nil
}

// readOverlayTable dispatches on extension: xlsx workbooks or plain CSV.
func readOverlayTable(ctx context.Context, path string) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return overlay.ReadXLSXRows(path)
	}
	return overlay.ReadCSVRows(ctx, path)
}
