package overlay

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ottcivic/liveability-cli/internal/catalog"
	"github.com/ottcivic/liveability-cli/internal/fetcher"
)

// IndexColumns maps the walk/transit/bike table layout.
type IndexColumns struct {
	ID      int
	Walk    int // -1 when absent
	Transit int
	Bike    int
}

// IndicesFromRows parses an index table already read into rows.
func IndicesFromRows(rows [][]string, cols IndexColumns) map[catalog.NeighbourhoodID]Indices {
	out := make(map[catalog.NeighbourhoodID]Indices, len(rows))
	for _, row := range rows {
		id := cellID(row, cols.ID)
		if id == "" {
			continue
		}
		out[catalog.NeighbourhoodID(id)] = Indices{
			Walk:    cellFloat(row, cols.Walk),
			Transit: cellFloat(row, cols.Transit),
			Bike:    cellFloat(row, cols.Bike),
		}
	}
	return out
}

// HealthColumns maps the health indicator table layout.
type HealthColumns struct {
	ID         int
	NEI        int
	SelfRated  int
	FoodSafety int
}

// HealthFromRows parses a health indicator table.
func HealthFromRows(rows [][]string, cols HealthColumns) map[catalog.NeighbourhoodID]Health {
	out := make(map[catalog.NeighbourhoodID]Health, len(rows))
	for _, row := range rows {
		id := cellID(row, cols.ID)
		if id == "" {
			continue
		}
		out[catalog.NeighbourhoodID(id)] = Health{
			NEI:                cellFloat(row, cols.NEI),
			SelfRatedHealthPct: cellFloat(row, cols.SelfRated),
			FoodSafetyPct:      cellFloat(row, cols.FoodSafety),
		}
	}
	return out
}

// CommuteFromRows parses an id → average-commute-minutes table.
func CommuteFromRows(rows [][]string, idCol, minutesCol int) map[catalog.NeighbourhoodID]*float64 {
	out := make(map[catalog.NeighbourhoodID]*float64, len(rows))
	for _, row := range rows {
		id := cellID(row, idCol)
		if id == "" {
			continue
		}
		out[catalog.NeighbourhoodID(id)] = cellFloat(row, minutesCol)
	}
	return out
}

// ZoneAttrColumns maps a per-zone census/demographic table layout. Columns
// set to -1 are skipped.
type ZoneAttrColumns struct {
	ID           int
	Population   int
	MedianIncome int
	HouseholdSz  int
	TreeCanopy   int
	Unemployment int
}

// ZoneAttrsFromRows parses a per-zone attribute table, keyed by zone id.
func ZoneAttrsFromRows(rows [][]string, cols ZoneAttrColumns) map[catalog.ZoneID]catalog.ZoneAttributes {
	out := make(map[catalog.ZoneID]catalog.ZoneAttributes, len(rows))
	for _, row := range rows {
		id := cellID(row, cols.ID)
		if id == "" {
			continue
		}
		attrs := catalog.ZoneAttributes{
			MedianHouseholdIncome: cellFloat(row, cols.MedianIncome),
			AvgHouseholdSize:      cellFloat(row, cols.HouseholdSz),
			TreeCanopyPct:         cellFloat(row, cols.TreeCanopy),
			UnemploymentPct:       cellFloat(row, cols.Unemployment),
		}
		if pop := cellFloat(row, cols.Population); pop != nil {
			attrs.Population = int(*pop)
		}
		out[catalog.ZoneID(id)] = attrs
	}
	return out
}

// ReadCSVRows reads an entire CSV file into rows, skipping the header.
// A missing file returns nil rows and no error: overlays are optional.
func ReadCSVRows(ctx context.Context, path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Info("overlay: dataset absent", zap.String("path", path))
			return nil, nil
		}
		return nil, eris.Wrapf(err, "overlay: open %s", path)
	}
	defer func() { _ = f.Close() }()

	rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{HasHeader: true, TrimSpace: true})
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrapf(err, "overlay: read %s", path)
	}
	return rows, nil
}

// ReadXLSXRows reads the first sheet of an XLSX overlay into rows, skipping
// the header row. A missing file reads as an absent overlay.
func ReadXLSXRows(path string) ([][]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		zap.L().Info("overlay: dataset absent", zap.String("path", path))
		return nil, nil
	}
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SkipRows: 1})
	if err != nil {
		return nil, eris.Wrapf(err, "overlay: read %s", path)
	}
	return rows, nil
}

func cellID(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

func cellFloat(row []string, col int) *float64 {
	if col < 0 || col >= len(row) {
		return nil
	}
	return parseFloatCell(row[col])
}
