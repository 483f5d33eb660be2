// Package pipeline orchestrates a full scoring build: load the
// neighbourhood catalog and datasets, spatially assign features, aggregate
// metrics, score, rank, and publish.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ottcivic/liveability-cli/internal/assemble"
	"github.com/ottcivic/liveability-cli/internal/catalog"
	"github.com/ottcivic/liveability-cli/internal/config"
	"github.com/ottcivic/liveability-cli/internal/feature"
	"github.com/ottcivic/liveability-cli/internal/metrics"
	"github.com/ottcivic/liveability-cli/internal/overlay"
	"github.com/ottcivic/liveability-cli/internal/proximity"
	"github.com/ottcivic/liveability-cli/internal/scoring"
	"github.com/ottcivic/liveability-cli/internal/snapshot"
)

// Pipeline runs scoring builds.
type Pipeline struct {
	cfg   *config.Config
	store snapshot.Store // optional
}

// New creates a Pipeline. store may be nil to skip run persistence.
func New(cfg *config.Config, store snapshot.Store) *Pipeline {
	return &Pipeline{cfg: cfg, store: store}
}

// Result summarizes one completed build.
type Result struct {
	RunID    string
	Document *assemble.Document
	Resolve  catalog.ResolveReport
	Assign   *feature.AssignReport
	Duration time.Duration
}

// Run executes the full build and writes the output document.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.String("city", p.cfg.City))
	log.Info("pipeline: starting build")

	var runID string
	if p.store != nil {
		run, err := p.store.CreateRun(ctx, p.cfg.City)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		runID = run.ID
	}

	res, err := p.build(ctx, runID)
	if p.store != nil && runID != "" {
		if err != nil {
			if failErr := p.store.FailRun(ctx, runID, err); failErr != nil {
				log.Warn("pipeline: failed to record run failure", zap.Error(failErr))
			}
		} else {
			if saveErr := p.store.SaveScores(ctx, runID, res.Document.Neighbourhoods); saveErr != nil {
				log.Warn("pipeline: failed to save scores", zap.Error(saveErr))
			}
			if completeErr := p.store.CompleteRun(ctx, runID, len(res.Document.Neighbourhoods)); completeErr != nil {
				log.Warn("pipeline: failed to complete run", zap.Error(completeErr))
			}
		}
	}
	if err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	log.Info("pipeline: build finished",
		zap.String("run_id", runID),
		zap.Int("neighbourhoods", len(res.Document.Neighbourhoods)),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func (p *Pipeline) build(ctx context.Context, runID string) (*Result, error) {
	cat, resolveReport, err := p.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	points, present, years, rejected, err := p.loadDatasets(ctx)
	if err != nil {
		return nil, err
	}

	assignReport := feature.NewAssignReport()
	for cat, n := range rejected {
		assignReport.Rejected[cat] = n
	}
	assigner := feature.NewAssigner(cat)
	byHood := assigner.AssignAll(points, assignReport)
	logAssignment(assignReport)

	overlays, err := p.loadOverlays(ctx, cat)
	if err != nil {
		return nil, err
	}

	// City-wide facility sets: proximity ignores neighbourhood boundaries.
	hospitals := proximity.FacilitySet{Subtype: "hospital", Points: pointsOf(points, feature.CategoryHospital)}
	rapid := proximity.FacilitySet{Subtype: "rapid_station", Points: pointsOf(points, feature.CategoryRapidStation)}

	opts := metrics.Options{
		Present:        present,
		CrimeYears:     years[feature.CategoryCrime],
		CollisionYears: years[feature.CategoryCollision],
		ServiceYears:   years[feature.CategoryService],
	}

	hoods := cat.Neighbourhoods()
	inputs := make([]assemble.Input, len(hoods))

	concurrency := p.cfg.Build.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range hoods {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n := &hoods[i]
			m := metrics.Aggregate(n, byHood[n.ID], overlays, opts)
			m.Hospital = proximity.NearestTo(n, hospitals)
			m.RapidTransit = proximity.NearestTo(n, rapid)
			inputs[i] = assemble.Input{
				Neighbourhood: n,
				Metrics:       m,
				Scores:        scoring.ScoreNeighbourhood(m),
				Points:        byHood[n.ID],
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: score neighbourhoods")
	}

	doc := assemble.Build(inputs, runID)
	if err := assemble.WriteJSON(doc, p.cfg.Data.Output); err != nil {
		return nil, err
	}

	return &Result{
		RunID:    runID,
		Document: doc,
		Resolve:  resolveReport,
		Assign:   assignReport,
	}, nil
}

// loadCatalog reads the mapping and boundary source and resolves them into
// the neighbourhood catalog.
func (p *Pipeline) loadCatalog(ctx context.Context) (*catalog.Catalog, catalog.ResolveReport, error) {
	mapping, err := catalog.LoadMapping(p.cfg.Data.Mapping)
	if err != nil {
		return nil, catalog.ResolveReport{}, err
	}

	var source *catalog.StaticSource
	bc := p.cfg.Data.Boundaries
	switch bc.Format {
	case "shapefile":
		source, err = catalog.LoadShapefile(bc.Path, catalog.ShapefileOptions{
			IDField:         bc.IDProperty,
			NameField:       bc.NameProperty,
			PopulationField: bc.PopulationProperty,
		})
	case "geojson", "":
		source, err = catalog.LoadGeoJSON(bc.Path, catalog.GeoJSONOptions{
			IDProperty:         bc.IDProperty,
			NameProperty:       bc.NameProperty,
			PopulationProperty: bc.PopulationProperty,
		})
	default:
		return nil, catalog.ResolveReport{}, eris.Errorf("pipeline: unknown boundary format %q", bc.Format)
	}
	if err != nil {
		return nil, catalog.ResolveReport{}, err
	}

	// Optional per-zone census/demographic overlay.
	if path := p.cfg.Data.Overlays.ZoneAttrs; path != "" {
		rows, err := overlay.ReadCSVRows(ctx, path)
		if err != nil {
			return nil, catalog.ResolveReport{}, err
		}
		if rows != nil {
			source.MergeAttributes(overlay.ZoneAttrsFromRows(rows, zoneAttrLayout))
		}
	}

	cat, report := catalog.Resolve(mapping, source)
	zap.L().Info("pipeline: catalog resolved",
		zap.Int("neighbourhoods", report.Neighbourhoods),
		zap.Int("zones_resolved", report.ZonesResolved),
		zap.Int("zones_missing", report.ZonesMissing))
	return cat, report, nil
}

// loadDatasets reads every configured point dataset concurrently.
func (p *Pipeline) loadDatasets(ctx context.Context) ([]*feature.Point, map[feature.Category]bool, map[feature.Category]float64, map[feature.Category]int, error) {
	present := make(map[feature.Category]bool)
	years := make(map[feature.Category]float64)
	rejected := make(map[feature.Category]int)

	var mu sync.Mutex
	var all []*feature.Point

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, ds := range p.cfg.Data.Datasets {
		g.Go(func() error {
			points, loaded, badRows, err := loadDataset(gctx, ds)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if loaded {
				cat := feature.Category(ds.Category)
				present[cat] = true
				if ds.Years > 0 {
					years[cat] = ds.Years
				}
				rejected[cat] += badRows
				all = append(all, points...)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, nil, err
	}

	// Concurrent loading scrambles order; restore catalog determinism.
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Category != all[j].Category {
			return all[i].Category < all[j].Category
		}
		return all[i].Name < all[j].Name
	})
	return all, present, years, rejected, nil
}

func logAssignment(report *feature.AssignReport) {
	for cat, n := range report.Assigned {
		zap.L().Debug("pipeline: assigned features",
			zap.String("category", string(cat)),
			zap.Int("assigned", n),
			zap.Int("unassigned", report.Unassigned[cat]),
			zap.Int("rejected", report.Rejected[cat]))
	}
}

func pointsOf(points []*feature.Point, cat feature.Category) []*feature.Point {
	var out []*feature.Point
	for _, p := range points {
		if p.Category == cat {
			out = append(out, p)
		}
	}
	return out
}
