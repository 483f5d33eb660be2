// Package snapshot persists build runs and their ranked scores so past
// results can be listed, compared, and served without rebuilding.
package snapshot

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ottcivic/liveability-cli/internal/assemble"
	"github.com/ottcivic/liveability-cli/internal/catalog"
)

// RunStatus tracks a build run through its lifecycle.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded invocation of the build pipeline.
type Run struct {
	ID             string     `json:"id"`
	Status         RunStatus  `json:"status"`
	City           string     `json:"city"`
	Neighbourhoods int        `json:"neighbourhoods"`
	Error          string     `json:"error,omitempty"`
	StartedAt      time.Time  `json:"startedAt"`
	FinishedAt     *time.Time `json:"finishedAt,omitempty"`
}

// ScoreRow is the flattened per-neighbourhood record kept for a run.
type ScoreRow struct {
	RunID   string                  `json:"runId"`
	Rank    int                     `json:"rank"`
	ID      catalog.NeighbourhoodID `json:"id"`
	Name    string                  `json:"name"`
	Overall *float64                `json:"overall"`
	Place   *assemble.Place         `json:"place,omitempty"`
}

// RunFilter narrows ListRuns.
type RunFilter struct {
	Status RunStatus
	Limit  int
}

// Store is the persistence interface for build runs.
type Store interface {
	CreateRun(ctx context.Context, city string) (*Run, error)
	CompleteRun(ctx context.Context, runID string, count int) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	LatestRun(ctx context.Context) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	SaveScores(ctx context.Context, runID string, places []assemble.Place) error
	GetScores(ctx context.Context, runID string) ([]ScoreRow, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open constructs and migrates the store named by driver, "sqlite" or
// "postgres".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var st Store
	var err error
	switch driver {
	case "sqlite", "":
		st, err = NewSQLite(dsn)
	case "postgres":
		st, err = NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("snapshot: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
