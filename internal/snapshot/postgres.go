package snapshot

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ottcivic/liveability-cli/internal/assemble"
	"github.com/ottcivic/liveability-cli/internal/catalog"
	"github.com/ottcivic/liveability-cli/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	status      TEXT NOT NULL DEFAULT 'running',
	city        TEXT NOT NULL,
	count       INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS neighbourhood_scores (
	run_id  TEXT NOT NULL REFERENCES runs(id),
	rank    INTEGER NOT NULL,
	id      TEXT NOT NULL,
	name    TEXT NOT NULL,
	overall DOUBLE PRECISION,
	place   JSONB NOT NULL,
	PRIMARY KEY (run_id, id)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_scores_run_id ON neighbourhood_scores(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, city string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Status:    RunStatusRunning,
		City:      city,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, status, city, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, string(run.Status), run.City, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, count int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, count = $2, finished_at = $3 WHERE id = $4`,
		string(RunStatusComplete), count, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, finished_at = $3 WHERE id = $4`,
		string(RunStatusFailed), msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, status, city, count, error, started_at, finished_at FROM runs WHERE id = $1`,
		runID,
	)
	return scanPgRun(row)
}

func (s *PostgresStore) LatestRun(ctx context.Context) (*Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, status, city, count, error, started_at, finished_at FROM runs
		 WHERE status = $1 ORDER BY started_at DESC LIMIT 1`,
		string(RunStatusComplete),
	)
	run, err := scanPgRun(row)
	if eris.Is(err, errRunNotFound) {
		return nil, nil
	}
	return run, err
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, status, city, count, error, started_at, finished_at FROM runs`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	if len(args) == 1 {
		query += ` LIMIT $1`
	} else {
		query += ` LIMIT $2`
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// SaveScores bulk-inserts via COPY; one build produces a few hundred rows.
func (s *PostgresStore) SaveScores(ctx context.Context, runID string, places []assemble.Place) error {
	rows := make([][]any, 0, len(places))
	for i := range places {
		p := &places[i]
		placeJSON, err := json.Marshal(p)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal place %s", p.ID)
		}
		rows = append(rows, []any{runID, p.Rank, string(p.ID), p.Name, overallOf(p), string(placeJSON)})
	}
	_, err := db.CopyFrom(ctx, s.pool, "neighbourhood_scores",
		[]string{"run_id", "rank", "id", "name", "overall", "place"}, rows)
	return eris.Wrapf(err, "postgres: save scores for run %s", runID)
}

func (s *PostgresStore) GetScores(ctx context.Context, runID string) ([]ScoreRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, rank, id, name, overall, place FROM neighbourhood_scores
		 WHERE run_id = $1 ORDER BY rank`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get scores %s", runID)
	}
	defer rows.Close()

	var out []ScoreRow
	for rows.Next() {
		var sr ScoreRow
		var id string
		var overall *float64
		var placeJSON []byte
		if err := rows.Scan(&sr.RunID, &sr.Rank, &id, &sr.Name, &overall, &placeJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan score")
		}
		sr.ID = catalog.NeighbourhoodID(id)
		sr.Overall = overall
		sr.Place = &assemble.Place{}
		if err := json.Unmarshal(placeJSON, sr.Place); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal place")
		}
		out = append(out, sr)
	}
	return out, eris.Wrap(rows.Err(), "postgres: get scores iterate")
}

func scanPgRun(row pgx.Row) (*Run, error) {
	var r Run
	var errMsg *string
	var finished *time.Time

	err := row.Scan(&r.ID, &r.Status, &r.City, &r.Neighbourhoods, &errMsg, &r.StartedAt, &finished)
	if err == pgx.ErrNoRows {
		return nil, errRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	r.FinishedAt = finished
	return &r, nil
}
