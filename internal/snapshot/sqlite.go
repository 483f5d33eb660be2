package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ottcivic/liveability-cli/internal/assemble"
	"github.com/ottcivic/liveability-cli/internal/catalog"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	city        TEXT NOT NULL,
	count       INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS neighbourhood_scores (
	run_id  TEXT NOT NULL REFERENCES runs(id),
	rank    INTEGER NOT NULL,
	id      TEXT NOT NULL,
	name    TEXT NOT NULL,
	overall REAL,
	place   TEXT NOT NULL,
	PRIMARY KEY (run_id, id)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_scores_run_id ON neighbourhood_scores(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, city string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Status:    RunStatusRunning,
		City:      city,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, city, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, string(run.Status), run.City, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, count int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, count = ?, finished_at = ? WHERE id = ?`,
		string(RunStatusComplete), count, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(RunStatusFailed), msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, city, count, error, started_at, finished_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) LatestRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, city, count, error, started_at, finished_at FROM runs
		 WHERE status = ? ORDER BY started_at DESC LIMIT 1`,
		string(RunStatusComplete),
	)
	run, err := scanRun(row)
	if err == errRunNotFound {
		return nil, nil
	}
	return run, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, status, city, count, error, started_at, finished_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveScores(ctx context.Context, runID string, places []assemble.Place) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin scores tx")
	}
	defer tx.Rollback()

	for i := range places {
		p := &places[i]
		placeJSON, err := json.Marshal(p)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal place %s", p.ID)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO neighbourhood_scores (run_id, rank, id, name, overall, place)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			runID, p.Rank, string(p.ID), p.Name, overallOf(p), string(placeJSON),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert score %s", p.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit scores")
}

func (s *SQLiteStore) GetScores(ctx context.Context, runID string) ([]ScoreRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, rank, id, name, overall, place FROM neighbourhood_scores
		 WHERE run_id = ? ORDER BY rank`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get scores %s", runID)
	}
	defer rows.Close()

	var out []ScoreRow
	for rows.Next() {
		row, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *row)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: get scores iterate")
}

// helpers

var errRunNotFound = eris.New("run not found")

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var errMsg sql.NullString
	var finished sql.NullTime

	err := row.Scan(&r.ID, &r.Status, &r.City, &r.Neighbourhoods, &errMsg, &r.StartedAt, &finished)
	if err == sql.ErrNoRows {
		return nil, errRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if errMsg.Valid {
		r.Error = errMsg.String
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

func scanScore(row scannable) (*ScoreRow, error) {
	var sr ScoreRow
	var id string
	var overall sql.NullFloat64
	var placeJSON string

	if err := row.Scan(&sr.RunID, &sr.Rank, &id, &sr.Name, &overall, &placeJSON); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan score")
	}
	sr.ID = catalog.NeighbourhoodID(id)
	if overall.Valid {
		v := overall.Float64
		sr.Overall = &v
	}
	sr.Place = &assemble.Place{}
	if err := json.Unmarshal([]byte(placeJSON), sr.Place); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal place")
	}
	return &sr, nil
}

func overallOf(p *assemble.Place) any {
	if p.Scores == nil || p.Scores.Overall == nil {
		return nil
	}
	return *p.Scores.Overall
}
