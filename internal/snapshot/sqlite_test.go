package snapshot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ottcivic/liveability-cli/internal/assemble"
	"github.com/ottcivic/liveability-cli/internal/scoring"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func ptr(v float64) *float64 { return &v }

func testPlaces() []assemble.Place {
	return []assemble.Place{
		{Rank: 1, ID: "glebe", Name: "The Glebe", Scores: &scoring.ScoreSet{Overall: ptr(88.5)}},
		{Rank: 2, ID: "vanier", Name: "Vanier", Scores: &scoring.ScoreSet{Overall: ptr(61.2)}},
		{Rank: 3, ID: "greenbelt", Name: "Greenbelt", Scores: &scoring.ScoreSet{}},
	}
}

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "ottawa")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	require.NoError(t, st.CompleteRun(ctx, run.ID, 3))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusComplete, got.Status)
	assert.Equal(t, 3, got.Neighbourhoods)
	assert.NotNil(t, got.FinishedAt)
}

func TestSQLite_FailRunRecordsCause(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "ottawa")
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, run.ID, assert.AnError))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Contains(t, got.Error, assert.AnError.Error())
}

func TestSQLite_CompleteRun_Unknown(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.CompleteRun(context.Background(), "no-such-run", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_SaveAndGetScores(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "ottawa")
	require.NoError(t, err)
	require.NoError(t, st.SaveScores(ctx, run.ID, testPlaces()))

	rows, err := st.GetScores(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "The Glebe", rows[0].Name)
	require.NotNil(t, rows[0].Overall)
	assert.InDelta(t, 88.5, *rows[0].Overall, 1e-9)
	assert.Nil(t, rows[2].Overall, "unscored entry keeps a null overall")
	require.NotNil(t, rows[0].Place)
	assert.Equal(t, "The Glebe", rows[0].Place.Name)
}

func TestSQLite_LatestRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	latest, err := st.LatestRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest, "no completed run yet")

	first, err := st.CreateRun(ctx, "ottawa")
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, first.ID, 1))

	// A still-running run must not shadow the completed one.
	_, err = st.CreateRun(ctx, "ottawa")
	require.NoError(t, err)

	latest, err = st.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, first.ID, latest.ID)
}

func TestSQLite_ListRuns_FiltersStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx, "ottawa")
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, a.ID, 2))
	_, err = st.CreateRun(ctx, "ottawa")
	require.NoError(t, err)

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	complete, err := st.ListRuns(ctx, RunFilter{Status: RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, a.ID, complete[0].ID)
}
