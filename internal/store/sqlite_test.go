package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/websearch/internal/model"
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

func newRun(engine, query string) model.SearchRun {
	return model.SearchRun{Engine: engine, Query: query, MaxResults: 10, Mode: model.SearchModeBlocking}
}

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, newRun("google", "golang generics"))
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.False(t, run.CreatedAt.IsZero())

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "google", got.Engine)
	assert.Equal(t, "golang generics", got.Query)
	assert.Equal(t, 10, got.MaxResults)
	assert.Equal(t, model.SearchModeBlocking, got.Mode)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Empty(t, got.Error)
}

func TestSQLite_CompleteRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, newRun("yahoo", "q"))
	require.NoError(t, err)

	require.NoError(t, st.CompleteRun(ctx, run.ID, model.RunOutcome{
		Status:     model.RunStatusFailed,
		Results:    7,
		Pages:      2,
		Error:      "fetch http://x: status 503",
		DurationMs: 120,
	}))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, 7, got.Results)
	assert.Equal(t, 2, got.Pages)
	assert.Equal(t, "fetch http://x: status 503", got.Error)
	assert.EqualValues(t, 120, got.DurationMs)
}

func TestSQLite_CompleteRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.CompleteRun(context.Background(), "missing", model.RunOutcome{Status: model.RunStatusComplete})
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.GetRun(context.Background(), "missing")
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, engine := range []string{"google", "google", "msn"} {
		_, err := st.CreateRun(ctx, newRun(engine, "q"))
		require.NoError(t, err)
	}
	done, err := st.CreateRun(ctx, newRun("ask", "q"))
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, done.ID, model.RunOutcome{Status: model.RunStatusComplete, Results: 10}))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	google, err := st.ListRuns(ctx, RunFilter{Engine: "google"})
	require.NoError(t, err)
	assert.Len(t, google, 2)

	complete, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, done.ID, complete[0].ID)

	page, err := st.ListRuns(ctx, RunFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestOpen_SQLite(t *testing.T) {
	st, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	_, err = st.CreateRun(context.Background(), newRun("dmoz", "q"))
	assert.NoError(t, err)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}
