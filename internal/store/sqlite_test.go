package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "screener.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "growth-screen", []int{2023, 2022})
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	require.NoError(t, st.CompleteRun(ctx, run.ID, 1500, 50))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "growth-screen", got.Profile)
	assert.Equal(t, RunStatusCompleted, got.Status)
	assert.Equal(t, []int{2023, 2022}, got.Years)
	assert.Equal(t, 1500, got.Entities)
	assert.Equal(t, 50, got.ResultRows)
	require.NotNil(t, got.FinishedAt)
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "bad-screen", []int{2023})
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, run.ID, eris.New("merge: no entities in merged result")))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Contains(t, got.Error, "no entities")
	require.NotNil(t, got.FinishedAt)
}

func TestSQLite_Results(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "p", []int{2023})
	require.NoError(t, err)

	rows := []ResultRow{
		{Rank: 1, CompanyCode: "100", Score: 9, Payload: map[string]any{"ebitda_margin_2023": 0.4}},
		{Rank: 2, CompanyCode: "200", Score: 7},
	}
	require.NoError(t, st.SaveResults(ctx, run.ID, rows))

	got, err := st.ListResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "100", got[0].CompanyCode)
	assert.Equal(t, 9.0, got[0].Score)
	assert.InDelta(t, 0.4, got[0].Payload["ebitda_margin_2023"].(float64), 1e-9)
	assert.Equal(t, 2, got[1].Rank)
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx, "a", []int{2023})
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "b", []int{2023})
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, a.ID, 1, 1))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	completed, err := st.ListRuns(ctx, RunFilter{Status: RunStatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "a", completed[0].Profile)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetRun(context.Background(), "no-such-run")
	assert.Error(t, err)
}
