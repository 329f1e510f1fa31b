package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-qualifier/internal/model"
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

func testInput() model.BatchInput {
	return model.BatchInput{
		ProfileURLs: []string{"https://example.com/in/a", "https://example.com/in/b"},
		QualificationCriteria: model.QualificationCriteria{
			TargetJobTitles: []string{"CTO"},
		},
		ScoringWeights: model.DefaultScoringWeights(),
		MinimumScore:   60,
		Concurrency:    5,
	}
}

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testInput())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Equal(t, testInput().ProfileURLs, got.Input.ProfileURLs)
	assert.Empty(t, got.Leads)
}

func TestSQLite_CompleteRunRoundtrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testInput())
	require.NoError(t, err)

	leads := []model.ScoredLead{
		{
			Profile:              model.RawProfile{URL: "https://example.com/in/a", Name: "A"},
			TotalScore:           82.5,
			QualificationReasons: []string{"Perfect job title match: CTO"},
		},
	}
	stats := model.RunStats{
		TotalRequested: 2,
		Succeeded:      2,
		Failed:         0,
		Qualified:      1,
		AverageScore:   82.5,
		Elapsed:        3 * time.Second,
	}
	require.NoError(t, st.CompleteRun(ctx, run.ID, leads, stats))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.Len(t, got.Leads, 1)
	assert.Equal(t, 82.5, got.Leads[0].TotalScore)
	assert.Equal(t, stats, got.Stats)
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testInput())
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, run.ID))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
}

func TestSQLite_UpdateMissingRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	assert.Error(t, st.CompleteRun(ctx, "no-such-run", nil, model.RunStats{}))
	assert.Error(t, st.FailRun(ctx, "no-such-run"))

	_, err := st.GetRun(ctx, "no-such-run")
	assert.Error(t, err)
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.CreateRun(ctx, testInput())
	require.NoError(t, err)
	second, err := st.CreateRun(ctx, testInput())
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, second.ID, nil, model.RunStats{}))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	complete, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, second.ID, complete[0].ID)

	running, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusRunning})
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, first.ID, running[0].ID)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_ListRunsEmpty(t *testing.T) {
	st := newTestSQLiteStore(t)

	runs, err := st.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}
