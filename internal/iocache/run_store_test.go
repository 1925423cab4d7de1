package iocache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/repostats/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunStore(t *testing.T) *RunStoreImpl {
	t.Helper()
	store, err := NewRunStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunStore_None(t *testing.T) {
	for _, backend := range []schema.DatabaseBackend{schema.NoneBackend, ""} {
		store, err := NewRunStore(backend, "")
		require.NoError(t, err)

		id, err := store.BeginRun("github", "octo/widgets", time.Now())
		require.NoError(t, err)
		assert.Equal(t, int64(0), id)
		assert.NoError(t, store.EndRun(id, time.Now(), schema.FetchRun{}))

		runs, err := store.ListRuns(10)
		require.NoError(t, err)
		assert.Empty(t, runs)

		status, err := store.GetStatus()
		require.NoError(t, err)
		assert.Equal(t, "none", status.Backend)
		assert.False(t, status.Connected)
		assert.NoError(t, store.Clear())
		assert.NoError(t, store.Close())
	}
}

func TestRunStore_SQLiteLifecycle(t *testing.T) {
	store := newTestRunStore(t)

	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	id1, err := store.BeginRun("github", "octo/widgets", start)
	require.NoError(t, err)
	assert.Positive(t, id1)

	require.NoError(t, store.EndRun(id1, start.Add(90*time.Second), schema.FetchRun{Queued: 10, Fetched: 10}))

	id2, err := store.BeginRun("github", "octo/widgets", start.Add(time.Hour))
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first
	assert.Equal(t, id2, runs[0].RunID)
	assert.True(t, runs[0].EndTime.IsZero(), "second run never ended")

	first := runs[1]
	assert.Equal(t, "octo/widgets", first.Repo)
	assert.Equal(t, int64(90000), first.DurationMs)
	assert.Equal(t, 10, first.Fetched)
	assert.True(t, first.StartTime.Equal(start))
	assert.True(t, first.EndTime.Equal(start.Add(90*time.Second)))

	limited, err := store.ListRuns(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, id2, limited[0].RunID)
}

func TestRunStore_SQLiteStatus(t *testing.T) {
	store := newTestRunStore(t)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 0, status.TotalRuns)

	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	ok, err := store.BeginRun("github", "octo/widgets", start)
	require.NoError(t, err)
	require.NoError(t, store.EndRun(ok, start.Add(time.Second), schema.FetchRun{Queued: 3, Fetched: 3}))

	limited, err := store.BeginRun("github", "octo/widgets", start.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, store.EndRun(limited, start.Add(2*time.Minute), schema.FetchRun{Queued: 5, Fetched: 2, Failed: 3, Outdated: 3, RateLimited: true}))

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalRuns)
	assert.Equal(t, limited, status.LastRunID)
	assert.True(t, status.LastRunTime.Equal(start.Add(time.Minute)))
	assert.True(t, status.OldestRunTime.Equal(start))
	assert.Equal(t, 1, status.FailedRuns)

	runs, err := store.ListRuns(1)
	require.NoError(t, err)
	assert.True(t, runs[0].RateLimited)

	require.NoError(t, store.Clear())
	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 0, status.TotalRuns)
}

func TestRunStore_EndRunUnknownID(t *testing.T) {
	store := newTestRunStore(t)
	err := store.EndRun(999, time.Now(), schema.FetchRun{})
	assert.Error(t, err)
}
