package iocache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryHistory(t *testing.T) *HistoryStoreImpl {
	t.Helper()
	store, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestHistoryStore_NoneBackend(t *testing.T) {
	store, err := NewHistoryStore(schema.NoneBackend, "")
	require.NoError(t, err)

	runID, err := store.BeginRun(time.Now(), map[string]any{"period": "month"})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), runID)
	assert.NoError(t, store.EndRun(1, time.Now(), 1, 0))
	assert.NoError(t, store.RecordMetricValues(1, []schema.MetricValueRecord{{Family: "scm", Metric: "commits"}}))

	runs, err := store.GetAllRuns()
	assert.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, store.Close())
}

func TestHistoryStore_SQLite(t *testing.T) {
	store := newMemoryHistory(t)
	start := time.Date(2014, 1, 2, 10, 0, 0, 0, time.UTC)

	runID, err := store.BeginRun(start, map[string]any{"period": "month", "workers": 4})
	require.NoError(t, err)
	assert.Greater(t, runID, int64(0))

	from := time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)
	values := []schema.MetricValueRecord{
		{Family: "scm", Metric: "commits", Value: 7, WindowFrom: from, WindowTo: to},
		{Family: "scm", Metric: "authors", Value: 3, WindowFrom: from, WindowTo: to},
		{Family: "scm", FilterKind: "repository", FilterName: "linux", Metric: "commits", Value: 5, WindowFrom: from, WindowTo: to},
	}
	require.NoError(t, store.RecordMetricValues(runID, values))
	require.NoError(t, store.EndRun(runID, start.Add(1500*time.Millisecond), 6, 1))

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, runID, run.RunID)
	assert.True(t, start.Equal(run.StartTime))
	require.NotNil(t, run.EndTime)
	require.NotNil(t, run.RunDurationMs)
	assert.Equal(t, int32(1500), *run.RunDurationMs)
	assert.Equal(t, int32(6), run.FamiliesOK)
	assert.Equal(t, int32(1), run.FamiliesError)
	require.NotNil(t, run.ConfigParams)
	assert.JSONEq(t, `{"period":"month","workers":4}`, *run.ConfigParams)

	stored, err := store.GetAllMetricValues()
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "authors", stored[0].Metric)
	assert.Equal(t, "linux", stored[2].FilterName)
	assert.InDelta(t, 5.0, stored[2].Value, 0.0001)
	assert.True(t, from.Equal(stored[2].WindowFrom))
	assert.True(t, to.Equal(stored[2].WindowTo))
}

func TestHistoryStore_DuplicateValuesRollBack(t *testing.T) {
	store := newMemoryHistory(t)
	runID, err := store.BeginRun(time.Now(), nil)
	require.NoError(t, err)

	dup := schema.MetricValueRecord{Family: "its", Metric: "opened", Value: 4}
	err = store.RecordMetricValues(runID, []schema.MetricValueRecord{dup, dup})
	assert.Error(t, err)

	stored, err := store.GetAllMetricValues()
	require.NoError(t, err)
	assert.Empty(t, stored, "A failed batch leaves nothing behind")
}

func TestHistoryStore_EndUnknownRun(t *testing.T) {
	store := newMemoryHistory(t)
	assert.Error(t, store.EndRun(99, time.Now(), 0, 0))
}

func TestHistoryStore_Status(t *testing.T) {
	store := newMemoryHistory(t)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Zero(t, status.TotalRuns)
	assert.Contains(t, status.TableSizes, reportRunsTable)

	first := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 3 {
		runID, err := store.BeginRun(first.AddDate(0, 0, i), nil)
		require.NoError(t, err)
		require.NoError(t, store.RecordMetricValues(runID, []schema.MetricValueRecord{{Family: "mls", Metric: "sent", Value: 4}}))
	}

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 3, status.TotalRuns)
	assert.Equal(t, 3, status.TotalValues)
	assert.Equal(t, int64(3), status.LastRunID)
	assert.True(t, first.AddDate(0, 0, 2).Equal(status.LastRunTime))
	assert.True(t, first.Equal(status.OldestRunTime))

	var buf bytes.Buffer
	PrintHistoryStatus(&buf, status)
	assert.Contains(t, buf.String(), "Total Runs: 3")
	assert.Contains(t, buf.String(), "grimoire_metric_values: 3 rows")
}

func TestMigrateHistory(t *testing.T) {
	t.Run("none backend", func(t *testing.T) {
		err := MigrateHistory(schema.NoneBackend, "", -1)
		assert.ErrorContains(t, err, "not supported")
	})

	t.Run("sqlite up and down", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "history.db")

		require.NoError(t, MigrateHistory(schema.SQLiteBackend, dbPath, -1))
		_, err := os.Stat(dbPath)
		assert.NoError(t, err)

		assert.NoError(t, MigrateHistory(schema.SQLiteBackend, dbPath, -1), "Second run is a no-op")
		assert.NoError(t, MigrateHistory(schema.SQLiteBackend, dbPath, 1))
		assert.NoError(t, MigrateHistory(schema.SQLiteBackend, dbPath, 0))
		assert.NoError(t, MigrateHistory(schema.SQLiteBackend, dbPath, LatestHistoryVersion))

		store, err := NewHistoryStore(schema.SQLiteBackend, dbPath)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		_, err = store.BeginRun(time.Now(), nil)
		assert.NoError(t, err)
	})

	t.Run("store on migrated database", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "history.db")
		store, err := NewHistoryStore(schema.SQLiteBackend, dbPath)
		require.NoError(t, err)
		require.NoError(t, store.Close())

		assert.NoError(t, MigrateHistory(schema.SQLiteBackend, dbPath, -1))
	})
}

func TestClearHistory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := NewHistoryStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	require.NoError(t, ClearHistory(schema.SQLiteBackend, dbPath, ""))
	_, err = os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, ClearHistory(schema.NoneBackend, "", ""))
}

func TestExportHistory(t *testing.T) {
	store := newMemoryHistory(t)
	out := filepath.Join(t.TempDir(), "grimoire")

	_, err := ExportHistory(store, out)
	assert.ErrorContains(t, err, "no report history")
	_, err = ExportHistory(store, "")
	assert.Error(t, err)
	_, err = ExportHistory(nil, out)
	assert.Error(t, err)

	runID, err := store.BeginRun(time.Now(), nil)
	require.NoError(t, err)
	require.NoError(t, store.RecordMetricValues(runID, []schema.MetricValueRecord{{Family: "irc", Metric: "sent", Value: 3}}))

	files, err := ExportHistory(store, out)
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, f := range files {
		info, err := os.Stat(f)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestExportHistory_UnsupportedStore(t *testing.T) {
	mockStore := &MockHistoryStore{}
	_, err := ExportHistory(mockStore, filepath.Join(t.TempDir(), "x"))
	assert.ErrorContains(t, err, "does not support export")
	mockStore.AssertExpectations(t)
}
