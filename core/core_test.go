package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/fixture"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/iocache"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// testConfig points every family at a seeded SQLite miner database.
func testConfig(t *testing.T) *contract.Config {
	t.Helper()
	dbs := map[schema.DataSource]string{}
	for _, ds := range schema.AllDataSources {
		dbs[ds] = fixture.Path(t, ds)
	}
	return &contract.Config{
		StartTime:     fixture.Window.Start,
		EndTime:       fixture.Window.End,
		Period:        schema.MonthPeriod,
		ResultLimit:   10,
		Workers:       2,
		Precision:     1,
		Output:        schema.JSONOut,
		OutputFile:    filepath.Join(t.TempDir(), "out.json"),
		OutputDir:     filepath.Join(t.TempDir(), "json"),
		SourceBackend: schema.SQLiteBackend,
		SourceDBs:     dbs,
		TrendDays:     []int{30},
		Days:          contract.DefaultNewcomerDays,
	}
}

func newManager() *iocache.MockCacheManager {
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetQueryStore").Return(nil)
	mgr.On("GetHistoryStore").Return(nil)
	return mgr
}

func TestGetAggregateResults(t *testing.T) {
	ctx := WithSuppressHeader(context.Background())
	cfg := testConfig(t)

	agg, trends, err := GetAggregateResults(ctx, cfg, newManager(), schema.SCM, []string{"commits"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"commits": 7}, agg.Values)
	require.Len(t, trends, 1)
	assert.Equal(t, 30, trends[0].Days)

	cfg.Filter = schema.Filter{Kind: schema.RepositoryFilter, Value: "linux"}
	agg, _, err = GetAggregateResults(ctx, cfg, newManager(), schema.SCM, []string{"commits"})
	require.NoError(t, err)
	assert.Equal(t, 5.0, agg.Values["commits"])
}

func TestGetResultsNeedFamilyDatabase(t *testing.T) {
	ctx := WithSuppressHeader(context.Background())
	cfg := testConfig(t)
	delete(cfg.SourceDBs, schema.IRC)

	_, err := GetSeriesResults(ctx, cfg, newManager(), schema.IRC, nil)
	assert.True(t, errors.Is(err, contract.ErrFamilyDisabled))

	cfg.SourceDBs = nil
	_, err = RunReport(ctx, cfg, newManager())
	assert.True(t, errors.Is(err, contract.ErrFamilyDisabled))
}

func TestGetTopResultsDefaultsToTopMetric(t *testing.T) {
	lists, err := GetTopResults(WithSuppressHeader(context.Background()), testConfig(t), newManager(), schema.SCM, "")
	require.NoError(t, err)
	require.Len(t, lists, 3)
	assert.Equal(t, "authors", lists[0].Metric)
	assert.Equal(t, "", lists[0].Label)
	assert.Equal(t, "last month", lists[1].Label)
	assert.Equal(t, "last year", lists[2].Label)
}

func TestAnalysisResults(t *testing.T) {
	ctx := WithSuppressHeader(context.Background())
	cfg := testConfig(t)
	mgr := newManager()

	onion, err := GetOnionResults(ctx, cfg, mgr, schema.SCM)
	require.NoError(t, err)
	assert.Equal(t, 7.0, onion.TotalActivity)

	terr, err := GetTerritorialityResults(ctx, cfg, mgr)
	require.NoError(t, err)
	assert.Positive(t, terr.TotalFiles)

	backlog, err := GetBacklogResults(ctx, cfg, mgr, schema.ITS)
	require.NoError(t, err)
	assert.Len(t, backlog.Dates, 12)

	ttc, err := GetTimeToCloseResults(ctx, cfg, mgr, schema.SCR)
	require.NoError(t, err)
	assert.Equal(t, schema.SCR, ttc.Family)

	_, err = GetBacklogResults(ctx, cfg, mgr, schema.MLS)
	assert.Error(t, err)
}

func TestExecuteWritesOutputFile(t *testing.T) {
	ctx := WithSuppressHeader(context.Background())
	cfg := testConfig(t)

	require.NoError(t, ExecuteSeries(ctx, cfg, newManager(), schema.MLS, []string{"sent"}))
	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sent"`)

	demo, err := GetDemographicsResults(ctx, cfg, newManager(), schema.SCM)
	require.NoError(t, ExecuteAnalysis(demo, err, cfg))
	data, err = os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"buckets"`)
}

func TestExecuteMetrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output = schema.CSVOut
	require.NoError(t, ExecuteMetrics(context.Background(), cfg))
	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scm,commits")
	assert.Contains(t, string(data), "its,bmi")
}

func TestExecuteReport(t *testing.T) {
	cfg := testConfig(t)
	history := &iocache.MockHistoryStore{}
	history.On("BeginRun", mock.Anything, mock.Anything).Return(int64(1), nil)
	history.On("RecordMetricValues", int64(1), mock.Anything).Return(nil)
	history.On("EndRun", int64(1), mock.Anything, len(schema.AllDataSources), 0).Return(nil)
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetQueryStore").Return(nil)
	mgr.On("GetHistoryStore").Return(history)

	require.NoError(t, ExecuteReport(WithSuppressHeader(context.Background()), cfg, mgr))
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "scm-static.json"))
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "its-backlog.json"))

	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id": 1`)
	history.AssertExpectations(t)
}
