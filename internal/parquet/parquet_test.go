package parquet

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readBack[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err, "Should be able to open output file")
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err, "Should be able to read data")
	}
	return rows[:n]
}

func TestStructTags(t *testing.T) {
	cases := []struct {
		name    string
		model   any
		columns []string
	}{
		{"report runs", new(ReportRun), []string{"run_id", "start_time", "end_time", "run_duration_ms", "families_ok", "families_error", "config_params"}},
		{"metric values", new(MetricValue), []string{"run_id", "family", "filter_kind", "filter_name", "metric", "metric_value", "window_from", "window_to"}},
		{"series", new(SeriesPoint), []string{"family", "filter_kind", "filter_name", "period", "date", "metric", "metric_value"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := parquet.SchemaOf(tc.model)
			require.NotNil(t, s)
			for _, col := range tc.columns {
				_, ok := s.Lookup(col)
				assert.True(t, ok, "Column %s should exist in schema", col)
			}
		})
	}
}

func TestWriteReportRunsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "runs.parquet")
	now := time.Now()
	end := now.Add(time.Minute)
	duration := int32(60000)
	config := `{"period":"month"}`
	data := []ReportRun{
		{RunID: 1, StartTime: now, EndTime: &end, RunDurationMs: &duration, FamiliesOK: 7, ConfigParams: &config},
		{RunID: 2, StartTime: now, FamiliesError: 1},
	}

	require.NoError(t, WriteReportRunsParquet(data, outputPath))
	got := readBack[ReportRun](t, outputPath)
	require.Len(t, got, 2)

	assert.Equal(t, int64(1), got[0].RunID)
	assert.Equal(t, int32(7), got[0].FamiliesOK)
	require.NotNil(t, got[0].EndTime)
	assert.WithinDuration(t, end, *got[0].EndTime, time.Microsecond)
	require.NotNil(t, got[0].RunDurationMs)
	assert.Equal(t, duration, *got[0].RunDurationMs)
	require.NotNil(t, got[0].ConfigParams)
	assert.Equal(t, config, *got[0].ConfigParams)

	assert.Nil(t, got[1].EndTime)
	assert.Nil(t, got[1].RunDurationMs)
	assert.Nil(t, got[1].ConfigParams)
	assert.Equal(t, int32(1), got[1].FamiliesError)
}

func TestWriteMetricValuesParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "values.parquet")
	from := time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []schema.MetricValueRecord{
		{RunID: 3, Family: "scm", Metric: "commits", Value: 7, WindowFrom: from, WindowTo: to},
		{RunID: 3, Family: "scm", FilterKind: "repository", FilterName: "linux", Metric: "commits", Value: 5, WindowFrom: from, WindowTo: to},
	}

	require.NoError(t, WriteMetricValuesParquet(ConvertMetricValueRecords(records), outputPath))
	got := readBack[MetricValue](t, outputPath)
	require.Len(t, got, 2)
	assert.Equal(t, "linux", got[1].FilterName)
	assert.InDelta(t, 5.0, got[1].Value, 0.0001)
	assert.True(t, from.Equal(got[0].WindowFrom))
}

func TestConvertSeries(t *testing.T) {
	jan := time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2013, 2, 1, 0, 0, 0, 0, time.UTC)
	s := &schema.Series{
		Family: schema.ITS,
		Filter: schema.Filter{Kind: schema.CompanyFilter, Value: "Acme"},
		Period: schema.MonthPeriod,
		Dates:  []time.Time{jan, feb},
		Values: map[string][]float64{"opened": {2, 1}, "closed": {1, 0}},
	}

	points := ConvertSeries(s)
	require.Len(t, points, 4)
	assert.Equal(t, "closed", points[0].Metric)
	assert.Equal(t, jan, points[0].Date)
	assert.Equal(t, "opened", points[3].Metric)
	assert.Equal(t, feb, points[3].Date)
	assert.InDelta(t, 1.0, points[3].Value, 0.0001)
	assert.Equal(t, "company", points[0].FilterKind)
	assert.Equal(t, "Acme", points[0].FilterName)

	outputPath := filepath.Join(t.TempDir(), "series.parquet")
	require.NoError(t, WriteSeriesParquet(s, outputPath))
	assert.Len(t, readBack[SeriesPoint](t, outputPath), 4)
}

func TestWriteParquet_EmptyData(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteReportRunsParquet([]ReportRun{}, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err, "Output file should exist")
	assert.Greater(t, info.Size(), int64(0), "Output file should contain schema even if empty")
}

func TestWriteParquet_InvalidPath(t *testing.T) {
	err := WriteMetricValuesParquet(nil, "/nonexistent/directory/output.parquet")
	require.Error(t, err, "Writing to invalid path should produce error")
}
