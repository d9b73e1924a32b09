// Package parquet exports report history and metric series to Parquet files
// using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/parquet-go/parquet-go"
)

// ReportRun is one report run. It maps to the grimoire_report_runs table.
type ReportRun struct {
	RunID         int64      `parquet:"run_id,snappy"`
	StartTime     time.Time  `parquet:"start_time,snappy"`
	EndTime       *time.Time `parquet:"end_time,optional,snappy"`
	RunDurationMs *int32     `parquet:"run_duration_ms,optional,snappy"`
	FamiliesOK    int32      `parquet:"families_ok,snappy"`
	FamiliesError int32      `parquet:"families_error,snappy"`

	// ConfigParams is the JSON-encoded configuration of the run
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// MetricValue is an aggregate value recorded by a run. It maps to the
// grimoire_metric_values table.
type MetricValue struct {
	RunID      int64     `parquet:"run_id,snappy"`
	Family     string    `parquet:"family,dict,snappy"`
	FilterKind string    `parquet:"filter_kind,dict,snappy"`
	FilterName string    `parquet:"filter_name,snappy"`
	Metric     string    `parquet:"metric,dict,snappy"`
	Value      float64   `parquet:"metric_value,snappy"`
	WindowFrom time.Time `parquet:"window_from,snappy"`
	WindowTo   time.Time `parquet:"window_to,snappy"`
}

// SeriesPoint is one metric value of one period, the long form of a series.
type SeriesPoint struct {
	Family     string    `parquet:"family,dict,snappy"`
	FilterKind string    `parquet:"filter_kind,dict,snappy"`
	FilterName string    `parquet:"filter_name,snappy"`
	Period     string    `parquet:"period,dict,snappy"`
	Date       time.Time `parquet:"date,snappy"`
	Metric     string    `parquet:"metric,dict,snappy"`
	Value      float64   `parquet:"metric_value,snappy"`
}

// writeParquet writes rows to a new file whose schema is derived from T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteReportRunsParquet writes report runs to a Parquet file.
func WriteReportRunsParquet(data []ReportRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteMetricValuesParquet writes recorded metric values to a Parquet file.
func WriteMetricValuesParquet(data []MetricValue, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteSeriesParquet writes the long form of a series to a Parquet file.
func WriteSeriesParquet(s *schema.Series, outputPath string) error {
	return writeParquet(ConvertSeries(s), outputPath)
}

// ConvertReportRunRecords converts store rows for Parquet export.
func ConvertReportRunRecords(records []schema.ReportRunRecord) []ReportRun {
	result := make([]ReportRun, len(records))
	for i, r := range records {
		result[i] = ReportRun{
			RunID:         r.RunID,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			RunDurationMs: r.RunDurationMs,
			FamiliesOK:    r.FamiliesOK,
			FamiliesError: r.FamiliesError,
			ConfigParams:  r.ConfigParams,
		}
	}
	return result
}

// ConvertMetricValueRecords converts store rows for Parquet export.
func ConvertMetricValueRecords(records []schema.MetricValueRecord) []MetricValue {
	result := make([]MetricValue, len(records))
	for i, r := range records {
		result[i] = MetricValue{
			RunID:      r.RunID,
			Family:     r.Family,
			FilterKind: r.FilterKind,
			FilterName: r.FilterName,
			Metric:     r.Metric,
			Value:      r.Value,
			WindowFrom: r.WindowFrom,
			WindowTo:   r.WindowTo,
		}
	}
	return result
}

// ConvertSeries flattens a series into one point per metric and period,
// ordered by metric id then date.
func ConvertSeries(s *schema.Series) []SeriesPoint {
	metrics := make([]string, 0, len(s.Values))
	for id := range s.Values {
		metrics = append(metrics, id)
	}
	slices.Sort(metrics)

	points := make([]SeriesPoint, 0, len(metrics)*len(s.Dates))
	for _, id := range metrics {
		for i, d := range s.Dates {
			points = append(points, SeriesPoint{
				Family:     string(s.Family),
				FilterKind: string(s.Filter.Kind),
				FilterName: s.Filter.Value,
				Period:     string(s.Period),
				Date:       d,
				Metric:     id,
				Value:      s.Values[id][i],
			})
		}
	}
	return points
}
