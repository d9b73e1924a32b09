package schema

import "time"

// ReportRunRecord represents a row from the grimoire_report_runs table.
type ReportRunRecord struct {
	RunID         int64
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int32
	FamiliesOK    int32
	FamiliesError int32
	ConfigParams  *string
}

// MetricValueRecord represents a row from the grimoire_metric_values table.
type MetricValueRecord struct {
	RunID      int64
	Family     string
	FilterKind string
	FilterName string
	Metric     string
	Value      float64
	WindowFrom time.Time
	WindowTo   time.Time
}

// ReportSummary describes the outcome of a report run.
type ReportSummary struct {
	RunID     int64                 `json:"run_id"`
	OutputDir string                `json:"output_dir"`
	Files     []string              `json:"files"`
	Succeeded []DataSource          `json:"succeeded"`
	Failed    map[DataSource]string `json:"failed,omitempty"`
	Duration  time.Duration         `json:"duration"`
}
