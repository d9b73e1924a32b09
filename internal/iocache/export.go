package iocache

import (
	"errors"
	"fmt"

	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/parquet"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// historyReader is implemented by history stores that can dump their rows.
type historyReader interface {
	GetAllRuns() ([]schema.ReportRunRecord, error)
	GetAllMetricValues() ([]schema.MetricValueRecord, error)
}

// ExportHistory writes the runs and metric values of a history store to
// <outputFile>.report_runs.parquet and <outputFile>.metric_values.parquet.
func ExportHistory(store contract.HistoryStore, outputFile string) ([]string, error) {
	if outputFile == "" {
		return nil, errors.New("--output-file is required for export command")
	}
	if store == nil {
		return nil, errors.New("history store is not configured. Set --history-backend")
	}
	reader, ok := store.(historyReader)
	if !ok {
		return nil, fmt.Errorf("history store %T does not support export", store)
	}

	status, err := store.GetStatus()
	if err != nil {
		return nil, fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return nil, errors.New("no report history found to export")
	}
	contract.LogInfo("Exporting %d runs and %d metric values from %s backend...", status.TotalRuns, status.TotalValues, status.Backend)

	runs, err := reader.GetAllRuns()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve report runs: %w", err)
	}
	values, err := reader.GetAllMetricValues()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve metric values: %w", err)
	}

	runsFile := outputFile + ".report_runs.parquet"
	if err := parquet.WriteReportRunsParquet(parquet.ConvertReportRunRecords(runs), runsFile); err != nil {
		return nil, fmt.Errorf("failed to write report runs: %w", err)
	}
	valuesFile := outputFile + ".metric_values.parquet"
	if err := parquet.WriteMetricValuesParquet(parquet.ConvertMetricValueRecords(values), valuesFile); err != nil {
		return nil, fmt.Errorf("failed to write metric values: %w", err)
	}
	return []string{runsFile, valuesFile}, nil
}
