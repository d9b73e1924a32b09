// Package outwriter has output and writer logic.
package outwriter

import (
	"errors"
	"fmt"
	"io"

	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/parquet"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteAggregate prints aggregated metric values and their trends.
func (ow *OutWriter) WriteAggregate(agg *schema.Aggregate, trends []schema.Trend, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeAggregate(w, agg, trends, cfg)
	}, fmt.Sprintf("Wrote %s aggregate", agg.Family))
}

// WriteSeries prints a time series. Parquet output needs an output file.
func (ow *OutWriter) WriteSeries(s *schema.Series, cfg *contract.Config) error {
	if cfg.Output == schema.ParquetOut {
		if cfg.OutputFile == "" {
			return errors.New("parquet output requires an output file")
		}
		if err := parquet.WriteSeriesParquet(s, cfg.OutputFile); err != nil {
			return err
		}
		contract.LogInfo("💾 Wrote %s series to %s", s.Family, cfg.OutputFile)
		return nil
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeSeries(w, s, cfg)
	}, fmt.Sprintf("Wrote %s series", s.Family))
}

// WriteTop prints one or more top lists.
func (ow *OutWriter) WriteTop(lists []schema.TopList, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeTop(w, lists, cfg)
	}, "Wrote top lists")
}

// WriteItems prints the items of a filter kind with their activity.
func (ow *OutWriter) WriteItems(ds schema.DataSource, kind schema.FilterKind, items []schema.Item, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeItems(w, ds, kind, items, cfg)
	}, fmt.Sprintf("Wrote %s %s items", ds, kind))
}

// WriteMetrics prints the metric catalog.
func (ow *OutWriter) WriteMetrics(infos []schema.MetricInfo, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeMetrics(w, infos, cfg)
	}, "Wrote metric definitions")
}

// WriteAnalysis prints the result of an onion, territoriality, backlog,
// time to close, newcomers or demographics analysis.
func (ow *OutWriter) WriteAnalysis(result any, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeAnalysis(w, result, cfg)
	}, "Wrote analysis")
}

// WriteSummary prints the outcome of a report run.
func (ow *OutWriter) WriteSummary(s *schema.ReportSummary, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeSummary(w, s, cfg)
	}, "Wrote report summary")
}
