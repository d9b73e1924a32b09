// Package core has the entry points behind every grimoire command: it opens
// the miner databases, evaluates metrics and analyses, and prints results.
package core

import (
	"context"
	"time"

	"github.com/VizGrimoire/GrimoireLib-sub002/core/family"
	"github.com/VizGrimoire/GrimoireLib-sub002/core/metrics"
	"github.com/VizGrimoire/GrimoireLib-sub002/core/report"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/outwriter"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/progress"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// GetAggregateResults computes metrics of a family over the configured
// window, with their trends at the window end.
func GetAggregateResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, ds schema.DataSource, ids []string) (*schema.Aggregate, []schema.Trend, error) {
	logHeader(ctx, cfg, string(ds)+" aggregate")
	type result struct {
		agg    *schema.Aggregate
		trends []schema.Trend
	}
	res, err := withSession(ctx, cfg, mgr, func(s *session) (result, error) {
		agg, err := s.engine.Agg(ctx, ds, ids, cfg.Filter, cfg.Window())
		if err != nil {
			return result{}, err
		}
		trends, err := s.engine.Trends(ctx, ds, ids, cfg.Filter, cfg.EndTime, cfg.TrendDays)
		if err != nil {
			return result{}, err
		}
		return result{agg, trends}, nil
	}, ds)
	return res.agg, res.trends, err
}

// GetSeriesResults computes metrics of a family per period.
func GetSeriesResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, ds schema.DataSource, ids []string) (*schema.Series, error) {
	logHeader(ctx, cfg, string(ds)+" "+string(cfg.Period)+" series")
	return withSession(ctx, cfg, mgr, func(s *session) (*schema.Series, error) {
		return s.engine.Series(ctx, ds, ids, cfg.Filter, cfg.Window(), cfg.Period)
	}, ds)
}

// GetTopResults ranks people by a metric over the whole window, the last
// month and the last year. An empty metric uses the family's first top metric.
func GetTopResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, ds schema.DataSource, metricID string) ([]schema.TopList, error) {
	logHeader(ctx, cfg, string(ds)+" top "+metricID)
	return withSession(ctx, cfg, mgr, func(s *session) ([]schema.TopList, error) {
		id := metricID
		if id == "" {
			f, err := s.engine.Registry().Family(ds)
			if err != nil {
				return nil, err
			}
			m, err := metrics.TopMetric(f)
			if err != nil {
				return nil, err
			}
			id = m.ID
		}
		return s.engine.TopWindows(ctx, ds, id, cfg.Filter, cfg.Window(), cfg.ResultLimit)
	}, ds)
}

// GetItemsResults lists the values of a filter kind ranked by activity.
func GetItemsResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, ds schema.DataSource, kind schema.FilterKind) ([]schema.Item, error) {
	logHeader(ctx, cfg, string(ds)+" "+string(kind)+" items")
	return withSession(ctx, cfg, mgr, func(s *session) ([]schema.Item, error) {
		return s.engine.Items(ctx, ds, kind, cfg.Window(), cfg.ResultLimit)
	}, ds)
}

// GetOnionResults classifies the contributors of a family.
func GetOnionResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, ds schema.DataSource) (*schema.OnionResult, error) {
	logHeader(ctx, cfg, string(ds)+" onion")
	return withSession(ctx, cfg, mgr, func(s *session) (*schema.OnionResult, error) {
		return s.analyzer.Onion(ctx, ds, cfg.Filter, cfg.Window())
	}, ds)
}

// GetOnionSeriesResults classifies the contributors of a family per period.
func GetOnionSeriesResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, ds schema.DataSource) (*schema.OnionSeries, error) {
	logHeader(ctx, cfg, string(ds)+" onion per "+string(cfg.Period))
	return withSession(ctx, cfg, mgr, func(s *session) (*schema.OnionSeries, error) {
		return s.analyzer.OnionSeries(ctx, ds, cfg.Filter, cfg.Window(), cfg.Period)
	}, ds)
}

// GetTerritorialityResults measures files touched by a single author.
func GetTerritorialityResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (*schema.TerritorialityResult, error) {
	logHeader(ctx, cfg, "scm territoriality")
	return withSession(ctx, cfg, mgr, func(s *session) (*schema.TerritorialityResult, error) {
		return s.analyzer.Territoriality(ctx, cfg.Filter, cfg.Window())
	}, schema.SCM)
}

// GetBacklogResults replays ticket states at the end of every period.
func GetBacklogResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, ds schema.DataSource) (*schema.BacklogResult, error) {
	logHeader(ctx, cfg, string(ds)+" backlog")
	return withSession(ctx, cfg, mgr, func(s *session) (*schema.BacklogResult, error) {
		return s.analyzer.Backlog(ctx, ds, cfg.Filter, cfg.Window(), cfg.Period)
	}, ds)
}

// GetTimeToCloseResults summarizes how long tickets (or reviews) stay open.
func GetTimeToCloseResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, ds schema.DataSource) (*schema.TimeToCloseResult, error) {
	logHeader(ctx, cfg, string(ds)+" time to close")
	return withSession(ctx, cfg, mgr, func(s *session) (*schema.TimeToCloseResult, error) {
		return s.analyzer.TimeToClose(ctx, ds, cfg.Filter, cfg.Window(), cfg.Period)
	}, ds)
}

// GetNewcomersResults lists who joined and who left in the last cfg.Days.
func GetNewcomersResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, ds schema.DataSource) (*schema.NewcomersResult, error) {
	logHeader(ctx, cfg, string(ds)+" newcomers")
	return withSession(ctx, cfg, mgr, func(s *session) (*schema.NewcomersResult, error) {
		return s.analyzer.Newcomers(ctx, ds, cfg.Filter, cfg.Window(), cfg.Days, cfg.ResultLimit)
	}, ds)
}

// GetDemographicsResults builds the seniority histogram of a family.
func GetDemographicsResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, ds schema.DataSource) (*schema.DemographicsResult, error) {
	logHeader(ctx, cfg, string(ds)+" demographics")
	return withSession(ctx, cfg, mgr, func(s *session) (*schema.DemographicsResult, error) {
		return s.analyzer.Demographics(ctx, ds, cfg.Filter, cfg.Window())
	}, ds)
}

// GetMetricsResults lists every metric definition. No database is needed.
func GetMetricsResults(cfg *contract.Config) []schema.MetricInfo {
	return family.NewRegistry(family.Options{ClosedStates: cfg.ClosedStates}).List()
}

// RunReport writes the dashboard of every enabled family into cfg.OutputDir.
func RunReport(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (*schema.ReportSummary, error) {
	logHeader(ctx, cfg, "report into "+cfg.OutputDir)
	return withSession(ctx, cfg, mgr, func(s *session) (*schema.ReportSummary, error) {
		var history contract.HistoryStore
		if mgr != nil {
			history = mgr.GetHistoryStore()
		}
		r := report.New(s.engine, cfg, history)
		if !shouldSuppressHeader(ctx) {
			r.WithProgress(progress.NewTracker("report", len(s.engine.Families())))
		}
		return r.Run(ctx)
	})
}

// ExecuteAggregate prints the aggregate of a family.
func ExecuteAggregate(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, ds schema.DataSource, ids []string) error {
	agg, trends, err := GetAggregateResults(ctx, cfg, mgr, ds, ids)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteAggregate(agg, trends, cfg)
}

// ExecuteSeries prints the time series of a family.
func ExecuteSeries(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, ds schema.DataSource, ids []string) error {
	series, err := GetSeriesResults(ctx, cfg, mgr, ds, ids)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteSeries(series, cfg)
}

// ExecuteTop prints the top lists of a family metric.
func ExecuteTop(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, ds schema.DataSource, metricID string) error {
	lists, err := GetTopResults(ctx, cfg, mgr, ds, metricID)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteTop(lists, cfg)
}

// ExecuteItems prints the items of a filter kind.
func ExecuteItems(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, ds schema.DataSource, kind schema.FilterKind) error {
	items, err := GetItemsResults(ctx, cfg, mgr, ds, kind)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteItems(ds, kind, items, cfg)
}

// ExecuteAnalysis prints the result of an analysis once it is computed.
func ExecuteAnalysis[T any](result T, err error, cfg *contract.Config) error {
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteAnalysis(result, cfg)
}

// ExecuteMetrics prints the metric catalog.
func ExecuteMetrics(_ context.Context, cfg *contract.Config) error {
	return outwriter.NewOutWriter().WriteMetrics(GetMetricsResults(cfg), cfg)
}

// ExecuteReport writes the dashboard and prints the run summary.
func ExecuteReport(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	summary, err := RunReport(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	contract.LogInfo("✅ Report finished in %v", time.Since(start).Round(time.Millisecond))
	return outwriter.NewOutWriter().WriteSummary(summary, cfg)
}
