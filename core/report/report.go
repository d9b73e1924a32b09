// Package report writes the dashboard JSON files of every enabled family
// and records each run in the history store.
package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/VizGrimoire/GrimoireLib-sub002/core/analysis"
	"github.com/VizGrimoire/GrimoireLib-sub002/core/metrics"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/progress"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/sourcegraph/conc/pool"
)

// ErrNoFamilies is returned when no family has a database configured.
var ErrNoFamilies = errors.New("no data source configured")

// Reporter produces the dashboard of every family its engine can read.
type Reporter struct {
	engine   *metrics.Engine
	analyzer *analysis.Analyzer
	cfg      *contract.Config
	history  contract.HistoryStore
	tracker  *progress.Tracker
}

// New returns a reporter. A nil history store disables run tracking.
func New(engine *metrics.Engine, cfg *contract.Config, history contract.HistoryStore) *Reporter {
	return &Reporter{
		engine:   engine,
		analyzer: analysis.New(engine),
		cfg:      cfg,
		history:  history,
	}
}

// WithProgress reports every finished family on t.
func (r *Reporter) WithProgress(t *progress.Tracker) *Reporter {
	r.tracker = t
	return r
}

// familyRun collects what one family wrote.
type familyRun struct {
	ds     schema.DataSource
	files  []string
	values []schema.MetricValueRecord
}

func (fr *familyRun) write(dir, name string, data any) error {
	file, err := writeFile(dir, name, data)
	if err != nil {
		return err
	}
	fr.files = append(fr.files, file)
	return nil
}

// record keeps the aggregate values for the history store.
func (fr *familyRun) record(agg *schema.Aggregate) {
	for id, v := range agg.Values {
		fr.values = append(fr.values, schema.MetricValueRecord{
			Family:     string(fr.ds),
			FilterKind: string(agg.Filter.Kind),
			FilterName: agg.Filter.Value,
			Metric:     id,
			Value:      v,
			WindowFrom: agg.Window.Start,
			WindowTo:   agg.Window.End,
		})
	}
}

// Run writes the report of every family into the output directory.
// Families run concurrently; a failing family is reported in the summary
// while the others continue.
func (r *Reporter) Run(ctx context.Context) (*schema.ReportSummary, error) {
	start := time.Now()
	families := r.engine.Families()
	if len(families) == 0 {
		return nil, ErrNoFamilies
	}
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	summary := &schema.ReportSummary{
		RunID:     r.beginRun(start, families),
		OutputDir: r.cfg.OutputDir,
		Files:     []string{},
		Succeeded: []schema.DataSource{},
		Failed:    map[schema.DataSource]string{},
	}

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(max(r.cfg.Workers, 1))
	for _, ds := range families {
		p.Go(func() {
			fr, err := r.family(ctx, ds)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed[ds] = err.Error()
				r.tracker.Fail(string(ds), err)
				return
			}
			summary.Succeeded = append(summary.Succeeded, ds)
			summary.Files = append(summary.Files, fr.files...)
			r.recordValues(summary.RunID, fr.values)
			r.tracker.Tick(string(ds))
		})
	}
	p.Wait()
	r.tracker.Finish()

	slices.SortFunc(summary.Succeeded, func(a, b schema.DataSource) int {
		return slices.Index(schema.AllDataSources, a) - slices.Index(schema.AllDataSources, b)
	})
	slices.Sort(summary.Files)
	r.endRun(summary.RunID, len(summary.Succeeded), len(summary.Failed))
	summary.Duration = time.Since(start)
	return summary, nil
}

// family writes the global, top, item and analysis files of one family.
func (r *Reporter) family(ctx context.Context, ds schema.DataSource) (*familyRun, error) {
	fr := &familyRun{ds: ds}
	w := r.cfg.Window()

	if err := r.writeFiltered(ctx, fr, schema.Filter{}, evolutionaryFile(ds), staticFile(ds)); err != nil {
		return nil, err
	}
	if err := r.writeTop(ctx, fr, w); err != nil {
		return nil, err
	}
	if err := r.writeItems(ctx, fr, w); err != nil {
		return nil, err
	}
	for _, step := range analysesFor(ds) {
		res, err := step.run(ctx, r, ds, w)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", ds, step.name, err)
		}
		if err := fr.write(r.cfg.OutputDir, analysisFile(ds, step.name), res); err != nil {
			return nil, err
		}
	}
	return fr, nil
}

// writeFiltered writes the evolutionary and static files of one filter.
func (r *Reporter) writeFiltered(ctx context.Context, fr *familyRun, filter schema.Filter, evolName, staticName string) error {
	w := r.cfg.Window()
	series, err := r.engine.Series(ctx, fr.ds, nil, filter, w, r.cfg.Period)
	if err != nil {
		return err
	}
	if err := fr.write(r.cfg.OutputDir, evolName, Evolutionary(series)); err != nil {
		return err
	}

	agg, err := r.engine.Agg(ctx, fr.ds, nil, filter, w)
	if err != nil {
		return err
	}
	trends, err := r.engine.Trends(ctx, fr.ds, nil, filter, w.End, r.cfg.TrendDays)
	if err != nil {
		return err
	}
	fr.record(agg)
	return fr.write(r.cfg.OutputDir, staticName, Static(agg, trends))
}

// writeTop writes the standard top lists of every top metric of the family.
func (r *Reporter) writeTop(ctx context.Context, fr *familyRun, w schema.TimeWindow) error {
	f, err := r.engine.Registry().Family(fr.ds)
	if err != nil {
		return err
	}
	if len(f.TopMetrics) == 0 {
		return nil
	}
	var lists []schema.TopList
	for _, id := range f.TopMetrics {
		windows, err := r.engine.TopWindows(ctx, fr.ds, id, schema.Filter{}, w, r.cfg.ResultLimit)
		if err != nil {
			return err
		}
		lists = append(lists, windows...)
	}
	return fr.write(r.cfg.OutputDir, topFile(fr.ds), Top(lists))
}

// writeItems writes the item list of every configured filter kind the
// family supports, then the files of each item.
func (r *Reporter) writeItems(ctx context.Context, fr *familyRun, w schema.TimeWindow) error {
	f, err := r.engine.Registry().Family(fr.ds)
	if err != nil {
		return err
	}
	for _, kind := range r.cfg.ItemKinds {
		if !f.SupportsFilter(kind) {
			continue
		}
		items, err := r.engine.Items(ctx, fr.ds, kind, w, r.cfg.ResultLimit)
		if err != nil {
			return err
		}
		if err := fr.write(r.cfg.OutputDir, itemsFile(fr.ds, kind), Items(items, f.MainMetric().ID)); err != nil {
			return err
		}
		for _, it := range items {
			filter := schema.Filter{Kind: kind, Value: it.FilterValue()}
			err := r.writeFiltered(ctx, fr, filter,
				itemFile(it.Key(), fr.ds, kind, "evolutionary"),
				itemFile(it.Key(), fr.ds, kind, "static"))
			if err != nil {
				return fmt.Errorf("%s %s: %w", kind, it.Key(), err)
			}
		}
	}
	return nil
}

// analysisStep computes one analysis file of a family.
type analysisStep struct {
	name string
	run  func(ctx context.Context, r *Reporter, ds schema.DataSource, w schema.TimeWindow) (any, error)
}

var (
	onionStep = analysisStep{"onion", func(ctx context.Context, r *Reporter, ds schema.DataSource, w schema.TimeWindow) (any, error) {
		return r.analyzer.Onion(ctx, ds, schema.Filter{}, w)
	}}
	territorialityStep = analysisStep{"territoriality", func(ctx context.Context, r *Reporter, _ schema.DataSource, w schema.TimeWindow) (any, error) {
		return r.analyzer.Territoriality(ctx, schema.Filter{}, w)
	}}
	backlogStep = analysisStep{"backlog", func(ctx context.Context, r *Reporter, ds schema.DataSource, w schema.TimeWindow) (any, error) {
		return r.analyzer.Backlog(ctx, ds, schema.Filter{}, w, r.cfg.Period)
	}}
	newcomersStep = analysisStep{"newcomers", func(ctx context.Context, r *Reporter, ds schema.DataSource, w schema.TimeWindow) (any, error) {
		return r.analyzer.Newcomers(ctx, ds, schema.Filter{}, w, r.cfg.Days, r.cfg.ResultLimit)
	}}
	demographicsStep = analysisStep{"demographics", func(ctx context.Context, r *Reporter, ds schema.DataSource, w schema.TimeWindow) (any, error) {
		return r.analyzer.Demographics(ctx, ds, schema.Filter{}, w)
	}}
)

func timeToCloseStep(name string) analysisStep {
	return analysisStep{name, func(ctx context.Context, r *Reporter, ds schema.DataSource, w schema.TimeWindow) (any, error) {
		return r.analyzer.TimeToClose(ctx, ds, schema.Filter{}, w, r.cfg.Period)
	}}
}

// analysesFor returns the analyses written for a family.
func analysesFor(ds schema.DataSource) []analysisStep {
	switch ds {
	case schema.SCM:
		return []analysisStep{onionStep, territorialityStep, newcomersStep, demographicsStep}
	case schema.ITS:
		return []analysisStep{backlogStep, timeToCloseStep("time-to-close"), newcomersStep, demographicsStep}
	case schema.MLS:
		return []analysisStep{newcomersStep, demographicsStep}
	case schema.SCR:
		return []analysisStep{timeToCloseStep("time-to-merge")}
	default:
		return nil
	}
}

// beginRun starts history tracking, returning 0 when it is off or fails.
func (r *Reporter) beginRun(start time.Time, families []schema.DataSource) int64 {
	if r.history == nil {
		return 0
	}
	names := make([]string, len(families))
	for i, ds := range families {
		names[i] = string(ds)
	}
	runID, err := r.history.BeginRun(start, map[string]any{
		"families":   strings.Join(names, ","),
		"start":      r.cfg.StartTime.Format(contract.DateTimeFormat),
		"end":        r.cfg.EndTime.Format(contract.DateTimeFormat),
		"period":     string(r.cfg.Period),
		"output_dir": r.cfg.OutputDir,
		"workers":    r.cfg.Workers,
	})
	if err != nil {
		contract.LogWarn("Report run tracking initialization failed", err)
		return 0
	}
	return runID
}

func (r *Reporter) recordValues(runID int64, values []schema.MetricValueRecord) {
	if r.history == nil || runID == 0 || len(values) == 0 {
		return
	}
	for i := range values {
		values[i].RunID = runID
	}
	if err := r.history.RecordMetricValues(runID, values); err != nil {
		contract.LogWarn("Failed to record metric values", err)
	}
}

func (r *Reporter) endRun(runID int64, ok, failed int) {
	if r.history == nil || runID == 0 {
		return
	}
	if err := r.history.EndRun(runID, time.Now(), ok, failed); err != nil {
		contract.LogWarn("Failed to finalize report run tracking", err)
	}
}
