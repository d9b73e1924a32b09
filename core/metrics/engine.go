// Package metrics evaluates family metrics against the miner databases.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/VizGrimoire/GrimoireLib-sub002/core/family"
	"github.com/VizGrimoire/GrimoireLib-sub002/core/period"
	"github.com/VizGrimoire/GrimoireLib-sub002/core/query"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/source"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/sourcegraph/conc/pool"
)

// Standard top list windows.
const (
	LastMonthLabel = "last month"
	LastYearLabel  = "last year"
	LastMonthDays  = 30
	LastYearDays   = 365
)

// Rows scanned from the builders' column aliases.
type (
	valueRow struct {
		Value *float64 `db:"metric_value"`
	}
	periodRow struct {
		Period string   `db:"period_key"`
		Value  *float64 `db:"metric_value"`
	}
	boundsRow struct {
		First *string `db:"first_date"`
		Last  *string `db:"last_date"`
	}
	topRow struct {
		ID    string   `db:"item_id"`
		Name  string   `db:"item_name"`
		Value *float64 `db:"metric_value"`
	}
	itemRow struct {
		ID    string   `db:"item_id"`
		Name  string   `db:"item_name"`
		Value *float64 `db:"metric_value"`
	}
	activityRow struct {
		ID    string   `db:"item_id"`
		Name  string   `db:"item_name"`
		Value *float64 `db:"metric_value"`
		First *string  `db:"first_date"`
		Last  *string  `db:"last_date"`
	}
)

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Engine evaluates metrics of every configured family.
type Engine struct {
	registry     *family.Registry
	sources      source.Set
	identitiesDB string
	workers      int
}

// NewEngine returns an engine reading from sources. Workers bounds the
// number of queries running at once.
func NewEngine(registry *family.Registry, sources source.Set, identitiesDB string, workers int) *Engine {
	if workers <= 0 {
		workers = 1
	}
	return &Engine{registry: registry, sources: sources, identitiesDB: identitiesDB, workers: workers}
}

// NewEngineFromConfig builds the registry from cfg and wraps the open sources.
func NewEngineFromConfig(cfg *contract.Config, sources source.Set) *Engine {
	registry := family.NewRegistry(family.Options{ClosedStates: cfg.ClosedStates})
	return NewEngine(registry, sources, cfg.IdentitiesDB, cfg.Workers)
}

// Registry returns the family definitions.
func (e *Engine) Registry() *family.Registry {
	return e.registry
}

// Workers returns the concurrency bound of the engine.
func (e *Engine) Workers() int {
	return e.workers
}

// Families returns the families with an open database, in report order.
func (e *Engine) Families() []schema.DataSource {
	var out []schema.DataSource
	for _, ds := range schema.AllDataSources {
		if _, ok := e.sources[ds]; ok {
			out = append(out, ds)
		}
	}
	return out
}

// Handle is a family bound to its database.
type Handle struct {
	Family  *family.Family
	DB      contract.SourceDB
	Builder query.Builder
}

// Select runs q and scans every row into dest.
func (h Handle) Select(ctx context.Context, dest any, q *query.Query) error {
	sql, args := q.Render(h.Builder.Dialect)
	return h.DB.SelectContext(ctx, dest, sql, args...)
}

// Get runs q and scans its single row into dest.
func (h Handle) Get(ctx context.Context, dest any, q *query.Query) error {
	sql, args := q.Render(h.Builder.Dialect)
	return h.DB.GetContext(ctx, dest, sql, args...)
}

// Handle binds the family ds to its database.
func (e *Engine) Handle(ds schema.DataSource) (Handle, error) {
	fam, err := e.registry.Family(ds)
	if err != nil {
		return Handle{}, err
	}
	db, err := e.sources.Get(ds)
	if err != nil {
		return Handle{}, err
	}
	dialect, err := query.NewDialect(db.Backend())
	if err != nil {
		return Handle{}, err
	}
	return Handle{
		Family:  fam,
		DB:      db,
		Builder: query.Builder{Dialect: dialect, IdentitiesDB: e.identitiesDB},
	}, nil
}

// prepare resolves the requested ids and checks the filter against the family.
func (e *Engine) prepare(ds schema.DataSource, ids []string, filter schema.Filter) (Handle, []*query.Metric, []family.Derived, []string, error) {
	h, err := e.Handle(ds)
	if err != nil {
		return Handle{}, nil, nil, nil, err
	}
	if err := h.Family.CheckFilter(filter); err != nil {
		return Handle{}, nil, nil, nil, err
	}
	base, derived, err := h.Family.Resolve(ids)
	if err != nil {
		return Handle{}, nil, nil, nil, err
	}
	requested := ids
	if len(requested) == 0 {
		requested = h.Family.IDs()
	}
	return h, base, derived, requested, nil
}

// newPool returns a worker pool that stops at the first error.
func (e *Engine) newPool(ctx context.Context) *pool.ContextPool {
	return pool.New().WithErrors().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(e.workers)
}

// skippable reports whether a metric cannot be evaluated under the filter.
// Such metrics are left out of the result instead of failing it.
func skippable(err error) bool {
	return errors.Is(err, query.ErrUnsupportedFilter)
}

// values evaluates base metrics over one window, then the derived ones.
func (e *Engine) values(ctx context.Context, h Handle, base []*query.Metric, derived []family.Derived, filter schema.Filter, w schema.TimeWindow) (map[string]float64, error) {
	var mu sync.Mutex
	values := make(map[string]float64, len(base)+len(derived))

	p := e.newPool(ctx)
	for _, m := range base {
		p.Go(func(ctx context.Context) error {
			q, err := h.Builder.Global(m, filter, w)
			if err != nil {
				if skippable(err) {
					return nil
				}
				return err
			}
			var row valueRow
			if err := h.Get(ctx, &row, q); err != nil {
				return fmt.Errorf("%s.%s: %w", h.Family.ID, m.ID, err)
			}
			mu.Lock()
			values[m.ID] = deref(row.Value)
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	computeDerived(derived, values)
	return values, nil
}

// computeDerived adds derived metrics whose inputs are all present.
func computeDerived(derived []family.Derived, values map[string]float64) {
	for _, d := range derived {
		inputs := make(map[string]float64, len(d.Inputs))
		complete := true
		for _, in := range d.Inputs {
			v, ok := values[in]
			if !ok {
				complete = false
				break
			}
			inputs[in] = v
		}
		if complete {
			values[d.ID] = d.Compute(inputs)
		}
	}
}

// pick keeps the requested ids that were computed.
func pick(values map[string]float64, requested []string) map[string]float64 {
	out := make(map[string]float64, len(requested))
	for _, id := range requested {
		if v, ok := values[id]; ok {
			out[id] = v
		}
	}
	return out
}

// Agg computes metrics over the whole window, with the first and last
// activity dates of the family inside it. Empty ids selects every metric.
func (e *Engine) Agg(ctx context.Context, ds schema.DataSource, ids []string, filter schema.Filter, w schema.TimeWindow) (*schema.Aggregate, error) {
	h, base, derived, requested, err := e.prepare(ds, ids, filter)
	if err != nil {
		return nil, err
	}
	values, err := e.values(ctx, h, base, derived, filter, w)
	if err != nil {
		return nil, err
	}

	agg := &schema.Aggregate{Family: ds, Filter: filter, Window: w, Values: pick(values, requested)}
	first, last, err := e.bounds(ctx, h, filter, w)
	if err != nil {
		return nil, err
	}
	agg.FirstDate, agg.LastDate = first, last
	return agg, nil
}

// bounds returns the first and last activity of the main metric, nil when there is none.
func (e *Engine) bounds(ctx context.Context, h Handle, filter schema.Filter, w schema.TimeWindow) (*time.Time, *time.Time, error) {
	q, err := h.Builder.Bounds(h.Family.MainMetric(), filter, w)
	if err != nil {
		if skippable(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	var row boundsRow
	if err := h.Get(ctx, &row, q); err != nil {
		return nil, nil, fmt.Errorf("%s bounds: %w", h.Family.ID, err)
	}
	first, err := parseOptional(row.First)
	if err != nil {
		return nil, nil, err
	}
	last, err := parseOptional(row.Last)
	if err != nil {
		return nil, nil, err
	}
	return first, last, nil
}

func parseOptional(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := query.ParseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Series computes metrics per period. Every period of the window gets a
// value, zero when there was no activity. A zero window start begins at the
// family's first activity, or yields no periods when there is none.
func (e *Engine) Series(ctx context.Context, ds schema.DataSource, ids []string, filter schema.Filter, w schema.TimeWindow, p schema.Period) (*schema.Series, error) {
	h, base, derived, requested, err := e.prepare(ds, ids, filter)
	if err != nil {
		return nil, err
	}
	if w.Start.IsZero() {
		first, _, err := e.bounds(ctx, h, filter, w)
		if err != nil {
			return nil, err
		}
		// No activity at all leaves an empty series.
		w.Start = w.End
		if first != nil {
			w.Start = *first
		}
	}

	series := &schema.Series{
		Family: ds,
		Filter: filter,
		Period: p,
		Window: w,
		Dates:  period.Starts(p, w.Start, w.End),
		Values: map[string][]float64{},
	}

	var mu sync.Mutex
	all := map[string][]float64{}
	pl := e.newPool(ctx)
	for _, m := range base {
		pl.Go(func(ctx context.Context) error {
			q, err := h.Builder.Evolutionary(m, filter, w, p)
			if err != nil {
				if skippable(err) {
					return nil
				}
				return err
			}
			var rows []periodRow
			if err := h.Select(ctx, &rows, q); err != nil {
				return fmt.Errorf("%s.%s: %w", ds, m.ID, err)
			}
			sparse := make(map[string]float64, len(rows))
			for _, r := range rows {
				sparse[r.Period] = deref(r.Value)
			}
			dense := period.Complete(p, w.Start, w.End, sparse)
			mu.Lock()
			all[m.ID] = dense
			mu.Unlock()
			return nil
		})
	}
	if err := pl.Wait(); err != nil {
		return nil, err
	}

	for _, d := range derived {
		inputs := make([][]float64, 0, len(d.Inputs))
		for _, in := range d.Inputs {
			if v, ok := all[in]; ok {
				inputs = append(inputs, v)
			}
		}
		if len(inputs) != len(d.Inputs) {
			continue
		}
		out := make([]float64, len(series.Dates))
		for i := range out {
			point := make(map[string]float64, len(d.Inputs))
			for j, in := range d.Inputs {
				point[in] = inputs[j][i]
			}
			out[i] = d.Compute(point)
		}
		all[d.ID] = out
	}

	for _, id := range requested {
		if v, ok := all[id]; ok {
			series.Values[id] = v
		}
	}
	return series, nil
}

// Trends compares every metric over the last N days before end with the N
// days before that, for each N in days.
func (e *Engine) Trends(ctx context.Context, ds schema.DataSource, ids []string, filter schema.Filter, end time.Time, days []int) ([]schema.Trend, error) {
	h, base, derived, requested, err := e.prepare(ds, ids, filter)
	if err != nil {
		return nil, err
	}

	var trends []schema.Trend
	for _, d := range days {
		curWindow := schema.TimeWindow{Start: end.AddDate(0, 0, -d), End: end}
		prevWindow := schema.TimeWindow{Start: end.AddDate(0, 0, -2*d), End: curWindow.Start}
		cur, err := e.values(ctx, h, base, derived, filter, curWindow)
		if err != nil {
			return nil, err
		}
		prev, err := e.values(ctx, h, base, derived, filter, prevWindow)
		if err != nil {
			return nil, err
		}
		for _, id := range requested {
			c, ok := cur[id]
			if !ok {
				continue
			}
			trends = append(trends, NewTrend(id, d, c, prev[id]))
		}
	}
	return trends, nil
}

// NewTrend computes the difference between two windows. Percent is rounded
// to an integer and is zero when the previous value is zero.
func NewTrend(metric string, days int, current, previous float64) schema.Trend {
	t := schema.Trend{
		Metric:   metric,
		Days:     days,
		Current:  current,
		Previous: previous,
		Diff:     current - previous,
	}
	if previous != 0 {
		t.Percent = math.Round(t.Diff / previous * 100)
	}
	return t
}

// Top ranks people by a metric's per-person activity. A limit of zero
// returns everyone.
func (e *Engine) Top(ctx context.Context, ds schema.DataSource, metricID string, filter schema.Filter, w schema.TimeWindow, limit int) (*schema.TopList, error) {
	h, err := e.Handle(ds)
	if err != nil {
		return nil, err
	}
	if err := h.Family.CheckFilter(filter); err != nil {
		return nil, err
	}
	m, err := h.Family.Metric(metricID)
	if err != nil {
		return nil, err
	}
	q, err := h.Builder.Top(m, filter, w, limit)
	if err != nil {
		return nil, err
	}
	var rows []topRow
	if err := h.Select(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("%s.%s top: %w", ds, metricID, err)
	}

	list := &schema.TopList{Family: ds, Metric: metricID, Window: w, Entries: make([]schema.TopEntry, 0, len(rows))}
	for _, r := range rows {
		list.Entries = append(list.Entries, schema.TopEntry{ID: r.ID, Name: r.Name, Value: deref(r.Value)})
	}
	return list, nil
}

// TopWindows returns the standard top lists of a metric: the whole window,
// the last month and the last year before its end.
func (e *Engine) TopWindows(ctx context.Context, ds schema.DataSource, metricID string, filter schema.Filter, w schema.TimeWindow, limit int) ([]schema.TopList, error) {
	windows := []struct {
		label string
		w     schema.TimeWindow
	}{
		{"", w},
		{LastMonthLabel, schema.TimeWindow{Start: w.End.AddDate(0, 0, -LastMonthDays), End: w.End}},
		{LastYearLabel, schema.TimeWindow{Start: w.End.AddDate(0, 0, -LastYearDays), End: w.End}},
	}

	lists := make([]schema.TopList, len(windows))
	p := e.newPool(ctx)
	for i, tw := range windows {
		p.Go(func(ctx context.Context) error {
			list, err := e.Top(ctx, ds, metricID, filter, tw.w, limit)
			if err != nil {
				return err
			}
			list.Label = tw.label
			lists[i] = *list
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return lists, nil
}

// Items lists the values of a filter dimension (repositories, companies, ...)
// ranked by the family's main metric. A limit of zero returns every item.
func (e *Engine) Items(ctx context.Context, ds schema.DataSource, kind schema.FilterKind, w schema.TimeWindow, limit int) ([]schema.Item, error) {
	h, err := e.Handle(ds)
	if err != nil {
		return nil, err
	}
	if !h.Family.SupportsFilter(kind) {
		return nil, fmt.Errorf("%w: %s by %s", query.ErrUnsupportedFilter, ds, kind)
	}
	q, err := h.Builder.Items(h.Family.MainMetric(), kind, w, limit)
	if err != nil {
		return nil, err
	}
	var rows []itemRow
	if err := h.Select(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("%s %s items: %w", ds, kind, err)
	}
	items := make([]schema.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, schema.Item{ID: r.ID, Name: r.Name, Value: deref(r.Value)})
	}
	return items, nil
}

// Activity returns per-person first and last activity over the family's
// first top metric, together with the activity inside w.
func (e *Engine) Activity(ctx context.Context, ds schema.DataSource, filter schema.Filter, w schema.TimeWindow) ([]schema.ContributorActivity, error) {
	h, err := e.Handle(ds)
	if err != nil {
		return nil, err
	}
	if err := h.Family.CheckFilter(filter); err != nil {
		return nil, err
	}
	m, err := TopMetric(h.Family)
	if err != nil {
		return nil, err
	}
	q, err := h.Builder.Activity(m, filter, w)
	if err != nil {
		return nil, err
	}
	var rows []activityRow
	if err := h.Select(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("%s activity: %w", ds, err)
	}

	out := make([]schema.ContributorActivity, 0, len(rows))
	for _, r := range rows {
		first, err := parseOptional(r.First)
		if err != nil {
			return nil, err
		}
		last, err := parseOptional(r.Last)
		if err != nil {
			return nil, err
		}
		if first == nil || last == nil {
			continue
		}
		out = append(out, schema.ContributorActivity{
			ID:       r.ID,
			Name:     r.Name,
			First:    *first,
			Last:     *last,
			Activity: deref(r.Value),
		})
	}
	slices.SortFunc(out, func(a, b schema.ContributorActivity) int {
		return a.First.Compare(b.First)
	})
	return out, nil
}

// TopMetric returns the metric people are ranked by in a family.
func TopMetric(f *family.Family) (*query.Metric, error) {
	if len(f.TopMetrics) == 0 {
		return nil, fmt.Errorf("%w: %s has no top metric", query.ErrNoTop, f.ID)
	}
	return f.Metric(f.TopMetrics[0])
}
