package analysis

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/VizGrimoire/GrimoireLib-sub002/core/metrics"
	"github.com/VizGrimoire/GrimoireLib-sub002/core/period"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// Onion thresholds on the cumulative share of activity before a person.
const (
	CoreThreshold    = 80.0
	RegularThreshold = 95.0
)

// Onion classifies contributors into core, regular and occasional layers.
// Contributors are ranked by activity (name, then id, on ties); a person is
// core while the share of activity ranked before them is below
// CoreThreshold, regular below RegularThreshold and occasional after that.
func Onion(contributors []schema.Contributor) schema.OnionResult {
	ranked := slices.Clone(contributors)
	slices.SortFunc(ranked, func(a, b schema.Contributor) int {
		if c := cmp.Compare(b.Activity, a.Activity); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	var total float64
	for _, c := range ranked {
		total += c.Activity
	}

	res := schema.OnionResult{
		TotalActivity: total,
		Contributors:  len(ranked),
		Core:          schema.OnionLayer{Band: schema.CoreBand},
		Regular:       schema.OnionLayer{Band: schema.RegularBand},
		Occasional:    schema.OnionLayer{Band: schema.OccasionalBand},
	}

	var cumulative float64
	for _, c := range ranked {
		layer := &res.Occasional
		share := 0.0
		if total > 0 {
			share = cumulative / total * 100
		}
		switch {
		case share < CoreThreshold:
			layer = &res.Core
		case share < RegularThreshold:
			layer = &res.Regular
		}
		layer.Count++
		layer.Activity += c.Activity
		layer.Members = append(layer.Members, c)
		cumulative += c.Activity
	}

	for _, layer := range []*schema.OnionLayer{&res.Core, &res.Regular, &res.Occasional} {
		layer.Share = percent(layer.Activity, total)
	}
	return res
}

// Onion loads per-person activity over the family's top metric and classifies it.
func (a *Analyzer) Onion(ctx context.Context, ds schema.DataSource, filter schema.Filter, w schema.TimeWindow) (*schema.OnionResult, error) {
	h, err := a.engine.Handle(ds)
	if err != nil {
		return nil, err
	}
	m, err := metrics.TopMetric(h.Family)
	if err != nil {
		return nil, err
	}
	list, err := a.engine.Top(ctx, ds, m.ID, filter, w, 0)
	if err != nil {
		return nil, err
	}

	contributors := make([]schema.Contributor, 0, len(list.Entries))
	for _, e := range list.Entries {
		contributors = append(contributors, schema.Contributor{ID: e.ID, Name: e.Name, Activity: e.Value})
	}
	res := Onion(contributors)
	res.Family = ds
	res.Window = w
	return &res, nil
}

type periodTopRow struct {
	Period string   `db:"period_key"`
	ID     string   `db:"item_id"`
	Name   string   `db:"item_name"`
	Value  *float64 `db:"metric_value"`
}

// OnionSeries classifies contributors inside every period of the window and
// returns the size of each layer per period.
func (a *Analyzer) OnionSeries(ctx context.Context, ds schema.DataSource, filter schema.Filter, w schema.TimeWindow, p schema.Period) (*schema.OnionSeries, error) {
	h, err := a.engine.Handle(ds)
	if err != nil {
		return nil, err
	}
	if err := h.Family.CheckFilter(filter); err != nil {
		return nil, err
	}
	m, err := metrics.TopMetric(h.Family)
	if err != nil {
		return nil, err
	}
	q, err := h.Builder.TopByPeriod(m, filter, w, p)
	if err != nil {
		return nil, err
	}
	var rows []periodTopRow
	if err := h.Select(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("%s onion series: %w", ds, err)
	}

	byPeriod := map[string][]schema.Contributor{}
	for _, r := range rows {
		var v float64
		if r.Value != nil {
			v = *r.Value
		}
		byPeriod[r.Period] = append(byPeriod[r.Period], schema.Contributor{ID: r.ID, Name: r.Name, Activity: v})
	}
	return onionSeries(ds, p, w, byPeriod), nil
}

func onionSeries(ds schema.DataSource, p schema.Period, w schema.TimeWindow, byPeriod map[string][]schema.Contributor) *schema.OnionSeries {
	dates := period.Starts(p, w.Start, w.End)
	out := &schema.OnionSeries{
		Family:     ds,
		Period:     p,
		Dates:      dates,
		Core:       make([]float64, len(dates)),
		Regular:    make([]float64, len(dates)),
		Occasional: make([]float64, len(dates)),
	}
	for i, d := range dates {
		contributors, ok := byPeriod[d.Format(period.KeyLayout)]
		if !ok {
			continue
		}
		res := Onion(contributors)
		out.Core[i] = float64(res.Core.Count)
		out.Regular[i] = float64(res.Regular.Count)
		out.Occasional[i] = float64(res.Occasional.Count)
	}
	return out
}
