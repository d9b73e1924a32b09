package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/VizGrimoire/GrimoireLib-sub002/core/period"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// dashboardDate is the layout of first_date and last_date in static files.
const dashboardDate = "2006-01-02"

// Evolutionary converts a series to the dashboard's column layout: one
// array per metric, aligned with the id, date, unixtime and period arrays.
func Evolutionary(s *schema.Series) map[string]any {
	n := len(s.Dates)
	ids := make([]int, n)
	labels := make([]string, n)
	unix := make([]int64, n)
	keys := make([]string, n)
	for i, d := range s.Dates {
		ids[i] = i
		labels[i] = period.Label(s.Period, d)
		unix[i] = d.Unix()
		keys[i] = period.Key(s.Period, d)
	}
	out := map[string]any{
		"id":             ids,
		"date":           labels,
		"unixtime":       unix,
		string(s.Period): keys,
	}
	for id, values := range s.Values {
		out[id] = values
	}
	return out
}

// Static flattens an aggregate and its trends. Trend keys follow the
// dashboard naming: <metric>_<days>, diff_net<metric>_<days> and
// percentage_<metric>_<days>.
func Static(agg *schema.Aggregate, trends []schema.Trend) map[string]any {
	out := make(map[string]any, len(agg.Values)+3*len(trends)+2)
	for id, v := range agg.Values {
		out[id] = v
	}
	if agg.FirstDate != nil {
		out["first_date"] = agg.FirstDate.Format(dashboardDate)
	}
	if agg.LastDate != nil {
		out["last_date"] = agg.LastDate.Format(dashboardDate)
	}
	for _, t := range trends {
		out[fmt.Sprintf("%s_%d", t.Metric, t.Days)] = t.Current
		out[fmt.Sprintf("diff_net%s_%d", t.Metric, t.Days)] = t.Diff
		out[fmt.Sprintf("percentage_%s_%d", t.Metric, t.Days)] = t.Percent
	}
	return out
}

// Top keys every list by "<metric>.<label>", each as id, name and value columns.
func Top(lists []schema.TopList) map[string]any {
	out := make(map[string]any, len(lists))
	for _, l := range lists {
		ids := make([]string, len(l.Entries))
		names := make([]string, len(l.Entries))
		values := make([]float64, len(l.Entries))
		for i, e := range l.Entries {
			ids[i], names[i], values[i] = e.ID, e.Name, e.Value
		}
		out[l.Metric+"."+l.Label] = map[string]any{
			"id":     ids,
			"name":   names,
			l.Metric: values,
		}
	}
	return out
}

// Items lists filter items as name and metric columns, plus an id column
// for people.
func Items(items []schema.Item, metric string) map[string]any {
	ids := make([]string, len(items))
	names := make([]string, len(items))
	values := make([]float64, len(items))
	withIDs := false
	for i, it := range items {
		ids[i], names[i], values[i] = it.ID, it.Name, it.Value
		withIDs = withIDs || it.ID != ""
	}
	out := map[string]any{"name": names, metric: values}
	if withIDs {
		out["id"] = ids
	}
	return out
}

// File names of the dashboard.
func evolutionaryFile(ds schema.DataSource) string { return fmt.Sprintf("%s-evolutionary.json", ds) }
func staticFile(ds schema.DataSource) string       { return fmt.Sprintf("%s-static.json", ds) }
func topFile(ds schema.DataSource) string          { return fmt.Sprintf("%s-top.json", ds) }

func itemsFile(ds schema.DataSource, kind schema.FilterKind) string {
	return fmt.Sprintf("%s-%ss.json", ds, kind)
}

func itemFile(item string, ds schema.DataSource, kind schema.FilterKind, suffix string) string {
	return fmt.Sprintf("%s-%s-%s-%s.json", schema.Slug(item), ds, kind, suffix)
}

func analysisFile(ds schema.DataSource, name string) string {
	return fmt.Sprintf("%s-%s.json", ds, name)
}

// writeFile writes data as JSON into dir and returns the file name.
func writeFile(dir, name string, data any) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return name, nil
}

