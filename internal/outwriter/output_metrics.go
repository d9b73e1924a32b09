package outwriter

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// aggregateJSON is the JSON form of an aggregate with its trends.
type aggregateJSON struct {
	*schema.Aggregate
	Trends []schema.Trend `json:"trends,omitempty"`
}

// aggregateView lists every metric with its value and, for each trend
// window, the difference and percentage against the previous window.
func aggregateView(agg *schema.Aggregate, trends []schema.Trend, fmtFloat func(float64) string) view {
	ids := make([]string, 0, len(agg.Values))
	for id := range agg.Values {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var days []int
	byKey := map[string]schema.Trend{}
	for _, t := range trends {
		if !slices.Contains(days, t.Days) {
			days = append(days, t.Days)
		}
		byKey[fmt.Sprintf("%s/%d", t.Metric, t.Days)] = t
	}
	slices.Sort(days)

	v := view{headers: []string{"Metric", "Value"}}
	for _, d := range days {
		v.headers = append(v.headers, fmt.Sprintf("Diff %dd", d), fmt.Sprintf("Pct %dd", d))
	}
	for _, id := range ids {
		row := []string{id, fmtFloat(agg.Values[id])}
		for _, d := range days {
			t, ok := byKey[fmt.Sprintf("%s/%d", id, d)]
			if !ok {
				row = append(row, "", "")
				continue
			}
			row = append(row, fmtFloat(t.Diff), strconv.FormatFloat(t.Percent, 'f', 0, 64)+"%")
		}
		v.rows = append(v.rows, row)
	}

	first, last := "-", "-"
	if agg.FirstDate != nil {
		first = agg.FirstDate.Format(contract.DateTimeFormat)
	}
	if agg.LastDate != nil {
		last = agg.LastDate.Format(contract.DateTimeFormat)
	}
	v.footer = []string{
		fmt.Sprintf("%s %s activity from %s to %s", agg.Family, agg.Filter, first, last),
	}
	return v
}

// writeAggregate writes an aggregate and its trends.
func writeAggregate(w io.Writer, agg *schema.Aggregate, trends []schema.Trend, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)
	return render(w, cfg.Output, aggregateJSON{Aggregate: agg, Trends: trends}, aggregateView(agg, trends, fmtFloat))
}

// metricsView lists metric definitions.
func metricsView(infos []schema.MetricInfo) view {
	v := view{headers: []string{"Family", "Metric", "Description", "Derived", "Top"}}
	for _, m := range infos {
		v.rows = append(v.rows, []string{
			string(m.Family),
			m.ID,
			m.Description,
			strconv.FormatBool(m.Derived),
			strconv.FormatBool(m.Top),
		})
	}
	return v
}

// writeMetrics writes the metric definitions of every family.
func writeMetrics(w io.Writer, infos []schema.MetricInfo, cfg *contract.Config) error {
	return render(w, cfg.Output, infos, metricsView(infos))
}
