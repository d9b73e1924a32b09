package outwriter

import (
	"io"
	"slices"

	"github.com/VizGrimoire/GrimoireLib-sub002/core/period"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// seriesView has one row per period and one column per metric.
func seriesView(s *schema.Series, fmtFloat func(float64) string) view {
	ids := make([]string, 0, len(s.Values))
	for id := range s.Values {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	v := view{headers: append([]string{"Period", "Date"}, ids...)}
	for i, d := range s.Dates {
		row := []string{period.Label(s.Period, d), period.Key(s.Period, d)}
		for _, id := range ids {
			row = append(row, fmtFloat(s.Values[id][i]))
		}
		v.rows = append(v.rows, row)
	}
	return v
}

// writeSeries writes a time series.
func writeSeries(w io.Writer, s *schema.Series, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)
	return render(w, cfg.Output, s, seriesView(s, fmtFloat))
}
