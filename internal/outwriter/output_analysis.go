package outwriter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/VizGrimoire/GrimoireLib-sub002/core/period"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// onionView has one row per band.
func onionView(res *schema.OnionResult, cfg *contract.Config, fmtFloat func(float64) string) view {
	v := view{headers: []string{"Band", "People", "Activity", "Share"}}
	for _, layer := range []schema.OnionLayer{res.Core, res.Regular, res.Occasional} {
		cells := []string{strconv.Itoa(layer.Count), fmtFloat(layer.Activity), fmtFloat(layer.Share) + "%"}
		v.rows = append(v.rows, append([]string{contract.GetBandLabel(layer.Band, cfg.UseColors)}, cells...))
		v.csvRows = append(v.csvRows, append([]string{string(layer.Band)}, cells...))
	}
	v.footer = []string{fmt.Sprintf("%d contributors, total activity %s", res.Contributors, fmtFloat(res.TotalActivity))}
	return v
}

// onionSeriesView has one row per period with the size of each band.
func onionSeriesView(res *schema.OnionSeries, fmtFloat func(float64) string) view {
	v := view{headers: []string{"Period", "Core", "Regular", "Occasional"}}
	for i, d := range res.Dates {
		v.rows = append(v.rows, []string{
			period.Label(res.Period, d),
			fmtFloat(res.Core[i]),
			fmtFloat(res.Regular[i]),
			fmtFloat(res.Occasional[i]),
		})
	}
	return v
}

func territorialityView(res *schema.TerritorialityResult, fmtFloat func(float64) string) view {
	return view{
		headers: []string{"Territorial Files", "Total Files", "Percentage"},
		rows: [][]string{{
			strconv.Itoa(res.TerritorialFiles),
			strconv.Itoa(res.TotalFiles),
			fmtFloat(res.Percentage) + "%",
		}},
	}
}

// backlogView has one row per period: every state, then pending and total.
func backlogView(res *schema.BacklogResult, fmtFloat func(float64) string) view {
	v := view{headers: append(append([]string{"Period"}, res.States...), "Pending", "Total")}
	for i, d := range res.Dates {
		row := []string{period.Label(res.Period, d)}
		for _, s := range res.States {
			row = append(row, fmtFloat(res.Counts[s][i]))
		}
		v.rows = append(v.rows, append(row, fmtFloat(res.Pending[i]), fmtFloat(res.Total[i])))
	}
	return v
}

// timeToCloseView shows the summary statistics, then the per-period medians.
func timeToCloseView(res *schema.TimeToCloseResult, fmtFloat func(float64) string) view {
	v := view{headers: []string{"Period", "Median Days"}}
	for i, d := range res.Dates {
		v.rows = append(v.rows, []string{period.Label(res.Period, d), fmtFloat(res.Median[i])})
	}
	v.footer = []string{fmt.Sprintf("%d closed: mean %s, median %s, p25 %s, p75 %s, p95 %s days",
		res.Count, fmtFloat(res.MeanDays), fmtFloat(res.MedianDays),
		fmtFloat(res.P25Days), fmtFloat(res.P75Days), fmtFloat(res.P95Days))}
	return v
}

// newcomersView lists newcomers then gone people.
func newcomersView(res *schema.NewcomersResult, fmtFloat func(float64) string) view {
	v := view{headers: []string{"Status", "ID", "Name", "First", "Last", "Activity"}}
	add := func(status string, people []schema.ContributorActivity) {
		for _, p := range people {
			v.rows = append(v.rows, []string{
				status, p.ID, p.Name,
				p.First.Format(contract.DateTimeFormat),
				p.Last.Format(contract.DateTimeFormat),
				fmtFloat(p.Activity),
			})
		}
	}
	add("new", res.Newcomers)
	add("gone", res.Gone)
	v.footer = []string{fmt.Sprintf("%d newcomers and %d gone in the last %d days", len(res.Newcomers), len(res.Gone), res.Days)}
	return v
}

func demographicsView(res *schema.DemographicsResult) view {
	v := view{headers: []string{"From Days", "To Days", "People"}}
	for _, b := range res.Buckets {
		v.rows = append(v.rows, []string{strconv.Itoa(b.FromDays), strconv.Itoa(b.ToDays), strconv.Itoa(b.Count)})
	}
	return v
}

// writeAnalysis writes any analysis result.
func writeAnalysis(w io.Writer, result any, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)
	var v view
	switch res := result.(type) {
	case *schema.OnionResult:
		v = onionView(res, cfg, fmtFloat)
	case *schema.OnionSeries:
		v = onionSeriesView(res, fmtFloat)
	case *schema.TerritorialityResult:
		v = territorialityView(res, fmtFloat)
	case *schema.BacklogResult:
		v = backlogView(res, fmtFloat)
	case *schema.TimeToCloseResult:
		v = timeToCloseView(res, fmtFloat)
	case *schema.NewcomersResult:
		v = newcomersView(res, fmtFloat)
	case *schema.DemographicsResult:
		v = demographicsView(res)
	default:
		return fmt.Errorf("unsupported analysis result %T", result)
	}
	return render(w, cfg.Output, result, v)
}
