package analysis

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/VizGrimoire/GrimoireLib-sub002/core/period"
	"github.com/VizGrimoire/GrimoireLib-sub002/core/query"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"gonum.org/v1/gonum/stat"
)

// Closure is a ticket with its submission date and its first closing event.
type Closure struct {
	TicketID  string
	Submitted time.Time
	Closed    time.Time
}

// Days returns the time the ticket stayed open, in days.
func (c Closure) Days() float64 {
	return max(c.Closed.Sub(c.Submitted).Hours()/24, 0)
}

// quantile returns the empirical p-quantile of sorted values, 0 when empty.
func quantile(p float64, sorted []float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// TimeToClose summarizes how long tickets closed inside the window stayed
// open, overall and as a per-period median series.
func TimeToClose(closures []Closure, w schema.TimeWindow, p schema.Period) schema.TimeToCloseResult {
	dates := period.Starts(p, w.Start, w.End)
	res := schema.TimeToCloseResult{
		Window: w,
		Period: p,
		Dates:  dates,
		Median: make([]float64, len(dates)),
	}

	var all []float64
	perPeriod := make([][]float64, len(dates))
	for _, c := range closures {
		if c.Closed.Before(w.Start) || !c.Closed.Before(w.End) {
			continue
		}
		d := c.Days()
		all = append(all, d)
		if i := period.Index(p, w.Start, w.End, c.Closed); i >= 0 && i < len(perPeriod) {
			perPeriod[i] = append(perPeriod[i], d)
		}
	}
	if len(all) == 0 {
		return res
	}

	slices.Sort(all)
	res.Count = len(all)
	res.MeanDays = round2(stat.Mean(all, nil))
	res.MedianDays = round2(quantile(0.5, all))
	res.P25Days = round2(quantile(0.25, all))
	res.P75Days = round2(quantile(0.75, all))
	res.P95Days = round2(quantile(0.95, all))
	for i, values := range perPeriod {
		slices.Sort(values)
		res.Median[i] = round2(quantile(0.5, values))
	}
	return res
}

type closureRow struct {
	TicketID  string `db:"ticket_id"`
	Submitted string `db:"submitted_on"`
	Closed    string `db:"closed_on"`
}

// TimeToClose loads the first closing event of every ticket up to the end of
// the window and summarizes those closed inside it. For SCR the closing
// event is the merge.
func (a *Analyzer) TimeToClose(ctx context.Context, ds schema.DataSource, filter schema.Filter, w schema.TimeWindow, p schema.Period) (*schema.TimeToCloseResult, error) {
	h, err := a.ticketHandle(ds)
	if err != nil {
		return nil, err
	}
	if err := h.Family.CheckFilter(filter); err != nil {
		return nil, err
	}
	d := h.Builder.Dialect
	q, err := h.Builder.Select(h.Family.Tickets.Closing, filter, schema.TimeWindow{End: w.End}, []string{
		"ch.issue_id AS ticket_id",
		d.DateString("MIN(i.submitted_on)") + " AS submitted_on",
		d.DateString("MIN(ch.changed_on)") + " AS closed_on",
	}, "ch.issue_id")
	if err != nil {
		return nil, err
	}
	var rows []closureRow
	if err := h.Select(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("%s time to close: %w", ds, err)
	}

	closures := make([]Closure, 0, len(rows))
	for _, r := range rows {
		submitted, err := query.ParseTime(r.Submitted)
		if err != nil {
			return nil, err
		}
		closed, err := query.ParseTime(r.Closed)
		if err != nil {
			return nil, err
		}
		closures = append(closures, Closure{TicketID: r.TicketID, Submitted: submitted, Closed: closed})
	}
	res := TimeToClose(closures, w, p)
	res.Family = ds
	return &res, nil
}
