package analysis

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/VizGrimoire/GrimoireLib-sub002/core/period"
	"github.com/VizGrimoire/GrimoireLib-sub002/core/query"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// Ticket is a ticket with its submission date and current status.
type Ticket struct {
	ID        string
	Submitted time.Time
	Status    string
}

// StatusEvent is a status transition of a ticket.
type StatusEvent struct {
	TicketID string
	At       time.Time
	Old      string
	New      string
}

// Backlog is the number of tickets in each state at a sequence of instants.
type Backlog struct {
	States  []string
	Counts  map[string][]float64
	Pending []float64
	Total   []float64
}

// ReplayBacklog counts, for each end instant (exclusive), the tickets
// submitted before it in each state once every earlier event is applied.
//
// A ticket starts in the old state of its earliest event, or in its current
// status when it never changed. Events of unknown tickets are ignored.
// Pending counts tickets outside the closed states. States are sorted, and
// for every instant the counts add up to Total.
func ReplayBacklog(tickets []Ticket, events []StatusEvent, ends []time.Time, closed []string) Backlog {
	events = slices.Clone(events)
	slices.SortStableFunc(events, func(a, b StatusEvent) int {
		return a.At.Compare(b.At)
	})

	state := make(map[string]string, len(tickets))
	for _, t := range tickets {
		state[t.ID] = t.Status
	}
	seen := map[string]bool{}
	for _, ev := range events {
		if _, ok := state[ev.TicketID]; !ok || seen[ev.TicketID] {
			continue
		}
		seen[ev.TicketID] = true
		state[ev.TicketID] = ev.Old
	}

	stateSet := map[string]bool{}
	for _, s := range state {
		stateSet[s] = true
	}
	for _, ev := range events {
		if _, ok := state[ev.TicketID]; ok {
			stateSet[ev.New] = true
		}
	}
	states := make([]string, 0, len(stateSet))
	for s := range stateSet {
		states = append(states, s)
	}
	slices.Sort(states)

	out := Backlog{
		States:  states,
		Counts:  make(map[string][]float64, len(states)),
		Pending: make([]float64, len(ends)),
		Total:   make([]float64, len(ends)),
	}
	for _, s := range states {
		out.Counts[s] = make([]float64, len(ends))
	}

	next := 0
	for i, end := range ends {
		for next < len(events) && events[next].At.Before(end) {
			ev := events[next]
			if _, ok := state[ev.TicketID]; ok {
				state[ev.TicketID] = ev.New
			}
			next++
		}
		for _, t := range tickets {
			if !t.Submitted.Before(end) {
				continue
			}
			s := state[t.ID]
			out.Counts[s][i]++
			out.Total[i]++
			if !isClosed(s, closed) {
				out.Pending[i]++
			}
		}
	}
	return out
}

func isClosed(state string, closed []string) bool {
	for _, c := range closed {
		if strings.EqualFold(state, c) {
			return true
		}
	}
	return false
}

type ticketRow struct {
	ID        string `db:"ticket_id"`
	Submitted string `db:"submitted_on"`
	Status    string `db:"status"`
}

type statusEventRow struct {
	TicketID string  `db:"ticket_id"`
	At       string  `db:"changed_on"`
	Old      *string `db:"old_value"`
	New      *string `db:"new_value"`
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Backlog replays the ticket states of an ITS or SCR family at the end of
// every period of the window. The filter selects tickets; every status
// change of a selected ticket is applied.
func (a *Analyzer) Backlog(ctx context.Context, ds schema.DataSource, filter schema.Filter, w schema.TimeWindow, p schema.Period) (*schema.BacklogResult, error) {
	h, err := a.ticketHandle(ds)
	if err != nil {
		return nil, err
	}
	if err := h.Family.CheckFilter(filter); err != nil {
		return nil, err
	}
	tk := h.Family.Tickets
	upTo := schema.TimeWindow{End: w.End}

	tq, err := h.Builder.Select(tk.Submitted, filter, upTo, []string{
		"i.id AS ticket_id",
		h.Builder.Dialect.DateString("i.submitted_on") + " AS submitted_on",
		"COALESCE(i.status, '') AS status",
	})
	if err != nil {
		return nil, err
	}
	var ticketRows []ticketRow
	if err := h.Select(ctx, &ticketRows, tq); err != nil {
		return nil, fmt.Errorf("%s tickets: %w", ds, err)
	}

	eq, err := h.Builder.Select(tk.StatusChanges, schema.Filter{}, upTo, []string{
		"ch.issue_id AS ticket_id",
		h.Builder.Dialect.DateString("ch.changed_on") + " AS changed_on",
		"ch.old_value AS old_value",
		"ch.new_value AS new_value",
	})
	if err != nil {
		return nil, err
	}
	eq.OrderBy = []string{"ch.changed_on", "ch.id"}
	var eventRows []statusEventRow
	if err := h.Select(ctx, &eventRows, eq); err != nil {
		return nil, fmt.Errorf("%s status changes: %w", ds, err)
	}

	tickets := make([]Ticket, 0, len(ticketRows))
	for _, r := range ticketRows {
		at, err := query.ParseTime(r.Submitted)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, Ticket{ID: r.ID, Submitted: at, Status: r.Status})
	}
	events := make([]StatusEvent, 0, len(eventRows))
	for _, r := range eventRows {
		at, err := query.ParseTime(r.At)
		if err != nil {
			return nil, err
		}
		events = append(events, StatusEvent{TicketID: r.TicketID, At: at, Old: str(r.Old), New: str(r.New)})
	}

	dates := period.Starts(p, w.Start, w.End)
	ends := make([]time.Time, len(dates))
	for i, d := range dates {
		ends[i] = period.Next(p, d)
		if ends[i].After(w.End) {
			ends[i] = w.End
		}
	}

	replay := ReplayBacklog(tickets, events, ends, tk.ClosedStates)
	return &schema.BacklogResult{
		Family:  ds,
		Period:  p,
		Dates:   dates,
		States:  replay.States,
		Counts:  replay.Counts,
		Pending: replay.Pending,
		Total:   replay.Total,
	}, nil
}
