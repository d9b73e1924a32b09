package family

import (
	"math"

	"github.com/VizGrimoire/GrimoireLib-sub002/core/query"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// Joins and conditions over the Bicho schema, shared by ITS and SCR.
const (
	issueOfChangeJoin  = "JOIN issues i ON i.id = ch.issue_id"
	trackerOfIssueJoin = "JOIN trackers t ON t.id = i.tracker_id"
	statusChangeCond   = "LOWER(ch.field) = 'status'"
)

// bichoMetrics builds issue- and change-based metric constructors for a Bicho database.
func bichoMetrics() (issue, change func(id, desc, expr string) *query.Metric) {
	issueRepo := &query.RepoFilter{
		Joins: []string{trackerOfIssueJoin},
		Field: "t.url",
	}
	changeRepo := &query.RepoFilter{
		Joins: []string{issueOfChangeJoin, trackerOfIssueJoin},
		Field: "t.url",
	}
	issue = func(id, desc, expr string) *query.Metric {
		return &query.Metric{
			ID:          id,
			Description: desc,
			From:        "issues i",
			DateField:   "i.submitted_on",
			PersonField: "i.submitted_by",
			Expr:        expr,
			Repo:        issueRepo,
		}
	}
	change = func(id, desc, expr string) *query.Metric {
		return &query.Metric{
			ID:          id,
			Description: desc,
			From:        "changes ch",
			DateField:   "ch.changed_on",
			PersonField: "ch.changed_by",
			Joins:       []string{issueOfChangeJoin},
			Expr:        expr,
			Repo:        changeRepo,
		}
	}
	return issue, change
}

func newITS(closedStates []string) *Family {
	issue, change := bichoMetrics()

	opened := issue("opened", "Number of tickets opened", "COUNT(DISTINCT i.id)")
	openers := issue("openers", "Number of people opening tickets", "COUNT(DISTINCT pup.upeople_id)")
	openers.Identity = true
	openers.TopExpr = "COUNT(DISTINCT i.id)"

	closedCond := query.Cond{
		SQL:  statusChangeCond + " AND " + inList("LOWER(ch.new_value)", len(closedStates)),
		Args: lowerArgs(closedStates),
	}
	closed := change("closed", "Number of tickets closed", "COUNT(DISTINCT ch.issue_id)")
	closed.Conds = []query.Cond{closedCond}
	closers := change("closers", "Number of people closing tickets", "COUNT(DISTINCT pup.upeople_id)")
	closers.Conds = []query.Cond{closedCond}
	closers.Identity = true
	closers.TopExpr = "COUNT(DISTINCT ch.issue_id)"

	changed := change("changed", "Number of tickets changed", "COUNT(DISTINCT ch.issue_id)")
	changers := change("changers", "Number of people changing tickets", "COUNT(DISTINCT pup.upeople_id)")
	changers.Identity = true
	changers.TopExpr = "COUNT(DISTINCT ch.id)"

	trackers := issue("trackers", "Number of trackers with new tickets", "COUNT(DISTINCT i.tracker_id)")

	return &Family{
		ID:          schema.ITS,
		Description: "Issue tracking (Bicho)",
		Main:        "opened",
		Metrics:     []*query.Metric{opened, openers, closed, closers, changed, changers, trackers},
		Derived: []Derived{{
			ID:          "bmi",
			Description: "Backlog management index: closed tickets per hundred opened",
			Inputs:      []string{"closed", "opened"},
			Compute:     bmi,
		}},
		TopMetrics: []string{"closers", "openers"},
		Filters:    identityFilters,
		Tickets: &Tickets{
			Submitted:     opened,
			StatusChanges: statusChanges(change),
			Closing:       closed,
			ClosedStates:  closedStates,
		},
	}
}

// statusChanges counts status transitions; backlog replay reads its rows.
func statusChanges(change func(id, desc, expr string) *query.Metric) *query.Metric {
	m := change("status_changes", "Ticket status transitions", "COUNT(DISTINCT ch.id)")
	m.Conds = []query.Cond{{SQL: statusChangeCond}}
	return m
}

func bmi(v map[string]float64) float64 {
	if v["opened"] == 0 {
		return 0
	}
	return math.Round(v["closed"]/v["opened"]*10000) / 100
}
