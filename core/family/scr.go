package family

import (
	"github.com/VizGrimoire/GrimoireLib-sub002/core/query"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// Gerrit review states as stored by Bicho.
const (
	mergedState    = "MERGED"
	abandonedState = "ABANDONED"
)

func newSCR() *Family {
	issue, change := bichoMetrics()

	submitted := issue("submitted", "Number of review requests submitted", "COUNT(DISTINCT i.id)")
	submitters := issue("submitters", "Number of people submitting reviews", "COUNT(DISTINCT pup.upeople_id)")
	submitters.Identity = true
	submitters.TopExpr = "COUNT(DISTINCT i.id)"

	merged := change("merged", "Number of reviews merged", "COUNT(DISTINCT ch.issue_id)")
	merged.Conds = []query.Cond{{SQL: statusChangeCond + " AND ch.new_value = ?", Args: []any{mergedState}}}

	abandoned := change("abandoned", "Number of reviews abandoned", "COUNT(DISTINCT ch.issue_id)")
	abandoned.Conds = []query.Cond{{SQL: statusChangeCond + " AND ch.new_value = ?", Args: []any{abandonedState}}}

	reviewers := change("reviewers", "Number of people casting Code-Review votes", "COUNT(DISTINCT pup.upeople_id)")
	reviewers.Conds = []query.Cond{{SQL: "ch.field = 'Code-Review'"}}
	reviewers.Identity = true
	reviewers.TopExpr = "COUNT(DISTINCT ch.id)"

	repositories := issue("repositories", "Number of projects with new reviews", "COUNT(DISTINCT i.tracker_id)")

	return &Family{
		ID:          schema.SCR,
		Description: "Source code review (Bicho on Gerrit)",
		Main:        "submitted",
		Metrics:     []*query.Metric{submitted, submitters, merged, abandoned, reviewers, repositories},
		TopMetrics:  []string{"reviewers", "submitters"},
		Filters:     identityFilters,
		Tickets: &Tickets{
			Submitted:     submitted,
			StatusChanges: statusChanges(change),
			Closing:       merged,
			ClosedStates:  []string{mergedState, abandonedState},
		},
	}
}
