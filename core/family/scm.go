package family

import (
	"github.com/VizGrimoire/GrimoireLib-sub002/core/query"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// Joins over the CVSAnalY schema.
const (
	scmActionsJoin = "JOIN actions a ON a.commit_id = s.id"
	scmLinesJoin   = "JOIN commits_lines cl ON cl.commit_id = s.id"
)

func newSCM() *Family {
	repo := &query.RepoFilter{
		Joins: []string{"JOIN repositories r ON r.id = s.repository_id"},
		Field: "r.name",
	}
	commit := func(id, desc, expr string) *query.Metric {
		return &query.Metric{
			ID:          id,
			Description: desc,
			From:        "scmlog s",
			DateField:   "s.date",
			PersonField: "s.author_id",
			Expr:        expr,
			Repo:        repo,
		}
	}

	commits := commit("commits", "Number of commits", "COUNT(DISTINCT s.id)")
	commits.TopExpr = "COUNT(DISTINCT s.id)"

	authors := commit("authors", "Number of distinct commit authors", "COUNT(DISTINCT pup.upeople_id)")
	authors.Identity = true
	authors.TopExpr = "COUNT(DISTINCT s.id)"

	committers := commit("committers", "Number of distinct committers", "COUNT(DISTINCT pup.upeople_id)")
	committers.PersonField = "s.committer_id"
	committers.Identity = true
	committers.TopExpr = "COUNT(DISTINCT s.id)"

	files := commit("files", "Number of distinct files touched", "COUNT(DISTINCT a.file_id)")
	files.Joins = []string{scmActionsJoin}

	actions := commit("actions", "Number of file actions (add, modify, delete...)", "COUNT(DISTINCT a.id)")
	actions.Joins = []string{scmActionsJoin}

	branches := commit("branches", "Number of branches with commits", "COUNT(DISTINCT a.branch_id)")
	branches.Joins = []string{scmActionsJoin}

	repositories := commit("repositories", "Number of repositories with commits", "COUNT(DISTINCT s.repository_id)")

	added := commit("added_lines", "Lines added", "COALESCE(SUM(cl.added), 0)")
	added.Joins = []string{scmLinesJoin}

	removed := commit("removed_lines", "Lines removed", "COALESCE(SUM(cl.removed), 0)")
	removed.Joins = []string{scmLinesJoin}

	return &Family{
		ID:          schema.SCM,
		Description: "Source code management (CVSAnalY)",
		Main:        "commits",
		Metrics: []*query.Metric{
			commits, authors, committers, files, actions, branches, repositories, added, removed,
		},
		TopMetrics: []string{"authors"},
		Filters:    identityFilters,
	}
}
