package family

import (
	"github.com/VizGrimoire/GrimoireLib-sub002/core/query"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

func newIRC() *Family {
	repo := &query.RepoFilter{
		Joins: []string{"JOIN channels c ON c.id = i.channel_id"},
		Field: "c.name",
	}
	msg := func(id, desc, expr string) *query.Metric {
		return &query.Metric{
			ID:          id,
			Description: desc,
			From:        "irclog i",
			DateField:   "i.date",
			PersonField: "i.nick",
			Conds:       []query.Cond{{SQL: "i.type = 'COMMENT'"}},
			Expr:        expr,
			Repo:        repo,
		}
	}

	sent := msg("sent", "Number of messages sent", "COUNT(DISTINCT i.id)")
	senders := msg("senders", "Number of people sending messages", "COUNT(DISTINCT pup.upeople_id)")
	senders.Identity = true
	senders.TopExpr = "COUNT(DISTINCT i.id)"
	channels := msg("repositories", "Number of channels with messages", "COUNT(DISTINCT i.channel_id)")

	return &Family{
		ID:          schema.IRC,
		Description: "IRC channels (IRCAnalysis)",
		Main:        "sent",
		Metrics:     []*query.Metric{sent, senders, channels},
		TopMetrics:  []string{"senders"},
		Filters:     []schema.FilterKind{schema.RepositoryFilter, schema.PeopleFilter},
	}
}

func newMediaWiki() *Family {
	rev := func(id, desc, expr string) *query.Metric {
		return &query.Metric{
			ID:          id,
			Description: desc,
			From:        "wiki_pages_revs w",
			DateField:   "w.date",
			PersonField: "w.user",
			Expr:        expr,
		}
	}

	reviews := rev("reviews", "Number of page revisions", "COUNT(DISTINCT w.id)")
	authors := rev("authors", "Number of people editing pages", "COUNT(DISTINCT pup.upeople_id)")
	authors.Identity = true
	authors.TopExpr = "COUNT(DISTINCT w.id)"
	pages := rev("pages", "Number of pages edited", "COUNT(DISTINCT w.page_id)")

	return &Family{
		ID:          schema.MediaWiki,
		Description: "Wiki pages (MediaWikiAnalysis)",
		Main:        "reviews",
		Metrics:     []*query.Metric{reviews, authors, pages},
		TopMetrics:  []string{"authors"},
		Filters:     []schema.FilterKind{schema.PeopleFilter},
	}
}

func newQAForums() *Family {
	question := func(id, desc, expr string) *query.Metric {
		return &query.Metric{
			ID:          id,
			Description: desc,
			From:        "questions q",
			DateField:   "q.added_at",
			PersonField: "q.author_identifier",
			Expr:        expr,
		}
	}
	answer := func(id, desc, expr string) *query.Metric {
		return &query.Metric{
			ID:          id,
			Description: desc,
			From:        "answers a",
			DateField:   "a.submitted_on",
			PersonField: "a.user_identifier",
			Expr:        expr,
		}
	}

	qsent := question("qsent", "Number of questions asked", "COUNT(DISTINCT q.id)")
	qsenders := question("qsenders", "Number of people asking questions", "COUNT(DISTINCT pup.upeople_id)")
	qsenders.Identity = true
	qsenders.TopExpr = "COUNT(DISTINCT q.id)"

	asent := answer("asent", "Number of answers posted", "COUNT(DISTINCT a.id)")
	asenders := answer("asenders", "Number of people answering questions", "COUNT(DISTINCT pup.upeople_id)")
	asenders.Identity = true
	asenders.TopExpr = "COUNT(DISTINCT a.id)"

	return &Family{
		ID:          schema.QAForums,
		Description: "Q&A forums (Sibyl)",
		Main:        "qsent",
		Metrics:     []*query.Metric{qsent, asent, qsenders, asenders},
		TopMetrics:  []string{"qsenders"},
		Filters:     []schema.FilterKind{schema.PeopleFilter},
	}
}
