package family

import (
	"github.com/VizGrimoire/GrimoireLib-sub002/core/query"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// MLStats keeps senders in messages_people; only the From recipient is the author.
const mlsSenderJoin = "JOIN messages_people mp ON mp.message_id = m.message_ID AND mp.type_of_recipient = 'From'"

func newMLS() *Family {
	repo := &query.RepoFilter{Field: "m.mailing_list_url"}
	message := func(id, desc, expr string) *query.Metric {
		return &query.Metric{
			ID:          id,
			Description: desc,
			From:        "messages m",
			DateField:   "m.first_date",
			PersonField: "mp.email_address",
			PersonJoins: []string{mlsSenderJoin},
			Expr:        expr,
			Repo:        repo,
		}
	}

	sent := message("sent", "Number of messages sent", "COUNT(DISTINCT m.message_ID)")
	senders := message("senders", "Number of people sending messages", "COUNT(DISTINCT pup.upeople_id)")
	senders.Identity = true
	senders.TopExpr = "COUNT(DISTINCT m.message_ID)"

	threads := message("threads", "Number of threads started", "COUNT(DISTINCT m.message_ID)")
	threads.Conds = []query.Cond{{SQL: "m.is_response_of IS NULL"}}

	lists := message("repositories", "Number of mailing lists with messages", "COUNT(DISTINCT m.mailing_list_url)")

	return &Family{
		ID:          schema.MLS,
		Description: "Mailing lists (MLStats)",
		Main:        "sent",
		Metrics:     []*query.Metric{sent, senders, threads, lists},
		TopMetrics:  []string{"senders"},
		Filters:     identityFilters,
	}
}
