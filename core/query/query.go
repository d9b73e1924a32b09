// Package query composes filtered, period-bucketed SQL over the miner schemas.
package query

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnsupportedFilter is returned when a metric cannot be filtered by the requested kind.
var ErrUnsupportedFilter = errors.New("filter not supported for this metric")

// Query is a SELECT statement under construction. Placeholders are '?'
// until the dialect rebinds them.
type Query struct {
	Fields  []string
	From    string
	Joins   []string
	Where   []string
	Args    []any
	GroupBy []string
	OrderBy []string
	Limit   int
}

// Join appends JOIN clauses, skipping any already present.
func (q *Query) Join(clauses ...string) {
	for _, c := range clauses {
		if c == "" || slices.Contains(q.Joins, c) {
			continue
		}
		q.Joins = append(q.Joins, c)
	}
}

// AndWhere appends a condition with its bound arguments.
func (q *Query) AndWhere(cond string, args ...any) {
	q.Where = append(q.Where, cond)
	q.Args = append(q.Args, args...)
}

// SQL renders the statement with '?' placeholders.
func (q *Query) SQL() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(q.Fields, ", "))
	b.WriteString(" FROM ")
	b.WriteString(q.From)
	for _, j := range q.Joins {
		b.WriteString(" ")
		b.WriteString(j)
	}
	if len(q.Where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.Where, " AND "))
	}
	if len(q.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(q.GroupBy, ", "))
	}
	if len(q.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(q.OrderBy, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String()
}

// Render returns the statement rebound for the dialect, with its args.
func (q *Query) Render(d Dialect) (string, []any) {
	return d.Rebind(q.SQL()), q.Args
}

// Cond is a static condition of a metric.
type Cond struct {
	SQL  string
	Args []any
}

// RepoFilter tells how a metric reaches the repository (tracker, list, channel) name.
type RepoFilter struct {
	Joins []string
	Field string
}

// Metric is the SQL definition of one metric over one miner schema.
type Metric struct {
	ID          string
	Description string
	From        string   // Base table with alias, e.g. "scmlog s"
	DateField   string   // Column bounding the time window
	PersonField string   // Column matching people_upeople.people_id
	PersonJoins []string // Joins needed before PersonField is reachable
	Joins       []string
	Conds       []Cond
	Expr        string // Aggregate over the window
	TopExpr     string // Per-person activity; empty when the metric has no top list
	Identity    bool   // Expr reads pup.upeople_id
	Repo        *RepoFilter
}

// Clone returns a copy safe to extend with extra joins or conditions.
func (m *Metric) Clone() *Metric {
	c := *m
	c.PersonJoins = slices.Clone(m.PersonJoins)
	c.Joins = slices.Clone(m.Joins)
	c.Conds = slices.Clone(m.Conds)
	return &c
}

// WithCond returns a copy of the metric with one more static condition.
func (m *Metric) WithCond(sql string, args ...any) *Metric {
	c := m.Clone()
	c.Conds = append(c.Conds, Cond{SQL: sql, Args: args})
	return c
}

// WithJoins returns a copy of the metric with extra joins.
func (m *Metric) WithJoins(joins ...string) *Metric {
	c := m.Clone()
	c.Joins = append(c.Joins, joins...)
	return c
}
