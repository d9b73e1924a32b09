package query

import (
	"errors"
	"fmt"

	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// ErrNoTop is returned when a top list is requested for a metric without per-person activity.
var ErrNoTop = errors.New("metric has no top list")

// Column aliases shared by the builders and the row types scanning them.
const (
	ValueCol     = "metric_value"
	PeriodCol    = "period_key"
	ItemIDCol    = "item_id"
	ItemNameCol  = "item_name"
	GroupCol     = "group_key"
	FirstDateCol = "first_date"
	LastDateCol  = "last_date"
)

// Builder turns metric definitions into queries for one dialect.
// IdentitiesDB names the schema holding the unified identity tables,
// empty when they live next to the miner tables.
type Builder struct {
	Dialect      Dialect
	IdentitiesDB string
}

// Table qualifies an identity table with the identities schema.
func (b Builder) Table(name string) string {
	if b.IdentitiesDB == "" {
		return name
	}
	return b.IdentitiesDB + "." + name
}

// PeopleJoin links a miner person column to its unique identity.
func (b Builder) PeopleJoin(personField string) string {
	return fmt.Sprintf("JOIN %s pup ON pup.people_id = %s", b.Table("people_upeople"), personField)
}

func (b Builder) upeopleJoin() string {
	return fmt.Sprintf("JOIN %s u ON u.id = pup.upeople_id", b.Table("upeople"))
}

// base builds the FROM/JOIN/WHERE part shared by every query over m.
func (b Builder) base(m *Metric, f schema.Filter, w schema.TimeWindow) (*Query, error) {
	q := &Query{From: m.From}
	q.Join(m.Joins...)
	if m.Identity {
		if m.PersonField == "" {
			return nil, fmt.Errorf("metric %s reads identities but has no person field", m.ID)
		}
		q.Join(m.PersonJoins...)
		q.Join(b.PeopleJoin(m.PersonField))
	}
	for _, c := range m.Conds {
		q.AndWhere(c.SQL, c.Args...)
	}
	if !w.Start.IsZero() {
		q.AndWhere(m.DateField+" >= ?", b.Dialect.TimeArg(w.Start))
	}
	if !w.End.IsZero() {
		q.AndWhere(m.DateField+" < ?", b.Dialect.TimeArg(w.End))
	}
	if err := b.applyFilter(q, m, f); err != nil {
		return nil, err
	}
	return q, nil
}

// target returns the joins, the name column and the extra conditions that
// expose a filter dimension of m.
func (b Builder) target(m *Metric, kind schema.FilterKind) ([]string, string, []string, error) {
	if kind == schema.RepositoryFilter {
		if m.Repo == nil {
			return nil, "", nil, fmt.Errorf("%w: %s by %s", ErrUnsupportedFilter, m.ID, kind)
		}
		return m.Repo.Joins, m.Repo.Field, nil, nil
	}

	if m.PersonField == "" {
		return nil, "", nil, fmt.Errorf("%w: %s by %s", ErrUnsupportedFilter, m.ID, kind)
	}
	joins := append([]string{}, m.PersonJoins...)
	joins = append(joins, b.PeopleJoin(m.PersonField))

	switch kind {
	case schema.PeopleFilter:
		return joins, "pup.upeople_id", nil, nil
	case schema.CompanyFilter:
		joins = append(joins,
			fmt.Sprintf("JOIN %s upc ON upc.upeople_id = pup.upeople_id", b.Table("upeople_companies")),
			fmt.Sprintf("JOIN %s com ON com.id = upc.company_id", b.Table("companies")),
		)
		// Affiliation only counts while the enrollment is active.
		conds := []string{m.DateField + " >= upc.init", m.DateField + " < upc.end"}
		return joins, "com.name", conds, nil
	case schema.CountryFilter:
		joins = append(joins,
			fmt.Sprintf("JOIN %s upcou ON upcou.upeople_id = pup.upeople_id", b.Table("upeople_countries")),
			fmt.Sprintf("JOIN %s cou ON cou.id = upcou.country_id", b.Table("countries")),
		)
		return joins, "cou.name", nil, nil
	case schema.DomainFilter:
		joins = append(joins,
			fmt.Sprintf("JOIN %s upd ON upd.upeople_id = pup.upeople_id", b.Table("upeople_domains")),
			fmt.Sprintf("JOIN %s dom ON dom.id = upd.domain_id", b.Table("domains")),
		)
		return joins, "dom.name", nil, nil
	default:
		return nil, "", nil, fmt.Errorf("%w: unknown filter kind %q", ErrUnsupportedFilter, kind)
	}
}

func (b Builder) applyFilter(q *Query, m *Metric, f schema.Filter) error {
	if f.IsGlobal() {
		return nil
	}
	joins, field, conds, err := b.target(m, f.Kind)
	if err != nil {
		return err
	}
	q.Join(joins...)
	q.AndWhere(field+" = ?", f.Value)
	for _, c := range conds {
		q.AndWhere(c)
	}
	return nil
}

// Supports reports whether m can be filtered by kind.
func (b Builder) Supports(m *Metric, kind schema.FilterKind) bool {
	_, _, _, err := b.target(m, kind)
	return err == nil
}

// Global yields a single metric_value row for the whole window.
func (b Builder) Global(m *Metric, f schema.Filter, w schema.TimeWindow) (*Query, error) {
	q, err := b.base(m, f, w)
	if err != nil {
		return nil, err
	}
	q.Fields = []string{m.Expr + " AS " + ValueCol}
	return q, nil
}

// Evolutionary yields (period_key, metric_value) rows, one per active period.
func (b Builder) Evolutionary(m *Metric, f schema.Filter, w schema.TimeWindow, p schema.Period) (*Query, error) {
	q, err := b.base(m, f, w)
	if err != nil {
		return nil, err
	}
	key := b.Dialect.PeriodKey(m.DateField, p)
	q.Fields = []string{key + " AS " + PeriodCol, m.Expr + " AS " + ValueCol}
	q.GroupBy = []string{key}
	q.OrderBy = []string{key}
	return q, nil
}

// Bounds yields the first and last activity dates inside the window.
func (b Builder) Bounds(m *Metric, f schema.Filter, w schema.TimeWindow) (*Query, error) {
	q, err := b.base(m, f, w)
	if err != nil {
		return nil, err
	}
	q.Fields = []string{
		b.Dialect.DateString("MIN("+m.DateField+")") + " AS " + FirstDateCol,
		b.Dialect.DateString("MAX("+m.DateField+")") + " AS " + LastDateCol,
	}
	return q, nil
}

// Top yields (item_id, item_name, metric_value) rows ranked by per-person activity.
// A limit of zero returns everyone.
func (b Builder) Top(m *Metric, f schema.Filter, w schema.TimeWindow, limit int) (*Query, error) {
	if m.TopExpr == "" || m.PersonField == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoTop, m.ID)
	}
	q, err := b.base(m, f, w)
	if err != nil {
		return nil, err
	}
	q.Join(m.PersonJoins...)
	q.Join(b.PeopleJoin(m.PersonField), b.upeopleJoin())
	q.Fields = []string{
		"u.id AS " + ItemIDCol,
		"COALESCE(u.identifier, '') AS " + ItemNameCol,
		m.TopExpr + " AS " + ValueCol,
	}
	q.GroupBy = []string{"u.id", "u.identifier"}
	q.OrderBy = []string{ValueCol + " DESC", "u.id"}
	q.Limit = limit
	return q, nil
}

// TopByPeriod yields (period_key, item_id, item_name, metric_value) rows with
// per-person activity inside each period.
func (b Builder) TopByPeriod(m *Metric, f schema.Filter, w schema.TimeWindow, p schema.Period) (*Query, error) {
	q, err := b.Top(m, f, w, 0)
	if err != nil {
		return nil, err
	}
	key := b.Dialect.PeriodKey(m.DateField, p)
	q.Fields = append([]string{key + " AS " + PeriodCol}, q.Fields...)
	q.GroupBy = append([]string{key}, q.GroupBy...)
	q.OrderBy = []string{key, ValueCol + " DESC", "u.id"}
	return q, nil
}

// Activity yields per-person first and last activity dates with their activity.
func (b Builder) Activity(m *Metric, f schema.Filter, w schema.TimeWindow) (*Query, error) {
	q, err := b.Top(m, f, w, 0)
	if err != nil {
		return nil, err
	}
	q.Fields = append(q.Fields,
		b.Dialect.DateString("MIN("+m.DateField+")")+" AS "+FirstDateCol,
		b.Dialect.DateString("MAX("+m.DateField+")")+" AS "+LastDateCol,
	)
	return q, nil
}

// Items yields (item_name, metric_value) rows for the values of a filter dimension.
// People items also yield item_id, the unique identity they are filtered by.
func (b Builder) Items(m *Metric, kind schema.FilterKind, w schema.TimeWindow, limit int) (*Query, error) {
	q, err := b.base(m, schema.Filter{}, w)
	if err != nil {
		return nil, err
	}
	joins, field, conds, err := b.target(m, kind)
	if err != nil {
		return nil, err
	}
	q.Join(joins...)
	for _, c := range conds {
		q.AndWhere(c)
	}
	q.Limit = limit
	if kind == schema.PeopleFilter {
		q.Join(b.upeopleJoin())
		q.Fields = []string{
			field + " AS " + ItemIDCol,
			"COALESCE(u.identifier, '') AS " + ItemNameCol,
			m.Expr + " AS " + ValueCol,
		}
		q.GroupBy = []string{field, "u.identifier"}
		q.OrderBy = []string{ValueCol + " DESC", field}
		return q, nil
	}
	q.Fields = []string{field + " AS " + ItemNameCol, m.Expr + " AS " + ValueCol}
	q.GroupBy = []string{field}
	q.OrderBy = []string{ValueCol + " DESC", field}
	return q, nil
}

// Grouped yields (group_key, metric_value) rows, grouping m by an arbitrary column.
func (b Builder) Grouped(m *Metric, f schema.Filter, w schema.TimeWindow, field string) (*Query, error) {
	q, err := b.base(m, f, w)
	if err != nil {
		return nil, err
	}
	q.Fields = []string{field + " AS " + GroupCol, m.Expr + " AS " + ValueCol}
	q.GroupBy = []string{field}
	q.OrderBy = []string{field}
	return q, nil
}

// Select yields raw rows over the base of m with the given select list.
func (b Builder) Select(m *Metric, f schema.Filter, w schema.TimeWindow, fields []string, groupBy ...string) (*Query, error) {
	q, err := b.base(m, f, w)
	if err != nil {
		return nil, err
	}
	q.Fields = fields
	q.GroupBy = groupBy
	return q, nil
}
