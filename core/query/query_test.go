package query

import (
	"errors"
	"testing"
	"time"

	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	windowStart = time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2014, time.January, 1, 0, 0, 0, 0, time.UTC)
	window      = schema.TimeWindow{Start: windowStart, End: windowEnd}
)

func commitsMetric() *Metric {
	return &Metric{
		ID:          "commits",
		From:        "scmlog s",
		DateField:   "s.date",
		PersonField: "s.author_id",
		Expr:        "COUNT(DISTINCT s.id)",
		TopExpr:     "COUNT(DISTINCT s.id)",
		Repo: &RepoFilter{
			Joins: []string{"JOIN repositories r ON r.id = s.repository_id"},
			Field: "r.name",
		},
	}
}

func sqliteBuilder() Builder {
	return Builder{Dialect: Dialect{Backend: schema.SQLiteBackend}}
}

func TestQueryJoinDeduplicates(t *testing.T) {
	q := &Query{From: "scmlog s"}
	q.Join("JOIN a ON a.x = s.id", "", "JOIN a ON a.x = s.id", "JOIN b ON b.y = a.x")
	assert.Equal(t, []string{"JOIN a ON a.x = s.id", "JOIN b ON b.y = a.x"}, q.Joins)
}

func TestQuerySQL(t *testing.T) {
	q := &Query{
		Fields:  []string{"x", "y"},
		From:    "t",
		Joins:   []string{"JOIN u ON u.id = t.uid"},
		GroupBy: []string{"x"},
		OrderBy: []string{"y DESC"},
		Limit:   5,
	}
	q.AndWhere("t.a = ?", 1)
	q.AndWhere("t.b < ?", 2)

	assert.Equal(t, "SELECT x, y FROM t JOIN u ON u.id = t.uid WHERE t.a = ? AND t.b < ? GROUP BY x ORDER BY y DESC LIMIT 5", q.SQL())
	assert.Equal(t, []any{1, 2}, q.Args)
}

func TestRenderRebindsForPostgres(t *testing.T) {
	q := &Query{Fields: []string{"1"}, From: "t"}
	q.AndWhere("a = ?", 1)
	q.AndWhere("b = ?", 2)

	sql, args := q.Render(Dialect{Backend: schema.PostgreSQLBackend})
	assert.Equal(t, "SELECT 1 FROM t WHERE a = $1 AND b = $2", sql)
	assert.Len(t, args, 2)

	sql, _ = q.Render(Dialect{Backend: schema.MySQLBackend})
	assert.Equal(t, "SELECT 1 FROM t WHERE a = ? AND b = ?", sql)
}

func TestGlobal(t *testing.T) {
	q, err := sqliteBuilder().Global(commitsMetric(), schema.Filter{}, window)
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(DISTINCT s.id) AS metric_value FROM scmlog s WHERE s.date >= ? AND s.date < ?", q.SQL())
	assert.Equal(t, []any{"2013-01-01 00:00:00", "2014-01-01 00:00:00"}, q.Args)
}

func TestGlobalWithoutStart(t *testing.T) {
	q, err := sqliteBuilder().Global(commitsMetric(), schema.Filter{}, schema.TimeWindow{End: windowEnd})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(DISTINCT s.id) AS metric_value FROM scmlog s WHERE s.date < ?", q.SQL())
}

func TestRepositoryFilter(t *testing.T) {
	f := schema.Filter{Kind: schema.RepositoryFilter, Value: "linux"}
	q, err := sqliteBuilder().Global(commitsMetric(), f, window)
	require.NoError(t, err)

	assert.Contains(t, q.SQL(), "JOIN repositories r ON r.id = s.repository_id")
	assert.Contains(t, q.SQL(), "r.name = ?")
	assert.Equal(t, "linux", q.Args[2])
}

func TestCompanyFilterUsesEnrollmentDates(t *testing.T) {
	b := Builder{Dialect: Dialect{Backend: schema.MySQLBackend}, IdentitiesDB: "cp_identities"}
	f := schema.Filter{Kind: schema.CompanyFilter, Value: "Red Hat"}
	q, err := b.Global(commitsMetric(), f, window)
	require.NoError(t, err)

	sql := q.SQL()
	assert.Contains(t, sql, "JOIN cp_identities.people_upeople pup ON pup.people_id = s.author_id")
	assert.Contains(t, sql, "JOIN cp_identities.upeople_companies upc ON upc.upeople_id = pup.upeople_id")
	assert.Contains(t, sql, "JOIN cp_identities.companies com ON com.id = upc.company_id")
	assert.Contains(t, sql, "com.name = ? AND s.date >= upc.init AND s.date < upc.end")
}

func TestIdentityMetricWithPeopleFilterJoinsOnce(t *testing.T) {
	m := commitsMetric()
	m.ID = "authors"
	m.Expr = "COUNT(DISTINCT pup.upeople_id)"
	m.Identity = true

	q, err := sqliteBuilder().Global(m, schema.Filter{Kind: schema.PeopleFilter, Value: "7"}, window)
	require.NoError(t, err)
	assert.Len(t, q.Joins, 1)
	assert.Contains(t, q.SQL(), "pup.upeople_id = ?")
}

func TestUnsupportedFilter(t *testing.T) {
	m := commitsMetric()
	m.Repo = nil
	_, err := sqliteBuilder().Global(m, schema.Filter{Kind: schema.RepositoryFilter, Value: "x"}, window)
	assert.True(t, errors.Is(err, ErrUnsupportedFilter))

	m.PersonField = ""
	assert.False(t, sqliteBuilder().Supports(m, schema.CompanyFilter))
}

func TestEvolutionary(t *testing.T) {
	q, err := sqliteBuilder().Evolutionary(commitsMetric(), schema.Filter{}, window, schema.MonthPeriod)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT strftime('%Y-%m-01', s.date) AS period_key, COUNT(DISTINCT s.id) AS metric_value FROM scmlog s "+
			"WHERE s.date >= ? AND s.date < ? GROUP BY strftime('%Y-%m-01', s.date) ORDER BY strftime('%Y-%m-01', s.date)",
		q.SQL())
}

func TestTop(t *testing.T) {
	q, err := sqliteBuilder().Top(commitsMetric(), schema.Filter{}, window, 10)
	require.NoError(t, err)
	sql := q.SQL()
	assert.Contains(t, sql, "u.id AS item_id")
	assert.Contains(t, sql, "JOIN upeople u ON u.id = pup.upeople_id")
	assert.Contains(t, sql, "ORDER BY metric_value DESC, u.id LIMIT 10")

	m := commitsMetric()
	m.TopExpr = ""
	_, err = sqliteBuilder().Top(m, schema.Filter{}, window, 10)
	assert.True(t, errors.Is(err, ErrNoTop))
}

func TestItems(t *testing.T) {
	q, err := sqliteBuilder().Items(commitsMetric(), schema.CompanyFilter, window, 0)
	require.NoError(t, err)
	sql := q.SQL()
	assert.Contains(t, sql, "SELECT com.name AS item_name")
	assert.Contains(t, sql, "GROUP BY com.name")
	assert.NotContains(t, sql, "LIMIT")
}

func TestPeopleItemsAreNamedByIdentifier(t *testing.T) {
	q, err := sqliteBuilder().Items(commitsMetric(), schema.PeopleFilter, window, 5)
	require.NoError(t, err)
	sql := q.SQL()
	assert.Contains(t, sql, "SELECT pup.upeople_id AS item_id, COALESCE(u.identifier, '') AS item_name")
	assert.Contains(t, sql, "JOIN upeople u ON u.id = pup.upeople_id")
	assert.Contains(t, sql, "GROUP BY pup.upeople_id, u.identifier")
}

func TestMetricWithCondDoesNotMutate(t *testing.T) {
	m := commitsMetric()
	c := m.WithCond("s.message LIKE ?", "%fix%")
	assert.Empty(t, m.Conds)
	require.Len(t, c.Conds, 1)

	q, err := sqliteBuilder().Global(c, schema.Filter{}, window)
	require.NoError(t, err)
	assert.Equal(t, "%fix%", q.Args[0])
}

func TestPeriodKeyRendering(t *testing.T) {
	my := Dialect{Backend: schema.MySQLBackend}
	pg := Dialect{Backend: schema.PostgreSQLBackend}
	lite := Dialect{Backend: schema.SQLiteBackend}

	assert.Equal(t, "DATE_FORMAT(s.date, '%Y-%m-01')", my.PeriodKey("s.date", schema.MonthPeriod))
	assert.Equal(t, "DATE_FORMAT(DATE_SUB(s.date, INTERVAL WEEKDAY(s.date) DAY), '%Y-%m-%d')", my.PeriodKey("s.date", schema.WeekPeriod))
	assert.Equal(t, "to_char(date_trunc('week', s.date), 'YYYY-MM-DD')", pg.PeriodKey("s.date", schema.WeekPeriod))
	assert.Equal(t, "date(s.date, 'weekday 0', '-6 days')", lite.PeriodKey("s.date", schema.WeekPeriod))
	assert.Equal(t, "strftime('%Y-01-01', s.date)", lite.PeriodKey("s.date", schema.YearPeriod))
}

func TestNewDialect(t *testing.T) {
	d, err := NewDialect(schema.PostgreSQLBackend)
	require.NoError(t, err)
	assert.Equal(t, "pgx", d.DriverName())

	_, err = NewDialect(schema.NoneBackend)
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	got, err := ParseTime("2013-05-17 10:11:12")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2013, time.May, 17, 10, 11, 12, 0, time.UTC), got)

	_, err = ParseTime("17/05/2013")
	assert.Error(t, err)
}
