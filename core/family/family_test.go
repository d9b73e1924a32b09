package family

import (
	"errors"
	"testing"

	"github.com/VizGrimoire/GrimoireLib-sub002/core/query"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryHasEveryFamily(t *testing.T) {
	r := NewRegistry(Options{})
	families := r.Families()
	require.Len(t, families, len(schema.AllDataSources))
	for i, f := range families {
		assert.Equal(t, schema.AllDataSources[i], f.ID)
		assert.NotNil(t, f.MainMetric())
		for _, id := range f.TopMetrics {
			m, err := f.Metric(id)
			require.NoError(t, err)
			assert.NotEmpty(t, m.TopExpr, "%s.%s is ranked but has no per-person expression", f.ID, id)
		}
	}

	_, err := r.Family("bugzilla")
	assert.Error(t, err)
}

func TestFamilyMetricsAreWellFormed(t *testing.T) {
	for _, f := range NewRegistry(Options{}).Families() {
		ids := map[string]bool{}
		for _, m := range f.Metrics {
			assert.False(t, ids[m.ID], "duplicate metric %s.%s", f.ID, m.ID)
			ids[m.ID] = true
			assert.NotEmpty(t, m.From)
			assert.NotEmpty(t, m.DateField)
			assert.NotEmpty(t, m.Expr)
			assert.NotEmpty(t, m.Description)
			if m.Identity {
				assert.NotEmpty(t, m.PersonField)
			}
		}
	}
}

func TestMetricsListedByFamily(t *testing.T) {
	r := NewRegistry(Options{})
	its, err := r.Family(schema.ITS)
	require.NoError(t, err)
	assert.Equal(t, []string{"opened", "openers", "closed", "closers", "changed", "changers", "trackers", "bmi"}, its.IDs())

	var derived []string
	for _, info := range r.List() {
		if info.Derived {
			derived = append(derived, string(info.Family)+"."+info.ID)
		}
	}
	assert.Equal(t, []string{"its.bmi"}, derived)
}

func TestResolveAddsDerivedInputs(t *testing.T) {
	its, err := NewRegistry(Options{}).Family(schema.ITS)
	require.NoError(t, err)

	base, derived, err := its.Resolve([]string{"bmi", "closed"})
	require.NoError(t, err)
	require.Len(t, derived, 1)
	assert.Equal(t, "bmi", derived[0].ID)

	var ids []string
	for _, m := range base {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"closed", "opened"}, ids)

	_, _, err = its.Resolve([]string{"commits"})
	assert.True(t, errors.Is(err, ErrUnknownMetric))
}

func TestBMI(t *testing.T) {
	assert.Equal(t, 50.0, bmi(map[string]float64{"opened": 4, "closed": 2}))
	assert.Equal(t, 0.0, bmi(map[string]float64{"opened": 0, "closed": 3}))
	assert.Equal(t, 33.33, bmi(map[string]float64{"opened": 3, "closed": 1}))
}

func TestClosedStatesOption(t *testing.T) {
	its, err := NewRegistry(Options{ClosedStates: []string{"Done", "Won't fix"}}).Family(schema.ITS)
	require.NoError(t, err)

	closed, err := its.Metric("closed")
	require.NoError(t, err)
	require.Len(t, closed.Conds, 1)
	assert.Equal(t, "LOWER(ch.field) = 'status' AND LOWER(ch.new_value) IN (?, ?)", closed.Conds[0].SQL)
	assert.Equal(t, []any{"done", "won't fix"}, closed.Conds[0].Args)
	assert.Equal(t, []string{"Done", "Won't fix"}, its.Tickets.ClosedStates)

	def, err := NewRegistry(Options{}).Family(schema.ITS)
	require.NoError(t, err)
	assert.Equal(t, schema.DefaultClosedStates, def.Tickets.ClosedStates)
}

func TestCheckFilter(t *testing.T) {
	r := NewRegistry(Options{})
	wiki, err := r.Family(schema.MediaWiki)
	require.NoError(t, err)

	assert.NoError(t, wiki.CheckFilter(schema.Filter{}))
	assert.NoError(t, wiki.CheckFilter(schema.Filter{Kind: schema.PeopleFilter, Value: "3"}))
	err = wiki.CheckFilter(schema.Filter{Kind: schema.CompanyFilter, Value: "Acme"})
	assert.True(t, errors.Is(err, query.ErrUnsupportedFilter))

	scm, err := r.Family(schema.SCM)
	require.NoError(t, err)
	for _, k := range schema.AllFilterKinds {
		assert.True(t, scm.SupportsFilter(k))
	}
}

func TestMLSCompanyFilterReachesSender(t *testing.T) {
	mls, err := NewRegistry(Options{}).Family(schema.MLS)
	require.NoError(t, err)
	sent, err := mls.Metric("sent")
	require.NoError(t, err)

	b := query.Builder{Dialect: query.Dialect{Backend: schema.SQLiteBackend}}
	q, err := b.Global(sent, schema.Filter{Kind: schema.CompanyFilter, Value: "Acme"}, schema.TimeWindow{})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(q.Joins), 2)
	assert.Equal(t, mlsSenderJoin, q.Joins[0])
	assert.Equal(t, "JOIN people_upeople pup ON pup.people_id = mp.email_address", q.Joins[1])
}
