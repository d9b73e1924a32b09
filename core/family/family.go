// Package family declares the metrics of every miner database family.
//
// A family bundles the SQL definitions of its metrics over one miner schema
// (CVSAnalY, Bicho, MLStats, ...) together with the filters it accepts and
// the metrics its top lists rank people by.
package family

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/VizGrimoire/GrimoireLib-sub002/core/query"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// ErrUnknownMetric is returned when a metric id is not defined for a family.
var ErrUnknownMetric = errors.New("unknown metric")

// Derived is a metric computed from other metrics of the same family.
// Compute receives the input values for one window or one period.
type Derived struct {
	ID          string
	Description string
	Inputs      []string
	Compute     func(values map[string]float64) float64
}

// Tickets names the metrics ticket-based analyses (backlog, time to close)
// are built from. Only ITS and SCR have them.
type Tickets struct {
	Submitted     *query.Metric // rows are tickets, dated by submission
	StatusChanges *query.Metric // rows are status change events
	Closing       *query.Metric // rows are closing events, joined to their ticket as i
	ClosedStates  []string      // states counted as closed
}

// Family is the definition of one data source.
type Family struct {
	ID          schema.DataSource
	Description string
	Main        string // metric whose date field bounds first/last activity
	Metrics     []*query.Metric
	Derived     []Derived
	TopMetrics  []string
	Filters     []schema.FilterKind
	Tickets     *Tickets
}

// Metric returns the SQL definition of a base metric.
func (f *Family) Metric(id string) (*query.Metric, error) {
	for _, m := range f.Metrics {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMetric, f.ID, id)
}

// MainMetric returns the metric bounding the family's activity dates.
func (f *Family) MainMetric() *query.Metric {
	m, err := f.Metric(f.Main)
	if err != nil {
		panic(err) // definitions are static
	}
	return m
}

// IDs returns every metric id, base metrics first.
func (f *Family) IDs() []string {
	ids := make([]string, 0, len(f.Metrics)+len(f.Derived))
	for _, m := range f.Metrics {
		ids = append(ids, m.ID)
	}
	for _, d := range f.Derived {
		ids = append(ids, d.ID)
	}
	return ids
}

// SupportsFilter reports whether the family accepts filters of kind.
// The global filter is always accepted.
func (f *Family) SupportsFilter(kind schema.FilterKind) bool {
	return kind == "" || slices.Contains(f.Filters, kind)
}

// CheckFilter returns query.ErrUnsupportedFilter when the family rejects filter.
func (f *Family) CheckFilter(filter schema.Filter) error {
	if f.SupportsFilter(filter.Kind) {
		return nil
	}
	return fmt.Errorf("%w: %s by %s", query.ErrUnsupportedFilter, f.ID, filter.Kind)
}

// Resolve splits the requested ids into base metrics to query and derived
// metrics to compute. Inputs of derived metrics are added to the base set.
// An empty request selects every metric.
func (f *Family) Resolve(ids []string) ([]*query.Metric, []Derived, error) {
	if len(ids) == 0 {
		ids = f.IDs()
	}
	var (
		base    []*query.Metric
		derived []Derived
		seen    = map[string]bool{}
	)
	addBase := func(id string) error {
		if seen[id] {
			return nil
		}
		m, err := f.Metric(id)
		if err != nil {
			return err
		}
		seen[id] = true
		base = append(base, m)
		return nil
	}

	for _, id := range ids {
		if d, ok := f.derived(id); ok {
			if seen[id] {
				continue
			}
			seen[id] = true
			derived = append(derived, d)
			for _, in := range d.Inputs {
				if err := addBase(in); err != nil {
					return nil, nil, err
				}
			}
			continue
		}
		if err := addBase(id); err != nil {
			return nil, nil, err
		}
	}
	return base, derived, nil
}

func (f *Family) derived(id string) (Derived, bool) {
	for _, d := range f.Derived {
		if d.ID == id {
			return d, true
		}
	}
	return Derived{}, false
}

// Info lists the metrics of the family.
func (f *Family) Info() []schema.MetricInfo {
	var out []schema.MetricInfo
	for _, m := range f.Metrics {
		out = append(out, schema.MetricInfo{
			Family:      f.ID,
			ID:          m.ID,
			Description: m.Description,
			Top:         slices.Contains(f.TopMetrics, m.ID),
		})
	}
	for _, d := range f.Derived {
		out = append(out, schema.MetricInfo{
			Family:      f.ID,
			ID:          d.ID,
			Description: d.Description,
			Derived:     true,
		})
	}
	return out
}

// Options tune the family definitions.
type Options struct {
	ClosedStates []string // ITS states counted as closed
}

// Registry holds the definitions of every family.
type Registry struct {
	families map[schema.DataSource]*Family
}

// NewRegistry builds all family definitions.
func NewRegistry(opts Options) *Registry {
	closed := opts.ClosedStates
	if len(closed) == 0 {
		closed = schema.DefaultClosedStates
	}
	r := &Registry{families: map[schema.DataSource]*Family{}}
	for _, f := range []*Family{
		newSCM(),
		newITS(closed),
		newMLS(),
		newSCR(),
		newIRC(),
		newMediaWiki(),
		newQAForums(),
	} {
		r.families[f.ID] = f
	}
	return r
}

// Family returns the definition of ds.
func (r *Registry) Family(ds schema.DataSource) (*Family, error) {
	f, ok := r.families[ds]
	if !ok {
		return nil, fmt.Errorf("unknown data source '%s'", ds)
	}
	return f, nil
}

// Families returns every family in report order.
func (r *Registry) Families() []*Family {
	out := make([]*Family, 0, len(r.families))
	for _, ds := range schema.AllDataSources {
		if f, ok := r.families[ds]; ok {
			out = append(out, f)
		}
	}
	return out
}

// List describes every metric of every family.
func (r *Registry) List() []schema.MetricInfo {
	var out []schema.MetricInfo
	for _, f := range r.Families() {
		out = append(out, f.Info()...)
	}
	return out
}

// identityFilters are the filters every person-aware family accepts.
var identityFilters = []schema.FilterKind{
	schema.RepositoryFilter,
	schema.CompanyFilter,
	schema.CountryFilter,
	schema.DomainFilter,
	schema.PeopleFilter,
}

// inList renders "col IN (?, ?, ...)" for n values.
func inList(col string, n int) string {
	s := col + " IN ("
	for i := range n {
		if i > 0 {
			s += ", "
		}
		s += "?"
	}
	return s + ")"
}

// lowerArgs matches states the way backlog replay does, ignoring case.
func lowerArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = strings.ToLower(v)
	}
	return args
}
