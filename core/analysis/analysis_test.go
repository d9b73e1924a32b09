package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/VizGrimoire/GrimoireLib-sub002/core/family"
	"github.com/VizGrimoire/GrimoireLib-sub002/core/metrics"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/fixture"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/source"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	engine := metrics.NewEngine(family.NewRegistry(family.Options{}), fixture.OpenAll(t), "", 2)
	return New(engine)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOnion(t *testing.T) {
	res := Onion([]schema.Contributor{
		{ID: "6", Name: "f", Activity: 2},
		{ID: "1", Name: "a", Activity: 50},
		{ID: "3", Name: "c", Activity: 10},
		{ID: "2", Name: "b", Activity: 30},
		{ID: "5", Name: "e", Activity: 3},
		{ID: "4", Name: "d", Activity: 5},
	})

	assert.Equal(t, float64(100), res.TotalActivity)
	assert.Equal(t, 6, res.Contributors)

	assert.Equal(t, 2, res.Core.Count)
	assert.Equal(t, float64(80), res.Core.Share)
	assert.Equal(t, "a", res.Core.Members[0].Name)
	assert.Equal(t, "b", res.Core.Members[1].Name)

	// c starts exactly at 80% of the activity.
	assert.Equal(t, 2, res.Regular.Count)
	assert.Equal(t, float64(15), res.Regular.Share)
	assert.Equal(t, "c", res.Regular.Members[0].Name)

	assert.Equal(t, 2, res.Occasional.Count)
	assert.Equal(t, float64(5), res.Occasional.Share)
}

func TestOnionTiesAndEmpty(t *testing.T) {
	res := Onion([]schema.Contributor{
		{ID: "1", Name: "zed", Activity: 10},
		{ID: "2", Name: "amy", Activity: 10},
	})
	assert.Equal(t, "amy", res.Core.Members[0].Name)
	assert.Equal(t, 2, res.Core.Count)

	empty := Onion(nil)
	assert.Zero(t, empty.Contributors)
	assert.Equal(t, schema.CoreBand, empty.Core.Band)
	assert.Zero(t, empty.Core.Share)
}

func TestOnionFromDatabase(t *testing.T) {
	a := newTestAnalyzer(t)
	res, err := a.Onion(context.Background(), schema.SCM, schema.Filter{}, fixture.Window)
	require.NoError(t, err)

	assert.Equal(t, schema.SCM, res.Family)
	assert.Equal(t, float64(7), res.TotalActivity)
	assert.Equal(t, 3, res.Core.Count)
	assert.Zero(t, res.Regular.Count)
}

func TestOnionSeries(t *testing.T) {
	a := newTestAnalyzer(t)
	w := schema.TimeWindow{Start: day(2013, time.January, 1), End: day(2013, time.July, 1)}
	series, err := a.OnionSeries(context.Background(), schema.SCM, schema.Filter{}, w, schema.MonthPeriod)
	require.NoError(t, err)

	require.Len(t, series.Dates, 6)
	assert.Equal(t, []float64{1, 1, 2, 0, 1, 1}, series.Core)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0}, series.Occasional)
}

func TestTerritoriality(t *testing.T) {
	res := Territoriality([]int{1, 2, 1, 0, 3})
	assert.Equal(t, 4, res.TotalFiles)
	assert.Equal(t, 2, res.TerritorialFiles)
	assert.Equal(t, float64(50), res.Percentage)

	assert.Zero(t, Territoriality(nil).Percentage)
}

func TestTerritorialityFromDatabase(t *testing.T) {
	a := newTestAnalyzer(t)
	ctx := context.Background()

	res, err := a.Territoriality(ctx, schema.Filter{}, fixture.Window)
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalFiles)
	assert.Equal(t, 2, res.TerritorialFiles)
	assert.Equal(t, float64(50), res.Percentage)

	res, err = a.Territoriality(ctx, schema.Filter{Kind: schema.RepositoryFilter, Value: "git"}, fixture.Window)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalFiles)
	assert.Zero(t, res.TerritorialFiles)
}

func TestTerritorialityMergesIdentities(t *testing.T) {
	// carol's second identity (people 3) also touches file 4, first added by people 4.
	scm := fixture.Open(t, schema.SCM, "INSERT INTO actions VALUES (10, 'M', 4, 5, 1)")
	engine := metrics.NewEngine(family.NewRegistry(family.Options{}), source.Set{schema.SCM: scm}, "", 1)

	res, err := New(engine).Territoriality(context.Background(), schema.Filter{}, fixture.Window)
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalFiles)
	assert.Equal(t, 2, res.TerritorialFiles)
}

func TestReplayBacklog(t *testing.T) {
	tickets := []Ticket{
		{ID: "1", Submitted: day(2013, 1, 1), Status: "Closed"},
		{ID: "2", Submitted: day(2013, 1, 5), Status: "New"},
		{ID: "3", Submitted: day(2013, 2, 5), Status: "Open"},
	}
	events := []StatusEvent{
		{TicketID: "1", At: day(2013, 1, 20), Old: "Open", New: "Closed"},
		{TicketID: "1", At: day(2013, 1, 2), Old: "New", New: "Open"},
		{TicketID: "99", At: day(2013, 1, 3), Old: "New", New: "Closed"},
		{TicketID: "3", At: day(2013, 2, 10), Old: "New", New: "Open"},
	}
	ends := []time.Time{day(2013, 1, 10), day(2013, 2, 1), day(2013, 3, 1)}

	b := ReplayBacklog(tickets, events, ends, []string{"closed"})

	assert.Equal(t, []string{"Closed", "New", "Open"}, b.States)
	assert.Equal(t, []float64{0, 1, 1}, b.Counts["Closed"])
	assert.Equal(t, []float64{1, 1, 1}, b.Counts["New"])
	assert.Equal(t, []float64{1, 0, 1}, b.Counts["Open"])
	assert.Equal(t, []float64{2, 2, 3}, b.Total)
	assert.Equal(t, []float64{2, 1, 2}, b.Pending)

	for i := range ends {
		var sum float64
		for _, s := range b.States {
			sum += b.Counts[s][i]
		}
		assert.Equal(t, b.Total[i], sum, "states add up at end %d", i)
	}
}

func TestBacklogFromDatabase(t *testing.T) {
	a := newTestAnalyzer(t)
	w := schema.TimeWindow{Start: day(2013, time.January, 1), End: day(2013, time.May, 1)}
	res, err := a.Backlog(context.Background(), schema.ITS, schema.Filter{}, w, schema.MonthPeriod)
	require.NoError(t, err)

	assert.Equal(t, []string{"Assigned", "Closed", "New", "Open", "Resolved"}, res.States)
	assert.Equal(t, []float64{0, 0, 0, 0}, res.Counts["Assigned"])
	assert.Equal(t, []float64{1, 1, 1, 1}, res.Counts["Closed"])
	assert.Equal(t, []float64{1, 0, 1, 1}, res.Counts["New"])
	assert.Equal(t, []float64{0, 1, 1, 1}, res.Counts["Open"])
	assert.Equal(t, []float64{0, 1, 1, 1}, res.Counts["Resolved"])
	assert.Equal(t, []float64{1, 1, 2, 2}, res.Pending)
	assert.Equal(t, []float64{2, 3, 4, 4}, res.Total)
}

func TestClosedStatesIgnoreCase(t *testing.T) {
	registry := family.NewRegistry(family.Options{ClosedStates: []string{"closed", "resolved"}})
	engine := metrics.NewEngine(registry, source.Set{schema.ITS: fixture.Open(t, schema.ITS)}, "", 1)
	ctx := context.Background()
	w := schema.TimeWindow{Start: day(2013, time.January, 1), End: day(2013, time.May, 1)}

	agg, err := engine.Agg(ctx, schema.ITS, []string{"closed", "closers"}, schema.Filter{}, w)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"closed": 2, "closers": 2}, agg.Values)

	backlog, err := New(engine).Backlog(ctx, schema.ITS, schema.Filter{}, w, schema.MonthPeriod)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 2, 2}, backlog.Pending)
	last := len(backlog.Total) - 1
	assert.Equal(t, agg.Values["closed"], backlog.Total[last]-backlog.Pending[last])
}

func TestBacklogRequiresTickets(t *testing.T) {
	a := newTestAnalyzer(t)
	_, err := a.Backlog(context.Background(), schema.MLS, schema.Filter{}, fixture.Window, schema.MonthPeriod)
	assert.True(t, errors.Is(err, ErrNoTickets))
}

func TestTimeToClose(t *testing.T) {
	w := schema.TimeWindow{Start: day(2013, 1, 1), End: day(2013, 3, 1)}
	res := TimeToClose([]Closure{
		{TicketID: "1", Submitted: day(2013, 1, 5), Closed: day(2013, 1, 20)},
		{TicketID: "2", Submitted: day(2013, 2, 10), Closed: day(2013, 2, 20)},
		{TicketID: "3", Submitted: day(2012, 11, 1), Closed: day(2012, 12, 1)},
	}, w, schema.MonthPeriod)

	assert.Equal(t, 2, res.Count)
	assert.Equal(t, 12.5, res.MeanDays)
	assert.Equal(t, float64(10), res.MedianDays)
	assert.Equal(t, float64(10), res.P25Days)
	assert.Equal(t, float64(15), res.P75Days)
	assert.Equal(t, float64(15), res.P95Days)
	assert.Equal(t, []float64{15, 10}, res.Median)
}

func TestTimeToCloseEmpty(t *testing.T) {
	w := schema.TimeWindow{Start: day(2013, 1, 1), End: day(2013, 3, 1)}
	res := TimeToClose(nil, w, schema.MonthPeriod)
	assert.Zero(t, res.Count)
	assert.Equal(t, []float64{0, 0}, res.Median)
}

func TestTimeToCloseFromDatabase(t *testing.T) {
	a := newTestAnalyzer(t)
	ctx := context.Background()

	its, err := a.TimeToClose(ctx, schema.ITS, schema.Filter{}, fixture.Window, schema.MonthPeriod)
	require.NoError(t, err)
	assert.Equal(t, 2, its.Count)
	assert.Equal(t, 12.5, its.MeanDays)

	scr, err := a.TimeToClose(ctx, schema.SCR, schema.Filter{}, fixture.Window, schema.MonthPeriod)
	require.NoError(t, err)
	assert.Equal(t, 1, scr.Count)
	assert.Equal(t, float64(2), scr.MedianDays)
}

func TestNewcomers(t *testing.T) {
	acts := []schema.ContributorActivity{
		{ID: "1", First: day(2012, 1, 1), Last: day(2013, 12, 1)},
		{ID: "2", First: day(2013, 11, 1), Last: day(2013, 12, 20)},
		{ID: "3", First: day(2013, 12, 1), Last: day(2013, 12, 2)},
		{ID: "4", First: day(2012, 6, 1), Last: day(2013, 3, 1)},
		{ID: "5", First: day(2011, 6, 1), Last: day(2012, 3, 1)},
	}
	w := schema.TimeWindow{Start: day(2013, 1, 1), End: day(2014, 1, 1)}

	res := Newcomers(acts, w, 90, 0)
	require.Len(t, res.Newcomers, 2)
	assert.Equal(t, "3", res.Newcomers[0].ID)
	assert.Equal(t, "2", res.Newcomers[1].ID)
	require.Len(t, res.Gone, 1)
	assert.Equal(t, "4", res.Gone[0].ID)

	assert.Len(t, Newcomers(acts, w, 90, 1).Newcomers, 1)
}

func TestNewcomersFromDatabase(t *testing.T) {
	a := newTestAnalyzer(t)
	res, err := a.Newcomers(context.Background(), schema.SCM, schema.Filter{}, fixture.Window, 290, 10)
	require.NoError(t, err)

	require.Len(t, res.Newcomers, 1)
	assert.Equal(t, "carol", res.Newcomers[0].Name)
	require.Len(t, res.Gone, 1)
	assert.Equal(t, "bob", res.Gone[0].Name)
}

func TestDemographics(t *testing.T) {
	acts := []schema.ContributorActivity{
		{ID: "1", First: day(2013, 12, 1), Last: day(2013, 12, 2)},
		{ID: "2", First: day(2012, 11, 1), Last: day(2013, 5, 1)},
		{ID: "3", First: day(2010, 1, 1), Last: day(2012, 1, 1)},
	}
	w := schema.TimeWindow{Start: day(2013, 1, 1), End: day(2014, 1, 1)}
	res := Demographics(acts, w)

	assert.Equal(t, AgeBucketDays, res.BucketDays)
	assert.Equal(t, []schema.AgeBucket{
		{FromDays: 0, ToDays: 181, Count: 1},
		{FromDays: 181, ToDays: 362, Count: 0},
		{FromDays: 362, ToDays: 543, Count: 1},
	}, res.Buckets)
}

func TestDemographicsFromDatabase(t *testing.T) {
	a := newTestAnalyzer(t)
	res, err := a.Demographics(context.Background(), schema.SCM, schema.Filter{}, fixture.Window)
	require.NoError(t, err)

	assert.Equal(t, []schema.AgeBucket{
		{FromDays: 0, ToDays: 181, Count: 0},
		{FromDays: 181, ToDays: 362, Count: 2},
		{FromDays: 362, ToDays: 543, Count: 1},
	}, res.Buckets)
}
