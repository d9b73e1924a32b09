package analysis

import (
	"cmp"
	"context"
	"slices"

	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// AgeBucketDays is the width of a demographics bucket.
const AgeBucketDays = 181

// Newcomers splits contributors into those whose first activity falls in the
// last days before the window end, and those whose last activity is before
// that cutoff but still inside the window. Both lists are most recent first
// and capped at limit, unless limit is zero.
func Newcomers(acts []schema.ContributorActivity, w schema.TimeWindow, days, limit int) schema.NewcomersResult {
	cutoff := w.End.AddDate(0, 0, -days)
	res := schema.NewcomersResult{
		Days:      days,
		Newcomers: []schema.ContributorActivity{},
		Gone:      []schema.ContributorActivity{},
	}
	for _, a := range acts {
		if !a.First.Before(cutoff) && a.First.Before(w.End) {
			res.Newcomers = append(res.Newcomers, a)
		}
		if a.Last.Before(cutoff) && !a.Last.Before(w.Start) {
			res.Gone = append(res.Gone, a)
		}
	}

	slices.SortFunc(res.Newcomers, func(a, b schema.ContributorActivity) int {
		if c := b.First.Compare(a.First); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	slices.SortFunc(res.Gone, func(a, b schema.ContributorActivity) int {
		if c := b.Last.Compare(a.Last); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 {
		res.Newcomers = res.Newcomers[:min(limit, len(res.Newcomers))]
		res.Gone = res.Gone[:min(limit, len(res.Gone))]
	}
	return res
}

// Demographics builds a seniority histogram of the people active inside the
// window. Seniority is the number of whole days between the first activity
// and the window end.
func Demographics(acts []schema.ContributorActivity, w schema.TimeWindow) schema.DemographicsResult {
	res := schema.DemographicsResult{BucketDays: AgeBucketDays, Buckets: []schema.AgeBucket{}}
	var counts []int
	for _, a := range acts {
		if a.Last.Before(w.Start) || !a.First.Before(w.End) {
			continue
		}
		age := int(w.End.Sub(a.First).Hours() / 24)
		i := age / AgeBucketDays
		for len(counts) <= i {
			counts = append(counts, 0)
		}
		counts[i]++
	}
	for i, n := range counts {
		res.Buckets = append(res.Buckets, schema.AgeBucket{
			FromDays: i * AgeBucketDays,
			ToDays:   (i + 1) * AgeBucketDays,
			Count:    n,
		})
	}
	return res
}

// activity loads the whole history of people up to the window end.
func (a *Analyzer) activity(ctx context.Context, ds schema.DataSource, filter schema.Filter, w schema.TimeWindow) ([]schema.ContributorActivity, error) {
	return a.engine.Activity(ctx, ds, filter, schema.TimeWindow{End: w.End})
}

// Newcomers lists the people who joined or left a family in the last days of the window.
func (a *Analyzer) Newcomers(ctx context.Context, ds schema.DataSource, filter schema.Filter, w schema.TimeWindow, days, limit int) (*schema.NewcomersResult, error) {
	acts, err := a.activity(ctx, ds, filter, w)
	if err != nil {
		return nil, err
	}
	res := Newcomers(acts, w, days, limit)
	res.Family = ds
	return &res, nil
}

// Demographics builds the seniority histogram of a family's active people.
func (a *Analyzer) Demographics(ctx context.Context, ds schema.DataSource, filter schema.Filter, w schema.TimeWindow) (*schema.DemographicsResult, error) {
	acts, err := a.activity(ctx, ds, filter, w)
	if err != nil {
		return nil, err
	}
	res := Demographics(acts, w)
	res.Family = ds
	return &res, nil
}
