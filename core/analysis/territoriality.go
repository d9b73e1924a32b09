package analysis

import (
	"context"
	"fmt"

	"github.com/VizGrimoire/GrimoireLib-sub002/core/query"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

type fileAuthorsRow struct {
	File    string  `db:"group_key"`
	Authors float64 `db:"metric_value"`
}

// Territoriality counts files touched by exactly one author, given the
// number of distinct authors of every file.
func Territoriality(authorsPerFile []int) schema.TerritorialityResult {
	var res schema.TerritorialityResult
	for _, n := range authorsPerFile {
		if n <= 0 {
			continue
		}
		res.TotalFiles++
		if n == 1 {
			res.TerritorialFiles++
		}
	}
	res.Percentage = percent(float64(res.TerritorialFiles), float64(res.TotalFiles))
	return res
}

// Territoriality loads the distinct authors of every file changed in the
// window from the SCM database.
func (a *Analyzer) Territoriality(ctx context.Context, filter schema.Filter, w schema.TimeWindow) (*schema.TerritorialityResult, error) {
	h, err := a.engine.Handle(schema.SCM)
	if err != nil {
		return nil, err
	}
	if err := h.Family.CheckFilter(filter); err != nil {
		return nil, err
	}
	files, err := h.Family.Metric("files")
	if err != nil {
		return nil, err
	}
	// Authors are unique identities, not miner person ids.
	byAuthor := files.Clone()
	byAuthor.Identity = true
	q, err := h.Builder.Select(byAuthor, filter, w,
		[]string{"a.file_id AS " + query.GroupCol, "COUNT(DISTINCT pup.upeople_id) AS " + query.ValueCol},
		"a.file_id",
	)
	if err != nil {
		return nil, err
	}
	var rows []fileAuthorsRow
	if err := h.Select(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("territoriality: %w", err)
	}

	authors := make([]int, len(rows))
	for i, r := range rows {
		authors[i] = int(r.Authors)
	}
	res := Territoriality(authors)
	res.Window = w
	return &res, nil
}
