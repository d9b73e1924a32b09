package outwriter

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// topView ranks entries of one or more top lists, one block per window.
func topView(lists []schema.TopList, cfg *contract.Config, fmtFloat func(float64) string) view {
	nameWidth := GetMaxNameWidth(cfg, 4)
	v := view{headers: []string{"Window", "Rank", "ID", "Name", "Value"}}
	for _, l := range lists {
		label := l.Label
		if label == "" {
			label = "all"
		}
		for i, e := range l.Entries {
			row := []string{label, strconv.Itoa(i + 1), e.ID, contract.TruncateText(e.Name, nameWidth), fmtFloat(e.Value)}
			csvRow := []string{label, strconv.Itoa(i + 1), e.ID, e.Name, fmtFloat(e.Value)}
			v.rows = append(v.rows, row)
			v.csvRows = append(v.csvRows, csvRow)
		}
	}
	if len(lists) > 0 {
		v.footer = []string{fmt.Sprintf("Top %s by %s", lists[0].Family, lists[0].Metric)}
	}
	return v
}

// writeTop writes top lists.
func writeTop(w io.Writer, lists []schema.TopList, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)
	return render(w, cfg.Output, lists, topView(lists, cfg, fmtFloat))
}

// itemsJSON is the JSON form of a filter item list.
type itemsJSON struct {
	Family schema.DataSource `json:"family"`
	Kind   schema.FilterKind `json:"kind"`
	Items  []schema.Item     `json:"items"`
}

// itemsView lists filter items by activity.
func itemsView(items []schema.Item, fmtFloat func(float64) string) view {
	withIDs := slices.ContainsFunc(items, func(it schema.Item) bool { return it.ID != "" })
	v := view{headers: []string{"Rank", "Name", "Value"}}
	if withIDs {
		v.headers = []string{"Rank", "ID", "Name", "Value"}
	}
	for i, it := range items {
		row := []string{strconv.Itoa(i + 1), it.Name, fmtFloat(it.Value)}
		if withIDs {
			row = []string{strconv.Itoa(i + 1), it.ID, it.Name, fmtFloat(it.Value)}
		}
		v.rows = append(v.rows, row)
	}
	return v
}

// writeItems writes the items of a filter kind.
func writeItems(w io.Writer, ds schema.DataSource, kind schema.FilterKind, items []schema.Item, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)
	return render(w, cfg.Output, itemsJSON{Family: ds, Kind: kind, Items: items}, itemsView(items, fmtFloat))
}
