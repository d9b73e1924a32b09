package outwriter

import (
	"fmt"
	"io"
	"slices"

	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// summaryView shows the outcome of every family in a report run.
func summaryView(s *schema.ReportSummary, cfg *contract.Config) view {
	v := view{headers: []string{"Family", "Status", "Detail"}}
	ok := contract.InfoColor.Sprint("ok")
	failed := contract.CoreColor.Sprint("failed")
	if !cfg.UseColors {
		ok, failed = "ok", "failed"
	}
	for _, ds := range s.Succeeded {
		v.rows = append(v.rows, []string{string(ds), ok, ""})
		v.csvRows = append(v.csvRows, []string{string(ds), "ok", ""})
	}
	failedFamilies := make([]schema.DataSource, 0, len(s.Failed))
	for ds := range s.Failed {
		failedFamilies = append(failedFamilies, ds)
	}
	slices.Sort(failedFamilies)
	for _, ds := range failedFamilies {
		v.rows = append(v.rows, []string{string(ds), failed, s.Failed[ds]})
		v.csvRows = append(v.csvRows, []string{string(ds), "failed", s.Failed[ds]})
	}
	v.footer = []string{fmt.Sprintf("Wrote %d files to %s in %v (run %d)", len(s.Files), s.OutputDir, s.Duration, s.RunID)}
	return v
}

// writeSummary writes the summary of a report run.
func writeSummary(w io.Writer, s *schema.ReportSummary, cfg *contract.Config) error {
	return render(w, cfg.Output, s, summaryView(s, cfg))
}
