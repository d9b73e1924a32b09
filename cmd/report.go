package cmd

import (
	"github.com/VizGrimoire/GrimoireLib-sub002/core"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/spf13/cobra"
)

// reportCmd writes the dashboard JSON files of every enabled family.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the dashboard JSON files for every enabled family",
	Long: `Compute the full dashboard of every family with a configured database and
write it as JSON files into --output-dir.

For each family the report writes:
- <family>-evolutionary.json and <family>-static.json (global metrics)
- <family>-top.json (rankings for the window, last month and last year)
- <family>-<kind>s.json plus per-item files for every kind in --items
- analysis files (onion, territoriality, backlog, time to close, newcomers, demographics)

Families run concurrently up to --workers. A failing family is reported in
the summary without stopping the others. When --history-backend is set,
every run and its aggregate values are recorded for later export.

Examples:
  # Dashboard of SCM and ITS
  grimoire report --scm-db "user:pass@tcp(db:3306)/cvsanaly" --its-db "user:pass@tcp(db:3306)/bicho"

  # Weekly dashboard with repository and company items
  grimoire report --period week --items repository,company --output-dir dashboard/data/json

  # Keep history in SQLite
  grimoire report --history-backend sqlite`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteReport(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot write report", err)
		}
	},
}
