package cmd

import (
	"fmt"
	"strings"

	"github.com/VizGrimoire/GrimoireLib-sub002/core"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/spf13/cobra"
)

// familyArg parses the data source family at position i, or returns def when absent.
func familyArg(args []string, i int, def schema.DataSource) (schema.DataSource, error) {
	if len(args) <= i {
		if def == "" {
			return "", fmt.Errorf("a family is required: %s", familyNames())
		}
		return def, nil
	}
	return schema.ParseDataSource(args[i])
}

func familyNames() string {
	names := make([]string, len(schema.AllDataSources))
	for i, ds := range schema.AllDataSources {
		names[i] = string(ds)
	}
	return strings.Join(names, ", ")
}

// aggCmd computes aggregate metrics of one family.
var aggCmd = &cobra.Command{
	Use:   "agg <family> [metrics...]",
	Short: "Aggregate metric values of a family over the window",
	Long: `Compute the total value of family metrics between --start and --end.

Without metric IDs every aggregate metric of the family is computed. The
trend windows from --trend-days are reported alongside (value over the
last N days, the previous N days, and the relative change).

Examples:
  # All SCM metrics for the last two years
  grimoire agg scm --scm-db "user:pass@tcp(localhost:3306)/cvsanaly"

  # Commits and authors of one repository
  grimoire agg scm commits authors --filter repository:linux

  # Opened and closed tickets in 2013 as JSON
  grimoire agg its opened closed --start 2013-01-01 --end 2014-01-01 --output json`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		ds, err := familyArg(args, 0, "")
		if err != nil {
			contract.LogFatal("Invalid family", err)
		}
		if err := core.ExecuteAggregate(rootCtx, cfg, cacheManager, ds, args[1:]); err != nil {
			contract.LogFatal("Cannot aggregate metrics", err)
		}
	},
}

// tsCmd computes evolutionary series of one family.
var tsCmd = &cobra.Command{
	Use:     "ts <family> [metrics...]",
	Aliases: []string{"timeseries"},
	Short:   "Metric values of a family per period",
	Long: `Compute metric values for every --period (day, week, month, year) of the window.

Periods with no activity are reported as zero so every series has the same
length.

Examples:
  # Monthly commits and authors
  grimoire ts scm commits authors

  # Weekly mailing list activity for one list, written to Parquet
  grimoire ts mls sent senders --period week --filter repository:dev --output parquet --output-file mls.parquet`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		ds, err := familyArg(args, 0, "")
		if err != nil {
			contract.LogFatal("Invalid family", err)
		}
		if err := core.ExecuteSeries(rootCtx, cfg, cacheManager, ds, args[1:]); err != nil {
			contract.LogFatal("Cannot compute series", err)
		}
	},
}

// topCmd ranks the most active people or items.
var topCmd = &cobra.Command{
	Use:   "top <family> [metric]",
	Short: "Rank the most active contributors of a family",
	Long: `Rank contributors by a metric over the whole window and the last month and year.

The default ranking metric is the family's first people metric (authors
for scm, closers for its, senders for mls).

Examples:
  # Top authors
  grimoire top scm

  # Top ticket openers, 20 entries
  grimoire top its openers --limit 20`,
	Args:    cobra.RangeArgs(1, 2),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		ds, err := familyArg(args, 0, "")
		if err != nil {
			contract.LogFatal("Invalid family", err)
		}
		metric := ""
		if len(args) > 1 {
			metric = args[1]
		}
		if err := core.ExecuteTop(rootCtx, cfg, cacheManager, ds, metric); err != nil {
			contract.LogFatal("Cannot rank contributors", err)
		}
	},
}

// itemsCmd lists the values of one filter kind.
var itemsCmd = &cobra.Command{
	Use:   "items <family> <kind>",
	Short: "List repositories, companies, countries, domains or people of a family",
	Long: `List every value of a filter kind that has activity in the window,
most active first.

Examples:
  # Repositories by commits
  grimoire items scm repository

  # Companies contributing to the issue tracker
  grimoire items its company --identities-db cp_sortinghat`,
	Args:    cobra.ExactArgs(2),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		ds, err := familyArg(args, 0, "")
		if err != nil {
			contract.LogFatal("Invalid family", err)
		}
		kind := schema.FilterKind(strings.ToLower(args[1]))
		if _, ok := schema.ValidFilterKinds[kind]; !ok {
			contract.LogFatal("Invalid item kind", fmt.Errorf("%q is not one of repository, company, country, domain, people", args[1]))
		}
		if err := core.ExecuteItems(rootCtx, cfg, cacheManager, ds, kind); err != nil {
			contract.LogFatal("Cannot list items", err)
		}
	},
}

// metricsCmd lists the metric catalogue.
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display the definitions of all family metrics",
	Long: `Show every metric ID with its family, name and description.

No database is queried, so families do not need to be configured.

Examples:
  # Show all metrics
  grimoire metrics

  # As CSV
  grimoire metrics --output csv`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteMetrics(rootCtx, cfg); err != nil {
			contract.LogFatal("Cannot display metrics", err)
		}
	},
}
