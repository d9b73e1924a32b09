package cmd

import (
	"github.com/VizGrimoire/GrimoireLib-sub002/core"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// onionCmd classifies contributors into core, regular and occasional bands.
var onionCmd = &cobra.Command{
	Use:   "onion [family]",
	Short: "Split contributors into core, regular and occasional bands",
	Long: `Rank contributors by activity and split them into the onion model:

- core:       the smallest group producing 80% of the activity
- regular:    the next group up to 95% of the activity
- occasional: everybody else

The family defaults to scm. Use --series to compute the bands per --period.

Examples:
  # Onion of the whole SCM window
  grimoire onion

  # Monthly onion of the mailing lists
  grimoire onion mls --series --period month`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		ds, err := familyArg(args, 0, schema.SCM)
		if err != nil {
			contract.LogFatal("Invalid family", err)
		}
		if viper.GetBool("series") {
			res, err := core.GetOnionSeriesResults(rootCtx, cfg, cacheManager, ds)
			if err := core.ExecuteAnalysis(res, err, cfg); err != nil {
				contract.LogFatal("Cannot compute onion series", err)
			}
			return
		}
		res, err := core.GetOnionResults(rootCtx, cfg, cacheManager, ds)
		if err := core.ExecuteAnalysis(res, err, cfg); err != nil {
			contract.LogFatal("Cannot compute onion", err)
		}
	},
}

// territorialityCmd measures files owned by a single author.
var territorialityCmd = &cobra.Command{
	Use:   "territoriality",
	Short: "Share of files touched by only one author",
	Long: `Count the files changed in the window and how many of them were touched by
exactly one author. A high percentage means knowledge is siloed.

Examples:
  # Territoriality of the last two years
  grimoire territoriality

  # For one repository
  grimoire territoriality --filter repository:git`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		res, err := core.GetTerritorialityResults(rootCtx, cfg, cacheManager)
		if err := core.ExecuteAnalysis(res, err, cfg); err != nil {
			contract.LogFatal("Cannot compute territoriality", err)
		}
	},
}

// backlogCmd replays ticket states at every period end.
var backlogCmd = &cobra.Command{
	Use:   "backlog [its|scr]",
	Short: "Number of tickets in each state at the end of every period",
	Long: `Replay every status change to count the tickets in each state at the end
of every --period. Pending tickets are those outside --closed-states.

The family defaults to its.

Examples:
  # Monthly backlog
  grimoire backlog

  # Weekly review backlog
  grimoire backlog scr --period week`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		ds, err := familyArg(args, 0, schema.ITS)
		if err != nil {
			contract.LogFatal("Invalid family", err)
		}
		res, err := core.GetBacklogResults(rootCtx, cfg, cacheManager, ds)
		if err := core.ExecuteAnalysis(res, err, cfg); err != nil {
			contract.LogFatal("Cannot compute backlog", err)
		}
	},
}

// ttcCmd summarizes time to close.
var ttcCmd = &cobra.Command{
	Use:     "ttc <its|scr>",
	Aliases: []string{"time-to-close"},
	Short:   "How long tickets or reviews stay open before closing",
	Long: `Summarize the days between submission and first close of every ticket closed
in the window: mean, median and quartiles, plus the median per --period.

For scr the closing event is the merge.

Examples:
  # Issue tracker time to close
  grimoire ttc its

  # Time to merge, yearly
  grimoire ttc scr --period year`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		ds, err := familyArg(args, 0, "")
		if err != nil {
			contract.LogFatal("Invalid family", err)
		}
		res, err := core.GetTimeToCloseResults(rootCtx, cfg, cacheManager, ds)
		if err := core.ExecuteAnalysis(res, err, cfg); err != nil {
			contract.LogFatal("Cannot compute time to close", err)
		}
	},
}

// newcomersCmd lists people who joined or left.
var newcomersCmd = &cobra.Command{
	Use:   "newcomers <family>",
	Short: "People who joined or left in the last days of the window",
	Long: `List contributors whose first activity falls in the last --days of the
window (newcomers), and those whose last activity is older than that (gone).

Examples:
  # Newcomers in the last 180 days
  grimoire newcomers scm

  # Mailing list newcomers in the last 90 days
  grimoire newcomers mls --days 90`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		ds, err := familyArg(args, 0, "")
		if err != nil {
			contract.LogFatal("Invalid family", err)
		}
		res, err := core.GetNewcomersResults(rootCtx, cfg, cacheManager, ds)
		if err := core.ExecuteAnalysis(res, err, cfg); err != nil {
			contract.LogFatal("Cannot compute newcomers", err)
		}
	},
}

// demographicsCmd builds the seniority histogram.
var demographicsCmd = &cobra.Command{
	Use:   "demographics <family>",
	Short: "Seniority histogram of the active contributors",
	Long: `Group the people active in the window by how long ago they first
contributed, in buckets of about half a year.

Examples:
  # SCM demographics
  grimoire demographics scm --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		ds, err := familyArg(args, 0, "")
		if err != nil {
			contract.LogFatal("Invalid family", err)
		}
		res, err := core.GetDemographicsResults(rootCtx, cfg, cacheManager, ds)
		if err := core.ExecuteAnalysis(res, err, cfg); err != nil {
			contract.LogFatal("Cannot compute demographics", err)
		}
	},
}
