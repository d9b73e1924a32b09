// Package cmd defines the command-line interface for grimoire.
package cmd

import (
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(aggCmd)
	rootCmd.AddCommand(tsCmd)
	rootCmd.AddCommand(topCmd)
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(onionCmd)
	rootCmd.AddCommand(territorialityCmd)
	rootCmd.AddCommand(backlogCmd)
	rootCmd.AddCommand(ttcCmd)
	rootCmd.AddCommand(newcomersCmd)
	rootCmd.AddCommand(demographicsCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	flags := rootCmd.PersistentFlags()
	flags.String("start", "", "Start date in ISO8601 or time ago (default: two years before --end)")
	flags.String("end", "", "End date in ISO8601 or time ago (default: now)")
	flags.String("period", string(schema.MonthPeriod), "Series period: day or week or month or year")
	flags.StringP("filter", "f", "", "Restrict metrics to one item, as kind:value (e.g. repository:linux)")
	flags.IntP("limit", "l", contract.DefaultResultLimit, "Number of entries in rankings and lists")
	flags.Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	flags.Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	flags.String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	flags.String("output-file", "", "Optional path to write output to")
	flags.Int("width", 0, "Terminal width override (0 = auto-detect)")
	flags.String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	flags.String("source-backend", string(schema.MySQLBackend), "Miner database backend: mysql or postgresql or sqlite")
	for _, ds := range schema.AllDataSources {
		flags.String(string(ds)+"-db", "", "Connection string of the "+string(ds)+" database (empty disables the family)")
	}
	flags.String("identities-db", "", "Schema holding the unified identities, enrollments and countries")
	flags.String("closed-states", "", "Comma-separated ticket states counted as closed (default: Closed,Resolved,Fixed)")
	flags.String("trend-days", "", "Comma-separated trend windows in days (default: 7,30,365)")
	flags.String("items", "", "Comma-separated item kinds to report: repository,company,country,domain,people")
	flags.Int("days", contract.DefaultNewcomerDays, "Newcomers window in days before --end")
	flags.String("cache-backend", string(schema.SQLiteBackend), "Cache backend: sqlite or mysql or postgresql or none")
	flags.String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	flags.String("cache-ttl", "", "How long cached query results stay valid (e.g. '12 hours', default: 24 hours)")
	flags.String("history-backend", "", "Report history backend: sqlite or mysql or postgresql or none")
	flags.String("history-db-connect", "", "Database connection string for report history (must differ from cache-db-connect)")
	flags.String("config", "", "Path to config file")
	if err := viper.BindPFlags(flags); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of reportCmd to Viper
	reportCmd.Flags().String("output-dir", "data/json", "Directory for the dashboard JSON files")
	if err := viper.BindPFlags(reportCmd.Flags()); err != nil {
		contract.LogFatal("Error binding report flags", err)
	}

	// Bind all flags of onionCmd to Viper
	onionCmd.Flags().Bool("series", false, "Compute the onion bands per period")
	if err := viper.BindPFlags(onionCmd.Flags()); err != nil {
		contract.LogFatal("Error binding onion flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
