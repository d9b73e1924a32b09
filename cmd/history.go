package cmd

import (
	"fmt"
	"os"

	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/iocache"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyBackend reads the history backend settings, treating an empty backend as none.
func historyBackend() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}
	backend := schema.DatabaseBackend(viper.GetString("history-backend"))
	if backend == "" {
		backend = schema.NoneBackend
	}
	connStr := viper.GetString("history-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// historySetup loads minimal configuration needed for history operations.
func historySetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := historyBackend()
	if err != nil {
		return err
	}

	// No query caching for history commands
	if err := iocache.InitCaching("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// historyMigrateSetup does NOT open the store, so migrations can run on a fresh database.
func historyMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := historyBackend()
	if err != nil {
		return err
	}
	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	return nil
}

// historyCmd focused on report history management.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the history of report runs and exports",
	Long: `Manage the report history used for longitudinal tracking.

When --history-backend is set, every 'grimoire report' run stores:
- Run metadata (timestamps, families, window, configuration)
- Aggregate metric values per family, globally and per item

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show history statistics
  export  - Export data to Parquet for analytics
  clear   - Remove all history
  migrate - Run database schema migrations

Examples:
  # Check history status
  grimoire history status --history-backend sqlite

  # Export for analysis in pandas/DuckDB
  grimoire history export --history-backend sqlite --output-file grimoire-history`,
}

// historyClearCmd clears the history.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all report history",
	Long: `Delete all stored report runs and metric values.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  # Export before clearing
  grimoire history export --output-file backup
  grimoire history clear`,
	PreRunE: historyMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearHistory(cfg.HistoryBackend, sqlitePath(cfg.HistoryDBConnect, iocache.GetHistoryDBFilePath()), cfg.HistoryDBConnect); err != nil {
			contract.LogFatal("Failed to clear history", err)
		}
		fmt.Println("History cleared successfully.")
	},
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display history statistics and connection details",
	Long: `Show detailed information about the report history.

Displays:
- Backend type and connection status
- Total number of runs and metric values stored
- Last and oldest run timestamps
- Database table sizes

Examples:
  # Check history status
  grimoire history status`,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iocache.Manager.GetHistoryStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get history status", err)
		}
		iocache.PrintHistoryStatus(os.Stdout, status)
	},
}

// historyExportCmd exports history to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export report history to Parquet for BI tools and analytics",
	Long: `Export all stored report history to Parquet format.

Writes two files next to --output-file:
- <output-file>.report_runs.parquet   - one row per report run
- <output-file>.metric_values.parquet - one row per recorded metric value

Requires: --output-file parameter

Examples:
  # Export all data
  grimoire history export --output-file grimoire-data

  # Query with DuckDB
  duckdb -c "SELECT family, metric, AVG(value) FROM read_parquet('grimoire-data.metric_values.parquet') GROUP BY 1, 2"`,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		files, err := iocache.ExportHistory(iocache.Manager.GetHistoryStore(), cfg.OutputFile)
		if err != nil {
			contract.LogFatal("Failed to export history", err)
		}
		for _, f := range files {
			fmt.Printf("💾 Wrote %s\n", f)
		}
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  grimoire history migrate

  # Migrate to specific version
  grimoire history migrate --target-version 2

  # Rollback everything
  grimoire history migrate --target-version 0`,
	PreRunE: historyMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
