package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/repostats/internal/iocache"
	"github.com/huangsam/repostats/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runsSetup loads minimal configuration needed for run history operations.
func runsSetup(_ *cobra.Command, _ []string) error {
	if err := readConfigFile(); err != nil {
		return err
	}
	backend, connStr, err := backendFromViper("runs-backend", "runs-db-connect", schema.NoneBackend)
	if err != nil {
		return err
	}
	cfg.RunsBackend = backend
	cfg.RunsDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")

	// Initialize stores with the loaded config (no snapshot cache for runs commands)
	opts := iocache.StoreOptions{
		CacheBackend:  schema.NoneBackend,
		RunsBackend:   cfg.RunsBackend,
		RunsDBConnect: cfg.RunsDBConnect,
	}
	if err := iocache.InitStores(opts); err != nil {
		return fmt.Errorf("failed to initialize run history: %w", err)
	}
	return nil
}

// runsMigrateSetup is a specialized setup that does NOT initialize stores or
// create tables, allowing migrations to run on a fresh database.
func runsMigrateSetup(_ *cobra.Command, _ []string) error {
	if err := readConfigFile(); err != nil {
		return err
	}
	backend, connStr, err := backendFromViper("runs-backend", "runs-db-connect", schema.NoneBackend)
	if err != nil {
		return err
	}
	cfg.RunsBackend = backend
	cfg.RunsDBConnect = connStr
	return nil
}

// runsCmd focused on fetch run history management.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage the history of fetch runs",
	Long: `Manage the fetch run history used to follow how complete the cache is.

When enabled, every fetch pass records its start and end time together with
the number of queued, fetched, failed and outdated tickets and whether the
request budget ran out.

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, default)

Subcommands:
  status  - Show run history statistics
  list    - Print the most recent runs
  export  - Export the runs to Parquet for analytics
  clear   - Remove all recorded runs
  migrate - Run database schema migrations

Examples:
  # Record runs in SQLite
  repostats fetch octo/widgets --runs-backend sqlite

  # Show the last runs
  repostats runs list --runs-backend sqlite`,
}

// runsStatusCmd shows run history status.
var runsStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display run history statistics and connection details",
	PreRunE: runsSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		status, err := iocache.Manager.GetRunStore().GetStatus()
		if err != nil {
			return fmt.Errorf("failed to get run history status: %w", err)
		}
		iocache.PrintRunStatus(os.Stdout, status)
		return nil
	},
}

// runsListCmd prints the latest runs.
var runsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "Print the most recent fetch runs",
	PreRunE: runsSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		runs, err := iocache.Manager.GetRunStore().ListRuns(viper.GetInt("limit"))
		if err != nil {
			return fmt.Errorf("failed to list fetch runs: %w", err)
		}
		iocache.PrintRuns(os.Stdout, runs)
		return nil
	},
}

// runsClearCmd clears the run history.
var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded fetch runs",
	Long: `Delete every recorded fetch run.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  # Export before clearing
  repostats runs export --output-file backup.parquet
  repostats runs clear`,
	PreRunE: runsSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := iocache.Manager.GetRunStore().Clear(); err != nil {
			return fmt.Errorf("failed to clear run history: %w", err)
		}
		fmt.Println("Run history cleared successfully.")
		return nil
	},
}

// runsExportCmd exports the run history to a Parquet file.
var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the run history to Parquet for BI tools and analytics",
	Long: `Export all recorded fetch runs to Parquet format.

Requires: --output-file parameter

Examples:
  # Export all runs
  repostats runs export --output-file runs.parquet

  # Use with DuckDB for analysis
  duckdb -c "SELECT repo, max(fetched) FROM read_parquet('runs.parquet') GROUP BY repo"`,
	PreRunE: runsSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		_, err := iocache.ExportRuns(os.Stdout, iocache.Manager.GetRunStore(), cfg.OutputFile)
		return err
	},
}

// runsMigrateCmd runs database migrations for the run history.
var runsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run fetch run table migrations (upgrades/downgrades)",
	Long: `Manage the schema version of the fetch run table.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  repostats runs migrate --runs-backend postgresql --runs-db-connect "host=localhost dbname=repostats"

  # Rollback to initial state
  repostats runs migrate --runs-backend sqlite --target-version 0`,
	PreRunE: runsMigrateSetup,
	RunE: func(cmd *cobra.Command, _ []string) error {
		target, err := cmd.Flags().GetInt("target-version")
		if err != nil {
			return err
		}
		result, err := iocache.Migrate(iocache.RunsMigrations, cfg.RunsBackend, cfg.RunsDBConnect, target)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		fmt.Println(result.String())
		return nil
	},
}
