package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/internal/iocache"
	"github.com/huangsam/repostats/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// backendFromViper reads a backend selection with its connection string.
// An empty selection falls back to the given default.
func backendFromViper(backendKey, connKey string, fallback schema.DatabaseBackend) (schema.DatabaseBackend, string, error) {
	backend := schema.DatabaseBackend(strings.ToLower(viper.GetString(backendKey)))
	if backend == "" {
		backend = fallback
	}
	connStr := viper.GetString(connKey)
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// cacheSetup loads minimal configuration needed for cache operations.
// This is used by commands that need cache access without full shared setup.
func cacheSetup() error {
	if err := readConfigFile(); err != nil {
		return err
	}
	backend, connStr, err := backendFromViper("cache-backend", "cache-db-connect", schema.JSONBackend)
	if err != nil {
		return err
	}
	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr
	cfg.CacheDir = viper.GetString("cache-dir")

	// Only the snapshot cache is opened, run history stays disabled
	opts := iocache.StoreOptions{
		CacheBackend:   cfg.CacheBackend,
		CacheDir:       cfg.CacheDir,
		CacheDBConnect: cfg.CacheDBConnect,
		RunsBackend:    schema.NoneBackend,
	}
	if err := iocache.InitStores(opts); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	return nil
}

// cacheSetupWrapper wraps cacheSetup to provide PreRunE for cache commands.
func cacheSetupWrapper(_ *cobra.Command, _ []string) error {
	return cacheSetup()
}

// cacheMigrateSetup resolves the cache backend without opening it, so that
// migrations can run against a fresh database.
func cacheMigrateSetup(_ *cobra.Command, _ []string) error {
	if err := readConfigFile(); err != nil {
		return err
	}
	backend, connStr, err := backendFromViper("cache-backend", "cache-db-connect", schema.JSONBackend)
	if err != nil {
		return err
	}
	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr
	return nil
}

// cacheCmd focused on snapshot cache management.
//
// Note: Cache subcommands use minimal initialization (cacheSetup) instead of
// the full sharedSetup. No repository is needed for them.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the snapshot cache",
	Long: `Manage the cached repository snapshots written by fetch.

Every repository has one snapshot holding its tickets, their details and the
preprocessed projections. analyze, info and the MCP tools read it offline.

Supported backends: JSON files (default), SQLite, MySQL, PostgreSQL, Redis, or None

Subcommands:
  status  - Show cache statistics and connection info
  clear   - Remove all cached snapshots
  migrate - Run database schema migrations

Examples:
  # Check cache status
  repostats cache status

  # Clear the Redis cache
  REPOSTATS_CACHE_BACKEND=redis REPOSTATS_CACHE_DB_CONNECT="redis://localhost:6379/0" repostats cache clear`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached snapshots",
	Long: `Delete every cached snapshot from the configured backend.

The next fetch downloads every ticket again.

For JSON: Deletes the dump files in the cache directory
For SQLite/MySQL/PostgreSQL: Deletes the rows of the snapshot table
For Redis: Deletes the snapshot keys`,
	PreRunE: cacheSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := iocache.Manager.GetSnapshotStore().Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Println("Cache cleared successfully.")
		return nil
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show detailed information about the snapshot cache.

Displays:
- Backend type and connection status
- Total number of cached snapshots
- Last and oldest entry timestamps
- Size of the stored snapshots`,
	PreRunE: cacheSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		status, err := iocache.Manager.GetSnapshotStore().GetStatus()
		if err != nil {
			return fmt.Errorf("failed to get cache status: %w", err)
		}
		iocache.PrintCacheStatus(os.Stdout, status)
		return nil
	},
}

// cacheMigrateCmd runs database migrations for the snapshot table.
var cacheMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run snapshot table migrations (upgrades/downgrades)",
	Long: `Manage the schema version of the snapshot table on SQL backends.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  repostats cache migrate --cache-backend sqlite

  # Rollback to initial state
  repostats cache migrate --cache-backend sqlite --target-version 0`,
	PreRunE: cacheMigrateSetup,
	RunE: func(cmd *cobra.Command, _ []string) error {
		target, err := cmd.Flags().GetInt("target-version")
		if err != nil {
			return err
		}
		result, err := iocache.Migrate(iocache.CacheMigrations, cfg.CacheBackend, cfg.CacheDBConnect, target)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		fmt.Println(result.String())
		return nil
	},
}
