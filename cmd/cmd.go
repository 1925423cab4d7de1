// Package cmd defines the command-line interface for repostats.
package cmd

import (
	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(dependentsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheMigrateCmd)

	// Add the runs subcommands to the parent runs command
	runsCmd.AddCommand(runsStatusCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsClearCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("repo", "", "Repository as <owner>/<name> (defaults to the origin remote)")
	rootCmd.PersistentFlags().String("host", contract.DefaultHost, "Hosting provider: github")
	rootCmd.PersistentFlags().String("token", "", "API token, "+contract.TokenEnvFallback+" is used when empty")
	rootCmd.PersistentFlags().String("api-base-url", "", "GitHub Enterprise API base URL")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent detail fetches")
	rootCmd.PersistentFlags().String("request-timeout", contract.DefaultRequestTimeout.String(), "Timeout of every request")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-dir", "", "Directory of the report files (defaults to cache-dir)")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.JSONBackend), "Cache backend: json or sqlite or mysql or postgresql or redis or none")
	rootCmd.PersistentFlags().String("cache-dir", ".", "Directory of the JSON snapshots")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Connection string for mysql/postgresql/redis (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("runs-backend", "", "Fetch run history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("runs-db-connect", "", "Connection string for the run history (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of fetchCmd to Viper
	fetchCmd.Flags().Bool("offline", false, "Skip the network and only re-preprocess the cached snapshot")
	fetchCmd.Flags().String("metrics-file", "", "Write Prometheus textfile metrics of the run to this path")
	if err := viper.BindPFlags(fetchCmd.Flags()); err != nil {
		contract.LogFatal("Error binding fetch flags", err)
	}

	// Bind all flags of analyzeCmd to Viper
	analyzeCmd.Flags().String("start", "", "Start date in ISO8601 or time ago")
	analyzeCmd.Flags().String("end", "", "End date in ISO8601 or time ago")
	analyzeCmd.Flags().Int("min-contribution", contract.DefaultMinContribution, "Minimum count on the sort column to be displayed")
	analyzeCmd.Flags().StringSlice("users-summary", nil, "Summary columns, the first one is the sort key")
	analyzeCmd.Flags().StringSlice("user-comments", nil, "Timeline frequencies (D,W,M,Y) and ticket types (issue,pr,all)")
	if err := viper.BindPFlags(analyzeCmd.Flags()); err != nil {
		contract.LogFatal("Error binding analyze flags", err)
	}

	// Bind all flags of dependentsCmd to Viper
	dependentsCmd.Flags().String("scope", string(schema.RepositoryDependents), "Dependents listing: REPOSITORY or PACKAGE")
	if err := viper.BindPFlags(dependentsCmd.Flags()); err != nil {
		contract.LogFatal("Error binding dependents flags", err)
	}

	// Bind all flags of runsListCmd to Viper
	runsListCmd.Flags().Int("limit", contract.DefaultRunHistoryLimit, "Number of runs to print (0 = all)")
	if err := viper.BindPFlags(runsListCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs list flags", err)
	}

	// target-version is read through cmd.Flags(), not viper
	cacheMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	runsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
}
