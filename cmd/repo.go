package cmd

import (
	"fmt"
	"strings"

	"github.com/huangsam/repostats/core"
	"github.com/huangsam/repostats/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// fetchCmd updates the cached snapshot of a repository.
var fetchCmd = &cobra.Command{
	Use:   "fetch [owner/repo]",
	Short: "Download issues, pull requests and comments into the cache.",
	Long: `Fetch the repository overview from GitHub and merge it into the cached snapshot.

Only tickets that are new or changed since the last pass get their details
(comments, review comments, merge status) downloaded again. Tickets whose
details could not be downloaded stay outdated and are retried on the next run.

The command exits non-zero while any ticket is outdated, so it can be repeated
until the snapshot is complete. Use --offline to only re-preprocess the cache.

Examples:
  # Fetch a repository, token read from GH_API_TOKEN
  repostats fetch octo/widgets

  # Repeat until complete, then record Prometheus metrics
  repostats fetch octo/widgets --metrics-file fetch.prom

  # Recompute the projections without network access
  repostats fetch octo/widgets --offline`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE:    runExecutor(core.ExecuteFetch),
}

// analyzeCmd renders the reports of a cached snapshot.
var analyzeCmd = &cobra.Command{
	Use:   "analyze [owner/repo]",
	Short: "Summarize user activity from the cached snapshot.",
	Long: `Build the users summary and the comment timelines from the cached snapshot.

The users summary counts, per user, the opened, merged and commented pull
requests and issues within the time window. The first selected column is the
sort key and --min-contribution filters the displayed rows on it. The full
table is always written to the report file.

Comment timelines bucket the comments of every user by day (D), week (W),
month (M) or year (Y), optionally restricted to issues or pull requests.

Examples:
  # Summary of the last year
  repostats analyze octo/widgets --start "1 year ago"

  # Sort by merged pull requests and hide occasional contributors
  repostats analyze octo/widgets --users-summary "merged PRs,opened PRs" --min-contribution 5

  # Monthly and weekly comment timelines on pull requests only
  repostats analyze octo/widgets --user-comments M,W,pr --output csv`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE:    runExecutor(core.ExecuteAnalyze),
}

// infoCmd prints the cached state of a repository.
var infoCmd = &cobra.Command{
	Use:   "info [owner/repo]",
	Short: "Show what the cache knows about a repository.",
	Long: `Print the cached repository info and ticket counts.

Shows stars, forks and open issues as of the last fetch, the snapshot version,
the number of issues and pull requests per state and how many tickets are
still outdated.`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE:    runExecutor(core.ExecuteInfo),
}

// dependentsCmd scrapes the "Used by" listing of a repository.
var dependentsCmd = &cobra.Command{
	Use:   "dependents [owner/repo]",
	Short: "List the repositories depending on a repository.",
	Long: `Scrape the dependents listing from the GitHub web pages, sorted by stars.

The listing has no API, so pages are read one at a time and retried when
GitHub answers with an unexpected page.

Examples:
  # Repositories depending on octo/widgets
  repostats dependents octo/widgets

  # Packages instead of repositories, exported to JSON
  repostats dependents octo/widgets --scope PACKAGE --output json`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		scope, err := parseScope(viper.GetString("scope"))
		if err != nil {
			return err
		}
		return core.ExecuteDependents(rootCtx, cfg, scope)
	},
}

// runExecutor adapts a core executor to a cobra RunE function.
func runExecutor(execute core.ExecutorFunc) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, _ []string) error {
		return execute(rootCtx, cfg)
	}
}

func parseScope(s string) (schema.DependentScope, error) {
	scope := schema.DependentScope(strings.ToUpper(strings.TrimSpace(s)))
	switch scope {
	case "":
		return schema.RepositoryDependents, nil
	case schema.RepositoryDependents, schema.PackageDependents:
		return scope, nil
	default:
		return "", fmt.Errorf("invalid scope '%s'. must be REPOSITORY or PACKAGE", s)
	}
}
