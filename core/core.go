// Package core has core logic for fetching, preprocessing and analyzing repository activity.
package core

import (
	"context"
	"fmt"
	"os"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/internal/gitclient"
	"github.com/huangsam/repostats/internal/iocache"
	"github.com/huangsam/repostats/internal/outwriter"
	"github.com/huangsam/repostats/schema"
)

// ExecutorFunc defines the function signature for executing a repository command.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config) error

// ExecuteFetch updates the cached snapshot of the configured repository and prints a report.
// It serves as the main entry point for the 'fetch' command.
func ExecuteFetch(ctx context.Context, cfg *contract.Config) error {
	host, err := gitclient.NewGitHubFromConfig(cfg)
	if err != nil {
		return err
	}
	report, err := Fetch(ctx, cfg, host, iocache.Manager)
	if report.Location != "" {
		PrintFetchReport(os.Stdout, report, cfg)
	}
	return err
}

// ExecuteAnalyze renders the configured reports from the cached snapshot.
// It serves as the main entry point for the 'analyze' command.
func ExecuteAnalyze(ctx context.Context, cfg *contract.Config) error {
	host, err := gitclient.NewGitHubFromConfig(cfg)
	if err != nil {
		return err
	}
	return Analyze(ctx, cfg, host, iocache.Manager, outwriter.NewOutWriter())
}

// ExecuteInfo prints the cached state of the configured repository.
// It serves as the main entry point for the 'info' command.
func ExecuteInfo(_ context.Context, cfg *contract.Config) error {
	overview, err := DescribeCached(cfg, cfg.Host, iocache.Manager)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteRepoOverview(overview, cfg)
}

// ExecuteDependents scrapes the dependents of the configured repository and writes them sorted by stars.
func ExecuteDependents(ctx context.Context, cfg *contract.Config, scope schema.DependentScope) error {
	scraper := gitclient.NewDependentsScraper(cfg.RequestTimeout)
	deps, err := scraper.Fetch(ctx, cfg.Repo, scope)
	if err != nil {
		return fmt.Errorf("failed to fetch dependents of %s: %w", cfg.Repo, err)
	}
	deps = gitclient.SortDependents(deps)
	if len(deps) == 0 {
		contract.LogWarn("No data to process/show.", fmt.Errorf("no %s dependents found for %s", scope, cfg.Repo))
		return nil
	}
	_, err = outwriter.NewOutWriter().WriteDependents(deps, cfg.Repo, scope, cfg)
	return err
}
