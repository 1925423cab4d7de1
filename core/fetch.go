package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/huangsam/repostats/core/agg"
	"github.com/huangsam/repostats/core/filter"
	"github.com/huangsam/repostats/core/merge"
	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/internal/iocache"
	"github.com/huangsam/repostats/schema"
	"go.uber.org/zap"
)

// FetchReport summarizes one fetch command.
type FetchReport struct {
	Run      schema.FetchRun // counts of the update pass, zero when offline
	Location string          // where the snapshot was saved
	Tickets  int             // tickets in the saved snapshot
	Offline  bool
}

// Fetch loads the cached snapshot, merges fresh remote data into it unless offline,
// recomputes its projections and saves it.
//
// The snapshot is saved even when tickets stay outdated; ErrIncompleteUpdate is
// returned in that case so the caller can exit non-zero.
func Fetch(ctx context.Context, cfg *contract.Config, host contract.Host, mgr contract.CacheManager) (FetchReport, error) {
	start := time.Now()
	snapshots := iocache.NewSnapshotStore(mgr.GetSnapshotStore(), cfg.CacheBackend)
	snap, err := snapshots.Load(host.Name(), cfg.Repo)
	if err != nil {
		return FetchReport{}, err
	}
	f, err := filter.New(cfg)
	if err != nil {
		return FetchReport{}, err
	}

	report := FetchReport{
		Run:     schema.FetchRun{Host: host.Name(), Repo: cfg.Repo, StartTime: start},
		Offline: cfg.Offline,
	}
	if !cfg.Offline {
		runs := mgr.GetRunStore()
		runID := beginRun(runs, host.Name(), cfg.Repo, start)

		result, err := updateSnapshot(ctx, cfg, host, snap)
		if err != nil {
			return FetchReport{}, err
		}
		report.Run.Queued = result.Queued
		report.Run.Fetched = result.Fetched
		report.Run.Failed = result.Failed
		report.Run.Outdated = result.Outdated
		report.Run.RateLimited = result.RateLimited

		end := time.Now()
		report.Run.EndTime = end
		report.Run.DurationMs = end.Sub(start).Milliseconds()
		endRun(runs, runID, end, report.Run)
	}

	Preprocess(snap, f)
	location, err := snapshots.Save(snap)
	if err != nil {
		return FetchReport{}, err
	}
	report.Location = location
	report.Tickets = len(snap.Tickets)
	contract.Logger().Info("Saved snapshot",
		zap.String("repo", cfg.Repo),
		zap.String("location", location),
		zap.Int("tickets", report.Tickets))

	if cfg.MetricsFile != "" && !cfg.Offline {
		if err := WriteFetchMetrics(cfg.MetricsFile, report); err != nil {
			contract.LogWarn("Failed to write fetch metrics", err)
		}
	}

	if report.Run.Outdated > 0 {
		return report, fmt.Errorf("%d tickets are still outdated: %w", report.Run.Outdated, contract.ErrIncompleteUpdate)
	}
	return report, nil
}

// updateSnapshot refreshes the repository info and merges stale ticket details.
// Only a failing overview listing aborts the update.
func updateSnapshot(ctx context.Context, cfg *contract.Config, host contract.Host, snap *schema.Snapshot) (merge.Result, error) {
	latch := merge.NewLatch()

	info, err := host.FetchInfo(ctx)
	switch {
	case err == nil:
		snap.Info = &info
	case errors.Is(err, contract.ErrRateLimited):
		latch.Trip()
		contract.LogWarn("Request budget probably exhausted, use an auth token or try again later", err)
	default:
		contract.LogWarn("Keeping cached repository info", err)
	}

	overview, err := host.FetchOverview(ctx)
	if err != nil {
		return merge.Result{}, fmt.Errorf("failed to fetch overview of %s: %w", cfg.Repo, err)
	}

	merger := merge.New(host, cfg.Workers, cfg.RequestTimeout, latch)
	merged, result := merger.Update(ctx, snap.Tickets, merge.OverviewMap(overview))
	snap.Tickets = merged
	return result, nil
}

// Preprocess recomputes the derived projections of a snapshot with the filter's window.
func Preprocess(snap *schema.Snapshot, f *filter.Filter) {
	snap.Simple = agg.Simplify(snap.Tickets, f)
	snap.Timeline = agg.ExtractTimeline(snap.Tickets, f)
}

func beginRun(runs contract.RunStore, host, repo string, start time.Time) int64 {
	if runs == nil {
		return 0
	}
	runID, err := runs.BeginRun(host, repo, start)
	if err != nil {
		contract.LogWarn("Failed to record fetch run start", err)
		return 0
	}
	return runID
}

func endRun(runs contract.RunStore, runID int64, end time.Time, run schema.FetchRun) {
	if runs == nil || runID == 0 {
		return
	}
	if err := runs.EndRun(runID, end, run); err != nil {
		contract.LogWarn("Failed to record fetch run end", err)
	}
}

// PrintFetchReport writes a short human-readable account of a fetch.
func PrintFetchReport(w io.Writer, report FetchReport, cfg *contract.Config) {
	header := contract.ColorizeFunc(contract.HeaderColor, cfg.UseColors)
	_, _ = fmt.Fprintf(w, "%s\n", header(fmt.Sprintf("Fetch %s/%s", report.Run.Host, report.Run.Repo)))
	if report.Offline {
		_, _ = fmt.Fprintf(w, "  Offline: reprocessed %d cached tickets\n", report.Tickets)
	} else {
		run := report.Run
		_, _ = fmt.Fprintf(w, "  Queued: %d  Fetched: %d  Failed: %d\n", run.Queued, run.Fetched, run.Failed)
		status := contract.ColorizeFunc(contract.OKColor, cfg.UseColors)
		if run.Outdated > 0 {
			status = contract.ColorizeFunc(contract.WarnColor, cfg.UseColors)
		}
		_, _ = fmt.Fprintf(w, "  Outdated: %s\n", status(fmt.Sprint(run.Outdated)))
		if run.RateLimited {
			_, _ = fmt.Fprintf(w, "  %s\n", contract.ColorizeFunc(contract.FailColor, cfg.UseColors)("Rate limited"))
		}
		_, _ = fmt.Fprintf(w, "  Took: %s\n", time.Duration(run.DurationMs)*time.Millisecond)
	}
	_, _ = fmt.Fprintf(w, "  Snapshot: %s (%d tickets)\n", report.Location, report.Tickets)
}
