package iocache

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/repostats/schema"
)

const statusTimeLayout = "2006-01-02 15:04:05"

// PrintCacheStatus prints cache status information.
func PrintCacheStatus(w io.Writer, status schema.CacheStatus) {
	_, _ = fmt.Fprintf(w, "Cache Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Entries: %d\n", status.TotalEntries)
	if status.TotalEntries > 0 {
		_, _ = fmt.Fprintf(w, "Last Entry: %s (%s)\n", status.LastEntryTime.Format(statusTimeLayout), humanize.Time(status.LastEntryTime))
		_, _ = fmt.Fprintf(w, "Oldest Entry: %s (%s)\n", status.OldestEntryTime.Format(statusTimeLayout), humanize.Time(status.OldestEntryTime))
	}
	_, _ = fmt.Fprintf(w, "Size: %s\n", humanize.Bytes(uint64(max(status.TableSizeBytes, 0))))
}

// PrintRunStatus prints fetch run history status information.
func PrintRunStatus(w io.Writer, status schema.RunStatus) {
	_, _ = fmt.Fprintf(w, "Runs Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Runs: %s\n", humanize.Comma(int64(status.TotalRuns)))
	if status.TotalRuns > 0 {
		_, _ = fmt.Fprintf(w, "Last Run ID: %d\n", status.LastRunID)
		_, _ = fmt.Fprintf(w, "Last Run: %s (%s)\n", status.LastRunTime.Format(statusTimeLayout), humanize.Time(status.LastRunTime))
		_, _ = fmt.Fprintf(w, "Oldest Run: %s\n", status.OldestRunTime.Format(statusTimeLayout))
		_, _ = fmt.Fprintf(w, "Incomplete Runs: %d\n", status.FailedRuns)
	}
}

// PrintRuns prints one line per fetch run.
func PrintRuns(w io.Writer, runs []schema.FetchRun) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "No fetch runs recorded.")
		return
	}
	for _, r := range runs {
		state := "complete"
		switch {
		case r.EndTime.IsZero():
			state = "unfinished"
		case r.Outdated > 0:
			state = "incomplete"
		}
		_, _ = fmt.Fprintf(w, "#%d %s %s/%s started %s, %s: queued=%d fetched=%d failed=%d outdated=%d rate_limited=%t\n",
			r.RunID, r.StartTime.Format(statusTimeLayout), r.Host, r.Repo, humanize.Time(r.StartTime), state,
			r.Queued, r.Fetched, r.Failed, r.Outdated, r.RateLimited)
	}
}
