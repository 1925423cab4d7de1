// Package parquet provides data structures and functions for exporting repostats
// reports and run history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/repostats/schema"
	"github.com/parquet-go/parquet-go"
)

// FetchRun represents a single fetch pass with its outcome.
// This struct maps to the repostats_fetch_runs database table.
type FetchRun struct {
	// RunID is the unique identifier for this fetch run
	RunID int64 `parquet:"run_id,snappy"`

	Host string `parquet:"host,snappy,dict"`
	Repo string `parquet:"repo,snappy,dict"`

	// StartTime is when the fetch began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the fetch completed (nullable for unfinished runs)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the fetch in milliseconds
	RunDurationMs int64 `parquet:"run_duration_ms,snappy"`

	Queued      int32 `parquet:"queued,snappy"`
	Fetched     int32 `parquet:"fetched,snappy"`
	Failed      int32 `parquet:"failed,snappy"`
	Outdated    int32 `parquet:"outdated,snappy"`
	RateLimited bool  `parquet:"rate_limited,snappy"`
}

// UserSummary is one row of the users summary with every metric column.
type UserSummary struct {
	User            string `parquet:"user,snappy"`
	OpenedPRs       int32  `parquet:"opened_prs,snappy"`
	MergedPRs       int32  `parquet:"merged_prs,snappy"`
	CommentedPRs    int32  `parquet:"commented_prs,snappy"`
	OpenedIssues    int32  `parquet:"opened_issues,snappy"`
	MergedIssues    int32  `parquet:"merged_issues,snappy"`
	CommentedIssues int32  `parquet:"commented_issues,snappy"`
	AllOpened       int32  `parquet:"all_opened,snappy"`
}

// TimelineCell is one (bucket, user) cell of a comment timeline in long format.
type TimelineCell struct {
	Freq   string `parquet:"freq,snappy,dict"`
	Type   string `parquet:"type,snappy,dict"`
	Bucket string `parquet:"bucket,snappy,dict"`
	User   string `parquet:"user,snappy,dict"`
	Count  int32  `parquet:"count,snappy"`
}

// Dependent is one repository depending on the scraped repository.
type Dependent struct {
	Repo  string `parquet:"repo,snappy"`
	Stars int32  `parquet:"stars,snappy"`
	Forks int32  `parquet:"forks,snappy"`
	URL   string `parquet:"url,snappy"`
}

// Write encodes rows to w using the schema inferred from the struct tags of T.
func Write[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

// WriteFile writes rows to a new Parquet file at outputPath.
func WriteFile[T any](outputPath string, rows []T) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Write(file, rows); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// ConvertFetchRuns converts schema.FetchRun records for Parquet export.
func ConvertFetchRuns(runs []schema.FetchRun) []FetchRun {
	result := make([]FetchRun, len(runs))
	for i, r := range runs {
		row := FetchRun{
			RunID:         r.RunID,
			Host:          r.Host,
			Repo:          r.Repo,
			StartTime:     r.StartTime,
			RunDurationMs: r.DurationMs,
			Queued:        int32(r.Queued),
			Fetched:       int32(r.Fetched),
			Failed:        int32(r.Failed),
			Outdated:      int32(r.Outdated),
			RateLimited:   r.RateLimited,
		}
		if !r.EndTime.IsZero() {
			end := r.EndTime
			row.EndTime = &end
		}
		result[i] = row
	}
	return result
}

// ConvertSummaryTable converts the rows of a users summary, keeping their order.
func ConvertSummaryTable(table schema.SummaryTable) []UserSummary {
	result := make([]UserSummary, len(table.Rows))
	for i, u := range table.Rows {
		result[i] = UserSummary{
			User:            u.User,
			OpenedPRs:       int32(u.PRs.Opened),
			MergedPRs:       int32(u.PRs.Merged),
			CommentedPRs:    int32(u.PRs.Commented),
			OpenedIssues:    int32(u.Issues.Opened),
			MergedIssues:    int32(u.Issues.Merged),
			CommentedIssues: int32(u.Issues.Commented),
			AllOpened:       int32(u.AllOpened),
		}
	}
	return result
}

// ConvertTimelineMatrix flattens a matrix into one cell per bucket and user, zeros included.
func ConvertTimelineMatrix(m schema.TimelineMatrix) []TimelineCell {
	result := make([]TimelineCell, 0, len(m.Buckets)*len(m.Users))
	for i, bucket := range m.Buckets {
		for j, user := range m.Users {
			result = append(result, TimelineCell{
				Freq:   string(m.Freq),
				Type:   m.Type.Label(),
				Bucket: bucket,
				User:   user,
				Count:  int32(m.Counts[i][j]),
			})
		}
	}
	return result
}

// ConvertDependents converts scraped dependents for Parquet export.
func ConvertDependents(deps []schema.Dependent) []Dependent {
	result := make([]Dependent, len(deps))
	for i, d := range deps {
		result[i] = Dependent{Repo: d.Repo, Stars: int32(d.Stars), Forks: int32(d.Forks), URL: d.URL()}
	}
	return result
}
