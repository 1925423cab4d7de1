package schema

import "time"

// CacheStatus represents the status of the snapshot cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// FetchRun records the outcome of one update pass against a repository.
type FetchRun struct {
	RunID       int64     `json:"run_id"`
	Host        string    `json:"host"`
	Repo        string    `json:"repo"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	DurationMs  int64     `json:"duration_ms"`
	Queued      int       `json:"queued"`
	Fetched     int       `json:"fetched"`
	Failed      int       `json:"failed"`
	Outdated    int       `json:"outdated"`
	RateLimited bool      `json:"rate_limited"`
}

// RunStatus represents the status of the fetch run history store.
type RunStatus struct {
	Backend       string    `json:"backend"`
	Connected     bool      `json:"connected"`
	TotalRuns     int       `json:"total_runs"`
	LastRunID     int64     `json:"last_run_id"`
	LastRunTime   time.Time `json:"last_run_time"`
	OldestRunTime time.Time `json:"oldest_run_time"`
	FailedRuns    int       `json:"failed_runs"`
}
