// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/repostats/schema"
)

// Host defines the operations a Git hosting provider must offer to the update pipeline.
// A Host is bound to one repository at construction time.
// This allows the merge and aggregation logic to be tested without network access.
type Host interface {
	// Name is the provider name used in cache keys and file names (e.g. "github").
	Name() string

	// UserURL renders a user reference for display, such as a Markdown profile link.
	UserURL(user string) string

	// FetchInfo returns general repository information.
	FetchInfo(ctx context.Context) (schema.RepoInfo, error)

	// FetchOverview lists every issue and pull request of the repository.
	FetchOverview(ctx context.Context) ([]schema.TicketSummary, error)

	// FetchDetail returns the full ticket for an overview record: comments for issues,
	// plus merge status and review comments for pull requests.
	FetchDetail(ctx context.Context, summary schema.TicketSummary) (schema.Ticket, error)
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetSnapshotStore() CacheStore
	GetRunStore() RunStore
}

// CacheStore defines the interface for snapshot blob storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Clear() error
	Close() error
}

// RunStore defines the interface for tracking fetch runs.
type RunStore interface {
	// BeginRun creates a new fetch run and returns its unique ID
	BeginRun(host, repo string, startTime time.Time) (int64, error)

	// EndRun records the outcome of a fetch run
	EndRun(runID int64, endTime time.Time, run schema.FetchRun) error

	// ListRuns returns the most recent runs, newest first
	ListRuns(limit int) ([]schema.FetchRun, error)

	// GetStatus returns status information about the run store
	GetStatus() (schema.RunStatus, error)

	// Clear deletes the recorded runs
	Clear() error

	// Close closes the underlying connection
	Close() error
}
