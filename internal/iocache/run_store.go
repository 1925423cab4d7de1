package iocache

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/schema"
)

// fetchRunsTable is the name of the table for fetch run history.
const fetchRunsTable = "repostats_fetch_runs"

// runColumns is the column list shared by the run queries.
const runColumns = "run_id, host, repo, start_time, end_time, run_duration_ms, queued, fetched, failed, outdated, rate_limited"

// RunStoreImpl implements the RunStore interface.
type RunStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.RunStore = &RunStoreImpl{} // Compile-time check

// NewRunStore creates a new RunStore with the specified backend.
func NewRunStore(backend schema.DatabaseBackend, connStr string) (*RunStoreImpl, error) {
	if backend == schema.NoneBackend || backend == "" {
		// Return a no-op store for disabled tracking
		return &RunStoreImpl{backend: schema.NoneBackend}, nil
	}
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetRunsDBFilePath()
	}
	if err := migrateUp(RunsMigrations, backend, connStr); err != nil {
		return nil, fmt.Errorf("failed to prepare %s run history: %w", backend, err)
	}
	db, err := openSQL(backend, connStr, contract.GetRunsDBFilePath())
	if err != nil {
		return nil, err
	}
	return &RunStoreImpl{db: db, backend: backend}, nil
}

func (rs *RunStoreImpl) disabled() bool {
	return rs.backend == schema.NoneBackend || rs.db == nil
}

func (rs *RunStoreImpl) table() string {
	return quoteTableName(fetchRunsTable, rs.backend)
}

// placeholders returns n positional parameters starting at 1.
func (rs *RunStoreImpl) placeholders(n int) []string {
	out := make([]string, n)
	for i := range n {
		out[i] = placeholder(rs.backend, i+1)
	}
	return out
}

// BeginRun creates a new fetch run and returns its unique ID.
func (rs *RunStoreImpl) BeginRun(host, repo string, startTime time.Time) (int64, error) {
	if rs.disabled() {
		return 0, nil
	}

	ph := rs.placeholders(3)
	query := fmt.Sprintf(`INSERT INTO %s (host, repo, start_time) VALUES (%s)`, rs.table(), strings.Join(ph, ", "))

	var runID int64
	var err error
	switch rs.backend {
	case schema.PostgreSQLBackend:
		err = rs.db.QueryRow(query+" RETURNING run_id", host, repo, formatTime(startTime, rs.backend)).Scan(&runID)
	default: // SQLite and MySQL
		var result sql.Result
		result, err = rs.db.Exec(query, host, repo, formatTime(startTime, rs.backend))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert fetch run: %w", err)
	}
	return runID, nil
}

// EndRun updates the fetch run with its outcome.
func (rs *RunStoreImpl) EndRun(runID int64, endTime time.Time, run schema.FetchRun) error {
	if rs.disabled() {
		return nil
	}

	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, rs.table(), placeholder(rs.backend, 1))
	startTime, err := rs.scanTime(rs.db.QueryRow(query, runID))
	if err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	durationMs := endTime.Sub(startTime).Milliseconds()

	ph := rs.placeholders(8)
	updateQuery := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, queued = %s, fetched = %s, failed = %s, outdated = %s, rate_limited = %s WHERE run_id = %s`,
		rs.table(), ph[0], ph[1], ph[2], ph[3], ph[4], ph[5], ph[6], ph[7])
	_, err = rs.db.Exec(updateQuery,
		formatTime(endTime, rs.backend), durationMs,
		run.Queued, run.Fetched, run.Failed, run.Outdated, run.RateLimited,
		runID)
	if err != nil {
		return fmt.Errorf("failed to update fetch run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. A limit <= 0 returns every run.
func (rs *RunStoreImpl) ListRuns(limit int) ([]schema.FetchRun, error) {
	if rs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY run_id DESC", runColumns, rs.table())
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query fetch runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.FetchRun
	for rows.Next() {
		run, err := rs.scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fetch runs: %w", err)
	}
	return results, nil
}

// scanRun reads one row selected with runColumns.
func (rs *RunStoreImpl) scanRun(rows *sql.Rows) (schema.FetchRun, error) {
	var run schema.FetchRun
	var duration sql.NullInt64
	switch rs.backend {
	case schema.SQLiteBackend:
		var startStr string
		var endStr sql.NullString
		if err := rows.Scan(&run.RunID, &run.Host, &run.Repo, &startStr, &endStr, &duration,
			&run.Queued, &run.Fetched, &run.Failed, &run.Outdated, &run.RateLimited); err != nil {
			return run, fmt.Errorf("failed to scan fetch run: %w", err)
		}
		start, err := time.Parse(time.RFC3339Nano, startStr)
		if err != nil {
			return run, fmt.Errorf("failed to parse start_time: %w", err)
		}
		run.StartTime = start
		if endStr.Valid {
			end, err := time.Parse(time.RFC3339Nano, endStr.String)
			if err != nil {
				return run, fmt.Errorf("failed to parse end_time: %w", err)
			}
			run.EndTime = end
		}
	default: // MySQL and PostgreSQL store as native datetime
		var end sql.NullTime
		if err := rows.Scan(&run.RunID, &run.Host, &run.Repo, &run.StartTime, &end, &duration,
			&run.Queued, &run.Fetched, &run.Failed, &run.Outdated, &run.RateLimited); err != nil {
			return run, fmt.Errorf("failed to scan fetch run: %w", err)
		}
		if end.Valid {
			run.EndTime = end.Time
		}
	}
	run.DurationMs = duration.Int64
	return run, nil
}

// scanTime reads a single timestamp column in the storage format of the backend.
func (rs *RunStoreImpl) scanTime(row *sql.Row) (time.Time, error) {
	if rs.backend == schema.SQLiteBackend {
		var s string
		if err := row.Scan(&s); err != nil {
			return time.Time{}, err
		}
		return time.Parse(time.RFC3339Nano, s)
	}
	var t time.Time
	err := row.Scan(&t)
	return t, err
}

// GetStatus returns status information about the run store.
func (rs *RunStoreImpl) GetStatus() (schema.RunStatus, error) {
	status := schema.RunStatus{
		Backend:   string(rs.backend),
		Connected: !rs.disabled(),
	}
	if rs.disabled() {
		return status, nil
	}

	row := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", rs.table()))
	if err := row.Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}
	if status.TotalRuns == 0 {
		return status, nil
	}

	var lastID int64
	row = rs.db.QueryRow(fmt.Sprintf("SELECT MAX(run_id) FROM %s", rs.table()))
	if err := row.Scan(&lastID); err != nil {
		return status, fmt.Errorf("failed to get last run id: %w", err)
	}
	status.LastRunID = lastID

	byID := fmt.Sprintf("SELECT start_time FROM %s WHERE run_id = %s", rs.table(), placeholder(rs.backend, 1))
	last, err := rs.scanTime(rs.db.QueryRow(byID, lastID))
	if err != nil {
		return status, fmt.Errorf("failed to get last run time: %w", err)
	}
	status.LastRunTime = last

	oldestQuery := fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", rs.table())
	oldest, err := rs.scanTime(rs.db.QueryRow(oldestQuery))
	if err != nil {
		return status, fmt.Errorf("failed to get oldest run time: %w", err)
	}
	status.OldestRunTime = oldest

	failedQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE outdated > 0 OR end_time IS NULL", rs.table())
	if err := rs.db.QueryRow(failedQuery).Scan(&status.FailedRuns); err != nil {
		return status, fmt.Errorf("failed to count failed runs: %w", err)
	}
	return status, nil
}

// Clear deletes every recorded run while keeping the migrated schema.
func (rs *RunStoreImpl) Clear() error {
	if rs.disabled() {
		return nil
	}
	if _, err := rs.db.Exec(fmt.Sprintf("DELETE FROM %s", rs.table())); err != nil {
		return fmt.Errorf("failed to clear table %s: %w", fetchRunsTable, err)
	}
	return nil
}

// Close closes the underlying connection.
func (rs *RunStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}
