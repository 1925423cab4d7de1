package iocache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/schema"
)

// snapshotTable is the name of the table holding snapshot blobs.
const snapshotTable = "repostats_snapshots"

// SQLStore keeps snapshot blobs in a SQL table.
type SQLStore struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	connStr string
}

var _ contract.CacheStore = &SQLStore{} // Compile-time check

// NewSQLStore opens a SQL blob store and migrates its table to the latest version.
func NewSQLStore(backend schema.DatabaseBackend, connStr string) (*SQLStore, error) {
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetCacheDBFilePath()
	}
	if err := migrateUp(CacheMigrations, backend, connStr); err != nil {
		return nil, fmt.Errorf("failed to prepare %s cache: %w", backend, err)
	}
	db, err := openSQL(backend, connStr, contract.GetCacheDBFilePath())
	if err != nil {
		return nil, err
	}
	return &SQLStore{db: db, backend: backend, connStr: connStr}, nil
}

// Get retrieves a value by key from the store.
func (ps *SQLStore) Get(key string) ([]byte, int, int64, error) {
	var value []byte
	var version int
	var ts int64

	query := fmt.Sprintf(`SELECT cache_value, cache_version, cache_timestamp FROM %s WHERE cache_key = %s`,
		quoteTableName(snapshotTable, ps.backend), placeholder(ps.backend, 1))
	row := ps.db.QueryRow(query, key)
	if err := row.Scan(&value, &version, &ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, 0, contract.ErrCacheMiss
		}
		return nil, 0, 0, err
	}
	return value, version, ts, nil
}

// Set inserts or replaces a key/value pair in the store.
func (ps *SQLStore) Set(key string, value []byte, version int, timestamp int64) error {
	_, err := ps.db.Exec(ps.upsertQuery(), key, value, version, timestamp)
	return err
}

// upsertQuery returns the UPSERT query for the backend.
func (ps *SQLStore) upsertQuery() string {
	quotedTableName := quoteTableName(snapshotTable, ps.backend)
	switch ps.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (cache_key, cache_value, cache_version, cache_timestamp) VALUES (?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE cache_value = new.cache_value, cache_version = new.cache_version, cache_timestamp = new.cache_timestamp`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (cache_key, cache_value, cache_version, cache_timestamp) VALUES ($1, $2, $3, $4)
			ON CONFLICT (cache_key) DO UPDATE SET cache_value = EXCLUDED.cache_value, cache_version = EXCLUDED.cache_version, cache_timestamp = EXCLUDED.cache_timestamp`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (cache_key, cache_value, cache_version, cache_timestamp) VALUES (?, ?, ?, ?)`, quotedTableName)
	}
}

// Clear removes every snapshot while keeping the migrated schema.
func (ps *SQLStore) Clear() error {
	query := fmt.Sprintf("DELETE FROM %s", quoteTableName(snapshotTable, ps.backend))
	if _, err := ps.db.Exec(query); err != nil {
		return fmt.Errorf("failed to clear table %s: %w", snapshotTable, err)
	}
	return nil
}

// Close closes the underlying DB connection.
func (ps *SQLStore) Close() error {
	return ps.db.Close()
}

// GetStatus returns status information about the cache store.
func (ps *SQLStore) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{
		Backend:   string(ps.backend),
		Connected: true,
	}

	quotedTableName := quoteTableName(snapshotTable, ps.backend)

	row := ps.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedTableName))
	if err := row.Scan(&status.TotalEntries); err != nil {
		return status, fmt.Errorf("failed to get total entries: %w", err)
	}
	if status.TotalEntries == 0 {
		return status, nil
	}

	var lastTs, oldestTs int64
	row = ps.db.QueryRow(fmt.Sprintf("SELECT MAX(cache_timestamp), MIN(cache_timestamp) FROM %s", quotedTableName))
	if err := row.Scan(&lastTs, &oldestTs); err != nil {
		return status, fmt.Errorf("failed to get entry times: %w", err)
	}
	status.LastEntryTime = time.Unix(lastTs, 0)
	status.OldestEntryTime = time.Unix(oldestTs, 0)
	status.TableSizeBytes = ps.tableSize(status.TotalEntries)

	return status, nil
}

// tableSize asks the backend for the on-disk size of the snapshot table.
// It falls back to a rough estimate from the row count.
func (ps *SQLStore) tableSize(entries int) int64 {
	estimate := int64(entries) * 1000
	var size int64
	switch ps.backend {
	case schema.SQLiteBackend:
		row := ps.db.QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
		if err := row.Scan(&size); err != nil {
			return 0
		}
	case schema.MySQLBackend:
		cfg, err := mysql.ParseDSN(ps.connStr)
		if err != nil || cfg.DBName == "" {
			return estimate
		}
		row := ps.db.QueryRow("SELECT data_length + index_length FROM information_schema.tables WHERE table_schema = ? AND table_name = ?", cfg.DBName, snapshotTable)
		if err := row.Scan(&size); err != nil {
			return estimate
		}
	case schema.PostgreSQLBackend:
		row := ps.db.QueryRow("SELECT pg_total_relation_size($1)", snapshotTable)
		if err := row.Scan(&size); err != nil {
			return estimate
		}
	default:
		return estimate
	}
	return size
}

// NoopStore is the cache store of the none backend. It never holds anything.
type NoopStore struct{}

var _ contract.CacheStore = NoopStore{} // Compile-time check

// Get always reports a miss.
func (NoopStore) Get(string) ([]byte, int, int64, error) { return nil, 0, 0, contract.ErrCacheMiss }

// Set discards the value.
func (NoopStore) Set(string, []byte, int, int64) error { return nil }

// GetStatus reports an unconnected store.
func (NoopStore) GetStatus() (schema.CacheStatus, error) {
	return schema.CacheStatus{Backend: string(schema.NoneBackend)}, nil
}

// Clear does nothing.
func (NoopStore) Clear() error { return nil }

// Close does nothing.
func (NoopStore) Close() error { return nil }
