package iocache

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, "`repostats_snapshots`", quoteTableName(snapshotTable, schema.MySQLBackend))
	assert.Equal(t, `"repostats_snapshots"`, quoteTableName(snapshotTable, schema.PostgreSQLBackend))
	assert.Equal(t, `"repostats_snapshots"`, quoteTableName(snapshotTable, schema.SQLiteBackend))
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "$3", placeholder(schema.PostgreSQLBackend, 3))
	assert.Equal(t, "?", placeholder(schema.MySQLBackend, 3))
	assert.Equal(t, "?", placeholder(schema.SQLiteBackend, 1))
}

func TestDriverName(t *testing.T) {
	tests := []struct {
		backend schema.DatabaseBackend
		want    string
		wantErr bool
	}{
		{schema.SQLiteBackend, "sqlite", false},
		{schema.MySQLBackend, "mysql", false},
		{schema.PostgreSQLBackend, "pgx", false},
		{schema.RedisBackend, "", true},
		{schema.JSONBackend, "", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			got, err := driverName(tt.backend)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUpsertQuery(t *testing.T) {
	mysqlStore := &SQLStore{backend: schema.MySQLBackend}
	assert.Contains(t, mysqlStore.upsertQuery(), "ON DUPLICATE KEY UPDATE")

	pgStore := &SQLStore{backend: schema.PostgreSQLBackend}
	q := pgStore.upsertQuery()
	assert.Contains(t, q, "ON CONFLICT (cache_key)")
	assert.True(t, strings.Contains(q, "$4"))

	sqliteStore := &SQLStore{backend: schema.SQLiteBackend}
	assert.Contains(t, sqliteStore.upsertQuery(), "INSERT OR REPLACE")
}

func TestSQLiteBackendOperations(t *testing.T) {
	store := newTestSQLiteStore(t)

	_, _, _, err := store.Get("missing")
	assert.ErrorIs(t, err, contract.ErrCacheMiss)

	now := time.Now().Unix()
	require.NoError(t, store.Set("dump-github_octo-widgets.json", []byte("payload"), 1, now))

	data, version, ts, err := store.Get("dump-github_octo-widgets.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
	assert.Equal(t, 1, version)
	assert.Equal(t, now, ts)

	// Upsert replaces the previous value
	require.NoError(t, store.Set("dump-github_octo-widgets.json", []byte("newer"), 2, now+1))
	data, version, _, err = store.Get("dump-github_octo-widgets.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("newer"), data)
	assert.Equal(t, 2, version)
}

func TestSQLStoreGetStatusAndClear(t *testing.T) {
	store := newTestSQLiteStore(t)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Backend)
	assert.True(t, status.Connected)
	assert.Equal(t, 0, status.TotalEntries)

	require.NoError(t, store.Set("a", []byte("1"), 1, 1000))
	require.NoError(t, store.Set("b", []byte("2"), 1, 2000))

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalEntries)
	assert.Equal(t, int64(2000), status.LastEntryTime.Unix())
	assert.Equal(t, int64(1000), status.OldestEntryTime.Unix())
	assert.Greater(t, status.TableSizeBytes, int64(0))

	require.NoError(t, store.Clear())
	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 0, status.TotalEntries)

	// The schema survives a clear
	require.NoError(t, store.Set("c", []byte("3"), 1, 3000))
}

func TestNoopStore(t *testing.T) {
	var store contract.CacheStore = NoopStore{}
	require.NoError(t, store.Set("k", []byte("v"), 1, 1))
	_, _, _, err := store.Get("k")
	assert.ErrorIs(t, err, contract.ErrCacheMiss)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "none", status.Backend)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Clear())
	assert.NoError(t, store.Close())
}

func TestNewCacheStoreErrors(t *testing.T) {
	_, err := NewCacheStore("bogus", t.TempDir(), "")
	assert.Error(t, err)

	_, err = NewCacheStore(schema.JSONBackend, filepath.Join(t.TempDir(), "nope"), "")
	assert.ErrorIs(t, err, contract.ErrCacheDirMissing)

	_, err = NewCacheStore(schema.RedisBackend, "", "not a url")
	assert.Error(t, err)
}
