package iocache

import (
	"path/filepath"
	"testing"

	"github.com/huangsam/repostats/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_NoneBackend(t *testing.T) {
	_, err := Migrate(RunsMigrations, schema.NoneBackend, "", -1)
	assert.Error(t, err)
}

func TestMigrate_UnknownSet(t *testing.T) {
	_, err := Migrate("bogus", schema.SQLiteBackend, filepath.Join(t.TempDir(), "x.db"), -1)
	assert.Error(t, err)
}

func TestMigrate_SQLiteRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	res, err := Migrate(RunsMigrations, schema.SQLiteBackend, dbPath, -1)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, uint(0), res.From)
	assert.Equal(t, uint(2), res.To)
	assert.Contains(t, res.String(), "from version 0 to version 2")

	res, err = Migrate(RunsMigrations, schema.SQLiteBackend, dbPath, -1)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, uint(2), res.To)
	assert.Contains(t, res.String(), "already at version 2")

	res, err = Migrate(RunsMigrations, schema.SQLiteBackend, dbPath, 1)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, uint(1), res.To)

	res, err = Migrate(RunsMigrations, schema.SQLiteBackend, dbPath, 0)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, uint(0), res.To)
}

func TestMigrate_SetsAreIndependent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "shared.db")

	_, err := Migrate(CacheMigrations, schema.SQLiteBackend, dbPath, -1)
	require.NoError(t, err)

	res, err := Migrate(RunsMigrations, schema.SQLiteBackend, dbPath, -1)
	require.NoError(t, err)
	assert.True(t, res.Changed, "runs migrations keep their own version table")
	assert.Equal(t, uint(2), res.To)
}
