package iocache

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/schema"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrationSet names one group of tables with its own migration history.
type MigrationSet string

// Migration sets.
const (
	CacheMigrations MigrationSet = "cache"
	RunsMigrations  MigrationSet = "runs"
)

// MigrationResult reports the schema versions before and after a migration.
type MigrationResult struct {
	From    uint
	To      uint
	Changed bool
}

// String renders the result the way the CLI prints it.
func (r MigrationResult) String() string {
	if !r.Changed {
		return fmt.Sprintf("No migration needed. Database is already at version %d", r.To)
	}
	return fmt.Sprintf("Successfully migrated from version %d to version %d", r.From, r.To)
}

// migrationsTable returns the bookkeeping table of a migration set.
func (s MigrationSet) migrationsTable() string {
	return fmt.Sprintf("repostats_%s_migrations", s)
}

// defaultPath returns the SQLite file used when no connection string is given.
func (s MigrationSet) defaultPath() string {
	if s == RunsMigrations {
		return contract.GetRunsDBFilePath()
	}
	return contract.GetCacheDBFilePath()
}

// Migrate runs database migrations for a migration set.
// - If targetVersion < 0, it migrates to the latest version.
// - If targetVersion == 0, it rolls back all migrations (to initial state).
// - If targetVersion > 0, it migrates to the specified version.
func Migrate(set MigrationSet, backend schema.DatabaseBackend, connStr string, targetVersion int) (MigrationResult, error) {
	var result MigrationResult
	if set != CacheMigrations && set != RunsMigrations {
		return result, fmt.Errorf("unknown migration set: %s", set)
	}
	if backend == schema.NoneBackend {
		return result, fmt.Errorf("migrations are not supported for NoneBackend")
	}

	m, err := newMigrator(set, backend, connStr)
	if err != nil {
		return result, err
	}
	defer func() { _, _ = m.Close() }()

	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return result, fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return result, fmt.Errorf("database is in a dirty state at version %d. Please fix manually or force version", currentVersion)
	}
	result.From = currentVersion

	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return result, fmt.Errorf("failed to migrate %s tables to version %d: %w", set, targetVersion, err)
	}
	result.Changed = err == nil

	newVersion, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return result, fmt.Errorf("failed to get new migration version: %w", err)
	}
	result.To = newVersion
	return result, nil
}

// newMigrator builds a migrate instance over a dedicated connection.
// The returned instance owns that connection and closes it on Close.
func newMigrator(set MigrationSet, backend schema.DatabaseBackend, connStr string) (*migrate.Migrate, error) {
	db, err := openSQL(backend, connStr, set.defaultPath())
	if err != nil {
		return nil, err
	}

	table := set.migrationsTable()
	var driver database.Driver
	switch backend {
	case schema.SQLiteBackend:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: table})
	case schema.MySQLBackend:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{MigrationsTable: table})
	case schema.PostgreSQLBackend:
		driver, err = pgx.WithInstance(db, &pgx.Config{MigrationsTable: table})
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create %s migrate driver: %w", backend, err)
	}

	sub, err := fs.Sub(migrationsFS, path.Join("migrations", string(set), string(backend)))
	if err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("failed to access migrations directory: %w", err)
	}
	sourceDriver, err := iofs.New(sub, ".")
	if err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, string(backend), driver)
	if err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// migrateUp brings a migration set to its latest version.
func migrateUp(set MigrationSet, backend schema.DatabaseBackend, connStr string) error {
	_, err := Migrate(set, backend, connStr, -1)
	return err
}
