package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

var (
	// ErrNeedsMigration means the ledger is older than this binary; MigrateUp fixes it.
	ErrNeedsMigration = errors.New("ledger schema needs migration")

	// ErrBinaryOutdated means the ledger was migrated by a newer binary.
	ErrBinaryOutdated = errors.New("ledger schema is newer than this binary")
)

// Status reports the schema version of db and the latest version shipped
// with this binary. A database that was never migrated has version 0.
func Status(db *sql.DB) (current uint, latest uint, err error) {
	m, err := newMigrate(db)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m is not closed: closing it would close db, which the caller owns.

	current, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		current = 0
	case err != nil:
		return 0, 0, fmt.Errorf("failed to get database version: %w", err)
	case dirty:
		return current, 0, fmt.Errorf("database is in dirty state at version %d (migration failed previously)", current)
	}

	latest, err = LatestVersion()
	if err != nil {
		return current, 0, err
	}
	return current, latest, nil
}

// CheckDBMigrationStatus returns nil when db is at the latest version,
// an error matching ErrNeedsMigration when it is behind and one matching
// ErrBinaryOutdated when it is ahead.
func CheckDBMigrationStatus(db *sql.DB) error {
	current, latest, err := Status(db)
	if err != nil {
		return err
	}

	switch {
	case current == 0:
		return fmt.Errorf("%w: database has no schema version", ErrNeedsMigration)
	case current < latest:
		return fmt.Errorf("%w: database is at version %d but latest is %d", ErrNeedsMigration, current, latest)
	case current > latest:
		return fmt.Errorf("%w: database version %d, binary version %d", ErrBinaryOutdated, current, latest)
	}
	return nil
}

// MigrateUp runs all pending migrations to bring database to latest version.
func MigrateUp(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// LatestVersion returns the highest migration version embedded in the binary.
func LatestVersion() (uint, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return 0, fmt.Errorf("failed to read migration files: %w", err)
	}
	defer src.Close()

	latest, err := lastVersion(src)
	if err != nil {
		return 0, fmt.Errorf("failed to determine latest version: %w", err)
	}
	return latest, nil
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	dbDriver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// lastVersion walks the source from the first migration to the last.
func lastVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(version)
		if err != nil {
			// Next fails once there is nothing after version.
			return version, nil
		}
		version = next
	}
}
