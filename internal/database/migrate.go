package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

type migrationRunner interface {
	Up() error
	Version() (uint, bool, error)
	Close() (error, error)
}

// Migrator applies the SQL files under a migrations directory.
type Migrator struct {
	runner migrationRunner
}

var newMigrationRunner = func(sourceURL, databaseURL string) (migrationRunner, error) {
	return migrate.New(sourceURL, databaseURL)
}

func NewMigrator(dsn, dir string) (*Migrator, error) {
	runner, err := newMigrationRunner("file://"+dir, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening migrations in %s: %w", dir, err)
	}
	return &Migrator{runner: runner}, nil
}

// Up applies pending migrations. An already current schema is not an error.
func (m *Migrator) Up() error {
	if err := m.runner.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.runner.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.runner.Close()
	return errors.Join(srcErr, dbErr)
}
