package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/jrschumacher/fitlink/internal/logger"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrateUp applies every pending migration. Running it on an up-to-date
// schema is a no-op.
func (s *Service) MigrateUp() error {
	if err := s.migrate(func(m *migrate.Migrate) error { return m.Up() }); err != nil {
		return err
	}
	logger.Info("Database migrations applied", "driver", string(s.driver))
	return nil
}

// MigrateDown rolls back the most recent migration.
func (s *Service) MigrateDown() error {
	if err := s.migrate(func(m *migrate.Migrate) error { return m.Steps(-1) }); err != nil {
		return err
	}
	logger.Info("Database migration rolled back", "driver", string(s.driver))
	return nil
}

// SchemaVersion reports the current migration version and dirty flag.
func (s *Service) SchemaVersion() (uint, bool, error) {
	var (
		version uint
		dirty   bool
	)
	err := s.migrate(func(m *migrate.Migrate) error {
		var err error
		version, dirty, err = m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		return err
	})
	return version, dirty, err
}

func (s *Service) migrate(run func(*migrate.Migrate) error) error {
	src, err := iofs.New(migrationsFS, "migrations/"+string(s.driver))
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	var drv database.Driver
	switch {
	case s.IsPostgreSQL():
		drv, err = migratepg.WithInstance(s.db, &migratepg.Config{})
	case s.IsSQLite():
		drv, err = migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	default:
		return fmt.Errorf("unsupported driver for migrations: %s", s.driver)
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(s.driver), drv)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	// The postgres driver holds a dedicated connection that must be released.
	// The sqlite driver's Close would close the shared *sql.DB.
	if s.IsPostgreSQL() {
		defer func() { _, _ = m.Close() }()
	}

	if err := run(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
