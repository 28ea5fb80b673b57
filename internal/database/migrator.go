package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	log "github.com/sirupsen/logrus"
)

// Migrations are embedded so a single binary can bring up an empty database
//
//go:embed migrations
var migrationsFS embed.FS

// Migrator handles database schema migrations for one backend
type Migrator struct {
	backend string
	dsn     string
	db      *sql.DB
}

// NewPostgresMigrator creates a migration runner for PostgreSQL
//
// Parameters:
//   - dsn: postgres:// connection string (rewritten to the pgx5:// scheme)
//
// Returns:
//   - *Migrator: New migrator instance
func NewPostgresMigrator(dsn string) *Migrator {
	return &Migrator{backend: "postgres", dsn: dsn}
}

// NewSQLiteMigrator creates a migration runner for an open SQLite database.
// The handle stays owned by the caller.
func NewSQLiteMigrator(db *sql.DB) *Migrator {
	return &Migrator{backend: "sqlite", db: db}
}

// RunMigrations applies all pending up migrations
//
// Returns:
//   - error: If any migration fails; an already current schema is not an error
func (m *Migrator) RunMigrations() error {
	entry := log.WithFields(log.Fields{"component": "migrator", "backend": m.backend})
	entry.Info("Starting database migrations...")

	src, err := iofs.New(migrationsFS, "migrations/"+m.backend)
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	mig, err := m.open(src)
	if err != nil {
		return fmt.Errorf("failed to init migrate: %w", err)
	}
	if m.db == nil {
		// the sqlite driver would close the caller's handle
		defer mig.Close()
	}

	if err := mig.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			entry.Info("All migrations already applied - database is up to date")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := mig.Version()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	entry.WithFields(log.Fields{"version": version, "dirty": dirty}).Info("Migrations applied")
	return nil
}

func (m *Migrator) open(src source.Driver) (*migrate.Migrate, error) {
	switch m.backend {
	case "postgres":
		return migrate.NewWithSourceInstance("iofs", src, pgxURL(m.dsn))
	case "sqlite":
		driver, err := sqlite.WithInstance(m.db, &sqlite.Config{})
		if err != nil {
			return nil, err
		}
		return migrate.NewWithInstance("iofs", src, "sqlite", driver)
	}
	return nil, fmt.Errorf("unknown backend %q", m.backend)
}

// pgxURL rewrites postgres:// and postgresql:// to the scheme the pgx/v5
// migrate driver registers
func pgxURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
