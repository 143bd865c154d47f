package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var schemaFiles embed.FS

// migrator pairs a migrate instance with the connection it owns.
type migrator struct {
	m  *migrate.Migrate
	db *sql.DB
}

// openMigrator uses its own connection: migrate.Close closes the database
// it was given, and the repository pool must outlive it.
func openMigrator(dbPath string) (*migrator, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s for migration: %w", dbPath, err)
	}
	target, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite migration target: %w", err)
	}
	src, err := iofs.New(schemaFiles, "migrations")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("embedded schema files: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", target)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrator: %w", err)
	}
	return &migrator{m: m, db: db}, nil
}

func (g *migrator) close() {
	g.m.Close()
	g.db.Close()
}

// RunMigrations applies every pending schema file to the ledger database.
// An already current schema is not an error.
func RunMigrations(dbPath string) error {
	g, err := openMigrator(dbPath)
	if err != nil {
		return err
	}
	defer g.close()

	switch err := g.m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		return nil
	case err != nil:
		return fmt.Errorf("apply schema: %w", err)
	}
	if v, _, err := g.m.Version(); err == nil {
		slog.Debug("Ledger schema migrated", "path", dbPath, "version", v)
	}
	return nil
}

// SchemaVersion reports the applied schema version and whether the last
// migration left the database dirty. A database with no schema yet reports 0.
func SchemaVersion(dbPath string) (uint, bool, error) {
	g, err := openMigrator(dbPath)
	if err != nil {
		return 0, false, err
	}
	defer g.close()

	v, dirty, err := g.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("schema version: %w", err)
	}
	return v, dirty, nil
}
