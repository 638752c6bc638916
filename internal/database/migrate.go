package database

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationStatus describes the schema version of the database.
type MigrationStatus struct {
	Version uint
	Dirty   bool
	// Applied is false if no migration ran yet.
	Applied bool
}

// migrator builds a migrator on a connection leased from the pool. Closing
// the migrator returns the connection and leaves the pool open.
func (d *DB) migrator(ctx context.Context) (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	conn, err := d.db.Conn(ctx)
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("lease migration connection: %w", err)
	}

	dbDriver, err := migratepgx.WithConnection(ctx, conn, &migratepgx.Config{})
	if err != nil {
		conn.Close()
		sourceDriver.Close()
		return nil, fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "pgx5", dbDriver)
	if err != nil {
		dbDriver.Close()
		sourceDriver.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

func (d *DB) closeMigrator(m *migrate.Migrate) {
	if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
		d.logger.Warn().AnErr("source_error", srcErr).AnErr("db_error", dbErr).Msg("closing migrator")
	}
}

// RunMigrations applies all pending migrations embedded in the binary.
// Already applied migrations are skipped.
func (d *DB) RunMigrations() error {
	m, err := d.migrator(context.Background())
	if err != nil {
		return err
	}
	defer d.closeMigrator(m)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	status, err := d.statusOf(m)
	if err != nil {
		return err
	}
	d.logger.Info().Uint("version", status.Version).Msg("database schema is up to date")
	return nil
}

// MigrateDown rolls back all migrations.
func (d *DB) MigrateDown() error {
	m, err := d.migrator(context.Background())
	if err != nil {
		return err
	}
	defer d.closeMigrator(m)

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("roll back migrations: %w", err)
	}
	return nil
}

// MigrationVersion returns the current schema version.
func (d *DB) MigrationVersion() (MigrationStatus, error) {
	m, err := d.migrator(context.Background())
	if err != nil {
		return MigrationStatus{}, err
	}
	defer d.closeMigrator(m)

	return d.statusOf(m)
}

func (d *DB) statusOf(m *migrate.Migrate) (MigrationStatus, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, nil
	}
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("read migration version: %w", err)
	}
	return MigrationStatus{Version: version, Dirty: dirty, Applied: true}, nil
}
