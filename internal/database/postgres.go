// Package database provides PostgreSQL database operations for the oil price API.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/andygrunwald/oil-price-api/internal/config"
)

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate key")

// DB wraps the PostgreSQL connection pool.
type DB struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

// New creates a new database connection.
func New(dsn string, cfg config.DatabaseConfig, logger zerolog.Logger) (*DB, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{
		db:     db,
		logger: logger.With().Str("component", "database").Logger(),
	}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks if the database connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Queries returns the queries bound to the connection pool.
func (d *DB) Queries() *Queries {
	return &Queries{ext: d.db, logger: d.logger}
}

// InTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (d *DB) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		// No-op after a successful commit.
		_ = tx.Rollback()
	}()

	if err := fn(&Queries{ext: tx, logger: d.logger}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Counts holds the number of stored rows per table.
type Counts struct {
	Providers int64 `db:"providers"`
	Zones     int64 `db:"zones"`
	Prices    int64 `db:"prices"`
}

// GetCounts returns the number of stored providers, zones and prices.
func (d *DB) GetCounts(ctx context.Context) (Counts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM providers)      AS providers,
			(SELECT COUNT(*) FROM delivery_zones) AS zones,
			(SELECT COUNT(*) FROM oil_prices)     AS prices
	`

	var c Counts
	if err := d.db.GetContext(ctx, &c, query); err != nil {
		return Counts{}, fmt.Errorf("counting rows: %w", err)
	}
	return c, nil
}

// Queries runs statements against either the pool or a transaction.
type Queries struct {
	ext    sqlx.ExtContext
	logger zerolog.Logger
}

// translate maps driver errors onto package errors.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
