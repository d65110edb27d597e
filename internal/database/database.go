package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"skirental/internal/config"
	"skirental/internal/domain"
	"skirental/internal/listing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DB is the record store: catalog, customers, rentals, returns and the notification outbox.
type DB struct {
	*sqlx.DB
	driver string
	path   string
	logger *zerolog.Logger
}

// NewDB opens (and creates when missing) a sqlite database file. ":memory:" is accepted.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	return Open(config.DatabaseConfig{Driver: DriverSQLite, Path: path}, logger)
}

func Open(cfg config.DatabaseConfig, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	var (
		conn *sqlx.DB
		err  error
	)
	switch cfg.Driver {
	case DriverSQLite, "":
		conn, err = openSQLite(cfg.Path)
	case DriverPostgres:
		conn, err = sqlx.Open(DriverPostgres, cfg.Postgres.DSN())
		if err == nil && cfg.Postgres.MaxConnections > 0 {
			conn.SetMaxOpenConns(cfg.Postgres.MaxConnections)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: conn, driver: conn.DriverName(), path: cfg.Path, logger: logger}
	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("driver", db.driver).Str("path", cfg.Path).Msg("Database initialized")
	return db, nil
}

func openSQLite(path string) (*sqlx.DB, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sqlx.Open(DriverSQLite, path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// one connection: every goroutine sees the same :memory: database and writers never
	// fight over the file lock
	conn.SetMaxOpenConns(1)
	return conn, nil
}

// Dialect names the goqu dialect matching the driver.
func (db *DB) Dialect() string {
	if db.driver == DriverPostgres {
		return listing.DialectPostgres
	}
	return listing.DialectSQLite
}

func (db *DB) Path() string {
	return db.path
}

func (db *DB) createTables() error {
	pk, ts := "INTEGER PRIMARY KEY AUTOINCREMENT", "DATETIME"
	if db.driver == DriverPostgres {
		pk, ts = "BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ"
	}
	r := strings.NewReplacer("{pk}", pk, "{ts}", ts)

	for _, query := range schema {
		if _, err := db.Exec(r.Replace(query)); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS employers (
		id {pk},
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		created_at {ts} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id {pk},
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		pesel TEXT NOT NULL,
		email TEXT NOT NULL,
		phone_area_code TEXT NOT NULL,
		phone_number TEXT NOT NULL,
		street TEXT NOT NULL,
		building_nr TEXT NOT NULL,
		apartment_nr TEXT,
		postal_code TEXT NOT NULL,
		city TEXT NOT NULL,
		created_at {ts} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS equipment (
		id {pk},
		name TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		barcode TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		count_in_store INTEGER NOT NULL,
		available_count INTEGER NOT NULL,
		price_per_hour BIGINT NOT NULL DEFAULT 0,
		price_for_next_hour BIGINT NOT NULL DEFAULT 0,
		price_per_day BIGINT NOT NULL DEFAULT 0,
		value_cost BIGINT NOT NULL DEFAULT 0,
		created_at {ts} NOT NULL,
		updated_at {ts} NOT NULL,
		CHECK (available_count >= 0 AND available_count <= count_in_store)
	)`,
	`CREATE TABLE IF NOT EXISTS rents (
		id {pk},
		issued_identifier TEXT NOT NULL UNIQUE,
		issued_at {ts} NOT NULL,
		rent_start {ts} NOT NULL,
		rent_end {ts} NOT NULL,
		status TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		tax_rate INTEGER NOT NULL,
		total_net_price BIGINT NOT NULL,
		total_net_deposit BIGINT NOT NULL,
		total_gross_price BIGINT NOT NULL,
		total_gross_deposit BIGINT NOT NULL,
		customer_id BIGINT REFERENCES customers(id),
		employer_id BIGINT REFERENCES employers(id),
		created_at {ts} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rent_lines (
		id {pk},
		rent_id BIGINT NOT NULL REFERENCES rents(id) ON DELETE CASCADE,
		equipment_id BIGINT NOT NULL REFERENCES equipment(id),
		equipment_name TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_net_price BIGINT NOT NULL,
		unit_deposit_price BIGINT NOT NULL,
		total_net_price BIGINT NOT NULL,
		total_net_deposit BIGINT NOT NULL,
		total_gross_price BIGINT NOT NULL,
		total_gross_deposit BIGINT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS rent_returns (
		id {pk},
		issued_identifier TEXT NOT NULL UNIQUE,
		issued_at {ts} NOT NULL,
		rent_id BIGINT NOT NULL UNIQUE REFERENCES rents(id),
		description TEXT NOT NULL DEFAULT '',
		total_net_price BIGINT NOT NULL,
		total_net_deposit BIGINT NOT NULL,
		total_gross_price BIGINT NOT NULL,
		total_gross_deposit BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notification_outbox (
		id {pk},
		recipient TEXT NOT NULL,
		template_key TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		retry_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		created_at {ts} NOT NULL,
		processed_at {ts},
		next_retry_at {ts}
	)`,

	`CREATE INDEX IF NOT EXISTS idx_rents_customer_id ON rents(customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rents_employer_id ON rents(employer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rents_status ON rents(status)`,
	`CREATE INDEX IF NOT EXISTS idx_rent_lines_rent_id ON rent_lines(rent_id)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_status ON notification_outbox(status, next_retry_at)`,
}

// withTx runs fn inside a transaction. fn must only use tx: the sqlite pool holds a
// single connection.
func (db *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// insertID runs an INSERT ... RETURNING id written with ? placeholders.
func insertID(ctx context.Context, q queryer, query string, args ...interface{}) (int64, error) {
	var id int64
	if err := q.QueryRowxContext(ctx, q.Rebind(query), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// notFound maps sql.ErrNoRows to domain.ErrNotFound.
func notFound(err error, what string, id interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, domain.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s %v: %w", what, id, err)
}
