package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/d-saikrishna/assam-tenders/internal/logging"
	"github.com/d-saikrishna/assam-tenders/internal/model"
	"github.com/d-saikrishna/assam-tenders/internal/worker"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// defaultChunkSize bounds rows per INSERT statement and per key lookup
const defaultChunkSize = 500

// sqliteMaxVars stays under SQLITE_MAX_VARIABLE_NUMBER
const sqliteMaxVars = 32000

// DB is the relational store shared by the loader and the resolver
type DB struct {
	*sqlx.DB
	flavor  sqlbuilder.Flavor
	chunk   int
	limiter *worker.Limiter
	logger  *logging.Logger
	tenders TenderColumns
}

// TenderColumns names the static table and the columns resolution reads from it
type TenderColumns struct {
	Table     string
	Key       string
	Title     string
	Reference string
}

// Option configures a DB
type Option func(*DB)

// WithLimiter throttles bulk writes per table
func WithLimiter(l *worker.Limiter) Option {
	return func(db *DB) { db.limiter = l }
}

// WithChunkSize sets rows per write chunk and keys per lookup
func WithChunkSize(n int) Option {
	return func(db *DB) {
		if n > 0 {
			db.chunk = n
		}
	}
}

// WithLogger sets the store logger
func WithLogger(l *logging.Logger) Option {
	return func(db *DB) { db.logger = l }
}

// WithTenderColumns sets where resolution reads tenders from
func WithTenderColumns(c TenderColumns) Option {
	return func(db *DB) { db.tenders = c }
}

// Open connects to the configured database
func Open(ctx context.Context, cfg model.DatabaseConfig, opts ...Option) (*DB, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := sqlx.ConnectContext(ctx, cfg.Driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "connect %s", cfg.Driver)
	}

	if cfg.Driver == DriverSQLite {
		// one connection keeps in-memory databases alive and serializes writers
		conn.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			conn.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	db := New(conn, opts...)

	if cfg.Driver == DriverPostgres && cfg.Schema != "" {
		if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+db.quote(cfg.Schema)); err != nil {
			_ = conn.Close()
			return nil, errors.Wrapf(err, "create schema %s", cfg.Schema)
		}
	}

	return db, nil
}

// New wraps an open connection
func New(conn *sqlx.DB, opts ...Option) *DB {
	db := &DB{
		DB:     conn,
		flavor: FlavorFor(conn.DriverName()),
		chunk:  defaultChunkSize,
		logger: logging.Nop(),
		tenders: TenderColumns{
			Table:     "tenders_static",
			Key:       "ocid",
			Title:     "tender_title",
			Reference: "tender_externalreference",
		},
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// FlavorFor maps a driver name to its SQL dialect
func FlavorFor(driver string) sqlbuilder.Flavor {
	if driver == DriverSQLite {
		return sqlbuilder.SQLite
	}
	return sqlbuilder.PostgreSQL
}

// DSN builds a connection string from config; an explicit DSN wins
func DSN(cfg model.DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case DriverPostgres:
		if cfg.DSN != "" {
			return cfg.DSN, nil
		}
		parts := []string{
			kv("host", cfg.Host),
			kv("port", fmt.Sprint(cfg.Port)),
			kv("user", cfg.User),
			kv("password", cfg.Password),
			kv("dbname", cfg.Name),
			kv("sslmode", cfg.SSLMode),
		}
		if cfg.Schema != "" {
			parts = append(parts, kv("search_path", cfg.Schema))
		}
		return strings.Join(nonEmpty(parts), " "), nil
	case DriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.Name
		}
		if dsn == "" {
			return "", fmt.Errorf("sqlite3: database path is required")
		}
		if !strings.Contains(dsn, "_foreign_keys") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_foreign_keys=on"
		}
		return dsn, nil
	}
	return "", fmt.Errorf("unsupported driver %q", cfg.Driver)
}

func kv(key, value string) string {
	if value == "" || value == "0" {
		return ""
	}
	if strings.ContainsAny(value, " '\\") {
		value = "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value) + "'"
	}
	return key + "=" + value
}

func nonEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (db *DB) quote(name string) string {
	return db.flavor.Quote(name)
}

func (db *DB) quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = db.quote(n)
	}
	return out
}

// withTx runs fn in a transaction, rolling back on error
func (db *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// throttle waits for write clearance on table when a limiter is set
func (db *DB) throttle(ctx context.Context, table string) error {
	if db.limiter == nil {
		return nil
	}
	return db.limiter.Wait(ctx, table)
}

// rowsPerInsert caps a multi-row INSERT by the driver's bind-variable limit
func (db *DB) rowsPerInsert(width int) int {
	n := db.chunk
	if db.flavor == sqlbuilder.SQLite && width > 0 && n*width > sqliteMaxVars {
		n = sqliteMaxVars / width
	}
	if n < 1 {
		n = 1
	}
	return n
}
