// Package sqlite implements the store abstractions on an embedded SQLite
// database. Records are stored one collection per table as JSON documents,
// with predicate pushdown through SQLite's json_extract. The database file
// survives process restart and schema evolution is handled by versioned,
// additive goose migrations.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the sqlite driver

	"github.com/mnemo-app/mnemo/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the SQLite connection handle backing every collection.
type DB struct {
	sql    *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at path, applies pragmas suited to
// a single-writer embedded store, and brings the schema up to date.
// Pass ":memory:" for an ephemeral database in tests.
func Open(ctx context.Context, path string, log *slog.Logger) (*DB, error) {
	if log == nil {
		log = slog.Default()
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", store.ErrStorageUnavailable, path, err)
	}

	// The modernc driver is not safe for concurrent writers on one
	// connection pool entry; a single connection also makes ":memory:"
	// databases behave across the pool.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", store.ErrStorageUnavailable, path, err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info("opened local store", slog.String("path", path))

	return &DB{sql: db, logger: log}, nil
}

// migrateMu serializes migrate calls; goose's base FS and dialect are
// package-global state shared by every open database.
var migrateMu sync.Mutex

// migrate applies all pending schema migrations. The goose version table
// doubles as the persisted schema-version marker: adding a collection is
// an additive migration and never touches existing data.
func migrate(db *sql.DB) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// SQL exposes the underlying connection for store.RunInTransaction.
func (db *DB) SQL() *sql.DB {
	return db.sql
}

// SchemaVersion reports the currently applied schema version.
func (db *DB) SchemaVersion() (int64, error) {
	version, err := goose.GetDBVersion(db.sql)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.sql.Close()
}
