// Package sqlite implements repository.Store on top of SQLite.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no cgo, no C toolchain, and the
// binary cross-compiles like any other Go program.
//
// CONNECTION MODEL:
// SQLite allows one writer at a time. We cap the pool at a single open
// connection so transactions serialize inside database/sql instead of
// failing with SQLITE_BUSY. It also keeps ":memory:" databases coherent:
// every new connection to ":memory:" would otherwise be a fresh, empty DB.
//
// SCHEMA:
// Tables are created by goose migrations embedded from ./migrations.
// Deletion policies (CASCADE / SET NULL) live in the schema, not in Go code.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/recipe-room/internal/repository"
	"github.com/sakif/recipe-room/internal/repository/sqlite/migrations"
)

// dbtx is the subset of database/sql used by the query methods.
// Both *sql.DB and *sql.Tx satisfy it, so every method works unchanged
// inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is the SQLite-backed repository.Store.
//
// conn owns the pool; q is what queries run against. Outside a transaction
// q == conn. Inside WithTx, a second DB value is created whose q is the
// *sql.Tx.
type DB struct {
	conn *sql.DB
	q    dbtx
	inTx bool
}

var _ repository.Store = (*DB)(nil)

// pragmas applied to every connection the pool opens.
var pragmas = []string{
	"foreign_keys(1)",
	"journal_mode(WAL)",
	"busy_timeout(5000)",
}

// New opens the database at dbPath and brings the schema up to date.
//
// dbPath examples:
//   - "data/recipes.db" → file-based database
//   - ":memory:"        → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// The DSN pragmas are authoritative; this guards against a driver that
	// silently ignores them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	if err := runMigrations(context.Background(), conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return &DB{conn: conn, q: conn}, nil
}

// Close closes the connection pool. Calling Close on a transactional DB
// (the value handed to a WithTx callback) is a no-op.
func (db *DB) Close() error {
	if db.inTx {
		return nil
	}
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// WithTx runs fn inside a single transaction.
//
// Commit happens only if fn returns nil. Errors and panics roll back; panics
// are rethrown after the rollback.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) (err error) {
	if db.inTx {
		return fn(ctx, db)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("sqlite: committing transaction: %w", cerr)
		}
	}()

	err = fn(ctx, &DB{conn: db.conn, q: tx, inTx: true})
	return err
}

func runMigrations(ctx context.Context, conn *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	return goose.UpContext(ctx, conn, ".")
}

// dsn attaches the connection pragmas using modernc's _pragma query syntax.
func dsn(path string) string {
	params := make([]string, 0, len(pragmas))
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}
