// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary builds
// without a C toolchain. Schema changes live in migrations/ and are applied
// with golang-migrate (see migrate.go).
//
// UNIT OF WORK:
// Every query method is defined on *queries, which runs against a dbtx: either
// the *sql.DB pool or an open *sql.Tx. DB embeds a *queries bound to the pool,
// and WithinTx hands fn a *queries bound to a transaction. The same SQL serves
// both paths.
//
// CASCADES:
// Foreign keys carry no ON DELETE action. Removing a parent row with children
// fails with a constraint error, so every dependent row is removed (or its
// reference cleared) by an explicit cascade function before the parent goes.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/inventory-service/internal/apperror"
	"github.com/sakif/inventory-service/internal/repository"
)

// compile-time checks for the Store and the transaction-bound Queries
var (
	_ repository.Store   = (*DB)(nil)
	_ repository.Queries = (*queries)(nil)
)

// dateLayout is how timestamps are stored. All values are UTC, truncated to
// seconds, so text ordering equals time ordering.
const dateLayout = time.RFC3339

// dbtx is the subset of *sql.DB and *sql.Tx the queries need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	*queries
	conn *sql.DB
}

// Open connects to the database and configures the connection, without
// touching the schema. The migrate CLI uses it directly; the server uses New.
//
// dbPath examples:
//   - "data/inventory.db"  → file-based database (persistent)
//   - ":memory:"           → in-memory database (tests)
func Open(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows one writer at a time, and PRAGMA foreign_keys is
	// per-connection. A single connection also keeps ":memory:" databases
	// alive and shared across queries.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	return newFromConn(conn), nil
}

// New opens the database and applies all pending migrations.
func New(dbPath string) (*DB, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func newFromConn(conn *sql.DB) *DB {
	return &DB{queries: &queries{db: conn}, conn: conn}
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// WithinTx runs fn in a transaction. A nil return commits; anything else
// (including a panic) rolls back. The error from fn is returned unchanged so
// callers can still classify it with errors.Is.
func (db *DB) WithinTx(ctx context.Context, fn func(q repository.Queries) error) error {
	return withTx(ctx, db.conn, func(q *queries) error { return fn(q) })
}

func withTx(ctx context.Context, conn *sql.DB, fn func(q *queries) error) (err error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("beginning transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&queries{db: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return storageErr("committing transaction", err)
	}
	return nil
}

// atomic runs a multi-statement operation in a transaction. When q is
// already bound to a transaction it joins it instead of nesting.
func (q *queries) atomic(ctx context.Context, fn func(q *queries) error) error {
	conn, ok := q.db.(*sql.DB)
	if !ok {
		return fn(q)
	}
	return withTx(ctx, conn, fn)
}

// storageErr classifies a driver error. Constraint violations (UNIQUE,
// FOREIGN KEY, CHECK, NOT NULL) become apperror.ErrIntegrity; everything
// else is apperror.ErrStorage. The driver text stays in the cause for logs.
func storageErr(op string, err error) error {
	wrapped := fmt.Errorf("sqlite: %s: %w", op, err)
	if isConstraint(err) {
		return apperror.Integrity("constraint violation while "+op, wrapped)
	}
	return apperror.Storage(op, wrapped)
}

func isConstraint(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	// Extended codes (e.g. SQLITE_CONSTRAINT_UNIQUE) keep the primary code
	// in the low byte.
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

// rowsAffectedOrNotFound turns "no rows matched" into ErrNotFound.
func rowsAffectedOrNotFound(res sql.Result, resource string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("reading rows affected", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(dateLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parsing stored time %q: %w", s, err)
	}
	return t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
