// Package sqlite is the embedded single-file backend, used for small
// installations and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"inventar-backend/internal/models"
	"inventar-backend/internal/store"

	sqlitedriver "modernc.org/sqlite" // pure go sqlite driver
	sqlite3 "modernc.org/sqlite/lib"
)

// timeLayout is fixed width so text comparison orders timestamps
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// dbtx is satisfied by *sql.DB and *sql.Tx
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

func (q queries) Changelog() store.ChangelogRepository { return &changelogRepo{db: q.db} }
func (q queries) Items() store.ItemRepository          { return &itemRepo{db: q.db} }
func (q queries) Locations() store.LocationRepository  { return &locationRepo{db: q.db} }
func (q queries) Users() store.UserRepository          { return &userRepo{db: q.db} }

// Store keeps all writers on one connection. SQLite allows a single writer,
// and the mutex gives InEntityTx its exclusive-lock semantics.
type Store struct {
	queries
	db   *sql.DB
	mu   sync.Mutex
	path string
}

var _ store.Store = (*Store)(nil)

// Open opens (and creates) the database file. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "inventar.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	// pragmas in the DSN apply to every connection the pool opens
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &Store{queries: queries{db: db}, db: db, path: path}, nil
}

// DB exposes the handle for migrations
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

func (s *Store) InTx(ctx context.Context, fn store.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, queries{db: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// InEntityTx is InTx: with one writer at a time every transaction already
// holds the entity exclusively
func (s *Store) InEntityTx(ctx context.Context, _ models.EntityType, _ int64, fn store.TxFunc) error {
	return s.InTx(ctx, fn)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() {
	_ = s.db.Close()
}

// mapError converts driver errors into store sentinel errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var sqlErr *sqlitedriver.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return errors.Join(store.ErrDuplicate, err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return errors.Join(store.ErrInUse, err)
		case sqlite3.SQLITE_CONSTRAINT_TRIGGER:
			// RESTRICT actions surface as trigger constraints
			if strings.Contains(err.Error(), "FOREIGN KEY") {
				return errors.Join(store.ErrInUse, err)
			}
		}
	}
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// placeholders returns "?, ?, ?" and the ids as arguments
func placeholders(ids []int64) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ", "), args
}

// namesByID loads id -> name for the given table. table is never user input.
func namesByID(ctx context.Context, db dbtx, table string, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	marks, args := placeholders(ids)
	rows, err := db.QueryContext(ctx, `SELECT id, name FROM `+table+` WHERE id IN (`+marks+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

func count(ctx context.Context, db dbtx, query string, args ...any) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}
