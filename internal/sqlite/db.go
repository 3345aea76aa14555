// Package sqlite implements the runclub stores on an embedded SQLite
// database (ncruces/go-sqlite3, no cgo).
//
// SQLite has a single writer. Every write transaction is opened with
// BEGIN IMMEDIATE (via the _txlock DSN parameter), so the write lock is held
// from the first statement: the occupancy read, the capacity decision and the
// insert of an admission cannot interleave with another writer. A BEFORE
// INSERT trigger and the unique (user_id, run_id) index back that up at the
// schema level.
package sqlite

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/Shivanand-hulikatti/runclub/internal/log"
)

// busyTimeoutMS bounds how long a writer waits for the database lock before
// the attempt fails with SQLITE_BUSY.
const busyTimeoutMS = 10000

// DB owns the SQLite connection and hands out the repositories built on it.
type DB struct {
	conn *sql.DB
	path string
}

// NewDB opens (creating if needed) the database at path and applies the schema.
func NewDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		log.ErrorErr(log.CatDB, "Failed to open database", err, "path", path)
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		log.ErrorErr(log.CatDB, "Failed to ping database", err, "path", path)
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	log.Info(log.CatDB, "Connected to database", "path", path)
	return &DB{conn: conn, path: path}, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_txlock", "immediate")
	return "file:" + filepath.ToSlash(path) + "?" + q.Encode()
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// RunRepository returns the event store.
func (db *DB) RunRepository() *RunRepository {
	return &RunRepository{db: db.conn}
}

// SignUpRepository returns the registration ledger.
func (db *DB) SignUpRepository() *SignUpRepository {
	return &SignUpRepository{db: db.conn}
}

// UserRepository returns the account store.
func (db *DB) UserRepository() *UserRepository {
	return &UserRepository{db: db.conn}
}
