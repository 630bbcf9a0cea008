package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const busyTimeoutMs = "5000"

// OpenSQLite opens a sqlite3 database. ":memory:" (or "") opens a private
// database in a fresh temporary directory that is removed on Close. It runs
// in WAL mode like a file database so that reads proceed while a write
// transaction is open.
func OpenSQLite(path string) (*sql.DB, error) {
	if path == "" || strings.HasPrefix(path, ":memory:") {
		return openPrivate()
	}

	db, err := sql.Open("sqlite3", withDefaults(path))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func withDefaults(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=" + busyTimeoutMs + "&_journal_mode=WAL"
}

func openPrivate() (*sql.DB, error) {
	dir, err := os.MkdirTemp("", "htlc-sqlite-")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temp dir")
	}

	db := sql.OpenDB(&privateConnector{
		dsn:    withDefaults(filepath.Join(dir, "db.sqlite")),
		dir:    dir,
		driver: &sqlite3.SQLiteDriver{},
	})
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// privateConnector opens connections to a database living in dir. sql.DB
// calls Close once the pool is closed.
type privateConnector struct {
	dsn    string
	dir    string
	driver *sqlite3.SQLiteDriver
}

func (c *privateConnector) Connect(context.Context) (driver.Conn, error) {
	return c.driver.Open(c.dsn)
}

func (c *privateConnector) Driver() driver.Driver {
	return c.driver
}

func (c *privateConnector) Close() error {
	return os.RemoveAll(c.dir)
}
