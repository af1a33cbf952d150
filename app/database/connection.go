package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle together with the lock that keeps a second
// process from writing the same database file.
type DB struct {
	*sql.DB
	lock *flock.Flock
}

// NewConnection locks and opens the SQLite database at path.
func NewConnection(path string) (*DB, error) {
	lock := flock.New(path + ".lock")

	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire database lock: %w", err)
	}
	if !ok {
		return nil, errors.New("database is locked by another process")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_time_format=sqlite", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers anyway
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: sqlDB, lock: lock}, nil
}

// Close closes the database and releases the lock.
func (db *DB) Close() error {
	err := db.DB.Close()
	if unlockErr := db.lock.Unlock(); unlockErr != nil && err == nil {
		err = fmt.Errorf("failed to release database lock: %w", unlockErr)
	}
	return err
}
