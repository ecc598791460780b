package storage

import (
	"database/sql"
	"errors"
	"fmt"
	log "github.com/sirupsen/logrus"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS local_storage (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`

type sqliteLocalStorageAdapter struct {
	conn *sql.DB
	path string
}

// NewSqliteLocalStorage opens (and creates when missing) a durable key-value
// file, so the session and plan caches survive between CLI runs.
func NewSqliteLocalStorage(path string) (*sqliteLocalStorageAdapter, error) {
	const stage = "Opening sqlite local storage error."

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, newErr(stage, err)
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, newErr(stage, err)
	}
	// sqlite allows one writer at a time
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, newErr(stage, err)
	}
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, newErr(stage, err)
	}

	log.Debugf("Sqlite local storage opened. Path: %v", path)
	return &sqliteLocalStorageAdapter{conn: conn, path: path}, nil
}

func (adapter *sqliteLocalStorageAdapter) Get(key string) (string, bool) {
	var value string
	err := adapter.conn.QueryRow(`SELECT value FROM local_storage WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		log.Warnf("Reading key '%v' from sqlite local storage error. Reason: %v", key, err)
		return "", false
	}
	return value, true
}

func (adapter *sqliteLocalStorageAdapter) Set(key string, value string) error {
	_, err := adapter.conn.Exec(`
		INSERT INTO local_storage (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return newErr("Writing sqlite local storage error.", err)
	}
	return nil
}

func (adapter *sqliteLocalStorageAdapter) Remove(key string) error {
	if _, err := adapter.conn.Exec(`DELETE FROM local_storage WHERE key = ?`, key); err != nil {
		return newErr("Removing from sqlite local storage error.", err)
	}
	return nil
}

func (adapter *sqliteLocalStorageAdapter) Keys() ([]string, error) {
	const stage = "Listing sqlite local storage keys error."

	rows, err := adapter.conn.Query(`SELECT key FROM local_storage ORDER BY key`)
	if err != nil {
		return nil, newErr(stage, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, newErr(stage, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, newErr(stage, err)
	}
	return keys, nil
}

func (adapter *sqliteLocalStorageAdapter) Close() error {
	return adapter.conn.Close()
}

func newErr(stage string, reason interface{}) error {
	if err, ok := reason.(error); ok {
		return fmt.Errorf("%v Reason: %w", stage, err)
	}
	return fmt.Errorf("%v Reason: %v", stage, reason)
}
