// Package sqlkv implements kv.Store on top of a database/sql handle. It is
// used with modernc sqlite for local state and with libsql for a remote replica.
package sqlkv

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const Schema = `CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// Store implements kv.Store with a single `kv` table.
type Store struct {
	db *sql.DB
}

// New wraps an open database, creating the table if needed.
func New(db *sql.DB) (Store, error) {
	_, err := db.Exec(Schema)
	if err != nil {
		return Store{}, fmt.Errorf("create kv table: %w", err)
	}
	return Store{db: db}, nil
}

func (s Store) Read(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return value, true, nil
}

func (s Store) Write(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Keys lists every stored key, sorted.
func (s Store) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// OpenSqlite opens (creating if needed) a local sqlite database file.
// ":memory:" opens a private in-memory database.
func OpenSqlite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0o750)
		if err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite only supports a single writer, serializing through one connection
	// also keeps ":memory:" databases from splitting per connection.
	db.SetMaxOpenConns(1)
	if path != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// OpenLibsql opens a remote libsql database.
func OpenLibsql(url, authToken string) (*sql.DB, error) {
	if url == "" {
		return nil, fmt.Errorf("a url was not specified")
	}
	dsn := url
	if authToken != "" {
		dsn = fmt.Sprintf("%s?authToken=%s", url, authToken)
	}
	return sql.Open("libsql", dsn)
}
