// Package pgkv implements kv.Store on postgres.
package pgkv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const Schema = `CREATE TABLE IF NOT EXISTS feedwarden_kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// Store implements kv.Store with a single table. Every call is bounded by the
// configured timeout since the kv interface carries no context.
type Store struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// Open connects to the database at url and creates the table if needed.
func Open(ctx context.Context, url string) (*Store, error) {
	if url == "" {
		return nil, fmt.Errorf("a url was not specified")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	_, err = pool.Exec(ctx, Schema)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &Store{pool: pool, timeout: 5 * time.Second}, nil
}

func (s *Store) Read(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM feedwarden_kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Write(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.pool.Exec(
		ctx,
		`INSERT INTO feedwarden_kv (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
