package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"
)

type postgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Store backed by the kv_entries table
func NewPostgresStore(db *sql.DB) Store {
	return &postgresStore{db: db}
}

// Get retrieves a value by key using parameterized queries
func (s *postgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM kv_entries WHERE key = $1`

	var value []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: failed to get %q: %v", ErrUnavailable, key, err)
	}

	return value, nil
}

// Set upserts a single value
func (s *postgresStore) Set(ctx context.Context, key string, value []byte) error {
	if err := upsert(ctx, s.db, key, value); err != nil {
		return fmt.Errorf("%w: failed to set %q: %v", ErrUnavailable, key, err)
	}
	return nil
}

// Delete removes keys; missing keys are ignored
func (s *postgresStore) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
			return fmt.Errorf("%w: failed to delete %q: %v", ErrUnavailable, key, err)
		}
	}
	return nil
}

// Apply runs the whole batch inside one transaction
func (s *postgresStore) Apply(ctx context.Context, batch *Batch) error {
	if batch == nil || batch.Empty() {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	// Deterministic order keeps lock acquisition stable across writers
	keys := make([]string, 0, len(batch.Sets))
	for key := range batch.Sets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := upsert(ctx, tx, key, batch.Sets[key]); err != nil {
			return fmt.Errorf("%w: failed to set %q: %v", ErrUnavailable, key, err)
		}
	}

	for _, key := range batch.Deletes {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
			return fmt.Errorf("%w: failed to delete %q: %v", ErrUnavailable, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *postgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *postgresStore) Close() error {
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, key string, value []byte) error {
	query := `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	_, err := db.ExecContext(ctx, query, key, string(value), time.Now().UTC())
	return err
}
