// Package postgres provides a Postgres-backed checkpoint.Store using pgx.
// Documents are stored as JSONB rows keyed by checkpoint id.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hupe1980/agentbus/checkpoint"
)

// Options configures the store.
type Options struct {
	// Table is the fully qualified table name. Defaults to "agentbus_checkpoints".
	Table string
}

// Store persists checkpoints in Postgres. Safe for concurrent use; the pool
// handles connection lifecycle.
type Store struct {
	pool  *pgxpool.Pool
	table string
}

// New creates a Store on top of an existing pgx pool. The store does not take
// ownership of the pool.
func New(pool *pgxpool.Pool, optFns ...func(o *Options)) *Store {
	opts := Options{Table: "agentbus_checkpoints"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{pool: pool, table: opts.Table}
}

// EnsureSchema creates the backing table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          TEXT PRIMARY KEY,
			captured_at TIMESTAMPTZ NOT NULL,
			document    JSONB NOT NULL
		)`, s.table))
	if err != nil {
		return fmt.Errorf("ensure checkpoint schema: %w", err)
	}
	return nil
}

// Save upserts the document.
func (s *Store) Save(ctx context.Context, cp *checkpoint.Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return err
	}
	data, err := cp.Marshal()
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, captured_at, document) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET captured_at = EXCLUDED.captured_at, document = EXCLUDED.document`, s.table),
		cp.ID, cp.CapturedAt, data)
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", cp.ID, err)
	}
	return nil
}

// Load returns the checkpoint with the given id or checkpoint.ErrNotFound.
func (s *Store) Load(ctx context.Context, id string) (*checkpoint.Checkpoint, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT document FROM %s WHERE id = $1`, s.table), id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, checkpoint.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", id, err)
	}
	return checkpoint.Unmarshal(data)
}

// Latest returns the most recently captured checkpoint.
func (s *Store) Latest(ctx context.Context) (*checkpoint.Checkpoint, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT document FROM %s ORDER BY captured_at DESC, id DESC LIMIT 1`, s.table)).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, checkpoint.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest checkpoint: %w", err)
	}
	return checkpoint.Unmarshal(data)
}

// List returns known checkpoint ids ordered oldest first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT id FROM %s ORDER BY captured_at ASC, id ASC`, s.table))
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes a checkpoint. Deleting an unknown id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table), id)
	if err != nil {
		return fmt.Errorf("delete checkpoint %s: %w", id, err)
	}
	return nil
}
