// Package redis provides a Redis-backed checkpoint.Store. Documents are kept
// as JSON strings under a key prefix with a sorted-set index by capture time
// supporting Latest and List.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/agentbus/checkpoint"
)

// Options configures the store.
type Options struct {
	// KeyPrefix namespaces all keys written by the store. Defaults to
	// "agentbus:checkpoint".
	KeyPrefix string
}

// Store persists checkpoints in Redis. Safe for concurrent use; all
// synchronization is delegated to Redis commands.
type Store struct {
	client *redis.Client
	prefix string
}

// New creates a Store on top of an existing Redis client. The store does not
// take ownership of the client; closing it remains the caller's concern.
func New(client *redis.Client, optFns ...func(o *Options)) *Store {
	opts := Options{KeyPrefix: "agentbus:checkpoint"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{client: client, prefix: opts.KeyPrefix}
}

func (s *Store) docKey(id string) string { return s.prefix + ":doc:" + id }

func (s *Store) indexKey() string { return s.prefix + ":index" }

// Save writes the document and indexes it by capture time.
func (s *Store) Save(ctx context.Context, cp *checkpoint.Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return err
	}
	data, err := cp.Marshal()
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.docKey(cp.ID), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(cp.CapturedAt.UnixNano()), Member: cp.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", cp.ID, err)
	}
	return nil
}

// Load returns the checkpoint with the given id or checkpoint.ErrNotFound.
func (s *Store) Load(ctx context.Context, id string) (*checkpoint.Checkpoint, error) {
	data, err := s.client.Get(ctx, s.docKey(id)).Bytes()
	if err == redis.Nil {
		return nil, checkpoint.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", id, err)
	}
	return checkpoint.Unmarshal(data)
}

// Latest returns the most recently captured checkpoint.
func (s *Store) Latest(ctx context.Context) (*checkpoint.Checkpoint, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("latest checkpoint: %w", err)
	}
	if len(ids) == 0 {
		return nil, checkpoint.ErrNotFound
	}
	return s.Load(ctx, ids[0])
}

// List returns known checkpoint ids ordered oldest first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	return ids, nil
}

// Delete removes a checkpoint and its index entry. Deleting an unknown id is
// not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.docKey(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete checkpoint %s: %w", id, err)
	}
	return nil
}
