package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Store on top of a redis client. Every key is
// stored under prefix.
func NewRedisStore(client *redis.Client, prefix string) Store {
	return &redisStore{client: client, prefix: prefix}
}

func (s *redisStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: failed to get %q: %v", ErrUnavailable, key, err)
	}
	return value, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: failed to set %q: %v", ErrUnavailable, key, err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, s.keys(keys)...).Err(); err != nil {
		return fmt.Errorf("%w: failed to delete keys: %v", ErrUnavailable, err)
	}
	return nil
}

// Apply wraps the batch in MULTI/EXEC
func (s *redisStore) Apply(ctx context.Context, batch *Batch) error {
	if batch == nil || batch.Empty() {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range batch.Sets {
			pipe.Set(ctx, s.key(key), value, 0)
		}
		if len(batch.Deletes) > 0 {
			pipe.Del(ctx, s.keys(batch.Deletes)...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: failed to apply batch: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *redisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

func (s *redisStore) keys(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = s.key(k)
	}
	return out
}
