package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	domainErrors "github.com/cassiomorais/marketsync/internal/domain/errors"
)

// Store keeps each kind of object in one Redis hash keyed by id.
type Store struct {
	client redis.Cmdable
	prefix string
}

func NewStore(client redis.Cmdable, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) hashKey(kind string) string {
	return fmt.Sprintf("%s:objects:%s", s.prefix, kind)
}

func (s *Store) Put(ctx context.Context, kind, id string, data []byte) error {
	if err := s.client.HSet(ctx, s.hashKey(kind), id, data).Err(); err != nil {
		return fmt.Errorf("redis hset %s/%s: %w", kind, id, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, kind, id string) ([]byte, error) {
	data, err := s.client.HGet(ctx, s.hashKey(kind), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domainErrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis hget %s/%s: %w", kind, id, err)
	}
	return data, nil
}

func (s *Store) List(ctx context.Context, kind string) ([][]byte, error) {
	values, err := s.client.HVals(ctx, s.hashKey(kind)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hvals %s: %w", kind, err)
	}

	out := make([][]byte, len(values))
	for i, v := range values {
		out[i] = []byte(v)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, kind, id string) error {
	if err := s.client.HDel(ctx, s.hashKey(kind), id).Err(); err != nil {
		return fmt.Errorf("redis hdel %s/%s: %w", kind, id, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
