// Package redisstore backs the mailbox with Redis, letting the
// orchestrator and the portal agent run as separate processes.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store implements the mailbox store on a Redis connection.
type Store struct {
	client *redis.Client
}

// NewStore connects to Redis at the given URL and verifies the connection.
func NewStore(ctx context.Context, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redisstore: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisstore: connect: %w", err)
	}
	return &Store{client: client}, nil
}

// NewStoreFromClient wraps an existing client, used by tests.
func NewStoreFromClient(client *redis.Client) (*Store, error) {
	if client == nil {
		return nil, errors.New("redisstore: client is required")
	}
	return &Store{client: client}, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *Store) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.client.Close()
}
