// Package snapshot persists the last good normalized catalogue in Redis so
// restarts can serve content before the upstream sheet is reachable again.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"orbit/api/internal/catalogue"
	"github.com/redis/go-redis/v9"
)

// ErrNoSnapshot is returned by Load when no snapshot has been saved yet or
// the stored one has expired.
var ErrNoSnapshot = errors.New("no catalogue snapshot")

// Envelope is the stored shape: the items together with when they were fetched.
type Envelope struct {
	FetchedAt time.Time        `json:"fetched_at"`
	Items     []catalogue.Item `json:"items"`
}

// RedisStore implements snapshot storage using Redis
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a new Redis-backed snapshot store
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		key:    "catalogue:snapshot",
	}, nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		key:    "catalogue:snapshot",
	}
}

// Save stores the normalized catalogue with the given TTL. A zero or negative
// TTL stores the snapshot without expiration.
func (s *RedisStore) Save(ctx context.Context, items []catalogue.Item, ttl time.Duration) error {
	env := Envelope{
		FetchedAt: time.Now(),
		Items:     items,
	}

	jsonData, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if ttl < 0 {
		ttl = 0
	}

	if err := s.client.Set(ctx, s.key, jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	return nil
}

// Load retrieves the stored catalogue. Returns ErrNoSnapshot when absent.
func (s *RedisStore) Load(ctx context.Context) ([]catalogue.Item, error) {
	jsonData, err := s.client.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal([]byte(jsonData), &env); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return env.Items, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
