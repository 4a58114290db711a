package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "billhub:idempotency:"

// pendingMarker is stored while the owning request is in flight
const pendingMarker = "pending"

// RedisIdempotencyStore shares idempotency state between instances through
// Redis. Reservation uses SET NX so exactly one request owns a key.
type RedisIdempotencyStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisIdempotencyStore creates a store on an existing client.
// An empty prefix uses "billhub:idempotency:".
func NewRedisIdempotencyStore(client redis.UniversalClient, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix}
}

// Reserve claims key with SET NX. When the key exists its value tells a
// pending request from a completed one.
func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string, lockTTL time.Duration) (Reservation, error) {
	if key == "" {
		return Reservation{}, ErrInvalidKey
	}
	k := s.keyPrefix + key

	// A second attempt covers the key expiring between SETNX and GET
	for range 2 {
		ok, err := s.client.SetNX(ctx, k, pendingMarker, lockTTL).Result()
		if err != nil {
			return Reservation{}, fmt.Errorf("failed to reserve idempotency key: %w", err)
		}
		if ok {
			return Reservation{Acquired: true}, nil
		}

		raw, err := s.client.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return Reservation{}, fmt.Errorf("failed to read idempotency key: %w", err)
		}
		if string(raw) == pendingMarker {
			return Reservation{}, nil
		}
		var resp StoredResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return Reservation{}, fmt.Errorf("failed to decode stored response: %w", err)
		}
		return Reservation{Response: &resp}, nil
	}
	return Reservation{}, nil
}

// Complete overwrites the pending marker with the response
func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store response: %w", err)
	}
	return nil
}

// Release deletes key
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

var _ IdempotencyStore = (*RedisIdempotencyStore)(nil)
