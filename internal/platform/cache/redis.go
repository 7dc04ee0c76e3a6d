package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// New creates a Redis client and verifies connectivity.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping: %w", err)
	}

	return client, nil
}

// Blob stores opaque byte payloads under a key prefix with a fixed TTL.
// A nil Blob or client behaves as an always-empty cache.
type Blob struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewBlob constructs a Blob cache.
func NewBlob(client *redis.Client, prefix string, ttl time.Duration) *Blob {
	return &Blob{client: client, prefix: prefix, ttl: ttl}
}

// Get returns the cached payload and whether it was present.
func (b *Blob) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if b == nil || b.client == nil {
		return nil, false, nil
	}
	data, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("platform/cache: get %s: %w", key, err)
	}
	return data, true, nil
}

// Set stores a payload.
func (b *Blob) Set(ctx context.Context, key string, data []byte) error {
	if b == nil || b.client == nil {
		return nil
	}
	if err := b.client.Set(ctx, b.prefix+key, data, b.ttl).Err(); err != nil {
		return fmt.Errorf("platform/cache: set %s: %w", key, err)
	}
	return nil
}
