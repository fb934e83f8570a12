// Package redis provides the durable counter store used by the router's
// round-robin and weighted modes.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultTTL bounds key growth: counters idle longer than this expire. The
// router tolerates a reset counter, it only shifts the rotation offset.
const DefaultTTL = 30 * 24 * time.Hour

// CounterStore implements protocol.CounterStore on Redis INCR.
type CounterStore struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

func NewCounterStore(client goredis.UniversalClient) *CounterStore {
	return &CounterStore{client: client, ttl: DefaultTTL}
}

// NewCounterStoreFromURL connects using a redis:// URL.
func NewCounterStoreFromURL(url string) (*CounterStore, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return NewCounterStore(goredis.NewClient(opts)), nil
}

// Incr atomically increments key and refreshes its expiry. The expiry is
// best effort: a failed EXPIRE never fails the increment.
func (s *CounterStore) Incr(ctx context.Context, key string) (int64, error) {
	value, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("counter incr %s: %w", key, err)
	}

	_ = s.client.Expire(ctx, key, s.ttl).Err()

	return value, nil
}

// Close releases the underlying client.
func (s *CounterStore) Close() error {
	return s.client.Close()
}
