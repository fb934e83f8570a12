package cmd

import (
	"fmt"

	countermemory "github.com/orchid-run/orchid/pkg/counter/memory"
	counterredis "github.com/orchid-run/orchid/pkg/counter/redis"
	"github.com/orchid-run/orchid/pkg/protocol"
)

// NewCounterStore returns the redis-backed counter store when a URL is
// given, and the in-process store otherwise. Routing fairness across
// multiple workers needs redis.
func NewCounterStore(redisURL string) (protocol.CounterStore, error) {
	if redisURL == "" {
		return countermemory.NewCounterStore(), nil
	}

	store, err := counterredis.NewCounterStoreFromURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis counter store: %w", err)
	}

	return store, nil
}
