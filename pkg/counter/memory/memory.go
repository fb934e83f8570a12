// Package memory provides an in-process counter store for tests and
// single-node deployments.
package memory

import (
	"context"
	"sync"
)

// CounterStore implements protocol.CounterStore with a mutex-guarded map.
// Counters survive for the lifetime of the process only.
type CounterStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewCounterStore() *CounterStore {
	return &CounterStore{counters: make(map[string]int64)}
}

func (s *CounterStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[key]++

	return s.counters[key], nil
}
