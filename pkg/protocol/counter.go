package protocol

import "context"

// CounterStore is a durable, concurrency-safe increment-and-get primitive.
// The router's round-robin and weighted modes depend on Incr being atomic:
// two concurrent runs must never observe the same value for one key.
type CounterStore interface {
	// Incr atomically increments the counter for key and returns the new
	// value. The first increment returns 1.
	Incr(ctx context.Context, key string) (int64, error)
}
