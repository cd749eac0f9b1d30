// Package db defines the key-value store contract backing the plan cache
// and the planner budget counters.
package db

import (
	"context"
	"time"
)

// Store is everything the composition root needs from one connection.
type Store interface {
	Pinger
	PlanStore
	CounterStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PlanStore holds cached planner replies, which always expire.
type PlanStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CounterStore holds the token budget counters. Get returns the decimal
// counter value as stored.
type CounterStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}
