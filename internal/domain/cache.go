package domain

import (
	"context"
	"time"
)

// OddsCache is a read-through cache for odds-provider responses. The sports
// catalogue changes rarely and is cached for hours; per-sport odds move with
// the market and are cached for minutes.
type OddsCache interface {
	GetSports(ctx context.Context) ([]Sport, error)
	SetSports(ctx context.Context, sports []Sport, ttl time.Duration) error
	GetOdds(ctx context.Context, cacheKey string) ([]Event, error)
	SetOdds(ctx context.Context, cacheKey string, events []Event, ttl time.Duration) error
	Invalidate(ctx context.Context, cacheKey string) error
}

// RateLimiter provides distributed rate limiting, used to stay inside the
// odds provider's request quota.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking so concurrent worker replicas do
// not process the same job queue entries twice.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub fan-out and durable streams for detected
// opportunities and completed predictions.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
