package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quarterpin/oraclebot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// OddsCache implements domain.OddsCache using JSON-serialized values with
// per-entry TTLs.
//
// Key schema:
//
//	odds:sports          - the active sports catalogue
//	odds:events:{key}    - events for one provider cache key
type OddsCache struct {
	rdb *redis.Client
}

// NewOddsCache creates an OddsCache backed by the given Client.
func NewOddsCache(c *Client) *OddsCache {
	return &OddsCache{rdb: c.Underlying()}
}

const sportsKey = "odds:sports"

func eventsKey(cacheKey string) string { return "odds:events:" + cacheKey }

// GetSports retrieves the cached sports catalogue.
// It returns domain.ErrNotFound when the catalogue is not cached.
func (oc *OddsCache) GetSports(ctx context.Context) ([]domain.Sport, error) {
	data, err := oc.rdb.Get(ctx, sportsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get sports: %w", err)
	}

	var sports []domain.Sport
	if err := json.Unmarshal(data, &sports); err != nil {
		return nil, fmt.Errorf("redis: unmarshal sports: %w", err)
	}
	return sports, nil
}

// SetSports stores the sports catalogue with the given TTL.
func (oc *OddsCache) SetSports(ctx context.Context, sports []domain.Sport, ttl time.Duration) error {
	data, err := json.Marshal(sports)
	if err != nil {
		return fmt.Errorf("redis: marshal sports: %w", err)
	}
	if err := oc.rdb.Set(ctx, sportsKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set sports: %w", err)
	}
	return nil
}

// GetOdds retrieves cached events for one provider cache key.
// It returns domain.ErrNotFound when the key does not exist.
func (oc *OddsCache) GetOdds(ctx context.Context, cacheKey string) ([]domain.Event, error) {
	data, err := oc.rdb.Get(ctx, eventsKey(cacheKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get odds %s: %w", cacheKey, err)
	}

	var events []domain.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("redis: unmarshal odds %s: %w", cacheKey, err)
	}
	return events, nil
}

// SetOdds stores events for one provider cache key with the given TTL. An
// empty slice is cached too so quiet sports do not trigger repeated upstream
// calls.
func (oc *OddsCache) SetOdds(ctx context.Context, cacheKey string, events []domain.Event, ttl time.Duration) error {
	if events == nil {
		events = []domain.Event{}
	}
	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("redis: marshal odds %s: %w", cacheKey, err)
	}
	if err := oc.rdb.Set(ctx, eventsKey(cacheKey), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set odds %s: %w", cacheKey, err)
	}
	return nil
}

// Invalidate removes one cached odds entry.
func (oc *OddsCache) Invalidate(ctx context.Context, cacheKey string) error {
	if err := oc.rdb.Del(ctx, eventsKey(cacheKey)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate odds %s: %w", cacheKey, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.OddsCache = (*OddsCache)(nil)
