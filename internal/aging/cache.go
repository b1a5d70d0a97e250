package aging

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps Redis based caching for aging schedules. Cached schedules are
// point-in-time snapshots; staleness is bounded by the TTL, not by
// invalidation on writes. A nil client degrades to calling the loader
// directly.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Fetch loads a cached schedule or populates it using the loader.
func (c *Cache) Fetch(ctx context.Context, key string, loader func(context.Context) (Schedule, error)) (Schedule, error) {
	if loader == nil {
		return Schedule{}, errors.New("aging: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var schedule Schedule
		if err := json.Unmarshal(payload, &schedule); err == nil {
			return schedule, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return Schedule{}, err
	}
	schedule, err := loader(ctx)
	if err != nil {
		return Schedule{}, err
	}
	raw, err := json.Marshal(schedule)
	if err != nil {
		return Schedule{}, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return Schedule{}, err
	}
	return schedule, nil
}
