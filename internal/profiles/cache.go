package profiles

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"techslots/internal/model"
)

// CachedSource is a read-through Redis cache in front of another Source.
// Misses and cache errors fall through to the wrapped source; lookup
// failures are never cached.
type CachedSource struct {
	next   Source
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

func NewCachedSource(next Source, rdb *redis.Client, ttl time.Duration, prefix string, logger zerolog.Logger) *CachedSource {
	if prefix == "" {
		prefix = "techslots"
	}
	return &CachedSource{
		next:   next,
		redis:  rdb,
		ttl:    ttl,
		prefix: prefix,
		logger: logger.With().Str("component", "profiles_cache").Logger(),
	}
}

func (c *CachedSource) cacheKey(id string) string {
	return c.prefix + ":technician:" + id
}

func (c *CachedSource) Technician(ctx context.Context, id string) (*model.Technician, error) {
	var t model.Technician
	if c.readCache(ctx, c.cacheKey(id), &t) {
		t.ID = id
		return &t, nil
	}

	found, err := c.next.Technician(ctx, id)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, c.cacheKey(id), found)
	return found, nil
}

// Invalidate drops cached profiles, e.g. after the profile file changed.
func (c *CachedSource) Invalidate(ctx context.Context, ids ...string) error {
	if c.redis == nil || len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.cacheKey(id)
	}
	return c.redis.Del(ctx, keys...).Err()
}

func (c *CachedSource) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.ttl <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("profile cache read failed")
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *CachedSource) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}
