package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/udyamcap/lending-engine/internal/domain/model"
	"github.com/udyamcap/lending-engine/internal/domain/port"
)

// Compile-time interface checks.
var (
	_ port.OfferCache = (*RedisOfferCache)(nil)
	_ port.OfferCache = (*NoopOfferCache)(nil)
)

// RedisOfferCache caches offer lists in Redis keyed by application ID. Cache
// failures are logged and treated as misses; the database stays the source
// of truth.
type RedisOfferCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisOfferCache creates a cache backed by the given Redis instance.
func NewRedisOfferCache(addr, password string, db int, logger *slog.Logger) *RedisOfferCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisOfferCache{client: rdb, logger: logger}
}

func offerKey(applicationID string) string {
	return "offers:" + applicationID
}

// Get returns the cached offer list, if present.
func (c *RedisOfferCache) Get(ctx context.Context, applicationID string) ([]model.Offer, bool) {
	raw, err := c.client.Get(ctx, offerKey(applicationID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("offer cache read failed", "application_id", applicationID, "error", err)
		}
		return nil, false
	}
	var offers []model.Offer
	if err := json.Unmarshal(raw, &offers); err != nil {
		c.logger.Warn("offer cache entry corrupt", "application_id", applicationID, "error", err)
		return nil, false
	}
	return offers, true
}

// Set stores the offer list with a TTL.
func (c *RedisOfferCache) Set(ctx context.Context, applicationID string, offers []model.Offer, ttl time.Duration) {
	raw, err := json.Marshal(offers)
	if err != nil {
		c.logger.Warn("offer cache encode failed", "application_id", applicationID, "error", err)
		return
	}
	if err := c.client.Set(ctx, offerKey(applicationID), raw, ttl).Err(); err != nil {
		c.logger.Warn("offer cache write failed", "application_id", applicationID, "error", err)
	}
}

// Invalidate drops the cached offer list.
func (c *RedisOfferCache) Invalidate(ctx context.Context, applicationID string) {
	if err := c.client.Del(ctx, offerKey(applicationID)).Err(); err != nil {
		c.logger.Warn("offer cache invalidate failed", "application_id", applicationID, "error", err)
	}
}

// Close releases the underlying connection pool.
func (c *RedisOfferCache) Close() error {
	return c.client.Close()
}

// NoopOfferCache is used when no Redis address is configured. Every lookup
// misses.
type NoopOfferCache struct{}

// NewNoopOfferCache creates a cache that stores nothing.
func NewNoopOfferCache() *NoopOfferCache { return &NoopOfferCache{} }

func (NoopOfferCache) Get(context.Context, string) ([]model.Offer, bool)         { return nil, false }
func (NoopOfferCache) Set(context.Context, string, []model.Offer, time.Duration) {}
func (NoopOfferCache) Invalidate(context.Context, string)                        {}
