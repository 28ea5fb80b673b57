// Package cache keeps short-lived derived data (tag list, stats) out of the
// database. Entries are always safe to drop.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"inventar-backend/internal/metrics"

	log "github.com/sirupsen/logrus"
)

// Cache keys
const (
	TagsKey  = "inventar:tags"
	StatsKey = "inventar:stats"
)

// Cache is a byte cache with per-entry TTL. Failures degrade to misses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
}

// GetJSON decodes the cached value into v and records the lookup result
func GetJSON(ctx context.Context, c Cache, key string, v any) bool {
	data, ok := c.Get(ctx, key)
	if ok {
		if err := json.Unmarshal(data, v); err != nil {
			log.WithFields(log.Fields{"component": "cache", "key": key}).WithError(err).Warn("dropping undecodable cache entry")
			c.Delete(ctx, key)
			ok = false
		}
	}
	if ok {
		metrics.CacheRequests.WithLabelValues("hit").Inc()
	} else {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
	}
	return ok
}

// SetJSON encodes v and stores it under key
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(ctx, key, data, ttl)
}

// InvalidateInventory clears everything derived from items, locations or the changelog
func InvalidateInventory(ctx context.Context, c Cache) {
	c.Delete(ctx, TagsKey, StatsKey)
}
