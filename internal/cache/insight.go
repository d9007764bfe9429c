// Package cache implements the Insight Cache (C12): a Redis-backed,
// content-addressed store for assembled InsightBundles, shared safely across
// concurrent requests and replicas.
package cache

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lumenlabs/insight-engine/internal/model"
)

const defaultTTL = 24 * time.Hour

// InsightCache wraps a Redis client with the cache_get/cache_put storage
// primitives (spec §6).
type InsightCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates an InsightCache. ttl defaults to 24h when zero.
func New(client *redis.Client, ttl time.Duration) *InsightCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &InsightCache{client: client, ttl: ttl}
}

// Key derives the content-addressed cache key (C12):
// insight_type:base64url(query):sort_and_join(document_ids,",").
func Key(insightType model.InsightType, query string, documentIDs []string) string {
	sorted := append([]string(nil), documentIDs...)
	sort.Strings(sorted)

	encodedQuery := base64.URLEncoding.EncodeToString([]byte(query))
	return string(insightType) + ":" + encodedQuery + ":" + strings.Join(sorted, ",")
}

// Get looks up a bundle by key. A miss (including an expired entry, which
// Redis itself evicts via EXPIRE) returns ok=false. Errors are non-fatal
// (KindCacheError is the caller's concern) — Get reports them via the bool
// return and logs, never panics or propagates.
func (c *InsightCache) Get(ctx context.Context, key string) (*model.InsightBundle, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("[CACHE] get failed, treating as miss", "key", key, "error", err)
		}
		return nil, false
	}

	var bundle model.InsightBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		slog.Warn("[CACHE] corrupt entry, treating as miss", "key", key, "error", err)
		return nil, false
	}
	return &bundle, true
}

// Ping checks Redis connectivity for the health endpoint.
func (c *InsightCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Put stores a bundle under key with the cache's TTL. Failures are logged
// and never surfaced to the caller (spec §7: cache errors never fail a
// request).
func (c *InsightCache) Put(ctx context.Context, key string, bundle *model.InsightBundle) {
	raw, err := json.Marshal(bundle)
	if err != nil {
		slog.Warn("[CACHE] marshal failed, skipping store", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		slog.Warn("[CACHE] put failed", "key", key, "error", err)
	}
}
