// Package cache provides a Redis-backed cache for prediction results.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"classifier_backend/internal/feature/classification/domain/entity"
	"classifier_backend/internal/feature/classification/usecase"
)

const (
	// DefaultTTL is used when a non-positive TTL is given.
	DefaultTTL = 10 * time.Minute
	// DefaultNamespace prefixes every key when no namespace is given.
	DefaultNamespace = "predictions"
)

var _ usecase.PredictionCache = (*PredictionCache)(nil)

// PredictionCache stores predictions keyed by image digest.
// All operations are best effort; a nil client turns the cache into a no-op.
type PredictionCache struct {
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// cachedPrediction is the JSON document stored per key.
type cachedPrediction struct {
	Label         string    `json:"class_label"`
	Probabilities []float64 `json:"probabilities"`
}

// NewPredictionCache creates a cache. If ttl is 0, it defaults to 10 minutes.
// If namespace is empty, it uses "predictions".
func NewPredictionCache(rdb *redis.Client, ttl time.Duration, namespace string) *PredictionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &PredictionCache{
		rdb:       rdb,
		ttl:       ttl,
		namespace: safe(namespace),
	}
}

// Get returns the cached prediction for key.
func (c *PredictionCache) Get(ctx context.Context, key string) (*entity.Prediction, bool) {
	if c.rdb == nil {
		return nil, false
	}
	k := c.cacheKey(key)

	b, err := c.rdb.Get(ctx, k).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "prediction cache read failed", "key", k, "error", err)
		}
		return nil, false
	}

	var cp cachedPrediction
	if err := json.Unmarshal(b, &cp); err != nil || cp.Label == "" {
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, k).Err()
		return nil, false
	}
	return &entity.Prediction{Label: cp.Label, Probabilities: cp.Probabilities}, true
}

// Set stores p under key with the configured TTL.
func (c *PredictionCache) Set(ctx context.Context, key string, p *entity.Prediction) {
	if c.rdb == nil || p == nil {
		return
	}
	b, err := json.Marshal(cachedPrediction{Label: p.Label, Probabilities: p.Probabilities})
	if err != nil {
		return
	}
	k := c.cacheKey(key)
	if err := c.rdb.Set(ctx, k, b, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "prediction cache write failed", "key", k, "error", err)
	}
}

// Purge deletes every entry in the namespace and returns how many keys were removed.
func (c *PredictionCache) Purge(ctx context.Context) (int, error) {
	if c.rdb == nil {
		return 0, nil
	}
	return c.deleteByPattern(ctx, c.namespace+":*")
}

// cacheKey generates the Redis key for an image digest.
func (c *PredictionCache) cacheKey(key string) string {
	return fmt.Sprintf("%s:%s", c.namespace, safe(key))
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *PredictionCache) deleteByPattern(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := c.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += int(n)
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return deleted, nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "*", "_")
	return s
}
