// Package ai composes inference clients with caching and rate limiting
package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/alchemorsel/vitaplan/internal/ports/outbound"
	"go.uber.org/zap"
)

const embeddingCacheName = "embedding"

// CachedEmbedder wraps an embedder with a cache-first lookup. Cache
// failures never fail the embedding call.
type CachedEmbedder struct {
	embedder outbound.Embedder
	cache    outbound.CacheRepository
	metrics  outbound.MetricsRecorder
	ttl      time.Duration
	model    string
	logger   *zap.Logger
}

var _ outbound.Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder creates a caching embedder. model is part of the
// cache key so switching models never returns stale vectors.
func NewCachedEmbedder(
	embedder outbound.Embedder,
	cache outbound.CacheRepository,
	metrics outbound.MetricsRecorder,
	model string,
	ttl time.Duration,
	logger *zap.Logger,
) *CachedEmbedder {
	if metrics == nil {
		metrics = outbound.NopMetrics{}
	}
	return &CachedEmbedder{
		embedder: embedder,
		cache:    cache,
		metrics:  metrics,
		ttl:      ttl,
		model:    model,
		logger:   logger.Named("cached-embedder"),
	}
}

// Embed returns the cached vector for text or computes and stores it
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	if data, err := c.cache.Get(ctx, key); err == nil {
		var vec []float32
		if jsonErr := json.Unmarshal(data, &vec); jsonErr == nil && len(vec) > 0 {
			c.metrics.ObserveCache(embeddingCacheName, true)
			return vec, nil
		}
		c.logger.Warn("Discarding corrupt cached embedding", zap.String("key", key))
	} else if !errors.Is(err, outbound.ErrCacheMiss) {
		c.logger.Warn("Embedding cache lookup failed", zap.Error(err))
	}
	c.metrics.ObserveCache(embeddingCacheName, false)

	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(vec); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.Warn("Failed to cache embedding", zap.Error(err))
		}
	}
	return vec, nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return "embedding:" + hex.EncodeToString(sum[:])
}
