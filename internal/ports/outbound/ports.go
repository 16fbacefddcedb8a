// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces the planning core uses to reach external systems
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/alchemorsel/vitaplan/internal/domain/knowledge"
)

// ErrCacheMiss is returned by CacheRepository.Get when the key is absent or expired
var ErrCacheMiss = errors.New("cache miss")

// GraphStore is the read-only knowledge graph
type GraphStore interface {
	// FindEntities returns entities whose name contains keyword, in store order
	FindEntities(ctx context.Context, keyword string, limit int) ([]knowledge.Anchor, error)
	// SimilarEntities returns the topK entities nearest to vector by cosine similarity
	SimilarEntities(ctx context.Context, vector []float32, topK int) ([]knowledge.Anchor, error)
	// Neighbors returns relations within depth hops of the named entity, in either direction
	Neighbors(ctx context.Context, name string, depth, limit int) ([]knowledge.Relation, error)
	Ping(ctx context.Context) error
}

// Embedder turns text into a fixed-length vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TextGenerator is the text-generation service
type TextGenerator interface {
	Complete(ctx context.Context, system, user string, temperature float64) (string, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// MetricsRecorder receives pipeline measurements
type MetricsRecorder interface {
	ObserveRetrieval(mode, outcome string, relations int, d time.Duration)
	ObserveGeneration(kind, outcome string, d time.Duration)
	ObserveAssessment(kind string, score float64, safe, semanticOK bool)
	ObserveRun(kind, outcome string, candidates, dropped int, d time.Duration)
	ObserveCache(cache string, hit bool)
}

// NopMetrics discards every measurement
type NopMetrics struct{}

func (NopMetrics) ObserveRetrieval(string, string, int, time.Duration) {}
func (NopMetrics) ObserveGeneration(string, string, time.Duration) {}
func (NopMetrics) ObserveAssessment(string, float64, bool, bool) {}
func (NopMetrics) ObserveRun(string, string, int, int, time.Duration) {}
func (NopMetrics) ObserveCache(string, bool) {}
