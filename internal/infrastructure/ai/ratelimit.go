package ai

import (
	"context"
	"fmt"

	"github.com/alchemorsel/vitaplan/internal/ports/outbound"
	"golang.org/x/time/rate"
)

// RateLimited gates inference calls through a shared token bucket so
// concurrent generation and assessment never exceed the provider's rate
type RateLimited struct {
	generator outbound.TextGenerator
	embedder  outbound.Embedder
	limiter   *rate.Limiter
}

var (
	_ outbound.TextGenerator = (*RateLimited)(nil)
	_ outbound.Embedder      = (*RateLimited)(nil)
)

// NewRateLimited wraps generator and embedder. A non-positive rps
// disables limiting; embedder may be nil.
func NewRateLimited(generator outbound.TextGenerator, embedder outbound.Embedder, rps float64, burst int) *RateLimited {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		generator: generator,
		embedder:  embedder,
		limiter:   rate.NewLimiter(limit, burst),
	}
}

// Complete waits for a token and then delegates
func (r *RateLimited) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return r.generator.Complete(ctx, system, user, temperature)
}

// Embed waits for a token and then delegates
func (r *RateLimited) Embed(ctx context.Context, text string) ([]float32, error) {
	if r.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return r.embedder.Embed(ctx, text)
}
