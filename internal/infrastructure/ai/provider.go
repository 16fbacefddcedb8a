package ai

import (
	"context"
	"fmt"

	"github.com/alchemorsel/vitaplan/internal/infrastructure/ai/ollama"
	"github.com/alchemorsel/vitaplan/internal/infrastructure/ai/openai"
	"github.com/alchemorsel/vitaplan/internal/infrastructure/config"
	"github.com/alchemorsel/vitaplan/internal/ports/outbound"
	"go.uber.org/zap"
)

// Client is an inference backend able to generate, embed and report health
type Client interface {
	outbound.TextGenerator
	outbound.Embedder
	HealthCheck(ctx context.Context) error
}

// Provider bundles the configured generator and embedder together with
// the raw clients used for health probes
type Provider struct {
	Generator outbound.TextGenerator
	Embedder  outbound.Embedder
	Primary   Client
	Embedding Client
}

// NewClient builds the client named by provider
func NewClient(provider string, cfg config.AIConfig, logger *zap.Logger) (Client, error) {
	switch provider {
	case "ollama":
		return ollama.NewClient(ollama.Config{
			Host:           cfg.Ollama.Host,
			Model:          cfg.Ollama.Model,
			EmbeddingModel: cfg.Ollama.EmbeddingModel,
			ContextWindow:  cfg.Ollama.ContextWindow,
			MaxTokens:      cfg.MaxTokens,
			Timeout:        cfg.Timeout,
		}, logger), nil
	case "openai":
		return openai.NewClient(openai.Config{
			BaseURL:        cfg.OpenAI.BaseURL,
			APIKey:         cfg.OpenAI.APIKey,
			Model:          cfg.OpenAI.Model,
			EmbeddingModel: cfg.OpenAI.EmbeddingModel,
			MaxTokens:      cfg.MaxTokens,
			Timeout:        cfg.Timeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", provider)
	}
}

// NewProvider builds the generation and embedding clients, shares one rate
// limiter between them and puts the embedding cache in front when cache
// is non-nil
func NewProvider(
	cfg config.AIConfig,
	cache outbound.CacheRepository,
	metrics outbound.MetricsRecorder,
	logger *zap.Logger,
) (*Provider, error) {
	primary, err := NewClient(cfg.Provider, cfg, logger)
	if err != nil {
		return nil, err
	}

	embedding := primary
	embeddingProvider := cfg.EmbeddingProvider
	if embeddingProvider != "" && embeddingProvider != cfg.Provider {
		if embedding, err = NewClient(embeddingProvider, cfg, logger); err != nil {
			return nil, err
		}
	} else {
		embeddingProvider = cfg.Provider
	}

	limited := NewRateLimited(primary, embedding, cfg.RequestsPerSecond, cfg.Burst)

	var embedder outbound.Embedder = limited
	if cache != nil {
		embedder = NewCachedEmbedder(limited, cache, metrics, embeddingModel(embeddingProvider, cfg), cfg.EmbeddingCacheTTL, logger)
	}

	logger.Info("Inference provider configured",
		zap.String("provider", cfg.Provider),
		zap.String("embedding_provider", embeddingProvider),
		zap.Float64("requests_per_second", cfg.RequestsPerSecond),
		zap.Bool("embedding_cache", cache != nil),
	)

	return &Provider{
		Generator: limited,
		Embedder:  embedder,
		Primary:   primary,
		Embedding: embedding,
	}, nil
}

// HealthCheck probes the generation backend and, when distinct, the
// embedding backend
func (p *Provider) HealthCheck(ctx context.Context) error {
	if err := p.Primary.HealthCheck(ctx); err != nil {
		return err
	}
	if p.Embedding != p.Primary {
		return p.Embedding.HealthCheck(ctx)
	}
	return nil
}

func embeddingModel(provider string, cfg config.AIConfig) string {
	if provider == "openai" {
		return "openai/" + cfg.OpenAI.EmbeddingModel
	}
	return "ollama/" + cfg.Ollama.EmbeddingModel
}
