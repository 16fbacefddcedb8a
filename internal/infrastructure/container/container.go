// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/alchemorsel/vitaplan/internal/application/generation"
	"github.com/alchemorsel/vitaplan/internal/application/pipeline"
	"github.com/alchemorsel/vitaplan/internal/application/retrieval"
	"github.com/alchemorsel/vitaplan/internal/application/safety"
	"github.com/alchemorsel/vitaplan/internal/domain/plan"
	domainsafety "github.com/alchemorsel/vitaplan/internal/domain/safety"
	"github.com/alchemorsel/vitaplan/internal/infrastructure/ai"
	"github.com/alchemorsel/vitaplan/internal/infrastructure/config"
	"github.com/alchemorsel/vitaplan/internal/infrastructure/graph"
	"github.com/alchemorsel/vitaplan/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/vitaplan/internal/infrastructure/http/server"
	"github.com/alchemorsel/vitaplan/internal/infrastructure/monitoring"
	"github.com/alchemorsel/vitaplan/internal/infrastructure/persistence/memory"
	rediscache "github.com/alchemorsel/vitaplan/internal/infrastructure/persistence/redis"
	"github.com/alchemorsel/vitaplan/internal/ports/inbound"
	"github.com/alchemorsel/vitaplan/internal/ports/outbound"
	"github.com/alchemorsel/vitaplan/pkg/healthcheck"
	"github.com/alchemorsel/vitaplan/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ConfigPath is the configuration file to load; empty searches the defaults
type ConfigPath string

// Module provides the full API server
var Module = fx.Options(
	CoreModule,
	HTTPModule,
	LifecycleModule,
)

// CoreModule provides everything needed to run the planning pipeline
var CoreModule = fx.Options(
	ConfigModule,
	LoggerModule,
	MetricsModule,
	CacheModule,
	GraphModule,
	AIModule,
	ServiceModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func(path ConfigPath) (*config.Config, error) {
		return config.Load(string(path))
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
			OutputPaths: cfg.App.LogOutputs,
			Service:     cfg.App.Name,
			Version:     cfg.App.Version,
		})
	},
)

// MetricsModule provides the prometheus registry and pipeline metrics
var MetricsModule = fx.Provide(
	func() *prometheus.Registry {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		return reg
	},
	func(reg *prometheus.Registry, log *zap.Logger) *monitoring.MetricsCollector {
		return monitoring.NewMetricsCollector(reg, reg, log)
	},
	func(m *monitoring.MetricsCollector) outbound.MetricsRecorder {
		return m
	},
)

// CacheModule provides the shared cache, redis when enabled and in-memory otherwise
var CacheModule = fx.Provide(
	NewCache,
)

// GraphModule provides the knowledge graph store
var GraphModule = fx.Provide(
	NewGraphStore,
)

// AIModule provides the inference backends
var AIModule = fx.Provide(
	func(cfg *config.Config, cache outbound.CacheRepository, metrics outbound.MetricsRecorder, log *zap.Logger) (*ai.Provider, error) {
		return ai.NewProvider(cfg.AI, cache, metrics, log)
	},
)

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	fx.Annotate(
		NewRetrievalService,
		fx.As(new(inbound.KnowledgeRetriever)),
	),
	fx.Annotate(
		NewGenerator,
		fx.As(new(pipeline.BaseGenerator)),
	),
	fx.Annotate(
		NewSafetyAssessor,
		fx.As(new(inbound.SafetyAssessor)),
	),
	fx.Annotate(
		NewPlanningService,
		fx.As(new(inbound.PlanningService)),
	),
)

// HTTPModule provides HTTP server and handlers
var HTTPModule = fx.Provide(
	NewHealthCheck,
	NewHandlers,
	server.NewServer,
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// Cache wraps the configured cache backend
type Cache struct {
	fx.Out

	Repository outbound.CacheRepository
	Pinger     CachePinger
}

// CachePinger probes the cache backend; nil for the in-memory cache
type CachePinger func(ctx context.Context) error

// NewCache connects to redis when enabled and falls back to the
// in-memory cache otherwise
func NewCache(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (Cache, error) {
	if !cfg.Redis.Enabled {
		repo := memory.NewCacheRepository(time.Minute)
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				repo.Stop()
				return nil
			},
		})
		log.Info("Using in-memory cache")
		return Cache{Repository: repo}, nil
	}

	client, err := rediscache.NewClient(context.Background(), cfg.Redis, log)
	if err != nil {
		return Cache{}, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	repo := rediscache.NewCacheRepository(client, cfg.Redis.KeyPrefix, log)
	return Cache{Repository: repo, Pinger: repo.Ping}, nil
}

// NewGraphStore opens the neo4j driver and closes it on shutdown
func NewGraphStore(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (outbound.GraphStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Neo4j.ConnectTimeout+5*time.Second)
	defer cancel()

	driver, err := graph.NewDriver(ctx, cfg.Neo4j)
	if err != nil {
		return nil, err
	}
	store := graph.NewStore(driver, cfg.Neo4j, log)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close(ctx)
		},
	})

	log.Info("Connected to knowledge graph",
		zap.String("uri", cfg.Neo4j.URI),
		zap.String("database", cfg.Neo4j.Database),
	)
	return store, nil
}

// NewRetrievalService creates the knowledge retriever
func NewRetrievalService(
	cfg *config.Config,
	store outbound.GraphStore,
	provider *ai.Provider,
	cache outbound.CacheRepository,
	metrics outbound.MetricsRecorder,
	log *zap.Logger,
) *retrieval.Service {
	return retrieval.NewService(store, provider.Embedder, cache, metrics, retrieval.Config{
		TopK:          cfg.Retrieval.TopK,
		HopDepth:      cfg.Retrieval.HopDepth,
		NeighborLimit: cfg.Retrieval.NeighborLimit,
		AnchorLimit:   cfg.Retrieval.AnchorLimit,
		CacheTTL:      cfg.Retrieval.CacheTTL,
		Timeout:       cfg.Retrieval.Timeout,
	}, log)
}

// NewGenerator creates the base plan generator with the diet and
// exercise strategies
func NewGenerator(
	cfg *config.Config,
	provider *ai.Provider,
	metrics outbound.MetricsRecorder,
	log *zap.Logger,
) *generation.Generator {
	return generation.NewGenerator(provider.Generator, metrics, generation.Config{
		Temperature:    cfg.AI.GenerationTemperature,
		Timeout:        cfg.Pipeline.GenerationTimeout,
		MaxConcurrency: cfg.Pipeline.MaxConcurrency,
		KnowledgeLimit: cfg.Retrieval.ContextLimit,
	}, log, generation.DietStrategy{}, generation.ExerciseStrategy{})
}

// NewSafetyAssessor creates the plan assessor
func NewSafetyAssessor(
	cfg *config.Config,
	provider *ai.Provider,
	metrics outbound.MetricsRecorder,
	log *zap.Logger,
) *safety.Assessor {
	return safety.NewAssessor(provider.Generator, metrics, safety.Config{
		Temperature: cfg.AI.SafetyTemperature,
		Timeout:     cfg.Safety.SemanticTimeout,
	}, log)
}

// NewPlanningService creates the pipeline orchestrator
func NewPlanningService(
	cfg *config.Config,
	retriever inbound.KnowledgeRetriever,
	generator pipeline.BaseGenerator,
	assessor inbound.SafetyAssessor,
	metrics outbound.MetricsRecorder,
	log *zap.Logger,
) *pipeline.Service {
	return pipeline.NewService(retriever, generator, assessor, metrics, PipelineConfig(cfg), log)
}

// PipelineConfig maps the loaded configuration onto pipeline defaults
func PipelineConfig(cfg *config.Config) pipeline.Config {
	return pipeline.Config{
		BaseCount:         cfg.Pipeline.BaseCount,
		VariantCount:      cfg.Pipeline.VariantCount,
		TopK:              cfg.Pipeline.TopK,
		MaxConcurrency:    cfg.Pipeline.MaxConcurrency,
		MinScore:          cfg.Pipeline.MinScore,
		RunTimeout:        cfg.Pipeline.RunTimeout,
		EnableRuleChecks:  cfg.Safety.EnableRuleChecks,
		Threshold:         cfg.Safety.Threshold,
		UseSemanticSearch: cfg.Retrieval.UseSemanticSearch,
		RetrievalTopK:     cfg.Retrieval.TopK,
		Fallbacks: map[plan.Kind]string{
			plan.KindDiet:     cfg.Retrieval.FallbackFor(string(plan.KindDiet)),
			plan.KindExercise: cfg.Retrieval.FallbackFor(string(plan.KindExercise)),
		},
	}
}

// NewHealthCheck registers the dependency probes. Only the graph is
// critical; a failing cache or inference backend degrades the service.
func NewHealthCheck(
	cfg *config.Config,
	store outbound.GraphStore,
	provider *ai.Provider,
	pinger CachePinger,
	log *zap.Logger,
) *healthcheck.HealthCheck {
	h := healthcheck.New(cfg.App.Version, log)
	h.SetCacheTTL(cfg.Monitoring.HealthCacheTTL)
	h.Register("graph", healthcheck.NewPingChecker(store.Ping, true, 5*time.Second))
	h.Register("inference", healthcheck.NewPingChecker(provider.HealthCheck, false, 5*time.Second))
	if pinger != nil {
		h.Register("cache", healthcheck.NewPingChecker(pinger, false, 2*time.Second))
	}
	return h
}

// NewHandlers creates the API route handlers
func NewHandlers(
	cfg *config.Config,
	planner inbound.PlanningService,
	assessor inbound.SafetyAssessor,
	retriever inbound.KnowledgeRetriever,
	log *zap.Logger,
) server.Handlers {
	return server.Handlers{
		Planning: handlers.NewPlanningHandlers(planner, log),
		Safety: handlers.NewSafetyHandlers(assessor, domainsafety.Options{
			EnableRuleChecks: cfg.Safety.EnableRuleChecks,
			Threshold:        cfg.Safety.Threshold,
		}, log),
		Knowledge: handlers.NewKnowledgeHandlers(retriever, cfg.Retrieval.UseSemanticSearch, log),
	}
}

// RegisterLifecycleHooks registers application lifecycle hooks
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	srv *server.Server,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting vitaplan",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.String("address", cfg.Server.Address()),
			)

			go func() {
				if err := srv.Start(); err != nil {
					log.Error("HTTP server stopped", zap.Error(err))
					_ = shutdowner.Shutdown()
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down vitaplan")

			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("shutdown http server: %w", err)
			}

			_ = log.Sync()
			return nil
		},
	})
}
