// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Neo4j      Neo4jConfig      `mapstructure:"neo4j"`
	AI         AIConfig         `mapstructure:"ai"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Safety     SafetyConfig     `mapstructure:"safety"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string   `mapstructure:"name"`
	Version     string   `mapstructure:"version"`
	Environment string   `mapstructure:"environment"`
	Debug       bool     `mapstructure:"debug"`
	LogLevel    string   `mapstructure:"log_level"`
	LogFormat   string   `mapstructure:"log_format"`
	LogOutputs  []string `mapstructure:"log_outputs"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	EnableCORS      bool          `mapstructure:"enable_cors"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies"`
}

// Address returns host:port for the listener
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Neo4jConfig contains knowledge graph connection configuration
type Neo4jConfig struct {
	URI             string        `mapstructure:"uri"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	VectorIndex     string        `mapstructure:"vector_index"`
	MaxPoolSize     int           `mapstructure:"max_pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	VerifyOnStartup bool          `mapstructure:"verify_on_startup"`
}

// AIConfig contains inference service configuration
type AIConfig struct {
	// Provider selects the completion backend: ollama or openai
	Provider string `mapstructure:"provider"`
	// EmbeddingProvider selects the embedding backend; empty follows Provider
	EmbeddingProvider     string        `mapstructure:"embedding_provider"`
	Ollama                OllamaConfig  `mapstructure:"ollama"`
	OpenAI                OpenAIConfig  `mapstructure:"openai"`
	Timeout               time.Duration `mapstructure:"timeout"`
	MaxTokens             int           `mapstructure:"max_tokens"`
	GenerationTemperature float64       `mapstructure:"generation_temperature"`
	SafetyTemperature     float64       `mapstructure:"safety_temperature"`
	RequestsPerSecond     float64       `mapstructure:"requests_per_second"`
	Burst                 int           `mapstructure:"burst"`
	EmbeddingCacheTTL     time.Duration `mapstructure:"embedding_cache_ttl"`
}

// OllamaConfig contains local Ollama configuration
type OllamaConfig struct {
	Host           string `mapstructure:"host"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	ContextWindow  int    `mapstructure:"context_window"`
}

// OpenAIConfig contains configuration for OpenAI-compatible endpoints
type OpenAIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Password        string        `mapstructure:"password"`
	Database        int           `mapstructure:"database"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PoolSize        int           `mapstructure:"pool_size"`
	EnableCluster   bool          `mapstructure:"enable_cluster"`
	ClusterNodes    []string      `mapstructure:"cluster_nodes"`
}

// Address returns host:port of the single-node deployment
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Retrieval fallbacks applied when the graph or embedding service is unreachable
const (
	FallbackKeyword = "keyword"
	FallbackEmpty   = "empty"
	FallbackFail    = "fail"
)

// RetrievalConfig contains knowledge retrieval configuration
type RetrievalConfig struct {
	TopK              int           `mapstructure:"top_k"`
	HopDepth          int           `mapstructure:"hop_depth"`
	NeighborLimit     int           `mapstructure:"neighbor_limit"`
	AnchorLimit       int           `mapstructure:"anchor_limit"`
	ContextLimit      int           `mapstructure:"context_limit"`
	UseSemanticSearch bool          `mapstructure:"use_semantic_search"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	Timeout           time.Duration `mapstructure:"timeout"`
	DietFallback      string        `mapstructure:"diet_fallback"`
	ExerciseFallback  string        `mapstructure:"exercise_fallback"`
}

// PipelineConfig contains candidate pipeline configuration
type PipelineConfig struct {
	BaseCount         int           `mapstructure:"base_count"`
	VariantCount      int           `mapstructure:"variant_count"`
	TopK              int           `mapstructure:"top_k"`
	MaxConcurrency    int           `mapstructure:"max_concurrency"`
	MinScore          float64       `mapstructure:"min_score"`
	GenerationTimeout time.Duration `mapstructure:"generation_timeout"`
	RunTimeout        time.Duration `mapstructure:"run_timeout"`
}

// SafetyConfig contains safety scoring configuration
type SafetyConfig struct {
	EnableRuleChecks bool          `mapstructure:"enable_rule_checks"`
	Threshold        float64       `mapstructure:"threshold"`
	SemanticTimeout  time.Duration `mapstructure:"semantic_timeout"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableMetrics   bool   `mapstructure:"enable_metrics"`
	MetricsPath     string `mapstructure:"metrics_path"`
	HealthCheckPath string `mapstructure:"health_check_path"`
	ReadinessPath   string `mapstructure:"readiness_path"`
	LivenessPath    string `mapstructure:"liveness_path"`
	// HealthCacheTTL is how long a dependency probe result is reused
	HealthCacheTTL time.Duration `mapstructure:"health_cache_ttl"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enable         bool `mapstructure:"enable"`
	RequestsPerMin int  `mapstructure:"requests_per_min"`
	BurstSize      int  `mapstructure:"burst_size"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/vitaplan")
	}

	// Enable environment variable override
	v.SetEnvPrefix("VITAPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Unmarshal configuration
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "vitaplan")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")
	v.SetDefault("app.log_outputs", []string{"stdout"})

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	// Full runs wait on several generation calls
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.max_header_bytes", 1<<20) // 1MB
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Neo4j defaults
	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.database", "neo4j")
	v.SetDefault("neo4j.vector_index", "node_embedding_index")
	v.SetDefault("neo4j.max_pool_size", 50)
	v.SetDefault("neo4j.connect_timeout", "5s")
	v.SetDefault("neo4j.query_timeout", "10s")
	v.SetDefault("neo4j.verify_on_startup", false)

	// AI defaults
	v.SetDefault("ai.provider", "ollama")
	v.SetDefault("ai.ollama.host", "http://localhost:11434")
	v.SetDefault("ai.ollama.model", "llama3.2:3b")
	v.SetDefault("ai.ollama.embedding_model", "nomic-embed-text")
	v.SetDefault("ai.ollama.context_window", 8192)
	v.SetDefault("ai.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("ai.max_tokens", 2048)
	v.SetDefault("ai.generation_temperature", 0.7)
	v.SetDefault("ai.safety_temperature", 0.3)
	v.SetDefault("ai.requests_per_second", 4)
	v.SetDefault("ai.burst", 4)
	v.SetDefault("ai.embedding_cache_ttl", "24h")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.key_prefix", "vitaplan")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	// Retrieval defaults
	v.SetDefault("retrieval.top_k", 3)
	v.SetDefault("retrieval.hop_depth", 1)
	v.SetDefault("retrieval.neighbor_limit", 25)
	v.SetDefault("retrieval.anchor_limit", 10)
	v.SetDefault("retrieval.context_limit", 40)
	v.SetDefault("retrieval.use_semantic_search", true)
	v.SetDefault("retrieval.cache_ttl", "10m")
	v.SetDefault("retrieval.timeout", "15s")
	v.SetDefault("retrieval.diet_fallback", FallbackKeyword)
	v.SetDefault("retrieval.exercise_fallback", FallbackEmpty)

	// Pipeline defaults
	v.SetDefault("pipeline.base_count", 3)
	v.SetDefault("pipeline.variant_count", 3)
	v.SetDefault("pipeline.top_k", 3)
	v.SetDefault("pipeline.max_concurrency", 4)
	v.SetDefault("pipeline.min_score", 0)
	v.SetDefault("pipeline.generation_timeout", "90s")
	v.SetDefault("pipeline.run_timeout", "170s")

	// Safety defaults
	v.SetDefault("safety.enable_rule_checks", true)
	v.SetDefault("safety.threshold", 60)
	v.SetDefault("safety.semantic_timeout", "45s")

	// Monitoring defaults
	v.SetDefault("monitoring.enable_metrics", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.health_check_path", "/health")
	v.SetDefault("monitoring.readiness_path", "/ready")
	v.SetDefault("monitoring.liveness_path", "/live")
	v.SetDefault("monitoring.health_cache_ttl", "5s")

	// Rate limit defaults
	v.SetDefault("rate_limit.enable", true)
	v.SetDefault("rate_limit.requests_per_min", 60)
	v.SetDefault("rate_limit.burst_size", 10)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate required fields
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	// Validate port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri is required")
	}

	switch c.AI.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("ai.provider must be ollama or openai, got %q", c.AI.Provider)
	}

	if c.Retrieval.HopDepth < 1 || c.Retrieval.HopDepth > 3 {
		return fmt.Errorf("retrieval.hop_depth must be between 1 and 3")
	}
	for name, fallback := range map[string]string{
		"retrieval.diet_fallback":     c.Retrieval.DietFallback,
		"retrieval.exercise_fallback": c.Retrieval.ExerciseFallback,
	} {
		switch fallback {
		case FallbackKeyword, FallbackEmpty, FallbackFail:
		default:
			return fmt.Errorf("%s must be keyword, empty or fail, got %q", name, fallback)
		}
	}

	if c.Pipeline.BaseCount < 1 || c.Pipeline.BaseCount > 10 {
		return fmt.Errorf("pipeline.base_count must be between 1 and 10")
	}
	if c.Pipeline.VariantCount < 1 || c.Pipeline.VariantCount > 3 {
		return fmt.Errorf("pipeline.variant_count must be between 1 and 3")
	}
	if c.Pipeline.MaxConcurrency < 1 {
		return fmt.Errorf("pipeline.max_concurrency must be at least 1")
	}

	if c.Safety.Threshold < 0 || c.Safety.Threshold > 100 {
		return fmt.Errorf("safety.threshold must be between 0 and 100")
	}

	if c.Monitoring.HealthCacheTTL < 0 {
		return fmt.Errorf("monitoring.health_cache_ttl must not be negative")
	}

	return nil
}

// FallbackFor returns the retrieval fallback configured for a plan kind
func (r RetrievalConfig) FallbackFor(kind string) string {
	if kind == "exercise" {
		return r.ExerciseFallback
	}
	return r.DietFallback
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
