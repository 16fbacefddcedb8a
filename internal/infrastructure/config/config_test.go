package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  environment: test\n"))

	require.NoError(t, err)
	assert.Equal(t, "vitaplan", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "node_embedding_index", cfg.Neo4j.VectorIndex)
	assert.Equal(t, 3, cfg.Pipeline.BaseCount)
	assert.Equal(t, 1, cfg.Retrieval.HopDepth)
	assert.Equal(t, 60.0, cfg.Safety.Threshold)
	assert.True(t, cfg.Safety.EnableRuleChecks)
	assert.Equal(t, 10*time.Minute, cfg.Retrieval.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.Monitoring.HealthCacheTTL)
	assert.Equal(t, FallbackKeyword, cfg.Retrieval.FallbackFor("diet"))
	assert.Equal(t, FallbackEmpty, cfg.Retrieval.FallbackFor("exercise"))
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	// Arrange
	path := writeConfig(t, `
pipeline:
  base_count: 5
  max_concurrency: 2
retrieval:
  hop_depth: 2
  exercise_fallback: fail
safety:
  threshold: 75
`)
	t.Setenv("VITAPLAN_AI_PROVIDER", "openai")
	t.Setenv("VITAPLAN_SERVER_PORT", "9191")

	// Act
	cfg, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Pipeline.BaseCount)
	assert.Equal(t, 2, cfg.Pipeline.MaxConcurrency)
	assert.Equal(t, 2, cfg.Retrieval.HopDepth)
	assert.Equal(t, FallbackFail, cfg.Retrieval.FallbackFor("exercise"))
	assert.Equal(t, 75.0, cfg.Safety.Threshold)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9191", cfg.Server.Address())
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"hop depth", "retrieval:\n  hop_depth: 4\n", "retrieval.hop_depth"},
		{"fallback", "retrieval:\n  diet_fallback: guess\n", "retrieval.diet_fallback"},
		{"base count", "pipeline:\n  base_count: 11\n", "pipeline.base_count"},
		{"provider", "ai:\n  provider: carrier-pigeon\n", "ai.provider"},
		{"threshold", "safety:\n  threshold: 101\n", "safety.threshold"},
		{"health cache ttl", "monitoring:\n  health_cache_ttl: -1s\n", "monitoring.health_cache_ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}
