package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alchemorsel/vitaplan/internal/infrastructure/config"
	"github.com/alchemorsel/vitaplan/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/vitaplan/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

type CachedEmbedderTestSuite struct {
	suite.Suite
	inner *testutils.MockEmbedder
	cache *memory.CacheRepository
	ctx   context.Context
}

func (s *CachedEmbedderTestSuite) SetupTest() {
	s.inner = new(testutils.MockEmbedder)
	s.cache = memory.NewCacheRepository(0)
	s.ctx = context.Background()
}

func (s *CachedEmbedderTestSuite) TearDownTest() {
	s.cache.Stop()
}

func (s *CachedEmbedderTestSuite) newEmbedder(model string) *CachedEmbedder {
	return NewCachedEmbedder(s.inner, s.cache, nil, model, time.Hour, zaptest.NewLogger(s.T()))
}

func (s *CachedEmbedderTestSuite) TestSecondCallHitsCache() {
	// Arrange
	s.inner.On("Embed", mock.Anything, "low sodium").Return([]float32{1, 2}, nil).Once()
	embedder := s.newEmbedder("ollama/nomic")

	// Act
	first, err1 := embedder.Embed(s.ctx, "low sodium")
	second, err2 := embedder.Embed(s.ctx, "low sodium")

	// Assert
	s.Require().NoError(err1)
	s.Require().NoError(err2)
	s.Equal(first, second)
	s.inner.AssertNumberOfCalls(s.T(), "Embed", 1)
}

func (s *CachedEmbedderTestSuite) TestModelIsPartOfKey() {
	s.inner.On("Embed", mock.Anything, "x").Return([]float32{1}, nil).Twice()

	_, err := s.newEmbedder("model-a").Embed(s.ctx, "x")
	s.Require().NoError(err)
	_, err = s.newEmbedder("model-b").Embed(s.ctx, "x")
	s.Require().NoError(err)

	s.inner.AssertNumberOfCalls(s.T(), "Embed", 2)
}

func (s *CachedEmbedderTestSuite) TestErrorsAreNotCached() {
	s.inner.On("Embed", mock.Anything, "x").Return(nil, errors.New("down")).Once()
	s.inner.On("Embed", mock.Anything, "x").Return([]float32{3}, nil).Once()
	embedder := s.newEmbedder("m")

	_, err := embedder.Embed(s.ctx, "x")
	s.Error(err)
	vec, err := embedder.Embed(s.ctx, "x")
	s.NoError(err)
	s.Equal([]float32{3}, vec)
}

func (s *CachedEmbedderTestSuite) TestCorruptEntryIsRecomputed() {
	// Arrange
	embedder := s.newEmbedder("m")
	s.Require().NoError(s.cache.Set(s.ctx, embedder.key("x"), []byte("garbage"), time.Hour))
	s.inner.On("Embed", mock.Anything, "x").Return([]float32{4}, nil).Once()

	// Act
	vec, err := embedder.Embed(s.ctx, "x")

	// Assert
	s.NoError(err)
	s.Equal([]float32{4}, vec)
}

func (s *CachedEmbedderTestSuite) TestCacheFailureFallsThrough() {
	// Arrange
	cache := new(testutils.MockCacheRepository)
	cache.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New("redis down"))
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything, time.Hour).Return(errors.New("redis down"))
	s.inner.On("Embed", mock.Anything, "x").Return([]float32{5}, nil)
	embedder := NewCachedEmbedder(s.inner, cache, nil, "m", time.Hour, zaptest.NewLogger(s.T()))

	// Act
	vec, err := embedder.Embed(s.ctx, "x")

	// Assert
	s.NoError(err)
	s.Equal([]float32{5}, vec)
	cache.AssertExpectations(s.T())
}

func TestCachedEmbedderSuite(t *testing.T) {
	suite.Run(t, new(CachedEmbedderTestSuite))
}

func TestRateLimited_Delegates(t *testing.T) {
	gen := testutils.NewScriptedGenerator(testutils.Reply{Text: "ok"})
	emb := new(testutils.MockEmbedder)
	emb.On("Embed", mock.Anything, "q").Return([]float32{1}, nil)
	limited := NewRateLimited(gen, emb, 0, 0)

	out, err := limited.Complete(context.Background(), "s", "u", 0.5)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	vec, err := limited.Embed(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
}

func TestRateLimited_WaitHonoursContext(t *testing.T) {
	// Arrange: one token per hour, burst of one
	gen := testutils.NewScriptedGenerator()
	gen.Fallback = testutils.Reply{Text: "ok"}
	limited := NewRateLimited(gen, nil, 1.0/3600, 1)
	_, err := limited.Complete(context.Background(), "s", "u", 0.5)
	require.NoError(t, err)

	// Act
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = limited.Complete(ctx, "s", "u", 0.5)

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
	assert.Len(t, gen.Calls(), 1)
}

func TestRateLimited_NoEmbedder(t *testing.T) {
	limited := NewRateLimited(testutils.NewScriptedGenerator(), nil, 0, 1)
	_, err := limited.Embed(context.Background(), "q")
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/chat":
			_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"hi"},"done":true}`))
		case "/api/embeddings":
			_, _ = w.Write([]byte(`{"embedding":[0.25]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cache := memory.NewCacheRepository(0)
	defer cache.Stop()

	cfg := config.AIConfig{
		Provider: "ollama",
		Ollama:   config.OllamaConfig{Host: server.URL, Model: "m", EmbeddingModel: "e"},
		Timeout:  5 * time.Second,
	}

	provider, err := NewProvider(cfg, cache, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, provider.HealthCheck(ctx))

	out, err := provider.Generator.Complete(ctx, "s", "u", 0.7)
	require.NoError(t, err)
	assert.Equal(t, "hi", out)

	vec, err := provider.Embedder.Embed(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25}, vec)
	assert.Equal(t, 1, cache.Len())
}

func TestNewProvider_UnknownProvider(t *testing.T) {
	_, err := NewProvider(config.AIConfig{Provider: "bard"}, nil, nil, zaptest.NewLogger(t))
	assert.Error(t, err)
}
