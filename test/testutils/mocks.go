// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/alchemorsel/vitaplan/internal/domain/knowledge"
	"github.com/alchemorsel/vitaplan/internal/domain/plan"
	"github.com/alchemorsel/vitaplan/internal/domain/profile"
	"github.com/alchemorsel/vitaplan/internal/domain/safety"
	"github.com/alchemorsel/vitaplan/internal/ports/inbound"
	"github.com/alchemorsel/vitaplan/internal/ports/outbound"
	"github.com/stretchr/testify/mock"
)

// MockGraphStore provides a mock implementation of GraphStore
type MockGraphStore struct {
	mock.Mock
}

// FindEntities looks up entities by keyword
func (m *MockGraphStore) FindEntities(ctx context.Context, keyword string, limit int) ([]knowledge.Anchor, error) {
	args := m.Called(ctx, keyword, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]knowledge.Anchor), args.Error(1)
}

// SimilarEntities runs a vector lookup
func (m *MockGraphStore) SimilarEntities(ctx context.Context, vector []float32, topK int) ([]knowledge.Anchor, error) {
	args := m.Called(ctx, vector, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]knowledge.Anchor), args.Error(1)
}

// Neighbors expands one entity
func (m *MockGraphStore) Neighbors(ctx context.Context, name string, depth, limit int) ([]knowledge.Relation, error) {
	args := m.Called(ctx, name, depth, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]knowledge.Relation), args.Error(1)
}

// Ping checks connectivity
func (m *MockGraphStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockEmbedder provides a mock implementation of Embedder
type MockEmbedder struct {
	mock.Mock
}

// Embed returns the configured vector
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockTextGenerator provides a mock implementation of TextGenerator
type MockTextGenerator struct {
	mock.Mock
}

// Complete returns the configured completion
func (m *MockTextGenerator) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	args := m.Called(ctx, system, user, temperature)
	return args.String(0), args.Error(1)
}

// ScriptedGenerator replies in call order and records every prompt. It is
// safe for concurrent use, unlike mock expectations that depend on order.
type ScriptedGenerator struct {
	mu      sync.Mutex
	replies []Reply
	calls   []Prompt
	// Fallback answers calls beyond the scripted replies
	Fallback Reply
}

// Reply is one scripted completion
type Reply struct {
	Text string
	Err  error
}

// Prompt is one recorded call
type Prompt struct {
	System      string
	User        string
	Temperature float64
}

// NewScriptedGenerator creates a generator that answers with replies in order
func NewScriptedGenerator(replies ...Reply) *ScriptedGenerator {
	return &ScriptedGenerator{replies: replies}
}

// Complete returns the next scripted reply
func (g *ScriptedGenerator) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, Prompt{System: system, User: user, Temperature: temperature})
	idx := len(g.calls) - 1
	reply := g.Fallback
	if idx < len(g.replies) {
		reply = g.replies[idx]
	}
	g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return reply.Text, reply.Err
}

// Calls returns a copy of the recorded prompts
func (g *ScriptedGenerator) Calls() []Prompt {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Prompt(nil), g.calls...)
}

// MockCacheRepository provides a mock implementation of CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

// Get reads a key
func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Set writes a key
func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

// Delete removes a key
func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Exists checks a key
func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// MockKnowledgeRetriever provides a mock implementation of KnowledgeRetriever
type MockKnowledgeRetriever struct {
	mock.Mock
}

// Retrieve returns the configured result
func (m *MockKnowledgeRetriever) Retrieve(ctx context.Context, query inbound.RetrieveQuery) (knowledge.Result, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(knowledge.Result), args.Error(1)
}

// Neighbors returns the configured relations
func (m *MockKnowledgeRetriever) Neighbors(ctx context.Context, entity string) ([]knowledge.Relation, error) {
	args := m.Called(ctx, entity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]knowledge.Relation), args.Error(1)
}

// MockSafetyAssessor provides a mock implementation of SafetyAssessor
type MockSafetyAssessor struct {
	mock.Mock
}

// Assess returns the configured assessment
func (m *MockSafetyAssessor) Assess(ctx context.Context, content plan.Content, kind plan.Kind, user profile.UserMetadata, env profile.EnvironmentContext, opts safety.Options) (safety.Assessment, error) {
	args := m.Called(ctx, content, kind, user, env, opts)
	return args.Get(0).(safety.Assessment), args.Error(1)
}

// MockPlanningService provides a mock implementation of PlanningService
type MockPlanningService struct {
	mock.Mock
}

// GenerateCandidates returns the configured kind result
func (m *MockPlanningService) GenerateCandidates(ctx context.Context, kind plan.Kind, req inbound.PlanRequest) (*inbound.KindResult, error) {
	args := m.Called(ctx, kind, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inbound.KindResult), args.Error(1)
}

// Run returns the configured plan result
func (m *MockPlanningService) Run(ctx context.Context, req inbound.PlanRequest) (*inbound.PlanResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inbound.PlanResult), args.Error(1)
}

var (
	_ outbound.GraphStore      = (*MockGraphStore)(nil)
	_ outbound.Embedder        = (*MockEmbedder)(nil)
	_ outbound.TextGenerator   = (*MockTextGenerator)(nil)
	_ outbound.TextGenerator   = (*ScriptedGenerator)(nil)
	_ outbound.CacheRepository = (*MockCacheRepository)(nil)

	_ inbound.KnowledgeRetriever = (*MockKnowledgeRetriever)(nil)
	_ inbound.SafetyAssessor     = (*MockSafetyAssessor)(nil)
	_ inbound.PlanningService    = (*MockPlanningService)(nil)
)
