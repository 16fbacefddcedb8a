// Package retrieval turns free-text preferences into knowledge graph evidence.
package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alchemorsel/vitaplan/internal/domain/knowledge"
	"github.com/alchemorsel/vitaplan/internal/ports/inbound"
	"github.com/alchemorsel/vitaplan/internal/ports/outbound"
	"go.uber.org/zap"
)

// Config tunes retrieval
type Config struct {
	TopK          int
	HopDepth      int
	NeighborLimit int
	AnchorLimit   int
	CacheTTL      time.Duration
	Timeout       time.Duration
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = 3
	}
	if c.HopDepth < 1 {
		c.HopDepth = 1
	}
	if c.HopDepth > 3 {
		c.HopDepth = 3
	}
	if c.NeighborLimit <= 0 {
		c.NeighborLimit = 25
	}
	if c.AnchorLimit <= 0 {
		c.AnchorLimit = 10
	}
	return c
}

// Service implements inbound.KnowledgeRetriever
type Service struct {
	graph    outbound.GraphStore
	embedder outbound.Embedder
	cache    outbound.CacheRepository
	metrics  outbound.MetricsRecorder
	config   Config
	logger   *zap.Logger
}

// NewService creates a retrieval service. cache may be nil.
func NewService(
	graph outbound.GraphStore,
	embedder outbound.Embedder,
	cache outbound.CacheRepository,
	metrics outbound.MetricsRecorder,
	config Config,
	logger *zap.Logger,
) *Service {
	if metrics == nil {
		metrics = outbound.NopMetrics{}
	}
	return &Service{
		graph:    graph,
		embedder: embedder,
		cache:    cache,
		metrics:  metrics,
		config:   config.withDefaults(),
		logger:   logger.Named("retrieval-service"),
	}
}

var _ inbound.KnowledgeRetriever = (*Service)(nil)

// Retrieve anchors the preference in the graph and expands each anchor's
// neighbourhood into a flat relation list.
func (s *Service) Retrieve(ctx context.Context, query inbound.RetrieveQuery) (knowledge.Result, error) {
	mode := knowledge.ModeKeyword
	if query.UseSemanticSearch {
		mode = knowledge.ModeSemantic
	}
	result := knowledge.Result{Query: query.Preference, Mode: mode, Anchors: []knowledge.Anchor{}, Relations: []knowledge.Relation{}}

	if strings.TrimSpace(query.Preference) == "" {
		result.Mode = knowledge.ModeEmpty
		return result, nil
	}

	topK := query.TopK
	if topK <= 0 {
		topK = s.config.TopK
	}

	key := s.cacheKey(mode, topK, query.Preference)
	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	var (
		anchors []knowledge.Anchor
		err     error
	)
	if query.UseSemanticSearch {
		anchors, err = s.semanticAnchors(ctx, query.Preference, topK)
	} else {
		anchors, err = s.keywordAnchors(ctx, query.Preference)
	}
	if err != nil {
		s.metrics.ObserveRetrieval(mode, "unavailable", 0, time.Since(start))
		return result, err
	}

	relations, err := s.expand(ctx, anchors, query.UseSemanticSearch)
	if err != nil {
		s.metrics.ObserveRetrieval(mode, "unavailable", 0, time.Since(start))
		return result, err
	}

	result.Anchors = anchors
	result.Relations = relations
	s.metrics.ObserveRetrieval(mode, "ok", len(relations), time.Since(start))

	s.logger.Debug("Knowledge retrieved",
		zap.String("mode", mode),
		zap.Int("anchors", len(anchors)),
		zap.Int("relations", len(relations)),
		zap.Duration("duration", time.Since(start)),
	)

	s.toCache(ctx, key, result)
	return result, nil
}

// Neighbors returns the relations around one entity
func (s *Service) Neighbors(ctx context.Context, entity string) ([]knowledge.Relation, error) {
	entity = strings.TrimSpace(entity)
	if entity == "" {
		return nil, fmt.Errorf("%w: empty entity name", knowledge.ErrEntityNotFound)
	}
	relations, err := s.graph.Neighbors(ctx, entity, s.config.HopDepth, s.config.NeighborLimit)
	if err != nil {
		return nil, unavailable(err)
	}
	if len(relations) == 0 {
		return nil, fmt.Errorf("%w: %s", knowledge.ErrEntityNotFound, entity)
	}
	return knowledge.Merge(relations), nil
}

func (s *Service) keywordAnchors(ctx context.Context, text string) ([]knowledge.Anchor, error) {
	seen := make(map[string]struct{})
	var anchors []knowledge.Anchor
	for _, token := range Tokenize(text) {
		found, err := s.graph.FindEntities(ctx, token, s.config.AnchorLimit)
		if err != nil {
			return nil, unavailable(err)
		}
		for _, a := range found {
			k := strings.ToLower(a.Name)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			anchors = append(anchors, knowledge.Anchor{Name: a.Name, Score: 1.0})
			if len(anchors) >= s.config.AnchorLimit {
				return anchors, nil
			}
		}
	}
	return anchors, nil
}

func (s *Service) semanticAnchors(ctx context.Context, text string, topK int) ([]knowledge.Anchor, error) {
	if s.embedder == nil {
		return nil, unavailable(errors.New("no embedding service configured"))
	}
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, unavailable(err)
	}
	anchors, err := s.graph.SimilarEntities(ctx, vector, topK)
	if err != nil {
		return nil, unavailable(err)
	}
	return anchors, nil
}

func (s *Service) expand(ctx context.Context, anchors []knowledge.Anchor, scored bool) ([]knowledge.Relation, error) {
	var all []knowledge.Relation
	for _, anchor := range anchors {
		rels, err := s.graph.Neighbors(ctx, anchor.Name, s.config.HopDepth, s.config.NeighborLimit)
		if err != nil {
			return nil, unavailable(err)
		}
		for _, r := range rels {
			if scored {
				r = r.WithScore(anchor.Score)
			}
			all = append(all, r)
		}
	}
	merged := knowledge.Merge(all)
	if merged == nil {
		merged = []knowledge.Relation{}
	}
	return merged, nil
}

func (s *Service) cacheKey(mode string, topK int, preference string) string {
	sum := sha256.Sum256([]byte(normalizeQuery(preference)))
	return fmt.Sprintf("retrieval:%s:%d:%d:%s", mode, topK, s.config.HopDepth, hex.EncodeToString(sum[:16]))
}

func (s *Service) fromCache(ctx context.Context, key string) (knowledge.Result, bool) {
	if s.cache == nil || s.config.CacheTTL <= 0 {
		return knowledge.Result{}, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, outbound.ErrCacheMiss) {
			s.logger.Debug("Retrieval cache read failed", zap.String("key", key), zap.Error(err))
		}
		s.metrics.ObserveCache("retrieval", false)
		return knowledge.Result{}, false
	}
	var result knowledge.Result
	if err := json.Unmarshal(data, &result); err != nil {
		s.logger.Warn("Discarding corrupt retrieval cache entry", zap.String("key", key), zap.Error(err))
		return knowledge.Result{}, false
	}
	s.metrics.ObserveCache("retrieval", true)
	return result, true
}

func (s *Service) toCache(ctx context.Context, key string, result knowledge.Result) {
	if s.cache == nil || s.config.CacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.config.CacheTTL); err != nil {
		s.logger.Debug("Retrieval cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func unavailable(err error) error {
	if errors.Is(err, knowledge.ErrRetrievalUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", knowledge.ErrRetrievalUnavailable, err)
}
