// Package graph implements the knowledge graph store on Neo4j
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/alchemorsel/vitaplan/internal/domain/knowledge"
	"github.com/alchemorsel/vitaplan/internal/infrastructure/config"
	"github.com/alchemorsel/vitaplan/internal/ports/outbound"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// MaxHopDepth bounds variable-length neighbour expansion
const MaxHopDepth = 3

const (
	findEntitiesQuery = `
MATCH (n:Entity)
WHERE toLower(n.name) CONTAINS toLower($keyword)
RETURN n.name AS name
LIMIT $limit`

	similarEntitiesQuery = `
CALL db.index.vector.queryNodes($index, $k, $vector) YIELD node, score
RETURN node.name AS name, score`

	// %d is the hop depth; Cypher does not accept it as a parameter
	neighborsQuery = `
MATCH (n:Entity)
WHERE toLower(n.name) = toLower($name)
MATCH p = (n)-[*1..%d]-(:Entity)
UNWIND relationships(p) AS r
WITH DISTINCT r
RETURN startNode(r).name AS head, coalesce(r.type, type(r)) AS relation, endNode(r).name AS tail
LIMIT $limit`
)

// Store implements outbound.GraphStore. The graph is read only.
type Store struct {
	driver       neo4j.DriverWithContext
	database     string
	vectorIndex  string
	queryTimeout time.Duration
	logger       *zap.Logger
}

var _ outbound.GraphStore = (*Store)(nil)

// NewDriver creates a driver from configuration, optionally verifying
// connectivity
func NewDriver(ctx context.Context, cfg config.Neo4jConfig) (neo4j.DriverWithContext, error) {
	auth := neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4j.Config) {
		if cfg.MaxPoolSize > 0 {
			c.MaxConnectionPoolSize = cfg.MaxPoolSize
		}
		if cfg.ConnectTimeout > 0 {
			c.SocketConnectTimeout = cfg.ConnectTimeout
		}
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	if cfg.VerifyOnStartup {
		verifyCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout+5*time.Second)
		defer cancel()
		if err := driver.VerifyConnectivity(verifyCtx); err != nil {
			_ = driver.Close(ctx)
			return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
		}
	}
	return driver, nil
}

// NewStore creates a graph store over driver
func NewStore(driver neo4j.DriverWithContext, cfg config.Neo4jConfig, logger *zap.Logger) *Store {
	index := cfg.VectorIndex
	if index == "" {
		index = "node_embedding_index"
	}
	return &Store{
		driver:       driver,
		database:     cfg.Database,
		vectorIndex:  index,
		queryTimeout: cfg.QueryTimeout,
		logger:       logger.Named("neo4j-store"),
	}
}

// FindEntities returns entities whose name contains keyword, case-insensitively
func (s *Store) FindEntities(ctx context.Context, keyword string, limit int) ([]knowledge.Anchor, error) {
	if limit <= 0 {
		limit = 10
	}
	records, err := s.read(ctx, findEntitiesQuery, map[string]any{
		"keyword": keyword,
		"limit":   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("find entities %q: %w", keyword, err)
	}

	anchors := make([]knowledge.Anchor, 0, len(records))
	for _, rec := range records {
		name, _, err := neo4j.GetRecordValue[string](rec, "name")
		if err != nil || name == "" {
			continue
		}
		anchors = append(anchors, knowledge.Anchor{Name: name, Score: 1.0})
	}
	return anchors, nil
}

// SimilarEntities queries the vector index for the topK nearest entities
func (s *Store) SimilarEntities(ctx context.Context, vector []float32, topK int) ([]knowledge.Anchor, error) {
	if topK <= 0 {
		topK = 3
	}
	vec := make([]float64, len(vector))
	for i, v := range vector {
		vec[i] = float64(v)
	}

	records, err := s.read(ctx, similarEntitiesQuery, map[string]any{
		"index":  s.vectorIndex,
		"k":      topK,
		"vector": vec,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search on %s: %w", s.vectorIndex, err)
	}

	anchors := make([]knowledge.Anchor, 0, len(records))
	for _, rec := range records {
		name, _, err := neo4j.GetRecordValue[string](rec, "name")
		if err != nil || name == "" {
			continue
		}
		score, _, _ := neo4j.GetRecordValue[float64](rec, "score")
		anchors = append(anchors, knowledge.Anchor{Name: name, Score: score})
	}
	return anchors, nil
}

// Neighbors returns relations within depth hops of name, in either direction
func (s *Store) Neighbors(ctx context.Context, name string, depth, limit int) ([]knowledge.Relation, error) {
	if depth < 1 {
		depth = 1
	}
	if depth > MaxHopDepth {
		depth = MaxHopDepth
	}
	if limit <= 0 {
		limit = 25
	}

	records, err := s.read(ctx, fmt.Sprintf(neighborsQuery, depth), map[string]any{
		"name":  name,
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("neighbors of %q: %w", name, err)
	}

	relations := make([]knowledge.Relation, 0, len(records))
	for _, rec := range records {
		head, _, errH := neo4j.GetRecordValue[string](rec, "head")
		rel, _, errR := neo4j.GetRecordValue[string](rec, "relation")
		tail, _, errT := neo4j.GetRecordValue[string](rec, "tail")
		if errH != nil || errR != nil || errT != nil || head == "" || tail == "" {
			continue
		}
		relations = append(relations, knowledge.Relation{Head: head, Relation: rel, Tail: tail})
	}
	return relations, nil
}

// Ping verifies connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// Close releases the driver
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) read(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	start := time.Now()
	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		s.logger.Debug("Graph query failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return nil, err
	}

	records, _ := out.([]*neo4j.Record)
	s.logger.Debug("Graph query completed",
		zap.Int("records", len(records)),
		zap.Duration("duration", time.Since(start)),
	)
	return records, nil
}
