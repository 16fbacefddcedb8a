package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alchemorsel/vitaplan/internal/domain/knowledge"
	"github.com/alchemorsel/vitaplan/internal/ports/inbound"
	"github.com/alchemorsel/vitaplan/internal/ports/outbound"
	"github.com/alchemorsel/vitaplan/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

type RetrievalServiceTestSuite struct {
	suite.Suite
	graph    *testutils.MockGraphStore
	embedder *testutils.MockEmbedder
	cache    *testutils.MockCacheRepository
	service  *Service
	ctx      context.Context
}

func (s *RetrievalServiceTestSuite) SetupTest() {
	s.graph = new(testutils.MockGraphStore)
	s.embedder = new(testutils.MockEmbedder)
	s.cache = new(testutils.MockCacheRepository)
	s.ctx = context.Background()
	s.service = NewService(s.graph, s.embedder, nil, nil, Config{TopK: 3, HopDepth: 1, NeighborLimit: 25, AnchorLimit: 10}, zaptest.NewLogger(s.T()))
}

func (s *RetrievalServiceTestSuite) TearDownTest() {
	s.graph.AssertExpectations(s.T())
	s.embedder.AssertExpectations(s.T())
	s.cache.AssertExpectations(s.T())
}

func TestRetrievalServiceSuite(t *testing.T) {
	suite.Run(t, new(RetrievalServiceTestSuite))
}

func (s *RetrievalServiceTestSuite) TestRetrieve_EmptyPreferenceMakesNoCalls() {
	result, err := s.service.Retrieve(s.ctx, inbound.RetrieveQuery{Preference: "   ", UseSemanticSearch: true})

	s.NoError(err)
	s.Equal(knowledge.ModeEmpty, result.Mode)
	s.Empty(result.Relations)
	s.NotNil(result.Relations)
}

func (s *RetrievalServiceTestSuite) TestRetrieve_KeywordPath() {
	// Arrange
	s.graph.On("FindEntities", mock.Anything, "salmon", 10).
		Return([]knowledge.Anchor{{Name: "Salmon"}, {Name: "Smoked Salmon"}}, nil)
	s.graph.On("FindEntities", mock.Anything, "spinach", 10).
		Return([]knowledge.Anchor{{Name: "Spinach"}, {Name: "salmon"}}, nil)
	s.graph.On("Neighbors", mock.Anything, "Salmon", 1, 25).Return([]knowledge.Relation{
		{Head: "Salmon", Relation: "RICH_IN", Tail: "Omega-3"},
		{Head: "Salmon", Relation: "GOOD_FOR", Tail: "Heart Health"},
	}, nil)
	s.graph.On("Neighbors", mock.Anything, "Smoked Salmon", 1, 25).Return([]knowledge.Relation{
		{Head: "Smoked Salmon", Relation: "HIGH_IN", Tail: "Sodium"},
	}, nil)
	s.graph.On("Neighbors", mock.Anything, "Spinach", 1, 25).Return([]knowledge.Relation{
		{Head: "Spinach", Relation: "RICH_IN", Tail: "Iron"},
		{Head: "Salmon", Relation: "RICH_IN", Tail: "Omega-3"},
	}, nil)

	// Act
	result, err := s.service.Retrieve(s.ctx, inbound.RetrieveQuery{Preference: "I'd like salmon with spinach", UseSemanticSearch: false})

	// Assert
	s.Require().NoError(err)
	s.Equal(knowledge.ModeKeyword, result.Mode)
	s.Equal([]knowledge.Anchor{{Name: "Salmon", Score: 1}, {Name: "Smoked Salmon", Score: 1}, {Name: "Spinach", Score: 1}}, result.Anchors)
	s.Len(result.Relations, 4)
	for _, r := range result.Relations {
		s.Nil(r.Score)
	}
	s.embedder.AssertNotCalled(s.T(), "Embed", mock.Anything, mock.Anything)
}

func (s *RetrievalServiceTestSuite) TestRetrieve_SemanticPathScoresRelations() {
	vec := []float32{0.1, 0.2, 0.3}
	s.embedder.On("Embed", mock.Anything, "low sugar breakfast").Return(vec, nil)
	s.graph.On("SimilarEntities", mock.Anything, vec, 2).Return([]knowledge.Anchor{
		{Name: "Oats", Score: 0.91},
		{Name: "Greek Yogurt", Score: 0.84},
	}, nil)
	s.graph.On("Neighbors", mock.Anything, "Oats", 1, 25).Return([]knowledge.Relation{
		{Head: "Oats", Relation: "LOWERS", Tail: "Blood Sugar Spike"},
		{Head: "Greek Yogurt", Relation: "PAIRS_WITH", Tail: "Oats"},
	}, nil)
	s.graph.On("Neighbors", mock.Anything, "Greek Yogurt", 1, 25).Return([]knowledge.Relation{
		{Head: "Greek Yogurt", Relation: "PAIRS_WITH", Tail: "Oats"},
	}, nil)

	result, err := s.service.Retrieve(s.ctx, inbound.RetrieveQuery{Preference: "low sugar breakfast", TopK: 2, UseSemanticSearch: true})

	s.Require().NoError(err)
	s.Equal(knowledge.ModeSemantic, result.Mode)
	s.Require().Len(result.Relations, 2)
	s.Require().NotNil(result.Relations[1].Score)
	s.InDelta(0.91, *result.Relations[1].Score, 1e-9)
}

func (s *RetrievalServiceTestSuite) TestRetrieve_EmbeddingFailureIsUnavailable() {
	s.embedder.On("Embed", mock.Anything, "anything").Return(nil, errors.New("connection refused"))

	_, err := s.service.Retrieve(s.ctx, inbound.RetrieveQuery{Preference: "anything", UseSemanticSearch: true})

	s.ErrorIs(err, knowledge.ErrRetrievalUnavailable)
	s.Contains(err.Error(), "connection refused")
}

func (s *RetrievalServiceTestSuite) TestRetrieve_GraphFailureIsUnavailable() {
	s.graph.On("FindEntities", mock.Anything, "quinoa", 10).Return(nil, errors.New("bolt: connection reset"))

	_, err := s.service.Retrieve(s.ctx, inbound.RetrieveQuery{Preference: "quinoa"})

	s.ErrorIs(err, knowledge.ErrRetrievalUnavailable)
}

func (s *RetrievalServiceTestSuite) TestRetrieve_UsesCache() {
	// Arrange
	s.service = NewService(s.graph, s.embedder, s.cache, nil, Config{CacheTTL: time.Minute}, zaptest.NewLogger(s.T()))
	s.cache.On("Get", mock.Anything, mock.AnythingOfType("string")).Return(nil, outbound.ErrCacheMiss).Once()
	s.graph.On("FindEntities", mock.Anything, "tofu", 10).Return([]knowledge.Anchor{{Name: "Tofu"}}, nil).Once()
	s.graph.On("Neighbors", mock.Anything, "Tofu", 1, 25).Return([]knowledge.Relation{{Head: "Tofu", Relation: "IS_A", Tail: "Plant Protein"}}, nil).Once()

	var stored []byte
	s.cache.On("Set", mock.Anything, mock.AnythingOfType("string"), mock.Anything, time.Minute).
		Run(func(args mock.Arguments) { stored = args.Get(2).([]byte) }).
		Return(nil).Once()

	// Act
	first, err := s.service.Retrieve(s.ctx, inbound.RetrieveQuery{Preference: "Tofu"})
	s.Require().NoError(err)

	s.cache.On("Get", mock.Anything, mock.AnythingOfType("string")).Return(stored, nil).Once()
	second, err := s.service.Retrieve(s.ctx, inbound.RetrieveQuery{Preference: "  tofu "})

	// Assert
	s.Require().NoError(err)
	s.Equal(first.Relations, second.Relations)
	s.Equal(first.Anchors, second.Anchors)
}

func (s *RetrievalServiceTestSuite) TestNeighbors() {
	s.graph.On("Neighbors", mock.Anything, "Diabetes", 1, 25).Return([]knowledge.Relation{
		{Head: "Diabetes", Relation: "AVOID", Tail: "Sugar"},
		{Head: "Diabetes", Relation: "AVOID", Tail: "Sugar"},
	}, nil)
	s.graph.On("Neighbors", mock.Anything, "Nothing", 1, 25).Return([]knowledge.Relation{}, nil)

	rels, err := s.service.Neighbors(s.ctx, "Diabetes")
	s.Require().NoError(err)
	s.Len(rels, 1)

	_, err = s.service.Neighbors(s.ctx, "Nothing")
	s.ErrorIs(err, knowledge.ErrEntityNotFound)
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("I'd like a LOW-sugar, high protein breakfast with eggs & eggs; no nuts!")

	assert.Equal(t, []string{"low", "sugar", "high", "protein", "breakfast", "eggs", "nuts"}, tokens)
	assert.Empty(t, Tokenize("a an of to"))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{HopDepth: 9}.withDefaults()

	require.Equal(t, 3, cfg.HopDepth)
	assert.Equal(t, 3, cfg.TopK)
	assert.Equal(t, 25, cfg.NeighborLimit)
}
