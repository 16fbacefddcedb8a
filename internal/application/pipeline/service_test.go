package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alchemorsel/vitaplan/internal/application/generation"
	"github.com/alchemorsel/vitaplan/internal/domain/knowledge"
	"github.com/alchemorsel/vitaplan/internal/domain/plan"
	"github.com/alchemorsel/vitaplan/internal/domain/profile"
	"github.com/alchemorsel/vitaplan/internal/domain/safety"
	"github.com/alchemorsel/vitaplan/internal/ports/inbound"
	"github.com/alchemorsel/vitaplan/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

// fakeGenerator builds base plans without an inference service
type fakeGenerator struct {
	mu    sync.Mutex
	fail  map[int]error
	calls []generation.Input
	build func(kind plan.Kind, index int) plan.BasePlan
}

func (f *fakeGenerator) GenerateBases(ctx context.Context, kind plan.Kind, in generation.Input, bn int, seed *int64) generation.Batch {
	f.mu.Lock()
	f.calls = append(f.calls, in)
	f.mu.Unlock()

	batch := generation.Batch{Outcomes: make([]generation.Outcome, bn)}
	for i := 0; i < bn; i++ {
		batch.Outcomes[i] = generation.Outcome{Index: i, Seed: int64(i)}
		if err := ctx.Err(); err != nil {
			batch.Outcomes[i].Err = err
			continue
		}
		if err, ok := f.fail[i]; ok {
			batch.Outcomes[i].Err = err
			continue
		}
		base := f.build(kind, i)
		batch.Outcomes[i].Plan = &base
	}
	return batch
}

func dietBase(index int) plan.BasePlan {
	items := []plan.Item{
		{Slot: "breakfast", Name: fmt.Sprintf("Oats %d", index), Quantity: plan.Quantity{Value: 100, Unit: plan.UnitGram}, TotalCalories: 500},
		{Slot: "lunch", Name: "Salmon", Quantity: plan.Quantity{Value: 150, Unit: plan.UnitGram}, TotalCalories: 700},
		{Slot: "dinner", Name: "Quinoa", Quantity: plan.Quantity{Value: 200, Unit: plan.UnitGram}, TotalCalories: 600},
		{Slot: "snacks", Name: "Apple", Quantity: plan.Quantity{Value: 1, Unit: plan.UnitPiece}, TotalCalories: 200},
	}
	return plan.NewBasePlan(plan.KindDiet, fmt.Sprintf("Diet %d", index), items, 0, 2000, plan.Style{})
}

func exerciseBase(index int) plan.BasePlan {
	items := []plan.Item{{
		Slot:          plan.SegmentCardio,
		Name:          "Cycling",
		ExerciseType:  "cycling",
		Intensity:     plan.IntensityModerate,
		Quantity:      plan.Quantity{Value: 30, Unit: plan.UnitMinute},
		TotalCalories: 250,
	}}
	return plan.NewBasePlan(plan.KindExercise, fmt.Sprintf("Session %d", index), items, 3, 250, plan.Style{})
}

func buildBase(kind plan.Kind, index int) plan.BasePlan {
	if kind == plan.KindExercise {
		return exerciseBase(index)
	}
	return dietBase(index)
}

// scoreAssessor scores variants with a caller-supplied function
type scoreAssessor struct {
	score func(content plan.Content) float64
}

func (a scoreAssessor) Assess(_ context.Context, content plan.Content, kind plan.Kind, _ profile.UserMetadata, _ profile.EnvironmentContext, opts safety.Options) (safety.Assessment, error) {
	score := a.score(content)
	return safety.Assessment{
		PlanKind:        string(kind),
		Score:           score,
		IsSafe:          score >= opts.Threshold,
		RiskLevel:       safety.RiskLevelFor(score),
		Status:          safety.StatusFor(score),
		Confidence:      safety.FullConfidence,
		Recommendations: []string{},
	}, nil
}

func constantScore(v float64) scoreAssessor {
	return scoreAssessor{score: func(plan.Content) float64 { return v }}
}

type PipelineServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	retriever *testutils.MockKnowledgeRetriever
	generator *fakeGenerator
	request   inbound.PlanRequest
	config    Config
}

func (s *PipelineServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.retriever = new(testutils.MockKnowledgeRetriever)
	s.generator = &fakeGenerator{build: buildBase}
	s.config = Config{
		BaseCount:        3,
		VariantCount:     3,
		TopK:             3,
		MaxConcurrency:   2,
		EnableRuleChecks: true,
		Threshold:        60,
		Fallbacks: map[plan.Kind]string{
			plan.KindDiet:     FallbackKeyword,
			plan.KindExercise: FallbackEmpty,
		},
	}
	s.request = inbound.PlanRequest{
		User:        testutils.NewUserBuilder().Build(),
		Environment: testutils.Environment(20, "clear"),
		Requirement: profile.UserRequirement{Goal: profile.GoalMaintenance, Preference: "salmon and spinach"},
	}
}

func (s *PipelineServiceTestSuite) TearDownTest() {
	s.retriever.AssertExpectations(s.T())
}

func TestPipelineServiceSuite(t *testing.T) {
	suite.Run(t, new(PipelineServiceTestSuite))
}

func (s *PipelineServiceTestSuite) service(assessor inbound.SafetyAssessor) *Service {
	return NewService(s.retriever, s.generator, assessor, nil, s.config, zaptest.NewLogger(s.T()))
}

func (s *PipelineServiceTestSuite) okRetrieval() {
	s.retriever.On("Retrieve", mock.Anything, mock.AnythingOfType("inbound.RetrieveQuery")).
		Return(knowledge.Result{
			Mode:      knowledge.ModeKeyword,
			Relations: []knowledge.Relation{{Head: "Salmon", Relation: "rich_in", Tail: "Omega-3"}},
		}, nil)
}

func (s *PipelineServiceTestSuite) TestGenerateCandidates_RanksByScore() {
	// Arrange: later bases and heavier variants score lower
	s.okRetrieval()
	svc := s.service(scoreAssessor{score: func(c plan.Content) float64 {
		return 100 - c.TotalCalories()/100
	}})

	// Act
	result, err := svc.GenerateCandidates(s.ctx, plan.KindDiet, s.request)

	// Assert
	s.Require().NoError(err)
	s.Equal(knowledge.ModeKeyword, result.RetrievalMode)
	s.Len(result.Knowledge, 1)
	s.Len(result.BasePlans, 3)
	s.Require().Len(result.Candidates, 9)
	s.Require().Len(result.Top, 3)
	for i, c := range result.Candidates {
		s.Equal(i+1, c.Rank)
		if i > 0 {
			s.GreaterOrEqual(result.Candidates[i-1].Assessment.Score, c.Assessment.Score)
		}
	}
	for _, c := range result.Top {
		s.Equal(plan.LabelLite, c.Variant.Label)
	}
	s.Equal(0, result.Dropped)
	s.False(result.Partial)
	s.False(result.GeneratedAt.IsZero())

	s.Require().Len(s.generator.calls, 1)
	s.Len(s.generator.calls[0].Knowledge, 1)
}

func (s *PipelineServiceTestSuite) TestGenerateCandidates_TiesByBaseThenVariant() {
	s.okRetrieval()
	svc := s.service(constantScore(80))

	result, err := svc.GenerateCandidates(s.ctx, plan.KindDiet, s.request)

	s.Require().NoError(err)
	s.Require().Len(result.Candidates, 9)
	labels := []plan.Label{plan.LabelLite, plan.LabelStandard, plan.LabelPlus}
	for i, c := range result.Candidates {
		s.Equal(i/3, c.Variant.BaseIndex)
		s.Equal(labels[i%3], c.Variant.Label)
	}
}

func (s *PipelineServiceTestSuite) TestGenerateCandidates_MinScoreAndTopK() {
	s.okRetrieval()
	svc := s.service(scoreAssessor{score: func(c plan.Content) float64 {
		if c.Title == "Diet 0" {
			return 90
		}
		return 50
	}})
	minScore := 60.0
	s.request.MinScore = &minScore
	s.request.TopK = 5

	result, err := svc.GenerateCandidates(s.ctx, plan.KindDiet, s.request)

	s.Require().NoError(err)
	s.Len(result.Candidates, 9)
	s.Len(result.Top, 3)
	for _, c := range result.Top {
		s.Equal(0, c.Variant.BaseIndex)
	}
}

func (s *PipelineServiceTestSuite) TestGenerateCandidates_VariantCount() {
	s.okRetrieval()
	svc := s.service(constantScore(80))
	s.request.VariantCount = 1

	result, err := svc.GenerateCandidates(s.ctx, plan.KindDiet, s.request)

	s.Require().NoError(err)
	s.Require().Len(result.Candidates, 3)
	for _, c := range result.Candidates {
		s.Equal(plan.LabelStandard, c.Variant.Label)
	}
}

func (s *PipelineServiceTestSuite) TestGenerateCandidates_CalorieDeviation() {
	s.okRetrieval()
	svc := s.service(constantScore(80))
	s.request.BaseCount = 1

	result, err := svc.GenerateCandidates(s.ctx, plan.KindDiet, s.request)

	s.Require().NoError(err)
	s.Require().Len(result.Candidates, 3)
	byLabel := map[plan.Label]inbound.Candidate{}
	for _, c := range result.Candidates {
		byLabel[c.Variant.Label] = c
	}

	standard := byLabel[plan.LabelStandard]
	s.Require().NotNil(standard.CalorieDeviation)
	s.Equal(0.0, *standard.CalorieDeviation)
	s.Empty(standard.Assessment.Recommendations)

	lite := byLabel[plan.LabelLite]
	s.Require().NotNil(lite.CalorieDeviation)
	s.Less(*lite.CalorieDeviation, -DeviationNoteThreshold)
	s.Require().Len(lite.Assessment.Recommendations, 1)
	s.Contains(lite.Assessment.Recommendations[0], "2000 kcal target")
}

func (s *PipelineServiceTestSuite) TestGenerateCandidates_ExerciseHasNoDeviation() {
	s.okRetrieval()
	svc := s.service(constantScore(80))

	result, err := svc.GenerateCandidates(s.ctx, plan.KindExercise, s.request)

	s.Require().NoError(err)
	for _, c := range result.Candidates {
		s.Nil(c.CalorieDeviation)
	}
}

func (s *PipelineServiceTestSuite) TestGenerateCandidates_PartialGeneration() {
	s.okRetrieval()
	s.generator.fail = map[int]error{1: fmt.Errorf("%w: no JSON found in response", generation.ErrGenerationParse)}
	svc := s.service(constantScore(80))

	result, err := svc.GenerateCandidates(s.ctx, plan.KindDiet, s.request)

	s.Require().NoError(err)
	s.Len(result.BasePlans, 2)
	s.Len(result.Candidates, 6)
	s.Equal(1, result.Dropped)
	s.Require().Len(result.Errors, 1)
	s.Contains(result.Errors[0], "base 1")
	for _, c := range result.Candidates {
		s.NotEqual(1, c.Variant.BaseIndex)
	}
}

func (s *PipelineServiceTestSuite) TestGenerateCandidates_NoCandidates() {
	s.okRetrieval()
	boom := fmt.Errorf("%w: empty response", generation.ErrGenerationParse)
	s.generator.fail = map[int]error{0: boom, 1: boom, 2: boom}
	svc := s.service(constantScore(80))

	result, err := svc.GenerateCandidates(s.ctx, plan.KindDiet, s.request)

	s.ErrorIs(err, ErrNoCandidates)
	s.Require().NotNil(result)
	s.Equal(3, result.Dropped)
	s.Empty(result.Candidates)
	s.Len(result.Errors, 3)
}

func (s *PipelineServiceTestSuite) TestGenerateCandidates_ValidationFailsFast() {
	s.request.User.Age = 0
	svc := s.service(constantScore(80))

	result, err := svc.GenerateCandidates(s.ctx, plan.KindDiet, s.request)

	s.Nil(result)
	s.ErrorIs(err, profile.ErrValidation)
	s.Empty(s.generator.calls)
}

func (s *PipelineServiceTestSuite) TestGenerateCandidates_RequestLimits() {
	tests := []struct {
		name   string
		mutate func(r *inbound.PlanRequest)
		field  string
	}{
		{"bn above ten", func(r *inbound.PlanRequest) { r.BaseCount = 11 }, "bn"},
		{"negative bn", func(r *inbound.PlanRequest) { r.BaseCount = -1 }, "bn"},
		{"vn above three", func(r *inbound.PlanRequest) { r.VariantCount = 4 }, "vn"},
		{"threshold above 100", func(r *inbound.PlanRequest) { v := 101.0; r.Threshold = &v }, "threshold"},
		{"unknown kind", func(r *inbound.PlanRequest) { r.Kinds = []plan.Kind{"sleep"} }, "kinds"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := s.request
			tt.mutate(&req)
			svc := s.service(constantScore(80))

			_, err := svc.GenerateCandidates(s.ctx, plan.KindDiet, req)

			var verr *profile.ValidationError
			s.Require().ErrorAs(err, &verr)
			s.Equal(tt.field, verr.Violations[0].Field)
		})
	}
}

func (s *PipelineServiceTestSuite) TestGenerateCandidates_UnknownKind() {
	svc := s.service(constantScore(80))

	_, err := svc.GenerateCandidates(s.ctx, plan.Kind("sleep"), s.request)

	s.ErrorIs(err, plan.ErrUnknownKind)
}

func (s *PipelineServiceTestSuite) TestRetrievalFallback_Fail() {
	s.config.Fallbacks[plan.KindDiet] = FallbackFail
	s.retriever.On("Retrieve", mock.Anything, mock.Anything).
		Return(knowledge.Result{}, fmt.Errorf("%w: dial tcp: refused", knowledge.ErrRetrievalUnavailable)).Once()
	svc := s.service(constantScore(80))

	result, err := svc.GenerateCandidates(s.ctx, plan.KindDiet, s.request)

	s.Nil(result)
	s.ErrorIs(err, knowledge.ErrRetrievalUnavailable)
	s.Empty(s.generator.calls)
}

func (s *PipelineServiceTestSuite) TestRetrievalFallback_Empty() {
	s.retriever.On("Retrieve", mock.Anything, mock.Anything).
		Return(knowledge.Result{}, fmt.Errorf("%w: timeout", knowledge.ErrRetrievalUnavailable)).Once()
	svc := s.service(constantScore(80))

	result, err := svc.GenerateCandidates(s.ctx, plan.KindExercise, s.request)

	s.Require().NoError(err)
	s.Equal(knowledge.ModeEmpty, result.RetrievalMode)
	s.Empty(result.Knowledge)
	s.Require().NotEmpty(result.Errors)
	s.Contains(result.Errors[0], "continued without knowledge")
	s.Len(result.Candidates, 9)
}

func (s *PipelineServiceTestSuite) TestRetrievalFallback_Keyword() {
	// Arrange
	semantic := true
	s.request.UseSemantic = &semantic
	s.retriever.On("Retrieve", mock.Anything, mock.MatchedBy(func(q inbound.RetrieveQuery) bool { return q.UseSemanticSearch })).
		Return(knowledge.Result{}, fmt.Errorf("%w: embedder down", knowledge.ErrRetrievalUnavailable)).Once()
	s.retriever.On("Retrieve", mock.Anything, mock.MatchedBy(func(q inbound.RetrieveQuery) bool { return !q.UseSemanticSearch })).
		Return(knowledge.Result{Mode: knowledge.ModeKeyword, Relations: []knowledge.Relation{}}, nil).Once()
	svc := s.service(constantScore(80))

	// Act
	result, err := svc.GenerateCandidates(s.ctx, plan.KindDiet, s.request)

	// Assert
	s.Require().NoError(err)
	s.Equal(knowledge.ModeKeyword, result.RetrievalMode)
	s.Require().NotEmpty(result.Errors)
	s.Contains(result.Errors[0], "used keyword match")
}

func (s *PipelineServiceTestSuite) TestRetrievalQueryIncludesTags() {
	s.request.Requirement.PreferenceTags = []string{"high_protein"}
	s.retriever.On("Retrieve", mock.Anything, mock.MatchedBy(func(q inbound.RetrieveQuery) bool {
		return q.Preference == "salmon and spinach high_protein"
	})).Return(knowledge.Result{Mode: knowledge.ModeKeyword}, nil).Once()
	svc := s.service(constantScore(80))

	_, err := svc.GenerateCandidates(s.ctx, plan.KindDiet, s.request)

	s.NoError(err)
}

func (s *PipelineServiceTestSuite) TestGenerateCandidates_AssessmentOptions() {
	s.okRetrieval()
	assessor := new(testutils.MockSafetyAssessor)
	off := false
	threshold := 75.0
	s.request.EnableRuleChecks = &off
	s.request.Threshold = &threshold
	s.request.BaseCount = 1
	assessor.On("Assess", mock.Anything, mock.Anything, plan.KindDiet, s.request.User, s.request.Environment,
		safety.Options{EnableRuleChecks: false, Threshold: 75}).
		Return(safety.Assessment{Score: 90, Recommendations: []string{}}, nil).Times(3)
	svc := s.service(assessor)

	result, err := svc.GenerateCandidates(s.ctx, plan.KindDiet, s.request)

	s.Require().NoError(err)
	s.Len(result.Candidates, 3)
	assessor.AssertExpectations(s.T())
}

func (s *PipelineServiceTestSuite) TestGenerateCandidates_AssessmentErrorDropsCandidate() {
	s.okRetrieval()
	assessor := new(testutils.MockSafetyAssessor)
	s.request.BaseCount = 1
	s.request.VariantCount = 1
	assessor.On("Assess", mock.Anything, mock.Anything, plan.KindDiet, mock.Anything, mock.Anything, mock.Anything).
		Return(safety.Assessment{}, errors.New("bad plan")).Once()
	svc := s.service(assessor)

	result, err := svc.GenerateCandidates(s.ctx, plan.KindDiet, s.request)

	s.Require().NoError(err)
	s.Empty(result.Candidates)
	s.Equal(1, result.Dropped)
	s.False(result.Partial)
}

func (s *PipelineServiceTestSuite) TestGenerateCandidates_CancelledKeepsPartialResult() {
	// Arrange: the context is cancelled after retrieval
	ctx, cancel := context.WithCancel(s.ctx)
	s.retriever.On("Retrieve", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(knowledge.Result{Mode: knowledge.ModeKeyword}, nil).Once()
	svc := s.service(constantScore(80))

	// Act
	result, err := svc.GenerateCandidates(ctx, plan.KindDiet, s.request)

	// Assert
	s.ErrorIs(err, ErrNoCandidates)
	s.Require().NotNil(result)
	s.True(result.Partial)
	s.Equal(3, result.Dropped)
}

func (s *PipelineServiceTestSuite) TestRun_CombinesKinds() {
	// Arrange
	s.okRetrieval()
	svc := s.service(scoreAssessor{score: func(c plan.Content) float64 {
		if c.Kind == plan.KindExercise {
			return 71
		}
		return 90
	}})

	// Act
	result, err := svc.Run(s.ctx, s.request)

	// Assert
	s.Require().NoError(err)
	s.Require().NotNil(result.Diet)
	s.Require().NotNil(result.Exercise)
	s.Equal(80, result.Combined.OverallScore)
	s.True(result.Combined.IsSafe)
	s.Require().NotNil(result.Combined.Diet)
	s.Equal(90.0, result.Combined.Diet.Score)
	s.Equal(71.0, result.Combined.Exercise.Score)
	s.Len(s.generator.calls, 2)
}

func (s *PipelineServiceTestSuite) TestRun_SingleKind() {
	s.okRetrieval()
	s.request.Kinds = []plan.Kind{plan.KindExercise}
	svc := s.service(constantScore(80))

	result, err := svc.Run(s.ctx, s.request)

	s.Require().NoError(err)
	s.Nil(result.Diet)
	s.NotNil(result.Exercise)
	s.Nil(result.Combined.Diet)
	s.Equal(80, result.Combined.OverallScore)
}

func (s *PipelineServiceTestSuite) TestRun_OneKindWithoutCandidates() {
	s.okRetrieval()
	boom := fmt.Errorf("%w: empty response", generation.ErrGenerationParse)
	s.generator.fail = map[int]error{0: boom, 1: boom, 2: boom}
	s.request.Kinds = []plan.Kind{plan.KindDiet}
	svc := s.service(constantScore(80))

	result, err := svc.Run(s.ctx, s.request)

	s.ErrorIs(err, ErrNoCandidates)
	s.Require().NotNil(result)
	s.Require().NotNil(result.Diet)
	s.Equal(3, result.Diet.Dropped)
	s.Equal(100, result.Combined.OverallScore)
}

func (s *PipelineServiceTestSuite) TestRun_RetrievalFailureAbortsRun() {
	s.config.Fallbacks[plan.KindDiet] = FallbackFail
	s.config.Fallbacks[plan.KindExercise] = FallbackFail
	s.retriever.On("Retrieve", mock.Anything, mock.Anything).
		Return(knowledge.Result{}, knowledge.ErrRetrievalUnavailable)
	svc := s.service(constantScore(80))

	result, err := svc.Run(s.ctx, s.request)

	s.Nil(result)
	s.ErrorIs(err, knowledge.ErrRetrievalUnavailable)
}

func (s *PipelineServiceTestSuite) TestRun_ValidationError() {
	s.request.Environment.Weather.Condition = ""
	s.request.User.Sex = "unknown"
	svc := s.service(constantScore(80))

	_, err := svc.Run(s.ctx, s.request)

	s.ErrorIs(err, profile.ErrValidation)
}

func TestRunTimeout(t *testing.T) {
	retriever := new(testutils.MockKnowledgeRetriever)
	retriever.On("Retrieve", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(knowledge.Result{}, context.DeadlineExceeded)
	svc := NewService(retriever, &fakeGenerator{build: buildBase}, constantScore(80), nil,
		Config{RunTimeout: 20 * time.Millisecond, Fallbacks: map[plan.Kind]string{plan.KindDiet: FallbackFail}},
		zaptest.NewLogger(t))

	_, err := svc.GenerateCandidates(context.Background(), plan.KindDiet, inbound.PlanRequest{
		User:        testutils.NewUserBuilder().Build(),
		Environment: testutils.Environment(20, "clear"),
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSelectVariants(t *testing.T) {
	variants := plan.Expand(dietBase(0))

	assert.Len(t, selectVariants(variants, 3), 3)
	two := selectVariants(variants, 2)
	assert.Equal(t, []plan.Label{plan.LabelLite, plan.LabelStandard}, []plan.Label{two[0].Label, two[1].Label})
	one := selectVariants(variants, 1)
	assert.Equal(t, plan.LabelStandard, one[0].Label)
}
