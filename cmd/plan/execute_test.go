package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alchemorsel/vitaplan/internal/application/pipeline"
	"github.com/alchemorsel/vitaplan/internal/domain/knowledge"
	"github.com/alchemorsel/vitaplan/internal/domain/plan"
	"github.com/alchemorsel/vitaplan/internal/domain/profile"
	"github.com/alchemorsel/vitaplan/internal/domain/safety"
	"github.com/alchemorsel/vitaplan/internal/ports/inbound"
	"github.com/alchemorsel/vitaplan/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const requestYAML = `
user_metadata:
  age: 42
  sex: female
  height_cm: 165
  weight_kg: 70
  fitness_level: beginner
  medical_conditions: [hypertension]
environment:
  weather:
    condition: sunny
    temperature_c: 31
user_requirement:
  goal: weight_loss
  preference: Mediterranean food, swimming
bn: 2
vn: 3
min_score: 55
kinds: [diet]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRequest_YAML(t *testing.T) {
	req, err := loadRequest(writeFile(t, "req.yaml", requestYAML))
	require.NoError(t, err)

	assert.Equal(t, 42, req.User.Age)
	assert.Equal(t, profile.SexFemale, req.User.Sex)
	assert.Equal(t, []string{"hypertension"}, req.User.MedicalConditions)
	temp, ok := req.Environment.Temperature()
	require.True(t, ok)
	assert.Equal(t, 31.0, temp)
	assert.Equal(t, profile.GoalWeightLoss, req.Requirement.Goal)
	assert.Equal(t, 2, req.BaseCount)
	require.NotNil(t, req.MinScore)
	assert.Equal(t, 55.0, *req.MinScore)
	assert.Equal(t, []plan.Kind{plan.KindDiet}, req.Kinds)
}

func TestLoadRequest_JSON(t *testing.T) {
	req, err := loadRequest(writeFile(t, "req.json",
		`{"user_metadata": {"age": 30, "sex": "male"}, "top_k": 2, "seed": 7}`))
	require.NoError(t, err)

	assert.Equal(t, 30, req.User.Age)
	assert.Equal(t, 2, req.TopK)
	require.NotNil(t, req.Seed)
	assert.Equal(t, int64(7), *req.Seed)
}

func TestLoadRequest_Errors(t *testing.T) {
	_, err := loadRequest(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = loadRequest(writeFile(t, "bad.yaml", "user_metadata: [unclosed"))
	assert.Error(t, err)
}

func kindResult(kind plan.Kind) *inbound.KindResult {
	return &inbound.KindResult{
		Kind:          kind,
		RetrievalMode: knowledge.ModeKeyword,
		Top: []inbound.Candidate{{
			Rank:       1,
			Variant:    plan.Variant{Kind: kind, Label: plan.LabelStandard, Title: "Balanced week"},
			Assessment: safety.Assessment{Score: 91.5, IsSafe: true},
		}},
	}
}

func TestExecute_SingleKind(t *testing.T) {
	// Arrange
	planner := new(testutils.MockPlanningService)
	planner.On("GenerateCandidates", mock.Anything, plan.KindExercise, mock.Anything).
		Return(kindResult(plan.KindExercise), nil)
	var out, summary bytes.Buffer

	// Act
	err := execute(context.Background(), planner, inbound.PlanRequest{}, "exercise", &out, &summary)

	// Assert
	require.NoError(t, err)
	var decoded inbound.KindResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, plan.KindExercise, decoded.Kind)
	assert.Contains(t, summary.String(), "EXERCISE")
	assert.Contains(t, summary.String(), "Balanced week")
	assert.Contains(t, summary.String(), "score=91.5")
	planner.AssertExpectations(t)
}

func TestExecute_AllKinds(t *testing.T) {
	planner := new(testutils.MockPlanningService)
	planner.On("Run", mock.Anything, mock.Anything).Return(&inbound.PlanResult{
		Diet:     kindResult(plan.KindDiet),
		Exercise: kindResult(plan.KindExercise),
	}, nil)
	var out, summary bytes.Buffer

	err := execute(context.Background(), planner, inbound.PlanRequest{}, "all", &out, &summary)

	require.NoError(t, err)
	assert.Contains(t, out.String(), `"diet"`)
	assert.Contains(t, summary.String(), "DIET")
	assert.Contains(t, summary.String(), "EXERCISE")
}

func TestExecute_NoCandidatesStillWritesResult(t *testing.T) {
	// Arrange
	res := &inbound.KindResult{Kind: plan.KindDiet, Errors: []string{"parse failure"}}
	planner := new(testutils.MockPlanningService)
	planner.On("GenerateCandidates", mock.Anything, plan.KindDiet, mock.Anything).
		Return(res, pipeline.ErrNoCandidates)
	var out, summary bytes.Buffer

	// Act
	err := execute(context.Background(), planner, inbound.PlanRequest{}, "diet", &out, &summary)

	// Assert
	assert.ErrorIs(t, err, pipeline.ErrNoCandidates)
	assert.NotEmpty(t, out.String())
	assert.Contains(t, summary.String(), "parse failure")
}

func TestExecute_Errors(t *testing.T) {
	var out, summary bytes.Buffer

	err := execute(context.Background(), new(testutils.MockPlanningService), inbound.PlanRequest{}, "yoga", &out, &summary)
	assert.ErrorIs(t, err, plan.ErrUnknownKind)

	planner := new(testutils.MockPlanningService)
	planner.On("Run", mock.Anything, mock.Anything).Return(nil, knowledge.ErrRetrievalUnavailable)
	err = execute(context.Background(), planner, inbound.PlanRequest{}, "", &out, &summary)
	assert.True(t, errors.Is(err, knowledge.ErrRetrievalUnavailable))
	assert.Empty(t, out.String())
}
