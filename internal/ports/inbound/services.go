// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the operations the planning core exposes to HTTP handlers and the CLI
package inbound

import (
	"context"
	"time"

	"github.com/alchemorsel/vitaplan/internal/domain/knowledge"
	"github.com/alchemorsel/vitaplan/internal/domain/plan"
	"github.com/alchemorsel/vitaplan/internal/domain/profile"
	"github.com/alchemorsel/vitaplan/internal/domain/safety"
)

// KnowledgeRetriever turns preference text into graph evidence
type KnowledgeRetriever interface {
	Retrieve(ctx context.Context, query RetrieveQuery) (knowledge.Result, error)
	Neighbors(ctx context.Context, entity string) ([]knowledge.Relation, error)
}

// SafetyAssessor scores one plan
type SafetyAssessor interface {
	Assess(ctx context.Context, content plan.Content, kind plan.Kind, user profile.UserMetadata, env profile.EnvironmentContext, opts safety.Options) (safety.Assessment, error)
}

// PlanningService runs the retrieve, generate, expand and score pipeline
type PlanningService interface {
	GenerateCandidates(ctx context.Context, kind plan.Kind, req PlanRequest) (*KindResult, error)
	Run(ctx context.Context, req PlanRequest) (*PlanResult, error)
}

// RetrieveQuery contains the parameters of one retrieval call
type RetrieveQuery struct {
	Preference        string `json:"preference"`
	TopK              int    `json:"top_k"`
	UseSemanticSearch bool   `json:"use_semantic_search"`
}

// PlanRequest contains the input of one pipeline run. Zero values fall
// back to configured defaults.
type PlanRequest struct {
	User        profile.UserMetadata       `json:"user_metadata" yaml:"user_metadata"`
	Environment profile.EnvironmentContext `json:"environment" yaml:"environment"`
	Requirement profile.UserRequirement    `json:"user_requirement" yaml:"user_requirement"`

	BaseCount    int      `json:"bn,omitempty" yaml:"bn"`
	VariantCount int      `json:"vn,omitempty" yaml:"vn"`
	TopK         int      `json:"top_k,omitempty" yaml:"top_k"`
	MinScore     *float64 `json:"min_score,omitempty" yaml:"min_score"`

	EnableRuleChecks *bool    `json:"enable_rule_checks,omitempty" yaml:"enable_rule_checks"`
	Threshold        *float64 `json:"threshold,omitempty" yaml:"threshold"`
	UseSemantic      *bool    `json:"use_semantic_search,omitempty" yaml:"use_semantic_search"`
	Seed             *int64   `json:"seed,omitempty" yaml:"seed"`

	// Kinds restricts Run to the listed plan kinds; empty means both
	Kinds []plan.Kind `json:"kinds,omitempty" yaml:"kinds"`
}

// Wants reports whether the run should produce plans of kind
func (r PlanRequest) Wants(kind plan.Kind) bool {
	if len(r.Kinds) == 0 {
		return true
	}
	for _, k := range r.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Candidate is one assessed variant
type Candidate struct {
	Rank       int               `json:"rank"`
	Variant    plan.Variant      `json:"variant"`
	Assessment safety.Assessment `json:"assessment"`
	// CalorieDeviation is the percent difference from target, diet only
	CalorieDeviation *float64 `json:"calorie_deviation_pct,omitempty"`
}

// KindResult is the output for one plan kind
type KindResult struct {
	Kind          plan.Kind            `json:"kind"`
	RetrievalMode string               `json:"retrieval_mode"`
	Knowledge     []knowledge.Relation `json:"knowledge"`
	BasePlans     []plan.BasePlan      `json:"base_plans"`
	Candidates    []Candidate          `json:"candidates"`
	Top           []Candidate          `json:"top"`
	Dropped       int                  `json:"dropped"`
	Errors        []string             `json:"errors,omitempty"`
	// Partial is set when the run was cancelled before every candidate finished
	Partial     bool      `json:"partial,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Best returns the highest ranked candidate, if any
func (r *KindResult) Best() (Candidate, bool) {
	if r == nil || len(r.Top) == 0 {
		return Candidate{}, false
	}
	return r.Top[0], true
}

// PlanResult is the output of a full run
type PlanResult struct {
	Diet        *KindResult     `json:"diet,omitempty"`
	Exercise    *KindResult     `json:"exercise,omitempty"`
	Combined    safety.Combined `json:"combined"`
	GeneratedAt time.Time       `json:"generated_at"`
}
