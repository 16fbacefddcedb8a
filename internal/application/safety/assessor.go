// Package safety provides the application layer for plan safety assessment.
// It runs the rule layer, merges the semantic judge and scores the result.
package safety

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alchemorsel/vitaplan/internal/domain/plan"
	"github.com/alchemorsel/vitaplan/internal/domain/profile"
	"github.com/alchemorsel/vitaplan/internal/domain/safety"
	"github.com/alchemorsel/vitaplan/internal/ports/inbound"
	"github.com/alchemorsel/vitaplan/internal/ports/outbound"
	"go.uber.org/zap"
)

// General advice attached to every exercise assessment
var exerciseAdvice = []string{
	"Start gradually and listen to your body",
	"Stay hydrated before, during, and after exercise",
	"Stop immediately if you experience pain or discomfort",
}

// Config tunes the semantic layer
type Config struct {
	Temperature float64
	Timeout     time.Duration
}

// Assessor implements inbound.SafetyAssessor
type Assessor struct {
	llm     outbound.TextGenerator
	metrics outbound.MetricsRecorder
	config  Config
	logger  *zap.Logger
	now     func() time.Time
}

var _ inbound.SafetyAssessor = (*Assessor)(nil)

// NewAssessor creates a safety assessor
func NewAssessor(llm outbound.TextGenerator, metrics outbound.MetricsRecorder, config Config, logger *zap.Logger) *Assessor {
	if metrics == nil {
		metrics = outbound.NopMetrics{}
	}
	if config.Temperature <= 0 {
		config.Temperature = 0.3
	}
	return &Assessor{
		llm:     llm,
		metrics: metrics,
		config:  config,
		logger:  logger.Named("safety-service"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Assess runs Init → [RuleChecks] → SemanticCheck → Merge → Score →
// Classify. The score is computed only after both layers have appended
// their findings. A failed semantic layer lowers confidence and never
// fails the assessment.
func (a *Assessor) Assess(
	ctx context.Context,
	content plan.Content,
	kind plan.Kind,
	user profile.UserMetadata,
	env profile.EnvironmentContext,
	opts safety.Options,
) (safety.Assessment, error) {
	if !kind.Valid() {
		return safety.Assessment{}, fmt.Errorf("%w: %q", plan.ErrUnknownKind, kind)
	}
	content.Kind = kind

	acc := safety.NewAccumulator()

	if opts.EnableRuleChecks {
		for _, rule := range rulesFor(kind) {
			rule(acc, content, user, env)
		}
	}

	semanticOK := true
	if err := a.semanticCheck(ctx, acc, content, user, env); err != nil {
		semanticOK = false
		acc.Degrade(err.Error(), safety.ReducedConfidence)
		a.logger.Warn("Semantic assessment degraded",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}

	result := acc.Finalize(string(kind), opts.Threshold, recommendations(acc.Risks(), kind, user), a.now())
	a.metrics.ObserveAssessment(string(kind), result.Score, result.IsSafe, semanticOK)

	a.logger.Debug("Plan assessed",
		zap.String("kind", string(kind)),
		zap.Float64("score", result.Score),
		zap.Bool("is_safe", result.IsSafe),
		zap.Int("checks", len(result.Checks)),
		zap.Int("risk_factors", len(result.RiskFactors)),
	)
	return result, nil
}

func (a *Assessor) semanticCheck(
	ctx context.Context,
	acc *safety.Accumulator,
	content plan.Content,
	user profile.UserMetadata,
	env profile.EnvironmentContext,
) error {
	if a.llm == nil {
		return fmt.Errorf("%w: no inference service configured", safety.ErrSemanticAssessment)
	}

	prompt, err := semanticPrompt(content, user, env)
	if err != nil {
		return fmt.Errorf("%w: %v", safety.ErrSemanticAssessment, err)
	}

	callCtx := ctx
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	raw, err := a.llm.Complete(callCtx, semanticSystemPrompt, prompt, a.config.Temperature)
	if err != nil {
		return fmt.Errorf("%w: %v", safety.ErrSemanticAssessment, err)
	}

	checks, risks, err := parseSemantic(raw)
	if err != nil {
		return err
	}
	for _, c := range checks {
		acc.AddCheck(c)
	}
	for _, r := range risks {
		acc.AddRisk(r)
	}
	return nil
}

// recommendations collects risk-specific advice followed by general advice,
// deduplicated in first-seen order
func recommendations(risks []safety.RiskFactor, kind plan.Kind, user profile.UserMetadata) []string {
	out := make([]string, 0, len(risks)+4)
	for _, r := range risks {
		out = append(out, r.Recommendation)
	}
	if len(user.MedicalConditions) > 0 {
		out = append(out, "Consult healthcare provider before starting due to: "+strings.Join(user.MedicalConditions, ", "))
	}
	if kind == plan.KindExercise {
		out = append(out, exerciseAdvice...)
	}
	return safety.Dedupe(out)
}
