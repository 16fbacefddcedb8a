// Package pipeline orchestrates retrieval, generation, expansion and safety
// scoring into ranked plan candidates.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/alchemorsel/vitaplan/internal/application/generation"
	"github.com/alchemorsel/vitaplan/internal/domain/knowledge"
	"github.com/alchemorsel/vitaplan/internal/domain/plan"
	"github.com/alchemorsel/vitaplan/internal/domain/profile"
	"github.com/alchemorsel/vitaplan/internal/domain/safety"
	"github.com/alchemorsel/vitaplan/internal/ports/inbound"
	"github.com/alchemorsel/vitaplan/internal/ports/outbound"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Retrieval fallbacks
const (
	FallbackKeyword = "keyword"
	FallbackEmpty   = "empty"
	FallbackFail    = "fail"
)

// Request limits
const (
	MaxBaseCount    = 10
	MaxVariantCount = 3
	// DeviationNoteThreshold is the calorie deviation in percent above which
	// a diet candidate gets a note
	DeviationNoteThreshold = 10.0
)

// BaseGenerator produces a batch of base plans
type BaseGenerator interface {
	GenerateBases(ctx context.Context, kind plan.Kind, in generation.Input, bn int, seed *int64) generation.Batch
}

// Config holds the defaults applied to requests
type Config struct {
	BaseCount         int
	VariantCount      int
	TopK              int
	MaxConcurrency    int
	MinScore          float64
	RunTimeout        time.Duration
	EnableRuleChecks  bool
	Threshold         float64
	UseSemanticSearch bool
	RetrievalTopK     int
	// Fallbacks maps each plan kind to keyword, empty or fail
	Fallbacks map[plan.Kind]string
}

func (c Config) withDefaults() Config {
	if c.BaseCount <= 0 {
		c.BaseCount = 3
	}
	if c.VariantCount <= 0 {
		c.VariantCount = 3
	}
	if c.TopK <= 0 {
		c.TopK = 3
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 4
	}
	if c.Fallbacks == nil {
		c.Fallbacks = map[plan.Kind]string{}
	}
	return c
}

// Service implements inbound.PlanningService
type Service struct {
	retriever inbound.KnowledgeRetriever
	generator BaseGenerator
	assessor  inbound.SafetyAssessor
	metrics   outbound.MetricsRecorder
	config    Config
	logger    *zap.Logger
	now       func() time.Time
}

var _ inbound.PlanningService = (*Service)(nil)

// NewService creates the planning pipeline
func NewService(
	retriever inbound.KnowledgeRetriever,
	generator BaseGenerator,
	assessor inbound.SafetyAssessor,
	metrics outbound.MetricsRecorder,
	config Config,
	logger *zap.Logger,
) *Service {
	if metrics == nil {
		metrics = outbound.NopMetrics{}
	}
	return &Service{
		retriever: retriever,
		generator: generator,
		assessor:  assessor,
		metrics:   metrics,
		config:    config.withDefaults(),
		logger:    logger.Named("pipeline-service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// settings is a request resolved against the configured defaults
type settings struct {
	bn, vn, topK int
	minScore     float64
	options      safety.Options
	semantic     bool
}

func (s *Service) resolve(req inbound.PlanRequest) (settings, error) {
	out := settings{
		bn:       s.config.BaseCount,
		vn:       s.config.VariantCount,
		topK:     s.config.TopK,
		minScore: s.config.MinScore,
		options:  safety.Options{EnableRuleChecks: s.config.EnableRuleChecks, Threshold: s.config.Threshold},
		semantic: s.config.UseSemanticSearch,
	}
	if req.BaseCount != 0 {
		out.bn = req.BaseCount
	}
	if req.VariantCount != 0 {
		out.vn = req.VariantCount
	}
	if req.TopK != 0 {
		out.topK = req.TopK
	}
	if req.MinScore != nil {
		out.minScore = *req.MinScore
	}
	if req.EnableRuleChecks != nil {
		out.options.EnableRuleChecks = *req.EnableRuleChecks
	}
	if req.Threshold != nil {
		out.options.Threshold = *req.Threshold
	}
	if req.UseSemantic != nil {
		out.semantic = *req.UseSemantic
	}

	var violations []profile.FieldViolation
	if out.bn < 1 || out.bn > MaxBaseCount {
		violations = append(violations, profile.FieldViolation{
			Field: "bn", Tag: "range", Message: fmt.Sprintf("bn must be between 1 and %d", MaxBaseCount),
		})
	}
	if out.vn < 1 || out.vn > MaxVariantCount {
		violations = append(violations, profile.FieldViolation{
			Field: "vn", Tag: "range", Message: fmt.Sprintf("vn must be between 1 and %d", MaxVariantCount),
		})
	}
	if out.topK < 1 {
		violations = append(violations, profile.FieldViolation{
			Field: "top_k", Tag: "gte", Message: "top_k must be at least 1",
		})
	}
	if out.options.Threshold < 0 || out.options.Threshold > 100 {
		violations = append(violations, profile.FieldViolation{
			Field: "threshold", Tag: "range", Message: "threshold must be between 0 and 100",
		})
	}
	for _, k := range req.Kinds {
		if !k.Valid() {
			violations = append(violations, profile.FieldViolation{
				Field: "kinds", Tag: "oneof", Message: fmt.Sprintf("kinds contains unknown plan kind %q", k),
			})
		}
	}
	if len(violations) > 0 {
		return settings{}, &profile.ValidationError{Violations: violations}
	}
	return out, nil
}

func (s *Service) validate(req inbound.PlanRequest) (settings, error) {
	if err := profile.Validate(req.User, req.Environment, req.Requirement); err != nil {
		return settings{}, err
	}
	return s.resolve(req)
}

// Run produces diet and exercise candidates and their combined verdict.
// Kinds run concurrently; validation and retrieval failures abort the run,
// a kind without candidates does not.
func (s *Service) Run(ctx context.Context, req inbound.PlanRequest) (*inbound.PlanResult, error) {
	if _, err := s.validate(req); err != nil {
		return nil, err
	}

	ctx, cancel := s.withRunTimeout(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		results = map[plan.Kind]*inbound.KindResult{}
		empty   int
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range []plan.Kind{plan.KindDiet, plan.KindExercise} {
		if !req.Wants(kind) {
			continue
		}
		kind := kind
		g.Go(func() error {
			res, err := s.generateCandidates(gctx, kind, req)
			if err != nil && !errors.Is(err, ErrNoCandidates) {
				return fmt.Errorf("%s: %w", kind, err)
			}
			mu.Lock()
			defer mu.Unlock()
			results[kind] = res
			if err != nil {
				empty++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &inbound.PlanResult{
		Diet:        results[plan.KindDiet],
		Exercise:    results[plan.KindExercise],
		GeneratedAt: s.now(),
	}
	out.Combined = safety.Combine(bestAssessment(out.Diet), bestAssessment(out.Exercise))

	if empty > 0 && empty == len(results) {
		return out, ErrNoCandidates
	}
	return out, nil
}

// GenerateCandidates runs the pipeline for one plan kind
func (s *Service) GenerateCandidates(ctx context.Context, kind plan.Kind, req inbound.PlanRequest) (*inbound.KindResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", plan.ErrUnknownKind, kind)
	}
	if _, err := s.validate(req); err != nil {
		return nil, err
	}
	ctx, cancel := s.withRunTimeout(ctx)
	defer cancel()
	return s.generateCandidates(ctx, kind, req)
}

func (s *Service) withRunTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.RunTimeout > 0 {
		return context.WithTimeout(ctx, s.config.RunTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *Service) generateCandidates(ctx context.Context, kind plan.Kind, req inbound.PlanRequest) (*inbound.KindResult, error) {
	start := time.Now()
	set, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	result := &inbound.KindResult{
		Kind:       kind,
		BasePlans:  []plan.BasePlan{},
		Candidates: []inbound.Candidate{},
		Top:        []inbound.Candidate{},
	}

	// Retrieve
	knowledgeResult, err := s.retrieve(ctx, kind, req.Requirement, set)
	if err != nil {
		s.metrics.ObserveRun(string(kind), "retrieval_failed", 0, 0, time.Since(start))
		return nil, err
	}
	result.RetrievalMode = knowledgeResult.Mode
	result.Knowledge = knowledgeResult.Relations
	if knowledgeResult.Fallback != "" {
		result.Errors = append(result.Errors, knowledgeResult.Fallback)
	}

	// Generate
	input := generation.Input{
		User:        req.User,
		Environment: req.Environment,
		Requirement: req.Requirement,
		Knowledge:   knowledgeResult.Relations,
	}
	batch := s.generator.GenerateBases(ctx, kind, input, set.bn, req.Seed)
	for _, o := range batch.Outcomes {
		if o.Plan != nil {
			result.BasePlans = append(result.BasePlans, *o.Plan)
			continue
		}
		result.Dropped++
		result.Errors = append(result.Errors, fmt.Sprintf("base %d: %v", o.Index, o.Err))
		if ctx.Err() != nil {
			result.Partial = true
		}
	}

	if len(result.BasePlans) == 0 {
		result.GeneratedAt = s.now()
		s.metrics.ObserveRun(string(kind), "no_candidates", 0, result.Dropped, time.Since(start))
		s.logger.Warn("No candidates generated",
			zap.String("kind", string(kind)),
			zap.Int("requested", set.bn),
			zap.Strings("errors", result.Errors),
		)
		return result, fmt.Errorf("%w: all %d %s generations failed", ErrNoCandidates, set.bn, kind)
	}

	// Expand
	var variants []plan.Variant
	for _, o := range batch.Outcomes {
		if o.Plan == nil {
			continue
		}
		variants = append(variants, selectVariants(plan.ExpandAt(*o.Plan, o.Index), set.vn)...)
	}

	// Assess
	candidates, failures, skipped := s.assess(ctx, kind, variants, req, set.options)
	result.Dropped += len(failures) + skipped
	result.Errors = append(result.Errors, failures...)
	if skipped > 0 {
		result.Partial = true
		result.Errors = append(result.Errors, fmt.Sprintf("%d assessments skipped: %v", skipped, ctx.Err()))
	}

	// Rank
	rank(candidates)
	result.Candidates = candidates
	result.Top = top(candidates, set.minScore, set.topK)
	result.GeneratedAt = s.now()

	outcome := "success"
	if result.Partial {
		outcome = "partial"
	}
	s.metrics.ObserveRun(string(kind), outcome, len(candidates), result.Dropped, time.Since(start))
	s.logger.Info("Candidates generated",
		zap.String("kind", string(kind)),
		zap.String("retrieval_mode", result.RetrievalMode),
		zap.Int("base_plans", len(result.BasePlans)),
		zap.Int("candidates", len(candidates)),
		zap.Int("top", len(result.Top)),
		zap.Int("dropped", result.Dropped),
		zap.Bool("partial", result.Partial),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// retrieve applies the kind's fallback when the graph or embedding service
// is unreachable
func (s *Service) retrieve(ctx context.Context, kind plan.Kind, req profile.UserRequirement, set settings) (knowledge.Result, error) {
	text := strings.TrimSpace(req.Preference + " " + strings.Join(req.PreferenceTags, " "))
	query := inbound.RetrieveQuery{Preference: text, TopK: s.config.RetrievalTopK, UseSemanticSearch: set.semantic}

	res, err := s.retriever.Retrieve(ctx, query)
	if err == nil {
		return res, nil
	}

	fallback := s.config.Fallbacks[kind]
	s.logger.Warn("Knowledge retrieval failed",
		zap.String("kind", string(kind)),
		zap.String("fallback", fallback),
		zap.Error(err),
	)

	switch fallback {
	case FallbackKeyword:
		if query.UseSemanticSearch {
			query.UseSemanticSearch = false
			res, kerr := s.retriever.Retrieve(ctx, query)
			if kerr == nil {
				res.Fallback = "semantic retrieval failed, used keyword match: " + err.Error()
				return res, nil
			}
			err = kerr
		}
	case FallbackEmpty:
		return knowledge.Result{
			Query:     text,
			Mode:      knowledge.ModeEmpty,
			Anchors:   []knowledge.Anchor{},
			Relations: []knowledge.Relation{},
			Fallback:  "retrieval unavailable, continued without knowledge: " + err.Error(),
		}, nil
	}
	return knowledge.Result{}, err
}

// assess scores every variant with bounded concurrency. Variants not started
// before cancellation are skipped and counted.
func (s *Service) assess(
	ctx context.Context,
	kind plan.Kind,
	variants []plan.Variant,
	req inbound.PlanRequest,
	opts safety.Options,
) (candidates []inbound.Candidate, failures []string, skipped int) {
	slots := make([]*inbound.Candidate, len(variants))
	errs := make([]error, len(variants))

	var eg errgroup.Group
	eg.SetLimit(s.config.MaxConcurrency)
	for i := range variants {
		i := i
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return nil
			}
			v := variants[i]
			assessment, err := s.assessor.Assess(ctx, v.Content(), kind, req.User, req.Environment, opts)
			if err != nil {
				errs[i] = err
				return nil
			}
			c := inbound.Candidate{Variant: v, Assessment: assessment}
			if kind == plan.KindDiet {
				if dev, ok := v.CalorieDeviation(); ok {
					c.CalorieDeviation = &dev
					if math.Abs(dev) > DeviationNoteThreshold {
						c.Assessment.Recommendations = safety.Dedupe(append(c.Assessment.Recommendations,
							fmt.Sprintf("Calories deviate %.1f%% from the %d kcal target; adjust portions", dev, v.TargetCalories)))
					}
				}
			}
			slots[i] = &c
			return nil
		})
	}
	_ = eg.Wait()

	candidates = make([]inbound.Candidate, 0, len(variants))
	for i, c := range slots {
		switch {
		case c != nil:
			candidates = append(candidates, *c)
		case errs[i] != nil:
			v := variants[i]
			failures = append(failures, fmt.Sprintf("assess %s/%s: %v", v.BasePlanID, v.Label, errs[i]))
		default:
			skipped++
		}
	}
	return candidates, failures, skipped
}

func bestAssessment(r *inbound.KindResult) *safety.Assessment {
	best, ok := r.Best()
	if !ok {
		return nil
	}
	a := best.Assessment
	return &a
}
