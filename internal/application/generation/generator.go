// Package generation produces base plans from the text-generation service
// and expands them into scaled variants.
package generation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/alchemorsel/vitaplan/internal/domain/plan"
	"github.com/alchemorsel/vitaplan/internal/ports/outbound"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config tunes generation
type Config struct {
	Temperature    float64
	Timeout        time.Duration
	MaxConcurrency int
	// KnowledgeLimit caps the relations rendered into a prompt
	KnowledgeLimit int
}

func (c Config) withDefaults() Config {
	if c.Temperature <= 0 {
		c.Temperature = 0.7
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 4
	}
	if c.KnowledgeLimit <= 0 {
		c.KnowledgeLimit = 30
	}
	return c
}

// Outcome is the result of one base generation in a batch
type Outcome struct {
	Index int
	Seed  int64
	Plan  *plan.BasePlan
	Err   error
}

// Batch holds every outcome of GenerateBases in base order
type Batch struct {
	Seed     int64
	Outcomes []Outcome
}

// Plans returns the successful base plans in base order
func (b Batch) Plans() []plan.BasePlan {
	out := make([]plan.BasePlan, 0, len(b.Outcomes))
	for _, o := range b.Outcomes {
		if o.Plan != nil {
			out = append(out, *o.Plan)
		}
	}
	return out
}

// Failures returns the outcomes that produced no plan
func (b Batch) Failures() []Outcome {
	var out []Outcome
	for _, o := range b.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Generator composes one KindStrategy per plan kind around a shared
// text-generation client
type Generator struct {
	llm        outbound.TextGenerator
	strategies map[plan.Kind]KindStrategy
	metrics    outbound.MetricsRecorder
	config     Config
	logger     *zap.Logger
}

// NewGenerator creates a generator. With no strategies the diet and
// exercise defaults are used.
func NewGenerator(
	llm outbound.TextGenerator,
	metrics outbound.MetricsRecorder,
	config Config,
	logger *zap.Logger,
	strategies ...KindStrategy,
) *Generator {
	if metrics == nil {
		metrics = outbound.NopMetrics{}
	}
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	byKind := make(map[plan.Kind]KindStrategy, len(strategies))
	for _, s := range strategies {
		byKind[s.Kind()] = s
	}
	return &Generator{
		llm:        llm,
		strategies: byKind,
		metrics:    metrics,
		config:     config.withDefaults(),
		logger:     logger.Named("generation-service"),
	}
}

// Strategy returns the strategy registered for kind
func (g *Generator) Strategy(kind plan.Kind) (KindStrategy, error) {
	s, ok := g.strategies[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoStrategy, kind)
	}
	return s, nil
}

// GenerateBase makes exactly one generation call and parses the reply.
// There is no retry: a reply that fails to parse is an ErrGenerationParse.
func (g *Generator) GenerateBase(ctx context.Context, kind plan.Kind, in Input, style plan.Style) (plan.BasePlan, error) {
	strategy, err := g.Strategy(kind)
	if err != nil {
		return plan.BasePlan{}, err
	}

	style.PreferenceOverride = in.Requirement.HasPreference()
	targets := strategy.Targets(in.User, in.Requirement)
	prompt := strategy.UserPrompt(in, targets, style, g.config.KnowledgeLimit)

	callCtx := ctx
	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := g.llm.Complete(callCtx, strategy.SystemPrompt(), prompt, g.config.Temperature)
	if err != nil {
		g.metrics.ObserveGeneration(string(kind), "error", time.Since(start))
		return plan.BasePlan{}, fmt.Errorf("generate %s plan: %w", kind, err)
	}

	parsed, err := strategy.Parse(raw)
	if err != nil {
		g.metrics.ObserveGeneration(string(kind), "parse_error", time.Since(start))
		g.logger.Warn("Discarding unparseable generation",
			zap.String("kind", string(kind)),
			zap.Int64("seed", style.Seed),
			zap.Int("response_length", len(raw)),
			zap.Error(err),
		)
		return plan.BasePlan{}, err
	}
	g.metrics.ObserveGeneration(string(kind), "success", time.Since(start))

	title := parsed.Title
	if title == "" {
		title = fmt.Sprintf("%s %s plan", style.Theme, kind)
	}
	freq := parsed.WeeklyFrequency
	if freq <= 0 {
		freq = targets.WeeklyFrequency
	}

	base := plan.NewBasePlan(kind, title, parsed.Items, freq, targets.Calories, style)
	g.logger.Debug("Generated base plan",
		zap.String("kind", string(kind)),
		zap.String("plan_id", base.ID),
		zap.Int("items", len(base.Items)),
		zap.Float64("total_calories", base.TotalCalories()),
		zap.Duration("duration", time.Since(start)),
	)
	return base, nil
}

// GenerateBases runs bn generations with bounded concurrency. Base i uses
// the style of seed+i. Failed generations are reported in the batch and
// never stop the others. A nil seed draws a fresh one.
func (g *Generator) GenerateBases(ctx context.Context, kind plan.Kind, in Input, bn int, seed *int64) Batch {
	batchSeed := rand.Int63()
	if seed != nil {
		batchSeed = *seed
	}
	if bn <= 0 {
		return Batch{Seed: batchSeed}
	}

	outcomes := make([]Outcome, bn)
	var eg errgroup.Group
	eg.SetLimit(g.config.MaxConcurrency)
	for i := 0; i < bn; i++ {
		i := i
		s := batchSeed + int64(i)
		eg.Go(func() error {
			outcomes[i] = Outcome{Index: i, Seed: s}
			if err := ctx.Err(); err != nil {
				outcomes[i].Err = err
				return nil
			}
			base, err := g.GenerateBase(ctx, kind, in, StyleFor(kind, s))
			if err != nil {
				outcomes[i].Err = err
				return nil
			}
			outcomes[i].Plan = &base
			return nil
		})
	}
	_ = eg.Wait()

	batch := Batch{Seed: batchSeed, Outcomes: outcomes}
	if failed := batch.Failures(); len(failed) > 0 {
		parseFailures := 0
		for _, f := range failed {
			if errors.Is(f.Err, ErrGenerationParse) {
				parseFailures++
			}
		}
		g.logger.Info("Base generation finished with failures",
			zap.String("kind", string(kind)),
			zap.Int("requested", bn),
			zap.Int("failed", len(failed)),
			zap.Int("parse_failures", parseFailures),
		)
	}
	return batch
}

// Expand derives the three variants of base
func (g *Generator) Expand(base plan.BasePlan) [3]plan.Variant {
	return plan.Expand(base)
}
