package generation

import (
	"github.com/alchemorsel/vitaplan/internal/domain/knowledge"
	"github.com/alchemorsel/vitaplan/internal/domain/plan"
	"github.com/alchemorsel/vitaplan/internal/domain/profile"
)

// Input is everything one generation call knows about the user
type Input struct {
	User        profile.UserMetadata
	Environment profile.EnvironmentContext
	Requirement profile.UserRequirement
	Knowledge   []knowledge.Relation
}

// Targets is the numeric objective of a plan
type Targets struct {
	// Calories is intake for diet plans and burn for exercise plans
	Calories        int
	MealCalories    map[string]int
	DurationMinutes int
	WeeklyFrequency int
}

// Parsed is a generation response that passed structural validation
type Parsed struct {
	Title           string
	Items           []plan.Item
	WeeklyFrequency int
}

// KindStrategy holds everything that differs between plan kinds. The
// generator composes one strategy per kind.
type KindStrategy interface {
	Kind() plan.Kind
	Targets(user profile.UserMetadata, req profile.UserRequirement) Targets
	SystemPrompt() string
	UserPrompt(in Input, targets Targets, style plan.Style, knowledgeLimit int) string
	Parse(raw string) (Parsed, error)
}

// DefaultStrategies returns the diet and exercise strategies
func DefaultStrategies() []KindStrategy {
	return []KindStrategy{DietStrategy{}, ExerciseStrategy{}}
}
