// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"fmt"

	"github.com/alchemorsel/vitaplan/internal/domain/plan"
	"github.com/alchemorsel/vitaplan/internal/domain/profile"
	"github.com/brianvoe/gofakeit/v6"
)

// UserBuilder provides a fluent interface for building test profiles
type UserBuilder struct {
	user profile.UserMetadata
}

// NewUserBuilder creates a builder for a healthy intermediate adult
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{user: profile.UserMetadata{
		Age:          35,
		Sex:          profile.SexMale,
		HeightCM:     175,
		WeightKG:     75,
		FitnessLevel: profile.FitnessIntermediate,
	}}
}

// WithSex sets the biological sex
func (b *UserBuilder) WithSex(sex profile.Sex) *UserBuilder {
	b.user.Sex = sex
	return b
}

// WithAge sets the age
func (b *UserBuilder) WithAge(age int) *UserBuilder {
	b.user.Age = age
	return b
}

// WithLevel sets the fitness level
func (b *UserBuilder) WithLevel(level profile.FitnessLevel) *UserBuilder {
	b.user.FitnessLevel = level
	return b
}

// WithConditions sets medical conditions
func (b *UserBuilder) WithConditions(conditions ...string) *UserBuilder {
	b.user.MedicalConditions = conditions
	return b
}

// Build returns the profile
func (b *UserBuilder) Build() profile.UserMetadata {
	return b.user
}

// Environment returns an environment with the given temperature and condition
func Environment(tempC float64, condition string) profile.EnvironmentContext {
	return profile.EnvironmentContext{
		Weather:     profile.Weather{Condition: condition, TemperatureC: &tempC},
		TimeContext: profile.TimeContext{TimeOfDay: "morning", Season: "spring"},
	}
}

// PlanFactory generates seeded random plans for property-style tests
type PlanFactory struct {
	faker *gofakeit.Faker
}

// NewPlanFactory creates a new plan factory with seeded faker
func NewPlanFactory(seed int64) *PlanFactory {
	return &PlanFactory{faker: gofakeit.New(seed)}
}

var dietUnits = []string{"gram", "ml", "piece", "cup", "bowl", "slice", "spoon"}

// DietPlan creates a random daily diet plan with n items per meal
func (f *PlanFactory) DietPlan(itemsPerMeal int) plan.BasePlan {
	var items []plan.Item
	for _, slot := range profile.MealSlots {
		for i := 0; i < itemsPerMeal; i++ {
			unit := plan.Unit(f.faker.RandomString(dietUnits))
			qty := f.faker.Float64Range(0.5, 400)
			if unit != plan.UnitGram && unit != plan.UnitML {
				qty = float64(f.faker.IntRange(1, 6))
			}
			protein := f.faker.Float64Range(0, 40)
			carbs := f.faker.Float64Range(0, 80)
			fat := f.faker.Float64Range(0, 30)
			items = append(items, plan.Item{
				Slot:          slot,
				Name:          fmt.Sprintf("%s %s", f.faker.Adjective(), f.faker.Fruit()),
				Quantity:      plan.Quantity{Value: qty, Unit: unit},
				TotalCalories: float64(f.faker.IntRange(20, 700)),
				ProteinG:      &protein,
				CarbsG:        &carbs,
				FatG:          &fat,
			})
		}
	}
	return plan.NewBasePlan(plan.KindDiet, f.faker.Sentence(3), items, 0, f.faker.IntRange(1400, 3200), plan.Style{Seed: f.faker.Int64()})
}

var (
	exerciseTypes = []string{"running", "cycling", "rowing", "hiit", "squats", "push-ups", "yoga", "pilates"}
	intensities   = []string{"low", "moderate", "high", "very_high"}
)

// ExercisePlan creates a random exercise session
func (f *PlanFactory) ExercisePlan() plan.BasePlan {
	var items []plan.Item
	for _, segment := range plan.ExerciseSegments {
		kind := f.faker.RandomString(exerciseTypes)
		items = append(items, plan.Item{
			Slot:          segment,
			Name:          kind,
			ExerciseType:  kind,
			Intensity:     plan.Intensity(f.faker.RandomString(intensities)),
			Quantity:      plan.Quantity{Value: float64(f.faker.IntRange(5, 60)), Unit: plan.UnitMinute},
			TotalCalories: float64(f.faker.IntRange(10, 500)),
		})
	}
	return plan.NewBasePlan(plan.KindExercise, f.faker.Sentence(3), items, f.faker.IntRange(1, 8), f.faker.IntRange(100, 500), plan.Style{})
}
