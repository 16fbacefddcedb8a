package profile

import "math"

// Meal slots of a daily diet plan, in serving order
const (
	SlotBreakfast = "breakfast"
	SlotLunch     = "lunch"
	SlotDinner    = "dinner"
	SlotSnacks    = "snacks"
)

// MealSlots lists the diet slots in serving order
var MealSlots = []string{SlotBreakfast, SlotLunch, SlotDinner, SlotSnacks}

var mealShare = map[string]float64{
	SlotBreakfast: 0.25,
	SlotLunch:     0.35,
	SlotDinner:    0.30,
	SlotSnacks:    0.10,
}

var activityFactor = map[FitnessLevel]float64{
	FitnessSedentary:    1.2,
	FitnessBeginner:     1.375,
	FitnessIntermediate: 1.55,
	FitnessAdvanced:     1.725,
}

var goalCalorieAdjustment = map[Goal]float64{
	GoalWeightLoss:     -500,
	GoalWeightGain:     500,
	GoalMuscleGain:     300,
	GoalMuscleBuilding: 300,
}

// BMR is the Harris-Benedict basal metabolic rate in kcal/day
func BMR(u UserMetadata) float64 {
	if u.Sex == SexFemale {
		return 447.593 + 9.247*u.WeightKG + 3.098*u.HeightCM - 4.330*float64(u.Age)
	}
	return 88.362 + 13.397*u.WeightKG + 4.799*u.HeightCM - 5.677*float64(u.Age)
}

// ActivityFactor maps fitness level to the TDEE multiplier; unknown levels count as sedentary
func ActivityFactor(level FitnessLevel) float64 {
	if f, ok := activityFactor[level]; ok {
		return f
	}
	return activityFactor[FitnessSedentary]
}

// DietTargets is the calorie objective of a daily diet plan
type DietTargets struct {
	TotalCalories int            `json:"total_calories"`
	MealCalories  map[string]int `json:"meal_calories"`
}

// TargetCalories computes the daily calorie budget for the user and goal
func TargetCalories(u UserMetadata, goal Goal) int {
	tdee := BMR(u) * ActivityFactor(u.FitnessLevel)
	return int(math.Round(tdee + goalCalorieAdjustment[goal]))
}

// ComputeDietTargets splits the daily budget across meals
func ComputeDietTargets(u UserMetadata, goal Goal) DietTargets {
	total := TargetCalories(u, goal)
	meals := make(map[string]int, len(MealSlots))
	for _, slot := range MealSlots {
		meals[slot] = int(math.Round(float64(total) * mealShare[slot]))
	}
	return DietTargets{TotalCalories: total, MealCalories: meals}
}

// ExerciseTargets is the objective of one exercise session
type ExerciseTargets struct {
	CaloriesBurn    int `json:"calories_burn"`
	DurationMinutes int `json:"duration_minutes"`
	WeeklyFrequency int `json:"weekly_frequency"`
}

var goalBurn = map[Goal]float64{
	GoalWeightLoss:        400,
	GoalMuscleBuilding:    200,
	GoalCardioImprovement: 450,
	GoalFlexibility:       100,
	GoalEndurance:         400,
	GoalGeneralFitness:    250,
	GoalMaintenance:       150,
}

const defaultGoalBurn = 250

// Conditions that reduce the burn target
var burnLimitingConditions = []string{"heart_disease", "obesity", "arthritis"}

// ComputeExerciseTargets derives session burn, duration and weekly frequency
func ComputeExerciseTargets(u UserMetadata, goal Goal) ExerciseTargets {
	burn, ok := goalBurn[goal]
	if !ok {
		burn = defaultGoalBurn
	}
	for _, c := range burnLimitingConditions {
		if u.HasCondition(c) {
			burn *= 0.75
			break
		}
	}

	duration, freq := 20, 3
	switch u.FitnessLevel {
	case FitnessIntermediate:
		duration, freq = 40, 4
	case FitnessAdvanced:
		duration, freq = 60, 5
	}

	return ExerciseTargets{
		CaloriesBurn:    int(math.Round(burn)),
		DurationMinutes: duration,
		WeeklyFrequency: freq,
	}
}
