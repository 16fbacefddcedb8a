package safety

import (
	"fmt"
	"strings"

	"github.com/alchemorsel/vitaplan/internal/domain/plan"
	"github.com/alchemorsel/vitaplan/internal/domain/profile"
	"github.com/alchemorsel/vitaplan/internal/domain/safety"
)

// Rule thresholds
const (
	MinDailyCalories  = 1200.0
	MaxDailyCalories  = 4000.0
	MinProteinShare   = 0.10
	MaxFatShare       = 0.40
	MaxMealCalories   = 1500.0
	MaxWeeklySessions = 7
	MaxHIITSessions   = 3
	HotExerciseTempC  = 35.0
	ColdExerciseTempC = 5.0
	HotDietTempC      = 30.0
	MaxAirQualityIdx  = 150
)

type durationCap struct {
	minutes  float64
	severity safety.Severity
}

var durationCaps = map[profile.FitnessLevel]durationCap{
	profile.FitnessSedentary:    {30, safety.SeverityHigh},
	profile.FitnessBeginner:     {30, safety.SeverityHigh},
	profile.FitnessIntermediate: {60, safety.SeverityModerate},
	profile.FitnessAdvanced:     {120, safety.SeverityLow},
}

// forbiddenTerms lists, per condition and plan kind, the terms matched as
// substrings of item names and exercise types
var forbiddenTerms = map[string]map[plan.Kind][]string{
	"diabetes": {
		plan.KindDiet: {"sugar", "candy", "soda", "syrup", "cake", "pastry", "dessert"},
	},
	"hypertension": {
		plan.KindDiet:     {"sodium", "salt", "salted", "pickled", "bacon", "sausage", "ham", "soy sauce"},
		plan.KindExercise: {"isometric", "wall sit", "heavy lifting", "powerlifting", "deadlift"},
	},
	"heart_disease": {
		plan.KindDiet:     {"fried", "bacon", "sausage", "butter", "lard"},
		plan.KindExercise: {"hiit", "sprint", "interval", "powerlifting"},
	},
	"obesity": {
		plan.KindExercise: {"jump", "burpee", "plyometric", "box jump", "sprint", "jump rope"},
	},
	"arthritis": {
		plan.KindExercise: {"running", "jump", "burpee", "plyometric", "sprint", "box jump", "jump rope"},
	},
}

// forbiddenIntensities are matched by equality against exercise intensity
var forbiddenIntensities = map[string][]plan.Intensity{
	"heart_disease": {plan.IntensityHigh, plan.IntensityVeryHigh},
}

var inclementWeather = []string{"rain", "snow", "ice", "icy", "storm", "sleet", "hail"}

// ruleCheck is one deterministic stage of the rule layer
type ruleCheck func(acc *safety.Accumulator, content plan.Content, user profile.UserMetadata, env profile.EnvironmentContext)

func rulesFor(kind plan.Kind) []ruleCheck {
	if kind == plan.KindExercise {
		return []ruleCheck{checkExercise, checkConditions, checkEnvironment}
	}
	return []ruleCheck{checkDiet, checkConditions, checkEnvironment}
}

func checkDiet(acc *safety.Accumulator, content plan.Content, _ profile.UserMetadata, _ profile.EnvironmentContext) {
	total := content.TotalCalories()
	switch {
	case total < MinDailyCalories:
		acc.Fail(
			safety.Check{Name: "min_calories", Message: "Daily calories too low", Source: safety.SourceRule},
			safety.RiskFactor{
				Factor:         "extremely_low_calories",
				Category:       "nutritional",
				Severity:       safety.SeverityHigh,
				Description:    fmt.Sprintf("Total calories %.0f is dangerously low", total),
				Recommendation: "Consult a dietitian for safe calorie targets",
				Source:         safety.SourceRule,
			},
		)
	case total > MaxDailyCalories:
		acc.Fail(
			safety.Check{Name: "max_calories", Message: "Daily calories too high", Source: safety.SourceRule},
			safety.RiskFactor{
				Factor:         "excessive_calories",
				Category:       "nutritional",
				Severity:       safety.SeverityModerate,
				Description:    fmt.Sprintf("Total calories %.0f exceeds the daily maximum", total),
				Recommendation: "Reduce portion sizes to stay below 4000 kcal",
				Source:         safety.SourceRule,
			},
		)
	default:
		acc.AddCheck(safety.Check{Name: "calories_range", Passed: true, Message: "Calorie intake within acceptable range", Source: safety.SourceRule})
	}

	if shares, ok := content.Macros(); ok {
		if shares.Protein <= MinProteinShare {
			acc.Fail(
				safety.Check{Name: "protein_ratio", Message: "Protein ratio too low", Source: safety.SourceRule},
				safety.RiskFactor{
					Factor:         "low_protein",
					Category:       "nutritional",
					Severity:       safety.SeverityModerate,
					Description:    fmt.Sprintf("Protein ratio %.1f%% is below recommended minimum", shares.Protein*100),
					Recommendation: "Include more protein-rich foods",
					Source:         safety.SourceRule,
				},
			)
		} else {
			acc.AddCheck(safety.Check{Name: "protein_ratio", Passed: true, Message: "Protein ratio adequate", Source: safety.SourceRule})
		}

		if shares.Fat >= MaxFatShare {
			acc.Fail(
				safety.Check{Name: "fat_ratio", Message: "Fat ratio too high", Source: safety.SourceRule},
				safety.RiskFactor{
					Factor:         "high_fat",
					Category:       "nutritional",
					Severity:       safety.SeverityModerate,
					Description:    fmt.Sprintf("Fat ratio %.1f%% exceeds recommended maximum", shares.Fat*100),
					Recommendation: "Reduce high-fat foods",
					Source:         safety.SourceRule,
				},
			)
		} else {
			acc.AddCheck(safety.Check{Name: "fat_ratio", Passed: true, Message: "Fat ratio within range", Source: safety.SourceRule})
		}
	}

	var oversized []plan.SlotTotal
	for _, st := range content.SlotCalories() {
		if st.Calories > MaxMealCalories {
			oversized = append(oversized, st)
		}
	}
	if len(oversized) == 0 {
		acc.AddCheck(safety.Check{Name: "single_meal_calories", Passed: true, Message: "Every meal within 1500 kcal", Source: safety.SourceRule})
		return
	}
	names := make([]string, len(oversized))
	for i, st := range oversized {
		names[i] = st.Slot
	}
	acc.AddCheck(safety.Check{
		Name:     "single_meal_calories",
		Message:  "Single meal calorie too high: " + strings.Join(names, ", "),
		Severity: safety.SeverityLow,
		Source:   safety.SourceRule,
	})
	for _, st := range oversized {
		acc.AddRisk(safety.RiskFactor{
			Factor:         "oversized_meal",
			Category:       "nutritional",
			Severity:       safety.SeverityLow,
			Description:    fmt.Sprintf("%s totals %.0f kcal", st.Slot, st.Calories),
			Recommendation: "Spread calories more evenly across meals",
			Source:         safety.SourceRule,
		})
	}
}

func checkExercise(acc *safety.Accumulator, content plan.Content, user profile.UserMetadata, _ profile.EnvironmentContext) {
	minutes := content.TotalMinutes()
	level := user.FitnessLevel
	limit, ok := durationCaps[level]
	if !ok {
		limit = durationCap{60, safety.SeverityModerate}
	}
	if minutes > limit.minutes {
		acc.Fail(
			safety.Check{
				Name:    "daily_duration",
				Message: fmt.Sprintf("Duration %.0fmin exceeds %s limit (%.0fmin)", minutes, level, limit.minutes),
				Source:  safety.SourceRule,
			},
			safety.RiskFactor{
				Factor:         "excessive_duration",
				Category:       "exercise",
				Severity:       limit.severity,
				Description:    fmt.Sprintf("Total exercise time %.0fmin is excessive for %s", minutes, level),
				Recommendation: fmt.Sprintf("Reduce daily duration to %.0fmin or less", limit.minutes),
				Source:         safety.SourceRule,
			},
		)
	} else {
		acc.AddCheck(safety.Check{Name: "daily_duration", Passed: true, Message: fmt.Sprintf("Duration %.0fmin is appropriate", minutes), Source: safety.SourceRule})
	}

	freq := content.WeeklyFrequency
	if freq > MaxWeeklySessions {
		acc.Fail(
			safety.Check{Name: "rest_days", Message: "Exercise every day without rest", Source: safety.SourceRule},
			safety.RiskFactor{
				Factor:         "no_rest_days",
				Category:       "exercise",
				Severity:       safety.SeverityModerate,
				Description:    "No rest days scheduled in weekly plan",
				Recommendation: "Include at least 1-2 rest days per week",
				Source:         safety.SourceRule,
			},
		)
	} else {
		acc.AddCheck(safety.Check{Name: "rest_days", Passed: true, Message: fmt.Sprintf("%d sessions per week leaves room for rest", freq), Source: safety.SourceRule})
	}

	if !content.HasHIIT() {
		return
	}
	if freq > MaxHIITSessions {
		acc.Fail(
			safety.Check{Name: "hiit_frequency", Message: "HIIT sessions too frequent", Source: safety.SourceRule},
			safety.RiskFactor{
				Factor:         "hiit_frequency",
				Category:       "exercise",
				Severity:       safety.SeverityHigh,
				Description:    "HIIT sessions too frequent without adequate recovery",
				Recommendation: "Limit HIIT to 2-3 times per week with 48h rest",
				Source:         safety.SourceRule,
			},
		)
		return
	}
	acc.AddCheck(safety.Check{Name: "hiit_frequency", Passed: true, Message: "HIIT frequency allows recovery", Source: safety.SourceRule})
}

// checkConditions matches each listed condition's forbidden terms against
// the plan. Every matched term yields one high risk naming the items.
func checkConditions(acc *safety.Accumulator, content plan.Content, user profile.UserMetadata, _ profile.EnvironmentContext) {
	for _, raw := range user.MedicalConditions {
		condition := profile.NormalizeTag(raw)
		terms := forbiddenTerms[condition][content.Kind]
		var intensities []plan.Intensity
		if content.Kind == plan.KindExercise {
			intensities = forbiddenIntensities[condition]
		}
		if len(terms) == 0 && len(intensities) == 0 {
			continue
		}

		var violations []safety.RiskFactor
		for _, term := range terms {
			if matched := matchTerm(content.Items, term); len(matched) > 0 {
				violations = append(violations, conditionRisk(condition, term, matched))
			}
		}
		for _, level := range intensities {
			if matched := matchIntensity(content.Items, level); len(matched) > 0 {
				violations = append(violations, conditionRisk(condition, string(level)+" intensity", matched))
			}
		}

		checkName := condition + "_restrictions"
		if len(violations) == 0 {
			acc.AddCheck(safety.Check{Name: checkName, Passed: true, Message: "No items restricted for " + condition, Source: safety.SourceRule})
			continue
		}
		acc.AddCheck(safety.Check{
			Name:     checkName,
			Message:  fmt.Sprintf("%d restricted item group(s) for %s", len(violations), condition),
			Severity: safety.SeverityHigh,
			Source:   safety.SourceRule,
		})
		for _, v := range violations {
			acc.AddRisk(v)
		}
	}
}

func conditionRisk(condition, term string, matched []string) safety.RiskFactor {
	return safety.RiskFactor{
		Factor:         condition + "_" + strings.ReplaceAll(term, " ", "_"),
		Category:       "medical",
		Severity:       safety.SeverityHigh,
		Description:    fmt.Sprintf("Plan contains %s (%s), restricted for %s", term, strings.Join(matched, ", "), condition),
		Recommendation: fmt.Sprintf("Replace %s items for %s management", term, condition),
		Source:         safety.SourceRule,
	}
}

func matchTerm(items []plan.Item, term string) []string {
	var out []string
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), term) || strings.Contains(strings.ToLower(it.ExerciseType), term) {
			out = append(out, it.Name)
		}
	}
	return out
}

func matchIntensity(items []plan.Item, level plan.Intensity) []string {
	var out []string
	for _, it := range items {
		if plan.NormalizeIntensity(string(it.Intensity)) == level {
			out = append(out, it.Name)
		}
	}
	return out
}

func checkEnvironment(acc *safety.Accumulator, content plan.Content, _ profile.UserMetadata, env profile.EnvironmentContext) {
	temp, hasTemp := env.Temperature()

	if content.Kind == plan.KindDiet {
		if hasTemp && temp > HotDietTempC {
			acc.AddCheck(safety.Check{
				Name:    "hot_weather_hydration",
				Passed:  true,
				Message: "Consider increased fluid intake for hot weather",
				Source:  safety.SourceRule,
			})
		}
		return
	}

	if hasTemp && temp > HotExerciseTempC {
		acc.AddRisk(safety.RiskFactor{
			Factor:         "high_temperature_exercise",
			Category:       "environmental",
			Severity:       safety.SeverityHigh,
			Description:    fmt.Sprintf("High temperature (%.1f°C) increases heat stress risk", temp),
			Recommendation: "Exercise indoors or in early morning/late evening",
			Source:         safety.SourceRule,
		})
	} else if hasTemp && temp < ColdExerciseTempC {
		acc.AddRisk(safety.RiskFactor{
			Factor:         "cold_temperature_exercise",
			Category:       "environmental",
			Severity:       safety.SeverityModerate,
			Description:    fmt.Sprintf("Cold temperature (%.1f°C) increases cardiovascular strain", temp),
			Recommendation: "Warm up thoroughly, dress in layers",
			Source:         safety.SourceRule,
		})
	}

	condition := strings.ToLower(env.Weather.Condition)
	for _, w := range inclementWeather {
		if strings.Contains(condition, w) {
			acc.AddRisk(safety.RiskFactor{
				Factor:         "inclement_weather",
				Category:       "environmental",
				Severity:       safety.SeverityModerate,
				Description:    fmt.Sprintf("%s weather increases slip/fall risk", env.Weather.Condition),
				Recommendation: "Move exercise indoors or choose safe surfaces",
				Source:         safety.SourceRule,
			})
			break
		}
	}

	if aqi, ok := env.AirQualityIndex(); ok && aqi > MaxAirQualityIdx {
		acc.AddRisk(safety.RiskFactor{
			Factor:         "poor_air_quality",
			Category:       "environmental",
			Severity:       safety.SeverityModerate,
			Description:    fmt.Sprintf("Air quality index %d is unhealthy for outdoor exertion", aqi),
			Recommendation: "Train indoors until air quality improves",
			Source:         safety.SourceRule,
		})
	}
}
