package generation

import (
	"fmt"
	"math"
	"strings"

	"github.com/alchemorsel/vitaplan/internal/domain/plan"
	"github.com/alchemorsel/vitaplan/internal/domain/profile"
)

// maxWeeklyFrequency bounds the parsed session count. Counts above seven
// still parse so the safety rules can flag them.
const maxWeeklyFrequency = 21

// ExerciseStrategy generates single-session workout plans with a weekly frequency
type ExerciseStrategy struct{}

// Kind implements KindStrategy
func (ExerciseStrategy) Kind() plan.Kind { return plan.KindExercise }

// Targets computes burn, duration and frequency
func (ExerciseStrategy) Targets(user profile.UserMetadata, req profile.UserRequirement) Targets {
	t := profile.ComputeExerciseTargets(user, req.EffectiveGoal())
	return Targets{Calories: t.CaloriesBurn, DurationMinutes: t.DurationMinutes, WeeklyFrequency: t.WeeklyFrequency}
}

// SystemPrompt implements KindStrategy
func (ExerciseStrategy) SystemPrompt() string {
	return "You are a certified exercise physiologist who designs safe, progressive training sessions. " +
		"Respect every medical condition and the current weather. Respond with a single JSON object and nothing else."
}

// UserPrompt renders the generation request for one base plan
func (ExerciseStrategy) UserPrompt(in Input, targets Targets, style plan.Style, knowledgeLimit int) string {
	var b strings.Builder
	writeProfile(&b, in.User)
	writeEnvironment(&b, in.Environment)

	b.WriteString("## Goal\n")
	fmt.Fprintf(&b, "- Primary goal: %s\n", in.Requirement.EffectiveGoal())
	fmt.Fprintf(&b, "- Session calorie burn target: %d kcal\n", targets.Calories)
	fmt.Fprintf(&b, "- Session duration target: %d minutes\n", targets.DurationMinutes)
	fmt.Fprintf(&b, "- Sessions per week: %d\n", targets.WeeklyFrequency)
	if in.Requirement.IntensityPreference != "" {
		fmt.Fprintf(&b, "- Preferred intensity: %s\n", in.Requirement.IntensityPreference)
	}
	b.WriteString("\n")

	writeDirection(&b, in.Requirement, style, "Training Format")
	writeKnowledge(&b, in.Knowledge, knowledgeLimit)

	b.WriteString("## Output Format\n")
	fmt.Fprintf(&b, "Return one JSON object with a short \"title\", an integer \"weekly_frequency\" and an \"items\" array covering %s.\n",
		strings.Join(plan.ExerciseSegments, ", "))
	b.WriteString("Each item must have:\n")
	b.WriteString("- slot: the segment it belongs to\n")
	b.WriteString("- name: the movement\n")
	b.WriteString("- exercise_type: a short category such as running, cycling, strength, hiit, yoga\n")
	b.WriteString("- intensity: one of low, moderate, high, very_high\n")
	b.WriteString("- quantity: duration as a positive number\n")
	fmt.Fprintf(&b, "- unit: %s\n", unitList(plan.KindExercise))
	b.WriteString("- total_calories: calories burned over the whole duration\n\n")
	b.WriteString(`Example item: {"slot": "cardio", "name": "Rowing Machine", "exercise_type": "rowing", "intensity": "moderate", "quantity": 15, "unit": "minute", "total_calories": 140}`)
	b.WriteString("\n")
	return b.String()
}

// Parse validates an exercise completion
func (ExerciseStrategy) Parse(raw string) (Parsed, error) {
	rp, err := decodePlan(raw)
	if err != nil {
		return Parsed{}, err
	}
	items := make([]plan.Item, 0, len(rp.Items))
	for i, r := range rp.Items {
		it, err := parseItem(plan.KindExercise, i, r)
		if err != nil {
			return Parsed{}, err
		}
		it.ExerciseType = strings.ToLower(strings.TrimSpace(r.ExerciseType))
		if it.ExerciseType == "" {
			it.ExerciseType = strings.ToLower(it.Name)
		}
		it.Intensity = plan.NormalizeIntensity(r.Intensity)
		if it.Intensity == "" {
			it.Intensity = plan.IntensityModerate
		}
		items = append(items, it)
	}

	freq := 0
	if rp.WeeklyFrequency.set {
		if v := rp.WeeklyFrequency.value; v < 0 || v > maxWeeklyFrequency {
			return Parsed{}, parseErr("weekly_frequency %v outside 0..%d", v, maxWeeklyFrequency)
		}
		freq = int(math.Round(rp.WeeklyFrequency.value))
	}
	return Parsed{Title: strings.TrimSpace(rp.Title), Items: items, WeeklyFrequency: freq}, nil
}
