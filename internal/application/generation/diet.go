package generation

import (
	"fmt"
	"strings"

	"github.com/alchemorsel/vitaplan/internal/domain/plan"
	"github.com/alchemorsel/vitaplan/internal/domain/profile"
)

// DietStrategy generates full-day meal plans
type DietStrategy struct{}

// Kind implements KindStrategy
func (DietStrategy) Kind() plan.Kind { return plan.KindDiet }

// Targets computes the calorie budget and its meal split
func (DietStrategy) Targets(user profile.UserMetadata, req profile.UserRequirement) Targets {
	t := profile.ComputeDietTargets(user, req.EffectiveGoal())
	return Targets{Calories: t.TotalCalories, MealCalories: t.MealCalories}
}

// SystemPrompt implements KindStrategy
func (DietStrategy) SystemPrompt() string {
	return "You are a registered dietitian who designs realistic, culturally coherent daily meal plans. " +
		"Respect every medical condition and restriction. Respond with a single JSON object and nothing else."
}

// UserPrompt renders the generation request for one base plan
func (DietStrategy) UserPrompt(in Input, targets Targets, style plan.Style, knowledgeLimit int) string {
	var b strings.Builder
	writeProfile(&b, in.User)
	writeEnvironment(&b, in.Environment)

	b.WriteString("## Goal\n")
	fmt.Fprintf(&b, "- Primary goal: %s\n", in.Requirement.EffectiveGoal())
	fmt.Fprintf(&b, "- Daily calorie target: %d kcal\n", targets.Calories)
	for _, slot := range profile.MealSlots {
		fmt.Fprintf(&b, "- %s: about %d kcal\n", slot, targets.MealCalories[slot])
	}
	b.WriteString("\n")

	writeDirection(&b, in.Requirement, style, "Cuisine Theme")
	writeKnowledge(&b, in.Knowledge, knowledgeLimit)

	b.WriteString("## Output Format\n")
	fmt.Fprintf(&b, "Return one JSON object with a short \"title\" and an \"items\" array covering %s.\n", strings.Join(profile.MealSlots, ", "))
	b.WriteString("Each item must have:\n")
	b.WriteString("- slot: the meal it belongs to\n")
	b.WriteString("- name: the food\n")
	b.WriteString("- quantity: a positive number\n")
	fmt.Fprintf(&b, "- unit: one of %s\n", unitList(plan.KindDiet))
	b.WriteString("- total_calories: calories for the whole quantity, not per unit\n")
	b.WriteString("- protein_g, carbs_g, fat_g: grams for the whole quantity\n\n")
	b.WriteString(`Example item: {"slot": "breakfast", "name": "Rolled Oats", "quantity": 80, "unit": "gram", "total_calories": 300, "protein_g": 10.5, "carbs_g": 54, "fat_g": 5.3}`)
	b.WriteString("\n")
	return b.String()
}

// Parse validates a diet completion
func (DietStrategy) Parse(raw string) (Parsed, error) {
	rp, err := decodePlan(raw)
	if err != nil {
		return Parsed{}, err
	}
	items := make([]plan.Item, 0, len(rp.Items))
	for i, r := range rp.Items {
		it, err := parseItem(plan.KindDiet, i, r)
		if err != nil {
			return Parsed{}, err
		}
		items = append(items, it)
	}
	return Parsed{Title: strings.TrimSpace(rp.Title), Items: items}, nil
}
