// Package plan models generated diet and exercise plans and their
// deterministic Lite/Standard/Plus variants.
package plan

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is the plan domain
type Kind string

const (
	KindDiet     Kind = "diet"
	KindExercise Kind = "exercise"
)

// Valid reports whether k is a supported plan kind
func (k Kind) Valid() bool {
	return k == KindDiet || k == KindExercise
}

// Exercise segments
const (
	SegmentCardio      = "cardio"
	SegmentStrength    = "strength"
	SegmentFlexibility = "flexibility"
)

// ExerciseSegments lists the exercise slots in session order
var ExerciseSegments = []string{SegmentCardio, SegmentStrength, SegmentFlexibility}

// Item is one food or movement of a plan
type Item struct {
	Slot          string    `json:"slot" yaml:"slot"`
	Name          string    `json:"name" yaml:"name"`
	Quantity      Quantity  `json:"quantity" yaml:"quantity"`
	TotalCalories float64   `json:"total_calories" yaml:"total_calories"`
	ProteinG      *float64  `json:"protein_g,omitempty" yaml:"protein_g"`
	CarbsG        *float64  `json:"carbs_g,omitempty" yaml:"carbs_g"`
	FatG          *float64  `json:"fat_g,omitempty" yaml:"fat_g"`
	ExerciseType  string    `json:"exercise_type,omitempty" yaml:"exercise_type"`
	Intensity     Intensity `json:"intensity,omitempty" yaml:"intensity"`
}

// HasMacros reports whether the item carries all three macro values
func (i Item) HasMacros() bool {
	return i.ProteinG != nil && i.CarbsG != nil && i.FatG != nil
}

// IsHIIT reports whether the item is a high-intensity interval movement
func (i Item) IsHIIT() bool {
	t := strings.ToLower(i.ExerciseType)
	return t == "hiit" || strings.Contains(strings.ToLower(i.Name), "hiit")
}

// Content is the assessable body of a plan
type Content struct {
	Kind            Kind   `json:"kind" yaml:"kind"`
	Title           string `json:"title,omitempty" yaml:"title"`
	Items           []Item `json:"items" yaml:"items"`
	WeeklyFrequency int    `json:"weekly_frequency,omitempty" yaml:"weekly_frequency"`
}

// TotalCalories is the sum of item calories, unrounded
func (c Content) TotalCalories() float64 {
	var total float64
	for _, it := range c.Items {
		total += it.TotalCalories
	}
	return total
}

// TotalMinutes sums the duration of minute-measured items
func (c Content) TotalMinutes() float64 {
	var total float64
	for _, it := range c.Items {
		if it.Quantity.Unit == UnitMinute {
			total += it.Quantity.Value
		}
	}
	return total
}

// SlotTotal is the calorie total of one slot
type SlotTotal struct {
	Slot     string
	Calories float64
}

// SlotCalories totals calories per slot in first-seen order
func (c Content) SlotCalories() []SlotTotal {
	index := make(map[string]int)
	var out []SlotTotal
	for _, it := range c.Items {
		slot := strings.ToLower(it.Slot)
		i, ok := index[slot]
		if !ok {
			index[slot] = len(out)
			out = append(out, SlotTotal{Slot: slot})
			i = len(out) - 1
		}
		out[i].Calories += it.TotalCalories
	}
	return out
}

// MacroShares is the fraction of calories from each macronutrient
type MacroShares struct {
	Protein float64
	Carbs   float64
	Fat     float64
}

// Macros returns calorie shares computed at 4/4/9 kcal per gram. ok is
// false when no item carries macro data or the macros add up to nothing.
func (c Content) Macros() (MacroShares, bool) {
	var protein, carbs, fat float64
	found := false
	for _, it := range c.Items {
		if !it.HasMacros() {
			continue
		}
		found = true
		protein += *it.ProteinG
		carbs += *it.CarbsG
		fat += *it.FatG
	}
	kcal := protein*4 + carbs*4 + fat*9
	if !found || kcal <= 0 {
		return MacroShares{}, false
	}
	return MacroShares{
		Protein: protein * 4 / kcal,
		Carbs:   carbs * 4 / kcal,
		Fat:     fat * 9 / kcal,
	}, true
}

// HasHIIT reports whether any item is a HIIT movement
func (c Content) HasHIIT() bool {
	for _, it := range c.Items {
		if it.IsHIIT() {
			return true
		}
	}
	return false
}

// StyleItem is one mandatory draw for a structural slot
type StyleItem struct {
	Slot string `json:"slot"`
	Item string `json:"item"`
}

// Style is the diversity injection applied to one generation call
type Style struct {
	Seed      int64       `json:"seed"`
	Mandatory []StyleItem `json:"mandatory"`
	Excluded  []string    `json:"excluded"`
	Theme     string      `json:"theme"`
	// PreferenceOverride is set when a free-text preference demoted the
	// mandatory items to suggestions
	PreferenceOverride bool `json:"preference_override"`
}

// BasePlan is one unscaled candidate produced by a generation call
type BasePlan struct {
	ID              string    `json:"id"`
	Kind            Kind      `json:"kind"`
	Title           string    `json:"title"`
	Items           []Item    `json:"items"`
	WeeklyFrequency int       `json:"weekly_frequency,omitempty"`
	TargetCalories  int       `json:"target_calories"`
	Style           Style     `json:"style"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewBasePlan assigns an id and copies items so the plan owns them
func NewBasePlan(kind Kind, title string, items []Item, weeklyFrequency, targetCalories int, style Style) BasePlan {
	owned := make([]Item, len(items))
	copy(owned, items)
	return BasePlan{
		ID:              uuid.NewString(),
		Kind:            kind,
		Title:           title,
		Items:           owned,
		WeeklyFrequency: weeklyFrequency,
		TargetCalories:  targetCalories,
		Style:           style,
		CreatedAt:       time.Now().UTC(),
	}
}

// Content returns the assessable body of the base plan
func (p BasePlan) Content() Content {
	return Content{Kind: p.Kind, Title: p.Title, Items: p.Items, WeeklyFrequency: p.WeeklyFrequency}
}

// TotalCalories is always derived from the items
func (p BasePlan) TotalCalories() float64 {
	return p.Content().TotalCalories()
}

// MarshalJSON adds the derived calorie total
func (p BasePlan) MarshalJSON() ([]byte, error) {
	type alias BasePlan
	return json.Marshal(struct {
		alias
		TotalCalories float64 `json:"total_calories"`
	}{alias(p), p.TotalCalories()})
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ParseKind parses a plan kind, ignoring case
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}
