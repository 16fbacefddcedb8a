package plan

import (
	"encoding/json"
	"fmt"
	"math"
)

// Label names a variant
type Label string

const (
	LabelLite     Label = "Lite"
	LabelStandard Label = "Standard"
	LabelPlus     Label = "Plus"
)

// Order is the position of the label in Lite, Standard, Plus
func (l Label) Order() int {
	switch l {
	case LabelLite:
		return 0
	case LabelStandard:
		return 1
	case LabelPlus:
		return 2
	}
	return 3
}

type variantSpec struct {
	label Label
	// factor scales continuous units
	factor float64
	// direction is -1, 0 or +1 for step units and intensity
	direction int
}

var variantSpecs = [3]variantSpec{
	{label: LabelLite, factor: 0.8, direction: -1},
	{label: LabelStandard, factor: 1.0, direction: 0},
	{label: LabelPlus, factor: 1.2, direction: 1},
}

const (
	minStepQuantity = 0.5
	minMinutes      = 5
)

// Variant is a deterministic scaling of one base plan
type Variant struct {
	BasePlanID      string  `json:"base_plan_id"`
	BaseIndex       int     `json:"base_index"`
	Kind            Kind    `json:"kind"`
	Label           Label   `json:"label"`
	Factor          float64 `json:"scale_factor"`
	Title           string  `json:"title"`
	Items           []Item  `json:"items"`
	WeeklyFrequency int     `json:"weekly_frequency,omitempty"`
	TargetCalories  int     `json:"target_calories"`
	// Notes records informational degradations such as unrecognised units
	Notes []string `json:"notes,omitempty"`
}

// Content returns the assessable body of the variant
func (v Variant) Content() Content {
	return Content{Kind: v.Kind, Title: v.Title, Items: v.Items, WeeklyFrequency: v.WeeklyFrequency}
}

// TotalCalories is always derived from the items
func (v Variant) TotalCalories() float64 {
	return v.Content().TotalCalories()
}

// CalorieDeviation is the percent difference from the calorie target.
// ok is false when there is no target.
func (v Variant) CalorieDeviation() (float64, bool) {
	if v.TargetCalories <= 0 {
		return 0, false
	}
	dev := (v.TotalCalories() - float64(v.TargetCalories)) / float64(v.TargetCalories) * 100
	return round1(dev), true
}

// MarshalJSON adds the derived calorie total
func (v Variant) MarshalJSON() ([]byte, error) {
	type alias Variant
	return json.Marshal(struct {
		alias
		TotalCalories float64 `json:"total_calories"`
	}{alias(v), v.TotalCalories()})
}

// Expand derives the Lite, Standard and Plus variants of base. It makes no
// external calls and returns identical output for identical input.
func Expand(base BasePlan) [3]Variant {
	return ExpandAt(base, 0)
}

// ExpandAt is Expand with the base plan's position in its generation batch
func ExpandAt(base BasePlan, baseIndex int) [3]Variant {
	var out [3]Variant
	for i, spec := range variantSpecs {
		items := make([]Item, len(base.Items))
		var notes []string
		for j, it := range base.Items {
			scaled, note := scaleItem(it, base.Kind, spec)
			items[j] = scaled
			if note != "" {
				notes = append(notes, note)
			}
		}
		out[i] = Variant{
			BasePlanID:      base.ID,
			BaseIndex:       baseIndex,
			Kind:            base.Kind,
			Label:           spec.label,
			Factor:          spec.factor,
			Title:           base.Title,
			Items:           items,
			WeeklyFrequency: base.WeeklyFrequency,
			TargetCalories:  base.TargetCalories,
			Notes:           notes,
		}
	}
	return out
}

func scaleItem(it Item, kind Kind, spec variantSpec) (Item, string) {
	old := it.Quantity.Value
	rule, known := unitRules[it.Quantity.Unit]
	if !known {
		return it, fmt.Sprintf("%s: %q for item %q, quantity kept unchanged",
			ErrUnitOutOfRange.Error(), it.Quantity.Unit, it.Name)
	}

	next := old
	switch rule.scaling {
	case scaleContinuous:
		next = round1(old * spec.factor)
	case scaleDuration:
		next = math.Max(minMinutes, math.Round(old*spec.factor))
	case scaleStep:
		next = math.Max(minStepQuantity, old+float64(spec.direction)*rule.step)
	case scaleFixed:
	}

	it.Quantity.Value = next
	if old > 0 {
		ratio := next / old
		it.TotalCalories = round1(it.TotalCalories * ratio)
		it.ProteinG = scaleMacro(it.ProteinG, ratio)
		it.CarbsG = scaleMacro(it.CarbsG, ratio)
		it.FatG = scaleMacro(it.FatG, ratio)
	}
	if kind == KindExercise && it.Intensity != "" {
		it.Intensity = it.Intensity.Shift(spec.direction)
	}
	return it, ""
}

func scaleMacro(v *float64, ratio float64) *float64 {
	if v == nil {
		return nil
	}
	scaled := round1(*v * ratio)
	return &scaled
}
