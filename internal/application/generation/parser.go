package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alchemorsel/vitaplan/internal/domain/plan"
)

// number accepts JSON numbers and numeric strings such as "80" or "80 g".
// NaN and infinities are rejected; they cannot be encoded back to JSON.
type number struct {
	value float64
	set   bool
}

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		fields := strings.Fields(s)
		if len(fields) == 0 {
			return nil
		}
		text = fields[0]
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", data)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("not a finite number: %s", data)
	}
	n.value, n.set = v, true
	return nil
}

func (n number) ptr() *float64 {
	if !n.set {
		return nil
	}
	v := n.value
	return &v
}

type rawItem struct {
	Slot          string `json:"slot"`
	Meal          string `json:"meal"`
	Segment       string `json:"segment"`
	Name          string `json:"name"`
	Quantity      number `json:"quantity"`
	Unit          string `json:"unit"`
	TotalCalories number `json:"total_calories"`
	ProteinG      number `json:"protein_g"`
	CarbsG        number `json:"carbs_g"`
	FatG          number `json:"fat_g"`
	ExerciseType  string `json:"exercise_type"`
	Intensity     string `json:"intensity"`
}

func (r rawItem) slot() string {
	for _, s := range []string{r.Slot, r.Meal, r.Segment} {
		if strings.TrimSpace(s) != "" {
			return strings.ToLower(strings.TrimSpace(s))
		}
	}
	return ""
}

type rawPlan struct {
	Title           string    `json:"title"`
	WeeklyFrequency number    `json:"weekly_frequency"`
	Items           []rawItem `json:"items"`
}

// decodePlan pulls the JSON payload out of a completion. Models often wrap
// the object in prose or code fences, so the outermost object or array is
// used. A bare array is read as the item list.
func decodePlan(raw string) (rawPlan, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return rawPlan{}, parseErr("empty response")
	}

	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")

	var out rawPlan
	switch {
	case arrStart >= 0 && (objStart < 0 || arrStart < objStart):
		end := strings.LastIndex(text, "]")
		if end <= arrStart {
			return rawPlan{}, parseErr("no JSON found in response")
		}
		if err := json.Unmarshal([]byte(text[arrStart:end+1]), &out.Items); err != nil {
			return rawPlan{}, parseErr("malformed item list: %v", err)
		}
	case objStart >= 0:
		end := strings.LastIndex(text, "}")
		if end <= objStart {
			return rawPlan{}, parseErr("no JSON found in response")
		}
		if err := json.Unmarshal([]byte(text[objStart:end+1]), &out); err != nil {
			return rawPlan{}, parseErr("malformed plan object: %v", err)
		}
	default:
		return rawPlan{}, parseErr("no JSON found in response")
	}

	if len(out.Items) == 0 {
		return rawPlan{}, parseErr("plan has no items")
	}
	return out, nil
}

// parseItem validates the fields every item must carry
func parseItem(kind plan.Kind, idx int, r rawItem) (plan.Item, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return plan.Item{}, parseErr("item %d: missing name", idx)
	}
	slot := r.slot()
	if slot == "" {
		return plan.Item{}, parseErr("item %d (%s): missing slot", idx, name)
	}
	if !r.Quantity.set {
		return plan.Item{}, parseErr("item %d (%s): missing quantity", idx, name)
	}
	if r.Quantity.value <= 0 {
		return plan.Item{}, parseErr("item %d (%s): quantity must be positive", idx, name)
	}
	unit := plan.NormalizeUnit(r.Unit)
	if !unit.AllowedFor(kind) {
		return plan.Item{}, parseErr("item %d (%s): unit %q outside %s", idx, name, r.Unit, unitList(kind))
	}
	if !r.TotalCalories.set {
		return plan.Item{}, parseErr("item %d (%s): missing total_calories", idx, name)
	}
	if r.TotalCalories.value < 0 {
		return plan.Item{}, parseErr("item %d (%s): total_calories must not be negative", idx, name)
	}

	return plan.Item{
		Slot:          slot,
		Name:          name,
		Quantity:      plan.Quantity{Value: r.Quantity.value, Unit: unit},
		TotalCalories: math.Round(r.TotalCalories.value*10) / 10,
		ProteinG:      r.ProteinG.ptr(),
		CarbsG:        r.CarbsG.ptr(),
		FatG:          r.FatG.ptr(),
	}, nil
}
