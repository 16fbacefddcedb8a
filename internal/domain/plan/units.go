package plan

import "strings"

// Unit is a quantity unit from the closed set
type Unit string

const (
	UnitGram   Unit = "gram"
	UnitML     Unit = "ml"
	UnitPiece  Unit = "piece"
	UnitCup    Unit = "cup"
	UnitBowl   Unit = "bowl"
	UnitSlice  Unit = "slice"
	UnitSpoon  Unit = "spoon"
	UnitMinute Unit = "minute"
)

// Quantity is a numeric amount in a unit
type Quantity struct {
	Value float64 `json:"value" yaml:"value"`
	Unit  Unit    `json:"unit" yaml:"unit"`
}

type scaling int

const (
	scaleUnknown scaling = iota
	scaleContinuous
	scaleDuration
	scaleStep
	scaleFixed
)

type unitRule struct {
	scaling scaling
	step    float64
}

var unitRules = map[Unit]unitRule{
	UnitGram:   {scaling: scaleContinuous},
	UnitML:     {scaling: scaleContinuous},
	UnitMinute: {scaling: scaleDuration},
	UnitPiece:  {scaling: scaleStep, step: 0.5},
	UnitCup:    {scaling: scaleStep, step: 0.5},
	UnitBowl:   {scaling: scaleStep, step: 0.5},
	UnitSlice:  {scaling: scaleStep, step: 1.0},
	UnitSpoon:  {scaling: scaleFixed},
}

var unitAliases = map[string]Unit{
	"g":          UnitGram,
	"grams":      UnitGram,
	"gr":         UnitGram,
	"milliliter": UnitML,
	"millilitre": UnitML,
	"mL":         UnitML,
	"pieces":     UnitPiece,
	"pcs":        UnitPiece,
	"cups":       UnitCup,
	"bowls":      UnitBowl,
	"slices":     UnitSlice,
	"spoons":     UnitSpoon,
	"tbsp":       UnitSpoon,
	"tsp":        UnitSpoon,
	"min":        UnitMinute,
	"mins":       UnitMinute,
	"minutes":    UnitMinute,
}

var kindUnits = map[Kind][]Unit{
	KindDiet:     {UnitGram, UnitML, UnitPiece, UnitCup, UnitBowl, UnitSlice, UnitSpoon},
	KindExercise: {UnitMinute},
}

// NormalizeUnit maps common spellings onto the closed set. Unrecognised
// strings are returned lower-cased and unchanged.
func NormalizeUnit(raw string) Unit {
	trimmed := strings.TrimSpace(raw)
	if u, ok := unitAliases[trimmed]; ok {
		return u
	}
	lower := strings.ToLower(trimmed)
	if u, ok := unitAliases[lower]; ok {
		return u
	}
	return Unit(lower)
}

// Known reports whether the unit is in the closed set for any kind
func (u Unit) Known() bool {
	_, ok := unitRules[u]
	return ok
}

// UnitsFor lists the units a plan of the given kind may use
func UnitsFor(kind Kind) []Unit {
	return kindUnits[kind]
}

// AllowedFor reports whether the unit may appear in a plan of kind
func (u Unit) AllowedFor(kind Kind) bool {
	for _, allowed := range kindUnits[kind] {
		if allowed == u {
			return true
		}
	}
	return false
}
