// Package profile holds the immutable inputs of one planning run:
// who the user is, where they are, and what they asked for.
package profile

import "strings"

// Sex is the biological sex used by the metabolic formulas
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// FitnessLevel is ordinal: sedentary < beginner < intermediate < advanced
type FitnessLevel string

const (
	FitnessSedentary    FitnessLevel = "sedentary"
	FitnessBeginner     FitnessLevel = "beginner"
	FitnessIntermediate FitnessLevel = "intermediate"
	FitnessAdvanced     FitnessLevel = "advanced"
)

// Goal is the user's stated objective
type Goal string

const (
	GoalWeightLoss        Goal = "weight_loss"
	GoalWeightGain        Goal = "weight_gain"
	GoalMaintenance       Goal = "maintenance"
	GoalMuscleGain        Goal = "muscle_gain"
	GoalMuscleBuilding    Goal = "muscle_building"
	GoalCardioImprovement Goal = "cardio_improvement"
	GoalFlexibility       Goal = "flexibility"
	GoalEndurance         Goal = "endurance"
	GoalGeneralFitness    Goal = "general_fitness"
)

// UserMetadata is the physiological profile of the user
type UserMetadata struct {
	Age               int          `json:"age" yaml:"age" validate:"required,gt=0,lte=120"`
	Sex               Sex          `json:"sex" yaml:"sex" validate:"required,oneof=male female"`
	HeightCM          float64      `json:"height_cm" yaml:"height_cm" validate:"required,gt=50,lte=272"`
	WeightKG          float64      `json:"weight_kg" yaml:"weight_kg" validate:"required,gt=20,lte=650"`
	MedicalConditions []string     `json:"medical_conditions,omitempty" yaml:"medical_conditions" validate:"dive,required"`
	Restrictions      []string     `json:"restrictions,omitempty" yaml:"restrictions" validate:"dive,required"`
	FitnessLevel      FitnessLevel `json:"fitness_level" yaml:"fitness_level" validate:"required,oneof=sedentary beginner intermediate advanced"`
}

// HasCondition reports whether the user lists the condition, ignoring case
func (u UserMetadata) HasCondition(condition string) bool {
	for _, c := range u.MedicalConditions {
		if NormalizeTag(c) == NormalizeTag(condition) {
			return true
		}
	}
	return false
}

// Weather is the current weather at the user's location
type Weather struct {
	Condition    string   `json:"condition,omitempty" yaml:"condition"`
	TemperatureC *float64 `json:"temperature_c,omitempty" yaml:"temperature_c" validate:"omitempty,gte=-60,lte=60"`
	Humidity     *float64 `json:"humidity,omitempty" yaml:"humidity" validate:"omitempty,gte=0,lte=100"`
	AirQuality   *int     `json:"air_quality_index,omitempty" yaml:"air_quality_index" validate:"omitempty,gte=0,lte=1000"`
}

// TimeContext places the plan in the calendar
type TimeContext struct {
	Date      string `json:"date,omitempty" yaml:"date"`
	TimeOfDay string `json:"time_of_day,omitempty" yaml:"time_of_day"`
	Season    string `json:"season,omitempty" yaml:"season"`
}

// EnvironmentContext is the environmental input of one run
type EnvironmentContext struct {
	Weather     Weather     `json:"weather" yaml:"weather"`
	TimeContext TimeContext `json:"time_context" yaml:"time_context"`
}

// Temperature returns the reported temperature, if any
func (e EnvironmentContext) Temperature() (float64, bool) {
	if e.Weather.TemperatureC == nil {
		return 0, false
	}
	return *e.Weather.TemperatureC, true
}

// AirQualityIndex returns the reported AQI, if any
func (e EnvironmentContext) AirQualityIndex() (int, bool) {
	if e.Weather.AirQuality == nil {
		return 0, false
	}
	return *e.Weather.AirQuality, true
}

// UserRequirement is what the user asked for
type UserRequirement struct {
	Goal                Goal     `json:"goal" yaml:"goal"`
	IntensityPreference string   `json:"intensity_preference,omitempty" yaml:"intensity_preference" validate:"omitempty,oneof=low moderate high very_high"`
	Preference          string   `json:"preference,omitempty" yaml:"preference" validate:"max=2000"`
	PreferenceTags      []string `json:"preference_tags,omitempty" yaml:"preference_tags"`
}

// EffectiveGoal defaults an empty goal to maintenance
func (r UserRequirement) EffectiveGoal() Goal {
	if r.Goal == "" {
		return GoalMaintenance
	}
	return Goal(NormalizeTag(string(r.Goal)))
}

// HasPreference reports whether a free-text preference was supplied
func (r UserRequirement) HasPreference() bool {
	return strings.TrimSpace(r.Preference) != ""
}

// NormalizeTag lower-cases a tag and joins words with underscores
func NormalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	return strings.Join(strings.FieldsFunc(tag, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}
