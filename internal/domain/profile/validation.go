package profile

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		// Report json field names so violations line up with request bodies
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks the planning input and returns a *ValidationError listing
// every violation, or nil when the input is usable.
func Validate(user UserMetadata, env EnvironmentContext, req UserRequirement) error {
	var violations []FieldViolation

	violations = append(violations, collect("user_metadata", user)...)
	violations = append(violations, collect("environment", env)...)
	violations = append(violations, collect("requirement", req)...)

	if req.Goal != "" && !KnownGoal(req.EffectiveGoal()) {
		violations = append(violations, FieldViolation{
			Field:   "requirement.goal",
			Tag:     "oneof",
			Message: fmt.Sprintf("requirement.goal %q is not a supported goal", req.Goal),
		})
	}

	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

// ValidateUser checks only the physiological profile
func ValidateUser(user UserMetadata) error {
	violations := collect("user_metadata", user)
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

func collect(prefix string, value interface{}) []FieldViolation {
	err := structValidator().Struct(value)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldViolation{{Field: prefix, Tag: "invalid", Message: err.Error()}}
	}

	out := make([]FieldViolation, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace is "UserMetadata.age"; swap the struct name for the prefix
		ns := fe.Namespace()
		if idx := strings.Index(ns, "."); idx >= 0 {
			ns = ns[idx+1:]
		}
		field := prefix + "." + ns
		out = append(out, FieldViolation{
			Field:   field,
			Tag:     fe.Tag(),
			Message: violationMessage(field, fe),
		})
	}
	return out
}

func violationMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// KnownGoal reports whether the goal is one of the supported objectives
func KnownGoal(g Goal) bool {
	switch g {
	case GoalWeightLoss, GoalWeightGain, GoalMaintenance, GoalMuscleGain,
		GoalMuscleBuilding, GoalCardioImprovement, GoalFlexibility,
		GoalEndurance, GoalGeneralFitness:
		return true
	}
	return false
}
