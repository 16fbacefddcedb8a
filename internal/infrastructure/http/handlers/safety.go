package handlers

import (
	"fmt"
	"net/http"

	"github.com/alchemorsel/vitaplan/internal/domain/plan"
	"github.com/alchemorsel/vitaplan/internal/domain/profile"
	"github.com/alchemorsel/vitaplan/internal/domain/safety"
	"github.com/alchemorsel/vitaplan/internal/ports/inbound"
	"github.com/alchemorsel/vitaplan/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AssessRequest is the body of POST /safety/assess
type AssessRequest struct {
	Plan             plan.Content               `json:"plan"`
	PlanKind         string                     `json:"plan_kind"`
	User             profile.UserMetadata       `json:"user_metadata"`
	Environment      profile.EnvironmentContext `json:"environment"`
	EnableRuleChecks *bool                      `json:"enable_rule_checks,omitempty"`
	Threshold        *float64                   `json:"threshold,omitempty"`
}

// SafetyHandlers serves standalone plan assessment
type SafetyHandlers struct {
	assessor inbound.SafetyAssessor
	defaults safety.Options
	logger   *zap.Logger
}

// NewSafetyHandlers creates safety handlers. defaults apply to fields the
// request leaves unset.
func NewSafetyHandlers(assessor inbound.SafetyAssessor, defaults safety.Options, logger *zap.Logger) *SafetyHandlers {
	return &SafetyHandlers{
		assessor: assessor,
		defaults: defaults,
		logger:   logger.Named("safety-handlers"),
	}
}

// Register mounts the safety routes
func (h *SafetyHandlers) Register(group *gin.RouterGroup) {
	group.POST("/safety/assess", h.Assess)
}

// Assess handles POST /api/v1/safety/assess
func (h *SafetyHandlers) Assess(c *gin.Context) {
	var req AssessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	kindName := req.PlanKind
	if kindName == "" {
		kindName = string(req.Plan.Kind)
	}
	kind, err := plan.ParseKind(kindName)
	if err != nil {
		fail(c, err)
		return
	}
	if err := profile.ValidateUser(req.User); err != nil {
		fail(c, err)
		return
	}

	opts := h.defaults
	if req.EnableRuleChecks != nil {
		opts.EnableRuleChecks = *req.EnableRuleChecks
	}
	if req.Threshold != nil {
		if *req.Threshold < 0 || *req.Threshold > 100 {
			fail(c, errors.NewValidationErrors([]errors.ValidationError{{
				Field:   "threshold",
				Value:   *req.Threshold,
				Tag:     "range",
				Message: fmt.Sprintf("threshold %.1f must be between 0 and 100", *req.Threshold),
			}}))
			return
		}
		opts.Threshold = *req.Threshold
	}

	result, err := h.assessor.Assess(c.Request.Context(), req.Plan, kind, req.User, req.Environment, opts)
	if err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusOK, result, "Plan assessed")
}
