package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/alchemorsel/vitaplan/internal/application/pipeline"
	"github.com/alchemorsel/vitaplan/internal/domain/plan"
	"github.com/alchemorsel/vitaplan/internal/ports/inbound"
	"github.com/alchemorsel/vitaplan/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PlanningHandlers serves the planning pipeline
type PlanningHandlers struct {
	planner inbound.PlanningService
	logger  *zap.Logger
}

// NewPlanningHandlers creates planning handlers
func NewPlanningHandlers(planner inbound.PlanningService, logger *zap.Logger) *PlanningHandlers {
	return &PlanningHandlers{
		planner: planner,
		logger:  logger.Named("planning-handlers"),
	}
}

// Register mounts the planning routes
func (h *PlanningHandlers) Register(group *gin.RouterGroup) {
	plans := group.Group("/plans")
	plans.POST("", h.Run)
	plans.POST("/:kind", h.GenerateCandidates)
}

// Run handles POST /api/v1/plans
func (h *PlanningHandlers) Run(c *gin.Context) {
	var req inbound.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	for _, k := range req.Kinds {
		if !k.Valid() {
			fail(c, plan.ErrUnknownKind)
			return
		}
	}

	result, err := h.planner.Run(c.Request.Context(), req)
	if err != nil {
		if stderrors.Is(err, pipeline.ErrNoCandidates) && result != nil {
			fail(c, errors.NewNoCandidatesError("plan", attempted(result.Diet)+attempted(result.Exercise)).
				WithMetadata("result", result).WithCause(err))
			return
		}
		fail(c, err)
		return
	}

	respond(c, http.StatusOK, result, "Plans generated")
}

// GenerateCandidates handles POST /api/v1/plans/:kind
func (h *PlanningHandlers) GenerateCandidates(c *gin.Context) {
	kind, err := plan.ParseKind(c.Param("kind"))
	if err != nil {
		fail(c, err)
		return
	}

	var req inbound.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.planner.GenerateCandidates(c.Request.Context(), kind, req)
	if err != nil {
		if stderrors.Is(err, pipeline.ErrNoCandidates) && result != nil {
			fail(c, errors.NewNoCandidatesError(string(kind), attempted(result)).
				WithMetadata("result", result).WithCause(err))
			return
		}
		fail(c, err)
		return
	}

	h.logger.Debug("Candidates generated",
		zap.String("kind", string(kind)),
		zap.Int("candidates", len(result.Candidates)),
		zap.Int("dropped", result.Dropped),
	)
	respond(c, http.StatusOK, result, "Candidates generated")
}

func attempted(r *inbound.KindResult) int {
	if r == nil {
		return 0
	}
	return len(r.BasePlans) + len(r.Errors)
}
