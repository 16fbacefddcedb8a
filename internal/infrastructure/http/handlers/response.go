// Package handlers provides HTTP handlers for the REST API
package handlers

import (
	"context"
	stderrors "errors"

	"github.com/alchemorsel/vitaplan/internal/application/generation"
	"github.com/alchemorsel/vitaplan/internal/application/pipeline"
	"github.com/alchemorsel/vitaplan/internal/domain/knowledge"
	"github.com/alchemorsel/vitaplan/internal/domain/plan"
	"github.com/alchemorsel/vitaplan/internal/domain/profile"
	"github.com/alchemorsel/vitaplan/internal/domain/safety"
	"github.com/alchemorsel/vitaplan/pkg/errors"
	"github.com/gin-gonic/gin"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func respond(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, APIResponse{Success: true, Data: data, Message: message})
}

// fail attaches err to the context for the error handler middleware
func fail(c *gin.Context, err error) {
	_ = c.Error(toAppError(err))
	c.Abort()
}

// toAppError maps domain errors onto the API error envelope
func toAppError(err error) *errors.AppError {
	if appErr, ok := errors.As(err); ok {
		return appErr
	}

	var verr *profile.ValidationError
	if stderrors.As(err, &verr) {
		out := make([]errors.ValidationError, 0, len(verr.Violations))
		for _, v := range verr.Violations {
			out = append(out, errors.ValidationError{Field: v.Field, Tag: v.Tag, Message: v.Message})
		}
		return errors.NewValidationErrors(out)
	}

	switch {
	case stderrors.Is(err, plan.ErrUnknownKind):
		return errors.NewBadRequestError(err.Error())
	case stderrors.Is(err, knowledge.ErrEntityNotFound):
		return errors.NewNotFoundError("entity").WithCause(err)
	case stderrors.Is(err, knowledge.ErrRetrievalUnavailable):
		return errors.NewRetrievalUnavailableError(err)
	case stderrors.Is(err, generation.ErrGenerationParse):
		return errors.NewGenerationParseError(err)
	case stderrors.Is(err, safety.ErrSemanticAssessment):
		return errors.NewSemanticAssessmentError(err)
	case stderrors.Is(err, pipeline.ErrNoCandidates):
		return errors.NewAppError(errors.CodeNoCandidates, "No candidates generated", err.Error()).WithCause(err)
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.Is(err, context.Canceled):
		return errors.NewTimeoutError(err)
	}
	return errors.Wrap(err, "An unexpected error occurred")
}

// badRequest reports a body that could not be decoded
func badRequest(c *gin.Context, err error) {
	_ = c.Error(errors.NewAppError(errors.CodeBadRequest, "Invalid request body", err.Error()))
	c.Abort()
}
