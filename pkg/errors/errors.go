// Package errors defines the application error envelope shared by the
// HTTP surface and the CLI.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
)

// ErrorCode is the machine-readable error kind carried in responses
type ErrorCode string

const (
	CodeBadRequest       ErrorCode = "BAD_REQUEST"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeTooManyRequests  ErrorCode = "TOO_MANY_REQUESTS"
	CodeTimeout          ErrorCode = "REQUEST_TIMEOUT"
	CodeInternal         ErrorCode = "INTERNAL_ERROR"

	// Planning pipeline
	CodeRetrievalUnavailable      ErrorCode = "RETRIEVAL_UNAVAILABLE"
	CodeGenerationParseError      ErrorCode = "GENERATION_PARSE_ERROR"
	CodeUnitOutOfRange            ErrorCode = "UNIT_OUT_OF_RANGE"
	CodeSemanticAssessmentFailure ErrorCode = "SEMANTIC_ASSESSMENT_FAILURE"
	CodeNoCandidates              ErrorCode = "NO_CANDIDATES"
)

var statusByCode = map[ErrorCode]int{
	CodeBadRequest:           http.StatusBadRequest,
	CodeValidationFailed:     http.StatusBadRequest,
	CodeNotFound:             http.StatusNotFound,
	CodeTimeout:              http.StatusRequestTimeout,
	CodeTooManyRequests:      http.StatusTooManyRequests,
	CodeRetrievalUnavailable: http.StatusServiceUnavailable,
	CodeGenerationParseError: http.StatusBadGateway,
	CodeNoCandidates:         http.StatusBadGateway,
}

// AppError is an error with a code, a client-facing message and
// optional structured metadata
type AppError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Cause    error                  `json:"-"`
	// Origin is the file:line that created the error
	Origin string `json:"-"`
}

func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString(" (" + e.Details + ")")
	}
	return b.String()
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode maps the error code to an HTTP status; unknown codes are 500
func (e *AppError) StatusCode() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WithMetadata sets one metadata key and returns the receiver
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{}, 1)
	}
	e.Metadata[key] = value
	return e
}

// WithCause records the underlying error and returns the receiver
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates an error with the given code
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Origin:  origin(),
	}
}

func NewBadRequestError(message string) *AppError {
	return NewAppError(CodeBadRequest, message, "")
}

// NewNotFoundError names the missing resource in the message
func NewNotFoundError(resource string) *AppError {
	if resource == "" {
		return NewAppError(CodeNotFound, "Resource not found", "")
	}
	return NewAppError(CodeNotFound, resource+" not found", "")
}

// NewInternalError hides the cause behind a generic message when message is empty
func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return NewAppError(CodeInternal, message, "")
}

// NewTimeoutError reports a request that ran out of time or was cancelled
func NewTimeoutError(cause error) *AppError {
	message := "Request timed out"
	if stderrors.Is(cause, context.Canceled) {
		message = "Request cancelled"
	}
	return NewAppError(CodeTimeout, message, "").WithCause(cause)
}

// NewRetrievalUnavailableError reports an unreachable graph store or embedding service
func NewRetrievalUnavailableError(cause error) *AppError {
	return NewAppError(
		CodeRetrievalUnavailable,
		"Knowledge retrieval unavailable",
		"The knowledge graph or embedding service could not be reached",
	).WithCause(cause)
}

// NewGenerationParseError reports model output that did not parse as a plan
func NewGenerationParseError(cause error) *AppError {
	return NewAppError(CodeGenerationParseError, "Generated plan could not be parsed", cause.Error()).WithCause(cause)
}

// NewSemanticAssessmentError reports a failed semantic safety layer
func NewSemanticAssessmentError(cause error) *AppError {
	return NewAppError(CodeSemanticAssessmentFailure, "Semantic assessment failed", "").WithCause(cause)
}

// NewNoCandidatesError reports a generation round that produced no usable plans
func NewNoCandidatesError(kind string, attempted int) *AppError {
	return NewAppError(
		CodeNoCandidates,
		"No candidates generated",
		fmt.Sprintf("All %d %s generations failed", attempted, kind),
	).WithMetadata("kind", kind).WithMetadata("attempted", attempted)
}

// Wrap returns the AppError in err's chain, or an internal error carrying err
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

// As finds the first AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// origin returns the first caller outside this package
func origin() string {
	for skip := 2; skip < 8; skip++ {
		_, file, line, ok := runtime.Caller(skip)
		if !ok {
			break
		}
		if !strings.Contains(file, "pkg/errors/") {
			return fmt.Sprintf("%s:%d", file, line)
		}
	}
	return ""
}

// ValidationError describes one rejected field
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value,omitempty"`
	Tag     string      `json:"tag"`
	Message string      `json:"message"`
}

// ValidationErrors joins several field errors
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(v))
	for i, err := range v {
		messages[i] = err.Message
	}
	return strings.Join(messages, "; ")
}

// NewValidationErrors wraps field errors; the list is kept under the
// "validation_errors" metadata key
func NewValidationErrors(errs []ValidationError) *AppError {
	list := ValidationErrors(errs)
	return NewAppError(CodeValidationFailed, "Validation failed", list.Error()).
		WithMetadata("validation_errors", list)
}

// ErrorResponse is the JSON body of every failed API call
type ErrorResponse struct {
	Error ErrorDetails `json:"error"`
}

// ErrorDetails is the payload of ErrorResponse
type ErrorDetails struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// ToErrorResponse renders err for the client
func ToErrorResponse(err *AppError, requestID string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetails{
			Code:      err.Code,
			Message:   err.Message,
			Details:   err.Details,
			Metadata:  err.Metadata,
			RequestID: requestID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
}
