package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_StatusCode(t *testing.T) {
	cases := map[ErrorCode]int{
		CodeValidationFailed:          http.StatusBadRequest,
		CodeRetrievalUnavailable:      http.StatusServiceUnavailable,
		CodeGenerationParseError:      http.StatusBadGateway,
		CodeNoCandidates:              http.StatusBadGateway,
		CodeTooManyRequests:           http.StatusTooManyRequests,
		CodeSemanticAssessmentFailure: http.StatusInternalServerError,
	}

	for code, want := range cases {
		assert.Equal(t, want, NewAppError(code, "msg", "").StatusCode(), string(code))
	}
}

func TestAsAndWrap_UnwrapWrappedErrors(t *testing.T) {
	appErr := NewRetrievalUnavailableError(stderrors.New("dial tcp: refused"))
	wrapped := fmt.Errorf("diet retrieval: %w", appErr)

	found, ok := As(wrapped)
	assert.True(t, ok)
	assert.Same(t, appErr, found)
	_, ok = As(stderrors.New("plain"))
	assert.False(t, ok)
	assert.Same(t, appErr, Wrap(wrapped, "ignored"))
}

func TestNewValidationErrors(t *testing.T) {
	err := NewValidationErrors([]ValidationError{
		{Field: "age", Tag: "gt", Message: "age must be greater than 0"},
		{Field: "sex", Tag: "oneof", Message: "sex must be one of [male female]"},
	})

	assert.Equal(t, CodeValidationFailed, err.Code)
	assert.Equal(t, "age must be greater than 0; sex must be one of [male female]", err.Details)
	assert.Len(t, err.Metadata["validation_errors"], 2)
}

func TestNewTimeoutError_DistinguishesCancellation(t *testing.T) {
	assert.Equal(t, "Request timed out", NewTimeoutError(context.DeadlineExceeded).Message)
	assert.Equal(t, "Request cancelled", NewTimeoutError(fmt.Errorf("run: %w", context.Canceled)).Message)
	assert.Equal(t, http.StatusRequestTimeout, NewTimeoutError(context.Canceled).StatusCode())
}

func TestNewAppError_RecordsOrigin(t *testing.T) {
	err := NewBadRequestError("bad")

	assert.Contains(t, err.Origin, "errors_test.go")
}

func TestWrap_PlainErrorBecomesInternal(t *testing.T) {
	cause := stderrors.New("plain")

	err := Wrap(cause, "")

	assert.Equal(t, CodeInternal, err.Code)
	assert.Equal(t, "An unexpected error occurred", err.Message)
	assert.Same(t, cause, err.Cause)
	assert.Nil(t, Wrap(nil, "unused"))
	assert.Equal(t, "entity not found", NewNotFoundError("entity").Message)
}

func TestToErrorResponse(t *testing.T) {
	err := NewNoCandidatesError("diet", 3)

	resp := ToErrorResponse(err, "req-1")

	assert.Equal(t, CodeNoCandidates, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Equal(t, "All 3 diet generations failed", resp.Error.Details)
	assert.Equal(t, 3, resp.Error.Metadata["attempted"])
	_, parseErr := time.Parse(time.RFC3339, resp.Error.Timestamp)
	require.NoError(t, parseErr)
}
