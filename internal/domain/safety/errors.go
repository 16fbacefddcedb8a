package safety

import "errors"

var (
	// ErrSemanticAssessment marks a failed semantic layer. It lowers
	// confidence and never fails an assessment.
	ErrSemanticAssessment = errors.New("semantic assessment failure")
)
