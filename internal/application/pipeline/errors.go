package pipeline

import "errors"

var (
	// ErrNoCandidates is returned with a kind result when every generation failed
	ErrNoCandidates = errors.New("no candidates generated")
)
