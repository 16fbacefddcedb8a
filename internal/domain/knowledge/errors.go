package knowledge

import "errors"

var (
	// ErrRetrievalUnavailable is returned when the graph store or embedding service cannot be reached
	ErrRetrievalUnavailable = errors.New("knowledge retrieval unavailable")
	// ErrEntityNotFound is returned when a named entity does not exist in the graph
	ErrEntityNotFound = errors.New("entity not found")
)
