package plan

import "errors"

var (
	// ErrUnitOutOfRange marks an item whose unit is outside the closed set.
	// Expansion records it as a note and never returns it.
	ErrUnitOutOfRange = errors.New("unit out of range")
	// ErrUnknownKind is returned for plan kinds other than diet and exercise
	ErrUnknownKind = errors.New("unknown plan kind")
)
