package generation

import (
	"errors"
	"fmt"
)

var (
	// ErrGenerationParse marks a completion that could not be turned into a plan
	ErrGenerationParse = errors.New("generation parse error")
	// ErrNoStrategy is returned for a plan kind with no registered strategy
	ErrNoStrategy = errors.New("no generation strategy for plan kind")
)

func parseErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrGenerationParse, fmt.Sprintf(format, args...))
}
