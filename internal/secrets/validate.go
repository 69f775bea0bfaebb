package secrets

import (
	"fmt"
	"os"
	"strings"
)

// ValidationError represents a validation failure for required secrets.
type ValidationError struct {
	Missing []string
	Empty   []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Empty) > 0 {
		parts = append(parts, fmt.Sprintf("empty values for required environment variables: %s", strings.Join(e.Empty, ", ")))
	}
	return strings.Join(parts, "; ")
}

// Require checks that each named environment variable is set and non-empty.
// Returns a ValidationError listing every unset or empty variable, nil otherwise.
func Require(names ...string) error {
	var missing []string
	var empty []string

	for _, name := range names {
		val, ok := os.LookupEnv(name)
		switch {
		case !ok:
			missing = append(missing, name)
		case val == "":
			empty = append(empty, name)
		}
	}

	if len(missing) > 0 || len(empty) > 0 {
		return &ValidationError{
			Missing: missing,
			Empty:   empty,
		}
	}

	return nil
}
