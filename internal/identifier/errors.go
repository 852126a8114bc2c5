package identifier

import (
	"errors"
	"fmt"
)

// ErrFormat is matched by every FormatError via errors.Is.
var ErrFormat = errors.New("identifier format error")

// FormatError reports an identifier or revision that does not match the
// expected pattern. It is surfaced to the caller and never auto-corrected.
type FormatError struct {
	Value  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.Value, e.Reason)
}

// Is makes errors.Is(err, ErrFormat) true for any FormatError.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

func formatError(value, reason string) error {
	return &FormatError{Value: value, Reason: reason}
}
