package incident

import (
	"errors"
	"strings"
)

// Session errors.
var (
	ErrVersionConflict = errors.New("incident changed since it was read")
	ErrNoSLA           = errors.New("no update SLA for severity")
	ErrInvalidTime     = errors.New("unrecognized time format")
)

// FieldError describes one field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field of a record.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "invalid incident: " + strings.Join(msgs, "; ")
}
