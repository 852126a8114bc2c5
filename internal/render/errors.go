package render

import (
	"errors"
	"fmt"
)

// Footer and bundle errors.
var (
	ErrNoFooter    = errors.New("metadata footer not found")
	ErrEmptyBundle = errors.New("bundle has no sections")
)

// InvalidTemplateError is returned when a template has no renderable body.
type InvalidTemplateError struct {
	TemplateID string
	Kind       string
}

func (e *InvalidTemplateError) Error() string {
	switch {
	case e.TemplateID != "" && e.Kind != "":
		return fmt.Sprintf("template %q has no body for %q", e.TemplateID, e.Kind)
	case e.TemplateID != "":
		return fmt.Sprintf("template %q has no body", e.TemplateID)
	default:
		return "template has no body"
	}
}
