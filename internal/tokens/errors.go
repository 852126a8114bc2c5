package tokens

import "fmt"

// ParseWarning reports an advisory block that could not be parsed.
// It never aborts rendering.
type ParseWarning struct {
	Source string
	Err    error
}

func (w *ParseWarning) Error() string {
	return fmt.Sprintf("parse %s: %v", w.Source, w.Err)
}

func (w *ParseWarning) Unwrap() error {
	return w.Err
}
