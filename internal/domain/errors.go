package domain

import "fmt"

// ImportError reports input that could not be imported. Nothing from the
// input is applied when it is returned.
type ImportError struct {
	// Source names the input, typically a file name.
	Source string
	// Index is the position of the offending item, or -1 for the whole input.
	Index int
	Err   error
}

func (e *ImportError) Error() string {
	source := e.Source
	if source == "" {
		source = "input"
	}
	if e.Index >= 0 {
		return fmt.Sprintf("import %s: item %d: %v", source, e.Index, e.Err)
	}
	return fmt.Sprintf("import %s: %v", source, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
