package catalog

import "errors"

// Catalog errors.
var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrEmptyImport      = errors.New("no templates in input")
	ErrUnknownFormat    = errors.New("unknown template format")
)
