package history

import "errors"

// History errors.
var (
	ErrIdentifierRequired = errors.New("incident identifier is required")
	ErrSnapshotNotFound   = errors.New("snapshot not found")
)
