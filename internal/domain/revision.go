package domain

import "time"

// RevisionSnapshot is an immutable copy of an incident record taken when a
// revision is saved.
type RevisionSnapshot struct {
	ID         string         `json:"id"`
	Identifier string         `json:"identifier"`
	Revision   string         `json:"revision"`
	Timestamp  time.Time      `json:"timestamp"`
	Record     IncidentRecord `json:"record"`
	User       string         `json:"user,omitempty"`
}

// FieldChange describes one field that differs between two snapshots.
// Before or After is nil when the field is absent on that side.
type FieldChange struct {
	Field  string `json:"field"`
	Before any    `json:"before"`
	After  any    `json:"after"`
}
