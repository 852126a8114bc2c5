package identifier

import "time"

// Manager issues identifiers for the current month.
type Manager struct {
	now func() time.Time
}

// NewManager creates a manager using the wall clock.
func NewManager() *Manager {
	return &Manager{now: time.Now}
}

// NewManagerWithClock creates a manager with a custom clock.
func NewManagerWithClock(now func() time.Time) *Manager {
	return &Manager{now: now}
}

// NewBaseID returns the next base identifier for the current month.
func (m *Manager) NewBaseID(existing []string) (string, error) {
	return GenerateBaseID(existing, YearMonth(m.now()))
}

// NextRevision returns id with its revision advanced by one.
func (m *Manager) NextRevision(id, storedRevision string) (string, error) {
	return IncrementRevision(id, storedRevision)
}
