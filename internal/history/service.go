// Package history keeps revision snapshots of incident records.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bissquit/incident-comms/internal/domain"
	"github.com/bissquit/incident-comms/internal/identifier"
	"github.com/bissquit/incident-comms/internal/pkg/ctxlog"
)

// DefaultRetention is the number of snapshots kept per identifier.
const DefaultRetention = 50

// Config configures the history service.
type Config struct {
	Retention int
}

// DefaultConfig returns default history settings.
func DefaultConfig() Config {
	return Config{Retention: DefaultRetention}
}

// Service records and recalls snapshots. Persistence goes through the
// repository; its failures are logged and never returned.
type Service struct {
	repo      Repository
	retention int
	now       func() time.Time

	mu        sync.Mutex
	histories map[string][]domain.RevisionSnapshot
}

// NewService creates a history service. A nil repository keeps history in
// memory only.
func NewService(repo Repository, cfg Config) *Service {
	retention := cfg.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Service{
		repo:      repo,
		retention: retention,
		now:       time.Now,
		histories: make(map[string][]domain.RevisionSnapshot),
	}
}

// Save stores a snapshot of record under its next revision and returns it.
// The revision is one above both the record's own revision and the newest
// stored snapshot, so it never goes backwards.
func (s *Service) Save(ctx context.Context, record domain.IncidentRecord, user string) (domain.RevisionSnapshot, error) {
	id := record.Identifier()
	if id == "" {
		return domain.RevisionSnapshot{}, ErrIdentifierRequired
	}

	parsed, err := identifier.Parse(id)
	if err != nil {
		return domain.RevisionSnapshot{}, fmt.Errorf("save revision: %w", err)
	}
	base := parsed.Base()

	next, err := identifier.IncrementRevision(id, record.Revision())
	if err != nil {
		return domain.RevisionSnapshot{}, fmt.Errorf("save revision: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load(ctx, base)
	if len(list) > 0 {
		latest, err := identifier.Parse(list[0].Identifier)
		candidate, _ := identifier.Parse(next)
		if err == nil && latest.Revision >= candidate.Revision {
			next, err = identifier.IncrementRevision(base, latest.RevisionSuffix())
			if err != nil {
				return domain.RevisionSnapshot{}, fmt.Errorf("save revision: %w", err)
			}
		}
	}

	nextID, _ := identifier.Parse(next)
	stored := record.Clone()
	stored[domain.FieldIdentifier] = nextID.String()
	stored[domain.FieldRevision] = nextID.RevisionSuffix()

	snapshot := domain.RevisionSnapshot{
		ID:         uuid.NewString(),
		Identifier: nextID.String(),
		Revision:   nextID.RevisionSuffix(),
		Timestamp:  s.now().UTC(),
		Record:     stored,
		User:       user,
	}

	list = append([]domain.RevisionSnapshot{snapshot}, list...)
	if len(list) > s.retention {
		list = list[:s.retention]
	}
	s.histories[base] = list
	s.persist(ctx, base, list)

	ctxlog.FromContext(ctx).Info("revision saved",
		"identifier", snapshot.Identifier,
		"user", user,
		"snapshots", len(list),
	)

	return copySnapshot(snapshot), nil
}

// List returns the snapshots of identifier, most recent first.
func (s *Service) List(ctx context.Context, id string) ([]domain.RevisionSnapshot, error) {
	base, err := identifier.Base(id)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load(ctx, base)
	out := make([]domain.RevisionSnapshot, len(list))
	for i, snap := range list {
		out[i] = copySnapshot(snap)
	}
	return out, nil
}

// Recent returns at most count snapshots of identifier.
func (s *Service) Recent(ctx context.Context, id string, count int) ([]domain.RevisionSnapshot, error) {
	list, err := s.List(ctx, id)
	if err != nil {
		return nil, err
	}
	if count >= 0 && len(list) > count {
		list = list[:count]
	}
	return list, nil
}

// Restore returns a copy of the record at index, 0 being the newest.
func (s *Service) Restore(ctx context.Context, id string, index int) (domain.IncidentRecord, bool) {
	snap, err := s.snapshot(ctx, id, index)
	if err != nil {
		return nil, false
	}
	return snap.Record.Clone(), true
}

// Diff compares the records at index i (before) and j (after).
func (s *Service) Diff(ctx context.Context, id string, i, j int) ([]domain.FieldChange, error) {
	before, err := s.snapshot(ctx, id, i)
	if err != nil {
		return nil, err
	}
	after, err := s.snapshot(ctx, id, j)
	if err != nil {
		return nil, err
	}
	return DiffRecords(before.Record, after.Record), nil
}

// Identifiers returns every base identifier with history, in memory or
// in the repository.
func (s *Service) Identifiers(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(s.histories))
	for base, list := range s.histories {
		if len(list) > 0 {
			seen[base] = struct{}{}
		}
	}
	if s.repo != nil {
		ids, err := s.repo.Identifiers(ctx)
		if err != nil {
			ctxlog.FromContext(ctx).Warn("failed to list stored history", "error", err)
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clear drops every snapshot of identifier.
func (s *Service) Clear(ctx context.Context, id string) error {
	base, err := identifier.Base(id)
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.histories[base] = nil
	if s.repo != nil {
		if err := s.repo.Delete(ctx, base); err != nil {
			ctxlog.FromContext(ctx).Warn("failed to delete stored history", "identifier", base, "error", err)
		}
	}
	return nil
}

func (s *Service) snapshot(ctx context.Context, id string, index int) (domain.RevisionSnapshot, error) {
	base, err := identifier.Base(id)
	if err != nil {
		return domain.RevisionSnapshot{}, fmt.Errorf("get snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load(ctx, base)
	if index < 0 || index >= len(list) {
		return domain.RevisionSnapshot{}, fmt.Errorf("%w: %s index %d", ErrSnapshotNotFound, base, index)
	}
	return copySnapshot(list[index]), nil
}

// load returns the in-memory list, reading it from the repository the first
// time base is seen. Callers hold s.mu.
func (s *Service) load(ctx context.Context, base string) []domain.RevisionSnapshot {
	if list, ok := s.histories[base]; ok {
		return list
	}
	var list []domain.RevisionSnapshot
	if s.repo != nil {
		var err error
		list, err = s.repo.Load(ctx, base)
		if err != nil {
			ctxlog.FromContext(ctx).Warn("failed to load history", "identifier", base, "error", err)
			list = nil
		}
	}
	s.histories[base] = list
	return list
}

func (s *Service) persist(ctx context.Context, base string, list []domain.RevisionSnapshot) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Save(ctx, base, list); err != nil {
		ctxlog.FromContext(ctx).Warn("failed to persist history", "identifier", base, "error", err)
	}
}

func copySnapshot(s domain.RevisionSnapshot) domain.RevisionSnapshot {
	s.Record = s.Record.Clone()
	return s
}

// DiffRecords returns every field whose value differs between before and
// after, over the union of their keys, sorted by field name. Values are
// compared by their text form with numbers canonicalized, so 12, "12" and
// 12.0 are equal.
func DiffRecords(before, after domain.IncidentRecord) []domain.FieldChange {
	keys := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}

	var changes []domain.FieldChange
	for k := range keys {
		b, inBefore := before[k]
		a, inAfter := after[k]
		if inBefore == inAfter && compareForm(b) == compareForm(a) {
			continue
		}
		changes = append(changes, domain.FieldChange{Field: k, Before: b, After: a})
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	return changes
}

func compareForm(v any) string {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return strconv.FormatInt(n, 10)
		}
		if f, err := val.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return domain.FormatValue(v)
}
