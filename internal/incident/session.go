// Package incident owns the live incident record being edited.
package incident

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bissquit/incident-comms/internal/domain"
	"github.com/bissquit/incident-comms/internal/identifier"
	"github.com/bissquit/incident-comms/internal/pkg/ctxlog"
	"github.com/bissquit/incident-comms/internal/store"
)

const stateKey = "incident/current"

// timeLayouts are the accepted start time formats, most specific first.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// DefaultSLAs maps severity to the update interval in minutes.
func DefaultSLAs() map[string]int {
	return map[string]int{"S0": 15, "S1": 30, "S2": 60, "S3": 120}
}

// Config configures a Session.
type Config struct {
	SLAs   map[string]int
	Fields FieldConstraints
}

// DefaultConfig returns default session settings.
func DefaultConfig() Config {
	return Config{
		SLAs:   DefaultSLAs(),
		Fields: DefaultFieldConstraints(),
	}
}

// RevisionSaver stores revision snapshots.
type RevisionSaver interface {
	Save(ctx context.Context, record domain.IncidentRecord, user string) (domain.RevisionSnapshot, error)
}

type state struct {
	Record  domain.IncidentRecord `json:"record"`
	Version uint64                `json:"version"`
}

// Session holds one incident record and a version that grows with every
// change. Changes are persisted to the store when one is set; persistence
// failures are logged.
type Session struct {
	cfg      Config
	kv       store.KV
	ids      *identifier.Manager
	validate *validator.Validate
	now      func() time.Time

	mu      sync.Mutex
	record  domain.IncidentRecord
	version uint64
}

// NewSession creates an empty session.
func NewSession(kv store.KV, cfg Config) *Session {
	if cfg.SLAs == nil {
		cfg.SLAs = DefaultSLAs()
	}
	return &Session{
		cfg:      cfg,
		kv:       kv,
		ids:      identifier.NewManager(),
		validate: newValidator(),
		now:      time.Now,
		record:   domain.IncidentRecord{},
	}
}

// Restore loads the persisted record, if any.
func (s *Session) Restore(ctx context.Context) error {
	if s.kv == nil {
		return nil
	}

	var st state
	if err := store.GetJSON(ctx, s.kv, stateKey, &st); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("restore incident: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if st.Record == nil {
		st.Record = domain.IncidentRecord{}
	}
	s.record = st.Record
	s.version = st.Version
	return nil
}

// Record returns a copy of the current record.
func (s *Session) Record() domain.IncidentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone()
}

// Version returns the current version.
func (s *Session) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Set assigns one field.
func (s *Session) Set(ctx context.Context, field string, value any) {
	s.update(ctx, func(r domain.IncidentRecord) domain.IncidentRecord {
		r[field] = value
		return r
	})
}

// Unset removes one field.
func (s *Session) Unset(ctx context.Context, field string) {
	s.update(ctx, func(r domain.IncidentRecord) domain.IncidentRecord {
		delete(r, field)
		return r
	})
}

// Merge copies every key of partial over the record.
func (s *Session) Merge(ctx context.Context, partial domain.IncidentRecord) {
	s.update(ctx, func(r domain.IncidentRecord) domain.IncidentRecord {
		r.Merge(partial)
		return r
	})
}

// Replace swaps the whole record.
func (s *Session) Replace(ctx context.Context, record domain.IncidentRecord) {
	s.update(ctx, func(domain.IncidentRecord) domain.IncidentRecord {
		if record == nil {
			return domain.IncidentRecord{}
		}
		return record.Clone()
	})
}

// Reset clears the record.
func (s *Session) Reset(ctx context.Context) {
	s.Replace(ctx, nil)
}

// LoadJSON merges a JSON object over the record. Keys missing from data are
// kept. Malformed input returns a *domain.ImportError and changes nothing.
func (s *Session) LoadJSON(ctx context.Context, source string, data []byte) error {
	partial, err := DecodeRecord(data)
	if err != nil {
		return &domain.ImportError{Source: source, Index: -1, Err: err}
	}
	s.Merge(ctx, partial)
	ctxlog.FromContext(ctx).Info("incident loaded", "source", source, "fields", len(partial))
	return nil
}

// DecodeRecord parses a JSON object into a record. Numbers keep their
// literal form.
func DecodeRecord(data []byte) (domain.IncidentRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var record domain.IncidentRecord
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("decode incident: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("decode incident: expected a JSON object")
	}
	if dec.More() {
		return nil, fmt.Errorf("decode incident: trailing data after object")
	}
	return record, nil
}

// Validate checks the record's fields.
func (s *Session) Validate() error {
	return s.validateRecord(s.Record())
}

// SaveRevision stores a snapshot through saver and moves the record to the
// saved identifier and revision. expectedVersion must match the current
// version, otherwise ErrVersionConflict is returned and nothing is saved.
func (s *Session) SaveRevision(ctx context.Context, saver RevisionSaver, user string, expectedVersion uint64) (domain.RevisionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expectedVersion != s.version {
		return domain.RevisionSnapshot{}, fmt.Errorf("%w: expected version %d, have %d", ErrVersionConflict, expectedVersion, s.version)
	}

	snap, err := saver.Save(ctx, s.record.Clone(), user)
	if err != nil {
		return domain.RevisionSnapshot{}, err
	}

	s.record[domain.FieldIdentifier] = snap.Identifier
	s.record[domain.FieldRevision] = snap.Revision
	s.version++
	s.persist(ctx)
	return snap, nil
}

// AssignNewID gives the record the next base identifier of the current
// month, given the identifiers already issued, and resets its revision.
func (s *Session) AssignNewID(ctx context.Context, existing []string) (string, error) {
	id, err := s.ids.NewBaseID(existing)
	if err != nil {
		return "", fmt.Errorf("assign identifier: %w", err)
	}
	s.update(ctx, func(r domain.IncidentRecord) domain.IncidentRecord {
		r[domain.FieldIdentifier] = id
		r[domain.FieldRevision] = "00"
		return r
	})
	return id, nil
}

// NextUpdateTime is the record's start time plus the SLA of its severity.
func (s *Session) NextUpdateTime() (time.Time, error) {
	record := s.Record()
	return nextUpdate(record, s.cfg.SLAs)
}

// ApplyNextUpdateTime stores NextUpdateTime in the record, formatted like the
// start time.
func (s *Session) ApplyNextUpdateTime(ctx context.Context) (string, error) {
	record := s.Record()
	start, layout, err := parseTime(record.Get(domain.FieldStartTime))
	if err != nil {
		return "", err
	}
	next, err := nextUpdate(record, s.cfg.SLAs)
	if err != nil {
		return "", err
	}
	value := next.In(start.Location()).Format(layout)
	s.Set(ctx, domain.FieldNextUpdateTime, value)
	return value, nil
}

// SLA returns the update interval for severity.
func (s *Session) SLA(severity string) (time.Duration, bool) {
	minutes, ok := s.cfg.SLAs[strings.ToUpper(severity)]
	if !ok || minutes <= 0 {
		return 0, false
	}
	return time.Duration(minutes) * time.Minute, true
}

func nextUpdate(record domain.IncidentRecord, slas map[string]int) (time.Time, error) {
	start, _, err := parseTime(record.Get(domain.FieldStartTime))
	if err != nil {
		return time.Time{}, err
	}
	severity := strings.ToUpper(record.Get(domain.FieldSeverity))
	minutes, ok := slas[severity]
	if !ok || minutes <= 0 {
		return time.Time{}, fmt.Errorf("%w %q", ErrNoSLA, severity)
	}
	return start.Add(time.Duration(minutes) * time.Minute), nil
}

func parseTime(value string) (time.Time, string, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, layout, nil
		}
	}
	return time.Time{}, "", fmt.Errorf("%w: %q", ErrInvalidTime, value)
}

// update applies fn to a copy of the record, bumps the version and persists.
// A revision that disagrees with the identifier's suffix is left for
// Validate to report.
func (s *Session) update(ctx context.Context, fn func(domain.IncidentRecord) domain.IncidentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record = fn(s.record.Clone())
	s.version++
	s.persist(ctx)
}

// persist writes the state to the store. Callers hold s.mu.
func (s *Session) persist(ctx context.Context) {
	if s.kv == nil {
		return
	}
	if err := store.PutJSON(ctx, s.kv, stateKey, state{Record: s.record, Version: s.version}); err != nil {
		ctxlog.FromContext(ctx).Warn("failed to persist incident", "error", err)
	}
}
