package incident

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bissquit/incident-comms/internal/domain"
	"github.com/bissquit/incident-comms/internal/history"
	"github.com/bissquit/incident-comms/internal/identifier"
	"github.com/bissquit/incident-comms/internal/store"
)

func newTestSession(kv store.KV) *Session {
	s := NewSession(kv, DefaultConfig())
	s.ids = identifier.NewManagerWithClock(func() time.Time {
		return time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	})
	return s
}

// mockSaver implements RevisionSaver for testing.
type mockSaver struct {
	calls int
	err   error
}

func (m *mockSaver) Save(_ context.Context, record domain.IncidentRecord, user string) (domain.RevisionSnapshot, error) {
	m.calls++
	if m.err != nil {
		return domain.RevisionSnapshot{}, m.err
	}
	return domain.RevisionSnapshot{Identifier: record.Identifier() + ".01", Revision: "01", User: user, Record: record}, nil
}

func TestSession_SetMergeReplace(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(nil)
	assert.Equal(t, uint64(0), s.Version())

	s.Set(ctx, domain.FieldName, "Checkout outage")
	s.Merge(ctx, domain.IncidentRecord{domain.FieldSeverity: "S1", "custom_key": "kept"})
	assert.Equal(t, uint64(2), s.Version())

	record := s.Record()
	assert.Equal(t, "Checkout outage", record.Get(domain.FieldName))
	assert.Equal(t, "S1", record.Get(domain.FieldSeverity))
	assert.Equal(t, "kept", record.Get("custom_key"))

	// returned record is a copy
	record[domain.FieldName] = "changed"
	assert.Equal(t, "Checkout outage", s.Record().Get(domain.FieldName))

	s.Unset(ctx, "custom_key")
	_, ok := s.Record()["custom_key"]
	assert.False(t, ok)

	s.Replace(ctx, domain.IncidentRecord{domain.FieldETA: "1h"})
	assert.Equal(t, domain.IncidentRecord{domain.FieldETA: "1h"}, s.Record())

	s.Reset(ctx)
	assert.Empty(t, s.Record())
	assert.Equal(t, uint64(5), s.Version())
}

func TestSession_RevisionMismatchIsReported(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(nil)

	s.Set(ctx, domain.FieldRevision, "02")
	s.Set(ctx, domain.FieldIdentifier, "202501_03.04")
	assert.Equal(t, "02", s.Record().Revision())

	var verr *ValidationError
	require.True(t, errors.As(s.Validate(), &verr))
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, domain.FieldRevision, verr.Fields[0].Field)

	s.Set(ctx, domain.FieldRevision, "04")
	assert.NoError(t, s.Validate())

	s.Set(ctx, domain.FieldIdentifier, "202501_03")
	assert.Equal(t, "04", s.Record().Revision())
	assert.NoError(t, s.Validate())
}

func TestSession_LoadJSON(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(nil)
	s.Set(ctx, domain.FieldName, "Existing name")
	s.Set(ctx, domain.FieldETA, "30m")

	err := s.LoadJSON(ctx, "incident.json", []byte(`{"name": "Loaded name", "customers_affected": 1200, "vendor": "acme"}`))
	require.NoError(t, err)

	record := s.Record()
	assert.Equal(t, "Loaded name", record.Get(domain.FieldName))
	assert.Equal(t, "30m", record.Get(domain.FieldETA))
	assert.Equal(t, "1200", record.Get(domain.FieldCustomersAffected))
	assert.Equal(t, "acme", record.Get("vendor"))
}

func TestSession_LoadJSON_Malformed(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		data string
	}{
		{"truncated", `{"name": `},
		{"array", `[1, 2]`},
		{"null", `null`},
		{"scalar", `"text"`},
		{"trailing data", `{"name": "a"} {"name": "b"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(nil)
			s.Set(ctx, domain.FieldName, "Untouched")
			before := s.Version()

			err := s.LoadJSON(ctx, "bad.json", []byte(tt.data))
			var importErr *domain.ImportError
			require.True(t, errors.As(err, &importErr))
			assert.Equal(t, "bad.json", importErr.Source)

			assert.Equal(t, domain.IncidentRecord{domain.FieldName: "Untouched"}, s.Record())
			assert.Equal(t, before, s.Version())
		})
	}
}

func TestSession_SaveRevision(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(nil)
	s.Set(ctx, domain.FieldIdentifier, "202501_03")

	saver := &mockSaver{}
	snap, err := s.SaveRevision(ctx, saver, "alice", s.Version())
	require.NoError(t, err)
	assert.Equal(t, "202501_03.01", snap.Identifier)
	assert.Equal(t, "alice", snap.User)

	record := s.Record()
	assert.Equal(t, "202501_03.01", record.Identifier())
	assert.Equal(t, "01", record.Revision())
	assert.Equal(t, uint64(2), s.Version())
}

func TestSession_SaveRevision_VersionConflict(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(nil)
	s.Set(ctx, domain.FieldIdentifier, "202501_03")
	stale := s.Version()
	s.Set(ctx, domain.FieldName, "Edited elsewhere")

	saver := &mockSaver{}
	_, err := s.SaveRevision(ctx, saver, "", stale)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, 0, saver.calls)
	assert.Equal(t, "202501_03", s.Record().Identifier())
}

func TestSession_SaveRevision_SaverError(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(nil)
	saver := &mockSaver{err: history.ErrIdentifierRequired}

	_, err := s.SaveRevision(ctx, saver, "", s.Version())
	assert.ErrorIs(t, err, history.ErrIdentifierRequired)
	assert.Equal(t, uint64(0), s.Version())
}

func TestSession_SaveRevision_WithHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(nil)
	hist := history.NewService(nil, history.DefaultConfig())

	s.Set(ctx, domain.FieldIdentifier, "202501_07")

	expected := []string{"202501_07.01", "202501_07.02", "202501_07.03"}
	for _, want := range expected {
		snap, err := s.SaveRevision(ctx, hist, "", s.Version())
		require.NoError(t, err)
		assert.Equal(t, want, snap.Identifier)
		assert.Equal(t, want, s.Record().Identifier())
	}
}

func TestSession_AssignNewID(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(nil)
	s.Set(ctx, domain.FieldIdentifier, "202412_09.03")

	id, err := s.AssignNewID(ctx, []string{"202501_01", "202501_04.02", "202412_10"})
	require.NoError(t, err)
	assert.Equal(t, "202501_05", id)
	assert.Equal(t, "202501_05", s.Record().Identifier())
	assert.Equal(t, "00", s.Record().Revision())
}

func TestSession_NextUpdateTime(t *testing.T) {
	tests := []struct {
		name     string
		record   domain.IncidentRecord
		expected string
		err      error
	}{
		{
			name:     "S0 is 15 minutes",
			record:   domain.IncidentRecord{domain.FieldStartTime: "2025-01-15T10:00:00Z", domain.FieldSeverity: "S0"},
			expected: "2025-01-15T10:15:00Z",
		},
		{
			name:     "S1 is 30 minutes",
			record:   domain.IncidentRecord{domain.FieldStartTime: "2025-01-15T10:00", domain.FieldSeverity: "S1"},
			expected: "2025-01-15T10:30",
		},
		{
			name:     "S2 is an hour",
			record:   domain.IncidentRecord{domain.FieldStartTime: "2025-01-15 10:00", domain.FieldSeverity: "s2"},
			expected: "2025-01-15 11:00",
		},
		{
			name:     "S3 is two hours across midnight",
			record:   domain.IncidentRecord{domain.FieldStartTime: "2025-01-15T23:30:00+02:00", domain.FieldSeverity: "S3"},
			expected: "2025-01-16T01:30:00+02:00",
		},
		{
			name:   "unknown severity",
			record: domain.IncidentRecord{domain.FieldStartTime: "2025-01-15T10:00", domain.FieldSeverity: "S9"},
			err:    ErrNoSLA,
		},
		{
			name:   "bad start time",
			record: domain.IncidentRecord{domain.FieldStartTime: "yesterday", domain.FieldSeverity: "S0"},
			err:    ErrInvalidTime,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := newTestSession(nil)
			s.Replace(ctx, tt.record)

			value, err := s.ApplyNextUpdateTime(ctx)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Empty(t, s.Record().Get(domain.FieldNextUpdateTime))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, value)
			assert.Equal(t, tt.expected, s.Record().Get(domain.FieldNextUpdateTime))
		})
	}
}

func TestSession_SLA(t *testing.T) {
	s := NewSession(nil, Config{SLAs: map[string]int{"S0": 5}})

	d, ok := s.SLA("s0")
	assert.True(t, ok)
	assert.Equal(t, 5*time.Minute, d)

	_, ok = s.SLA("S1")
	assert.False(t, ok)
}

func TestSession_Validate(t *testing.T) {
	valid := domain.IncidentRecord{
		domain.FieldIdentifier:          "202501_03.01",
		domain.FieldRevision:            "01",
		domain.FieldName:                "Checkout outage",
		domain.FieldImpactSummary:       "Card payments fail for EU customers",
		domain.FieldSeverity:            "S1",
		domain.FieldCustomersAffected:   json.Number("1200"),
		domain.FieldDollarImpactPerHour: 1500.5,
		domain.FieldLinkStatusPage:      "https://status.example.com",
	}

	tests := []struct {
		name   string
		change domain.IncidentRecord
		fields []string
	}{
		{"valid", nil, nil},
		{"bad identifier", domain.IncidentRecord{domain.FieldIdentifier: "INC-1234"}, []string{domain.FieldIdentifier}},
		{"short name", domain.IncidentRecord{domain.FieldName: "Out"}, []string{domain.FieldName}},
		{"long name", domain.IncidentRecord{domain.FieldName: strings.Repeat("n", 101)}, []string{domain.FieldName}},
		{"short impact", domain.IncidentRecord{domain.FieldImpactSummary: "Slow"}, []string{domain.FieldImpactSummary}},
		{"unknown severity", domain.IncidentRecord{domain.FieldSeverity: "P1"}, []string{domain.FieldSeverity}},
		{"customers not a count", domain.IncidentRecord{domain.FieldCustomersAffected: "many"}, []string{domain.FieldCustomersAffected}},
		{"bad link", domain.IncidentRecord{domain.FieldLinkStatusPage: "status page"}, []string{domain.FieldLinkStatusPage}},
		{"revision mismatch", domain.IncidentRecord{domain.FieldRevision: "02"}, []string{domain.FieldRevision}},
		{
			"several",
			domain.IncidentRecord{domain.FieldName: "x", domain.FieldSeverity: "high"},
			[]string{domain.FieldName, domain.FieldSeverity},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := valid.Clone()
			record.Merge(tt.change)

			s := newTestSession(nil)
			s.record = record

			err := s.Validate()
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			got := make([]string, len(verr.Fields))
			for i, f := range verr.Fields {
				got[i] = f.Field
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestSession_Validate_Empty(t *testing.T) {
	assert.NoError(t, newTestSession(nil).Validate())
}

func TestSession_Validate_SeverityMessage(t *testing.T) {
	s := newTestSession(nil)
	s.record = domain.IncidentRecord{domain.FieldSeverity: "P1"}

	var verr *ValidationError
	require.True(t, errors.As(s.Validate(), &verr))
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "severity", verr.Fields[0].Rule)
	assert.Equal(t, "must be one of S0 S1 S2 S3", verr.Fields[0].Message)
}

func TestSession_Persistence(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()

	s := newTestSession(kv)
	s.Set(ctx, domain.FieldName, "Persisted outage")
	s.Set(ctx, domain.FieldCustomersAffected, 42)

	restored := newTestSession(kv)
	require.NoError(t, restored.Restore(ctx))
	assert.Equal(t, "Persisted outage", restored.Record().Get(domain.FieldName))
	assert.Equal(t, "42", restored.Record().Get(domain.FieldCustomersAffected))
	assert.Equal(t, s.Version(), restored.Version())

	empty := newTestSession(store.NewMemory())
	require.NoError(t, empty.Restore(ctx))
	assert.Empty(t, empty.Record())
}

func TestSession_Persistence_KeepsNumberLiterals(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()

	s := newTestSession(kv)
	require.NoError(t, s.LoadJSON(ctx, "incident.json", []byte(`{"customers_affected":12345678901234567,"dollar_impact_per_hour":1200.50}`)))

	restored := newTestSession(kv)
	require.NoError(t, restored.Restore(ctx))
	assert.Equal(t, "12345678901234567", restored.Record().Get(domain.FieldCustomersAffected))
	assert.Equal(t, "1200.50", restored.Record().Get(domain.FieldDollarImpactPerHour))
}
