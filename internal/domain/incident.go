package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
)

// Incident record field keys.
const (
	FieldIdentifier          = "identifier"
	FieldName                = "name"
	FieldSeverity            = "severity"
	FieldStartTime           = "start_time"
	FieldNextUpdateTime      = "next_update_time"
	FieldImpactSummary       = "impact_summary"
	FieldICName              = "ic_name"
	FieldContact             = "contact"
	FieldCustomersAffected   = "customers_affected"
	FieldDollarImpactPerHour = "dollar_impact_per_hour"
	FieldCurrentStatus       = "current_status"
	FieldRootCauseStatus     = "root_cause_status"
	FieldETA                 = "eta"
	FieldLinkStatusPage      = "link_status_page"
	FieldJurisdiction        = "jurisdiction"
	FieldTicketID            = "ticket_id"
	FieldRevision            = "revision"
)

// IncidentSeverity is an incident severity level (S0 is the most severe).
type IncidentSeverity string

// Severity levels.
const (
	SeverityS0 IncidentSeverity = "S0"
	SeverityS1 IncidentSeverity = "S1"
	SeverityS2 IncidentSeverity = "S2"
	SeverityS3 IncidentSeverity = "S3"
)

// IsValid checks if the severity is a known level.
func (s IncidentSeverity) IsValid() bool {
	switch s {
	case SeverityS0, SeverityS1, SeverityS2, SeverityS3:
		return true
	}
	return false
}

// IncidentRecord holds the facts describing one incident keyed by field name.
// Values are strings or numbers. Keys outside the known field set are kept
// as-is so that loading and saving a record never drops data.
type IncidentRecord map[string]any

// Get returns the value of key formatted as a string. Missing and nil values
// yield an empty string.
func (r IncidentRecord) Get(key string) string {
	v, ok := r[key]
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// Identifier returns the incident identifier.
func (r IncidentRecord) Identifier() string {
	return r.Get(FieldIdentifier)
}

// Revision returns the stored revision suffix.
func (r IncidentRecord) Revision() string {
	return r.Get(FieldRevision)
}

// Clone returns a shallow copy of the record. Values are scalars so the copy
// shares no mutable state with the original.
func (r IncidentRecord) Clone() IncidentRecord {
	out := make(IncidentRecord, len(r))
	maps.Copy(out, r)
	return out
}

// Merge copies every key of partial into r. Keys absent from partial are left
// untouched.
func (r IncidentRecord) Merge(partial IncidentRecord) {
	maps.Copy(r, partial)
}

// FormatValue renders a record value as text. Floats are printed without
// trailing zeros so 1200.0 becomes "1200".
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
