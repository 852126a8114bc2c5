// Package fieldmap maps incident record fields to template token names.
package fieldmap

import (
	"github.com/bissquit/incident-comms/internal/domain"
)

type entry struct {
	token string
	field string
}

// canonical is the single source for both lookup directions.
var canonical = []entry{
	{"INCIDENT_ID", domain.FieldIdentifier},
	{"INCIDENT_NAME", domain.FieldName},
	{"SEVERITY", domain.FieldSeverity},
	{"START_TIME", domain.FieldStartTime},
	{"NEXT_UPDATE_TIME", domain.FieldNextUpdateTime},
	{"IMPACT_SUMMARY", domain.FieldImpactSummary},
	{"IC_NAME", domain.FieldICName},
	{"CONTACT", domain.FieldContact},
	{"CUSTOMERS_AFFECTED", domain.FieldCustomersAffected},
	{"DOLLAR_IMPACT_PER_HOUR", domain.FieldDollarImpactPerHour},
	{"CURRENT_STATUS", domain.FieldCurrentStatus},
	{"ROOT_CAUSE_STATUS", domain.FieldRootCauseStatus},
	{"ETA", domain.FieldETA},
	{"LINK_STATUS_PAGE", domain.FieldLinkStatusPage},
	{"JURISDICTION", domain.FieldJurisdiction},
	{"TICKET_ID", domain.FieldTicketID},
	{"REVISION", domain.FieldRevision},
}

// aliases are legacy token names accepted on input.
var aliases = []entry{
	{"USD_IMPACT_PER_HOUR", domain.FieldDollarImpactPerHour},
	{"LINK", domain.FieldLinkStatusPage},
	{"CONTACT_INFO", domain.FieldContact},
}

var (
	tokenToField = make(map[string]string, len(canonical)+len(aliases))
	fieldToToken = make(map[string]string, len(canonical))
)

func init() {
	for _, e := range canonical {
		tokenToField[e.token] = e.field
		fieldToToken[e.field] = e.token
	}
	for _, e := range aliases {
		tokenToField[e.token] = e.field
	}
}

// MapIncidentToTokens resolves every known token, aliases included, against
// record. Missing fields resolve to the empty string.
func MapIncidentToTokens(record domain.IncidentRecord) map[string]string {
	values := make(map[string]string, len(tokenToField))
	for token, field := range tokenToField {
		values[token] = record.Get(field)
	}
	return values
}

// MapTokenToField returns the record field for token.
func MapTokenToField(token string) (string, bool) {
	field, ok := tokenToField[token]
	return field, ok
}

// FieldToToken returns the canonical token for field.
func FieldToToken(field string) (string, bool) {
	token, ok := fieldToToken[field]
	return token, ok
}

// IsAlias reports whether token is a legacy alias.
func IsAlias(token string) bool {
	for _, e := range aliases {
		if e.token == token {
			return true
		}
	}
	return false
}

// Tokens returns the canonical token names in table order.
func Tokens() []string {
	out := make([]string, len(canonical))
	for i, e := range canonical {
		out[i] = e.token
	}
	return out
}

// Fields returns the record fields in table order.
func Fields() []string {
	out := make([]string, len(canonical))
	for i, e := range canonical {
		out[i] = e.field
	}
	return out
}
