package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bissquit/incident-comms/internal/domain"
)

// Jurisdiction tags.
const (
	JurisdictionEU     = "EU"
	JurisdictionUS     = "US"
	JurisdictionSEC    = "SEC"
	JurisdictionGlobal = "GLOBAL"
)

// GDPRPolicy configures the EU notice.
type GDPRPolicy struct {
	Enabled                 bool
	NotificationWindowHours int
}

// CCPAPolicy configures the US notice.
type CCPAPolicy struct {
	Enabled                bool
	NotificationWindowDays int
}

// SECPolicy configures the SEC notice.
type SECPolicy struct {
	Enabled              bool
	DisclosureDays       int
	MaterialityThreshold float64
}

// JurisdictionPolicy holds the regulatory settings used for footer notices.
type JurisdictionPolicy struct {
	GDPR GDPRPolicy
	CCPA CCPAPolicy
	SEC  SECPolicy
}

// DefaultJurisdictionPolicy returns the policy used when nothing is configured.
func DefaultJurisdictionPolicy() JurisdictionPolicy {
	return JurisdictionPolicy{
		GDPR: GDPRPolicy{Enabled: true, NotificationWindowHours: 72},
		CCPA: CCPAPolicy{Enabled: false},
		SEC:  SECPolicy{Enabled: false, DisclosureDays: 4, MaterialityThreshold: 100000},
	}
}

// Notice returns the regulatory note for tag, if any applies.
func (p JurisdictionPolicy) Notice(tag string, record domain.IncidentRecord) (string, bool) {
	switch strings.ToUpper(tag) {
	case JurisdictionEU:
		if !p.GDPR.Enabled {
			return "", false
		}
		return fmt.Sprintf("GDPR: %dh notification window", p.GDPR.NotificationWindowHours), true
	case JurisdictionSEC:
		if !p.SEC.Enabled {
			return "", false
		}
		notice := fmt.Sprintf("SEC: %d day disclosure window", p.SEC.DisclosureDays)
		if impact, ok := hourlyImpact(record); ok && p.SEC.MaterialityThreshold > 0 && impact >= p.SEC.MaterialityThreshold {
			notice += fmt.Sprintf(", hourly impact meets materiality threshold of %s",
				strconv.FormatFloat(p.SEC.MaterialityThreshold, 'f', -1, 64))
		}
		return notice, true
	case JurisdictionUS:
		notice := "US: CCPA may apply for California residents"
		if p.CCPA.Enabled && p.CCPA.NotificationWindowDays > 0 {
			notice += fmt.Sprintf(", %d day notification window", p.CCPA.NotificationWindowDays)
		}
		return notice, true
	case JurisdictionGlobal:
		return "No specific regulatory requirements", true
	}
	return "", false
}

// NormalizeJurisdictions upper-cases, trims and de-duplicates tags. Comma
// separated entries are split.
func NormalizeJurisdictions(tags []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, tag := range tags {
		for _, part := range strings.Split(tag, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

// RecordJurisdictions returns the jurisdiction tags stored on record.
func RecordJurisdictions(record domain.IncidentRecord) []string {
	return NormalizeJurisdictions([]string{record.Get(domain.FieldJurisdiction)})
}

func hourlyImpact(record domain.IncidentRecord) (float64, bool) {
	raw := strings.TrimSpace(record.Get(domain.FieldDollarImpactPerHour))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
