package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Audience is the intended readership of a template.
type Audience string

// Audiences.
const (
	AudienceInternal     Audience = "internal"
	AudienceCustomer     Audience = "customer"
	AudienceExecutive    Audience = "executive"
	AudienceRegulators   Audience = "regulators"
	AudienceUnrestricted Audience = "unrestricted"
)

// ParseAudience normalizes an audience name. Plural and singular spellings
// found in older template packs map to the same audience; an empty value is
// unrestricted.
func ParseAudience(s string) Audience {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return AudienceUnrestricted
	case "customer", "customers":
		return AudienceCustomer
	case "regulator", "regulators":
		return AudienceRegulators
	case "executive", "executives":
		return AudienceExecutive
	default:
		return Audience(strings.ToLower(strings.TrimSpace(s)))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Audience) UnmarshalText(text []byte) error {
	*a = ParseAudience(string(text))
	return nil
}

// IsValid checks if the audience is known.
func (a Audience) IsValid() bool {
	switch a {
	case AudienceInternal, AudienceCustomer, AudienceExecutive, AudienceRegulators, AudienceUnrestricted:
		return true
	}
	return false
}

// IsRestricted reports whether the audience expects formal language.
func (a Audience) IsRestricted() bool {
	return a == AudienceExecutive || a == AudienceRegulators || a == AudienceCustomer
}

// SeverityTags lists the severities a template applies to. Packs write it
// either as a single string or as a list.
type SeverityTags []string

// UnmarshalJSON accepts a string or an array of strings.
func (s *SeverityTags) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = splitTags(one)
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("severity must be a string or a list of strings: %w", err)
	}
	*s = many
	return nil
}

// UnmarshalYAML accepts a scalar or a sequence.
func (s *SeverityTags) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*s = splitTags(value.Value)
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := value.Decode(&many); err != nil {
			return err
		}
		*s = many
		return nil
	}
	return fmt.Errorf("severity must be a string or a list of strings")
}

// Contains reports whether tag is listed, ignoring case.
func (s SeverityTags) Contains(tag string) bool {
	for _, t := range s {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// CommunicationPrimary is the kind under which a template's main body is
// rendered when it carries no named communications.
const CommunicationPrimary = "primary"

// Template is a reusable communication skeleton.
type Template struct {
	ID             string            `json:"id" yaml:"id" validate:"required,max=128"`
	Title          string            `json:"title" yaml:"title" validate:"max=255"`
	Description    string            `json:"description,omitempty" yaml:"description,omitempty"`
	Category       string            `json:"category,omitempty" yaml:"category,omitempty"`
	Audience       Audience          `json:"audience" yaml:"audience" validate:"omitempty,audience"`
	Severity       SeverityTags      `json:"severity,omitempty" yaml:"severity,omitempty"`
	Jurisdiction   string            `json:"jurisdiction,omitempty" yaml:"jurisdiction,omitempty"`
	Version        string            `json:"version" yaml:"version"`
	TokensRequired []string          `json:"tokens_required" yaml:"tokens_required" validate:"dive,required"`
	Body           string            `json:"body" yaml:"body" validate:"required_without=Communications"`
	Communications map[string]string `json:"communications,omitempty" yaml:"communications,omitempty" validate:"omitempty,dive,keys,required,endkeys,required"`
}

// EffectiveAudience returns the audience, treating an unset value as
// unrestricted.
func (t Template) EffectiveAudience() Audience {
	if t.Audience == "" {
		return AudienceUnrestricted
	}
	return t.Audience
}
