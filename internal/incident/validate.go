package incident

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/bissquit/incident-comms/internal/domain"
	"github.com/bissquit/incident-comms/internal/identifier"
)

// FieldConstraints bounds the length of free-text fields, in characters.
type FieldConstraints struct {
	NameMin          int
	NameMax          int
	ImpactSummaryMin int
	ImpactSummaryMax int
}

// DefaultFieldConstraints returns the stock limits.
func DefaultFieldConstraints() FieldConstraints {
	return FieldConstraints{
		NameMin:          5,
		NameMax:          100,
		ImpactSummaryMin: 20,
		ImpactSummaryMax: 500,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("incident_id", func(fl validator.FieldLevel) bool {
		return identifier.Validate(fl.Field().String())
	})
	_ = v.RegisterValidation("severity", func(fl validator.FieldLevel) bool {
		return domain.IncidentSeverity(fl.Field().String()).IsValid()
	})
	return v
}

type fieldRule struct {
	field string
	tag   string
}

func (s *Session) rules() []fieldRule {
	c := s.cfg.Fields
	return []fieldRule{
		{domain.FieldIdentifier, "omitempty,incident_id"},
		{domain.FieldName, fmt.Sprintf("omitempty,min=%d,max=%d", c.NameMin, c.NameMax)},
		{domain.FieldImpactSummary, fmt.Sprintf("omitempty,min=%d,max=%d", c.ImpactSummaryMin, c.ImpactSummaryMax)},
		{domain.FieldSeverity, "omitempty,severity"},
		{domain.FieldCustomersAffected, "omitempty,number"},
		{domain.FieldDollarImpactPerHour, "omitempty,numeric"},
		{domain.FieldLinkStatusPage, "omitempty,url"},
		{domain.FieldContact, "max=255"},
	}
}

// validateRecord checks record against the session's field rules.
func (s *Session) validateRecord(record domain.IncidentRecord) error {
	var fields []FieldError
	for _, rule := range s.rules() {
		value := record.Get(rule.field)
		err := s.validate.Var(value, rule.tag)
		if err == nil {
			continue
		}

		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			fields = append(fields, FieldError{Field: rule.field, Rule: "invalid", Message: err.Error()})
			continue
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   rule.field,
				Rule:    fe.Tag(),
				Message: fieldMessage(fe, value),
			})
		}
	}

	if err := identifier.CheckRevision(record.Identifier(), record.Revision()); err != nil && identifier.Validate(record.Identifier()) {
		fields = append(fields, FieldError{Field: domain.FieldRevision, Rule: "revision", Message: err.Error()})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func fieldMessage(fe validator.FieldError, value string) string {
	switch fe.Tag() {
	case "incident_id":
		return "expected YYYYMM_NN or YYYYMM_NN.RR"
	case "min":
		return fmt.Sprintf("must be at least %s characters (got %d)", fe.Param(), utf8.RuneCountInString(value))
	case "max":
		return fmt.Sprintf("must be at most %s characters (got %d)", fe.Param(), utf8.RuneCountInString(value))
	case "severity":
		return "must be one of S0 S1 S2 S3"
	case "numeric", "number":
		return "must be a number"
	case "url":
		return "must be a URL"
	}
	return "failed " + fe.Tag()
}
