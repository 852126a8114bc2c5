// Package render fills template tokens from an incident record and builds
// the exported forms of the result.
package render

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/bissquit/incident-comms/internal/domain"
	"github.com/bissquit/incident-comms/internal/fieldmap"
	"github.com/bissquit/incident-comms/internal/tokens"
)

// Config configures a Renderer.
type Config struct {
	Jurisdictions JurisdictionPolicy
}

// DefaultConfig returns default renderer settings.
func DefaultConfig() Config {
	return Config{Jurisdictions: DefaultJurisdictionPolicy()}
}

// Renderer renders templates against incident records.
type Renderer struct {
	policy JurisdictionPolicy
	logger *slog.Logger
}

// NewRenderer creates a renderer.
func NewRenderer(cfg Config, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		policy: cfg.Jurisdictions,
		logger: logger,
	}
}

// Render renders the template's main body.
func (r *Renderer) Render(tmpl domain.Template, record domain.IncidentRecord) (string, error) {
	start := time.Now()
	defer func() { recordRenderDuration("render", time.Since(start)) }()

	return r.renderBody(tmpl.ID, "", tmpl.Body, record)
}

// RenderAll renders every communication of the template keyed by kind.
// A template without communications yields its main body under
// domain.CommunicationPrimary.
func (r *Renderer) RenderAll(tmpl domain.Template, record domain.IncidentRecord) (map[string]string, error) {
	start := time.Now()
	defer func() { recordRenderDuration("render_all", time.Since(start)) }()

	if len(tmpl.Communications) == 0 {
		out, err := r.renderBody(tmpl.ID, domain.CommunicationPrimary, tmpl.Body, record)
		if err != nil {
			return nil, err
		}
		return map[string]string{domain.CommunicationPrimary: out}, nil
	}

	result := make(map[string]string, len(tmpl.Communications))
	for _, kind := range Kinds(tmpl) {
		out, err := r.renderBody(tmpl.ID, kind, tmpl.Communications[kind], record)
		if err != nil {
			return nil, err
		}
		result[kind] = out
	}
	return result, nil
}

// RenderKind renders one communication. The kind domain.CommunicationPrimary
// and the empty kind select the main body.
func (r *Renderer) RenderKind(tmpl domain.Template, kind string, record domain.IncidentRecord) (string, error) {
	body, ok := Body(tmpl, kind)
	if !ok {
		return "", &InvalidTemplateError{TemplateID: tmpl.ID, Kind: kind}
	}
	return r.renderBody(tmpl.ID, kind, body, record)
}

// Preview renders the main body, substituting a fixed message on failure.
func (r *Renderer) Preview(tmpl domain.Template, record domain.IncidentRecord) string {
	out, err := r.Render(tmpl, record)
	if err != nil {
		r.logger.Warn("template preview failed", "template_id", tmpl.ID, "error", err)
		return "Failed to render template preview"
	}
	return out
}

// RenderWithMetadataFooter renders body and appends a metadata footer
// describing the identifier, the template and the active jurisdictions.
func (r *Renderer) RenderWithMetadataFooter(body string, record domain.IncidentRecord, tmpl domain.Template, jurisdictions []string) (string, error) {
	content, err := r.renderBody(tmpl.ID, "", body, record)
	if err != nil {
		return "", err
	}

	tags := NormalizeJurisdictions(jurisdictions)
	footer := Footer{
		Identifier:      record.Identifier(),
		Revision:        record.Revision(),
		Template:        tmpl.ID,
		TemplateVersion: tmpl.Version,
		Jurisdictions:   tags,
	}
	for _, tag := range tags {
		if notice, ok := r.policy.Notice(tag, record); ok {
			footer.Notices = append(footer.Notices, Notice{Tag: tag, Text: notice})
		}
	}

	return AppendFooter(content, footer), nil
}

func (r *Renderer) renderBody(templateID, kind, body string, record domain.IncidentRecord) (string, error) {
	if strings.TrimSpace(body) == "" {
		recordRender("invalid")
		return "", &InvalidTemplateError{TemplateID: templateID, Kind: kind}
	}

	if _, err := tokens.ExtractMetadata(body); err != nil {
		var warning *tokens.ParseWarning
		if errors.As(err, &warning) {
			r.logger.Warn("ignoring template metadata", "template_id", templateID, "error", warning)
		}
	}

	recordRender("ok")
	return Substitute(tokens.StripMetadata(body), fieldmap.MapIncidentToTokens(record)), nil
}

// Substitute replaces every token in content with its value from values.
// Tokens without a value become the empty string.
func Substitute(content string, values map[string]string) string {
	return tokens.Replace(content, func(t tokens.Token) string {
		return values[t.Name]
	})
}

// Body returns the body for kind.
func Body(tmpl domain.Template, kind string) (string, bool) {
	if kind == "" || kind == domain.CommunicationPrimary {
		if tmpl.Body != "" {
			return tmpl.Body, true
		}
		if kind == "" {
			return "", false
		}
	}
	body, ok := tmpl.Communications[kind]
	return body, ok
}

// Kinds returns the communication kinds of tmpl in sorted order.
func Kinds(tmpl domain.Template) []string {
	if len(tmpl.Communications) == 0 {
		return []string{domain.CommunicationPrimary}
	}
	kinds := make([]string, 0, len(tmpl.Communications))
	for k := range tmpl.Communications {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
