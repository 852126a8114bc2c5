package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/bissquit/incident-comms/internal/domain"
	"github.com/bissquit/incident-comms/internal/render"
)

var errFooterWithBundle = errors.New("--footer cannot be combined with --all")

type renderOptions struct {
	kind          string
	all           bool
	footer        bool
	jurisdictions []string
	html          bool
	out           string
}

func (r *runner) renderCommand() *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render <template-id>",
		Short: "Render a template with the current incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := r.app.Catalog.Get(args[0])
			if err != nil {
				return err
			}
			text, err := r.render(tmpl, r.app.Session.Record(), opts)
			if err != nil {
				return err
			}
			if opts.html {
				text = render.ToHTML(text)
			}
			return writeOutput(cmd, opts.out, text)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.kind, "kind", "", "communication kind to render (default: main body)")
	flags.BoolVar(&opts.all, "all", false, "render every communication as one bundle")
	flags.BoolVar(&opts.footer, "footer", false, "append the incident metadata footer")
	flags.StringSliceVar(&opts.jurisdictions, "jurisdiction", nil, "jurisdiction tags for the footer (default: from the incident or template)")
	flags.BoolVar(&opts.html, "html", false, "convert the output to sanitized HTML")
	flags.StringVar(&opts.out, "out", "", "write to this file instead of stdout")
	cmd.MarkFlagsMutuallyExclusive("kind", "all")
	return cmd
}

func (r *runner) render(tmpl domain.Template, record domain.IncidentRecord, opts renderOptions) (string, error) {
	renderer := r.app.Renderer

	if opts.all {
		if opts.footer {
			return "", errFooterWithBundle
		}
		rendered, err := renderer.RenderAll(tmpl, record)
		if err != nil {
			return "", err
		}
		return render.Bundle(record.Identifier(), rendered), nil
	}

	kind := opts.kind
	if kind == "" && tmpl.Body == "" {
		// Templates made only of communications render their first kind.
		kind = render.Kinds(tmpl)[0]
	}

	if !opts.footer {
		return renderer.RenderKind(tmpl, kind, record)
	}

	body, ok := render.Body(tmpl, kind)
	if !ok {
		return "", &render.InvalidTemplateError{TemplateID: tmpl.ID, Kind: kind}
	}
	return renderer.RenderWithMetadataFooter(body, record, tmpl, footerJurisdictions(tmpl, record, opts.jurisdictions))
}

// footerJurisdictions prefers explicit tags, then the incident's, then the
// template's.
func footerJurisdictions(tmpl domain.Template, record domain.IncidentRecord, explicit []string) []string {
	if tags := render.NormalizeJurisdictions(explicit); len(tags) > 0 {
		return tags
	}
	if tags := render.RecordJurisdictions(record); len(tags) > 0 {
		return tags
	}
	return render.NormalizeJurisdictions([]string{tmpl.Jurisdiction})
}
