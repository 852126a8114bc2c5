package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bissquit/incident-comms/internal/catalog"
	"github.com/bissquit/incident-comms/internal/domain"
)

func (r *runner) templatesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"tpl"},
		Short:   "Browse and manage the template catalog",
	}
	cmd.AddCommand(
		r.templatesListCommand(),
		r.templatesShowCommand(),
		r.templatesImportCommand(),
		r.templatesRemoveCommand(),
		r.templatesCategoriesCommand(),
	)
	return cmd
}

func (r *runner) templatesListCommand() *cobra.Command {
	var (
		audience string
		filter   catalog.Filter
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if audience != "" {
				filter.Audience = domain.ParseAudience(audience)
			}
			templates := r.app.Catalog.List(filter)
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(templates)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tAUDIENCE\tSEVERITY\tCATEGORY")
			for _, t := range templates {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					t.ID, t.Title, t.EffectiveAudience(), strings.Join(t.Severity, ","), t.Category)
			}
			return tw.Flush()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&audience, "audience", "", "only templates for this audience")
	flags.StringVar(&filter.Severity, "severity", "", "only templates tagged with this severity")
	flags.StringVar(&filter.Category, "category", "", "only templates in this category")
	flags.BoolVar(&asJSON, "json", false, "print templates as JSON")
	return cmd
}

func (r *runner) templatesShowCommand() *cobra.Command {
	var asJSON, preview bool

	cmd := &cobra.Command{
		Use:   "show <template-id>",
		Short: "Print one template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := r.app.Catalog.Get(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if preview {
				_, err = fmt.Fprintln(out, r.app.Renderer.Preview(tmpl, r.app.Session.Record()))
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(tmpl)
			}

			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(tmpl); err != nil {
				return fmt.Errorf("encode template: %w", err)
			}
			return enc.Close()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the template as JSON instead of YAML")
	cmd.Flags().BoolVar(&preview, "preview", false, "print the main body rendered with the current incident")
	return cmd
}

func (r *runner) templatesImportCommand() *cobra.Command {
	var (
		format string
		dedupe bool
	)

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import templates from a JSON or YAML document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := r.ctx(cmd)
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			f := catalog.Format(strings.ToLower(format))
			if f == catalog.FormatAuto {
				f = catalog.DetectFormat(args[0], data)
			}

			var n int
			if dedupe {
				n, err = r.app.Catalog.ImportDeduplicated(ctx, args[0], data, f)
			} else {
				n, err = r.app.Catalog.Import(ctx, args[0], data, f)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d templates\n", n)
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "input format: json or yaml (detected when empty)")
	cmd.Flags().BoolVar(&dedupe, "dedupe", false, "skip templates whose id is already in the catalog")
	return cmd
}

func (r *runner) templatesRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <template-id>",
		Short: "Remove templates by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := r.app.Catalog.Remove(r.ctx(cmd), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d templates\n", n)
			return err
		},
	}
}

func (r *runner) templatesCategoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List template categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, c := range r.app.Catalog.Categories() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), c); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
