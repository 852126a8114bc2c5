package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bissquit/incident-comms/internal/render"
)

func (r *runner) bundleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Work with rendered bundles and metadata footers",
	}
	cmd.AddCommand(r.bundleSplitCommand(), r.footerParseCommand())
	return cmd
}

func (r *runner) bundleSplitCommand() *cobra.Command {
	var (
		dir string
		id  string
	)

	cmd := &cobra.Command{
		Use:         "split <file|->",
		Short:       "Split a bundle into one file per communication",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipApp": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			sections, err := render.ParseBundle(string(data), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dir == "" {
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "LABEL\tKIND\tTITLE\tLINES")
				for _, s := range sections {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", s.Label, s.Kind, render.KindTitle(s.Kind), strings.Count(s.Body, "\n")+1)
				}
				return tw.Flush()
			}

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
			for _, s := range sections {
				path := filepath.Join(dir, filepath.Base(s.Label))
				if err := os.WriteFile(path, []byte(s.Body), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				fmt.Fprintln(out, path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "write sections into this directory")
	cmd.Flags().StringVar(&id, "id", "", "identifier used in the section labels")
	return cmd
}

func (r *runner) footerParseCommand() *cobra.Command {
	var strip bool

	cmd := &cobra.Command{
		Use:         "footer <file|->",
		Short:       "Print the metadata footer of a rendered communication",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipApp": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			content, footer, err := render.ParseFooter(string(data))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if strip {
				_, err = fmt.Fprintln(out, content)
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "identifier\t%s\n", footer.Identifier)
			fmt.Fprintf(tw, "revision\t%s\n", footer.Revision)
			fmt.Fprintf(tw, "template\t%s\n", footer.Template)
			fmt.Fprintf(tw, "template_version\t%s\n", footer.TemplateVersion)
			fmt.Fprintf(tw, "jurisdictions\t%s\n", strings.Join(footer.Jurisdictions, ","))
			for _, n := range footer.Notices {
				fmt.Fprintf(tw, "notice %s\t%s\n", n.Tag, n.Text)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&strip, "strip", false, "print the content without the footer instead")
	return cmd
}
