package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bissquit/incident-comms/internal/catalog"
	"github.com/bissquit/incident-comms/internal/domain"
	"github.com/bissquit/incident-comms/internal/lint"
	"github.com/bissquit/incident-comms/internal/render"
)

var errLintFailed = errors.New("lint failed")

type lintOptions struct {
	kind   string
	file   string
	all    bool
	asJSON bool
	strict bool
}

func (r *runner) lintCommand() *cobra.Command {
	var opts lintOptions

	cmd := &cobra.Command{
		Use:   "lint [template-id]",
		Short: "Check template bodies for missing tokens, tone and clarity",
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				reports []lint.Report
				err     error
			)
			if opts.all {
				reports = r.lintCatalog()
			} else {
				var report lint.Report
				report, err = r.lintOne(cmd, args[0], opts)
				reports = []lint.Report{report}
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if opts.all {
					err = enc.Encode(reports)
				} else {
					err = enc.Encode(reports[0])
				}
			} else if opts.all {
				err = writeSummary(out, reports)
			} else {
				err = writeReport(out, reports[0])
			}
			if err != nil {
				return err
			}

			if opts.strict {
				return strictCheck(reports)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.kind, "kind", "", "communication kind to lint (default: main body)")
	flags.StringVar(&opts.file, "file", "", "lint this file (or - for stdin) against the template's requirements")
	flags.BoolVar(&opts.all, "all", false, "lint every communication of every template")
	flags.BoolVar(&opts.asJSON, "json", false, "print the report as JSON")
	flags.BoolVar(&opts.strict, "strict", false, "fail on errors or a score below the pass threshold")
	cmd.MarkFlagsMutuallyExclusive("all", "kind")
	cmd.MarkFlagsMutuallyExclusive("all", "file")
	return cmd
}

func (r *runner) lintOne(cmd *cobra.Command, id string, opts lintOptions) (lint.Report, error) {
	tmpl, err := r.app.Catalog.Get(id)
	if err != nil {
		return lint.Report{}, err
	}

	var body string
	if opts.file != "" {
		data, err := readInput(cmd, opts.file)
		if err != nil {
			return lint.Report{}, err
		}
		body = string(data)
	} else {
		kind := opts.kind
		if kind == "" && tmpl.Body == "" {
			kind = render.Kinds(tmpl)[0]
		}
		b, ok := render.Body(tmpl, kind)
		if !ok {
			return lint.Report{}, &render.InvalidTemplateError{TemplateID: tmpl.ID, Kind: kind}
		}
		body = b
	}

	return r.app.Linter.Check(tmpl, body), nil
}

// lintCatalog lints each communication of every template. Reports are
// labeled "<template>/<kind>".
func (r *runner) lintCatalog() []lint.Report {
	var reports []lint.Report
	for _, tmpl := range r.app.Catalog.List(catalog.Filter{}) {
		for _, kind := range render.Kinds(tmpl) {
			body, ok := render.Body(tmpl, kind)
			if !ok {
				continue
			}
			report := r.app.Linter.Check(tmpl, body)
			report.Template = tmpl.ID + "/" + kind
			reports = append(reports, report)
		}
	}
	return reports
}

func writeReport(w io.Writer, report lint.Report) error {
	pass := "pass"
	if !report.Score.PassThreshold {
		pass = "fail"
	}
	fmt.Fprintf(w, "%s: score %d (%s, %s)\n", report.Template, report.Score.Score, report.Score.Grade, pass)

	if report.Result.Total() == 0 {
		fmt.Fprintln(w, "no findings")
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, group := range [][]domain.LintFinding{report.Result.Errors, report.Result.Warnings, report.Result.Info} {
		for _, f := range group {
			line := "-"
			if f.Line > 0 {
				line = strconv.Itoa(f.Line)
			}
			msg := f.Message
			if f.Suggestion != "" {
				msg += " (" + f.Suggestion + ")"
			}
			fmt.Fprintf(tw, "%s\t%s\tline %s\t%s\n", f.Tier, f.Rule, line, msg)
		}
	}
	if len(report.Result.Passed) > 0 {
		fmt.Fprintf(tw, "passed\t%d rules\t\t\n", len(report.Result.Passed))
	}
	return tw.Flush()
}

func writeSummary(w io.Writer, reports []lint.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TEMPLATE\tSCORE\tGRADE\tERRORS\tWARNINGS\tINFO")
	for _, rep := range reports {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%d\n", rep.Template, rep.Score.Score, rep.Score.Grade,
			len(rep.Result.Errors), len(rep.Result.Warnings), len(rep.Result.Info))
	}
	return tw.Flush()
}

func strictCheck(reports []lint.Report) error {
	failed := 0
	for _, rep := range reports {
		if len(rep.Result.Errors) > 0 || !rep.Score.PassThreshold {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d below threshold or with errors", errLintFailed, failed, len(reports))
	}
	return nil
}
