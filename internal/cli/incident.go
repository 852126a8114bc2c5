package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bissquit/incident-comms/internal/domain"
	"github.com/bissquit/incident-comms/internal/incident"
)

// numericFields are stored as numbers when their value parses as one.
var numericFields = map[string]bool{
	domain.FieldCustomersAffected:   true,
	domain.FieldDollarImpactPerHour: true,
}

func (r *runner) incidentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "incident",
		Aliases: []string{"inc"},
		Short:   "Inspect and edit the current incident record",
	}
	cmd.AddCommand(
		r.incidentShowCommand(),
		r.incidentLoadCommand(),
		r.incidentSetCommand(),
		r.incidentResetCommand(),
		r.incidentValidateCommand(),
		r.incidentNextUpdateCommand(),
	)
	return cmd
}

func (r *runner) incidentShowCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current incident record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			record := r.app.Session.Record()
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(record)
			}

			keys := make([]string, 0, len(record))
			for k := range record {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "version\t%d\n", r.app.Session.Version())
			for _, k := range keys {
				fmt.Fprintf(tw, "%s\t%s\n", k, record.Get(k))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the record as JSON")
	return cmd
}

func (r *runner) incidentLoadCommand() *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "load <file|->",
		Short: "Merge a JSON record into the current incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := r.ctx(cmd)
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			if replace {
				record, err := incident.DecodeRecord(data)
				if err != nil {
					return &domain.ImportError{Source: args[0], Index: -1, Err: err}
				}
				r.app.Session.Replace(ctx, record)
			} else if err := r.app.Session.LoadJSON(ctx, args[0], data); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "loaded %s (version %d)\n", args[0], r.app.Session.Version())
			return err
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "replace the record instead of merging")
	return cmd
}

func (r *runner) incidentSetCommand() *cobra.Command {
	var unset bool

	cmd := &cobra.Command{
		Use:   "set <field=value>...",
		Short: "Set or unset fields of the current incident",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := r.ctx(cmd)

			if unset {
				for _, field := range args {
					r.app.Session.Unset(ctx, field)
				}
				return nil
			}

			partial, err := parseAssignments(args)
			if err != nil {
				return err
			}
			r.app.Session.Merge(ctx, partial)
			return nil
		},
	}

	cmd.Flags().BoolVar(&unset, "unset", false, "treat arguments as field names to remove")
	return cmd
}

func (r *runner) incidentResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the current incident record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r.app.Session.Reset(r.ctx(cmd))
			return nil
		},
	}
}

func (r *runner) incidentValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the current incident against the field constraints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := r.app.Session.Validate(); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "incident is valid")
			return err
		},
	}
}

func (r *runner) incidentNextUpdateCommand() *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "next-update",
		Short: "Compute the next update time from the start time and severity SLA",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var value string
			if apply {
				v, err := r.app.Session.ApplyNextUpdateTime(r.ctx(cmd))
				if err != nil {
					return err
				}
				value = v
			} else {
				next, err := r.app.Session.NextUpdateTime()
				if err != nil {
					return err
				}
				value = next.Format(time.RFC3339)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), value)
			return err
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "store the result as next_update_time")
	return cmd
}

// parseAssignments turns field=value arguments into a partial record.
func parseAssignments(args []string) (domain.IncidentRecord, error) {
	partial := make(domain.IncidentRecord, len(args))
	for _, arg := range args {
		field, value, ok := strings.Cut(arg, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected field=value", arg)
		}
		partial[field] = fieldValue(field, value)
	}
	return partial, nil
}

func fieldValue(field, value string) any {
	if numericFields[field] {
		trimmed := strings.TrimSpace(value)
		if _, err := strconv.ParseFloat(trimmed, 64); err == nil && json.Valid([]byte(trimmed)) {
			return json.Number(trimmed)
		}
	}
	return value
}
