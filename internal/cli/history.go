package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bissquit/incident-comms/internal/domain"
)

var errNoIdentifier = errors.New("no identifier: pass --id or set one on the incident")

func (r *runner) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Save, list, restore and compare incident revisions",
	}
	cmd.AddCommand(
		r.historySaveCommand(),
		r.historyListCommand(),
		r.historyRestoreCommand(),
		r.historyDiffCommand(),
		r.historyClearCommand(),
	)
	return cmd
}

// identifier returns id, falling back to the current incident's.
func (r *runner) identifier(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	if current := r.app.Session.Record().Identifier(); current != "" {
		return current, nil
	}
	return "", errNoIdentifier
}

func (r *runner) historySaveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Save the current incident as a new revision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session := r.app.Session
			snap, err := session.SaveRevision(r.ctx(cmd), r.app.History, r.user, session.Version())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", snap.Identifier)
			return err
		},
	}
}

func (r *runner) historyListCommand() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list [identifier]",
		Short: "List revisions of an incident, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := r.ctx(cmd)
			out := cmd.OutOrStdout()

			var id string
			if len(args) == 1 {
				id = args[0]
			}
			id, err := r.identifier(id)
			if errors.Is(err, errNoIdentifier) {
				// Without an incident, list the identifiers that have history.
				for _, base := range r.app.History.Identifiers(ctx) {
					fmt.Fprintln(out, base)
				}
				return nil
			}

			snaps, err := r.app.History.Recent(ctx, id, limit)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snaps)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tREVISION\tSAVED\tUSER")
			for i, s := range snaps {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, s.Identifier, s.Timestamp.Format(time.RFC3339), s.User)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", -1, "show at most this many revisions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print snapshots as JSON")
	return cmd
}

func (r *runner) historyRestoreCommand() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "restore <index>",
		Short: "Replace the current incident with a saved revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := r.ctx(cmd)
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			base, err := r.identifier(id)
			if err != nil {
				return err
			}

			record, ok := r.app.History.Restore(ctx, base, index)
			if !ok {
				return fmt.Errorf("no revision at index %d for %s", index, base)
			}
			r.app.Session.Replace(ctx, record)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "restored %s\n", record.Identifier())
			return err
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "incident identifier (default: current incident)")
	return cmd
}

func (r *runner) historyDiffCommand() *cobra.Command {
	var (
		id     string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "diff <before-index> <after-index>",
		Short: "Show fields that changed between two revisions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			before, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			after, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			base, err := r.identifier(id)
			if err != nil {
				return err
			}

			changes, err := r.app.History.Diff(r.ctx(cmd), base, before, after)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(changes)
			}
			if len(changes) == 0 {
				_, err = fmt.Fprintln(out, "no changes")
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tBEFORE\tAFTER")
			for _, c := range changes {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Field, displayValue(c.Before), displayValue(c.After))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "incident identifier (default: current incident)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print changes as JSON")
	return cmd
}

func (r *runner) historyClearCommand() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every saved revision of an incident",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			base, err := r.identifier(id)
			if err != nil {
				return err
			}
			if err := r.app.History.Clear(r.ctx(cmd), base); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "cleared history of %s\n", base)
			return err
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "incident identifier (default: current incident)")
	return cmd
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid revision index %q", s)
	}
	return n, nil
}

func displayValue(v any) string {
	if v == nil {
		return "(unset)"
	}
	return domain.FormatValue(v)
}
