package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bissquit/incident-comms/internal/identifier"
)

var errInvalidIdentifiers = errors.New("invalid identifiers")

func (r *runner) idCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "id",
		Short: "Generate and check incident identifiers",
	}
	cmd.AddCommand(r.idNewCommand(), r.idBumpCommand(), r.idValidateCommand())
	return cmd
}

func (r *runner) idNewCommand() *cobra.Command {
	var assign bool

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Print the next identifier of the current month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := r.ctx(cmd)
			existing := r.app.History.Identifiers(ctx)
			if current := r.app.Session.Record().Identifier(); current != "" {
				existing = append(existing, current)
			}

			var (
				id  string
				err error
			)
			if assign {
				id, err = r.app.Session.AssignNewID(ctx, existing)
			} else {
				id, err = r.ids.NewBaseID(existing)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}

	cmd.Flags().BoolVar(&assign, "assign", false, "store the identifier on the current incident")
	return cmd
}

func (r *runner) idBumpCommand() *cobra.Command {
	var revision string

	cmd := &cobra.Command{
		Use:         "bump <identifier>",
		Short:       "Print the identifier with its next revision",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipApp": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			next, err := r.ids.NextRevision(args[0], revision)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), next)
			return err
		},
	}

	cmd.Flags().StringVar(&revision, "revision", "", "stored revision to continue from")
	return cmd
}

func (r *runner) idValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate <identifier>...",
		Short:       "Check identifiers against the YYYYMM_NN[.RR] format",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipApp": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			invalid := 0
			for _, id := range args {
				if _, err := identifier.Parse(id); err != nil {
					invalid++
					fmt.Fprintf(out, "%s\tinvalid\t%v\n", id, err)
					continue
				}
				fmt.Fprintf(out, "%s\tvalid\n", id)
			}
			if invalid > 0 {
				return fmt.Errorf("%w: %d of %d", errInvalidIdentifiers, invalid, len(args))
			}
			return nil
		},
	}
}
