package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bissquit/incident-comms/internal/version"
)

func (r *runner) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print build information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipApp": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "commsctl", version.String())
			return err
		},
	}
}
