// Package cli implements the commsctl command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bissquit/incident-comms/internal/app"
	"github.com/bissquit/incident-comms/internal/config"
	"github.com/bissquit/incident-comms/internal/identifier"
	"github.com/bissquit/incident-comms/internal/pkg/ctxlog"
)

// runner holds state shared by every command of one invocation.
type runner struct {
	configPath  string
	metricsFile string
	logLevel    string
	user        string

	stderr io.Writer
	ids    *identifier.Manager
	app    *app.App
}

// Execute runs commsctl with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := &runner{stderr: stderr, ids: identifier.NewManager()}
	root := r.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if r.app != nil {
		if closeErr := r.app.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func (r *runner) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "commsctl",
		Short:         "commsctl renders and lints incident communications",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["skipApp"] == "true" {
				return nil
			}
			return r.open(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&r.configPath, "config", os.Getenv("COMMS_CONFIG"), "config file path (YAML)")
	flags.StringVar(&r.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	flags.StringVar(&r.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	flags.StringVar(&r.user, "user", defaultUser(), "user recorded on saved revisions")

	root.AddCommand(
		r.versionCommand(),
		r.idCommand(),
		r.incidentCommand(),
		r.templatesCommand(),
		r.renderCommand(),
		r.lintCommand(),
		r.historyCommand(),
		r.bundleCommand(),
	)
	return root
}

func (r *runner) open(ctx context.Context) error {
	cfg, err := config.Load(r.configPath)
	if err != nil {
		return err
	}
	if r.metricsFile != "" {
		cfg.Metrics.Textfile = r.metricsFile
	}
	if r.logLevel != "" {
		cfg.Log.Level = r.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	a, err := app.New(ctx, cfg, r.stderr)
	if err != nil {
		return err
	}
	r.app = a
	return nil
}

// ctx returns the command context carrying the application logger tagged
// with the command path.
func (r *runner) ctx(cmd *cobra.Command) context.Context {
	return ctxlog.With(r.app.Context(cmd.Context()), "command", cmd.CommandPath())
}

func defaultUser() string {
	if u := os.Getenv("COMMS_USER"); u != "" {
		return u
	}
	return os.Getenv("USER")
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// writeOutput writes text to path, or to the command output when path is
// empty.
func writeOutput(cmd *cobra.Command, path, text string) error {
	if path == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
