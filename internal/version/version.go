// Package version contains build version information.
package version

import "fmt"

// Build information, set at build time via ldflags:
//
//	-X github.com/bissquit/incident-comms/internal/version.Version=1.2.0
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// String formats the build information for display.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
