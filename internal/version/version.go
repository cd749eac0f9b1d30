// Package version holds build metadata injected via ldflags.
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info is the one-line build description printed by the CLI.
func Info() string {
	return fmt.Sprintf("bimquery %s (commit %s, built %s)", Version, Commit, Date)
}
