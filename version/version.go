// Package version carries build information, overridable with -ldflags.
package version

import "fmt"

var (
	Version   = "0.1.0"
	BuildDate = "2026-10-18"
	Commit    = "dev"
)

func GetVersion() string {
	return Version
}

func GetBuildDate() string {
	return BuildDate
}

// String renders the version line printed by the CLI.
func String() string {
	return fmt.Sprintf("reconcile %s (commit %s, built %s)", Version, Commit, BuildDate)
}
