// Package version holds the build-time version variables for the phiguard
// binary. Local builds report "dev"; release builds set the values via
// -ldflags "-X .../internal/version.Version=...".
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns the formatted version string printed by phiguard version.
func Info() string {
	return fmt.Sprintf(
		"phiguard version %s\ncommit: %s\nbuilt: %s\n",
		Version,
		Commit,
		Date,
	)
}
