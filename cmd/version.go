// Package cmd contains build-time variables injected via ldflags.
package cmd

import "runtime/debug"

// Build-time variables set via ldflags:
//
//	-X github.com/thoreinstein/crossbuild/cmd.Version=v1.2.0
var (
	// Version is the semantic version of the build.
	Version = "dev"
	// Commit is the git commit SHA of the build.
	Commit = "none"
	// Date is the build date.
	Date = "unknown"
)

// Resolved returns the version, commit and date, filling values not set by
// ldflags from the module build info when available (go install builds).
func Resolved() (version, commit, date string) {
	version, commit, date = Version, Commit, Date

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version, commit, date
	}
	if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if commit == "none" {
				commit = s.Value
			}
		case "vcs.time":
			if date == "unknown" {
				date = s.Value
			}
		}
	}
	return version, commit, date
}
