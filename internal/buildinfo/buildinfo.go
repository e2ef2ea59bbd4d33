// Package buildinfo carries the version stamped in by the linker:
//
//	go build -ldflags "-X pebbles/internal/buildinfo.Version=v0.3.0 -X pebbles/internal/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns the version, or the commit for untagged builds.
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if Commit != "" && Commit != "unknown" {
		return Commit
	}
	return "dev"
}

// String returns every stamped field.
func String() string {
	return fmt.Sprintf("pebbles %s (commit %s, built %s)", Version, Commit, Date)
}
