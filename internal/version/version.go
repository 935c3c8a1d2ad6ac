// Package version carries build metadata injected at link time:
//
//	go build -ldflags "-X git.home.luguber.info/inful/aliasdoc/internal/version.Version=v1.0.0"
package version

import "fmt"

// Version is the release version.
var Version = "unknown"

// Build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders all build metadata on one line.
func String() string {
	return fmt.Sprintf("aliasdoc %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
