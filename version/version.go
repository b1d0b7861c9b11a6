// Package version holds build metadata injected via -ldflags.
package version

import "runtime"

var (
	// GitRelease is the release tag, e.g. v0.3.1.
	GitRelease = "dev"
	// GitCommit is the short commit hash.
	GitCommit = "unknown"
	// GitCommitDate is the commit date in RFC3339.
	GitCommitDate = "unknown"
	// GoInfo is the toolchain the binary was built with.
	GoInfo = runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH
)
