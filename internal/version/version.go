package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version, set through ldflags at release time.
	Version = "0.1.0"
	// Commit is the short git SHA of the build.
	Commit = "none"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// Short returns the semantic version.
func Short() string {
	return Version
}

// Full returns the version with commit, build time and platform.
func Full() string {
	return fmt.Sprintf("attention-monitor %s (commit %s, built %s, %s %s/%s)",
		Version, Commit, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
