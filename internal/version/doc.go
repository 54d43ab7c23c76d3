// Package version holds build metadata injected through ldflags
// (-X .../internal/version.Version=...) and the `version` subcommand.
package version
