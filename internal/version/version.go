// Package version exposes build metadata stamped in with
// -ldflags "-X .../internal/version.Version=...".
package version

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
