// Package buildmeta carries build-time version information injected via
// -ldflags.
package buildmeta

// Set at build time with
// -ldflags "-X github.com/flotilla-dev/flotilla/internal/buildmeta.Version=...".
var (
	// Version is the release version.
	Version = "dev"
	// Commit is the git commit the binary was built from.
	Commit = "none"
	// Date is the build date.
	Date = "unknown"
)
