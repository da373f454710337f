// Package version exposes build information injected via -ldflags.
package version

var (
	// Version is the semantic version.
	Version = "v0.0.0-dev"

	// GitCommit is the git commit hash.
	GitCommit = "unknown"

	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// Info returns the full version line printed by `kizuna version`.
func Info() string {
	return "kizuna " + Version + " (" + GitCommit + ") built at " + BuildTime
}
