// Package version holds the build version string.
package version

// Version is overridden at build time with -ldflags "-X techwiki/internal/version.Version=...".
var Version = "0.1.0-dev"
