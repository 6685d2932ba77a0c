// Package version exposes build metadata stamped at link time
package version

import "fmt"

// BuildInfo holds version information about the build
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Set with -ldflags "-X 'tulflow/internal/core/version.version=v0.3.0'
// -X 'tulflow/internal/core/version.commit=abcd' -X 'tulflow/internal/core/version.date=2026-01-02'"
var (
	service = "tulflow"
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Info returns the build information
func Info() BuildInfo {
	return BuildInfo{Service: service, Version: version, Commit: commit, Date: date}
}

// UserAgent is sent on outbound OAI-PMH requests
func UserAgent() string {
	return fmt.Sprintf("%s/%s (+https://github.com/tulibraries/tulflow)", service, version)
}
