// Package buildinfo carries release metadata stamped in with
// -ldflags "-X github.com/cleared-dev/expense-tracker/internal/buildinfo.Version=...".
package buildinfo

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
