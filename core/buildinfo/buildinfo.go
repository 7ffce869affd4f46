// Package buildinfo carries version metadata stamped at link time:
//
//	-X 'github.com/m3rciful/formbot/core/buildinfo.Version=v1.0.0'
//	-X 'github.com/m3rciful/formbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/formbot/core/buildinfo.Date=2026-01-01T00:00:00Z'
package buildinfo

var (
	// Version reports the release tag of the binary.
	Version = "dev"
	// Commit reports the source revision.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// String renders the metadata for `formbot version` style output.
func String() string {
	s := Version + " (" + Commit
	if Date != "" {
		s += ", " + Date
	}
	return s + ")"
}
