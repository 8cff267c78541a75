// Package buildinfo exposes the version stamped into the binary at link
// time:
//
//	go build -ldflags "-X github.com/matzehuels/refbump/pkg/buildinfo.Version=$(git describe --tags) \
//	    -X github.com/matzehuels/refbump/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/matzehuels/refbump/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import "fmt"

// Link-time values. Unstamped builds report "dev".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Template is the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s (commit %s, built %s)\n", Version, Commit, Date)
}

// UserAgent identifies refbump to registries and forges.
func UserAgent() string {
	return "refbump/" + Version
}
