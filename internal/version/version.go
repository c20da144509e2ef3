// Package version provides build-time version information.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/rickgao/portfolio-sync/internal/version.Version=1.0.0 \
//	                   -X github.com/rickgao/portfolio-sync/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/rickgao/portfolio-sync/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	         ./cmd/portfoliosync
package version

import "runtime/debug"

// Build-time variables (set via ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns a formatted version string. Without ldflags the commit and
// time fall back to the VCS stamp the go tool embeds.
func String() string {
	commit, built := Commit, BuildTime
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && commit == "unknown" && len(s.Value) >= 7:
				commit = s.Value[:7]
			case s.Key == "vcs.time" && built == "unknown":
				built = s.Value
			}
		}
	}
	return Version + " (" + commit + ") built " + built
}
