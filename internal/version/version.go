// Package version carries the relay's build identity.
//
// Set at link time:
//
//	go build -ldflags "-X github.com/rickgao/chat-relay/internal/version.Version=0.3.0 \
//	                   -X github.com/rickgao/chat-relay/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/rickgao/chat-relay/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/relay
package version

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"

	// Commit is the short git hash.
	Commit = "unknown"

	// BuildTime is the UTC link time in RFC 3339.
	BuildTime = "unknown"
)

// Info is the JSON shape reported by the relay's health endpoint.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// Current snapshots the link-time variables.
func Current() Info {
	return Info{Version: Version, Commit: Commit, BuildTime: BuildTime}
}

// String returns "version (commit) built time".
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}
