package buildinfo

import "time"

// Set via -ldflags at build time
var (
	Version    = "dev"
	BuildTime  string
	CommitHash string
)

// StartTime is recorded when the process starts
var StartTime = time.Now().UTC().Format(time.RFC3339)

// Info is the build identity reported by /health and labelctl version
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Built   string `json:"built,omitempty"`
	Started string `json:"started"`
}

func Current() Info {
	return Info{Version: Version, Commit: CommitHash, Built: BuildTime, Started: StartTime}
}
