package config

import "log/slog"

// Set at link time, for example:
//
//	go build -ldflags "-X plantwatch/internal/config.version=1.2.3 \
//	    -X plantwatch/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X plantwatch/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/...
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// BuildInfo identifies the running binary. It is never read from the
// environment.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// NewBuildInfo returns the linker-injected values.
func NewBuildInfo() BuildInfo {
	return BuildInfo{Version: version, Commit: commit, BuildTime: buildTime}
}

// LogValue renders the build as one grouped log attribute.
func (b BuildInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("version", b.Version),
		slog.String("commit", b.Commit),
		slog.String("build_time", b.BuildTime),
	)
}
