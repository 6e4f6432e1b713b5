// Package version reports what build of the dashboard is running.
package version

import (
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
)

// Set with -ldflags "-X intakedash/internal/version.Version=..."
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Info describes the running binary
type Info struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Commit    string `json:"commit,omitempty"`
	Dirty     bool   `json:"dirty"`
}

// Get reads the ldflags values and the embedded VCS settings
func Get() Info {
	info := Info{Version: Version, BuildTime: BuildTime}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = shortCommit(s.Value)
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		case "vcs.time":
			if info.BuildTime == "unknown" {
				info.BuildTime = s.Value
			}
		}
	}
	return info
}

func shortCommit(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// String is the one-line form printed by -version
func (i Info) String() string {
	s := fmt.Sprintf("intakedash %s (%s)", i.Version, i.GoVersion)
	if i.Commit != "" {
		s += " " + i.Commit
		if i.Dirty {
			s += "+dirty"
		}
	}
	if i.BuildTime != "unknown" {
		s += " built " + i.BuildTime
	}
	return s
}

// Fields returns the build info as log fields
func (i Info) Fields() []zap.Field {
	return []zap.Field{
		zap.String("version", i.Version),
		zap.String("commit", i.Commit),
		zap.Bool("dirty", i.Dirty),
		zap.String("go", i.GoVersion),
	}
}
