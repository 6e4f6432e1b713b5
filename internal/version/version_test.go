package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{
			name: "dev build",
			info: Info{Version: "dev", BuildTime: "unknown", GoVersion: "go1.25.0"},
			want: "intakedash dev (go1.25.0)",
		},
		{
			name: "release",
			info: Info{Version: "1.4.0", BuildTime: "2026-03-01T10:00:00Z", GoVersion: "go1.25.0", Commit: "abc123def456"},
			want: "intakedash 1.4.0 (go1.25.0) abc123def456 built 2026-03-01T10:00:00Z",
		},
		{
			name: "dirty tree",
			info: Info{Version: "dev", BuildTime: "unknown", GoVersion: "go1.25.0", Commit: "abc123def456", Dirty: true},
			want: "intakedash dev (go1.25.0) abc123def456+dirty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShortCommit(t *testing.T) {
	if got := shortCommit("0123456789abcdef0123"); got != "0123456789ab" {
		t.Errorf("shortCommit = %q", got)
	}
	if got := shortCommit("abc"); got != "abc" {
		t.Errorf("shortCommit = %q", got)
	}
}

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if !strings.HasPrefix(info.GoVersion, "go") {
		t.Errorf("GoVersion = %q", info.GoVersion)
	}
	if len(info.Fields()) != 4 {
		t.Errorf("Fields = %d, want 4", len(info.Fields()))
	}
}
