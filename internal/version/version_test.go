package version

import (
	"strings"
	"testing"
	"time"
)

func TestVersionPopulated(t *testing.T) {
	if Version == "" {
		t.Error("Version should never be empty after init")
	}
	if Commit == "" {
		t.Error("Commit should never be empty after init")
	}
}

func TestResolve(t *testing.T) {
	stamped := vcsStamp{
		revision: "0123456789abcdef",
		time:     time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name        string
		version     string
		commit      string
		stamp       vcsStamp
		wantVersion string
		wantCommit  string
	}{
		{"ldflags win", "v1.2.3", "abc", stamped, "v1.2.3", "abc"},
		{"vcs stamp", "", "", stamped, "dev-20260304", "0123456"},
		{"dirty tree", "", "", vcsStamp{revision: "abc", modified: true}, "dev", "abc-dirty"},
		{"nothing known", "", "", vcsStamp{}, "dev", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, c := resolve(tt.version, tt.commit, tt.stamp)
			if v != tt.wantVersion || c != tt.wantCommit {
				t.Errorf("resolve() = %q, %q, want %q, %q", v, c, tt.wantVersion, tt.wantCommit)
			}
		})
	}
}

func TestLine(t *testing.T) {
	line := Line("norman-bridge")
	if !strings.HasPrefix(line, "norman-bridge "+Version) || !strings.Contains(line, Commit) {
		t.Errorf("Line() = %q", line)
	}
}

func TestUserAgent(t *testing.T) {
	if !strings.HasPrefix(UserAgent(), "normanctl/") {
		t.Errorf("UserAgent() = %q", UserAgent())
	}
}
