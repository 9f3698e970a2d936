// Package version reports the build of the normanctl binaries.
//
// Release builds set Version and Commit with ldflags:
//
//	go build -ldflags="-X github.com/muurk/normanctl/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/normanctl/internal/version.Commit=abc123"
//
// Other builds fall back to the VCS stamp Go embeds, then to "dev".
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

var (
	Version = ""
	Commit  = ""
)

const shortCommitLen = 7

// vcsStamp is the subset of debug.BuildInfo settings used here.
type vcsStamp struct {
	revision string
	time     time.Time
	modified bool
}

func init() {
	var stamp vcsStamp
	if info, ok := debug.ReadBuildInfo(); ok {
		stamp = readStamp(info.Settings)
	}
	Version, Commit = resolve(Version, Commit, stamp)
}

func readStamp(settings []debug.BuildSetting) vcsStamp {
	var s vcsStamp
	for _, kv := range settings {
		switch kv.Key {
		case "vcs.revision":
			s.revision = kv.Value
		case "vcs.modified":
			s.modified = kv.Value == "true"
		case "vcs.time":
			s.time, _ = time.Parse(time.RFC3339, kv.Value)
		}
	}
	return s
}

// resolve fills whatever ldflags left empty.
func resolve(version, commit string, s vcsStamp) (string, string) {
	if commit == "" && s.revision != "" {
		commit = s.revision
		if len(commit) > shortCommitLen {
			commit = commit[:shortCommitLen]
		}
		if s.modified {
			commit += "-dirty"
		}
	}
	if commit == "" {
		commit = "unknown"
	}

	if version == "" {
		version = "dev"
		if !s.time.IsZero() {
			version = "dev-" + s.time.UTC().Format("20060102")
		}
	}
	return version, commit
}

// Line is the one-line version banner of a binary.
func Line(binary string) string {
	return fmt.Sprintf("%s %s (commit: %s)", binary, Version, Commit)
}

// UserAgent identifies this tool in requests to the gateway.
func UserAgent() string {
	return "normanctl/" + Version
}
