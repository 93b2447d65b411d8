// Package version exposes build metadata stamped into the sealwrite
// binaries at link time.
package version

import "strings"

// Overridden via -ldflags "-X .../internal/version.Version=... -X
// .../internal/version.Commit=...". Release builds stamp both; local builds
// report the dev placeholder with no commit.
var (
	Version = "0.0.0-dev"
	Commit  = ""
)

// String returns the display version: a single 'v' prefix regardless of
// whether the stamped value carried one, plus the short commit when known.
func String() string {
	v := "v" + strings.TrimPrefix(Version, "v")
	if Commit != "" {
		v += "+" + shortCommit()
	}
	return v
}

func shortCommit() string {
	if len(Commit) > 12 {
		return Commit[:12]
	}
	return Commit
}
