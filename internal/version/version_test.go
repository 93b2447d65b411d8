package version

import "testing"

func TestString(t *testing.T) {
	tests := []struct {
		name    string
		version string
		commit  string
		want    string
	}{
		{"dev default", "0.0.0-dev", "", "v0.0.0-dev"},
		{"no prefix", "1.0.0", "", "v1.0.0"},
		{"with v prefix", "v1.0.0", "", "v1.0.0"},
		{"snapshot", "0.3.1-snapshot", "", "v0.3.1-snapshot"},
		{"stamped commit", "1.2.0", "abcdef0", "v1.2.0+abcdef0"},
		{"long commit truncated", "1.2.0", "0123456789abcdef0123", "v1.2.0+0123456789ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origVersion, origCommit := Version, Commit
			defer func() { Version, Commit = origVersion, origCommit }()

			Version, Commit = tt.version, tt.commit
			if got := String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
