package cmd

import (
	"runtime/debug"
	"testing"
)

func TestVCSFromSettings(t *testing.T) {
	stamped := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "3f9c2ab"},
		{Key: "vcs.time", Value: "2026-03-02T08:00:00Z"},
	}

	tests := []struct {
		name       string
		commit     string
		built      string
		settings   []debug.BuildSetting
		wantCommit string
		wantBuilt  string
	}{
		{"ldflags win", "release-sha", "2026-01-01", stamped, "release-sha", "2026-01-01"},
		{"vcs fills unset values", "unknown", "unknown", stamped, "3f9c2ab", "2026-03-02T08:00:00Z"},
		{"dirty tree", "unknown", "unknown", append(stamped, debug.BuildSetting{Key: "vcs.modified", Value: "true"}), "3f9c2ab-dirty", "2026-03-02T08:00:00Z"},
		{"no vcs stamp", "unknown", "unknown", nil, "unknown", "unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			commit, built := vcsFromSettings(tc.commit, tc.built, tc.settings)
			if commit != tc.wantCommit || built != tc.wantBuilt {
				t.Errorf("vcsFromSettings() = %q, %q, want %q, %q", commit, built, tc.wantCommit, tc.wantBuilt)
			}
		})
	}
}
