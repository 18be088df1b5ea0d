// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

// setVersion replaces the build variables for one test. Tests using it
// must not run in parallel.
func setVersion(t *testing.T, version, commit, dirty string) {
	t.Helper()
	oldVersion, oldCommit, oldDirty := Version, GitCommit, GitDirty
	Version, GitCommit, GitDirty = version, commit, dirty
	t.Cleanup(func() {
		Version, GitCommit, GitDirty = oldVersion, oldCommit, oldDirty
	})
}

func TestInfo(t *testing.T) {
	setVersion(t, "1.2.0", "abc1234", "true")

	if got := Info(); !strings.HasPrefix(got, "1.2.0 (abc1234-dirty, ") {
		t.Errorf("Info() = %q", got)
	}
	if got := Full(); !strings.Contains(got, "Go: ") || !strings.Contains(got, "Platform: ") {
		t.Errorf("Full() = %q", got)
	}
	if Short() != "1.2.0" {
		t.Errorf("Short() = %q", Short())
	}
}

func TestImageTag(t *testing.T) {
	tests := []struct {
		version string
		release bool
		tag     string
	}{
		{"0.1.0-dev", false, "latest"},
		{"1.4.0", true, "1.4.0"},
		{"v2.0.1", true, "2.0.1"},
		{"", false, "latest"},
	}
	for _, tt := range tests {
		setVersion(t, tt.version, "unknown", "false")
		if got := IsRelease(); got != tt.release {
			t.Errorf("IsRelease() for %q = %v, want %v", tt.version, got, tt.release)
		}
		if got := ImageTag(); got != tt.tag {
			t.Errorf("ImageTag() for %q = %q, want %q", tt.version, got, tt.tag)
		}
	}
}
