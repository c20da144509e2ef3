package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	oldVersion, oldCommit, oldTime := Version, Commit, BuildTime
	defer func() { Version, Commit, BuildTime = oldVersion, oldCommit, oldTime }()

	Version, Commit, BuildTime = "1.2.3", "abc1234", "2025-03-01T10:00:00Z"

	want := "1.2.3 (abc1234) built 2025-03-01T10:00:00Z"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestStringDefaults(t *testing.T) {
	if got := String(); !strings.HasPrefix(got, Version+" (") {
		t.Errorf("String() = %q, want prefix %q", got, Version+" (")
	}
}
