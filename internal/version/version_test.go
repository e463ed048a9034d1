package version

import "testing"

func withBuild(t *testing.T, v, c, b string) {
	t.Helper()
	origVersion, origCommit, origBuildTime := Version, Commit, BuildTime
	t.Cleanup(func() {
		Version, Commit, BuildTime = origVersion, origCommit, origBuildTime
	})
	Version, Commit, BuildTime = v, c, b
}

func TestString(t *testing.T) {
	withBuild(t, "0.3.0", "abc1234", "2026-10-01T10:00:00Z")

	want := "0.3.0 (abc1234) built 2026-10-01T10:00:00Z"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestCurrent(t *testing.T) {
	withBuild(t, "dev", "unknown", "unknown")

	info := Current()
	if info.Version != "dev" {
		t.Errorf("Version = %q, want %q", info.Version, "dev")
	}
	if info.Commit != "unknown" || info.BuildTime != "unknown" {
		t.Errorf("Current() = %+v, want unknown commit and build time", info)
	}
}

func TestDefaultValues(t *testing.T) {
	if Version == "" || Commit == "" || BuildTime == "" {
		t.Errorf("build variables must not be empty: %q %q %q", Version, Commit, BuildTime)
	}
}
