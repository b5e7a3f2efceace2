package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestArchiveURLRejectsNonGithubPaths(t *testing.T) {
	_, err := archiveURL(Requirement{Path: "example.com/dep", Version: "v1.0.0"})
	if err == nil {
		t.Fatal("archiveURL with a non-github.com path returned nil error")
	}
}

func TestArchiveURLFormatsGithubTagZip(t *testing.T) {
	got, err := archiveURL(Requirement{Path: "github.com/someone/basmlib", Version: "v1.2.0"})
	if err != nil {
		t.Fatalf("archiveURL: %v", err)
	}
	want := "https://github.com/someone/basmlib/archive/refs/tags/v1.2.0.zip"
	if got != want {
		t.Errorf("archiveURL() = %q, want %q", got, want)
	}
}

func TestCacheDirSkipsFetchWhenAlreadyPresent(t *testing.T) {
	base := t.TempDir()
	req := Requirement{Path: "github.com/someone/basmlib", Version: "v1.2.0"}
	existing := filepath.Join(base, "github.com_someone_basmlib", "v1.2.0")
	if err := os.MkdirAll(existing, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	c := NewCache(base)
	dir, err := c.Dir(req)
	if err != nil {
		t.Fatalf("Dir: %v (should not need to fetch, directory already exists)", err)
	}
	if dir != existing {
		t.Errorf("Dir() = %q, want %q", dir, existing)
	}
}
