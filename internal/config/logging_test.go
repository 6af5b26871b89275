package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetupLogFile(t *testing.T) {
	dir := t.TempDir()

	f, err := SetupLogFile(dir, 10)
	if err != nil {
		t.Fatalf("SetupLogFile: %v", err)
	}
	defer f.Close()

	matches, err := filepath.Glob(filepath.Join(dir, "parley-*.log"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("log files = %d, want 1", len(matches))
	}
}

func TestPruneLogsKeepsNewest(t *testing.T) {
	dir := t.TempDir()

	names := []string{
		"parley-2026-01-01T00-00-00.log",
		"parley-2026-01-02T00-00-00.log",
		"parley-2026-01-03T00-00-00.log",
		"parley-2026-01-04T00-00-00.log",
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	if err := pruneLogs(dir, 2); err != nil {
		t.Fatalf("pruneLogs: %v", err)
	}

	remaining, err := filepath.Glob(filepath.Join(dir, "parley-*.log"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("remaining = %d, want 2", len(remaining))
	}
	for _, keep := range names[2:] {
		path := filepath.Join(dir, keep)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("newest file %s removed: %v", keep, err)
		}
	}
}
