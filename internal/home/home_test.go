package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-folio")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-folio" {
			t.Errorf("expected path /tmp/test-folio, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-folio")

	if got := dir.ConfigPath(); got != "/tmp/test-folio/config.yaml" {
		t.Errorf("ConfigPath() = %s", got)
	}
	if got := dir.DatabasePath(); got != "/tmp/test-folio/folio.db" {
		t.Errorf("DatabasePath() = %s", got)
	}
}

func TestDir_ResolveDatabase(t *testing.T) {
	dir, _ := New("/tmp/test-folio")

	tests := []struct {
		configured string
		want       string
	}{
		{"", "/tmp/test-folio/folio.db"},
		{":memory:", ":memory:"},
		{"/var/lib/folio.db", "/var/lib/folio.db"},
		{"other.db", "/tmp/test-folio/other.db"},
	}
	for _, tt := range tests {
		t.Run(tt.configured, func(t *testing.T) {
			if got := dir.ResolveDatabase(tt.configured); got != tt.want {
				t.Errorf("ResolveDatabase(%q) = %s, want %s", tt.configured, got, tt.want)
			}
		})
	}
}

func TestDir_EnsureExists(t *testing.T) {
	folioDir := filepath.Join(t.TempDir(), "folio-test")

	dir, err := New(folioDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Error("directory should not exist yet")
	}
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}
	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}
	if err := dir.EnsureExists(); err != nil {
		t.Errorf("second EnsureExists failed: %v", err)
	}
}

func TestDir_ConfigExists(t *testing.T) {
	dir, _ := New(t.TempDir())

	if dir.ConfigExists() {
		t.Error("config should not exist yet")
	}
	if err := os.WriteFile(dir.ConfigPath(), []byte("log_level: info\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if !dir.ConfigExists() {
		t.Error("config should exist after writing")
	}
}
