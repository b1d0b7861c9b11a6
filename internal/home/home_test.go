package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-oracle")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-oracle" {
			t.Errorf("expected path /tmp/test-oracle, got %s", dir.Path())
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
	dir, _ := New("/tmp/test-oracle")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"DataPath", dir.DataPath(), "/tmp/test-oracle/data"},
		{"ConfigPath", dir.ConfigPath(), "/tmp/test-oracle/config.yaml"},
		{"ProphecyStorePath", dir.ProphecyStorePath(), "/tmp/test-oracle/data/prophecies.json"},
		{"DefraDataPath", dir.DefraDataPath(), "/tmp/test-oracle/defradb"},
		{"LogPath", dir.LogPath(), "/tmp/test-oracle/oracle.log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, tt.got)
			}
		})
	}
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	oracleDir := filepath.Join(tmpDir, "oracle-test")

	dir, err := New(oracleDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Error("directory should not exist before EnsureExists")
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}
	if _, err := os.Stat(dir.DataPath()); os.IsNotExist(err) {
		t.Error("data directory should exist after EnsureExists")
	}

	if err := dir.EnsureDefraDataPath(); err != nil {
		t.Fatalf("EnsureDefraDataPath failed: %v", err)
	}
	if _, err := os.Stat(dir.DefraDataPath()); os.IsNotExist(err) {
		t.Error("defradb directory should exist after EnsureDefraDataPath")
	}
}

func TestDir_ConfigExists(t *testing.T) {
	tmpDir := t.TempDir()
	dir, _ := New(tmpDir)

	if dir.ConfigExists() {
		t.Error("config should not exist initially")
	}

	if err := os.WriteFile(dir.ConfigPath(), []byte("test: true\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if !dir.ConfigExists() {
		t.Error("config should exist after creation")
	}
}
