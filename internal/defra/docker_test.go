package defra

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/oracle/internal/testutil"
)

func TestGenerateContainerName(t *testing.T) {
	tests := []struct {
		name     string
		homePath string
		want     string
	}{
		{"typical home path", "/home/user/.oracle", "oracle-defra-2af17c6f"},
		{"different home path", "/Users/jane/.oracle", "oracle-defra-a813ca69"},
		{"empty path", "", "oracle-defra-e3b0c442"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateContainerName(tt.homePath)
			if !strings.HasPrefix(got, ContainerNamePrefix) {
				t.Errorf("GenerateContainerName() = %q, want prefix %q", got, ContainerNamePrefix)
			}
			if len(got) != len(ContainerNamePrefix)+8 {
				t.Errorf("GenerateContainerName() length = %d, want %d", len(got), len(ContainerNamePrefix)+8)
			}
			if got != tt.want {
				t.Errorf("GenerateContainerName(%q) = %q, want %q", tt.homePath, got, tt.want)
			}
		})
	}

	if GenerateContainerName("/a/.oracle") == GenerateContainerName("/b/.oracle") {
		t.Error("different homes should produce different names")
	}
}

func TestNewDockerManager_ContainerNaming(t *testing.T) {
	tests := []struct {
		name string
		cfg  DockerConfig
		want string
	}{
		{"explicit container name takes precedence", DockerConfig{ContainerName: "custom", HomePath: "/home/test/.oracle"}, "custom"},
		{"derived from home path", DockerConfig{HomePath: "/home/test/.oracle"}, GenerateContainerName("/home/test/.oracle")},
		{"default", DockerConfig{}, DefaultContainerName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, err := NewDockerManager(tt.cfg)
			if err != nil {
				t.Fatalf("NewDockerManager() error = %v", err)
			}
			defer mgr.Close()

			if mgr.ContainerName() != tt.want {
				t.Errorf("ContainerName() = %q, want %q", mgr.ContainerName(), tt.want)
			}
		})
	}
}

func TestDockerManager_URL(t *testing.T) {
	mgr, err := NewDockerManager(DockerConfig{HostPort: "19181"})
	if err != nil {
		t.Fatalf("NewDockerManager() error = %v", err)
	}
	defer mgr.Close()

	if mgr.URL() != "http://localhost:19181" {
		t.Errorf("URL() = %s", mgr.URL())
	}
}

func TestDockerManager_Integration(t *testing.T) {
	dc := testutil.DefraContainer(t, "defra")
	ctx := context.Background()

	mgr, err := NewDockerManager(DockerConfig{
		ContainerName: dc.ContainerName,
		DataPath:      t.TempDir(),
		HostPort:      dc.HostPort,
		Labels:        dc.Labels,
	})
	if err != nil {
		t.Fatalf("NewDockerManager() error = %v", err)
	}
	defer mgr.Close()

	assertStatus := func(t *testing.T, want ContainerStatus) {
		t.Helper()
		status, err := mgr.Status(ctx)
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if status != want {
			t.Errorf("status = %s, want %s", status, want)
		}
	}

	t.Run("Start", func(t *testing.T) {
		if err := mgr.Start(ctx); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		assertStatus(t, StatusRunning)
	})

	t.Run("Start_AlreadyRunning", func(t *testing.T) {
		if err := mgr.Start(ctx); err != nil {
			t.Errorf("Start() on running container should succeed: %v", err)
		}
	})

	t.Run("HealthCheck", func(t *testing.T) {
		if err := NewClient(mgr.URL()).HealthCheck(ctx); err != nil {
			t.Errorf("HealthCheck() error = %v", err)
		}
	})

	t.Run("Stop", func(t *testing.T) {
		if err := mgr.Stop(ctx); err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
		assertStatus(t, StatusStopped)
	})

	t.Run("Restart", func(t *testing.T) {
		if err := mgr.Start(ctx); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		assertStatus(t, StatusRunning)
	})

	t.Run("Logs", func(t *testing.T) {
		logs, err := mgr.Logs(ctx, "10")
		if err != nil {
			t.Fatalf("Logs() error = %v", err)
		}
		if len(logs) == 0 {
			t.Error("expected some log output")
		}
	})

	t.Run("Remove", func(t *testing.T) {
		if err := mgr.Remove(ctx); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		assertStatus(t, StatusNotFound)
	})

	t.Run("Remove_NotFound", func(t *testing.T) {
		if err := mgr.Remove(ctx); err != nil {
			t.Errorf("Remove() on missing container should succeed: %v", err)
		}
	})

	t.Run("Logs_NotFound", func(t *testing.T) {
		if _, err := mgr.Logs(ctx, "10"); err == nil {
			t.Error("expected error for missing container")
		}
	})
}

func TestDockerManager_WaitReadyTimeout(t *testing.T) {
	port, err := testutil.FindFreePort()
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	mgr, err := NewDockerManager(DockerConfig{HostPort: port})
	if err != nil {
		t.Fatalf("NewDockerManager() error = %v", err)
	}
	defer mgr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := mgr.WaitReady(ctx, time.Second); err == nil {
		t.Error("expected error when nothing listens on the port")
	}
}
