package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"testing"
	"time"
)

// DefraTestConfig holds DefraDB container configuration without importing defra package.
// This breaks the import cycle between testutil and defra.
type DefraTestConfig struct {
	ContainerName string
	HostPort      string
	Labels        map[string]string
}

// ServerConfig returns configuration values for creating a test server.
// This avoids importing the server package directly.
type ServerConfig struct {
	Host        string
	Port        string
	HomeDir     string
	ConfigFile  string
	DefraConfig DefraTestConfig
	Logger      *slog.Logger
}

// NewServerConfig creates configuration for a test server with a free HTTP
// port and a managed DefraDB container. It skips t when Docker is unavailable.
func NewServerConfig(t *testing.T) ServerConfig {
	t.Helper()

	defraCfg := DefraContainer(t, "serve")
	tempDir := t.TempDir()

	httpPort, err := FindFreePort()
	if err != nil {
		t.Fatalf("failed to find free port for HTTP: %v", err)
	}

	return ServerConfig{
		Host:        "127.0.0.1",
		Port:        httpPort,
		HomeDir:     tempDir,
		ConfigFile:  tempDir + "/config.yaml",
		DefraConfig: defraCfg,
		Logger:      TestLogger(),
	}
}

// URL returns the server URL for the given config.
func (c ServerConfig) URL() string {
	return fmt.Sprintf("http://%s:%s", c.Host, c.Port)
}

// TestLogger returns a logger that only reports warnings and errors.
// Set ORACLE_TEST_VERBOSE=1 to see everything.
func TestLogger() *slog.Logger {
	level := slog.LevelWarn
	if os.Getenv("ORACLE_TEST_VERBOSE") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// DiscardLogger returns a logger that drops all output.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WaitForServer polls the /status endpoint until DefraDB reports healthy.
func WaitForServer(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		status, err := GetStatus(url)
		if err == nil && status.Defra.Health == "healthy" {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("server not ready after %v", timeout)
}

// WaitForShutdown waits for a channel to receive a value or timeout.
func WaitForShutdown(done <-chan error, timeout time.Duration) error {
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for shutdown")
	}
}

// FindFreePort finds an available TCP port and returns it as a string.
func FindFreePort() (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer listener.Close()
	return fmt.Sprintf("%d", listener.Addr().(*net.TCPAddr).Port), nil
}

// StartServer tracks a server goroutine started by a test.
type StartServer struct {
	Cancel context.CancelFunc
	Done   <-chan error
}

// Stop cancels the server context and waits for shutdown.
func (s *StartServer) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
	if s.Done != nil {
		<-s.Done
	}
}

// StatusResponse mirrors the server's /status payload.
type StatusResponse struct {
	Server string `json:"server"`
	Store  struct {
		Mode      string `json:"mode"`
		LocalPath string `json:"local_path"`
	} `json:"store"`
	LLM struct {
		Provider string `json:"provider"`
		Model    string `json:"model"`
		Health   string `json:"health"`
	} `json:"llm"`
	Defra struct {
		Container string `json:"container"`
		Health    string `json:"health"`
		URL       string `json:"url"`
	} `json:"defra"`
}

// GetStatus fetches the /status endpoint and returns the parsed response.
func GetStatus(url string) (*StatusResponse, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url + "/status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}
