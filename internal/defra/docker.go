package defra

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

const (
	DefaultImage         = "sourcenetwork/defradb:latest"
	DefaultContainerName = "oracle-defra"
	ContainerNamePrefix  = "oracle-defra-"
	DefaultPort          = "9181"
	ContainerPort        = "9181/tcp"
	DataDir              = "/data"
	Label                = "oracle-defra"

	defaultReadyTimeout = 30 * time.Second
)

// ContainerStatus represents the state of the DefraDB container.
type ContainerStatus string

const (
	StatusRunning   ContainerStatus = "running"
	StatusStopped   ContainerStatus = "stopped"
	StatusNotFound  ContainerStatus = "not_found"
	StatusUnhealthy ContainerStatus = "unhealthy"
	StatusStarting  ContainerStatus = "starting"
)

// GenerateContainerName derives a stable container name from the oracle home
// directory so two homes on one machine never share a DefraDB node.
func GenerateContainerName(homePath string) string {
	sum := sha256.Sum256([]byte(homePath))
	return ContainerNamePrefix + hex.EncodeToString(sum[:])[:8]
}

// DockerManager manages the DefraDB Docker container lifecycle.
type DockerManager struct {
	cli           *client.Client
	containerName string
	imageName     string
	dataPath      string // host path bind-mounted at DataDir
	hostPort      string
	labels        map[string]string
}

// DockerConfig holds configuration for the Docker manager.
type DockerConfig struct {
	ContainerName string // explicit name; wins over HomePath
	HomePath      string // oracle home, used to derive the container name
	Image         string
	DataPath      string
	HostPort      string
	Labels        map[string]string // extra labels (tests use these for cleanup)
}

// NewDockerManager creates a new Docker manager for DefraDB.
func NewDockerManager(cfg DockerConfig) (*DockerManager, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	name := cfg.ContainerName
	switch {
	case name != "":
	case cfg.HomePath != "":
		name = GenerateContainerName(cfg.HomePath)
	default:
		name = DefaultContainerName
	}
	if cfg.Image == "" {
		cfg.Image = DefaultImage
	}
	if cfg.HostPort == "" {
		cfg.HostPort = DefaultPort
	}

	labels := map[string]string{Label: "true"}
	for k, v := range cfg.Labels {
		labels[k] = v
	}

	return &DockerManager{
		cli:           cli,
		containerName: name,
		imageName:     cfg.Image,
		dataPath:      cfg.DataPath,
		hostPort:      cfg.HostPort,
		labels:        labels,
	}, nil
}

// Close closes the Docker client.
func (m *DockerManager) Close() error {
	return m.cli.Close()
}

// ContainerName returns the name of the managed container.
func (m *DockerManager) ContainerName() string {
	return m.containerName
}

// URL returns the DefraDB API URL.
func (m *DockerManager) URL() string {
	return fmt.Sprintf("http://localhost:%s", m.hostPort)
}

// Start starts the DefraDB container, creating it if needed, and waits
// until the node answers health checks. Starting a running container is a no-op.
func (m *DockerManager) Start(ctx context.Context) error {
	if _, err := m.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker is not running: %w", err)
	}

	status, containerID, err := m.inspectStatus(ctx)
	if err != nil {
		return err
	}

	switch status {
	case StatusRunning:
		return nil
	case StatusStopped:
		if err := m.cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
			return fmt.Errorf("failed to start existing container: %w", err)
		}
		return m.WaitReady(ctx, defaultReadyTimeout)
	case StatusNotFound:
		return m.createAndStart(ctx)
	default:
		return fmt.Errorf("container in unexpected state: %s", status)
	}
}

// Stop stops the DefraDB container. Stopping a missing container is a no-op.
func (m *DockerManager) Stop(ctx context.Context) error {
	status, containerID, err := m.inspectStatus(ctx)
	if err != nil {
		return err
	}
	if status == StatusNotFound {
		return nil
	}

	timeout := 10
	if err := m.cli.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}
	return nil
}

// Remove stops and removes the DefraDB container. Host data is left in place.
func (m *DockerManager) Remove(ctx context.Context) error {
	status, containerID, err := m.inspectStatus(ctx)
	if err != nil {
		return err
	}
	if status == StatusNotFound {
		return nil
	}

	if status == StatusRunning {
		if err := m.Stop(ctx); err != nil {
			return err
		}
	}

	if err := m.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force:         true,
		RemoveVolumes: true,
	}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

// Status returns the current status of the DefraDB container.
func (m *DockerManager) Status(ctx context.Context) (ContainerStatus, error) {
	status, _, err := m.inspectStatus(ctx)
	return status, err
}

// Logs returns the last tail lines of container output.
func (m *DockerManager) Logs(ctx context.Context, tail string) (string, error) {
	status, containerID, err := m.inspectStatus(ctx)
	if err != nil {
		return "", err
	}
	if status == StatusNotFound {
		return "", fmt.Errorf("container %s not found", m.containerName)
	}

	logs, err := m.cli.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       tail,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get logs: %w", err)
	}
	defer logs.Close()

	out, err := io.ReadAll(logs)
	if err != nil {
		return "", fmt.Errorf("failed to read logs: %w", err)
	}
	return string(out), nil
}

// WaitReady polls the node's health endpoint once a second until it answers or
// timeout elapses. Zero means 30s.
func (m *DockerManager) WaitReady(ctx context.Context, timeout time.Duration) error {
	if timeout == 0 {
		timeout = defaultReadyTimeout
	}
	attempts := uint(timeout / time.Second)
	if attempts == 0 {
		attempts = 1
	}

	c := NewClient(m.URL())
	return retry.Do(
		func() error {
			checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return c.HealthCheck(checkCtx)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(time.Second),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}

func (m *DockerManager) createAndStart(ctx context.Context) error {
	if err := m.ensureImage(ctx); err != nil {
		return err
	}

	containerConfig := &container.Config{
		Image: m.imageName,
		Cmd: []string{
			"start",
			"--no-keyring",
			"--url", "0.0.0.0:9181",
			"--store", "badger",
			"--rootdir", DataDir,
		},
		Labels: m.labels,
		ExposedPorts: nat.PortSet{
			ContainerPort: struct{}{},
		},
	}

	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			ContainerPort: []nat.PortBinding{
				{HostIP: "127.0.0.1", HostPort: m.hostPort},
			},
		},
	}
	if m.dataPath != "" {
		hostConfig.Mounts = []mount.Mount{
			{Type: mount.TypeBind, Source: m.dataPath, Target: DataDir},
		}
	}

	resp, err := m.cli.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, m.containerName)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}

	if err := m.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = m.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return fmt.Errorf("failed to start container: %w", err)
	}

	return m.WaitReady(ctx, defaultReadyTimeout)
}

func (m *DockerManager) inspectStatus(ctx context.Context) (ContainerStatus, string, error) {
	filterArgs := filters.NewArgs()
	filterArgs.Add("name", "^/"+m.containerName+"$")

	containers, err := m.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to list containers: %w", err)
	}
	if len(containers) == 0 {
		return StatusNotFound, "", nil
	}

	c := containers[0]
	switch c.State {
	case "running":
		return StatusRunning, c.ID, nil
	case "exited", "dead":
		return StatusStopped, c.ID, nil
	case "created", "restarting":
		return StatusStarting, c.ID, nil
	default:
		return ContainerStatus(c.State), c.ID, nil
	}
}

func (m *DockerManager) ensureImage(ctx context.Context) error {
	if _, err := m.cli.ImageInspect(ctx, m.imageName); err == nil {
		return nil
	}

	reader, err := m.cli.ImagePull(ctx, m.imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", m.imageName, err)
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}
