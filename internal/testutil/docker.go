package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/google/uuid"
)

// CleanupLabel marks containers created by tests. Its value is the owning test's name.
const CleanupLabel = "oracle-test"

// RequireDocker skips the test in -short mode or when no Docker daemon answers.
func RequireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping docker test in short mode")
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		t.Skipf("docker client unavailable: %v", err)
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		t.Skipf("docker is not running: %v", err)
	}
}

// DefraContainer reserves a container name, host port and cleanup labels for
// a DefraDB container owned by t, skipping t when Docker is unavailable.
// Containers labelled for t are removed now (leftovers of an interrupted
// run) and again when t finishes.
func DefraContainer(t *testing.T, prefix string) DefraTestConfig {
	t.Helper()
	RequireDocker(t)

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		t.Fatalf("docker client: %v", err)
	}
	removeTestContainers(t, cli)
	t.Cleanup(func() {
		removeTestContainers(t, cli)
		cli.Close()
	})

	port, err := FindFreePort()
	if err != nil {
		t.Fatalf("find free port for DefraDB: %v", err)
	}

	return DefraTestConfig{
		ContainerName: containerName(prefix, t.Name()),
		HostPort:      port,
		Labels:        map[string]string{CleanupLabel: t.Name()},
	}
}

// containerName builds "oracle-test-<prefix>-<test>-<id>" using only
// characters Docker accepts in names.
func containerName(prefix, testName string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '/', r == '_', r == '-', r == ' ':
			return '-'
		}
		return -1
	}, testName)
	if len(clean) > 30 {
		clean = clean[:30]
	}
	return fmt.Sprintf("%s-%s-%s-%s", CleanupLabel, prefix, clean, uuid.NewString()[:8])
}

func removeTestContainers(t *testing.T, cli *client.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	found, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", CleanupLabel+"="+t.Name())),
	})
	if err != nil {
		t.Logf("list test containers: %v", err)
		return
	}
	for _, c := range found {
		// Force also stops a running container.
		if err := cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
			t.Logf("remove test container %s: %v", c.Names, err)
			continue
		}
		t.Logf("removed test container %s", c.Names)
	}
}
