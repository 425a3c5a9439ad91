package tester

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"KoordeDHT/internal/domain"
)

// DockerBootstrap discovers nodes by container name suffix and network,
// talking to the local Docker daemon directly through its API.
type DockerBootstrap struct {
	Suffix  string // e.g. "localtest-node"
	Port    int    // e.g. 4000
	Network string // e.g. "koorde-net"
}

// NewDockerBootstrap creates a Docker-based bootstrapper.
func NewDockerBootstrap(suffix string, port int, network string) *DockerBootstrap {
	return &DockerBootstrap{
		Suffix:  strings.TrimSpace(suffix),
		Port:    port,
		Network: strings.TrimSpace(network),
	}
}

// Discover returns a list of reachable peers in the given Docker network.
func (d *DockerBootstrap) Discover(ctx context.Context) ([]string, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	defer cli.Close()

	containers, err := cli.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("container list: %w", err)
	}

	var addrs []string
	for _, c := range containers {
		name := containerName(c.Names)
		if name == "" || !strings.Contains(name, d.Suffix) {
			continue
		}

		netInfo, ok := c.NetworkSettings.Networks[d.Network]
		if !ok || netInfo.IPAddress == "" {
			continue
		}

		addrs = append(addrs, fmt.Sprintf("%s:%d", name, d.Port)) // DNS name, not IP
	}

	return addrs, nil
}

// containerName strips the leading slash Docker puts on container names.
func containerName(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return strings.TrimPrefix(names[0], "/")
}

// Register and Deregister are no-ops
func (d *DockerBootstrap) Register(ctx context.Context, node *domain.Node) error   { return nil }
func (d *DockerBootstrap) Deregister(ctx context.Context, node *domain.Node) error { return nil }
