package lifecycle

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
)

// Container implements StrategyTarget so wait strategies can probe it.

// Host returns the address on which the container's mapped ports are
// reachable from the test process.
func (c *Container) Host() string {
	return c.engine.DaemonHost()
}

// MappedPort returns the host port bound to the given container port, from
// the inspect snapshot captured after the port-readiness wait.
func (c *Container) MappedPort(port nat.Port) (nat.Port, error) {
	if c.info == nil || c.info.NetworkSettings == nil {
		return "", fmt.Errorf("container %s has no inspect snapshot yet", c.containerID)
	}
	bindings, ok := c.info.NetworkSettings.Ports[port]
	if !ok || len(bindings) == 0 {
		return "", fmt.Errorf("port %s is not mapped for container %s", port, c.containerID)
	}
	return nat.Port(bindings[0].HostPort + "/" + port.Proto()), nil
}

// Logs streams the container's combined stdout and stderr.
func (c *Container) Logs(ctx context.Context) (io.ReadCloser, error) {
	return c.engine.ContainerLogs(ctx, c.containerID)
}

// Exec runs cmd inside the container and returns exit code and output.
func (c *Container) Exec(ctx context.Context, cmd []string) (int, string, error) {
	return c.engine.Exec(ctx, c.containerID, cmd)
}

// State fetches the container's current state from the engine.
func (c *Container) State(ctx context.Context) (*container.State, error) {
	resp, err := c.engine.InspectContainer(ctx, c.containerID)
	if err != nil {
		return nil, err
	}
	return resp.State, nil
}
