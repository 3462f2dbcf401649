package lifecycle

import (
	"context"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
)

// Engine is the narrow slice of a container engine's control API that the
// lifecycle core drives. The production implementation lives in
// internal/engine; tests substitute fakes.
type Engine interface {
	// DaemonHost returns the hostname or IP on which containers started by
	// this engine are reachable from the test process.
	DaemonHost() string

	CreateContainer(ctx context.Context, cfg *container.Config, hostCfg *container.HostConfig, netCfg *network.NetworkingConfig, name string) (string, error)
	StartContainer(ctx context.Context, id string) error
	StopContainer(ctx context.Context, id string) error
	RemoveContainer(ctx context.Context, id string, force bool) error
	InspectContainer(ctx context.Context, id string) (container.InspectResponse, error)

	// ListContainers returns container summaries filtered by status
	// ("running", "exited", ... or empty for any), exact label matches and an
	// optional result limit (0 means unlimited).
	ListContainers(ctx context.Context, status string, labels map[string]string, limit int) ([]container.Summary, error)

	ConnectNetwork(ctx context.Context, networkID, containerID string) error
	ContainerLogs(ctx context.Context, id string) (io.ReadCloser, error)

	// CopyToContainer stages a host file or directory at destPath inside the
	// container.
	CopyToContainer(ctx context.Context, id, srcPath, destPath string) error

	// Exec runs cmd inside the container and returns its exit code and
	// combined output.
	Exec(ctx context.Context, id string, cmd []string) (int, string, error)

	ImageExists(ctx context.Context, ref string) (bool, error)
	PullImage(ctx context.Context, ref string) error
}

// Reaper tears containers down on behalf of the lifecycle core. The default
// implementation (internal/reaper) stops and removes through the engine; an
// out-of-process reaper can be substituted to survive crashes of the caller.
type Reaper interface {
	StopAndRemove(ctx context.Context, id, displayName string) error
}

// PortForwarder describes an active host-port-forwarding helper. When one is
// registered, created containers get an extra host entry pointing back at the
// test host and are attached to the forwarder's network after creation.
type PortForwarder interface {
	NetworkID() string
	HostIP() string
}
