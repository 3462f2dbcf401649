package lifecycle

import (
	"context"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
)

// StartupCheck is the engine-level readiness gate, run after the container's
// port mappings are live and before the application-level wait strategy. A
// false result without an error means the container did not reach its desired
// running state and the attempt fails.
type StartupCheck interface {
	WaitUntilStartupSuccessful(ctx context.Context, e Engine, containerID string) (bool, error)
}

// StrategyTarget is what a WaitStrategy probes: host address, mapped ports,
// logs and an exec capability. *Container implements it.
type StrategyTarget interface {
	Host() string
	MappedPort(port nat.Port) (nat.Port, error)
	Logs(ctx context.Context) (io.ReadCloser, error)
	Exec(ctx context.Context, cmd []string) (int, string, error)
	State(ctx context.Context) (*container.State, error)
}

// WaitStrategy is the application-level readiness probe (log pattern, HTTP,
// port listening, command exec, ...). Implementations carry their own timeout
// configuration. A nil strategy skips the application-wait stage entirely.
type WaitStrategy interface {
	WaitUntilReady(ctx context.Context, target StrategyTarget) error
}
