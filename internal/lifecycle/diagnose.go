package lifecycle

import (
	"context"
	"fmt"

	"github.com/containerd/errdefs"
)

// diagnoseStartupFailure turns a readiness failure into the most actionable
// error. Several of the inspected conditions can be true at once, so the
// classification order is significant: removed, dead, oom-killed, engine
// error, exited. When the container is up, the original probe error is the
// true cause and is returned unchanged.
func (c *Container) diagnoseStartupFailure(ctx context.Context, cause error) error {
	c.log.Debug("readiness wait failed, inspecting container state", "error", cause)

	resp, err := c.engine.InspectContainer(ctx, c.containerID)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("container is removed: %w", cause)
		}
		// State unavailable for another reason; the probe error stands.
		return cause
	}

	state := resp.State
	switch {
	case state == nil:
		return cause
	case state.Dead:
		return fmt.Errorf("container is dead")
	case state.OOMKilled:
		return fmt.Errorf("container crashed with out-of-memory (OOMKilled)")
	case state.Error != "":
		return fmt.Errorf("container crashed: %s", state.Error)
	case !state.Running:
		return fmt.Errorf("container exited with code %d", state.ExitCode)
	default:
		return cause
	}
}
