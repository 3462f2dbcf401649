package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/sethvargo/go-retry"
)

// Default port-wait policy. "Engine says running" and "engine has allocated
// host-side port mappings" are not atomic; this poll bridges the gap.
const (
	defaultPortWaitCeiling  = 5 * time.Second
	defaultPortWaitInterval = 50 * time.Millisecond
)

var errPortsNotMapped = errors.New("not all exposed ports have host bindings yet")

// waitForPortBindings blocks until every declared exposed port has a live
// host binding, re-evaluating a fresh inspect each tick, and returns the
// final inspect snapshot. Fails when the ceiling elapses first.
func (c *Container) waitForPortBindings(ctx context.Context) (container.InspectResponse, error) {
	var info container.InspectResponse
	var lastErr error

	waitCtx, cancel := context.WithTimeout(ctx, c.portWaitCeiling)
	defer cancel()

	err := retry.Do(waitCtx, retry.NewConstant(c.portWaitInterval), func(ctx context.Context) error {
		resp, err := c.engine.InspectContainer(ctx, c.containerID)
		if err != nil {
			lastErr = err
			return retry.RetryableError(err)
		}
		if !allPortsMapped(resp, c.Spec.ExposedPorts) {
			lastErr = errPortsNotMapped
			return retry.RetryableError(errPortsNotMapped)
		}
		info = resp
		return nil
	})
	if err != nil {
		// The ceiling elapsing yields a bare deadline error; keep the last
		// observed failure so the caller sees why the wait never succeeded.
		if lastErr != nil && !errors.Is(err, lastErr) {
			err = fmt.Errorf("%w: %w", err, lastErr)
		}
		return info, fmt.Errorf("waiting for port bindings of container %s: %w", c.containerID, err)
	}
	return info, nil
}

// allPortsMapped reports whether the set of exposed-and-mapped ports in the
// inspect response is a superset of the declared exposed ports.
func allPortsMapped(resp container.InspectResponse, exposed []nat.Port) bool {
	mapped := map[nat.Port]bool{}
	if resp.NetworkSettings != nil {
		for port, bindings := range resp.NetworkSettings.Ports {
			if bindings != nil {
				mapped[port] = true
			}
		}
	}
	for _, port := range exposed {
		if !mapped[port] {
			return false
		}
	}
	return true
}
