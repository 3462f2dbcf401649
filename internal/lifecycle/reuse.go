package lifecycle

import (
	"context"
)

// canBeReused reports whether this container is eligible for reuse. A hook
// set that customizes just-created behavior disqualifies it: reuse skips
// creation, so the hook would silently never run and the two features are
// mutually exclusive by contract.
func (c *Container) canBeReused() bool {
	if _, ok := c.hooks.(CreatedHook); ok {
		return false
	}
	return true
}

// findContainerForReuse looks for a running container carrying the given
// fingerprint label and returns its id, or "" when none exists.
//
// Finding and adopting is not atomic against another process doing the same:
// two processes may both miss and both create. This is an accepted race; the
// fingerprint label makes the duplicate discoverable, nothing more.
func (c *Container) findContainerForReuse(ctx context.Context, hash string) (string, error) {
	summaries, err := c.engine.ListContainers(ctx, "running", map[string]string{LabelHash: hash}, 1)
	if err != nil {
		return "", err
	}
	if len(summaries) == 0 {
		return "", nil
	}
	return summaries[0].ID, nil
}
