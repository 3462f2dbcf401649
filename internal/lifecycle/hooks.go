package lifecycle

import "context"

// Lifecycle hooks are optional capabilities: a hook set implements any subset
// of the interfaces below, and each stage is a no-op when the corresponding
// interface is absent. Hooks run synchronously on the calling goroutine; a
// hook that blocks, blocks the whole start sequence.
//
// Implementing CreatedHook declares custom just-created behavior and makes
// the container ineligible for reuse: an adopted container skips creation, so
// the hook would silently never run.

// BeforeStartHook runs before any engine call of a start attempt.
type BeforeStartHook interface {
	BeforeStart(ctx context.Context) error
}

// CreatedHook runs after the container is created, before it is started.
// Never invoked on the reuse path.
type CreatedHook interface {
	ContainerCreated(ctx context.Context, id string) error
}

// StartingHook runs immediately after the engine start call, before the port
// readiness wait. Never invoked on the reuse path.
type StartingHook interface {
	ContainerStarting(ctx context.Context, reused bool) error
}

// StartedHook runs only after the application-level wait strategy succeeds,
// so observers never see "started" before the container is actually serving.
type StartedHook interface {
	ContainerStarted(ctx context.Context, reused bool) error
}

// StoppingHook runs before teardown is delegated to the reaper.
type StoppingHook interface {
	ContainerStopping(ctx context.Context) error
}

// StoppedHook runs after the reaper returns.
type StoppedHook interface {
	ContainerStopped(ctx context.Context) error
}
